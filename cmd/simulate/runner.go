package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/AaronLay10/SentientSim/internal/api"
	"github.com/AaronLay10/SentientSim/internal/config"
	"github.com/AaronLay10/SentientSim/internal/events"
	"github.com/AaronLay10/SentientSim/internal/mqtt"
	"github.com/AaronLay10/SentientSim/internal/orchestrator"
	"github.com/AaronLay10/SentientSim/internal/pattern"
	"github.com/AaronLay10/SentientSim/internal/physics/rigid"
	"github.com/AaronLay10/SentientSim/internal/storage/postgres"
	"github.com/AaronLay10/SentientSim/internal/trace"
)

type runStore interface {
	RecordRun(run postgres.RunRow) error
}

type resultNotifier interface {
	Notify(r mqtt.Result) error
}

// sceneRunner runs scene files one at a time with a shared configuration.
type sceneRunner struct {
	cfg      *config.SimConfig
	policy   pattern.Policy
	outDir   string
	shapes   orchestrator.ShapeCatalog
	dataset  string
	pg       *postgres.Client
	notifier *mqtt.ResultNotifier

	// test hooks; nil falls back to pg and notifier
	store  runStore
	notify resultNotifier
}

type runOutcome struct {
	RunID     string
	Scene     string
	Valid     bool
	NumSteps  int
	TracePath string
	Violation *orchestrator.Violation
}

func (o runOutcome) verdict() string {
	if o.Valid {
		return fmt.Sprintf("%s: valid (%d steps) -> %s", o.Scene, o.NumSteps, o.TracePath)
	}
	if o.Violation != nil {
		return fmt.Sprintf("%s: invalid, %s (%d steps) -> %s", o.Scene, o.Violation, o.NumSteps, o.TracePath)
	}
	return fmt.Sprintf("%s: invalid (%d steps) -> %s", o.Scene, o.NumSteps, o.TracePath)
}

// outputRoot picks the -out flag, then the scene's own output_dir, then sim.yaml.
func (s *sceneRunner) outputRoot(scene *orchestrator.SceneDescription) string {
	if s.outDir != "" {
		return s.outDir
	}
	if scene.Sim.OutputDir != "" {
		return scene.Sim.OutputDir
	}
	return s.cfg.OutputDir()
}

func (s *sceneRunner) run(ctx context.Context, path string) (runOutcome, error) {
	scene, err := orchestrator.LoadScene(path)
	if err != nil {
		return runOutcome{}, err
	}
	scene.ApplyDefaults(s.cfg.Timestep())

	name := orchestrator.SceneName(path)
	runID := uuid.NewString()
	started := time.Now().UTC()

	engine, err := rigid.New(rigid.Options{
		Timestep:      scene.Sim.Timestep,
		Gravity:       mgl64.Vec3{0, 0, s.cfg.Gravity()},
		ContactMargin: s.cfg.ContactMargin(),
	})
	if err != nil {
		return runOutcome{}, fmt.Errorf("failed to create physics engine: %w", err)
	}
	defer engine.Close()

	rt, err := orchestrator.NewRuntime(engine, scene, orchestrator.Options{
		Policy: s.policy,
		RunID:  runID,
		Scene:  name,
		Shapes: s.shapes,
	})
	if err != nil {
		return runOutcome{}, err
	}

	tr, valid, err := rt.Run(ctx)
	if err != nil {
		return runOutcome{}, err
	}

	tracePath := filepath.Join(s.outputRoot(scene), name, trace.FileName)
	if err := trace.Write(tracePath, tr); err != nil {
		return runOutcome{}, fmt.Errorf("failed to write trace: %w", err)
	}
	events.Emit("info", "trace.written", "", map[string]interface{}{
		"run_id": runID,
		"scene":  name,
		"path":   tracePath,
		"frames": tr.Len(),
	})

	out := runOutcome{
		RunID:     runID,
		Scene:     name,
		Valid:     valid,
		NumSteps:  rt.NumSteps(),
		TracePath: tracePath,
		Violation: rt.Violation(),
	}

	row := postgres.RunRow{
		RunID:      runID,
		Dataset:    s.dataset,
		Scene:      name,
		Valid:      valid,
		NumSteps:   out.NumSteps,
		TracePath:  tracePath,
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
	}
	api.RecordRun(row)
	if store := s.recorder(); store != nil {
		if err := store.RecordRun(row); err != nil {
			log.Printf("failed to record run %s: %v", runID, err)
		}
	}

	if n := s.publisher(); n != nil {
		err := n.Notify(mqtt.Result{
			RunID:     runID,
			Scene:     name,
			Valid:     valid,
			NumSteps:  out.NumSteps,
			TracePath: tracePath,
		})
		if errors.Is(err, mqtt.ErrNotConnected) {
			log.Printf("mqtt: broker not connected, result for %s not published", runID)
		} else if err != nil {
			log.Printf("failed to publish result for %s: %v", runID, err)
		}
	}

	return out, nil
}

func (s *sceneRunner) recorder() runStore {
	if s.store != nil {
		return s.store
	}
	if s.pg != nil {
		return s.pg
	}
	return nil
}

func (s *sceneRunner) publisher() resultNotifier {
	if s.notify != nil {
		return s.notify
	}
	if s.notifier != nil {
		return s.notifier
	}
	return nil
}
