package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AaronLay10/SentientSim/internal/config"
	"github.com/AaronLay10/SentientSim/internal/mqtt"
	"github.com/AaronLay10/SentientSim/internal/orchestrator"
	"github.com/AaronLay10/SentientSim/internal/pattern"
	"github.com/AaronLay10/SentientSim/internal/storage/postgres"
	"github.com/AaronLay10/SentientSim/internal/trace"
)

const slideScene = `
objects:
  - shape: cube
    init_pos: [0, 0, 0.3]
    scale: [0.3, 0.3, 0.3]
    init_v: [0, 1, 0]
sim:
  timestep: 0.01
  sim_time: 0.5
`

const strictScene = `
occluders:
  - joint: revolute
    init_pos: [-1, 5, 0]
    joint_pattern: [[0, 90, 100]]
sim:
  timestep: 0.01
  sim_time: 0.5
`

type mockStore struct {
	rows []postgres.RunRow
	err  error
}

func (m *mockStore) RecordRun(run postgres.RunRow) error {
	m.rows = append(m.rows, run)
	return m.err
}

type mockNotifier struct {
	results []mqtt.Result
	err     error
}

func (m *mockNotifier) Notify(r mqtt.Result) error {
	m.results = append(m.results, r)
	return m.err
}

func writeScene(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write scene: %v", err)
	}
	return path
}

func newTestRunner(t *testing.T) (*sceneRunner, *mockStore, *mockNotifier) {
	t.Helper()
	store := &mockStore{}
	notifier := &mockNotifier{}
	return &sceneRunner{
		cfg:     config.Default(),
		policy:  pattern.PolicyHoldLast,
		outDir:  t.TempDir(),
		shapes:  orchestrator.DefaultShapes(),
		dataset: "test",
		store:   store,
		notify:  notifier,
	}, store, notifier
}

func TestRunner_WritesTraceAndReports(t *testing.T) {
	r, store, notifier := newTestRunner(t)
	path := writeScene(t, "slide.yaml", slideScene)

	out, err := r.run(context.Background(), path)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}

	if out.Scene != "slide" {
		t.Errorf("scene = %q, want slide", out.Scene)
	}
	if !out.Valid {
		t.Errorf("expected a valid run, violation = %v", out.Violation)
	}
	if out.NumSteps != 50 {
		t.Errorf("num steps = %d, want 50", out.NumSteps)
	}
	want := filepath.Join(r.outDir, "slide", trace.FileName)
	if out.TracePath != want {
		t.Errorf("trace path = %q, want %q", out.TracePath, want)
	}

	tr, err := trace.Read(out.TracePath)
	if err != nil {
		t.Fatalf("trace.Read() error = %v", err)
	}
	if tr.Len() != 50 {
		t.Errorf("trace has %d frames, want 50", tr.Len())
	}

	if len(store.rows) != 1 || store.rows[0].RunID != out.RunID || store.rows[0].Dataset != "test" {
		t.Errorf("unexpected stored rows %+v", store.rows)
	}
	if len(notifier.results) != 1 {
		t.Fatalf("expected 1 published result, got %d", len(notifier.results))
	}
	res := notifier.results[0]
	if res.RunID != out.RunID || res.Scene != "slide" || !res.Valid || res.NumSteps != 50 || res.TracePath != out.TracePath {
		t.Errorf("unexpected result %+v", res)
	}

	if !strings.HasPrefix(out.verdict(), "slide: valid (50 steps)") {
		t.Errorf("verdict = %q", out.verdict())
	}
}

func TestRunner_CollaboratorFailuresAreNotFatal(t *testing.T) {
	r, store, notifier := newTestRunner(t)
	store.err = errors.New("db down")
	notifier.err = mqtt.ErrNotConnected

	if _, err := r.run(context.Background(), writeScene(t, "slide.yaml", slideScene)); err != nil {
		t.Fatalf("run() error = %v", err)
	}
}

func TestRunner_StrictPolicyMismatch(t *testing.T) {
	r, store, _ := newTestRunner(t)
	r.policy = pattern.PolicyStrict

	_, err := r.run(context.Background(), writeScene(t, "strict.yaml", strictScene))
	if !errors.Is(err, orchestrator.ErrInvalidScene) {
		t.Fatalf("expected ErrInvalidScene, got %v", err)
	}
	if len(store.rows) != 0 {
		t.Error("a rejected scene should not be recorded")
	}
	if _, err := os.Stat(filepath.Join(r.outDir, "strict")); !os.IsNotExist(err) {
		t.Error("a rejected scene should not produce output")
	}
}

func TestRunner_Cancelled(t *testing.T) {
	r, store, notifier := newTestRunner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.run(ctx, writeScene(t, "slide.yaml", slideScene))
	if !errors.Is(err, orchestrator.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled to be wrapped, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(r.outDir, "slide", trace.FileName)); !os.IsNotExist(err) {
		t.Error("a cancelled run should not write a trace")
	}
	if len(store.rows) != 0 || len(notifier.results) != 0 {
		t.Error("a cancelled run should not be recorded or published")
	}
}

func TestRunner_UnknownExtension(t *testing.T) {
	r, _, _ := newTestRunner(t)
	_, err := r.run(context.Background(), writeScene(t, "scene.txt", slideScene))
	var cfgErr *orchestrator.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestRunner_OutputRoot(t *testing.T) {
	r := &sceneRunner{cfg: config.Default()}
	scene := &orchestrator.SceneDescription{}

	if got := r.outputRoot(scene); got != config.DefaultOutputDir {
		t.Errorf("outputRoot() = %q, want %q", got, config.DefaultOutputDir)
	}
	scene.Sim.OutputDir = "scene_out"
	if got := r.outputRoot(scene); got != "scene_out" {
		t.Errorf("outputRoot() = %q, want scene_out", got)
	}
	r.outDir = "flag_out"
	if got := r.outputRoot(scene); got != "flag_out" {
		t.Errorf("outputRoot() = %q, want flag_out", got)
	}
}

func TestVerdict_Invalid(t *testing.T) {
	out := runOutcome{
		Scene:     "crash",
		NumSteps:  100,
		TracePath: "out/crash/motion.json",
		Violation: &orchestrator.Violation{Object: 1, Step: 42, Reason: orchestrator.ReasonMultipleContacts, Detail: "2 contacts"},
	}
	got := out.verdict()
	if !strings.Contains(got, "invalid") || !strings.Contains(got, "step 42") || !strings.Contains(got, "multiple_contacts") {
		t.Errorf("verdict = %q", got)
	}
}
