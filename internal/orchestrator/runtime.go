package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/AaronLay10/SentientSim/internal/events"
	"github.com/AaronLay10/SentientSim/internal/pattern"
	"github.com/AaronLay10/SentientSim/internal/physics"
	"github.com/AaronLay10/SentientSim/internal/trace"
)

// ErrCancelled wraps the context error of an interrupted run.
var ErrCancelled = errors.New("simulation cancelled")

// Options tune a Runtime.
type Options struct {
	// Policy fits joint and step patterns to the run length. Empty means strict.
	Policy pattern.Policy
	// RunID tags every event emitted by the run.
	RunID string
	// Scene names the run in events.
	Scene string
	// Shapes resolves object shapes. Nil means DefaultShapes.
	Shapes ShapeCatalog
}

// Runtime drives one simulation run. It is single use and not safe for
// concurrent use.
type Runtime struct {
	engine    physics.Engine
	scene     *SceneDescription
	opts      Options
	numSteps  int
	registry  *Registry
	scheduler *VisibilityScheduler
	actuator  *JointActuator
	oracle    *ValidityOracle
	gate      pattern.Gate

	valid     bool
	violation *Violation
	ran       bool
}

// NewRuntime validates scene, creates its bodies in engine and compiles every
// pattern. Configuration problems are returned as *ConfigError before any
// step is taken.
func NewRuntime(engine physics.Engine, scene *SceneDescription, opts Options) (*Runtime, error) {
	if engine == nil {
		return nil, errors.New("nil physics engine")
	}
	if err := scene.Validate(); err != nil {
		return nil, err
	}
	if opts.Policy == "" {
		opts.Policy = pattern.PolicyStrict
	}

	r := &Runtime{
		engine:   engine,
		scene:    scene,
		opts:     opts,
		numSteps: scene.Sim.NumSteps(),
		valid:    true,
	}

	trajectories := make([]pattern.Trajectory, len(scene.Occluders))
	for i, spec := range scene.Occluders {
		compiled := spec.Trajectory()
		fitted, err := pattern.Fit(compiled, r.numSteps, opts.Policy)
		if err != nil {
			return nil, &ConfigError{Field: fmt.Sprintf("occluders[%d].joint_pattern", i), Reason: err.Error()}
		}
		if len(compiled) != 0 && len(compiled) != r.numSteps {
			r.emitEvent("warn", "pattern.fitted", map[string]interface{}{
				"occluder": i,
				"declared": len(compiled),
				"steps":    r.numSteps,
				"policy":   string(opts.Policy),
			})
		}
		trajectories[i] = fitted
	}

	declared := pattern.CompileGate(scene.Sim.StepPattern)
	gate, err := pattern.FitGate(declared, r.numSteps, opts.Policy)
	if err != nil {
		return nil, &ConfigError{Field: "sim.step_pattern", Reason: err.Error()}
	}
	if len(declared) != 0 && len(declared) != r.numSteps {
		r.emitEvent("warn", "pattern.fitted", map[string]interface{}{
			"step_pattern": true,
			"declared":     len(declared),
			"steps":        r.numSteps,
			"policy":       string(opts.Policy),
		})
	}
	r.gate = gate

	registry, err := BuildRegistry(engine, scene, opts.Shapes)
	if err != nil {
		return nil, err
	}
	r.registry = registry

	actuator, err := NewJointActuator(engine, registry.OccluderLinks(), trajectories)
	if err != nil {
		return nil, err
	}
	r.actuator = actuator
	r.scheduler = NewVisibilityScheduler(engine, opts.RunID)
	r.oracle = NewValidityOracle(engine)

	return r, nil
}

// NumSteps returns the number of frames Run records.
func (r *Runtime) NumSteps() int {
	return r.numSteps
}

// Registry exposes the bodies created for the run.
func (r *Runtime) Registry() *Registry {
	return r.registry
}

// Violation returns the first violation seen, or nil if the run stayed valid.
func (r *Runtime) Violation() *Violation {
	return r.violation
}

// Run executes every step and returns the trace and the validity verdict.
// An invalid scenario still runs to completion. When ctx is cancelled the run
// stops before the next step and returns an error wrapping ErrCancelled and no trace.
func (r *Runtime) Run(ctx context.Context) (*trace.Trace, bool, error) {
	if r.ran {
		return nil, false, errors.New("runtime already used")
	}
	r.ran = true

	r.emitEvent("info", "sim.started", map[string]interface{}{
		"scene":     r.opts.Scene,
		"num_steps": r.numSteps,
		"timestep":  r.scene.Sim.Timestep,
		"objects":   len(r.scene.Objects),
		"occluders": len(r.scene.Occluders),
		"desks":     len(r.scene.Desks),
	})

	tr := trace.NewTrace(r.scene.Sim.Timestep, r.numSteps)
	for step := 0; step < r.numSteps; step++ {
		if err := ctx.Err(); err != nil {
			r.emitEvent("warn", "sim.cancelled", map[string]interface{}{"step": step})
			return nil, false, fmt.Errorf("%w at step %d: %w", ErrCancelled, step, err)
		}
		if err := r.step(step, tr); err != nil {
			r.emitEvent("error", "sim.failed", map[string]interface{}{
				"step":  step,
				"error": err.Error(),
			})
			return nil, false, fmt.Errorf("step %d: %w", step, err)
		}
	}

	r.emitEvent("info", "sim.completed", map[string]interface{}{
		"num_steps": r.numSteps,
		"valid":     r.valid,
	})
	return tr, r.valid, nil
}

func (r *Runtime) step(step int, tr *trace.Trace) error {
	objects := r.registry.Objects()

	if err := r.checkValidity(step); err != nil {
		return err
	}
	for _, e := range objects {
		if err := r.scheduler.Apply(e, step); err != nil {
			return err
		}
	}
	if err := r.actuator.Apply(step); err != nil {
		return err
	}

	frame, err := r.capture()
	if err != nil {
		return err
	}
	tr.Append(frame)

	if err := r.checkValidity(step); err != nil {
		return err
	}
	if r.gate[step] {
		if err := r.engine.Step(); err != nil {
			return fmt.Errorf("physics step: %w", err)
		}
	}
	return nil
}

func (r *Runtime) checkValidity(step int) error {
	v, err := r.oracle.Check(r.registry.Objects(), step)
	if err != nil {
		return err
	}
	if v == nil || !r.valid {
		return nil
	}
	r.valid = false
	r.violation = v
	r.emitEvent("warn", "scenario.invalid", map[string]interface{}{
		"step":   v.Step,
		"object": v.Object,
		"reason": v.Reason,
		"detail": v.Detail,
	})
	return nil
}

func (r *Runtime) capture() (trace.Frame, error) {
	frame := trace.Frame{
		Objects:   make([]trace.Motion, 0, len(r.registry.Objects())),
		Occluders: make([]trace.Motion, 0, len(r.registry.OccluderLinks())),
		Desks:     make([][]trace.Motion, 0, len(r.registry.Desks())),
	}

	for _, e := range r.registry.Objects() {
		st, err := r.engine.BaseState(e.Body)
		if err != nil {
			return frame, fmt.Errorf("object %d state: %w", e.Index, err)
		}
		frame.Objects = append(frame.Objects, trace.MotionFromState(st))
	}

	for i, l := range r.registry.OccluderLinks() {
		st, err := r.engine.LinkState(l.Ref)
		if err != nil {
			return frame, fmt.Errorf("occluder %d state: %w", i, err)
		}
		frame.Occluders = append(frame.Occluders, occluderMotion(st))
	}

	for i, parts := range r.registry.Desks() {
		desk := make([]trace.Motion, 0, len(parts))
		for _, id := range parts {
			st, err := r.engine.BaseState(id)
			if err != nil {
				return frame, fmt.Errorf("desk %d state: %w", i, err)
			}
			desk = append(desk, trace.MotionFromState(st))
		}
		frame.Desks = append(frame.Desks, desk)
	}

	return frame, nil
}

// occluderMotion lifts a panel tilted to negative pitch by the height its
// thickness gains, which is where the renderer expects the panel origin.
func occluderMotion(st physics.State) trace.Motion {
	m := trace.MotionFromState(st)
	if pitch := m.Orientation[1]; pitch < 0 {
		m.Location[2] += 2 * math.Sin(-pitch) * OccluderHalfWidth
	}
	return m
}

func (r *Runtime) emitEvent(level, name string, fields map[string]interface{}) {
	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["run_id"] = r.opts.RunID
	events.Emit(level, name, "", fields)
}
