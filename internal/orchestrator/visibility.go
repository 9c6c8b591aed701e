package orchestrator

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/AaronLay10/SentientSim/internal/events"
	"github.com/AaronLay10/SentientSim/internal/physics"
)

// ParkingDistance separates the parking spots of consecutive objects along x.
const ParkingDistance = 20.0

// ParkingPosition moves pos to the off-scene spot reserved for object index.
func ParkingPosition(pos mgl64.Vec3, index int) mgl64.Vec3 {
	return mgl64.Vec3{pos[0] + ParkingDistance*float64(1+index), pos[1], pos[2]}
}

// VisibilityScheduler applies appear and disappear transitions by relocating
// objects in and out of the parking region. Orientation and velocity are kept.
type VisibilityScheduler struct {
	engine physics.Engine
	runID  string
}

// NewVisibilityScheduler creates a scheduler driving engine.
func NewVisibilityScheduler(engine physics.Engine, runID string) *VisibilityScheduler {
	return &VisibilityScheduler{engine: engine, runID: runID}
}

// Apply runs the transition rule for one object at step.
func (s *VisibilityScheduler) Apply(e *EntityState, step int) error {
	st, err := s.engine.BaseState(e.Body)
	if err != nil {
		return fmt.Errorf("object %d: %w", e.Index, err)
	}

	if step == 0 && e.AppearTime != 0 {
		if err := s.relocate(e, st, ParkingPosition(st.Position, e.Index)); err != nil {
			return err
		}
		e.Visibility = VisibilityParkedPre
		s.emit("object.parked", e, step)
	}
	if step != 0 && step == e.AppearTime {
		if err := s.relocate(e, st, e.InitPose.Position); err != nil {
			return err
		}
		e.Visibility = VisibilityVisible
		s.emit("object.appeared", e, step)
	}
	if step == e.DisappearTime {
		if err := s.relocate(e, st, ParkingPosition(st.Position, e.Index)); err != nil {
			return err
		}
		e.Visibility = VisibilityParkedPost
		s.emit("object.parked", e, step)
	}
	return nil
}

func (s *VisibilityScheduler) relocate(e *EntityState, st physics.State, pos mgl64.Vec3) error {
	pose := physics.Pose{Position: pos, Orientation: st.Orientation}
	if err := s.engine.ResetBasePose(e.Body, pose); err != nil {
		return fmt.Errorf("object %d: %w", e.Index, err)
	}
	if err := s.engine.ResetBaseVelocity(e.Body, st.Linear, st.Angular); err != nil {
		return fmt.Errorf("object %d: %w", e.Index, err)
	}
	return nil
}

func (s *VisibilityScheduler) emit(name string, e *EntityState, step int) {
	events.Emit("info", name, "", map[string]interface{}{
		"run_id": s.runID,
		"object": e.Index,
		"step":   step,
		"state":  string(e.Visibility),
	})
}
