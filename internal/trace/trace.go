// Package trace holds the per-step motion record handed to the renderer.
package trace

import (
	"github.com/AaronLay10/SentientSim/internal/physics"
)

// Motion is the pose and velocity of one entity at one step.
// Orientation is roll/pitch/yaw in radians.
type Motion struct {
	Location        [3]float64 `json:"location"`
	Orientation     [3]float64 `json:"orientation"`
	Velocity        [3]float64 `json:"velocity"`
	AngularVelocity [3]float64 `json:"angular_velocity"`
}

// Frame is the snapshot of every entity at one step. Desks are nested per
// desk, five parts each: four legs then the top.
type Frame struct {
	Objects   []Motion   `json:"objects"`
	Occluders []Motion   `json:"occluders"`
	Desks     [][]Motion `json:"desks"`
}

// Trace is a complete simulation record.
type Trace struct {
	Timestep float64 `json:"timestep"`
	Motion   []Frame `json:"motion"`
}

// NewTrace preallocates room for numSteps frames.
func NewTrace(timestep float64, numSteps int) *Trace {
	return &Trace{
		Timestep: timestep,
		Motion:   make([]Frame, 0, numSteps),
	}
}

// Append adds one frame.
func (t *Trace) Append(f Frame) {
	t.Motion = append(t.Motion, f)
}

// Len returns the number of recorded frames.
func (t *Trace) Len() int {
	return len(t.Motion)
}

// MotionFromState converts engine state into a trace record.
func MotionFromState(st physics.State) Motion {
	euler := physics.EulerFromQuat(st.Pose.Orientation)
	return Motion{
		Location:        st.Pose.Position,
		Orientation:     euler,
		Velocity:        st.Linear,
		AngularVelocity: st.Angular,
	}
}
