// Package pattern compiles authored motion patterns into dense per-step arrays.
package pattern

import (
	"errors"
	"fmt"
	"math"
)

// Segment is one (start, end, steps) piece of a joint pattern.
// For revolute joints start and end are degrees; for prismatic joints they are
// linear offsets.
type Segment struct {
	Start float64
	End   float64
	Steps int
}

// GateSegment is one (value, steps) piece of a step pattern.
type GateSegment struct {
	Value bool
	Steps int
}

// Trajectory holds one joint value per simulation step.
type Trajectory []float64

// Gate holds one advance/freeze flag per simulation step.
type Gate []bool

// Policy decides how a compiled array whose length differs from the step count is fitted.
type Policy string

const (
	// PolicyHoldLast pads short arrays with their last value and truncates long ones.
	PolicyHoldLast Policy = "hold_last"
	// PolicyStrict rejects any length mismatch.
	PolicyStrict Policy = "strict"
)

// ErrLengthMismatch is returned under PolicyStrict when a compiled length differs from the step count.
var ErrLengthMismatch = errors.New("pattern length does not match step count")

// ParsePolicy returns the policy named s. Empty selects PolicyStrict, so a
// mismatched duration total is an error unless hold_last is asked for.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyStrict:
		return PolicyStrict, nil
	case PolicyHoldLast:
		return PolicyHoldLast, nil
	}
	return "", fmt.Errorf("unknown pattern policy: %q", s)
}

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// CompileRotation expands revolute segments into radians.
func CompileRotation(segments []Segment) Trajectory {
	return compile(segments, DegToRad)
}

// CompileTranslation expands prismatic segments. Values are used as-is.
func CompileTranslation(segments []Segment) Trajectory {
	return compile(segments, func(v float64) float64 { return v })
}

func compile(segments []Segment, conv func(float64) float64) Trajectory {
	out := make(Trajectory, 0, TotalSteps(segments))
	for _, seg := range segments {
		out = append(out, linspace(conv(seg.Start), conv(seg.End), seg.Steps)...)
	}
	return out
}

// linspace returns n evenly spaced values over [start, stop], both endpoints included.
func linspace(start, stop float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{start}
	}
	out := make([]float64, n)
	step := (stop - start) / float64(n-1)
	for i := 0; i < n-1; i++ {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop
	return out
}

// CompileGate expands a step pattern into one flag per step.
func CompileGate(segments []GateSegment) Gate {
	n := 0
	for _, seg := range segments {
		if seg.Steps > 0 {
			n += seg.Steps
		}
	}
	out := make(Gate, 0, n)
	for _, seg := range segments {
		for i := 0; i < seg.Steps; i++ {
			out = append(out, seg.Value)
		}
	}
	return out
}

// TotalSteps sums the declared segment durations.
func TotalSteps(segments []Segment) int {
	n := 0
	for _, seg := range segments {
		if seg.Steps > 0 {
			n += seg.Steps
		}
	}
	return n
}

// Fit returns a trajectory of exactly numSteps values.
// An empty trajectory becomes all zeros (the joint stays at its rest pose).
func Fit(traj Trajectory, numSteps int, policy Policy) (Trajectory, error) {
	if len(traj) == 0 {
		return make(Trajectory, numSteps), nil
	}
	if len(traj) == numSteps {
		return traj, nil
	}
	if policy == PolicyStrict {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrLengthMismatch, len(traj), numSteps)
	}
	if len(traj) > numSteps {
		return traj[:numSteps:numSteps], nil
	}
	out := make(Trajectory, numSteps)
	copy(out, traj)
	last := traj[len(traj)-1]
	for i := len(traj); i < numSteps; i++ {
		out[i] = last
	}
	return out, nil
}

// FitGate returns a gate of exactly numSteps flags.
// An empty gate advances physics on every step.
func FitGate(gate Gate, numSteps int, policy Policy) (Gate, error) {
	if len(gate) == 0 {
		out := make(Gate, numSteps)
		for i := range out {
			out[i] = true
		}
		return out, nil
	}
	if len(gate) == numSteps {
		return gate, nil
	}
	if policy == PolicyStrict {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrLengthMismatch, len(gate), numSteps)
	}
	if len(gate) > numSteps {
		return gate[:numSteps:numSteps], nil
	}
	out := make(Gate, numSteps)
	copy(out, gate)
	last := gate[len(gate)-1]
	for i := len(gate); i < numSteps; i++ {
		out[i] = last
	}
	return out, nil
}
