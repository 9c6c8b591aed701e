package orchestrator

import (
	"fmt"

	"github.com/AaronLay10/SentientSim/internal/pattern"
	"github.com/AaronLay10/SentientSim/internal/physics"
)

// JointActuator writes the scripted joint value of every occluder each step,
// overriding whatever the dynamics would have done.
type JointActuator struct {
	engine       physics.Engine
	links        []OccluderLink
	trajectories []pattern.Trajectory
}

// NewJointActuator pairs each link with its trajectory. Every trajectory must
// already be fitted to the run length.
func NewJointActuator(engine physics.Engine, links []OccluderLink, trajectories []pattern.Trajectory) (*JointActuator, error) {
	if len(links) != len(trajectories) {
		return nil, fmt.Errorf("%d occluder links but %d trajectories", len(links), len(trajectories))
	}
	return &JointActuator{engine: engine, links: links, trajectories: trajectories}, nil
}

// Apply sets every joint to its value at step.
func (a *JointActuator) Apply(step int) error {
	for i, l := range a.links {
		traj := a.trajectories[i]
		if step < 0 || step >= len(traj) {
			return fmt.Errorf("occluder %d: step %d outside trajectory of length %d", i, step, len(traj))
		}
		if err := a.engine.ResetJointState(l.Ref, traj[step]); err != nil {
			return fmt.Errorf("occluder %d: %w", i, err)
		}
	}
	return nil
}
