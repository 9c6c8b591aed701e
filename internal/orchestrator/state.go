package orchestrator

import "github.com/AaronLay10/SentientSim/internal/physics"

// VisibilityState is where an object is in its appear/disappear lifecycle.
// Transitions only move forward: parked_pre, visible, parked_post.
type VisibilityState string

const (
	VisibilityParkedPre  VisibilityState = "parked_pre"
	VisibilityVisible    VisibilityState = "visible"
	VisibilityParkedPost VisibilityState = "parked_post"
)

// EntityState tracks one object for the duration of a run.
type EntityState struct {
	Body          physics.BodyID
	Index         int
	InitPose      physics.Pose
	AppearTime    int
	DisappearTime int
	Visibility    VisibilityState
}

// OccluderLink is one occluder attached to the shared ground body.
type OccluderLink struct {
	Ref   physics.LinkRef
	Joint physics.JointKind
}
