// Package physics defines the contract between the orchestrator and a rigid-body engine.
//
// The orchestrator never integrates motion or resolves collisions itself; it only
// creates bodies, advances time, reads and overrides state, and inspects contacts
// through Engine.
package physics

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// BodyID is an opaque handle to a body created by an Engine.
type BodyID struct {
	v uint32
}

// MakeBodyID is used by Engine implementations to mint handles.
func MakeBodyID(v uint32) BodyID {
	return BodyID{v: v}
}

// Raw returns the engine-side value of the handle.
func (id BodyID) Raw() uint32 {
	return id.v
}

func (id BodyID) String() string {
	return fmt.Sprintf("body#%d", id.v)
}

// LinkRef addresses one link of a multi-link body.
type LinkRef struct {
	Body  BodyID
	Index int
}

// JointKind is fixed when a link is created.
type JointKind int

const (
	JointRevolute JointKind = iota + 1
	JointPrismatic
)

func (k JointKind) String() string {
	switch k {
	case JointRevolute:
		return "revolute"
	case JointPrismatic:
		return "prismatic"
	}
	return fmt.Sprintf("JointKind(%d)", int(k))
}

// Pose is a world-space position and orientation.
type Pose struct {
	Position    mgl64.Vec3
	Orientation mgl64.Quat
}

// State is a pose together with linear and angular velocity.
type State struct {
	Pose
	Linear  mgl64.Vec3
	Angular mgl64.Vec3
}

// ContactPoint is one contact reported for a body.
// Normal points from the other body toward the queried one. Link is the link
// index on Other, or -1 for its base.
type ContactPoint struct {
	Other    BodyID
	Link     int
	Position mgl64.Vec3
	Normal   mgl64.Vec3
	Distance float64
}

// Material holds surface and damping coefficients.
type Material struct {
	Friction       float64
	Restitution    float64
	LinearDamping  float64
	AngularDamping float64
}

// BodyDef describes a single box-shaped rigid body. Mass 0 makes the body static.
type BodyDef struct {
	Shape          string
	HalfExtents    mgl64.Vec3
	Mass           float64
	Pose           Pose
	LinearVelocity mgl64.Vec3
	Material       Material
}

// LinkDef describes one link of a multi-link body. Position and Orientation are
// relative to the base; CollisionOffset places the collision box in the link frame.
type LinkDef struct {
	Shape           string
	HalfExtents     mgl64.Vec3
	Mass            float64
	Position        mgl64.Vec3
	Orientation     mgl64.Quat
	CollisionOffset mgl64.Vec3
	Joint           JointKind
	Axis            mgl64.Vec3
}

// MultiBodyDef describes a multi-link body whose base is a static ground plane.
type MultiBodyDef struct {
	BasePosition mgl64.Vec3
	Links        []LinkDef
}

// Engine is the rigid-body simulator the orchestrator drives. Implementations
// are not required to be safe for concurrent use.
type Engine interface {
	CreateBody(def BodyDef) (BodyID, error)
	CreateMultiBody(def MultiBodyDef) (BodyID, error)
	Step() error
	BaseState(id BodyID) (State, error)
	ResetBasePose(id BodyID, pose Pose) error
	ResetBaseVelocity(id BodyID, linear, angular mgl64.Vec3) error
	LinkState(link LinkRef) (State, error)
	ResetJointState(link LinkRef, value float64) error
	// ContactPoints reports the contacts found by the most recent Step. It is
	// empty before the first Step; teleports show up after the next one.
	ContactPoints(id BodyID) ([]ContactPoint, error)
	Close() error
}

// QuatFromEuler builds an orientation from roll/pitch/yaw radians about the
// fixed x, y and z axes (yaw applied last).
func QuatFromEuler(euler mgl64.Vec3) mgl64.Quat {
	return mgl64.AnglesToQuat(euler[2], euler[1], euler[0], mgl64.ZYX)
}

// QuatFromEulerDeg is QuatFromEuler for degrees.
func QuatFromEulerDeg(deg [3]float64) mgl64.Quat {
	return QuatFromEuler(mgl64.Vec3{
		mgl64.DegToRad(deg[0]),
		mgl64.DegToRad(deg[1]),
		mgl64.DegToRad(deg[2]),
	})
}

// EulerFromQuat returns roll/pitch/yaw radians, the inverse of QuatFromEuler.
func EulerFromQuat(q mgl64.Quat) mgl64.Vec3 {
	q = q.Normalize()
	w, x, y, z := q.W, q.V[0], q.V[1], q.V[2]

	roll := math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y))

	sinp := 2 * (w*y - z*x)
	var pitch float64
	if sinp >= 1 {
		pitch = math.Pi / 2
	} else if sinp <= -1 {
		pitch = -math.Pi / 2
	} else {
		pitch = math.Asin(sinp)
	}

	yaw := math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z))
	return mgl64.Vec3{roll, pitch, yaw}
}
