// Package rigid is a small deterministic rigid-body engine implementing physics.Engine.
//
// Every collider is an oriented box tested with the separating-axis theorem,
// except the base of a multi-body, which is an infinite ground plane. Links are
// driven kinematically through ResetJointState and never respond to contacts.
// Contacts are reported as of the last Step.
package rigid

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/AaronLay10/SentientSim/internal/physics"
)

const (
	// DefaultContactMargin is the distance under which two surfaces count as touching.
	DefaultContactMargin = 2e-4

	solverIterations = 4

	// Static surfaces (ground, links) use these coefficients.
	groundFriction    = 0.5
	groundRestitution = 0.0
)

// ErrUnknownBody is returned for handles the world did not create.
var ErrUnknownBody = errors.New("unknown body")

// Options configures a World.
type Options struct {
	Timestep      float64
	Gravity       mgl64.Vec3
	ContactMargin float64
}

type bodyKind int

const (
	kindDynamic bodyKind = iota
	kindStatic
	kindMulti
)

type body struct {
	id      physics.BodyID
	kind    bodyKind
	half    mgl64.Vec3
	invMass float64
	pose    physics.Pose
	lin     mgl64.Vec3
	ang     mgl64.Vec3
	mat     physics.Material

	// multi-body only
	links []*link
}

type link struct {
	def   physics.LinkDef
	value float64
}

// World implements physics.Engine. It is not safe for concurrent use.
type World struct {
	opts   Options
	bodies []*body
	closed bool

	// contacts found at the end of the last Step; nil before the first one
	lastContacts map[physics.BodyID][]physics.ContactPoint
}

// New creates an empty world.
func New(opts Options) (*World, error) {
	if opts.Timestep <= 0 {
		return nil, fmt.Errorf("timestep must be positive, got %v", opts.Timestep)
	}
	if opts.ContactMargin <= 0 {
		opts.ContactMargin = DefaultContactMargin
	}
	return &World{opts: opts}, nil
}

var _ physics.Engine = (*World)(nil)

func (w *World) add(b *body) physics.BodyID {
	b.id = physics.MakeBodyID(uint32(len(w.bodies) + 1))
	w.bodies = append(w.bodies, b)
	return b.id
}

func (w *World) lookup(id physics.BodyID) (*body, error) {
	if w.closed {
		return nil, errors.New("world is closed")
	}
	i := int(id.Raw()) - 1
	if i < 0 || i >= len(w.bodies) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBody, id)
	}
	return w.bodies[i], nil
}

// CreateBody adds a box body. Mass 0 makes it static.
func (w *World) CreateBody(def physics.BodyDef) (physics.BodyID, error) {
	if w.closed {
		return physics.BodyID{}, errors.New("world is closed")
	}
	for i := 0; i < 3; i++ {
		if def.HalfExtents[i] <= 0 {
			return physics.BodyID{}, fmt.Errorf("shape %q: half extents must be positive, got %v", def.Shape, def.HalfExtents)
		}
	}
	if def.Mass < 0 {
		return physics.BodyID{}, fmt.Errorf("shape %q: mass must not be negative, got %v", def.Shape, def.Mass)
	}
	b := &body{
		kind: kindStatic,
		half: def.HalfExtents,
		pose: normalized(def.Pose),
		mat:  def.Material,
	}
	if def.Mass > 0 {
		b.kind = kindDynamic
		b.invMass = 1 / def.Mass
		b.lin = def.LinearVelocity
	}
	return w.add(b), nil
}

// CreateMultiBody adds a ground-plane base with kinematic links.
func (w *World) CreateMultiBody(def physics.MultiBodyDef) (physics.BodyID, error) {
	if w.closed {
		return physics.BodyID{}, errors.New("world is closed")
	}
	b := &body{
		kind: kindMulti,
		pose: physics.Pose{Position: def.BasePosition, Orientation: mgl64.QuatIdent()},
		mat:  physics.Material{Friction: groundFriction, Restitution: groundRestitution},
	}
	for i, ld := range def.Links {
		if ld.Joint != physics.JointRevolute && ld.Joint != physics.JointPrismatic {
			return physics.BodyID{}, fmt.Errorf("link %d: unsupported joint kind %v", i, ld.Joint)
		}
		if ld.Orientation.Len() == 0 {
			ld.Orientation = mgl64.QuatIdent()
		}
		if ld.Axis.Len() == 0 {
			ld.Axis = mgl64.Vec3{0, 1, 0}
		}
		ld.Axis = ld.Axis.Normalize()
		b.links = append(b.links, &link{def: ld})
	}
	return w.add(b), nil
}

// Step advances the world by one timestep.
func (w *World) Step() error {
	if w.closed {
		return errors.New("world is closed")
	}
	dt := w.opts.Timestep
	for _, b := range w.bodies {
		if b.kind != kindDynamic {
			continue
		}
		b.lin = b.lin.Add(w.opts.Gravity.Mul(dt))
		b.lin = b.lin.Mul(dampFactor(b.mat.LinearDamping, dt))
		b.ang = b.ang.Mul(dampFactor(b.mat.AngularDamping, dt))
		b.pose.Position = b.pose.Position.Add(b.lin.Mul(dt))
		b.pose.Orientation = integrateOrientation(b.pose.Orientation, b.ang, dt)
	}
	for iter := 0; iter < solverIterations; iter++ {
		for _, b := range w.bodies {
			if b.kind != kindDynamic {
				continue
			}
			for _, c := range w.contacts(b) {
				w.resolve(b, c)
			}
		}
	}
	w.snapshotContacts()
	return nil
}

// snapshotContacts records the touching pairs of every body after the solver.
// A multi-body sees each contact from the other side with the normal flipped.
func (w *World) snapshotContacts() {
	snap := make(map[physics.BodyID][]physics.ContactPoint, len(w.bodies))
	for _, b := range w.bodies {
		for _, c := range w.contacts(b) {
			snap[b.id] = append(snap[b.id], c.point())
			if c.other.kind == kindMulti {
				p := c.point()
				p.Other = b.id
				p.Link = -1
				p.Normal = p.Normal.Mul(-1)
				snap[c.other.id] = append(snap[c.other.id], p)
			}
		}
	}
	w.lastContacts = snap
}

// BaseState returns the pose and velocity of a body's base.
func (w *World) BaseState(id physics.BodyID) (physics.State, error) {
	b, err := w.lookup(id)
	if err != nil {
		return physics.State{}, err
	}
	return physics.State{Pose: b.pose, Linear: b.lin, Angular: b.ang}, nil
}

// ResetBasePose teleports a body.
func (w *World) ResetBasePose(id physics.BodyID, pose physics.Pose) error {
	b, err := w.lookup(id)
	if err != nil {
		return err
	}
	b.pose = normalized(pose)
	return nil
}

// ResetBaseVelocity overrides a dynamic body's velocity. Static bodies ignore it.
func (w *World) ResetBaseVelocity(id physics.BodyID, linear, angular mgl64.Vec3) error {
	b, err := w.lookup(id)
	if err != nil {
		return err
	}
	if b.kind == kindDynamic {
		b.lin = linear
		b.ang = angular
	}
	return nil
}

// LinkState returns the world pose of a link's collision box. Kinematic links
// report zero velocity.
func (w *World) LinkState(ref physics.LinkRef) (physics.State, error) {
	b, l, err := w.link(ref)
	if err != nil {
		return physics.State{}, err
	}
	center, orn := linkPose(b, l)
	return physics.State{Pose: physics.Pose{Position: center, Orientation: orn}}, nil
}

// ResetJointState sets a link's joint value (radians or metres).
func (w *World) ResetJointState(ref physics.LinkRef, value float64) error {
	_, l, err := w.link(ref)
	if err != nil {
		return err
	}
	l.value = value
	return nil
}

// ContactPoints lists the contacts of a body found by the last Step, one per
// touching pair. It is empty until the world has been stepped, and poses reset
// since then are not reflected until the next Step.
func (w *World) ContactPoints(id physics.BodyID) ([]physics.ContactPoint, error) {
	if _, err := w.lookup(id); err != nil {
		return nil, err
	}
	cached := w.lastContacts[id]
	if len(cached) == 0 {
		return nil, nil
	}
	out := make([]physics.ContactPoint, len(cached))
	copy(out, cached)
	return out, nil
}

// Close releases the world. Further calls fail.
func (w *World) Close() error {
	w.closed = true
	w.bodies = nil
	w.lastContacts = nil
	return nil
}

func (w *World) link(ref physics.LinkRef) (*body, *link, error) {
	b, err := w.lookup(ref.Body)
	if err != nil {
		return nil, nil, err
	}
	if b.kind != kindMulti || ref.Index < 0 || ref.Index >= len(b.links) {
		return nil, nil, fmt.Errorf("%w: link %d of %s", ErrUnknownBody, ref.Index, ref.Body)
	}
	return b, b.links[ref.Index], nil
}

func dampFactor(damping, dt float64) float64 {
	if damping <= 0 {
		return 1
	}
	if damping >= 1 {
		return 0
	}
	return math.Pow(1-damping, dt)
}

func integrateOrientation(q mgl64.Quat, omega mgl64.Vec3, dt float64) mgl64.Quat {
	if omega.Len() == 0 {
		return q
	}
	spin := mgl64.Quat{W: 0, V: omega}.Mul(q).Scale(0.5 * dt)
	return q.Add(spin).Normalize()
}

func normalized(p physics.Pose) physics.Pose {
	if p.Orientation.Len() == 0 {
		p.Orientation = mgl64.QuatIdent()
	} else {
		p.Orientation = p.Orientation.Normalize()
	}
	return p
}

// linkPose returns the collision-box center and orientation of a link in world space.
func linkPose(base *body, l *link) (mgl64.Vec3, mgl64.Quat) {
	origin := base.pose.Position.Add(l.def.Position)
	orn := l.def.Orientation
	switch l.def.Joint {
	case physics.JointRevolute:
		orn = orn.Mul(mgl64.QuatRotate(l.value, l.def.Axis)).Normalize()
	case physics.JointPrismatic:
		origin = origin.Add(orn.Rotate(l.def.Axis.Mul(l.value)))
	}
	return origin.Add(orn.Rotate(l.def.CollisionOffset)), orn
}
