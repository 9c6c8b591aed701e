package orchestrator

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/AaronLay10/SentientSim/internal/physics"
	"github.com/AaronLay10/SentientSim/internal/physics/rigid"
)

// fakeEngine records calls and serves canned state. Only the methods the
// scheduler and oracle touch do anything useful.
type fakeEngine struct {
	states   map[physics.BodyID]physics.State
	contacts map[physics.BodyID][]physics.ContactPoint
	joints   map[physics.LinkRef]float64
	created  int
	steps    int
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		states:   make(map[physics.BodyID]physics.State),
		contacts: make(map[physics.BodyID][]physics.ContactPoint),
		joints:   make(map[physics.LinkRef]float64),
	}
}

func (f *fakeEngine) CreateBody(def physics.BodyDef) (physics.BodyID, error) {
	f.created++
	id := physics.MakeBodyID(uint32(f.created))
	f.states[id] = physics.State{Pose: def.Pose, Linear: def.LinearVelocity}
	return id, nil
}

func (f *fakeEngine) CreateMultiBody(def physics.MultiBodyDef) (physics.BodyID, error) {
	f.created++
	return physics.MakeBodyID(uint32(f.created)), nil
}

func (f *fakeEngine) Step() error {
	f.steps++
	return nil
}

func (f *fakeEngine) BaseState(id physics.BodyID) (physics.State, error) {
	return f.states[id], nil
}

func (f *fakeEngine) ResetBasePose(id physics.BodyID, pose physics.Pose) error {
	st := f.states[id]
	st.Pose = pose
	f.states[id] = st
	return nil
}

func (f *fakeEngine) ResetBaseVelocity(id physics.BodyID, linear, angular mgl64.Vec3) error {
	st := f.states[id]
	st.Linear = linear
	st.Angular = angular
	f.states[id] = st
	return nil
}

func (f *fakeEngine) LinkState(ref physics.LinkRef) (physics.State, error) {
	return physics.State{Pose: physics.Pose{Orientation: mgl64.QuatIdent()}}, nil
}

func (f *fakeEngine) ResetJointState(ref physics.LinkRef, value float64) error {
	f.joints[ref] = value
	return nil
}

func (f *fakeEngine) ContactPoints(id physics.BodyID) ([]physics.ContactPoint, error) {
	return f.contacts[id], nil
}

func (f *fakeEngine) Close() error {
	return nil
}

func newWorld(t *testing.T, timestep float64) *rigid.World {
	t.Helper()
	w, err := rigid.New(rigid.Options{Timestep: timestep, Gravity: mgl64.Vec3{0, 0, -1}})
	if err != nil {
		t.Fatalf("failed to create world: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w
}
