package orchestrator

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/AaronLay10/SentientSim/internal/physics"
)

func newTrackedObject(t *testing.T, eng *fakeEngine, index, appear, disappear int) *EntityState {
	t.Helper()
	pose := physics.Pose{Position: mgl64.Vec3{1, 2, 0.3}, Orientation: physics.QuatFromEulerDeg([3]float64{0, 0, 30})}
	id, err := eng.CreateBody(physics.BodyDef{Pose: pose, LinearVelocity: mgl64.Vec3{0, 1, 0}})
	if err != nil {
		t.Fatalf("CreateBody: %v", err)
	}
	vis := VisibilityVisible
	if appear != 0 {
		vis = VisibilityParkedPre
	}
	return &EntityState{Body: id, Index: index, InitPose: pose, AppearTime: appear, DisappearTime: disappear, Visibility: vis}
}

func TestParkingPosition(t *testing.T) {
	got := ParkingPosition(mgl64.Vec3{1, 2, 3}, 2)
	if got != (mgl64.Vec3{61, 2, 3}) {
		t.Errorf("ParkingPosition() = %v", got)
	}
}

func TestVisibilityScheduler_Lifecycle(t *testing.T) {
	eng := newFakeEngine()
	e := newTrackedObject(t, eng, 1, 5, 10)
	s := NewVisibilityScheduler(eng, "test")

	apply := func(step int) physics.State {
		t.Helper()
		if err := s.Apply(e, step); err != nil {
			t.Fatalf("Apply(%d) error = %v", step, err)
		}
		st, _ := eng.BaseState(e.Body)
		return st
	}

	st := apply(0)
	if e.Visibility != VisibilityParkedPre {
		t.Errorf("state at step 0 = %s", e.Visibility)
	}
	if st.Position != (mgl64.Vec3{41, 2, 0.3}) {
		t.Errorf("parked position = %v", st.Position)
	}
	if st.Linear != (mgl64.Vec3{0, 1, 0}) {
		t.Errorf("velocity not preserved: %v", st.Linear)
	}
	if !st.Orientation.ApproxEqual(e.InitPose.Orientation) {
		t.Errorf("orientation not preserved")
	}

	// Moving while parked must not be undone before appear_time.
	_ = eng.ResetBasePose(e.Body, physics.Pose{Position: mgl64.Vec3{41, 2.5, 0.3}, Orientation: st.Orientation})
	st = apply(4)
	if st.Position[1] != 2.5 || e.Visibility != VisibilityParkedPre {
		t.Errorf("step 4 changed the object: %v %s", st.Position, e.Visibility)
	}

	st = apply(5)
	if e.Visibility != VisibilityVisible {
		t.Errorf("state at appear_time = %s", e.Visibility)
	}
	if st.Position != e.InitPose.Position {
		t.Errorf("appear position = %v, want %v", st.Position, e.InitPose.Position)
	}
	if st.Linear != (mgl64.Vec3{0, 1, 0}) {
		t.Errorf("velocity reset on appear: %v", st.Linear)
	}

	_ = eng.ResetBasePose(e.Body, physics.Pose{Position: mgl64.Vec3{1, 2.4, 0.3}, Orientation: st.Orientation})
	st = apply(10)
	if e.Visibility != VisibilityParkedPost {
		t.Errorf("state at disappear_time = %s", e.Visibility)
	}
	if st.Position != (mgl64.Vec3{41, 2.4, 0.3}) {
		t.Errorf("parked-post position = %v", st.Position)
	}
}

func TestVisibilityScheduler_VisibleFromStart(t *testing.T) {
	eng := newFakeEngine()
	e := newTrackedObject(t, eng, 0, 0, NeverDisappear)
	s := NewVisibilityScheduler(eng, "test")

	for step := 0; step < 20; step++ {
		if err := s.Apply(e, step); err != nil {
			t.Fatalf("Apply(%d) error = %v", step, err)
		}
	}
	st, _ := eng.BaseState(e.Body)
	if st.Position != e.InitPose.Position || e.Visibility != VisibilityVisible {
		t.Errorf("object moved or changed state: %v %s", st.Position, e.Visibility)
	}
}
