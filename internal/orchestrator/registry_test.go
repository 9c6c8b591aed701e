package orchestrator

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/AaronLay10/SentientSim/internal/physics"
)

func vecNear(a, b mgl64.Vec3, tol float64) bool {
	for i := 0; i < 3; i++ {
		if math.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}

func TestDeskLayout(t *testing.T) {
	spec := NewDeskSpec()
	spec.InitPos = Vec3{1, 2, 0}
	spec.Scale = Vec3{1, 0.5, 0.2}

	defs := DeskLayout(spec, [3]float64{1, 1, 1})
	if len(defs) != 5 {
		t.Fatalf("got %d parts, want 5", len(defs))
	}

	legs := []mgl64.Vec3{
		{0.2, 1.7, 0.2},
		{0.2, 2.3, 0.2},
		{1.8, 1.7, 0.2},
		{1.8, 2.3, 0.2},
	}
	for i, want := range legs {
		if !vecNear(defs[i].Pose.Position, want, 1e-12) {
			t.Errorf("leg %d at %v, want %v", i, defs[i].Pose.Position, want)
		}
		if !vecNear(defs[i].HalfExtents, mgl64.Vec3{0.2, 0.2, 0.2}, 1e-12) {
			t.Errorf("leg %d half extents %v", i, defs[i].HalfExtents)
		}
		if defs[i].Mass != 0 {
			t.Errorf("leg %d must be static", i)
		}
	}

	top := defs[4]
	if !vecNear(top.Pose.Position, mgl64.Vec3{1, 2, 0.44}, 1e-12) {
		t.Errorf("top at %v", top.Pose.Position)
	}
	if top.HalfExtents != (mgl64.Vec3{OccluderHalfWidth, 1, 0.5}) {
		t.Errorf("top half extents %v", top.HalfExtents)
	}
	if top.Mass != 0 {
		t.Error("top must be static")
	}
}

func TestBuildRegistry(t *testing.T) {
	eng := newWorld(t, 0.01)

	scene := validScene()
	late := NewObjectSpec("sphere")
	late.AppearTime = 30
	scene.Objects = append(scene.Objects, late)
	scene.Occluders = []OccluderSpec{NewOccluderSpec(), NewOccluderSpec()}
	scene.Occluders[1].Joint = "prismatic"
	scene.Desks = []DeskSpec{NewDeskSpec()}

	reg, err := BuildRegistry(eng, scene, nil)
	if err != nil {
		t.Fatalf("BuildRegistry() error = %v", err)
	}

	if len(reg.Objects()) != 2 {
		t.Fatalf("objects = %d", len(reg.Objects()))
	}
	if reg.Objects()[0].Visibility != VisibilityVisible || reg.Objects()[1].Visibility != VisibilityParkedPre {
		t.Errorf("initial visibility = %s, %s", reg.Objects()[0].Visibility, reg.Objects()[1].Visibility)
	}
	if reg.Objects()[1].Index != 1 || reg.Objects()[1].AppearTime != 30 {
		t.Errorf("object metadata = %+v", reg.Objects()[1])
	}

	links := reg.OccluderLinks()
	if len(links) != 2 {
		t.Fatalf("links = %d", len(links))
	}
	if links[0].Joint != physics.JointRevolute || links[1].Joint != physics.JointPrismatic {
		t.Errorf("joint kinds = %v, %v", links[0].Joint, links[1].Joint)
	}
	for i, l := range links {
		if l.Ref.Body != reg.Ground() || l.Ref.Index != i {
			t.Errorf("link %d ref = %+v", i, l.Ref)
		}
	}

	if len(reg.Desks()) != 1 || len(reg.Desks()[0]) != 5 {
		t.Fatalf("desks = %v", reg.Desks())
	}

	st, err := eng.BaseState(reg.Objects()[0].Body)
	if err != nil {
		t.Fatalf("BaseState: %v", err)
	}
	if st.Position != (mgl64.Vec3{0, 0, 0.3}) {
		t.Errorf("object created at %v", st.Position)
	}
}

func TestBuildRegistry_UnknownShapeCreatesNothing(t *testing.T) {
	eng := newFakeEngine()
	scene := validScene()
	scene.Objects = append(scene.Objects, NewObjectSpec("teapot"))

	_, err := BuildRegistry(eng, scene, nil)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("BuildRegistry() error = %v, want *ConfigError", err)
	}
	if cfgErr.Field != "objects[1].shape" {
		t.Errorf("Field = %q", cfgErr.Field)
	}
	if eng.created != 0 {
		t.Errorf("created %d bodies before failing", eng.created)
	}
}

func TestBuildRegistry_CustomShapeScalesHalfExtents(t *testing.T) {
	eng := newFakeEngine()
	scene := validScene()
	scene.Objects[0].Shape = "bottle"

	shapes := DefaultShapes().With(map[string][3]float64{"bottle": {0.5, 0.5, 2}})
	if _, err := BuildRegistry(eng, scene, shapes); err != nil {
		t.Fatalf("BuildRegistry() error = %v", err)
	}

	half, ok := shapes.halfExtents("bottle", Vec3{0.3, 0.3, 0.3})
	if !ok || !vecNear(half, mgl64.Vec3{0.15, 0.15, 0.6}, 1e-12) {
		t.Errorf("half extents = %v", half)
	}
	if _, ok := DefaultShapes()["bottle"]; ok {
		t.Error("With must not modify the receiver")
	}
}
