package orchestrator

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/AaronLay10/SentientSim/internal/physics"
)

// ShapeCatalog maps a shape id to the base half extents of its collision box.
// Object half extents are the element-wise product of these and the entity's scale.
type ShapeCatalog map[string][3]float64

// DefaultShapes returns the built-in primitive shapes.
func DefaultShapes() ShapeCatalog {
	return ShapeCatalog{
		"cube":     {1, 1, 1},
		"sphere":   {1, 1, 1},
		"cylinder": {1, 1, 1},
		"cone":     {1, 1, 1},
	}
}

// With returns a copy of c extended (or overridden) by extra.
func (c ShapeCatalog) With(extra map[string][3]float64) ShapeCatalog {
	out := make(ShapeCatalog, len(c)+len(extra))
	for k, v := range c {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func (c ShapeCatalog) halfExtents(shape string, scale Vec3) (mgl64.Vec3, bool) {
	dims, ok := c[shape]
	if !ok {
		return mgl64.Vec3{}, false
	}
	return mgl64.Vec3{scale[0] * dims[0], scale[1] * dims[1], scale[2] * dims[2]}, true
}

// Registry owns every engine handle created for one run together with the
// lifecycle metadata of the tracked objects.
type Registry struct {
	objects []*EntityState
	ground  physics.BodyID
	links   []OccluderLink
	desks   [][]physics.BodyID
}

// BuildRegistry creates all bodies of scene in engine. The scene must already
// be valid. Shapes are checked before anything is created.
func BuildRegistry(engine physics.Engine, scene *SceneDescription, shapes ShapeCatalog) (*Registry, error) {
	if shapes == nil {
		shapes = DefaultShapes()
	}
	if err := checkShapes(scene, shapes); err != nil {
		return nil, err
	}

	r := &Registry{}
	for i, spec := range scene.Objects {
		half, _ := shapes.halfExtents(spec.Shape, spec.Scale)
		pose := physics.Pose{
			Position:    mgl64.Vec3(spec.InitPos),
			Orientation: physics.QuatFromEulerDeg(spec.InitOrn),
		}
		id, err := engine.CreateBody(physics.BodyDef{
			Shape:          spec.Shape,
			HalfExtents:    half,
			Mass:           spec.Mass,
			Pose:           pose,
			LinearVelocity: mgl64.Vec3(spec.InitV),
			Material: physics.Material{
				Friction:       spec.LatFric,
				Restitution:    spec.Restitution,
				LinearDamping:  spec.LinDamp,
				AngularDamping: spec.AngularDamp,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create object %d: %w", i, err)
		}

		visibility := VisibilityVisible
		if spec.AppearTime != 0 {
			visibility = VisibilityParkedPre
		}
		r.objects = append(r.objects, &EntityState{
			Body:          id,
			Index:         i,
			InitPose:      pose,
			AppearTime:    spec.AppearTime,
			DisappearTime: spec.DisappearTime,
			Visibility:    visibility,
		})
	}

	cube := shapes["cube"]
	for i, spec := range scene.Desks {
		parts, err := createDesk(engine, spec, cube)
		if err != nil {
			return nil, fmt.Errorf("failed to create desk %d: %w", i, err)
		}
		r.desks = append(r.desks, parts)
	}

	def := physics.MultiBodyDef{}
	for i, spec := range scene.Occluders {
		joint, err := spec.JointKind()
		if err != nil {
			return nil, &ConfigError{Field: fmt.Sprintf("occluders[%d].joint", i), Reason: err.Error()}
		}
		def.Links = append(def.Links, physics.LinkDef{
			Shape:           spec.Shape,
			HalfExtents:     mgl64.Vec3(spec.Scale),
			Mass:            spec.Mass,
			Position:        mgl64.Vec3(spec.InitPos),
			Orientation:     physics.QuatFromEulerDeg(spec.InitOrn),
			CollisionOffset: mgl64.Vec3{-spec.Scale[0], 0, spec.Scale[2]},
			Joint:           joint,
			Axis:            mgl64.Vec3{0, 1, 0},
		})
	}
	ground, err := engine.CreateMultiBody(def)
	if err != nil {
		return nil, fmt.Errorf("failed to create ground and occluders: %w", err)
	}
	r.ground = ground
	for i, l := range def.Links {
		r.links = append(r.links, OccluderLink{
			Ref:   physics.LinkRef{Body: ground, Index: i},
			Joint: l.Joint,
		})
	}

	return r, nil
}

func checkShapes(scene *SceneDescription, shapes ShapeCatalog) error {
	for i, spec := range scene.Specs() {
		var shape, field string
		switch v := spec.(type) {
		case ObjectSpec:
			shape, field = v.Shape, fmt.Sprintf("objects[%d].shape", i)
		case OccluderSpec:
			shape, field = v.Shape, fmt.Sprintf("occluders[%d].shape", i-len(scene.Objects))
		case DeskSpec:
			shape, field = "cube", fmt.Sprintf("desks[%d]", i-len(scene.Objects)-len(scene.Occluders))
		}
		if _, ok := shapes[shape]; !ok {
			return &ConfigError{Field: field, Reason: fmt.Sprintf("unknown shape %q", shape)}
		}
	}
	return nil
}

// DeskLayout returns the five static boxes of a desk in leg(-,-), leg(-,+),
// leg(+,-), leg(+,+), top order. cube holds the base half extents of the cube shape.
func DeskLayout(spec DeskSpec, cube [3]float64) []physics.BodyDef {
	x, y, z := spec.InitPos[0], spec.InitPos[1], spec.InitPos[2]
	sx, sy, sz := spec.Scale[0], spec.Scale[1], spec.Scale[2]
	scaled := func(a, b, c float64) mgl64.Vec3 {
		return mgl64.Vec3{a * cube[0], b * cube[1], c * cube[2]}
	}
	material := physics.Material{Restitution: 0.9}

	defs := make([]physics.BodyDef, 0, 5)
	for _, i := range []float64{-1, 1} {
		for _, j := range []float64{-1, 1} {
			defs = append(defs, physics.BodyDef{
				Shape:       "cube",
				HalfExtents: scaled(sz, sz, sz),
				Pose: physics.Pose{
					Position:    mgl64.Vec3{x + i*(sx-sz), y + j*(sy-sz), z + sz},
					Orientation: mgl64.QuatIdent(),
				},
				Material: material,
			})
		}
	}
	defs = append(defs, physics.BodyDef{
		Shape:       "cube",
		HalfExtents: scaled(OccluderHalfWidth, sx, sy),
		Pose: physics.Pose{
			Position:    mgl64.Vec3{x, y, z + 2*sz + OccluderHalfWidth},
			Orientation: physics.QuatFromEulerDeg([3]float64{90, 90, 0}),
		},
		Material: material,
	})
	return defs
}

func createDesk(engine physics.Engine, spec DeskSpec, cube [3]float64) ([]physics.BodyID, error) {
	var parts []physics.BodyID
	for _, def := range DeskLayout(spec, cube) {
		id, err := engine.CreateBody(def)
		if err != nil {
			return nil, err
		}
		parts = append(parts, id)
	}
	return parts, nil
}

// Objects returns the tracked objects in declaration order.
func (r *Registry) Objects() []*EntityState {
	return r.objects
}

// Ground returns the shared ground body the occluders hang from.
func (r *Registry) Ground() physics.BodyID {
	return r.ground
}

// OccluderLinks returns the occluder links in declaration order.
func (r *Registry) OccluderLinks() []OccluderLink {
	return r.links
}

// Desks returns the five part handles of each desk in declaration order.
func (r *Registry) Desks() [][]physics.BodyID {
	return r.desks
}
