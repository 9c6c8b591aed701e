package orchestrator

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"

	"github.com/AaronLay10/SentientSim/internal/pattern"
	"github.com/AaronLay10/SentientSim/internal/physics"
)

// OccluderHalfWidth is the half thickness of occluder panels and desk tops.
const OccluderHalfWidth = 0.04

// NeverDisappear is the disappear_time of objects that stay for the whole run.
const NeverDisappear = 100000

// ErrInvalidScene is wrapped by every ConfigError.
var ErrInvalidScene = errors.New("invalid scene")

// ConfigError reports a malformed scene description. It is returned before
// any physics step is taken.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid scene: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidScene
}

// Vec3 is an (x, y, z) triple as written in scene files.
type Vec3 [3]float64

// SceneDescription is the declarative input of one simulation run.
type SceneDescription struct {
	Objects   []ObjectSpec   `json:"objects" yaml:"objects"`
	Occluders []OccluderSpec `json:"occluders,omitempty" yaml:"occluders,omitempty"`
	Desks     []DeskSpec     `json:"desks,omitempty" yaml:"desks,omitempty"`
	Sim       SimParams      `json:"sim" yaml:"sim"`
}

// SimParams are the global run parameters.
type SimParams struct {
	Timestep    float64               `json:"timestep,omitempty" yaml:"timestep,omitempty"`
	SimTime     float64               `json:"sim_time" yaml:"sim_time"`
	StepPattern []pattern.GateSegment `json:"step_pattern,omitempty" yaml:"step_pattern,omitempty"`
	Preview     bool                  `json:"preview,omitempty" yaml:"preview,omitempty"`
	OutputDir   string                `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`
}

// NumSteps returns floor(sim_time / timestep). A tiny epsilon keeps exact
// ratios such as 1.0/0.01 from rounding down.
func (p SimParams) NumSteps() int {
	if p.Timestep <= 0 || p.SimTime <= 0 {
		return 0
	}
	return int(math.Floor(p.SimTime/p.Timestep + 1e-9))
}

// EntitySpec is implemented only by ObjectSpec, OccluderSpec and DeskSpec.
type EntitySpec interface {
	Kind() string
	entitySpec()
}

// ObjectSpec is a tracked dynamic body.
type ObjectSpec struct {
	Shape         string  `json:"shape" yaml:"shape"`
	Mass          float64 `json:"mass" yaml:"mass"`
	InitPos       Vec3    `json:"init_pos" yaml:"init_pos"`
	InitOrn       Vec3    `json:"init_orn" yaml:"init_orn"`
	Scale         Vec3    `json:"scale" yaml:"scale"`
	InitV         Vec3    `json:"init_v" yaml:"init_v"`
	LatFric       float64 `json:"lat_fric" yaml:"lat_fric"`
	Restitution   float64 `json:"restitution" yaml:"restitution"`
	LinDamp       float64 `json:"lin_damp" yaml:"lin_damp"`
	AngularDamp   float64 `json:"angular_damp" yaml:"angular_damp"`
	AppearTime    int     `json:"appear_time" yaml:"appear_time"`
	DisappearTime int     `json:"disappear_time" yaml:"disappear_time"`
}

// NewObjectSpec returns an object of the given shape with every default filled in.
func NewObjectSpec(shape string) ObjectSpec {
	return ObjectSpec{
		Shape:         shape,
		Mass:          1,
		InitPos:       Vec3{0, 0, 1},
		Scale:         Vec3{1, 1, 1},
		Restitution:   0.9,
		DisappearTime: NeverDisappear,
	}
}

func (ObjectSpec) Kind() string { return "object" }
func (ObjectSpec) entitySpec()  {}

func (o *ObjectSpec) UnmarshalJSON(b []byte) error {
	type plain ObjectSpec
	v := plain(NewObjectSpec(""))
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*o = ObjectSpec(v)
	return nil
}

func (o *ObjectSpec) UnmarshalYAML(node *yaml.Node) error {
	type plain ObjectSpec
	v := plain(NewObjectSpec(""))
	if err := node.Decode(&v); err != nil {
		return err
	}
	*o = ObjectSpec(v)
	return nil
}

// OccluderSpec is a scripted panel attached to the ground by one joint.
type OccluderSpec struct {
	Shape        string            `json:"shape" yaml:"shape"`
	Joint        string            `json:"joint" yaml:"joint"`
	Mass         float64           `json:"mass" yaml:"mass"`
	InitPos      Vec3              `json:"init_pos" yaml:"init_pos"`
	InitOrn      Vec3              `json:"init_orn" yaml:"init_orn"`
	Scale        Vec3              `json:"scale" yaml:"scale"`
	JointPattern []pattern.Segment `json:"joint_pattern,omitempty" yaml:"joint_pattern,omitempty"`
}

// NewOccluderSpec returns a revolute cube occluder with every default filled in.
func NewOccluderSpec() OccluderSpec {
	return OccluderSpec{
		Shape: "cube",
		Joint: "revolute",
		Mass:  1,
		Scale: Vec3{0.2, 4, 2},
	}
}

func (OccluderSpec) Kind() string { return "occluder" }
func (OccluderSpec) entitySpec()  {}

func (o *OccluderSpec) UnmarshalJSON(b []byte) error {
	type plain OccluderSpec
	v := plain(NewOccluderSpec())
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*o = OccluderSpec(v)
	return nil
}

func (o *OccluderSpec) UnmarshalYAML(node *yaml.Node) error {
	type plain OccluderSpec
	v := plain(NewOccluderSpec())
	if err := node.Decode(&v); err != nil {
		return err
	}
	*o = OccluderSpec(v)
	return nil
}

// JointKind maps the joint name onto the engine's joint kind.
func (o OccluderSpec) JointKind() (physics.JointKind, error) {
	switch o.Joint {
	case "revolute":
		return physics.JointRevolute, nil
	case "prismatic":
		return physics.JointPrismatic, nil
	}
	return 0, fmt.Errorf("unsupported joint kind %q", o.Joint)
}

// Trajectory compiles the joint pattern: degrees to radians for revolute
// joints, raw offsets for prismatic ones.
func (o OccluderSpec) Trajectory() pattern.Trajectory {
	if o.Joint == "prismatic" {
		return pattern.CompileTranslation(o.JointPattern)
	}
	return pattern.CompileRotation(o.JointPattern)
}

// DeskSpec is a static table: Scale[0] and Scale[1] are the half width and
// depth of the top, Scale[2] the half height of each leg.
type DeskSpec struct {
	Mass    float64 `json:"mass" yaml:"mass"`
	InitPos Vec3    `json:"init_pos" yaml:"init_pos"`
	InitOrn Vec3    `json:"init_orn" yaml:"init_orn"`
	Scale   Vec3    `json:"scale" yaml:"scale"`
}

// NewDeskSpec returns a desk with every default filled in. Mass is accepted
// for compatibility; desks are always static.
func NewDeskSpec() DeskSpec {
	return DeskSpec{
		Mass:  100,
		Scale: Vec3{1, 1, 1},
	}
}

func (DeskSpec) Kind() string { return "desk" }
func (DeskSpec) entitySpec()  {}

func (d *DeskSpec) UnmarshalJSON(b []byte) error {
	type plain DeskSpec
	v := plain(NewDeskSpec())
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*d = DeskSpec(v)
	return nil
}

func (d *DeskSpec) UnmarshalYAML(node *yaml.Node) error {
	type plain DeskSpec
	v := plain(NewDeskSpec())
	if err := node.Decode(&v); err != nil {
		return err
	}
	*d = DeskSpec(v)
	return nil
}

// Specs returns every entity in declaration order: objects, occluders, desks.
func (s *SceneDescription) Specs() []EntitySpec {
	out := make([]EntitySpec, 0, len(s.Objects)+len(s.Occluders)+len(s.Desks))
	for _, o := range s.Objects {
		out = append(out, o)
	}
	for _, o := range s.Occluders {
		out = append(out, o)
	}
	for _, d := range s.Desks {
		out = append(out, d)
	}
	return out
}

// ApplyDefaults fills a missing timestep.
func (s *SceneDescription) ApplyDefaults(timestep float64) {
	if s.Sim.Timestep == 0 {
		s.Sim.Timestep = timestep
	}
}

// Validate checks the scene and returns the first problem as a *ConfigError.
func (s *SceneDescription) Validate() error {
	if s.Sim.Timestep <= 0 {
		return &ConfigError{Field: "sim.timestep", Reason: fmt.Sprintf("must be positive, got %v", s.Sim.Timestep)}
	}
	if s.Sim.SimTime <= 0 {
		return &ConfigError{Field: "sim.sim_time", Reason: "missing or not positive"}
	}
	if s.Sim.NumSteps() == 0 {
		return &ConfigError{Field: "sim.sim_time", Reason: "shorter than one timestep"}
	}
	for i, g := range s.Sim.StepPattern {
		if g.Steps < 0 {
			return &ConfigError{Field: fmt.Sprintf("sim.step_pattern[%d]", i), Reason: "negative duration"}
		}
	}

	for i, spec := range s.Specs() {
		var err error
		switch v := spec.(type) {
		case ObjectSpec:
			err = v.validate(i)
		case OccluderSpec:
			err = v.validate(i - len(s.Objects))
		case DeskSpec:
			err = v.validate(i - len(s.Objects) - len(s.Occluders))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (o ObjectSpec) validate(i int) error {
	field := func(name string) string { return fmt.Sprintf("objects[%d].%s", i, name) }
	if o.Shape == "" {
		return &ConfigError{Field: field("shape"), Reason: "required"}
	}
	if o.Mass < 0 {
		return &ConfigError{Field: field("mass"), Reason: fmt.Sprintf("must not be negative, got %v", o.Mass)}
	}
	if err := positive(o.Scale, field("scale")); err != nil {
		return err
	}
	if o.AppearTime < 0 {
		return &ConfigError{Field: field("appear_time"), Reason: "must not be negative"}
	}
	if o.DisappearTime < 0 {
		return &ConfigError{Field: field("disappear_time"), Reason: "must not be negative"}
	}
	if o.AppearTime >= o.DisappearTime {
		return &ConfigError{
			Field:  field("appear_time"),
			Reason: fmt.Sprintf("must be before disappear_time (%d >= %d)", o.AppearTime, o.DisappearTime),
		}
	}
	return nil
}

func (o OccluderSpec) validate(i int) error {
	field := func(name string) string { return fmt.Sprintf("occluders[%d].%s", i, name) }
	if o.Shape == "" {
		return &ConfigError{Field: field("shape"), Reason: "required"}
	}
	if _, err := o.JointKind(); err != nil {
		return &ConfigError{Field: field("joint"), Reason: err.Error()}
	}
	if o.Mass < 0 {
		return &ConfigError{Field: field("mass"), Reason: "must not be negative"}
	}
	if err := positive(o.Scale, field("scale")); err != nil {
		return err
	}
	for j, seg := range o.JointPattern {
		if seg.Steps < 0 {
			return &ConfigError{Field: fmt.Sprintf("occluders[%d].joint_pattern[%d]", i, j), Reason: "negative duration"}
		}
	}
	return nil
}

func (d DeskSpec) validate(i int) error {
	field := func(name string) string { return fmt.Sprintf("desks[%d].%s", i, name) }
	if d.InitOrn != (Vec3{}) {
		return &ConfigError{Field: field("init_orn"), Reason: fmt.Sprintf("only horizontal desks are supported, got %v", d.InitOrn)}
	}
	if err := positive(d.Scale, field("scale")); err != nil {
		return err
	}
	return nil
}

func positive(v Vec3, field string) error {
	for _, c := range v {
		if c <= 0 {
			return &ConfigError{Field: field, Reason: fmt.Sprintf("components must be positive, got %v", v)}
		}
	}
	return nil
}
