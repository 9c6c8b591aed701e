package pattern

import (
	"encoding/json"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"
)

// Segments are written as [start, end, steps] and gate segments as [value, steps]
// in both JSON and YAML scene files.

func (s *Segment) UnmarshalJSON(b []byte) error {
	var raw []float64
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("joint pattern segment: %w", err)
	}
	return s.fromFloats(raw)
}

func (s *Segment) UnmarshalYAML(node *yaml.Node) error {
	var raw []float64
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("joint pattern segment: %w", err)
	}
	return s.fromFloats(raw)
}

func (s Segment) MarshalJSON() ([]byte, error) {
	return json.Marshal([]float64{s.Start, s.End, float64(s.Steps)})
}

func (s *Segment) fromFloats(raw []float64) error {
	if len(raw) != 3 {
		return fmt.Errorf("joint pattern segment: want [start, end, steps], got %d values", len(raw))
	}
	steps, err := toSteps(raw[2])
	if err != nil {
		return fmt.Errorf("joint pattern segment: %w", err)
	}
	*s = Segment{Start: raw[0], End: raw[1], Steps: steps}
	return nil
}

func (g *GateSegment) UnmarshalJSON(b []byte) error {
	var raw []interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("step pattern segment: %w", err)
	}
	return g.fromValues(raw)
}

func (g *GateSegment) UnmarshalYAML(node *yaml.Node) error {
	var raw []interface{}
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("step pattern segment: %w", err)
	}
	return g.fromValues(raw)
}

func (g GateSegment) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{g.Value, g.Steps})
}

func (g *GateSegment) fromValues(raw []interface{}) error {
	if len(raw) != 2 {
		return fmt.Errorf("step pattern segment: want [value, steps], got %d values", len(raw))
	}
	value, err := truthy(raw[0])
	if err != nil {
		return fmt.Errorf("step pattern segment: %w", err)
	}
	n, ok := toFloat(raw[1])
	if !ok {
		return fmt.Errorf("step pattern segment: steps must be a number, got %v", raw[1])
	}
	steps, err := toSteps(n)
	if err != nil {
		return fmt.Errorf("step pattern segment: %w", err)
	}
	*g = GateSegment{Value: value, Steps: steps}
	return nil
}

func toSteps(v float64) (int, error) {
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("steps must be an integer, got %v", v)
	}
	return int(v), nil
}

// truthy accepts booleans and numbers; any non-zero number advances.
func truthy(v interface{}) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	if f, ok := toFloat(v); ok {
		return f != 0, nil
	}
	return false, fmt.Errorf("gate value must be a bool or number, got %v", v)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
