package orchestrator

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/AaronLay10/SentientSim/internal/physics"
)

const (
	// NormalTolerance is the largest horizontal normal component a single
	// resting contact may have.
	NormalTolerance = 0.1

	// Objects whose x lies strictly inside this band have left their track.
	ForbiddenBandMin = -4.0
	ForbiddenBandMax = -2.8
)

// Violation reasons.
const (
	ReasonMultipleContacts = "multiple_contacts"
	ReasonSideContact      = "side_contact"
	ReasonForbiddenBand    = "forbidden_band"
)

// Violation describes why a scenario became invalid.
type Violation struct {
	Object int
	Step   int
	Reason string
	Detail string
}

func (v *Violation) String() string {
	return fmt.Sprintf("object %d at step %d: %s (%s)", v.Object, v.Step, v.Reason, v.Detail)
}

// ValidityOracle inspects tracked objects for unintended collisions. It never
// mutates engine state.
type ValidityOracle struct {
	engine physics.Engine
}

// NewValidityOracle creates an oracle reading from engine.
func NewValidityOracle(engine physics.Engine) *ValidityOracle {
	return &ValidityOracle{engine: engine}
}

// Check returns nil when every object is in a valid state, otherwise the
// first violation found in declaration order.
func (o *ValidityOracle) Check(objects []*EntityState, step int) (*Violation, error) {
	for _, e := range objects {
		contacts, err := o.engine.ContactPoints(e.Body)
		if err != nil {
			return nil, fmt.Errorf("object %d contacts: %w", e.Index, err)
		}
		st, err := o.engine.BaseState(e.Body)
		if err != nil {
			return nil, fmt.Errorf("object %d state: %w", e.Index, err)
		}
		if reason, detail := Evaluate(contacts, st.Position); reason != "" {
			return &Violation{Object: e.Index, Step: step, Reason: reason, Detail: detail}, nil
		}
	}
	return nil, nil
}

// Evaluate applies the validity predicate to one object. It returns an empty
// reason when the object is fine.
func Evaluate(contacts []physics.ContactPoint, pos mgl64.Vec3) (reason, detail string) {
	switch {
	case len(contacts) > 1:
		return ReasonMultipleContacts, fmt.Sprintf("%d contacts", len(contacts))
	case len(contacts) == 1:
		n := contacts[0].Normal
		if math.Abs(n[0]) > NormalTolerance || math.Abs(n[1]) > NormalTolerance {
			return ReasonSideContact, fmt.Sprintf("normal %.3f,%.3f,%.3f with %s", n[0], n[1], n[2], contacts[0].Other)
		}
	}
	if pos[0] > ForbiddenBandMin && pos[0] < ForbiddenBandMax {
		return ReasonForbiddenBand, fmt.Sprintf("x=%.3f", pos[0])
	}
	return "", ""
}
