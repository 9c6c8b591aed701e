package events

import "fmt"

var allowedEvents = map[string]struct{}{
	// simulation run
	"sim.started":   {},
	"sim.completed": {},
	"sim.cancelled": {},
	"sim.failed":    {},

	// entity lifecycle
	"object.appeared": {},
	"object.parked":   {},

	// validity
	"scenario.invalid": {},

	// pattern compilation
	"pattern.fitted": {},

	// output
	"trace.written":    {},
	"result.published": {},

	// system
	"system.startup":  {},
	"system.shutdown": {},
	"system.error":    {},
}

func Validate(event string) error {
	if _, ok := allowedEvents[event]; !ok {
		return fmt.Errorf("unknown event: %s", event)
	}
	return nil
}
