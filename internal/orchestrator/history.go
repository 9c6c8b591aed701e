package orchestrator

import (
	"github.com/AaronLay10/SentientSim/internal/events"
	"github.com/AaronLay10/SentientSim/internal/storage/postgres"
)

// DefaultHistoryLimit is the default number of events scanned for run history.
const DefaultHistoryLimit = 1000

// RunStatus is the last known lifecycle state of a run.
type RunStatus string

const (
	RunStarted   RunStatus = "started"
	RunCompleted RunStatus = "completed"
	RunCancelled RunStatus = "cancelled"
	RunFailed    RunStatus = "failed"
)

// RunSummary is what the event log says about one run.
type RunSummary struct {
	RunID         string    `json:"run_id"`
	Scene         string    `json:"scene,omitempty"`
	Status        RunStatus `json:"status"`
	NumSteps      int       `json:"num_steps"`
	Valid         bool      `json:"valid"`
	InvalidReason string    `json:"invalid_reason,omitempty"`
	LastStep      int       `json:"last_step"`
}

// RestoreRunHistory loads recent events from Postgres and rebuilds the run
// summaries they describe. Returns nil if client is nil.
func RestoreRunHistory(client *postgres.Client, limit int) ([]RunSummary, int, error) {
	if client == nil {
		return nil, 0, nil
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := client.Query(limit)
	if err != nil {
		return nil, 0, err
	}
	return SummarizeRuns(rows), len(rows), nil
}

// SummarizeRuns folds event rows (newest first, as Query returns them) into
// one summary per run, oldest run first.
func SummarizeRuns(rows []postgres.EventRow) []RunSummary {
	byID := make(map[string]*RunSummary)
	var order []string

	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		id, _ := row.Fields["run_id"].(string)
		if id == "" && row.RunID != nil {
			id = *row.RunID
		}
		if id == "" {
			continue
		}

		s, ok := byID[id]
		if !ok {
			s = &RunSummary{RunID: id, Status: RunStarted, Valid: true}
			byID[id] = s
			order = append(order, id)
		}

		if step, ok := intField(row.Fields, "step"); ok && step > s.LastStep {
			s.LastStep = step
		}

		switch row.Event {
		case "sim.started":
			s.Status = RunStarted
			if scene, ok := row.Fields["scene"].(string); ok {
				s.Scene = scene
			}
			if n, ok := intField(row.Fields, "num_steps"); ok {
				s.NumSteps = n
			}
		case "scenario.invalid":
			s.Valid = false
			if reason, ok := row.Fields["reason"].(string); ok {
				s.InvalidReason = reason
			}
		case "sim.completed":
			s.Status = RunCompleted
			if valid, ok := row.Fields["valid"].(bool); ok {
				s.Valid = valid
			}
		case "sim.cancelled":
			s.Status = RunCancelled
		case "sim.failed":
			s.Status = RunFailed
		}
	}

	out := make([]RunSummary, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out
}

// Unfinished returns the runs that never reached sim.completed.
func Unfinished(runs []RunSummary) []RunSummary {
	var out []RunSummary
	for _, r := range runs {
		if r.Status != RunCompleted {
			out = append(out, r)
		}
	}
	return out
}

// EmitStartupRestore emits the system.startup event summarising restored history.
func EmitStartupRestore(restored int, runs []RunSummary, dataset string) {
	events.Emit("info", "system.startup", "run history restored", map[string]interface{}{
		"restored_events": restored,
		"runs":            len(runs),
		"unfinished":      len(Unfinished(runs)),
		"dataset":         dataset,
	})
}

// intField reads a number decoded from JSON (float64) or set in Go (int).
func intField(fields map[string]interface{}, key string) (int, bool) {
	switch v := fields[key].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	}
	return 0, false
}
