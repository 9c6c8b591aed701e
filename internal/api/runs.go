package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	"github.com/AaronLay10/SentientSim/internal/events"
	"github.com/AaronLay10/SentientSim/internal/storage/postgres"
)

const maxRecentRuns = 100

var (
	recentRuns []postgres.RunRow
	runsMu     sync.RWMutex
)

// RecordRun remembers a finished run for /runs and updates the run metrics.
func RecordRun(run postgres.RunRow) {
	runsMu.Lock()
	recentRuns = append(recentRuns, run)
	if len(recentRuns) > maxRecentRuns {
		recentRuns = recentRuns[len(recentRuns)-maxRecentRuns:]
	}
	runsMu.Unlock()

	metricsState.mu.Lock()
	metricsState.runsTotal++
	if !run.Valid {
		metricsState.runsInvalid++
	}
	metricsState.stepsTotal += int64(run.NumSteps)
	metricsState.mu.Unlock()
}

// RecentRuns returns up to n runs recorded in this process, newest first.
func RecentRuns(n int) []postgres.RunRow {
	runsMu.RLock()
	defer runsMu.RUnlock()
	if n <= 0 || n > len(recentRuns) {
		n = len(recentRuns)
	}
	out := make([]postgres.RunRow, 0, n)
	for i := len(recentRuns) - 1; i >= len(recentRuns)-n; i-- {
		out = append(out, recentRuns[i])
	}
	return out
}

// resetRuns clears the in-process run log. Used for testing.
func resetRuns() {
	runsMu.Lock()
	recentRuns = nil
	runsMu.Unlock()
}

// runsHandler lists run outcomes, from Postgres when it is connected and from
// this process otherwise.
func runsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs := RecentRuns(limit)
	if pg := events.GetPostgresClient(); pg != nil {
		stored, err := pg.Runs(limit)
		if err == nil {
			runs = stored
		} else {
			events.Emit("error", "system.error", "postgres runs query failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
	if runs == nil {
		runs = []postgres.RunRow{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(runs)
}
