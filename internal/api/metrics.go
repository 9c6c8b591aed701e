package api

import (
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/AaronLay10/SentientSim/internal/events"
	"github.com/AaronLay10/SentientSim/internal/version"
)

var (
	metricsState = &MetricsState{}
)

// MetricsState holds runtime metrics for the /metrics endpoint.
type MetricsState struct {
	mu          sync.RWMutex
	startTime   time.Time
	dataset     string
	runsTotal   int64
	runsInvalid int64
	stepsTotal  int64
}

// InitMetrics initializes the metrics system. Must be called at startup.
func InitMetrics(dataset string) {
	metricsState.mu.Lock()
	defer metricsState.mu.Unlock()
	metricsState.startTime = time.Now()
	metricsState.dataset = dataset
	metricsState.runsTotal = 0
	metricsState.runsInvalid = 0
	metricsState.stepsTotal = 0
}

// metricsHandler returns Prometheus-compatible metrics in text format.
func metricsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	metricsState.mu.RLock()
	startTime := metricsState.startTime
	dataset := metricsState.dataset
	runsTotal := metricsState.runsTotal
	runsInvalid := metricsState.runsInvalid
	stepsTotal := metricsState.stepsTotal
	metricsState.mu.RUnlock()

	uptime := time.Since(startTime).Seconds()
	eventsTotal := events.TotalCount()

	readiness.mu.RLock()
	mqttConnected := readiness.mqttConnected
	postgresConnected := readiness.postgresConnected
	readiness.mu.RUnlock()

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	writeMetric := func(name, mtype, help string, value interface{}, labels string) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s %s\n", name, mtype)
		fmt.Fprintf(w, "%s{%s} %v\n", name, labels, value)
	}

	labels := fmt.Sprintf(`dataset="%s",instance="%s",version="%s"`, dataset, hostname, version.Version)

	writeMetric("sentient_sim_uptime_seconds", "gauge",
		"Number of seconds since the simulator started", uptime, labels)
	writeMetric("sentient_sim_runs_total", "counter",
		"Simulation runs completed since startup", runsTotal, labels)
	writeMetric("sentient_sim_runs_invalid_total", "counter",
		"Completed runs whose scenario was invalid", runsInvalid, labels)
	writeMetric("sentient_sim_steps_total", "counter",
		"Physics steps recorded across completed runs", stepsTotal, labels)
	writeMetric("sentient_sim_events_total", "counter",
		"Total number of events emitted since startup", eventsTotal, labels)
	writeMetric("sentient_sim_events_buffered", "gauge",
		"Recent events held for replay", events.BufferedCount(), labels)
	writeMetric("sentient_sim_events_dropped_total", "counter",
		"Event deliveries skipped for slow live subscribers", events.DroppedCount(), labels)
	writeMetric("sentient_sim_mqtt_connected", "gauge",
		"Whether the MQTT broker is connected (1) or not (0)", boolGauge(mqttConnected), labels)
	writeMetric("sentient_sim_postgres_connected", "gauge",
		"Whether PostgreSQL is connected (1) or not (0)", boolGauge(postgresConnected), labels)
	writeMetric("sentient_sim_ws_clients", "gauge",
		"Number of active WebSocket client connections", events.SubscriberCount(), labels)
}

func boolGauge(b bool) int {
	if b {
		return 1
	}
	return 0
}
