package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/AaronLay10/SentientSim/internal/events"
)

type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Hostname  string `json:"hostname"`
	Timestamp string `json:"ts"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	host, _ := os.Hostname()
	resp := HealthResponse{
		Status:    "ok",
		Service:   "simulate",
		Hostname:  host,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// readinessState tracks what /ready reports. Optional dependencies never make
// the service unready.
type readinessState struct {
	mu                sync.RWMutex
	simulatorReady    bool
	mqttConnected     bool
	mqttOptional      bool
	postgresConnected bool
	postgresOptional  bool
}

var readiness = &readinessState{mqttOptional: true, postgresOptional: true}

// SetSimulatorReady marks whether scenes are loaded and runs can proceed.
func SetSimulatorReady(ready bool) {
	readiness.mu.Lock()
	defer readiness.mu.Unlock()
	readiness.simulatorReady = ready
}

// SetMQTTState records broker connectivity and whether it is required.
func SetMQTTState(connected, optional bool) {
	readiness.mu.Lock()
	defer readiness.mu.Unlock()
	readiness.mqttConnected = connected
	readiness.mqttOptional = optional
}

// SetPostgresState records database connectivity and whether it is required.
func SetPostgresState(connected, optional bool) {
	readiness.mu.Lock()
	defer readiness.mu.Unlock()
	readiness.postgresConnected = connected
	readiness.postgresOptional = optional
}

type ReadinessCheck struct {
	Status   string `json:"status"`
	Optional bool   `json:"optional,omitempty"`
}

type ReadinessResponse struct {
	Ready       bool                      `json:"ready"`
	Checks      map[string]ReadinessCheck `json:"checks"`
	NotReadyMsg string                    `json:"message,omitempty"`
}

func dependencyCheck(connected, optional bool) (ReadinessCheck, bool) {
	switch {
	case connected:
		return ReadinessCheck{Status: "ok", Optional: optional}, true
	case optional:
		return ReadinessCheck{Status: "unavailable", Optional: true}, true
	default:
		return ReadinessCheck{Status: "not_ready"}, false
	}
}

func readyHandler(w http.ResponseWriter, r *http.Request) {
	readiness.mu.RLock()
	simReady := readiness.simulatorReady
	mqttCheck, mqttOK := dependencyCheck(readiness.mqttConnected, readiness.mqttOptional)
	pgCheck, pgOK := dependencyCheck(readiness.postgresConnected, readiness.postgresOptional)
	readiness.mu.RUnlock()

	resp := ReadinessResponse{Ready: true, Checks: map[string]ReadinessCheck{
		"simulator": {Status: "ok"},
		"mqtt":      mqttCheck,
		"postgres":  pgCheck,
	}}

	var reasons []string
	if !simReady {
		resp.Checks["simulator"] = ReadinessCheck{Status: "not_ready"}
		reasons = append(reasons, "simulator not ready")
	}
	if !mqttOK {
		reasons = append(reasons, "mqtt not connected")
	}
	if !pgOK {
		reasons = append(reasons, "postgres not connected")
	}

	w.Header().Set("Content-Type", "application/json")
	if len(reasons) > 0 {
		resp.Ready = false
		resp.NotReadyMsg = strings.Join(reasons, "; ")
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func eventsHandler(w http.ResponseWriter, r *http.Request) {
	recent := events.RecentMatching(0, events.ForRun(r.URL.Query().Get("run_id")))
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(recent)
}

// NewMux builds the monitoring routes. Everything except /health and /ready
// sits behind basic auth when credentials are configured.
func NewMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler)
	mux.HandleFunc("/metrics", metricsHandler)
	mux.HandleFunc("/events", Protect(eventsHandler))
	mux.HandleFunc("/runs", Protect(runsHandler))
	mux.HandleFunc("/ws/events", Protect(wsEventsHandler))
	mux.HandleFunc("/", Protect(monitorHandler))
	return mux
}

// ListenAndServe starts the API server on the given port, over TLS when a
// certificate is configured. It blocks until the server exits.
func ListenAndServe(port int) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: NewMux(),
	}

	if tlsCfg := LoadTLSConfig(); tlsCfg != nil {
		srv.TLSConfig = tlsCfg
		log.Printf("API listening on %s (TLS)\n", srv.Addr)
		return srv.ListenAndServeTLS("", "")
	}

	log.Printf("API listening on %s\n", srv.Addr)
	return srv.ListenAndServe()
}

// Start starts the API server in a goroutine.
// Errors are logged but do not stop the caller.
func Start(port int) {
	go func() {
		if err := ListenAndServe(port); err != nil {
			log.Printf("api server error: %v", err)
		}
	}()
}
