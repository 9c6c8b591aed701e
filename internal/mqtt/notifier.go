package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/AaronLay10/SentientSim/internal/events"
)

// Publisher is the subset of Client used to deliver results.
type Publisher interface {
	IsConnected() bool
	Publish(topic string, payload []byte) error
}

// Result is the payload published when a run completes. Frames stay on disk;
// subscribers fetch them from TracePath.
type Result struct {
	RunID     string `json:"run_id"`
	Scene     string `json:"scene"`
	Valid     bool   `json:"valid"`
	NumSteps  int    `json:"num_steps"`
	TracePath string `json:"trace_path"`
}

// ResultNotifier publishes run results under a topic prefix.
type ResultNotifier struct {
	pub    Publisher
	prefix string
}

// NewResultNotifier creates a notifier. An empty prefix falls back to "sentient/sim".
func NewResultNotifier(pub Publisher, prefix string) *ResultNotifier {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		prefix = "sentient/sim"
	}
	return &ResultNotifier{pub: pub, prefix: prefix}
}

// StatusTopic returns the retained presence topic under prefix.
func StatusTopic(prefix string) string {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		prefix = "sentient/sim"
	}
	return prefix + "/status"
}

// Topic returns the result topic for a run.
func (n *ResultNotifier) Topic(runID string) string {
	return n.prefix + "/" + runID + "/result"
}

// Notify publishes r. It returns ErrNotConnected when the broker is unreachable.
func (n *ResultNotifier) Notify(r Result) error {
	if r.RunID == "" {
		return fmt.Errorf("mqtt: result has no run id")
	}
	if n.pub == nil || !n.pub.IsConnected() {
		return ErrNotConnected
	}

	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("mqtt: encode result: %w", err)
	}

	topic := n.Topic(r.RunID)
	if err := n.pub.Publish(topic, payload); err != nil {
		return fmt.Errorf("mqtt: publish %s: %w", topic, err)
	}

	_, _ = events.Emit("info", "result.published", "", map[string]interface{}{
		"run_id": r.RunID,
		"scene":  r.Scene,
		"topic":  topic,
		"valid":  r.Valid,
	})
	return nil
}
