package events

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestEmit_RejectsUnknownEvent(t *testing.T) {
	if _, err := Emit("info", "node.started", "", nil); err == nil {
		t.Error("expected error for unknown event name")
	}
}

func TestEmit_ReturnsJSON(t *testing.T) {
	b, err := Emit("info", "sim.started", "", map[string]interface{}{"run_id": "abc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var e Event
	if err := json.Unmarshal(b, &e); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if e.Name != "sim.started" || e.Level != "info" {
		t.Errorf("unexpected event %+v", e)
	}
	if e.Timestamp == "" {
		t.Error("expected timestamp")
	}
}

func TestEmit_WritesToOutput(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	Emit("warning", "scenario.invalid", "contact", map[string]interface{}{"step": 12})
	Emit("info", "sim.completed", "", nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %q", len(lines), buf.String())
	}
	var e Event
	if err := json.Unmarshal([]byte(lines[0]), &e); err != nil {
		t.Fatalf("invalid JSON line: %v", err)
	}
	if e.Name != "scenario.invalid" || e.Message != "contact" {
		t.Errorf("unexpected event %+v", e)
	}
}

func TestTotalCount_Increments(t *testing.T) {
	before := TotalCount()
	Emit("info", "trace.written", "", nil)
	Emit("info", "trace.written", "", nil)
	if got := TotalCount() - before; got != 2 {
		t.Errorf("expected count to grow by 2, got %d", got)
	}
}

func TestRunID(t *testing.T) {
	if runID(map[string]interface{}{"run_id": "r1"}) != "r1" {
		t.Error("expected run_id to be extracted")
	}
	if runID(nil) != "" {
		t.Error("expected empty run id for nil fields")
	}
	if runID(map[string]interface{}{"run_id": 7}) != "" {
		t.Error("expected empty run id for non-string value")
	}
}

func TestRingBuffer_WrapsAndClears(t *testing.T) {
	rb := NewRingBuffer(3)
	for _, name := range []string{"a", "b", "c", "d"} {
		rb.Add(Event{Name: name})
	}
	if rb.Len() != 3 {
		t.Errorf("Len() = %d, want 3", rb.Len())
	}
	snap := rb.Snapshot()
	if len(snap) != 3 || snap[0].Name != "b" || snap[2].Name != "d" {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	rb.Clear()
	if len(rb.Snapshot()) != 0 || rb.Len() != 0 {
		t.Error("expected empty buffer after clear")
	}
}
