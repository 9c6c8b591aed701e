package trace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileName is the conventional name of a trace inside a run's output directory.
const FileName = "motion.json"

// Write serializes tr to path. The file is written to a temporary sibling and
// renamed into place, so readers never observe a partial trace.
func Write(path string, tr *Trace) error {
	if tr == nil {
		return fmt.Errorf("nil trace")
	}
	b, err := Marshal(tr)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create trace directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".motion-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp trace file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write trace: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close trace: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move trace into place: %w", err)
	}
	return nil
}

// Marshal encodes tr with four-space indentation.
func Marshal(tr *Trace) ([]byte, error) {
	b, err := json.MarshalIndent(tr, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal trace: %w", err)
	}
	return b, nil
}

// Read loads a trace written by Write.
func Read(path string) (*Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace file: %w", err)
	}
	var tr Trace
	if err := json.Unmarshal(data, &tr); err != nil {
		return nil, fmt.Errorf("failed to parse trace JSON: %w", err)
	}
	return &tr, nil
}
