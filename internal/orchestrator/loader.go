package orchestrator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadScene loads a scene description from a .json, .yaml or .yml file.
// The result is not validated; call Validate after applying defaults.
func LoadScene(path string) (*SceneDescription, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return ParseSceneJSON(data)
	case ".yaml", ".yml":
		return ParseSceneYAML(data)
	default:
		return nil, &ConfigError{Field: "path", Reason: fmt.Sprintf("unsupported scene file extension %q", ext)}
	}
}

// ParseSceneJSON decodes a JSON scene description.
func ParseSceneJSON(data []byte) (*SceneDescription, error) {
	var sd SceneDescription
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&sd); err != nil {
		return nil, &ConfigError{Field: "scene", Reason: fmt.Sprintf("failed to parse JSON: %v", err)}
	}
	return &sd, nil
}

// ParseSceneYAML decodes a YAML scene description.
func ParseSceneYAML(data []byte) (*SceneDescription, error) {
	var sd SceneDescription
	if err := yaml.Unmarshal(data, &sd); err != nil {
		return nil, &ConfigError{Field: "scene", Reason: fmt.Sprintf("failed to parse YAML: %v", err)}
	}
	return &sd, nil
}

// SceneName is the base name of a scene file without its extension.
func SceneName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
