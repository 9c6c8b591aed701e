package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults applied when sim.yaml leaves a field unset.
const (
	DefaultTimestep      = 0.01
	DefaultGravity       = -1.0
	DefaultContactMargin = 2e-4
	DefaultOutputDir     = "output"
	DefaultTopicPrefix   = "sentient/sim"
	DefaultDataset       = "default"
)

type SimConfig struct {
	Version int    `yaml:"version"`
	Dataset string `yaml:"dataset"`
	Sim     struct {
		Timestep      float64  `yaml:"timestep"`
		Gravity       *float64 `yaml:"gravity"`
		ContactMargin float64  `yaml:"contact_margin"`
		PatternPolicy string   `yaml:"pattern_policy"`
		OutputDir     string   `yaml:"output_dir"`
	} `yaml:"sim"`
	Shapes  map[string][3]float64 `yaml:"shapes"`
	Network struct {
		APIPort int `yaml:"api_port"`
	} `yaml:"network"`
	MQTT struct {
		Enabled     bool   `yaml:"enabled"`
		TopicPrefix string `yaml:"topic_prefix"`
	} `yaml:"mqtt"`
	Postgres struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"postgres"`
}

// Default returns the configuration used when no sim.yaml is given.
func Default() *SimConfig {
	return &SimConfig{Version: 1}
}

// Timestep returns the configured timestep, defaulting to 0.01 if not set.
func (c *SimConfig) Timestep() float64 {
	if c.Sim.Timestep <= 0 {
		return DefaultTimestep
	}
	return c.Sim.Timestep
}

// Gravity returns the vertical gravity, defaulting to -1 if not set.
func (c *SimConfig) Gravity() float64 {
	if c.Sim.Gravity == nil {
		return DefaultGravity
	}
	return *c.Sim.Gravity
}

// ContactMargin returns the touching distance, defaulting to 2e-4 if not set.
func (c *SimConfig) ContactMargin() float64 {
	if c.Sim.ContactMargin <= 0 {
		return DefaultContactMargin
	}
	return c.Sim.ContactMargin
}

// OutputDir returns the directory traces are written under.
func (c *SimConfig) OutputDir() string {
	if c.Sim.OutputDir == "" {
		return DefaultOutputDir
	}
	return c.Sim.OutputDir
}

// DatasetName labels stored events and runs.
func (c *SimConfig) DatasetName() string {
	if c.Dataset == "" {
		return DefaultDataset
	}
	return c.Dataset
}

// TopicPrefix returns the MQTT topic prefix for run results.
func (c *SimConfig) TopicPrefix() string {
	if c.MQTT.TopicPrefix == "" {
		return DefaultTopicPrefix
	}
	return c.MQTT.TopicPrefix
}

// APIPort returns the monitoring API port; 0 disables the API.
func (c *SimConfig) APIPort() int {
	return c.Network.APIPort
}

func LoadSimConfig(path string) (*SimConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg SimConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}

	if cfg.Version != 1 {
		return nil, fmt.Errorf("unsupported sim.yaml version: %d", cfg.Version)
	}

	for name, dims := range cfg.Shapes {
		for _, d := range dims {
			if d <= 0 {
				return nil, fmt.Errorf("shape %q: dimensions must be positive, got %v", name, dims)
			}
		}
	}

	return &cfg, nil
}
