// Package config provides configuration loading and access for the engine.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all engine configuration parameters.
type Config struct {
	Physics   PhysicsConfig   `yaml:"physics"`
	World     WorldConfig     `yaml:"world"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// PhysicsConfig holds simulation physics parameters.
type PhysicsConfig struct {
	DT              float64 `yaml:"dt"`                // seconds per tick
	MaintainedDecay float64 `yaml:"maintained_decay"`  // maintained velocity decay, tiles/s per second
	MaxPushDistance int     `yaml:"max_push_distance"` // clearance search bound per direction, in tiles
	MaxPushAttempts int     `yaml:"max_push_attempts"` // directions tried before a conflict stays unresolved
}

// WorldConfig holds world loading parameters.
type WorldConfig struct {
	Level string `yaml:"level"` // default level file path (empty = start with a bare grid)
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow float64 `yaml:"stats_window"` // seconds per stats window
	LogEvents   bool    `yaml:"log_events"`   // write per-event rows to events.csv
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	DT32            float32 // Physics.DT as float32
	MaintainedDecay float32 // Physics.MaintainedDecay as float32
	TicksPerWindow  int64   // stats window length in ticks
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults
// if path is empty. Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded
// defaults. If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	cfg.computeDerived()
	return cfg, nil
}

// computeDerived fills in values computed from the loaded parameters.
func (c *Config) computeDerived() {
	c.Derived.DT32 = float32(c.Physics.DT)
	c.Derived.MaintainedDecay = float32(c.Physics.MaintainedDecay)

	ticks := int64(c.Telemetry.StatsWindow / c.Physics.DT)
	if ticks < 1 {
		ticks = 1
	}
	c.Derived.TicksPerWindow = ticks
}

// WriteYAML saves the configuration to a file, for experiment snapshots.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
