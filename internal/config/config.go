// Package config holds the engine's tunables. Compiled defaults work out of
// the box; a YAML file overrides them and CLI flags override the file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"issuex/internal/locator"
)

// Config is the full tunable surface of an extraction run.
type Config struct {
	Timeouts Timeouts    `yaml:"timeouts"`
	Load     Convergence `yaml:"load"`
	Extract  Extract     `yaml:"extract"`

	// Profile names the locator strategy tables to use.
	Profile string `yaml:"profile"`

	// Profiles defines additional locator strategy tables in the file
	// itself, so a new UI variant needs no rebuild.
	Profiles []locator.Profile `yaml:"profiles"`
}

// Timeouts bound every class of blocking page operation. There is no
// unbounded wait anywhere in the engine.
type Timeouts struct {
	Operation time.Duration `yaml:"operation"` // one query or script
	Settle    time.Duration `yaml:"settle"`    // pause after a load trigger
	Action    time.Duration `yaml:"action"`    // click/type including retries
}

// Convergence tunes the lazy-load convergence loop.
type Convergence struct {
	MaxIterations   int `yaml:"max_iterations"`
	StagnationLimit int `yaml:"stagnation_limit"`
	// TargetOverride skips the count probe when > 0.
	TargetOverride int `yaml:"target_override"`
	// DefaultTarget is assumed when no count badge or caption is found
	// and too few rows are visible to estimate from.
	DefaultTarget int `yaml:"default_target"`
	// TargetCeiling caps estimates derived from visible-row counts.
	TargetCeiling int `yaml:"target_ceiling"`
	// EarlyExitRatio lets the loop stop short of the target once coverage
	// is good enough and growth has stalled.
	EarlyExitRatio float64 `yaml:"early_exit_ratio"`
}

// Extract tunes per-row extraction.
type Extract struct {
	MaxFieldLength int `yaml:"max_field_length"`
	// Attempts bounds whole-extraction retries when a pass yields nothing
	// despite visible rows.
	Attempts int `yaml:"attempts"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		Timeouts: Timeouts{
			Operation: 10 * time.Second,
			Settle:    500 * time.Millisecond,
			Action:    15 * time.Second,
		},
		Load: Convergence{
			MaxIterations:   100,
			StagnationLimit: 25,
			DefaultTarget:   100,
			TargetCeiling:   5000,
			EarlyExitRatio:  0.95,
		},
		Extract: Extract{
			MaxFieldLength: 500,
			Attempts:       3,
		},
		Profile: "fiori",
	}
}

// Load reads path and overlays it on the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.Load.MaxIterations <= 0 {
		return fmt.Errorf("load.max_iterations must be positive")
	}
	if c.Load.StagnationLimit <= 0 {
		return fmt.Errorf("load.stagnation_limit must be positive")
	}
	if c.Load.EarlyExitRatio <= 0 || c.Load.EarlyExitRatio > 1 {
		return fmt.Errorf("load.early_exit_ratio must be in (0, 1]")
	}
	if c.Extract.MaxFieldLength < 4 {
		return fmt.Errorf("extract.max_field_length must be at least 4")
	}
	return nil
}
