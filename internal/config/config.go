// Package config provides configuration management for the roofer CLI.
// It handles loading, validation, and management of run settings from
// files and environment variables, layered by priority.
package config

import (
	"time"

	"github.com/arx-os/roofer/core/reconstruct/model"
)

// Config is the complete configuration for a roofer run: where its
// inputs and outputs live, how many buildings to process concurrently,
// and the reconstruction tunables every building shares.
type Config struct {
	// Tile settings: input point cloud and footprint sources, and
	// where CityJSON output is written.
	Tile Tile `json:"tile" yaml:"tile"`

	// Worker settings for internal/pool's per-building pool.
	Worker WorkerConfig `json:"worker" yaml:"worker"`

	// Logging settings.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Reconstruct holds every reconstruction tunable (plane detection,
	// regularisation, arrangement, LoD budgets). Embedded rather than
	// duplicated so a YAML file can override any reconstruction knob
	// directly under the "reconstruct:" key.
	Reconstruct model.Config `json:"reconstruct" yaml:"reconstruct"`
}

// Tile names the point cloud and footprint inputs and the output
// location for one run of cmd/roofer.
type Tile struct {
	PointCloudPath string `json:"point_cloud_path" yaml:"point_cloud_path"`
	FootprintPath  string `json:"footprint_path" yaml:"footprint_path"`
	OutputPath     string `json:"output_path" yaml:"output_path"`
}

// WorkerConfig controls internal/pool's concurrency and per-building
// timeout.
type WorkerConfig struct {
	Concurrency    int           `json:"concurrency" yaml:"concurrency"`
	PerBuildingMax time.Duration `json:"per_building_max" yaml:"per_building_max"`
}

// LoggingConfig controls internal/logger's verbosity.
type LoggingConfig struct {
	Level string `json:"level" yaml:"level"` // debug, info, warn, error
}

// Default returns the baseline configuration: reconstruction defaults
// from model.DefaultConfig, worker concurrency 0 (internal/pool then runs
// every building job at once, with no limit), and info-level logging.
func Default() *Config {
	return &Config{
		Tile: Tile{
			OutputPath: "out.city.jsonl",
		},
		Worker: WorkerConfig{
			Concurrency:    0,
			PerBuildingMax: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Reconstruct: model.DefaultConfig(),
	}
}
