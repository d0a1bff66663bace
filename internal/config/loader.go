package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Source applies its configuration on top of an existing Config and
// reports the priority it should be applied at; higher-priority sources
// are applied later and win (file < env < flags).
type Source interface {
	Apply(cfg *Config) error
	Priority() int
	Name() string
}

// Loader merges configuration from every registered Source, lowest
// priority first.
type Loader struct {
	sources []Source
}

// NewLoader builds an empty Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// AddSource registers a Source.
func (l *Loader) AddSource(s Source) {
	l.sources = append(l.sources, s)
}

// Load starts from Default() and applies every registered source in
// ascending priority order, returning the merged result.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()
	sorted := append([]Source(nil), l.sources...)
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if sorted[j].Priority() < sorted[i].Priority() {
				sorted[i], sorted[j] = sorted[j], sorted[i]
			}
		}
	}
	for _, src := range sorted {
		if err := src.Apply(cfg); err != nil {
			return nil, fmt.Errorf("config source %s: %w", src.Name(), err)
		}
	}
	return cfg, nil
}

// FileSource loads a YAML file, merged on top of whatever cfg already
// holds — yaml.Unmarshal only touches keys the document sets, so a field
// Default() populated and the file omits is left untouched.
type FileSource struct {
	Path     string
	priority int
}

// NewFileSource builds a FileSource for path at the given priority.
func NewFileSource(path string, priority int) *FileSource {
	return &FileSource{Path: path, priority: priority}
}

func (f *FileSource) Priority() int { return f.priority }
func (f *FileSource) Name() string  { return "file:" + f.Path }

// Apply reads and unmarshals the YAML file into cfg in place. A missing
// file is not an error — it simply contributes nothing.
func (f *FileSource) Apply(cfg *Config) error {
	data, err := os.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing %s: %w", f.Path, err)
	}
	return nil
}

// EnvSource loads overrides from environment variables under prefix,
// e.g. ROOFER_WORKER_CONCURRENCY, ROOFER_TILE_OUTPUT_PATH.
type EnvSource struct {
	Prefix   string
	priority int
}

// NewEnvSource builds an EnvSource for the given priority.
func NewEnvSource(prefix string, priority int) *EnvSource {
	return &EnvSource{Prefix: prefix, priority: priority}
}

func (e *EnvSource) Priority() int { return e.priority }
func (e *EnvSource) Name() string  { return "env:" + e.Prefix }

// Apply overrides cfg's driver-level fields (tile paths, worker pool,
// logging) from environment variables. Reconstruction tunables are left
// to the YAML file and CLI flags; there are too many knobs to give each
// one its own environment variable.
func (e *EnvSource) Apply(cfg *Config) error {
	env := func(suffix string) (string, bool) {
		return os.LookupEnv(e.Prefix + suffix)
	}
	if v, ok := env("_TILE_POINT_CLOUD_PATH"); ok {
		cfg.Tile.PointCloudPath = v
	}
	if v, ok := env("_TILE_FOOTPRINT_PATH"); ok {
		cfg.Tile.FootprintPath = v
	}
	if v, ok := env("_TILE_OUTPUT_PATH"); ok {
		cfg.Tile.OutputPath = v
	}
	if v, ok := env("_WORKER_CONCURRENCY"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s_WORKER_CONCURRENCY: %w", e.Prefix, err)
		}
		cfg.Worker.Concurrency = n
	}
	if v, ok := env("_WORKER_PER_BUILDING_MAX"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s_WORKER_PER_BUILDING_MAX: %w", e.Prefix, err)
		}
		cfg.Worker.PerBuildingMax = d
	}
	if v, ok := env("_LOGGING_LEVEL"); ok {
		cfg.Logging.Level = strings.ToLower(v)
	}
	return nil
}
