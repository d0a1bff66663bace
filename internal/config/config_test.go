package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	cfg.Tile.PointCloudPath = "tile.las"
	cfg.Tile.FootprintPath = "footprints.json"
	assert.Empty(t, NewValidator().Validate(cfg))
}

func TestFileSourceMissingFileIsNotAnError(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "absent.yaml"), 10)
	cfg := Default()
	assert.NoError(t, src.Apply(cfg))
}

func TestFileSourceOverridesOnlyWhatItSets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roofer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tile:\n  output_path: custom.jsonl\n"), 0o644))

	cfg := Default()
	cfg.Worker.Concurrency = 4
	require.NoError(t, NewFileSource(path, 10).Apply(cfg))

	assert.Equal(t, "custom.jsonl", cfg.Tile.OutputPath)
	assert.Equal(t, 4, cfg.Worker.Concurrency, "unset keys must not be zeroed")
}

func TestEnvSourceOverridesTileAndWorker(t *testing.T) {
	t.Setenv("ROOFER_TILE_OUTPUT_PATH", "env.jsonl")
	t.Setenv("ROOFER_WORKER_CONCURRENCY", "8")

	cfg := Default()
	require.NoError(t, NewEnvSource("ROOFER", 20).Apply(cfg))

	assert.Equal(t, "env.jsonl", cfg.Tile.OutputPath)
	assert.Equal(t, 8, cfg.Worker.Concurrency)
}

func TestEnvSourceRejectsMalformedConcurrency(t *testing.T) {
	t.Setenv("ROOFER_WORKER_CONCURRENCY", "not-a-number")
	cfg := Default()
	assert.Error(t, NewEnvSource("ROOFER", 20).Apply(cfg))
}

func TestLoaderAppliesHighestPriorityLast(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roofer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tile:\n  output_path: from-file.jsonl\n"), 0o644))
	t.Setenv("ROOFER_TILE_OUTPUT_PATH", "from-env.jsonl")

	loader := NewLoader()
	loader.AddSource(NewEnvSource("ROOFER", 20))
	loader.AddSource(NewFileSource(path, 10))

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env.jsonl", cfg.Tile.OutputPath, "env has higher priority and must apply last")
}

func TestValidatorReportsMissingTilePaths(t *testing.T) {
	cfg := Default()
	errs := NewValidator().Validate(cfg)
	fields := map[string]bool{}
	for _, e := range errs {
		fields[e.Field] = true
	}
	assert.True(t, fields["tile.point_cloud_path"])
	assert.True(t, fields["tile.footprint_path"])
}

func TestValidatorCatchesNegativeWorkerConcurrency(t *testing.T) {
	cfg := Default()
	cfg.Tile.PointCloudPath = "t.las"
	cfg.Tile.FootprintPath = "f.json"
	cfg.Worker.Concurrency = -1
	errs := NewValidator().Validate(cfg)
	require.Len(t, errs, 1)
	assert.Equal(t, "worker.concurrency", errs[0].Field)
}

func TestValidatorCatchesBadReconstructTunables(t *testing.T) {
	cfg := Default()
	cfg.Tile.PointCloudPath = "t.las"
	cfg.Tile.FootprintPath = "f.json"
	cfg.Reconstruct.PlaneMinPoints = 0
	errs := NewValidator().Validate(cfg)
	found := false
	for _, e := range errs {
		if e.Field == "reconstruct.plane_min_points" {
			found = true
		}
	}
	assert.True(t, found)
}
