// Command roofer runs the per-building LoD 1.2/1.3/2.2 reconstruction
// pipeline over a tile: a point cloud plus a footprint dataset, writing one
// CityJSON feature stream per run. A Cobra root command with persistent
// flags bound to a config loader and an Execute() entry point, scoped to
// the single "run" operation the surrounding driver performs.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/arx-os/roofer/core/reconstruct"
	"github.com/arx-os/roofer/core/reconstruct/arrangement/extrude"
	"github.com/arx-os/roofer/core/reconstruct/model"
	"github.com/arx-os/roofer/internal/config"
	"github.com/arx-os/roofer/internal/geom"
	"github.com/arx-os/roofer/internal/logger"
	"github.com/arx-os/roofer/internal/pool"
	"github.com/arx-os/roofer/pkg/citymodel"
	apperrors "github.com/arx-os/roofer/pkg/errors"
	"github.com/arx-os/roofer/pkg/footprint"
	"github.com/arx-os/roofer/pkg/pointcloud"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	// Version information, set during build.
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

var (
	flagPointCloud  string
	flagFootprints  string
	flagOutput      string
	flagConfig      string
	flagConcurrency int
	flagLogLevel    string
)

var rootCmd = &cobra.Command{
	Use:   "roofer",
	Short: "Reconstruct LoD 1.2/1.3/2.2 building solids from LiDAR and footprints",
	Long: `roofer reconstructs watertight building solids at three Levels of Detail
(LoD 1.2, 1.3, 2.2) from an airborne LiDAR point cloud and a 2D footprint
polygon, writing the result as a newline-delimited CityJSON feature stream.

Point-cloud and footprint file reading, tile cropping, and multi-point-cloud
selection are the caller's responsibility; this binary reads an
XYZ text point cloud and a GeoJSON footprint collection as a reference
implementation of that caller.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Reconstruct every building footprint in a tile",
	RunE:  runTile,
}

func init() {
	runCmd.Flags().StringVar(&flagPointCloud, "tile", "", "XYZ point cloud file (required)")
	runCmd.Flags().StringVar(&flagFootprints, "footprints", "", "GeoJSON footprint FeatureCollection (required)")
	runCmd.Flags().StringVar(&flagOutput, "out", "", "output .city.jsonl path (required)")
	runCmd.Flags().StringVar(&flagConfig, "config", "", "optional YAML config file")
	runCmd.Flags().IntVar(&flagConcurrency, "concurrency", 0, "max buildings reconstructed concurrently (0 = unbounded)")
	runCmd.Flags().StringVar(&flagLogLevel, "log-level", "info", "debug, info, warn, or error")
	_ = runCmd.MarkFlagRequired("tile")
	_ = runCmd.MarkFlagRequired("footprints")
	_ = runCmd.MarkFlagRequired("out")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("roofer %s (built %s, commit %s)\n", Version, BuildDate, GitCommit)
	},
}

// SetVersion records build-time version metadata, set by the release
// build's -ldflags.
func SetVersion(version, buildDate, gitCommit string) {
	Version, BuildDate, GitCommit = version, buildDate, gitCommit
}

func runTile(cmd *cobra.Command, args []string) error {
	loader := config.NewLoader()
	if flagConfig != "" {
		loader.AddSource(config.NewFileSource(flagConfig, 0))
	}
	loader.AddSource(config.NewEnvSource("ROOFER", 10))
	cfg, err := loader.Load()
	if err != nil {
		return apperrors.NewAppError(apperrors.CodeInvalidInput, "loading config", err)
	}
	applyFlags(cfg)

	if errs := config.NewValidator().Validate(cfg); len(errs) > 0 {
		for _, e := range errs {
			logger.Error("config: %s", e.String())
		}
		return apperrors.NewAppError(apperrors.CodeInvalidInput,
			fmt.Sprintf("invalid configuration (%d error(s))", len(errs)), nil)
	}

	level := logger.INFO
	switch cfg.Logging.Level {
	case "debug":
		level = logger.DEBUG
	case "warn":
		level = logger.WARN
	case "error":
		level = logger.ERROR
	}
	logger.SetLevel(level)

	logger.Info("reading point cloud from %s", cfg.Tile.PointCloudPath)
	pc, err := pointcloud.ReadXYZFile(cfg.Tile.PointCloudPath)
	if err != nil {
		return apperrors.WrapIO(err, cfg.Tile.PointCloudPath)
	}
	points, err := pointcloud.ToPointSet(pc)
	if err != nil {
		return apperrors.WrapIO(err, cfg.Tile.PointCloudPath)
	}

	logger.Info("reading footprints from %s", cfg.Tile.FootprintPath)
	fpReader, err := footprint.ReadGeoJSONFile(cfg.Tile.FootprintPath)
	if err != nil {
		return apperrors.WrapIO(err, cfg.Tile.FootprintPath)
	}

	var buildings []footprint.Building
	if err := fpReader.Each(func(b footprint.Building) error {
		buildings = append(buildings, b)
		return nil
	}); err != nil {
		return apperrors.WrapIO(err, cfg.Tile.FootprintPath)
	}
	logger.Info("reconstructing %d building(s) at concurrency %d", len(buildings), cfg.Worker.Concurrency)

	out, err := os.Create(cfg.Tile.OutputPath)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer out.Close()

	writer := citymodel.NewWriter(out, citymodel.DefaultTransform(geomAnchor(points)))
	if err := writer.WriteMetadata(); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}

	results := make([]citymodel.Building, len(buildings))
	statuses := make([]model.Status, len(buildings))
	resultErrs := make([]error, len(buildings))
	counts := map[model.Status]int{}

	p := pool.New(cfg.Worker.Concurrency)
	jobs := make([]pool.Job, len(buildings))
	for i, b := range buildings {
		i, b := i, b
		jobs[i] = pool.Job{
			ID: b.ID,
			Run: func(ctx context.Context) (err error) {
				// A panic inside the core aborts this building only; the
				// driver continues to the next one.
				defer func() {
					if r := recover(); r != nil {
						err = apperrors.WrapNumeric(fmt.Errorf("%v", r), "reconstruct")
					}
				}()
				res := reconstructBuilding(ctx, points, b, cfg.Worker.PerBuildingMax, cfg.Reconstruct)
				id := b.ID
				if id == "" {
					id = uuid.NewString()
				}
				statuses[i] = res.Status
				resultErrs[i] = res.Err
				results[i] = citymodel.Building{
					ID:         id,
					Footprint:  b.ToModel(),
					LoDs:       res.LoDs,
					Attributes: res.Attributes,
				}
				return nil
			},
		}
	}
	poolResults := p.RunAll(context.Background(), jobs)
	for i, r := range poolResults {
		if r.Err != nil {
			logger.WarnFields("building failed", logger.Fields{
				"building_id": r.ID,
				"error":       r.Err,
				"code":        apperrors.CodeOf(r.Err),
			})
			continue
		}
		counts[statuses[i]]++
		fields := logger.Fields{
			"building_id": r.ID,
			"status":      statuses[i].String(),
			"extrusion":   results[i].Attributes.ExtrusionMode,
		}
		if code := apperrors.CodeOf(resultErrs[i]); code != "" {
			fields["code"] = code
		}
		logger.InfoFields("building reconstructed", fields)
		if err := writer.WriteBuilding(results[i]); err != nil {
			return fmt.Errorf("writing building %s: %w", r.ID, err)
		}
	}

	logger.InfoFields("tile complete", logger.Fields{
		"ok":           counts[model.StatusOk],
		"fallback":     counts[model.StatusFallback],
		"insufficient": counts[model.StatusInsufficient],
		"skipped":      counts[model.StatusSkipped],
	})
	return nil
}

// reconstructBuilding runs the core pipeline for one footprint with a
// driver-level timeout around the whole call; the core's own max_time_ms
// budget bounds only the arrangement/optimiser stages.
func reconstructBuilding(ctx context.Context, points model.PointSet, b footprint.Building, timeout time.Duration, cfg model.Config) model.Result {
	fp := b.ToModel()
	var floor model.FloorElevation = model.ConstantElevation(0)
	if cfg.OverrideWithFloorElevation && len(fp.ZValues) == len(fp.Outer) {
		floor = extrude.NewCDTFloorElevation(fp)
	}

	cropped := model.PointSet{Points: cropToFootprint(points.Points, fp, cfg.CellSize*4)}

	done := make(chan model.Result, 1)
	go func() {
		// The core runs on its own goroutine so the driver timeout can
		// fire; a panic here must surface as a per-building failure, not
		// crash the process.
		defer func() {
			if r := recover(); r != nil {
				done <- model.Result{
					Status:     model.StatusSkipped,
					Attributes: model.Attributes{ExtrusionMode: model.ExtrusionModeSkip},
					Err:        apperrors.WrapNumeric(fmt.Errorf("%v", r), "reconstruct"),
				}
			}
		}()
		done <- reconstruct.Reconstruct(cropped, fp, cfg, floor)
	}()

	if timeout <= 0 {
		return <-done
	}
	select {
	case res := <-done:
		return res
	case <-time.After(timeout):
		return model.Result{Status: model.StatusSkipped, Attributes: model.Attributes{ExtrusionMode: model.ExtrusionModeSkip, FallbackReason: "driver_timeout"}}
	case <-ctx.Done():
		return model.Result{Status: model.StatusSkipped, Attributes: model.Attributes{ExtrusionMode: model.ExtrusionModeSkip}}
	}
}

// cropToFootprint is a naive padded bounding-box filter, cheap enough for
// the CLI's in-memory pipeline even though a production driver would index
// the tile once (e.g. a grid or R-tree) rather than scanning it per building.
func cropToFootprint(points []model.Point, fp model.Footprint, pad float64) []model.Point {
	if len(fp.Outer) == 0 {
		return points
	}
	minX, minY := fp.Outer[0].X, fp.Outer[0].Y
	maxX, maxY := minX, minY
	for _, v := range fp.Outer {
		minX, maxX = min(minX, v.X), max(maxX, v.X)
		minY, maxY = min(minY, v.Y), max(maxY, v.Y)
	}
	minX, minY = minX-pad, minY-pad
	maxX, maxY = maxX+pad, maxY+pad

	out := make([]model.Point, 0, len(points))
	for _, p := range points {
		if p.X >= minX && p.X <= maxX && p.Y >= minY && p.Y <= maxY {
			out = append(out, p)
		}
	}
	return out
}

func applyFlags(cfg *config.Config) {
	if flagPointCloud != "" {
		cfg.Tile.PointCloudPath = flagPointCloud
	}
	if flagFootprints != "" {
		cfg.Tile.FootprintPath = flagFootprints
	}
	if flagOutput != "" {
		cfg.Tile.OutputPath = flagOutput
	}
	if flagConcurrency != 0 {
		cfg.Worker.Concurrency = flagConcurrency
	}
	if flagLogLevel != "" {
		cfg.Logging.Level = flagLogLevel
	}
}

// geomAnchor picks the tile's CityJSON transform anchor (the translate
// offset): the first point's position, the same approximation ReadXYZFile's
// caller already accepts since points arrive in the dataset's own local
// frame with no separate double-precision offset tracked alongside them
// (see pkg/pointcloud.Point).
func geomAnchor(points model.PointSet) geom.Vector3 {
	if len(points.Points) == 0 {
		return geom.Vector3{}
	}
	return points.Points[0].Vector()
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
