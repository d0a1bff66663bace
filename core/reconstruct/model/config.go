package model

// Config collects every reconstruction tunable. Zero values are not valid
// configuration; use DefaultConfig and override as needed.
type Config struct {
	// Lambda is the data-vs-smoothness trade-off in [0,1]; data_multiplier =
	// Lambda, smoothness_multiplier = 1-Lambda.
	Lambda float64

	// ClipGround, when true, removes ground-labelled faces from the roof
	// solid.
	ClipGround bool

	// LoD13StepHeight is the elevation-70p merge threshold for the LoD 1.3
	// dissolve pass.
	LoD13StepHeight float64

	// Plane detection.
	PlaneK            int
	PlaneMinPoints    int
	PlaneEpsilon      float64
	PlaneNormalAngle  float64
	PlaneHorizThresh  float64
	PlaneStrategy     PlaneStrategy
	PlaneRANSACIters  int
	PlaneSeed         uint64

	// LineDetectEpsilon is the alpha-ring line-fit distance threshold.
	LineDetectEpsilon float64
	LineDetectK       int
	LineMinCntRange   int
	LineExtend        float64
	LinePerformChain  bool

	// ThresAlpha is the AlphaShaper's alpha threshold.
	ThresAlpha           float64
	OptimiseAlphaIfNeeded bool

	// ThresRegLineDist/Ext are the LineRegulariser's clustering/extension
	// distances.
	ThresRegLineDist   float64
	ThresRegLineExt    float64
	RegAngleThreshold  float64

	// PlaneIntersector.
	MinNeighbPts      int
	MinIntersectLen   float64
	MinDistToLine     float64
	ThresHorizontality float64

	// Rasteriser.
	CellSize       float64
	FillNodataRadius int

	// MaxArrComplexity and MaxTimeMs are the two per-building budgets:
	// exceeding either aborts the standard path for the LoD 1.1-style
	// fallback prism.
	MaxArrComplexity uint32
	MaxTimeMs        uint32

	// OverrideWithFloorElevation, when true, makes the driver build a
	// CDT-interpolated FloorElevation from the footprint's per-vertex z
	// values, provided it carries exactly one per outer vertex; otherwise
	// the constant floor is used. Reconstruct itself does not read it.
	OverrideWithFloorElevation bool

	// ComplexityFactor in [0,1] scales the allowed graph-cut detail. Its
	// exact interaction with Lambda is an open question; this
	// implementation treats it as a reserved multiplier applied to
	// MaxArrComplexity.
	ComplexityFactor float64

	// InsertWithSnap enables snap-on-insert in ArrangementBuilder;
	// SnapToleranceExp sets the tolerance exponent (merge radius
	// sqrt(2)*10^-SnapToleranceExp).
	InsertWithSnap   bool
	SnapToleranceExp int

	// SnapDistThresh is ArrangementSnapper's minimum edge length
	// (default 5mm).
	SnapDistThresh float64
}

// PlaneStrategy selects the PlaneDetector algorithm.
type PlaneStrategy int

const (
	PlaneStrategyRegionGrowing PlaneStrategy = iota
	PlaneStrategyRANSAC
)

// DefaultConfig returns the per-component defaults.
func DefaultConfig() Config {
	return Config{
		Lambda:                0.5,
		ClipGround:            true,
		LoD13StepHeight:       3.0,
		PlaneK:                15,
		PlaneMinPoints:        15,
		PlaneEpsilon:          0.3,
		PlaneNormalAngle:      0.75,
		PlaneHorizThresh:      0.995,
		PlaneStrategy:         PlaneStrategyRegionGrowing,
		PlaneRANSACIters:      500,
		PlaneSeed:             1,
		LineDetectEpsilon:     0.4,
		LineDetectK:           10,
		LineMinCntRange:       7,
		LineExtend:            0.05,
		LinePerformChain:      true,
		ThresAlpha:            0.25,
		OptimiseAlphaIfNeeded: true,
		ThresRegLineDist:      0.5,
		ThresRegLineExt:       1.0,
		RegAngleThreshold:     0.15,
		MinNeighbPts:          5,
		MinIntersectLen:       0.5,
		MinDistToLine:         1.0,
		ThresHorizontality:    5.0,
		CellSize:              0.05,
		FillNodataRadius:      5,
		MaxArrComplexity:      400,
		MaxTimeMs:             5000,
		ComplexityFactor:      1.0,
		InsertWithSnap:        true,
		SnapToleranceExp:      6,
		SnapDistThresh:        0.005,
	}
}
