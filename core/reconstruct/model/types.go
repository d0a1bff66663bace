// Package model holds the data model types shared by every stage of the
// reconstruction pipeline, isolated from core/reconstruct
// itself so that the individual stage packages (planes, alpha, lines,
// regularize, raster, arrangement, mesh) can depend on the shared types
// without an import cycle back to the orchestrating package.
package model

import (
	"time"

	"github.com/arx-os/roofer/internal/geom"
)

// Point is a single LiDAR point in local f32-precision coordinates (stored
// here as float64 since Go has no native narrow float arithmetic; callers
// are expected to have already quantised to the anchor's local frame).
type Point struct {
	X, Y, Z        float64
	Classification uint8 // e.g. 2 = ground, 6 = building, per ASPRS LAS codes
}

// Vector returns p's position as a geom.Vector3.
func (p Point) Vector() geom.Vector3 { return geom.Vector3{X: p.X, Y: p.Y, Z: p.Z} }

// PointSet is an ordered collection of points sharing one double-precision
// anchor, maintained by the caller outside this package.
type PointSet struct {
	Points []Point
}

// Vectors returns the set's points as geom.Vector3, discarding
// classification.
func (s PointSet) Vectors() []geom.Vector3 {
	out := make([]geom.Vector3, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Vector()
	}
	return out
}

// Plane is a detected roof or ground plane: unit-normal coefficients plus
// the inlier points it was fit from. Id 0 is reserved for "no plane" /
// unsegmented.
type Plane struct {
	ID      int
	Coeffs  geom.Plane3
	Inliers []int // indices into the PointSet the plane was fit from
}

// PlaneSet maps plane id to its detected plane, the shape every
// plane-consuming stage (alpha shaping, intersection, optimisation) takes.
type PlaneSet map[int]*Plane

// PlaneAdjacency is the sparse symmetric map (id_i, id_j) -> neighbouring
// inlier-pair count used to gate plane-plane intersection. Keys are always
// stored with the larger id first.
type PlaneAdjacency map[PlanePair]int

// PlanePair is an unordered pair of plane ids, with Hi >= Lo.
type PlanePair struct {
	Hi, Lo int
}

// NewPlanePair builds a PlanePair with the larger id first.
func NewPlanePair(a, b int) PlanePair {
	if a < b {
		a, b = b, a
	}
	return PlanePair{Hi: a, Lo: b}
}

// Add increments the adjacency count between two distinct, non-zero plane
// ids.
func (adj PlaneAdjacency) Add(a, b int) {
	if a == 0 || b == 0 || a == b {
		return
	}
	adj[NewPlanePair(a, b)]++
}

// AlphaRing is a closed 3D polygon (no interior rings) approximating the
// concave hull of one plane's inliers.
type AlphaRing struct {
	PlaneID  int
	Vertices []geom.Vector3 // CCW viewed from +normal, first != last
}

// AlphaTriangle is one retained Delaunay triangle of a plane's alpha shape,
// lifted back to 3D.
type AlphaTriangle struct {
	PlaneID int
	A, B, C geom.Vector3
}

// Segment3 is a pair of 3D endpoints carrying the origin priority used
// during regularisation (1 = detected boundary, 2 = plane-plane
// intersection; higher wins ties).
type Segment3 struct {
	A, B     geom.Vector3
	PlaneID  int // source plane (boundary segments) or the higher plane id (intersections)
	PlaneIDB int // lower plane id for intersection segments, else -1
	Priority int
	Ridge    bool // true for intersection segments flagged as ridgelines
}

// RoofType classifies a building's detected plane population.
type RoofType string

const (
	RoofTypeNoPoints           RoofType = "no points"
	RoofTypeNoPlanes           RoofType = "no planes"
	RoofTypeHorizontal         RoofType = "horizontal"
	RoofTypeMultipleHorizontal RoofType = "multiple horizontal"
	RoofTypeSlanted            RoofType = "slanted"
)

// ElevationStats holds the percentile/min/max elevation summary attached
// to faces and to the overall roof.
type ElevationStats struct {
	Min, Max float64
	P50, P70 float64
	P97      float64
}

// SurfaceType labels a mesh ring by its role in the solid.
type SurfaceType int

const (
	SurfaceGround SurfaceType = iota
	SurfaceRoof
	SurfaceWallOuter
	SurfaceWallInner
)

func (s SurfaceType) String() string {
	switch s {
	case SurfaceGround:
		return "GroundSurface"
	case SurfaceRoof:
		return "RoofSurface"
	case SurfaceWallOuter:
		return "WallSurface"
	case SurfaceWallInner:
		return "InteriorWallSurface"
	default:
		return "UnknownSurface"
	}
}

// LinearRing is a 3D ring (exterior or hole) used by meshes.
type LinearRing struct {
	Vertices []geom.Vector3
	Holes    [][]geom.Vector3
}

// MeshSurface is one labelled polygon of a building solid.
type MeshSurface struct {
	Ring    LinearRing
	Surface SurfaceType
}

// Mesh is the ordered list of labelled surfaces making up one building
// part's solid.
type Mesh []MeshSurface

// MultiSolid maps a building part id to its solid.
type MultiSolid map[int]Mesh

// LoD enumerates the three levels of detail this pipeline produces.
type LoD int

const (
	LoD12 LoD = 12
	LoD13 LoD = 13
	LoD22 LoD = 22
)

// Footprint is the 2D building outline reconstruct() is handed by the
// caller: an outer ring wound CCW
// plus zero or more hole rings wound CW. ZValues, when non-empty, carries
// one elevation per Outer vertex for the CDT-interpolated FloorElevation
// variant.
type Footprint struct {
	Outer   []geom.Vector2
	Holes   [][]geom.Vector2
	ZValues []float64
}

// FloorElevation supplies the solids' ground height at a plan position.
// Constant and CDT-interpolated implementations exist; the extruder is
// generic over this capability.
type FloorElevation interface {
	ElevationAt(x, y float64) float64
}

// ConstantElevation implements FloorElevation with a single fixed z.
type ConstantElevation float64

// ElevationAt implements FloorElevation.
func (c ConstantElevation) ElevationAt(float64, float64) float64 { return float64(c) }

// Status is the top-level outcome of a reconstruction call.
type Status int

const (
	StatusOk Status = iota
	StatusInsufficient
	StatusFallback
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusOk:
		return "Ok"
	case StatusInsufficient:
		return "Insufficient"
	case StatusFallback:
		return "Fallback"
	case StatusSkipped:
		return "Skipped"
	default:
		return "Unknown"
	}
}

// ExtrusionMode records which extrusion path produced the returned solids.
type ExtrusionMode string

const (
	ExtrusionModeStandard      ExtrusionMode = "standard"
	ExtrusionModeLoD11Fallback ExtrusionMode = "lod11_fallback"
	ExtrusionModeSkip          ExtrusionMode = "skip"
)

// Attributes is the per-building attribute row returned alongside the
// geometry.
type Attributes struct {
	RoofType        RoofType
	RoofElevation   ElevationStats
	RMSELoD12       float64
	RMSELoD13       float64
	RMSELoD22       float64
	VolumeLoD12     float64
	VolumeLoD13     float64
	VolumeLoD22     float64
	ValidLoD12      bool
	ValidLoD13      bool
	ValidLoD22      bool
	ExtrusionMode   ExtrusionMode
	FallbackReason  string // why the standard path was abandoned: "face_count", "time_budget", "degenerate_footprint", "driver_timeout" (set by cmd/roofer), or ""
	PlaneClusters   int    // connected components of the roof plane-adjacency graph
}

// Result is the return value of Reconstruct.
type Result struct {
	LoDs       map[LoD]MultiSolid
	Attributes Attributes
	Status     Status
	Duration   time.Duration

	// Err carries the typed reason behind a non-Ok Status (insufficient
	// data, degenerate input, budget exceeded) as a pkg/errors AppError,
	// so drivers can branch on the code with errors.As. Nil when Status
	// is Ok.
	Err error
}
