package model

import (
	"github.com/arx-os/roofer/internal/geom"
	"github.com/arx-os/roofer/internal/geom/exact"
)

// Arrangement is the planar straight-line graph (doubly connected edge list)
// the regularised line segments are embedded into, held entirely in exact
// rational coordinates. It is shared by every arrangement-stage
// subpackage: the builder constructs it, optimize assigns Labels, dissolve
// merges Faces, snap rewrites Vertices, and extrude consumes the final
// Faces.
type Arrangement struct {
	Vertices  []ArrVertex
	HalfEdges []ArrHalfEdge
	Faces     []ArrFace
}

// ArrVertex is one DCEL vertex, keyed by its exact position.
type ArrVertex struct {
	ID       int
	Pos      exact.Point
	OutEdges []int // half-edge ids originating here, in insertion order
}

// ArrHalfEdge is one directed DCEL half-edge.
type ArrHalfEdge struct {
	ID     int
	Origin int // vertex id
	Twin   int // opposite half-edge id
	Next   int // next half-edge around Face, CCW
	Prev   int
	Face   int // incident face id (to the left of Origin->Twin.Origin)

	// SourcePlaneID/SourcePlaneIDB tag the edge's origin as set by the
	// builder: SourcePlaneID is 0 on footprint boundary edges and -1 on
	// inserted regularised edges, SourcePlaneIDB is always -1. The optimiser
	// does not read them.
	SourcePlaneID  int
	SourcePlaneIDB int
	Priority       int
	Ridge          bool

	// Blocks forbids ArrangementDissolver from merging across this edge.
	// The builder sets it on footprint boundary edges only; inserted
	// regularised edges carry no ridgeline tag, so they never block.
	Blocks bool

	// EdgeWeight is the precomputed Euclidean length used as the
	// smoothness term's edge weight in ArrangementOptimiser.
	EdgeWeight float64
}

// ArrFace is one DCEL face (a candidate roof facet, or the unbounded outer
// face when OuterComponent == -1).
type ArrFace struct {
	ID              int
	OuterComponent  int // half-edge id of the outer boundary, -1 for the unbounded face
	InnerComponents []int

	// InFootprint is true iff the face lies strictly inside the outer
	// footprint and outside any hole.
	InFootprint bool

	// IsFootprintHole marks a face carved out by one of the footprint's
	// hole rings; mutually exclusive with InFootprint.
	IsFootprintHole bool

	// IsGround is set by the optimiser when the face's assigned label is a
	// ground plane.
	IsGround bool

	// Plane is the plane assigned by the optimiser: the face's "label",
	// materialised as a geometric plane once optimisation ends.
	Plane geom.Plane3

	// Label is a transient index into the label vector during
	// optimisation; dropped (left at 0) once the
	// optimiser has copied its result into Plane.
	Label int

	// Elevation holds the heightfield-derived percentile/min/max summary
	// for the pixels covered by this face.
	Elevation ElevationStats

	// PixelCount and DataCoverage record how much heightfield data backs
	// this face's elevation summary.
	PixelCount   int
	DataCoverage float64

	// PartID groups connected in-footprint faces (whatever their plane)
	// into components after dissolve; distinct PartIDs become distinct building
	// parts / MultiSolid entries.
	PartID int

	// Dissolved marks a face removed by dissolve's rewriting passes (its
	// DCEL entry is kept, not compacted, so HalfEdge.Face references stay
	// valid until a final compaction pass).
	Dissolved bool
}

// EdgeLoop follows Next from startHalfEdge and returns the half-edge cycle
// it closes, bounded defensively so a corrupted Next chain cannot loop
// forever.
func (a *Arrangement) EdgeLoop(startHalfEdge int) []int {
	if startHalfEdge < 0 {
		return nil
	}
	var loop []int
	e := startHalfEdge
	for {
		loop = append(loop, e)
		e = a.HalfEdges[e].Next
		if e == startHalfEdge || len(loop) > len(a.HalfEdges)+1 {
			break
		}
	}
	return loop
}
