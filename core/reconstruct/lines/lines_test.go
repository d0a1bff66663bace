package lines

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arx-os/roofer/core/reconstruct/model"
	"github.com/arx-os/roofer/internal/geom"
)

func TestDetectRingSquare(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.LineMinCntRange = 2
	cfg.LineDetectEpsilon = 0.05
	cfg.LineDetectK = 4
	d := NewDetector(cfg)

	basis := geom.NewPlaneBasis(geom.Plane3{A: 0, B: 0, C: 1, D: 0}, geom.Vector3{})
	ring := model.AlphaRing{
		PlaneID: 1,
		Vertices: []geom.Vector3{
			{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 2, Y: 0, Z: 0},
			{X: 2, Y: 1, Z: 0}, {X: 2, Y: 2, Z: 0},
			{X: 1, Y: 2, Z: 0}, {X: 0, Y: 2, Z: 0},
			{X: 0, Y: 1, Z: 0},
		},
	}
	segs := d.DetectRing(ring, basis)
	assert.NotEmpty(t, segs)
	for _, s := range segs {
		assert.Equal(t, 1, s.PlaneID)
		assert.Equal(t, 1, s.Priority)
	}
}

func TestDetectRingTooFewVertices(t *testing.T) {
	cfg := model.DefaultConfig()
	d := NewDetector(cfg)
	basis := geom.NewPlaneBasis(geom.Plane3{A: 0, B: 0, C: 1}, geom.Vector3{})
	segs := d.DetectRing(model.AlphaRing{Vertices: []geom.Vector3{{}, {}}}, basis)
	assert.Nil(t, segs)
}

func TestIntersectPerpendicularPlanes(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.MinNeighbPts = 1
	cfg.MinIntersectLen = 0.1
	in := NewIntersector(cfg)

	// two slanted planes meeting along the x=0 ridge, z = 1 - |x|-ish
	planeA := &model.Plane{ID: 2, Coeffs: geom.Plane3{A: 1, B: 0, C: 1, D: 0}.OrientOutward(geom.Vector3{Z: 1})}
	planeB := &model.Plane{ID: 1, Coeffs: geom.Plane3{A: -1, B: 0, C: 1, D: 0}.OrientOutward(geom.Vector3{Z: 1})}
	normA := geom.Vector3{X: 1, Y: 0, Z: 1}.Normalize()
	normB := geom.Vector3{X: -1, Y: 0, Z: 1}.Normalize()
	planeA.Coeffs = geom.Plane3{A: normA.X, B: normA.Y, C: normA.Z, D: 0}
	planeB.Coeffs = geom.Plane3{A: normB.X, B: normB.Y, C: normB.Z, D: 0}

	var pts []model.Point
	for y := -5; y <= 5; y++ {
		pts = append(pts, model.Point{X: 0, Y: float64(y), Z: 0})
	}
	planeA.Inliers = rangeInts(0, len(pts))
	planeB.Inliers = rangeInts(0, len(pts))

	planes := model.PlaneSet{1: planeB, 2: planeA}
	adjacency := model.PlaneAdjacency{model.NewPlanePair(1, 2): 5}

	segs := in.Intersect(planes, adjacency, model.PointSet{Points: pts})
	require.Len(t, segs, 1)
	assert.Equal(t, 2, segs[0].Priority)
	assert.True(t, segs[0].Ridge, "horizontal intersection of two slanted planes is a ridgeline")
}

// TestIntersectFlatPlaneIsNotRidge confirms the ridgeline flag stays false
// when one incident plane is horizontal, even though the intersection line
// itself is horizontal.
func TestIntersectFlatPlaneIsNotRidge(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.MinNeighbPts = 1
	cfg.MinIntersectLen = 0.1
	in := NewIntersector(cfg)

	normA := geom.Vector3{X: 1, Y: 0, Z: 1}.Normalize()
	planeA := &model.Plane{ID: 2, Coeffs: geom.Plane3{A: normA.X, B: normA.Y, C: normA.Z, D: 0}}
	planeB := &model.Plane{ID: 1, Coeffs: geom.Plane3{C: 1, D: 0}}

	var pts []model.Point
	for y := -5; y <= 5; y++ {
		pts = append(pts, model.Point{X: 0, Y: float64(y), Z: 0})
	}
	planeA.Inliers = rangeInts(0, len(pts))
	planeB.Inliers = rangeInts(0, len(pts))

	planes := model.PlaneSet{1: planeB, 2: planeA}
	adjacency := model.PlaneAdjacency{model.NewPlanePair(1, 2): 5}

	segs := in.Intersect(planes, adjacency, model.PointSet{Points: pts})
	require.Len(t, segs, 1)
	assert.False(t, segs[0].Ridge)
}

// TestIntersectRejectsDistantLine confirms an intersection line farther than
// MinDistToLine from every inlier is discarded.
func TestIntersectRejectsDistantLine(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.MinNeighbPts = 1
	cfg.MinIntersectLen = 0.1
	cfg.MinDistToLine = 1.0
	in := NewIntersector(cfg)

	normA := geom.Vector3{X: 1, Y: 0, Z: 1}.Normalize()
	normB := geom.Vector3{X: -1, Y: 0, Z: 1}.Normalize()
	planeA := &model.Plane{ID: 2, Coeffs: geom.Plane3{A: normA.X, B: normA.Y, C: normA.Z, D: 0}}
	planeB := &model.Plane{ID: 1, Coeffs: geom.Plane3{A: normB.X, B: normB.Y, C: normB.Z, D: 0}}

	// every inlier sits 5*sqrt(2) (about 7.07m) off the x=0, z=0 intersection line
	var pts []model.Point
	for y := -5; y <= 5; y++ {
		pts = append(pts, model.Point{X: 5, Y: float64(y), Z: -5})
	}
	planeA.Inliers = rangeInts(0, len(pts))
	planeB.Inliers = rangeInts(0, len(pts))

	planes := model.PlaneSet{1: planeB, 2: planeA}
	adjacency := model.PlaneAdjacency{model.NewPlanePair(1, 2): 5}

	segs := in.Intersect(planes, adjacency, model.PointSet{Points: pts})
	assert.Empty(t, segs)
}

func rangeInts(from, to int) []int {
	out := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, i)
	}
	return out
}
