package extrude

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arx-os/roofer/core/reconstruct/arrangement"
	"github.com/arx-os/roofer/core/reconstruct/model"
	"github.com/arx-os/roofer/internal/geom"
	"github.com/arx-os/roofer/internal/geom/exact"
)

func rectFootprint(w, h float64) model.Footprint {
	return model.Footprint{Outer: []geom.Vector2{
		{X: 0, Y: 0}, {X: w, Y: 0}, {X: w, Y: h}, {X: 0, Y: h},
	}}
}

// TestPrismSurfaceCounts confirms Prism emits one roof ring, one ground
// ring, and one wall quad per footprint edge.
func TestPrismSurfaceCounts(t *testing.T) {
	fp := rectFootprint(10, 5)
	mesh := Prism(fp, model.ConstantElevation(0), 3.0)

	var roofs, grounds, walls int
	for _, s := range mesh {
		switch s.Surface {
		case model.SurfaceRoof:
			roofs++
			for _, v := range s.Ring.Vertices {
				assert.Equal(t, 3.0, v.Z)
			}
		case model.SurfaceGround:
			grounds++
			for _, v := range s.Ring.Vertices {
				assert.Equal(t, 0.0, v.Z)
			}
		case model.SurfaceWallOuter:
			walls++
		}
	}
	assert.Equal(t, 1, roofs)
	assert.Equal(t, 1, grounds)
	assert.Equal(t, len(fp.Outer), walls)
}

// TestPrismHoleProducesInnerWalls confirms a footprint courtyard hole gets
// its own set of wall quads labelled SurfaceWallInner.
func TestPrismHoleProducesInnerWalls(t *testing.T) {
	fp := rectFootprint(10, 10)
	fp.Holes = [][]geom.Vector2{{
		{X: 2, Y: 2}, {X: 4, Y: 2}, {X: 4, Y: 4}, {X: 2, Y: 4},
	}}
	mesh := Prism(fp, model.ConstantElevation(0), 3.0)

	var innerWalls int
	for _, s := range mesh {
		if s.Surface == model.SurfaceWallInner {
			innerWalls++
		}
	}
	assert.Equal(t, len(fp.Holes[0]), innerWalls)

	for _, s := range mesh {
		if s.Surface == model.SurfaceGround {
			require.Len(t, s.Ring.Holes, 1)
		}
	}
}

// TestExtrudeEmitsStepWallBetweenUnequalRoofs confirms that two adjacent
// faces assigned planes at different heights get an interior wall quad
// spanning the elevation difference, so the
// stepped solid stays watertight.
func TestExtrudeEmitsStepWallBetweenUnequalRoofs(t *testing.T) {
	cfg := model.DefaultConfig()
	fp := rectFootprint(10, 5)
	split := exact.Segment{A: exact.NewPoint(5, 0), B: exact.NewPoint(5, 5)}
	arr, bounded := arrangement.NewBuilder(cfg).Build(fp, []exact.Segment{split})
	require.Equal(t, 2, bounded)

	planes := []geom.Plane3{{C: 1, D: -3}, {C: 1, D: -6}}
	i := 0
	for fi := range arr.Faces {
		if arr.Faces[fi].OuterComponent >= 0 && arr.Faces[fi].InFootprint {
			arr.Faces[fi].Plane = planes[i%2]
			i++
		}
	}

	solids := NewExtruder(cfg).Extrude(arr, model.LoD22, model.ConstantElevation(0))
	require.Len(t, solids, 1)

	var stepWalls int
	for _, s := range solids[0] {
		if s.Surface != model.SurfaceWallInner {
			continue
		}
		stepWalls++
		zs := map[float64]bool{}
		for _, v := range s.Ring.Vertices {
			zs[v.Z] = true
		}
		assert.True(t, zs[3.0] && zs[6.0], "step wall must span both roof heights")
	}
	assert.Equal(t, 1, stepWalls)
}

// TestCDTFloorElevationInterpolatesAtCentroid confirms the centroid-fan
// floor sampler reproduces the average corner elevation at the ring's own
// centroid.
func TestCDTFloorElevationInterpolatesAtCentroid(t *testing.T) {
	fp := model.Footprint{
		Outer:   []geom.Vector2{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 4}, {X: 0, Y: 4}},
		ZValues: []float64{0, 0, 4, 4},
	}
	floor := NewCDTFloorElevation(fp)
	z := floor.ElevationAt(2, 2)
	assert.InDelta(t, 2.0, z, 1e-6)
}

// TestCDTFloorElevationFallsBackOutsideRing confirms points outside every
// fan triangle still return a finite elevation via nearest-vertex fallback.
func TestCDTFloorElevationFallsBackOutsideRing(t *testing.T) {
	fp := model.Footprint{
		Outer:   []geom.Vector2{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 4}, {X: 0, Y: 4}},
		ZValues: []float64{1, 2, 3, 4},
	}
	floor := NewCDTFloorElevation(fp)
	z := floor.ElevationAt(100, 100)
	assert.Contains(t, []float64{1, 2, 3, 4}, z)
}
