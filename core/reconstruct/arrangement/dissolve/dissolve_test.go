package dissolve

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

func countBounded(arr *model.Arrangement) int {
	n := 0
	for _, f := range arr.Faces {
		if !f.Dissolved && f.OuterComponent >= 0 && f.InFootprint {
			n++
		}
	}
	return n
}

// TestDissolveSegEdgesMergesSamePlaneFaces confirms two adjacent faces
// carrying the same assigned plane dissolve into one.
func TestDissolveSegEdgesMergesSamePlaneFaces(t *testing.T) {
	cfg := model.DefaultConfig()
	fp := rectFootprint(10, 5)
	split := exact.Segment{A: exact.NewPoint(5, 0), B: exact.NewPoint(5, 5)}
	arr, bounded := arrangement.NewBuilder(cfg).Build(fp, []exact.Segment{split})
	require.Equal(t, 2, bounded)

	plane := geom.Plane3{C: 1, D: -3}
	for i := range arr.Faces {
		if arr.Faces[i].OuterComponent >= 0 && arr.Faces[i].InFootprint {
			arr.Faces[i].Plane = plane
		}
	}

	out := NewDissolver(cfg).Dissolve(arr, model.LoD22)
	assert.Equal(t, 1, countBounded(out))
}

// TestDissolveSegEdgesLeavesDifferentPlanesSeparate confirms LoD 2.2,
// which runs only the same-plane seg-edge pass, leaves two faces with
// distinct planes apart.
func TestDissolveSegEdgesLeavesDifferentPlanesSeparate(t *testing.T) {
	cfg := model.DefaultConfig()
	fp := rectFootprint(10, 5)
	split := exact.Segment{A: exact.NewPoint(5, 0), B: exact.NewPoint(5, 5)}
	arr, bounded := arrangement.NewBuilder(cfg).Build(fp, []exact.Segment{split})
	require.Equal(t, 2, bounded)

	planes := []geom.Plane3{{C: 1, D: -3}, {C: 1, D: -5}}
	i := 0
	for fi := range arr.Faces {
		if arr.Faces[fi].OuterComponent >= 0 && arr.Faces[fi].InFootprint {
			arr.Faces[fi].Plane = planes[i%2]
			i++
		}
	}

	out := NewDissolver(cfg).Dissolve(arr, model.LoD22)
	assert.Equal(t, 2, countBounded(out))
}

// TestDissolveAllInteriorCollapsesLoD12 confirms LoD 1.2's final pass
// merges every remaining interior edge regardless of plane, leaving a
// single face even when the two faces disagree on elevation.
func TestDissolveAllInteriorCollapsesLoD12(t *testing.T) {
	cfg := model.DefaultConfig()
	fp := rectFootprint(10, 5)
	split := exact.Segment{A: exact.NewPoint(5, 0), B: exact.NewPoint(5, 5)}
	arr, _ := arrangement.NewBuilder(cfg).Build(fp, []exact.Segment{split})

	planes := []geom.Plane3{{C: 1, D: -3}, {C: 1, D: -5}}
	elevations := []float64{3, 10} // 7m apart, more than the LoD 1.3 step threshold
	i := 0
	for fi := range arr.Faces {
		if arr.Faces[fi].OuterComponent >= 0 && arr.Faces[fi].InFootprint {
			arr.Faces[fi].Plane = planes[i%2]
			arr.Faces[fi].Elevation.P70 = elevations[i%2]
			i++
		}
	}

	out := NewDissolver(cfg).Dissolve(arr, model.LoD12)
	assert.Equal(t, 1, countBounded(out))
}
