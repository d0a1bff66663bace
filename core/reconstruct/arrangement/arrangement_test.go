package arrangement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arx-os/roofer/core/reconstruct/model"
	"github.com/arx-os/roofer/internal/geom"
	"github.com/arx-os/roofer/internal/geom/exact"
)

func rectFootprint(w, h float64) model.Footprint {
	return model.Footprint{Outer: []geom.Vector2{
		{X: 0, Y: 0}, {X: w, Y: 0}, {X: w, Y: h}, {X: 0, Y: h},
	}}
}

// TestBuildEmptyFootprintSingleFace confirms a footprint with no regularised
// segments produces exactly one bounded, in-footprint face.
func TestBuildEmptyFootprintSingleFace(t *testing.T) {
	b := NewBuilder(model.DefaultConfig())
	fp := rectFootprint(10, 5)

	arr, bounded := b.Build(fp, nil)
	require.Equal(t, 1, bounded)
	require.Len(t, arr.Faces, 1)
	assert.True(t, arr.Faces[0].InFootprint)
	assert.False(t, arr.Faces[0].IsFootprintHole)
}

// TestBuildInteriorSegmentSplitsFace confirms that inserting a segment that
// crosses the footprint splits it into two bounded faces.
func TestBuildInteriorSegmentSplitsFace(t *testing.T) {
	b := NewBuilder(model.DefaultConfig())
	fp := rectFootprint(10, 5)

	split := exact.Segment{A: exact.NewPoint(5, 0), B: exact.NewPoint(5, 5)}
	arr, bounded := b.Build(fp, []exact.Segment{split})

	require.Equal(t, 2, bounded)
	for _, f := range arr.Faces {
		if f.OuterComponent >= 0 {
			assert.True(t, f.InFootprint)
		}
	}
}

// TestEveryHalfEdgeHasTwin confirms every interior half-edge has a twin
// pointing back at it.
func TestEveryHalfEdgeHasTwin(t *testing.T) {
	b := NewBuilder(model.DefaultConfig())
	fp := rectFootprint(10, 5)
	arr, _ := b.Build(fp, nil)

	for _, he := range arr.HalfEdges {
		twin := arr.HalfEdges[he.Twin]
		assert.Equal(t, he.ID, twin.Twin)
	}
}
