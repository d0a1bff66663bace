package snap

import (
	"testing"

	"github.com/stretchr/testify/assert"

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

// TestSnapNoopBelowThreshold confirms a zero SnapDistThresh leaves the
// arrangement untouched.
func TestSnapNoopBelowThreshold(t *testing.T) {
	cfg := model.DefaultConfig()
	fp := rectFootprint(10, 5)
	arr, _ := arrangement.NewBuilder(cfg).Build(fp, nil)
	wantVerts := len(arr.Vertices)

	cfg.SnapDistThresh = 0
	NewSnapper(cfg).Snap(arr)
	assert.Len(t, arr.Vertices, wantVerts)
}

// TestSnapPreservesTwinInvariant confirms that after snapping with a
// tiny (1e-6) threshold, every surviving half-edge still has a valid twin.
func TestSnapPreservesTwinInvariant(t *testing.T) {
	cfg := model.DefaultConfig()
	fp := rectFootprint(10, 5)
	split := exact.Segment{A: exact.NewPoint(5, 0), B: exact.NewPoint(5, 5)}
	arr, _ := arrangement.NewBuilder(cfg).Build(fp, []exact.Segment{split})

	cfg.SnapDistThresh = 1e-6
	NewSnapper(cfg).Snap(arr)

	for _, he := range arr.HalfEdges {
		twin := arr.HalfEdges[he.Twin]
		assert.Equal(t, he.ID, twin.Twin)
	}
}

// TestSnapMergesCoincidentVertices confirms two vertices within
// SnapDistThresh of each other collapse into one surviving vertex.
func TestSnapMergesCoincidentVertices(t *testing.T) {
	cfg := model.DefaultConfig()
	fp := rectFootprint(10, 5)
	arr, _ := arrangement.NewBuilder(cfg).Build(fp, nil)
	before := len(arr.Vertices)

	// duplicate the first vertex a hair's width away so it falls within a
	// generous snap threshold, mimicking the near-coincident vertices a
	// regularisation extension leaves behind.
	v0 := arr.Vertices[0]
	dup := v0
	dup.ID = len(arr.Vertices)
	x, y := v0.Pos.Float64()
	dup.Pos = exact.NewPoint(x+1e-9, y+1e-9)
	arr.Vertices = append(arr.Vertices, dup)

	cfg.SnapDistThresh = 1e-3
	NewSnapper(cfg).Snap(arr)
	assert.Len(t, arr.Vertices, before)
}
