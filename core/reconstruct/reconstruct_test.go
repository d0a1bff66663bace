package reconstruct

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arx-os/roofer/core/reconstruct/model"
	"github.com/arx-os/roofer/internal/geom"
	apperrors "github.com/arx-os/roofer/pkg/errors"
)

// flatRoofPoints samples a dense grid of roof points at a single height.
func flatRoofPoints(width, depth, z, step float64) model.PointSet {
	var pts []model.Point
	for x := 0.0; x <= width; x += step {
		for y := 0.0; y <= depth; y += step {
			pts = append(pts, model.Point{X: x, Y: y, Z: z, Classification: 6})
		}
	}
	return model.PointSet{Points: pts}
}

func rectangleFootprint(width, depth float64) model.Footprint {
	return model.Footprint{Outer: []geom.Vector2{
		{X: 0, Y: 0}, {X: width, Y: 0}, {X: width, Y: depth}, {X: 0, Y: depth},
	}}
}

// TestReconstructFlatRectangle runs the full pipeline end to end:
// a flat rectangular roof over a rectangular footprint with no ground
// points reconstructs to a single box of volume width*depth*height at every
// LoD, since one horizontal plane collapses all three LoDs to the same
// prism.
func TestReconstructFlatRectangle(t *testing.T) {
	points := flatRoofPoints(10, 5, 3.0, 0.4)
	footprint := rectangleFootprint(10, 5)
	cfg := model.DefaultConfig()

	res := Reconstruct(points, footprint, cfg, model.ConstantElevation(0))

	require.Equal(t, model.StatusOk, res.Status)
	assert.Equal(t, model.RoofTypeHorizontal, res.Attributes.RoofType)
	assert.Equal(t, model.ExtrusionModeStandard, res.Attributes.ExtrusionMode)

	for _, lod := range []model.LoD{model.LoD12, model.LoD13, model.LoD22} {
		solid, ok := res.LoDs[lod]
		require.True(t, ok, "missing LoD %d", lod)
		require.Len(t, solid, 1, "expected exactly one building part at LoD %d", lod)
	}

	const wantVolume = 10 * 5 * 3.0
	assert.InEpsilon(t, wantVolume, res.Attributes.VolumeLoD12, 0.1)
	assert.InEpsilon(t, wantVolume, res.Attributes.VolumeLoD13, 0.1)
	assert.InEpsilon(t, wantVolume, res.Attributes.VolumeLoD22, 0.1)

	// universal invariant 3: volume_lod12 >= volume_lod13 >= volume_lod22
	// within 1% relative tolerance; a single flat plane makes all three
	// equal (invariant 7).
	assert.InEpsilon(t, res.Attributes.VolumeLoD12, res.Attributes.VolumeLoD13, 0.01)
	assert.InEpsilon(t, res.Attributes.VolumeLoD13, res.Attributes.VolumeLoD22, 0.01)
}

// TestReconstructNoRoofPoints confirms an empty roof point set returns
// Insufficient with no geometry and an InsufficientData error.
func TestReconstructNoRoofPoints(t *testing.T) {
	footprint := rectangleFootprint(10, 5)
	cfg := model.DefaultConfig()

	res := Reconstruct(model.PointSet{}, footprint, cfg, model.ConstantElevation(0))

	assert.Equal(t, model.StatusInsufficient, res.Status)
	assert.Equal(t, model.RoofTypeNoPoints, res.Attributes.RoofType)
	assert.Equal(t, model.ExtrusionModeSkip, res.Attributes.ExtrusionMode)
	assert.True(t, apperrors.IsInsufficientData(res.Err))
	assert.Empty(t, res.LoDs)
}

// TestReconstructBudgetFallback confirms a building whose arrangement
// complexity exceeds MaxArrComplexity returns a Fallback
// status with an LoD 1.1-style prism at every LoD key instead of the
// standard pipeline's per-face solids.
func TestReconstructBudgetFallback(t *testing.T) {
	points := flatRoofPoints(10, 5, 3.0, 0.4)
	footprint := rectangleFootprint(10, 5)
	cfg := model.DefaultConfig()
	// ComplexityFactor < 1/face_count guarantees the budget trips regardless
	// of how many faces the footprint's own arrangement happens to produce.
	cfg.MaxArrComplexity = 1
	cfg.ComplexityFactor = 0.5

	res := Reconstruct(points, footprint, cfg, model.ConstantElevation(0))

	require.Equal(t, model.StatusFallback, res.Status)
	assert.Equal(t, model.ExtrusionModeLoD11Fallback, res.Attributes.ExtrusionMode)
	assert.Equal(t, "face_count", res.Attributes.FallbackReason)
	assert.True(t, apperrors.IsBudgetExceeded(res.Err))
	for _, lod := range []model.LoD{model.LoD12, model.LoD13, model.LoD22} {
		solid, ok := res.LoDs[lod]
		require.True(t, ok)
		require.Len(t, solid, 1)
	}
}

// TestReconstructDegenerateFootprint confirms a collinear outer ring is
// rejected before plane detection.
func TestReconstructDegenerateFootprint(t *testing.T) {
	points := flatRoofPoints(10, 5, 3.0, 0.4)
	footprint := model.Footprint{Outer: []geom.Vector2{
		{X: 0, Y: 0}, {X: 5, Y: 0}, {X: 10, Y: 0},
	}}

	res := Reconstruct(points, footprint, model.DefaultConfig(), model.ConstantElevation(0))

	assert.Equal(t, model.StatusSkipped, res.Status)
	assert.Equal(t, "degenerate_footprint", res.Attributes.FallbackReason)
	assert.True(t, apperrors.IsDegenerateInput(res.Err))
	assert.Empty(t, res.LoDs)
}

func TestSplitByClassification(t *testing.T) {
	points := model.PointSet{Points: []model.Point{
		{X: 0, Y: 0, Z: 0, Classification: groundClassification},
		{X: 1, Y: 1, Z: 3, Classification: 6},
	}}
	roof, ground := splitByClassification(points)
	require.Len(t, roof.Points, 1)
	require.Len(t, ground.Points, 1)
	assert.Equal(t, 3.0, roof.Points[0].Z)
	assert.Equal(t, 0.0, ground.Points[0].Z)
}
