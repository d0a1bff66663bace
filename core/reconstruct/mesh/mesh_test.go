package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arx-os/roofer/core/reconstruct/arrangement/extrude"
	"github.com/arx-os/roofer/core/reconstruct/model"
	"github.com/arx-os/roofer/internal/geom"
)

func boxFootprint(w, h float64) model.Footprint {
	return model.Footprint{Outer: []geom.Vector2{
		{X: 0, Y: 0}, {X: w, Y: 0}, {X: w, Y: h}, {X: 0, Y: h},
	}}
}

// TestTriangulateFanCount confirms an n-vertex ring triangulates to n-2
// triangles, the standard fan-triangulation count.
func TestTriangulateFanCount(t *testing.T) {
	mesh := model.Mesh{{
		Ring: model.LinearRing{Vertices: []geom.Vector3{
			{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 4}, {X: 0, Y: 4}, {X: -1, Y: 2},
		}},
		Surface: model.SurfaceRoof,
	}}
	tris := NewTriangulator().Triangulate(mesh)
	assert.Len(t, tris, 3)
}

// TestValidatorAcceptsWatertightPrism confirms the triangulated Prism
// fallback solid (a simple box) passes the edge-manifold check every
// finished solid must satisfy.
func TestValidatorAcceptsWatertightPrism(t *testing.T) {
	fp := boxFootprint(10, 5)
	part := extrude.Prism(fp, model.ConstantElevation(0), 3.0)

	tri := NewTriangulator()
	tris := tri.Triangulate(part)
	require.NotEmpty(t, tris)
	assert.True(t, NewValidator().Valid(part, tris))
}

// TestValidatorRejectsDegenerateRing confirms a two-vertex ring (not a
// closed polygon) fails validation.
func TestValidatorRejectsDegenerateRing(t *testing.T) {
	mesh := model.Mesh{{
		Ring:    model.LinearRing{Vertices: []geom.Vector3{{X: 0, Y: 0}, {X: 1, Y: 0}}},
		Surface: model.SurfaceRoof,
	}}
	assert.False(t, NewValidator().Valid(mesh, nil))
}

// TestRMSEZeroOnExactPlane confirms points lying exactly on the plane
// planeAt returns score a zero RMSE.
func TestRMSEZeroOnExactPlane(t *testing.T) {
	plane := geom.Plane3{C: 1, D: -3} // z = 3 everywhere
	pts := []geom.Vector3{{X: 0, Y: 0, Z: 3}, {X: 1, Y: 1, Z: 3}, {X: 2, Y: -1, Z: 3}}

	rmse := RMSE(pts, func(x, y float64) (geom.Plane3, bool) { return plane, true })
	assert.InDelta(t, 0, rmse, 1e-9)
}

// TestRMSEExcludesUncoveredPoints confirms points planeAt rejects don't
// contribute to the score.
func TestRMSEExcludesUncoveredPoints(t *testing.T) {
	plane := geom.Plane3{C: 1, D: -3}
	pts := []geom.Vector3{{X: 0, Y: 0, Z: 3}, {X: 5, Y: 5, Z: 100}}

	rmse := RMSE(pts, func(x, y float64) (geom.Plane3, bool) {
		return plane, x < 1
	})
	assert.InDelta(t, 0, rmse, 1e-9)
}
