package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVector3CrossAndDot(t *testing.T) {
	x := Vector3{X: 1}
	y := Vector3{Y: 1}
	z := x.Cross(y)
	assert.Equal(t, Vector3{Z: 1}, z)
	assert.Equal(t, 0.0, x.Dot(y))
}

func TestVector3Normalize(t *testing.T) {
	v := Vector3{X: 3, Y: 4}
	n := v.Normalize()
	assert.InDelta(t, 1.0, n.Length(), 1e-9)

	zero := Vector3{}
	assert.Equal(t, zero, zero.Normalize())
}

func TestBoundingBox2ExpandAndPad(t *testing.T) {
	b := EmptyBoundingBox2()
	b = b.Expand(Vector2{X: 1, Y: 2}).Expand(Vector2{X: -1, Y: 5})
	assert.Equal(t, -1.0, b.Min.X)
	assert.Equal(t, 5.0, b.Max.Y)

	padded := b.Pad(1)
	assert.Equal(t, -2.0, padded.Min.X)
	assert.Equal(t, 6.0, padded.Max.Y)
	assert.Equal(t, b.Width()+2, padded.Width())
}

func TestPlaneElevationAt(t *testing.T) {
	// horizontal plane z = 5: normal (0,0,1), D = -5
	p := Plane3{C: 1, D: -5}
	assert.InDelta(t, 5.0, p.ElevationAt(10, -3), 1e-9)
}

func TestPlaneBasisProjectUnprojectRoundTrip(t *testing.T) {
	plane := Plane3{C: 1, D: -3}
	basis := NewPlaneBasis(plane, Vector3{X: 0, Y: 0, Z: 3})

	world := Vector3{X: 2, Y: -1, Z: 3}
	projected := basis.Project(world)
	back := basis.Unproject(projected)
	assert.InDelta(t, world.X, back.X, 1e-9)
	assert.InDelta(t, world.Y, back.Y, 1e-9)
	assert.InDelta(t, world.Z, back.Z, 1e-9)
}

func TestPlaneBasisOrthonormal(t *testing.T) {
	plane := Plane3{C: 1, D: 0}
	basis := NewPlaneBasis(plane, Vector3{})
	assert.InDelta(t, 0, basis.U.Dot(basis.V), 1e-9)
	assert.InDelta(t, 1, basis.U.Length(), 1e-9)
	assert.InDelta(t, 1, basis.V.Length(), 1e-9)
}
