// Package exact implements the rational-number 2D kernel the arrangement
// runs on: exact predicates and constructions over math/big.Rat, converted
// back to f64 only when final vertices are emitted. Fixed-precision
// integer coordinates would keep near-parallel, near-collinear geometry
// decidable too, but the arrangement needs true exactness after arbitrary
// line-line intersection, which a fixed grid cannot guarantee.
package exact

import (
	"math/big"
)

// Point is an exact 2D point with arbitrary-precision rational coordinates.
type Point struct {
	X, Y *big.Rat
}

// NewPoint builds an exact point from float64 coordinates.
func NewPoint(x, y float64) Point {
	return Point{X: new(big.Rat).SetFloat64(x), Y: new(big.Rat).SetFloat64(y)}
}

// NewPointRat builds an exact point from existing rationals (no copy).
func NewPointRat(x, y *big.Rat) Point {
	return Point{X: x, Y: y}
}

// Float64 returns the nearest float64 approximation of p, used only when
// the pipeline emits final vertices.
func (p Point) Float64() (float64, float64) {
	x, _ := p.X.Float64()
	y, _ := p.Y.Float64()
	return x, y
}

// Equal reports exact equality.
func (p Point) Equal(o Point) bool {
	return p.X.Cmp(o.X) == 0 && p.Y.Cmp(o.Y) == 0
}

// Sub returns p-o as a rational vector.
func (p Point) Sub(o Point) (dx, dy *big.Rat) {
	return new(big.Rat).Sub(p.X, o.X), new(big.Rat).Sub(p.Y, o.Y)
}

// Segment is a pair of exact 2D endpoints.
type Segment struct {
	A, B Point
}

// Orientation is the sign of the cross product (b-a) x (c-a): positive
// means c is to the left of a->b, negative to the right, zero collinear.
// Exact by construction since big.Rat arithmetic never rounds.
func Orientation(a, b, c Point) int {
	abx, aby := b.Sub(a)
	acx, acy := c.Sub(a)
	cross := new(big.Rat).Sub(
		new(big.Rat).Mul(abx, acy),
		new(big.Rat).Mul(aby, acx),
	)
	return cross.Sign()
}

// OnSegment reports whether p lies on the closed segment s, given that p is
// already known to be collinear with s's endpoints (callers should check
// Orientation(s.A, s.B, p) == 0 first).
func OnSegment(s Segment, p Point) bool {
	minX, maxX := s.A.X, s.B.X
	if minX.Cmp(maxX) > 0 {
		minX, maxX = maxX, minX
	}
	minY, maxY := s.A.Y, s.B.Y
	if minY.Cmp(maxY) > 0 {
		minY, maxY = maxY, minY
	}
	return p.X.Cmp(minX) >= 0 && p.X.Cmp(maxX) <= 0 &&
		p.Y.Cmp(minY) >= 0 && p.Y.Cmp(maxY) <= 0
}

// SegmentsIntersect reports whether s1 and s2 intersect (including
// touching at an endpoint), using the standard orientation-sign test.
func SegmentsIntersect(s1, s2 Segment) bool {
	o1 := Orientation(s1.A, s1.B, s2.A)
	o2 := Orientation(s1.A, s1.B, s2.B)
	o3 := Orientation(s2.A, s2.B, s1.A)
	o4 := Orientation(s2.A, s2.B, s1.B)

	if o1 != o2 && o3 != o4 {
		return true
	}
	if o1 == 0 && OnSegment(s1, s2.A) {
		return true
	}
	if o2 == 0 && OnSegment(s1, s2.B) {
		return true
	}
	if o3 == 0 && OnSegment(s2, s1.A) {
		return true
	}
	if o4 == 0 && OnSegment(s2, s1.B) {
		return true
	}
	return false
}

// Intersection computes the exact intersection point of the infinite lines
// through s1 and s2. ok is false when the lines are parallel (including
// coincident).
func Intersection(s1, s2 Segment) (p Point, ok bool) {
	x1, y1 := s1.A.X, s1.A.Y
	x2, y2 := s1.B.X, s1.B.Y
	x3, y3 := s2.A.X, s2.A.Y
	x4, y4 := s2.B.X, s2.B.Y

	// denom = (x1-x2)(y3-y4) - (y1-y2)(x3-x4)
	a := new(big.Rat).Sub(x1, x2)
	b := new(big.Rat).Sub(y3, y4)
	c := new(big.Rat).Sub(y1, y2)
	d := new(big.Rat).Sub(x3, x4)
	denom := new(big.Rat).Sub(new(big.Rat).Mul(a, b), new(big.Rat).Mul(c, d))
	if denom.Sign() == 0 {
		return Point{}, false
	}

	// t = [(x1-x3)(y3-y4) - (y1-y3)(x3-x4)] / denom
	e := new(big.Rat).Sub(x1, x3)
	f := new(big.Rat).Sub(y1, y3)
	tNum := new(big.Rat).Sub(new(big.Rat).Mul(e, b), new(big.Rat).Mul(f, d))
	t := new(big.Rat).Quo(tNum, denom)

	// P = A1 + t*(B1-A1)
	dx := new(big.Rat).Sub(x2, x1)
	dy := new(big.Rat).Sub(y2, y1)
	px := new(big.Rat).Add(x1, new(big.Rat).Mul(t, dx))
	py := new(big.Rat).Add(y1, new(big.Rat).Mul(t, dy))
	return Point{X: px, Y: py}, true
}

// DistanceSquared returns the squared Euclidean distance between p and o as
// an exact rational (avoids the sqrt, which rationals cannot represent
// exactly).
func DistanceSquared(p, o Point) *big.Rat {
	dx, dy := p.Sub(o)
	return new(big.Rat).Add(new(big.Rat).Mul(dx, dx), new(big.Rat).Mul(dy, dy))
}
