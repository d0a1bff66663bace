package geom

import "math"

// BoundingBox3 is an axis-aligned 3D bounding box.
type BoundingBox3 struct {
	Min, Max Vector3
}

// NewBoundingBox3 builds a bounding box from its corners.
func NewBoundingBox3(min, max Vector3) BoundingBox3 {
	return BoundingBox3{Min: min, Max: max}
}

// EmptyBoundingBox3 returns a bounding box primed for repeated Expand calls.
func EmptyBoundingBox3() BoundingBox3 {
	inf := math.Inf(1)
	return BoundingBox3{
		Min: Vector3{inf, inf, inf},
		Max: Vector3{-inf, -inf, -inf},
	}
}

// Expand grows the box to include p.
func (b BoundingBox3) Expand(p Vector3) BoundingBox3 {
	if p.X < b.Min.X {
		b.Min.X = p.X
	}
	if p.Y < b.Min.Y {
		b.Min.Y = p.Y
	}
	if p.Z < b.Min.Z {
		b.Min.Z = p.Z
	}
	if p.X > b.Max.X {
		b.Max.X = p.X
	}
	if p.Y > b.Max.Y {
		b.Max.Y = p.Y
	}
	if p.Z > b.Max.Z {
		b.Max.Z = p.Z
	}
	return b
}

// Contains reports whether p lies within the box.
func (b BoundingBox3) Contains(p Vector3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Center returns the midpoint of the box.
func (b BoundingBox3) Center() Vector3 {
	return Vector3{
		(b.Min.X + b.Max.X) / 2,
		(b.Min.Y + b.Max.Y) / 2,
		(b.Min.Z + b.Max.Z) / 2,
	}
}

// BoundingBox2 is an axis-aligned 2D bounding box, used by the rasteriser
// and the arrangement builder.
type BoundingBox2 struct {
	Min, Max Vector2
}

// NewBoundingBox2 builds the tight bounding box of pts.
func NewBoundingBox2(pts []Vector2) BoundingBox2 {
	b := EmptyBoundingBox2()
	for _, p := range pts {
		b = b.Expand(p)
	}
	return b
}

// EmptyBoundingBox2 returns a bounding box primed for repeated Expand calls.
func EmptyBoundingBox2() BoundingBox2 {
	inf := math.Inf(1)
	return BoundingBox2{
		Min: Vector2{inf, inf},
		Max: Vector2{-inf, -inf},
	}
}

// Expand grows the box to include p.
func (b BoundingBox2) Expand(p Vector2) BoundingBox2 {
	if p.X < b.Min.X {
		b.Min.X = p.X
	}
	if p.Y < b.Min.Y {
		b.Min.Y = p.Y
	}
	if p.X > b.Max.X {
		b.Max.X = p.X
	}
	if p.Y > b.Max.Y {
		b.Max.Y = p.Y
	}
	return b
}

// Pad grows the box by a fixed margin on every side.
func (b BoundingBox2) Pad(margin float64) BoundingBox2 {
	return BoundingBox2{
		Min: Vector2{b.Min.X - margin, b.Min.Y - margin},
		Max: Vector2{b.Max.X + margin, b.Max.Y + margin},
	}
}

// Width returns the box's extent along x.
func (b BoundingBox2) Width() float64 { return b.Max.X - b.Min.X }

// Height returns the box's extent along y.
func (b BoundingBox2) Height() float64 { return b.Max.Y - b.Min.Y }
