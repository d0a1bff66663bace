package exact

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrientationSigns(t *testing.T) {
	a, b := NewPoint(0, 0), NewPoint(4, 0)
	left := NewPoint(1, 1)
	right := NewPoint(1, -1)
	collinear := NewPoint(2, 0)

	assert.Positive(t, Orientation(a, b, left))
	assert.Negative(t, Orientation(a, b, right))
	assert.Zero(t, Orientation(a, b, collinear))
}

func TestOnSegmentBounds(t *testing.T) {
	s := Segment{A: NewPoint(0, 0), B: NewPoint(10, 0)}
	assert.True(t, OnSegment(s, NewPoint(5, 0)))
	assert.True(t, OnSegment(s, NewPoint(0, 0)))
	assert.False(t, OnSegment(s, NewPoint(11, 0)))
}

func TestSegmentsIntersectCrossing(t *testing.T) {
	s1 := Segment{A: NewPoint(0, 0), B: NewPoint(10, 10)}
	s2 := Segment{A: NewPoint(0, 10), B: NewPoint(10, 0)}
	assert.True(t, SegmentsIntersect(s1, s2))

	p, ok := Intersection(s1, s2)
	assert.True(t, ok)
	x, y := p.Float64()
	assert.InDelta(t, 5.0, x, 1e-9)
	assert.InDelta(t, 5.0, y, 1e-9)
}

func TestSegmentsIntersectParallelNoCross(t *testing.T) {
	s1 := Segment{A: NewPoint(0, 0), B: NewPoint(10, 0)}
	s2 := Segment{A: NewPoint(0, 5), B: NewPoint(10, 5)}
	assert.False(t, SegmentsIntersect(s1, s2))

	_, ok := Intersection(s1, s2)
	assert.False(t, ok)
}

func TestSegmentsTouchingAtEndpoint(t *testing.T) {
	s1 := Segment{A: NewPoint(0, 0), B: NewPoint(5, 0)}
	s2 := Segment{A: NewPoint(5, 0), B: NewPoint(5, 5)}
	assert.True(t, SegmentsIntersect(s1, s2))
}

func TestDistanceSquared(t *testing.T) {
	p := NewPoint(0, 0)
	o := NewPoint(3, 4)
	d := DistanceSquared(p, o)
	got, _ := d.Float64()
	assert.InDelta(t, 25.0, got, 1e-9)
}
