// Package lines detects straight boundary segments along a plane's alpha
// ring and computes plane-plane intersection lines, producing the raw
// Segment3 population the regulariser consumes. The boundary detector is a
// 1D region-growing line fitter, the line-fitting analogue of the
// point-cloud plane detector.
package lines

import (
	"math"

	"github.com/arx-os/roofer/core/reconstruct/model"
	"github.com/arx-os/roofer/internal/geom"
)

// Detector finds straight boundary runs along alpha rings.
type Detector struct {
	cfg model.Config
}

// NewDetector builds a Detector bound to cfg.
func NewDetector(cfg model.Config) *Detector {
	return &Detector{cfg: cfg}
}

// DetectRing region-grows along ring's vertices (treated as a cyclic
// sequence), fitting a 2D line to each run of k-consecutive-consistent
// points, and emits one Segment3 per surviving run, extended by
// cfg.LineExtend at each end.
func (d *Detector) DetectRing(ring model.AlphaRing, basis geom.PlaneBasis) []model.Segment3 {
	n := len(ring.Vertices)
	if n < d.cfg.LineMinCntRange {
		return nil
	}
	pts2d := make([]geom.Vector2, n)
	for i, v := range ring.Vertices {
		pts2d[i] = basis.Project(v)
	}

	assigned := make([]bool, n)
	var segments []model.Segment3

	for start := 0; start < n; start++ {
		if assigned[start] {
			continue
		}
		run := d.growRun(start, pts2d, assigned)
		if len(run) < d.cfg.LineMinCntRange {
			continue
		}
		for _, idx := range run {
			assigned[idx] = true
		}

		a2, b2, ok := fitLine2D(run, pts2d)
		if !ok {
			continue
		}
		a2, b2 = extendSegment(a2, b2, d.cfg.LineExtend)
		segments = append(segments, model.Segment3{
			A:        basis.Unproject(a2),
			B:        basis.Unproject(b2),
			PlaneID:  ring.PlaneID,
			PlaneIDB: -1,
			Priority: 1,
		})
	}
	return segments
}

// growRun walks forward from start while consecutive points stay within
// LineDetectEpsilon of the running least-squares fit, using a window of
// LineDetectK points to decide whether to keep extending.
func (d *Detector) growRun(start int, pts []geom.Vector2, assigned []bool) []int {
	n := len(pts)
	run := []int{start}
	for step := 1; step < n; step++ {
		idx := (start + step) % n
		if assigned[idx] {
			break
		}
		if len(run) < 2 {
			// a line needs two points; the seed's neighbour starts the run
			run = append(run, idx)
			continue
		}
		window := run
		if len(window) > d.cfg.LineDetectK {
			window = window[len(window)-d.cfg.LineDetectK:]
		}
		a, b, ok := fitLine2D(window, pts)
		if !ok {
			break
		}
		if pointToLineDist(pts[idx], a, b) > d.cfg.LineDetectEpsilon {
			break
		}
		run = append(run, idx)
	}
	return run
}

// fitLine2D fits a line through the points in idx by total least squares
// (PCA on the 2x2 scatter matrix), returning its two extreme projected
// endpoints.
func fitLine2D(idx []int, pts []geom.Vector2) (geom.Vector2, geom.Vector2, bool) {
	if len(idx) < 2 {
		return geom.Vector2{}, geom.Vector2{}, false
	}
	var mean geom.Vector2
	for _, i := range idx {
		mean = mean.Add(pts[i])
	}
	mean = mean.Scale(1 / float64(len(idx)))

	var sxx, sxy, syy float64
	for _, i := range idx {
		d := pts[i].Sub(mean)
		sxx += d.X * d.X
		sxy += d.X * d.Y
		syy += d.Y * d.Y
	}
	// principal direction of a 2x2 symmetric matrix via the closed-form
	// eigenvector of the larger eigenvalue.
	theta := 0.5 * math.Atan2(2*sxy, sxx-syy)
	dir := geom.Vector2{X: math.Cos(theta), Y: math.Sin(theta)}

	minT, maxT := math.Inf(1), math.Inf(-1)
	for _, i := range idx {
		t := pts[i].Sub(mean).Dot(dir)
		minT = math.Min(minT, t)
		maxT = math.Max(maxT, t)
	}
	a := mean.Add(dir.Scale(minT))
	b := mean.Add(dir.Scale(maxT))
	return a, b, true
}

// pointToLineDist returns the distance from p to the infinite line through
// a and b.
func pointToLineDist(p, a, b geom.Vector2) float64 {
	ab := b.Sub(a)
	len2 := ab.Dot(ab)
	if len2 == 0 {
		return p.Distance(a)
	}
	t := p.Sub(a).Dot(ab) / len2
	proj := a.Add(ab.Scale(t))
	return p.Distance(proj)
}

func extendSegment(a, b geom.Vector2, extend float64) (geom.Vector2, geom.Vector2) {
	dir := b.Sub(a)
	l := dir.Length()
	if l == 0 {
		return a, b
	}
	dir = dir.Scale(1 / l)
	return a.Sub(dir.Scale(extend)), b.Add(dir.Scale(extend))
}

// Intersector computes ridge/valley lines between adjacent roof planes.
type Intersector struct {
	cfg model.Config
}

// NewIntersector builds an Intersector bound to cfg.
func NewIntersector(cfg model.Config) *Intersector {
	return &Intersector{cfg: cfg}
}

// Intersect walks adjacency and, for every pair sharing at least
// cfg.MinNeighbPts co-occurrences, computes the planes' 3D intersection
// line, clips it to the overlap of the two planes' projected inlier
// extents, and keeps it if the clipped length clears MinIntersectLen and
// the nearest inlier lies within MinDistToLine of the line.
func (in *Intersector) Intersect(planes model.PlaneSet, adjacency model.PlaneAdjacency, pts model.PointSet) []model.Segment3 {
	thresRad := in.cfg.ThresHorizontality * math.Pi / 180

	var segments []model.Segment3
	for pair, count := range adjacency {
		if count < in.cfg.MinNeighbPts {
			continue
		}
		pa, okA := planes[pair.Hi]
		pb, okB := planes[pair.Lo]
		if !okA || !okB {
			continue
		}
		dir := pa.Coeffs.Normal().Cross(pb.Coeffs.Normal())
		if dir.Length() < 1e-9 {
			continue // near-parallel planes, no well-defined ridge
		}
		dir = dir.Normalize()

		p0, ok := linePoint(pa.Coeffs, pb.Coeffs)
		if !ok {
			continue
		}

		minA, maxA, distA := projectExtent(pa.Inliers, pts, p0, dir)
		minB, maxB, distB := projectExtent(pb.Inliers, pts, p0, dir)
		lo := math.Max(minA, minB)
		hi := math.Min(maxA, maxB)
		if hi-lo < in.cfg.MinIntersectLen {
			continue
		}
		if math.Min(distA, distB) > in.cfg.MinDistToLine {
			continue
		}

		a3 := p0.Add(dir.Scale(lo))
		b3 := p0.Add(dir.Scale(hi))

		// A ridgeline needs both incident planes tilted off the vertical
		// axis and the intersection itself near-horizontal.
		segHorizontal := math.Abs(dir.Z) <= math.Sin(thresRad)
		slantedA := math.Abs(pa.Coeffs.Normal().Z) <= math.Cos(thresRad)
		slantedB := math.Abs(pb.Coeffs.Normal().Z) <= math.Cos(thresRad)
		ridge := segHorizontal && slantedA && slantedB

		segments = append(segments, model.Segment3{
			A:        a3,
			B:        b3,
			PlaneID:  pair.Hi,
			PlaneIDB: pair.Lo,
			Priority: 2,
			Ridge:    ridge,
		})
	}
	return segments
}

// projectExtent projects one plane's inliers onto the line (p0, dir),
// returning the extent of the projections plus the smallest perpendicular
// distance from any inlier to the line.
func projectExtent(inliers []int, pts model.PointSet, p0, dir geom.Vector3) (lo, hi, minDist float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	minDist = math.Inf(1)
	for _, idx := range inliers {
		v := pts.Points[idx].Vector().Sub(p0)
		t := v.Dot(dir)
		lo = math.Min(lo, t)
		hi = math.Max(hi, t)
		if d := v.Sub(dir.Scale(t)).Length(); d < minDist {
			minDist = d
		}
	}
	return lo, hi, minDist
}

// linePoint solves for a point on the intersection line of two planes via
// the standard 3-equation, 3-unknown system closed by a third plane
// orthogonal to both normals through the origin.
func linePoint(a, b geom.Plane3) (geom.Vector3, bool) {
	n1, n2 := a.Normal(), b.Normal()
	n3 := n1.Cross(n2).Normalize()
	if n3.Length() == 0 {
		return geom.Vector3{}, false
	}

	// Solve the 3x3 linear system [n1;n2;n3] . p = [-a.D, -b.D, 0] via
	// Cramer's rule; n3 is the plane through the origin orthogonal to the
	// intersection direction, giving a unique solution.
	m := [3][3]float64{
		{n1.X, n1.Y, n1.Z},
		{n2.X, n2.Y, n2.Z},
		{n3.X, n3.Y, n3.Z},
	}
	rhs := [3]float64{-a.D, -b.D, 0}

	det := det3(m)
	if math.Abs(det) < 1e-12 {
		return geom.Vector3{}, false
	}

	var p geom.Vector3
	for col := 0; col < 3; col++ {
		mc := m
		for row := 0; row < 3; row++ {
			mc[row][col] = rhs[row]
		}
		v := det3(mc) / det
		switch col {
		case 0:
			p.X = v
		case 1:
			p.Y = v
		case 2:
			p.Z = v
		}
	}
	return p, true
}

func det3(m [3][3]float64) float64 {
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}
