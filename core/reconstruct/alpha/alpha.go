// Package alpha extracts a concave outline (an alpha shape) from a plane's
// inlier points: a Delaunay triangulation of the points projected onto the
// plane's 2D parameter space, filtered by circumradius, with the exterior
// ring walked back out and lifted to 3D. The triangulation is a direct
// Bowyer-Watson implementation.
package alpha

import (
	"math"
	"sort"

	"github.com/arx-os/roofer/core/reconstruct/model"
	"github.com/arx-os/roofer/internal/geom"
)

// Shaper extracts alpha shapes from planes' inlier point sets.
type Shaper struct {
	cfg model.Config
}

// NewShaper builds a Shaper bound to cfg.
func NewShaper(cfg model.Config) *Shaper {
	return &Shaper{cfg: cfg}
}

// Shape triangulates plane's inliers and filters the result by the
// configured alpha threshold, optionally widening alpha until the ring
// connects.
func (s *Shaper) Shape(plane *model.Plane, pts model.PointSet) (model.AlphaRing, []model.AlphaTriangle, bool) {
	if len(plane.Inliers) < 3 {
		return model.AlphaRing{}, nil, false
	}

	centroid := geom.Vector3{}
	for _, idx := range plane.Inliers {
		centroid = centroid.Add(pts.Points[idx].Vector())
	}
	centroid = centroid.Scale(1 / float64(len(plane.Inliers)))
	basis := geom.NewPlaneBasis(plane.Coeffs, centroid)

	pts2d := make([]geom.Vector2, len(plane.Inliers))
	for i, idx := range plane.Inliers {
		pts2d[i] = basis.Project(pts.Points[idx].Vector())
	}

	tris := delaunay(pts2d)

	alpha := s.cfg.ThresAlpha
	var kept []triIdx
	for try := 0; try < 6; try++ {
		kept = filterByAlpha(tris, pts2d, alpha)
		ring := exteriorRing(kept, pts2d)
		if len(ring) >= 3 {
			ring3D := liftRing(ring, pts2d, basis)
			return model.AlphaRing{PlaneID: plane.ID, Vertices: ring3D}, liftTriangles(kept, pts2d, plane.ID, basis), true
		}
		if !s.cfg.OptimiseAlphaIfNeeded {
			break
		}
		alpha *= 1.5
	}
	return model.AlphaRing{}, nil, false
}

type triIdx struct{ a, b, c int }

// delaunay builds a Delaunay triangulation of pts via the Bowyer-Watson
// incremental algorithm. A super-triangle enclosing all points is removed
// from the final result.
func delaunay(pts []geom.Vector2) []triIdx {
	n := len(pts)
	if n < 3 {
		return nil
	}

	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := pts[0].X, pts[0].Y
	for _, p := range pts {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	dx, dy := maxX-minX, maxY-minY
	deltaMax := math.Max(dx, dy) * 10
	if deltaMax == 0 {
		deltaMax = 10
	}
	midX, midY := (minX+maxX)/2, (minY+maxY)/2

	super := []geom.Vector2{
		{X: midX - 2*deltaMax, Y: midY - deltaMax},
		{X: midX, Y: midY + 2*deltaMax},
		{X: midX + 2*deltaMax, Y: midY - deltaMax},
	}
	work := append(append([]geom.Vector2{}, pts...), super...)
	s0, s1, s2 := n, n+1, n+2

	tris := []triIdx{{s0, s1, s2}}

	for i := 0; i < n; i++ {
		p := work[i]
		var badTris []triIdx
		var goodTris []triIdx
		for _, t := range tris {
			if inCircumcircle(work[t.a], work[t.b], work[t.c], p) {
				badTris = append(badTris, t)
			} else {
				goodTris = append(goodTris, t)
			}
		}

		type edge struct{ u, v int }
		count := map[edge]int{}
		addEdge := func(u, v int) {
			if u > v {
				u, v = v, u
			}
			count[edge{u, v}]++
		}
		for _, t := range badTris {
			addEdge(t.a, t.b)
			addEdge(t.b, t.c)
			addEdge(t.c, t.a)
		}

		for e, c := range count {
			if c != 1 {
				continue // shared by two bad triangles: interior, not a boundary
			}
			goodTris = append(goodTris, triIdx{e.u, e.v, i})
		}
		tris = goodTris
	}

	out := tris[:0]
	for _, t := range tris {
		if t.a >= n || t.b >= n || t.c >= n {
			continue
		}
		out = append(out, t)
	}
	return out
}

func inCircumcircle(a, b, c, p geom.Vector2) bool {
	ax, ay := a.X-p.X, a.Y-p.Y
	bx, by := b.X-p.X, b.Y-p.Y
	cx, cy := c.X-p.X, c.Y-p.Y

	det := (ax*ax+ay*ay)*(bx*cy-cx*by) -
		(bx*bx+by*by)*(ax*cy-cx*ay) +
		(cx*cx+cy*cy)*(ax*by-bx*ay)

	// orientation of a,b,c determines the sign convention
	orient := (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
	if orient < 0 {
		return det < 0
	}
	return det > 0
}

// filterByAlpha keeps triangles whose circumradius is at most alpha.
func filterByAlpha(tris []triIdx, pts []geom.Vector2, alpha float64) []triIdx {
	var kept []triIdx
	for _, t := range tris {
		r := circumradius(pts[t.a], pts[t.b], pts[t.c])
		if r <= alpha {
			kept = append(kept, t)
		}
	}
	return kept
}

func circumradius(a, b, c geom.Vector2) float64 {
	la := b.Distance(c)
	lb := a.Distance(c)
	lc := a.Distance(b)
	area2 := math.Abs((b.X-a.X)*(c.Y-a.Y) - (c.X-a.X)*(b.Y-a.Y))
	if area2 == 0 {
		return math.Inf(1)
	}
	return (la * lb * lc) / (2 * area2)
}

// exteriorRing walks the boundary edges of the retained triangle set (edges
// belonging to exactly one triangle) into a single closed polygon, assuming
// the retained set is simply connected.
func exteriorRing(tris []triIdx, pts []geom.Vector2) []int {
	type edge struct{ u, v int }
	count := map[edge]int{}
	orderedEdges := map[edge]bool{}
	addEdge := func(u, v int) {
		e := edge{u, v}
		key := e
		if u > v {
			key = edge{v, u}
		}
		count[key]++
		orderedEdges[e] = true
	}
	for _, t := range tris {
		// Orient every triangle CCW so each boundary edge is walked in one
		// consistent direction.
		a, b, c := t.a, t.b, t.c
		if (pts[b].X-pts[a].X)*(pts[c].Y-pts[a].Y)-(pts[b].Y-pts[a].Y)*(pts[c].X-pts[a].X) < 0 {
			b, c = c, b
		}
		addEdge(a, b)
		addEdge(b, c)
		addEdge(c, a)
	}

	next := map[int]int{}
	for e := range orderedEdges {
		key := e
		if e.u > e.v {
			key = edge{e.v, e.u}
		}
		if count[key] != 1 {
			continue
		}
		next[e.u] = e.v
	}
	if len(next) == 0 {
		return nil
	}

	var start int
	for k := range next {
		start = k
		break
	}
	ring := []int{start}
	cur := start
	for {
		nxt, ok := next[cur]
		if !ok {
			return nil
		}
		if nxt == start {
			break
		}
		ring = append(ring, nxt)
		cur = nxt
		if len(ring) > len(pts)+1 {
			return nil // degenerate / disconnected boundary
		}
	}
	if signedArea(ring, pts) < 0 {
		reverseInts(ring)
	}
	return ring
}

func signedArea(ring []int, pts []geom.Vector2) float64 {
	var area float64
	for i := range ring {
		a := pts[ring[i]]
		b := pts[ring[(i+1)%len(ring)]]
		area += a.X*b.Y - b.X*a.Y
	}
	return area / 2
}

func reverseInts(s []int) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

func liftRing(ring []int, pts2d []geom.Vector2, basis geom.PlaneBasis) []geom.Vector3 {
	out := make([]geom.Vector3, len(ring))
	for i, idx := range ring {
		out[i] = basis.Unproject(pts2d[idx])
	}
	return out
}

func liftTriangles(tris []triIdx, pts2d []geom.Vector2, planeID int, basis geom.PlaneBasis) []model.AlphaTriangle {
	out := make([]model.AlphaTriangle, len(tris))
	for i, t := range tris {
		out[i] = model.AlphaTriangle{
			PlaneID: planeID,
			A:       basis.Unproject(pts2d[t.a]),
			B:       basis.Unproject(pts2d[t.b]),
			C:       basis.Unproject(pts2d[t.c]),
		}
	}
	return out
}

// SortedPlaneIDs returns planes' keys in ascending order, used by callers
// that need deterministic iteration order over a PlaneSet.
func SortedPlaneIDs(planes model.PlaneSet) []int {
	ids := make([]int, 0, len(planes))
	for id := range planes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
