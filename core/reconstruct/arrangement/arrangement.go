// Package arrangement constructs the planar subdivision that every
// downstream stage (optimize, dissolve, snap, extrude) operates on. The
// DCEL is built directly: every input segment
// (footprint boundary plus regularised edges) is split at its exact
// intersections with every other segment, the resulting primitive edges are
// linked into half-edges by angle-sorting around each vertex (the standard
// technique for recovering face cycles from a planar straight-line graph),
// and faces are recovered by walking unvisited half-edge cycles.
package arrangement

import (
	"math"
	"sort"

	"github.com/arx-os/roofer/core/reconstruct/model"
	"github.com/arx-os/roofer/internal/geom"
	"github.com/arx-os/roofer/internal/geom/exact"
)

// Builder constructs an Arrangement from a footprint and a set of
// regularised exact segments.
type Builder struct {
	cfg model.Config
}

// NewBuilder builds a Builder bound to cfg.
func NewBuilder(cfg model.Config) *Builder {
	return &Builder{cfg: cfg}
}

type inputSeg struct {
	seg        exact.Segment
	boundary   bool
	planeID    int
	planeIDB   int
	priority   int
	ridge      bool
}

// Build inserts footprint's outer ring and hole rings as constraint edges,
// then inserts every segment in segs (the LineRegulariser's output),
// splitting all of them at mutual intersections, and returns the resulting
// Arrangement plus the number of bounded faces produced (the caller checks
// this count against its complexity budget).
func (b *Builder) Build(footprint model.Footprint, segs []exact.Segment) (*model.Arrangement, int) {
	var inputs []inputSeg

	addRing := func(ring []geom.Vector2) {
		n := len(ring)
		for i := 0; i < n; i++ {
			a := ring[i]
			c := ring[(i+1)%n]
			inputs = append(inputs, inputSeg{
				seg:      exact.Segment{A: exact.NewPoint(a.X, a.Y), B: exact.NewPoint(c.X, c.Y)},
				boundary: true,
				planeID:  0,
				planeIDB: -1,
			})
		}
	}
	addRing(footprint.Outer)
	for _, hole := range footprint.Holes {
		addRing(hole)
	}
	for _, s := range segs {
		inputs = append(inputs, inputSeg{seg: s, boundary: false, planeID: -1, planeIDB: -1})
	}

	arr := b.insert(inputs)
	b.linkHalfEdges(arr)
	faces := b.extractFaces(arr)
	arr.Faces = faces
	b.classifyFaces(arr, footprint)

	bounded := 0
	for _, f := range arr.Faces {
		if f.OuterComponent >= 0 {
			bounded++
		}
	}
	return arr, bounded
}

// insert computes every pairwise intersection among inputs, splits each
// segment into primitive edges between consecutive break points, and
// returns an Arrangement with deduplicated (optionally snap-merged)
// vertices and raw (unlinked) half-edges.
func (b *Builder) insert(inputs []inputSeg) *model.Arrangement {
	breaks := make([][]exact.Point, len(inputs))
	for i, in := range inputs {
		breaks[i] = []exact.Point{in.seg.A, in.seg.B}
	}

	for i := 0; i < len(inputs); i++ {
		for j := i + 1; j < len(inputs); j++ {
			if !exact.SegmentsIntersect(inputs[i].seg, inputs[j].seg) {
				continue
			}
			p, ok := exact.Intersection(inputs[i].seg, inputs[j].seg)
			if !ok {
				continue // parallel/collinear: endpoints already carry any touching
			}
			if exact.OnSegment(inputs[i].seg, p) {
				breaks[i] = append(breaks[i], p)
			}
			if exact.OnSegment(inputs[j].seg, p) {
				breaks[j] = append(breaks[j], p)
			}
		}
	}

	arr := &model.Arrangement{}
	vertexID := b.vertexIndexer(arr)

	for i, in := range inputs {
		pts := dedupeSortAlong(breaks[i], in.seg)
		for k := 0; k+1 < len(pts); k++ {
			u := vertexID(pts[k])
			v := vertexID(pts[k+1])
			if u == v {
				continue
			}
			b.addHalfEdgePair(arr, u, v, in)
		}
	}
	return arr
}

// vertexIndexer returns a function mapping an exact point to a vertex id in
// arr, merging points within the snap-on-insert tolerance when
// cfg.InsertWithSnap is set.
func (b *Builder) vertexIndexer(arr *model.Arrangement) func(exact.Point) int {
	type key struct{ x, y int64 }
	index := map[key]int{}
	var tol float64
	if b.cfg.InsertWithSnap {
		tol = math.Sqrt2 * math.Pow(10, -float64(b.cfg.SnapToleranceExp))
	}
	// Quantise to a grid at the snap tolerance (or to a very fine grid when
	// snapping is disabled, which still merges bit-identical points without
	// introducing spurious merges).
	grid := tol
	if grid <= 0 {
		grid = 1e-9
	}
	return func(p exact.Point) int {
		x, y := p.Float64()
		k := key{int64(math.Round(x / grid)), int64(math.Round(y / grid))}
		if id, ok := index[k]; ok {
			return id
		}
		id := len(arr.Vertices)
		arr.Vertices = append(arr.Vertices, model.ArrVertex{ID: id, Pos: p})
		index[k] = id
		return id
	}
}

// dedupeSortAlong orders pts by their projection along seg's direction and
// removes consecutive duplicates.
func dedupeSortAlong(pts []exact.Point, seg exact.Segment) []exact.Point {
	ax, ay := seg.A.Float64()
	bx, by := seg.B.Float64()
	dx, dy := bx-ax, by-ay

	sort.Slice(pts, func(i, j int) bool {
		xi, yi := pts[i].Float64()
		xj, yj := pts[j].Float64()
		ti := (xi-ax)*dx + (yi-ay)*dy
		tj := (xj-ax)*dx + (yj-ay)*dy
		return ti < tj
	})

	out := pts[:0]
	for i, p := range pts {
		if i > 0 && p.Equal(out[len(out)-1]) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (b *Builder) addHalfEdgePair(arr *model.Arrangement, u, v int, in inputSeg) {
	h1 := len(arr.HalfEdges)
	h2 := h1 + 1
	length := dist(arr.Vertices[u].Pos, arr.Vertices[v].Pos)

	arr.HalfEdges = append(arr.HalfEdges,
		model.ArrHalfEdge{
			ID: h1, Origin: u, Twin: h2, Next: -1, Prev: -1, Face: -1,
			SourcePlaneID: in.planeID, SourcePlaneIDB: in.planeIDB,
			Priority: in.priority, Ridge: in.ridge,
			Blocks: in.boundary || in.ridge, EdgeWeight: length,
		},
		model.ArrHalfEdge{
			ID: h2, Origin: v, Twin: h1, Next: -1, Prev: -1, Face: -1,
			SourcePlaneID: in.planeID, SourcePlaneIDB: in.planeIDB,
			Priority: in.priority, Ridge: in.ridge,
			Blocks: in.boundary || in.ridge, EdgeWeight: length,
		},
	)
	arr.Vertices[u].OutEdges = append(arr.Vertices[u].OutEdges, h1)
	arr.Vertices[v].OutEdges = append(arr.Vertices[v].OutEdges, h2)
}

func dist(a, b exact.Point) float64 {
	ax, ay := a.Float64()
	bx, by := b.Float64()
	return math.Hypot(bx-ax, by-ay)
}

// linkHalfEdges assigns Next/Prev to every half-edge by sorting each
// vertex's outgoing edges by angle and, for half-edge h: u->v, setting
// next(h) to the outgoing edge at v that sits immediately clockwise of
// twin(h) — the standard rule that keeps each face's interior on the left
// while tracing its boundary.
func (b *Builder) linkHalfEdges(arr *model.Arrangement) {
	order := make(map[int][]int, len(arr.Vertices)) // vertex id -> half-edge ids sorted by angle
	for _, v := range arr.Vertices {
		edges := append([]int{}, v.OutEdges...)
		sort.Slice(edges, func(i, j int) bool {
			return angleOf(arr, edges[i]) < angleOf(arr, edges[j])
		})
		order[v.ID] = edges
	}

	posInOrder := make(map[int]int, len(arr.HalfEdges))
	for _, edges := range order {
		for i, e := range edges {
			posInOrder[e] = i
		}
	}

	for _, he := range arr.HalfEdges {
		twin := arr.HalfEdges[he.Twin]
		v := twin.Origin
		edges := order[v]
		i := posInOrder[he.Twin]
		prevIdx := (i - 1 + len(edges)) % len(edges)
		next := edges[prevIdx]
		arr.HalfEdges[he.ID].Next = next
		arr.HalfEdges[next].Prev = he.ID
	}
}

func angleOf(arr *model.Arrangement, heID int) float64 {
	he := arr.HalfEdges[heID]
	a := arr.Vertices[he.Origin].Pos
	b := arr.Vertices[arr.HalfEdges[he.Twin].Origin].Pos
	ax, ay := a.Float64()
	bx, by := b.Float64()
	return math.Atan2(by-ay, bx-ax)
}

// extractFaces walks every unvisited half-edge cycle via Next, builds one
// ArrFace per cycle, and classifies each cycle as bounded (positive
// shoelace area, interior on the left when traced CCW) or a component of
// the unbounded outer face (negative area).
func (b *Builder) extractFaces(arr *model.Arrangement) []model.ArrFace {
	visited := make([]bool, len(arr.HalfEdges))
	var faces []model.ArrFace

	for start := range arr.HalfEdges {
		if visited[start] {
			continue
		}
		loop := arr.EdgeLoop(start)
		for _, e := range loop {
			visited[e] = true
		}
		area := shoelace(arr, loop)
		if area > 0 {
			f := model.ArrFace{ID: len(faces), OuterComponent: start}
			faces = append(faces, f)
			for _, e := range loop {
				arr.HalfEdges[e].Face = f.ID
			}
		} else {
			// Component of the unbounded outer face: its half-edges keep
			// Face == -1, the sentinel addHalfEdgePair initialises every
			// half-edge with.
			for _, e := range loop {
				arr.HalfEdges[e].Face = -1
			}
		}
	}
	return faces
}

func shoelace(arr *model.Arrangement, loop []int) float64 {
	var area float64
	for _, e := range loop {
		he := arr.HalfEdges[e]
		a := arr.Vertices[he.Origin].Pos
		bV := arr.Vertices[arr.HalfEdges[he.Twin].Origin].Pos
		ax, ay := a.Float64()
		bx, by := bV.Float64()
		area += ax*by - bx*ay
	}
	return area / 2
}

// classifyFaces marks each bounded face's InFootprint/IsFootprintHole by
// testing a representative interior point (the face's vertex centroid, a
// reasonable approximation for the small, near-convex facets this pipeline
// produces
// standard ray-casting point-in-polygon test.
func (b *Builder) classifyFaces(arr *model.Arrangement, fp model.Footprint) {
	for i, f := range arr.Faces {
		if f.OuterComponent < 0 {
			continue
		}
		loop := arr.EdgeLoop(f.OuterComponent)
		var cx, cy float64
		for _, e := range loop {
			p := arr.Vertices[arr.HalfEdges[e].Origin].Pos
			x, y := p.Float64()
			cx += x
			cy += y
		}
		n := float64(len(loop))
		cx /= n
		cy /= n

		inOuter := pointInRing(cx, cy, fp.Outer)
		inHole := false
		for _, h := range fp.Holes {
			if pointInRing(cx, cy, h) {
				inHole = true
				break
			}
		}
		arr.Faces[i].InFootprint = inOuter && !inHole
		arr.Faces[i].IsFootprintHole = inOuter && inHole
	}
}

// pointInRing is the standard even-odd ray-casting point-in-polygon test.
func pointInRing(x, y float64, ring []geom.Vector2) bool {
	inside := false
	n := len(ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := ring[i].X, ring[i].Y
		xj, yj := ring[j].X, ring[j].Y
		if (yi > y) != (yj > y) {
			xIntersect := (xj-xi)*(y-yi)/(yj-yi) + xi
			if x < xIntersect {
				inside = !inside
			}
		}
	}
	return inside
}
