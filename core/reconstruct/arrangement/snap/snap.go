// Package snap implements ArrangementSnapper: after
// dissolving, vertices left closer together than SnapDistThresh (typically
// by the regulariser's segment extension or by dissolve's degree-2
// suppression) are merged, and the zero-length edges that merge produces
// are removed. clusterVertices is a grid-accelerated DBSCAN-style
// region-query-and-expand over arrangement vertex indices in float64 world
// coordinates, with MinPoints relaxed to 1 since a snap
// pass has no notion of a noise point — any two vertices within
// SnapDistThresh of each other belong in the same cluster.
package snap

import (
	"math"
	"sort"

	"github.com/arx-os/roofer/core/reconstruct/model"
)

// Snapper merges near-coincident vertices.
type Snapper struct {
	cfg model.Config
}

// NewSnapper builds a Snapper bound to cfg.
func NewSnapper(cfg model.Config) *Snapper {
	return &Snapper{cfg: cfg}
}

// Snap merges every pair of vertices within cfg.SnapDistThresh of each
// other and removes the zero-length edges that merge leaves behind,
// in place.
func (s *Snapper) Snap(arr *model.Arrangement) {
	thresh := s.cfg.SnapDistThresh
	if thresh <= 0 {
		return
	}
	remap := s.clusterVertices(arr, thresh)
	applyVertexRemap(arr, remap)
	removeZeroLengthEdges(arr)
}

// vertexGrid buckets vertex indices into cells of side thresh so
// regionQuery only has to scan the 3x3 neighbourhood of cells around a
// point instead of every vertex.
type vertexGrid struct {
	thresh  float64
	buckets map[[2]int][]int
	xy      [][2]float64
}

func newVertexGrid(arr *model.Arrangement, thresh float64) *vertexGrid {
	g := &vertexGrid{thresh: thresh, buckets: map[[2]int][]int{}, xy: make([][2]float64, len(arr.Vertices))}
	for i, v := range arr.Vertices {
		x, y := v.Pos.Float64()
		g.xy[i] = [2]float64{x, y}
		cell := g.cellOf(x, y)
		g.buckets[cell] = append(g.buckets[cell], i)
	}
	return g
}

func (g *vertexGrid) cellOf(x, y float64) [2]int {
	return [2]int{int(floorDiv(x, g.thresh)), int(floorDiv(y, g.thresh))}
}

// regionQuery returns every vertex (including i itself) within thresh of
// vertex i.
func (g *vertexGrid) regionQuery(i int) []int {
	cx, cy := g.cellOf(g.xy[i][0], g.xy[i][1])[0], g.cellOf(g.xy[i][0], g.xy[i][1])[1]
	var neighbors []int
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for _, j := range g.buckets[[2]int{cx + dx, cy + dy}] {
				ddx := g.xy[i][0] - g.xy[j][0]
				ddy := g.xy[i][1] - g.xy[j][1]
				if ddx*ddx+ddy*ddy <= g.thresh*g.thresh {
					neighbors = append(neighbors, j)
				}
			}
		}
	}
	return neighbors
}

// clusterVertices expands a DBSCAN-style cluster from every unvisited
// vertex via regionQuery (MinPoints=1, so every vertex seeds or joins a
// cluster — a snap pass has no noise concept), unioning every vertex pulled
// into the same expansion. Returns an old-id -> surviving-id map; the
// lowest id in each cluster survives, for determinism.
func (s *Snapper) clusterVertices(arr *model.Arrangement, thresh float64) []int {
	grid := newVertexGrid(arr, thresh)
	parent := make([]int, len(arr.Vertices))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		if ra > rb {
			ra, rb = rb, ra
		}
		parent[rb] = ra
	}

	visited := make([]bool, len(arr.Vertices))
	for i := range arr.Vertices {
		if visited[i] {
			continue
		}
		visited[i] = true
		queue := grid.regionQuery(i)
		for len(queue) > 0 {
			j := queue[0]
			queue = queue[1:]
			union(i, j)
			if visited[j] {
				continue
			}
			visited[j] = true
			queue = append(queue, grid.regionQuery(j)...)
		}
	}

	remap := make([]int, len(arr.Vertices))
	for i := range remap {
		remap[i] = find(i)
	}
	return remap
}

func floorDiv(v, size float64) float64 {
	return math.Floor(v / size)
}

// applyVertexRemap rewrites every half-edge's Origin through remap and
// rebuilds each surviving vertex's OutEdges list.
func applyVertexRemap(arr *model.Arrangement, remap []int) {
	for i := range arr.HalfEdges {
		arr.HalfEdges[i].Origin = remap[arr.HalfEdges[i].Origin]
	}
	outEdges := map[int][]int{}
	for id, he := range arr.HalfEdges {
		outEdges[he.Origin] = append(outEdges[he.Origin], id)
	}
	survivors := map[int]bool{}
	for _, r := range remap {
		survivors[r] = true
	}
	var kept []model.ArrVertex
	oldToNew := make([]int, len(arr.Vertices))
	ids := make([]int, 0, len(survivors))
	for id := range survivors {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		oldToNew[id] = len(kept)
		v := arr.Vertices[id]
		v.ID = len(kept)
		v.OutEdges = outEdges[id]
		sort.Ints(v.OutEdges)
		kept = append(kept, v)
	}
	arr.Vertices = kept
	for i := range arr.HalfEdges {
		arr.HalfEdges[i].Origin = oldToNew[remap[arr.HalfEdges[i].Origin]]
	}
}

// removeZeroLengthEdges splices out any half-edge pair whose origin and
// destination now coincide after vertex merging, the same relinking
// dissolve's edge-removal uses.
func removeZeroLengthEdges(arr *model.Arrangement) {
	alive := make([]bool, len(arr.HalfEdges))
	for i := range alive {
		alive[i] = true
	}
	for {
		found := false
		for id, he := range arr.HalfEdges {
			if !alive[id] || !alive[he.Twin] {
				continue
			}
			twin := arr.HalfEdges[he.Twin]
			if he.Origin != twin.Origin {
				continue
			}
			prevE, nextT := he.Prev, twin.Next
			prevT, nextE := twin.Prev, he.Next
			arr.HalfEdges[prevE].Next = nextT
			arr.HalfEdges[nextT].Prev = prevE
			arr.HalfEdges[prevT].Next = nextE
			arr.HalfEdges[nextE].Prev = prevT
			alive[id] = false
			alive[he.Twin] = false
			found = true
		}
		if !found {
			break
		}
	}

	remap := make([]int, len(arr.HalfEdges))
	var kept []model.ArrHalfEdge
	for id, he := range arr.HalfEdges {
		if !alive[id] {
			remap[id] = -1
			continue
		}
		remap[id] = len(kept)
		kept = append(kept, he)
	}
	for i := range kept {
		kept[i].ID = i
		kept[i].Twin = remap[kept[i].Twin]
		kept[i].Next = remap[kept[i].Next]
		kept[i].Prev = remap[kept[i].Prev]
	}
	arr.HalfEdges = kept

	for i := range arr.Vertices {
		var out []int
		for _, e := range arr.Vertices[i].OutEdges {
			if remap[e] >= 0 {
				out = append(out, remap[e])
			}
		}
		arr.Vertices[i].OutEdges = out
	}
	for i := range arr.Faces {
		if arr.Faces[i].OuterComponent >= 0 {
			arr.Faces[i].OuterComponent = remap[arr.Faces[i].OuterComponent]
		}
		var inner []int
		for _, e := range arr.Faces[i].InnerComponents {
			if remap[e] >= 0 {
				inner = append(inner, remap[e])
			}
		}
		arr.Faces[i].InnerComponents = inner
	}
}
