// Package dissolve implements ArrangementDissolver: three ordered
// face-merging passes over the labelled arrangement, one clone per LoD so
// the three outputs (LoD 1.2/1.3/2.2) can be produced independently from
// the same optimised arrangement. Each merge is the classic DCEL
// edge-removal operation: splice the four half-edges around a removed edge
// and reassign the surviving face id to every half-edge of the merged loop.
package dissolve

import (
	"sort"
	"strconv"

	"github.com/katalvlaran/lvlath/core"

	"github.com/arx-os/roofer/core/reconstruct/model"
)

// Dissolver runs the three face-merging passes.
type Dissolver struct {
	cfg model.Config
}

// NewDissolver builds a Dissolver bound to cfg.
func NewDissolver(cfg model.Config) *Dissolver {
	return &Dissolver{cfg: cfg}
}

// Dissolve clones arr and applies the passes appropriate to lod: every LoD
// dissolves seg-edges (pass 1); LoD 1.3 additionally dissolves step-edges
// (pass 2); LoD 1.2 additionally dissolves every remaining interior edge
// (pass 3).
func (d *Dissolver) Dissolve(arr *model.Arrangement, lod model.LoD) *model.Arrangement {
	out := clone(arr)
	state := newState(out)

	d.dissolveSegEdges(out, state)
	if lod == model.LoD13 || lod == model.LoD12 {
		d.dissolveStepEdges(out, state)
	}
	if lod == model.LoD12 {
		d.dissolveAllInterior(out, state)
	}

	state.removeDangling(out)
	state.suppressDegreeTwo(out)
	state.compact(out)
	assignPartIDs(out)
	return out
}

// state tracks which half-edges are still alive during a dissolve run; the
// arrangement's slices are rewritten in place but never shrunk mid-pass so
// indices stay stable until compact() runs at the end.
type state struct {
	alive []bool
}

func newState(arr *model.Arrangement) *state {
	alive := make([]bool, len(arr.HalfEdges))
	for i := range alive {
		alive[i] = true
	}
	return &state{alive: alive}
}

func clone(arr *model.Arrangement) *model.Arrangement {
	out := &model.Arrangement{
		Vertices:  append([]model.ArrVertex(nil), arr.Vertices...),
		HalfEdges: append([]model.ArrHalfEdge(nil), arr.HalfEdges...),
		Faces:     append([]model.ArrFace(nil), arr.Faces...),
	}
	for i := range out.Vertices {
		out.Vertices[i].OutEdges = append([]int(nil), arr.Vertices[i].OutEdges...)
	}
	for i := range out.Faces {
		out.Faces[i].InnerComponents = append([]int(nil), arr.Faces[i].InnerComponents...)
	}
	return out
}

// dissolveSegEdges removes every half-edge whose two incident faces share
// the same plane label, provided neither face is marked Blocks on that
// edge.
func (d *Dissolver) dissolveSegEdges(arr *model.Arrangement, st *state) {
	st.mergeWhere(arr, func(a, b model.ArrFace, he model.ArrHalfEdge) bool {
		return !he.Blocks && a.OuterComponent >= 0 && b.OuterComponent >= 0 &&
			a.InFootprint && b.InFootprint && samePlane(a, b)
	})
}

// dissolveStepEdges merges faces whose elevation-70p differs by at most
// LoD13StepHeight.
func (d *Dissolver) dissolveStepEdges(arr *model.Arrangement, st *state) {
	thresh := d.cfg.LoD13StepHeight
	st.mergeWhere(arr, func(a, b model.ArrFace, he model.ArrHalfEdge) bool {
		if he.Blocks || a.OuterComponent < 0 || b.OuterComponent < 0 || !a.InFootprint || !b.InFootprint {
			return false
		}
		diff := a.Elevation.P70 - b.Elevation.P70
		if diff < 0 {
			diff = -diff
		}
		return diff <= thresh
	})
}

// dissolveAllInterior removes every remaining interior edge inside the
// footprint, leaving one face per connected building part (pass 3,
// LoD 1.2).
func (d *Dissolver) dissolveAllInterior(arr *model.Arrangement, st *state) {
	st.mergeWhere(arr, func(a, b model.ArrFace, he model.ArrHalfEdge) bool {
		return a.OuterComponent >= 0 && b.OuterComponent >= 0 && a.InFootprint && b.InFootprint
	})
}

func samePlane(a, b model.ArrFace) bool {
	const eps = 1e-9
	na, nb := a.Plane, b.Plane
	return abs(na.A-nb.A) < eps && abs(na.B-nb.B) < eps && abs(na.C-nb.C) < eps && abs(na.D-nb.D) < eps
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// mergeWhere repeatedly scans alive half-edges, removing (and merging the
// incident faces of) every edge pred approves, until a full scan finds
// nothing left to merge.
func (st *state) mergeWhere(arr *model.Arrangement, pred func(a, b model.ArrFace, he model.ArrHalfEdge) bool) {
	for {
		mergedAny := false
		for id := 0; id < len(arr.HalfEdges); id++ {
			if !st.alive[id] {
				continue
			}
			he := arr.HalfEdges[id]
			if he.Twin < id {
				continue // visit each undirected edge once
			}
			twin := arr.HalfEdges[he.Twin]
			if he.Face < 0 || twin.Face < 0 || he.Face == twin.Face {
				continue
			}
			a, b := arr.Faces[he.Face], arr.Faces[twin.Face]
			if !pred(a, b, he) {
				continue
			}
			st.removeEdgePair(arr, id)
			mergedAny = true
		}
		if !mergedAny {
			return
		}
	}
}

// removeEdgePair splices half-edge e and its twin out of the DCEL: the
// edges immediately before each of them in boundary order are reconnected
// to the edges immediately after, and every half-edge of the resulting
// merged loop is reassigned to the surviving (lower-id) face.
func (st *state) removeEdgePair(arr *model.Arrangement, e int) {
	he := arr.HalfEdges[e]
	te := arr.HalfEdges[he.Twin]
	prevE := he.Prev
	prevT := te.Prev
	nextE := he.Next
	nextT := te.Next

	arr.HalfEdges[prevE].Next = nextT
	arr.HalfEdges[nextT].Prev = prevE
	arr.HalfEdges[prevT].Next = nextE
	arr.HalfEdges[nextE].Prev = prevT

	st.alive[e] = false
	st.alive[he.Twin] = false

	keepFace, dropFace := he.Face, te.Face
	if dropFace >= 0 && (keepFace < 0 || dropFace < keepFace) {
		keepFace, dropFace = dropFace, keepFace
	}
	if keepFace >= 0 {
		if dropFace >= 0 {
			mergeFaceStats(&arr.Faces[keepFace], arr.Faces[dropFace])
			arr.Faces[dropFace].Dissolved = true
		}
		walkAndRelabel(arr, nextE, keepFace)
		arr.Faces[keepFace].OuterComponent = nextE
	}
}

func mergeFaceStats(keep *model.ArrFace, drop model.ArrFace) {
	totalPix := keep.PixelCount + drop.PixelCount
	if totalPix > 0 {
		wk := float64(keep.PixelCount) / float64(totalPix)
		wd := float64(drop.PixelCount) / float64(totalPix)
		keep.Elevation = model.ElevationStats{
			Min: minF(keep.Elevation.Min, drop.Elevation.Min),
			Max: maxF(keep.Elevation.Max, drop.Elevation.Max),
			P50: keep.Elevation.P50*wk + drop.Elevation.P50*wd,
			P70: keep.Elevation.P70*wk + drop.Elevation.P70*wd,
			P97: keep.Elevation.P97*wk + drop.Elevation.P97*wd,
		}
	}
	keep.PixelCount = totalPix
	// In every pass the merged elevation statistics are the pixel-weighted
	// average above (Min/Max combined); no max-pixel-count representative is
	// taken for elevation. The merged face's Plane is the one of whichever
	// face covered more pixels.
	if drop.PixelCount > keep.PixelCount-drop.PixelCount {
		keep.Plane = drop.Plane
	}
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// walkAndRelabel assigns face to every half-edge of the loop starting at
// start, following Next.
func walkAndRelabel(arr *model.Arrangement, start, face int) {
	e := start
	for i := 0; i < len(arr.HalfEdges)+1; i++ {
		arr.HalfEdges[e].Face = face
		e = arr.HalfEdges[e].Next
		if e == start {
			return
		}
	}
}

// removeDangling removes any remaining alive edge whose two sides now
// bound the same face (a bridge left over from a merge chain).
func (st *state) removeDangling(arr *model.Arrangement) {
	for {
		found := false
		for id := 0; id < len(arr.HalfEdges); id++ {
			if !st.alive[id] {
				continue
			}
			he := arr.HalfEdges[id]
			if he.Twin < id || !st.alive[he.Twin] {
				continue
			}
			twin := arr.HalfEdges[he.Twin]
			if he.Face != twin.Face || he.Face < 0 {
				continue
			}
			st.removeEdgePair(arr, id)
			found = true
		}
		if !found {
			return
		}
	}
}

// suppressDegreeTwo removes vertices that, after dissolving, have exactly
// one alive edge passing straight through them (two collinear half-edges
// meeting with nothing else incident), splicing the pair of edges either
// side of the vertex into one.
func (st *state) suppressDegreeTwo(arr *model.Arrangement) {
	for vID := range arr.Vertices {
		aliveOut := 0
		var only int
		for _, e := range arr.Vertices[vID].OutEdges {
			if st.alive[e] {
				aliveOut++
				only = e
			}
		}
		if aliveOut != 1 {
			continue
		}
		in := arr.HalfEdges[only].Prev // the edge arriving at this vertex along the same loop
		if in == only {
			continue
		}
		// Splice out the vertex: the incoming edge now runs directly to
		// only's destination.
		next := arr.HalfEdges[only].Next
		arr.HalfEdges[in].Next = next
		arr.HalfEdges[next].Prev = in
		st.alive[only] = false
		// Origin bookkeeping: `in`'s twin's Origin is this vertex and
		// stays valid since we only removed the pass-through edge, not the
		// vertex record itself; faces are unaffected.
	}
}

// compact drops dead half-edges, leaving arr.HalfEdges holding only alive
// ones with indices renumbered and all references fixed up.
func (st *state) compact(arr *model.Arrangement) {
	remap := make([]int, len(arr.HalfEdges))
	var kept []model.ArrHalfEdge
	for id, he := range arr.HalfEdges {
		if !st.alive[id] {
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

// assignPartIDs runs a BFS over face adjacency (through the remaining
// shared half-edges) to label every surviving, non-dissolved, in-footprint
// face with a consecutive part id. The
// adjacency itself is held in an lvlath/core graph (vertices are face ids as
// strings, NeighborIDs drives the BFS) rather than a bare map, the same
// traversable-graph shape planes.buildAdjacency uses for plane adjacency.
func assignPartIDs(arr *model.Arrangement) {
	g := core.NewGraph(core.WithDirected(false))
	for i, f := range arr.Faces {
		if f.Dissolved || f.OuterComponent < 0 || !f.InFootprint {
			continue
		}
		_ = g.AddVertex(faceVertexID(i))
	}
	seen := map[[2]int]bool{}
	for _, he := range arr.HalfEdges {
		twin := arr.HalfEdges[he.Twin]
		a, b := he.Face, twin.Face
		if a < 0 || b < 0 || a == b {
			continue
		}
		if !arr.Faces[a].InFootprint || arr.Faces[a].Dissolved || !arr.Faces[b].InFootprint || arr.Faces[b].Dissolved {
			continue
		}
		key := [2]int{a, b}
		if a > b {
			key = [2]int{b, a}
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		_, _ = g.AddEdge(faceVertexID(a), faceVertexID(b), 0)
	}

	visited := map[int]bool{}
	part := 0
	var ids []int
	for i, f := range arr.Faces {
		if f.Dissolved || f.OuterComponent < 0 || !f.InFootprint {
			continue
		}
		ids = append(ids, i)
	}
	sort.Ints(ids)
	for _, start := range ids {
		if visited[start] {
			continue
		}
		queue := []int{start}
		visited[start] = true
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			arr.Faces[cur].PartID = part
			neighborIDs, _ := g.NeighborIDs(faceVertexID(cur))
			for _, nid := range neighborIDs {
				nb := faceIDFromVertex(nid)
				if !visited[nb] {
					visited[nb] = true
					queue = append(queue, nb)
				}
			}
		}
		part++
	}
}

func faceVertexID(i int) string { return strconv.Itoa(i) }

func faceIDFromVertex(id string) int {
	n, _ := strconv.Atoi(id)
	return n
}
