// Package optimize implements ArrangementOptimiser: the multi-label
// plane->face assignment by alpha-expansion graph cut over a Potts-model
// data/smoothness energy, reduced to one binary max-flow problem per
// candidate label. The solver is the algorithm family Boykov-Kolmogorov
// describe (repeated path augmentation over a residual graph), via
// breadth-first search rather than BK's incremental search-tree speedup.
package optimize

import (
	"sort"

	"github.com/arx-os/roofer/core/reconstruct/model"
	"github.com/arx-os/roofer/internal/geom"
)

// Optimiser assigns a plane label to every in-footprint face.
type Optimiser struct {
	cfg model.Config
}

// NewOptimiser builds an Optimiser bound to cfg.
func NewOptimiser(cfg model.Config) *Optimiser {
	return &Optimiser{cfg: cfg}
}

// Optimise runs alpha-expansion to completion over arr's in-footprint,
// bounded faces, using hf for the data term and roofPlanes/groundPlanes as
// the label set (groundPlanes only when useGround is true). It mutates
// arr.Faces in place, setting Plane, IsGround and the elevation/pixel
// statistics of every labelled face.
func (o *Optimiser) Optimise(arr *model.Arrangement, hf *model.HeightField, roofPlanes, groundPlanes model.PlaneSet, useGround bool) {
	labels := sortedIDs(roofPlanes)
	labelIsGround := map[int]bool{}
	planeByLabel := map[int]geom.Plane3{}
	for _, id := range labels {
		planeByLabel[id] = roofPlanes[id].Coeffs
	}
	if useGround {
		for _, id := range sortedIDs(groundPlanes) {
			labels = append(labels, id)
			labelIsGround[id] = true
			planeByLabel[id] = groundPlanes[id].Coeffs
		}
	}
	if len(labels) == 0 {
		return
	}

	faceIdx := boundedInFootprintFaces(arr)
	if len(faceIdx) == 0 {
		return
	}

	pixels := assignPixels(arr, hf, faceIdx)
	cellArea := hf.CellSize * hf.CellSize
	dataMul := o.cfg.Lambda
	smoothMul := 1 - o.cfg.Lambda

	current := make(map[int]int, len(faceIdx)) // face id -> label id
	for _, fi := range faceIdx {
		current[fi] = labels[0]
	}

	dataCost := func(fi, label int) float64 {
		plane := planeByLabel[label]
		var sum float64
		for _, px := range pixels[fi] {
			sum += abs(float64(px.z) - plane.ElevationAt(px.x, px.y))
		}
		return dataMul * cellArea * sum
	}

	neighbors := interiorNeighbors(arr, faceIdx)

	improved := true
	for improved {
		improved = false
		for _, alpha := range labels {
			if expand(faceIdx, current, alpha, dataCost, neighbors, smoothMul) {
				improved = true
			}
		}
	}

	for fi, label := range current {
		arr.Faces[fi].Plane = planeByLabel[label]
		arr.Faces[fi].IsGround = labelIsGround[label]
		arr.Faces[fi].PixelCount = len(pixels[fi])
		stats, coverage := elevationStats(pixels[fi], hf)
		arr.Faces[fi].Elevation = stats
		arr.Faces[fi].DataCoverage = coverage

		if labelIsGround[label] && o.cfg.ClipGround {
			arr.Faces[fi].InFootprint = false
			arr.Faces[fi].IsGround = true
		}
	}
}

// expand performs one alpha-expansion move: builds the binary max-flow
// graph for candidate label alpha and updates current in place for every
// face whose assignment the cut improves. Returns whether anything changed.
func expand(faceIdx []int, current map[int]int, alpha int, dataCost func(fi, label int) float64, neighbors map[int][]neighborEdge, smoothMul float64) bool {
	// node ids: 0 = source, 1 = sink, 2+i = faceIdx[i] for faces not
	// already at alpha.
	nodeOf := map[int]int{}
	for _, fi := range faceIdx {
		if current[fi] == alpha {
			continue
		}
		nodeOf[fi] = len(nodeOf) + 2
	}
	if len(nodeOf) == 0 {
		return false
	}

	n := len(nodeOf) + 2
	g := newFlowGraph(n)
	const source, sink = 0, 1

	sinkExtra := map[int]float64{} // additional cap(f,T) from fixed-alpha neighbours
	for fi, node := range nodeOf {
		g.addEdge(source, node, dataCost(fi, alpha))
		g.addEdge(node, sink, dataCost(fi, current[fi]))
	}
	for fi, edges := range neighbors {
		nf, hasF := nodeOf[fi]
		for _, e := range edges {
			if e.other <= fi {
				continue // visit each undirected pair once
			}
			w := smoothMul * e.weight
			ng, hasG := nodeOf[e.other]
			switch {
			case hasF && hasG:
				g.addEdge(nf, ng, w)
				g.addEdge(ng, nf, w)
			case hasF && !hasG:
				sinkExtra[fi] += w
			case !hasF && hasG:
				sinkExtra[e.other] += w
			}
		}
	}
	for fi, extra := range sinkExtra {
		if node, ok := nodeOf[fi]; ok {
			g.addEdgeCap(node, sink, extra)
		}
	}

	g.maxFlow(source, sink)
	sourceSide := g.reachableFromSource(source)

	changed := false
	ids := make([]int, 0, len(nodeOf))
	for fi := range nodeOf {
		ids = append(ids, fi)
	}
	sort.Ints(ids)
	for _, fi := range ids {
		node := nodeOf[fi]
		if !sourceSide[node] {
			current[fi] = alpha
			changed = true
		}
	}
	return changed
}

type neighborEdge struct {
	other  int
	weight float64
}

// interiorNeighbors maps each bounded in-footprint face id to the faces it
// shares a half-edge with (also bounded and in-footprint), with the
// Euclidean edge weight the smoothness term uses.
func interiorNeighbors(arr *model.Arrangement, faceIdx []int) map[int][]neighborEdge {
	inSet := make(map[int]bool, len(faceIdx))
	for _, fi := range faceIdx {
		inSet[fi] = true
	}
	out := map[int][]neighborEdge{}
	seen := map[[2]int]bool{}
	for _, fi := range faceIdx {
		f := arr.Faces[fi]
		if f.OuterComponent < 0 {
			continue
		}
		for _, e := range arr.EdgeLoop(f.OuterComponent) {
			he := arr.HalfEdges[e]
			twin := arr.HalfEdges[he.Twin]
			other := twin.Face
			if other < 0 || other == fi || !inSet[other] {
				continue
			}
			key := [2]int{fi, other}
			if fi > other {
				key = [2]int{other, fi}
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			out[fi] = append(out[fi], neighborEdge{other: other, weight: he.EdgeWeight})
			out[other] = append(out[other], neighborEdge{other: fi, weight: he.EdgeWeight})
		}
	}
	return out
}

func boundedInFootprintFaces(arr *model.Arrangement) []int {
	var out []int
	for i, f := range arr.Faces {
		if f.OuterComponent >= 0 && f.InFootprint {
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}

type pixel struct {
	x, y float64
	z    float32
}

// assignPixels buckets every heightfield pixel into the bounded,
// in-footprint face whose outer ring contains its centre.
func assignPixels(arr *model.Arrangement, hf *model.HeightField, faceIdx []int) map[int][]pixel {
	out := make(map[int][]pixel, len(faceIdx))
	rings := make(map[int][][2]float64, len(faceIdx))
	for _, fi := range faceIdx {
		loop := arr.EdgeLoop(arr.Faces[fi].OuterComponent)
		ring := make([][2]float64, len(loop))
		for i, e := range loop {
			p := arr.Vertices[arr.HalfEdges[e].Origin].Pos
			x, y := p.Float64()
			ring[i] = [2]float64{x, y}
		}
		rings[fi] = ring
	}

	hf.PixelsIn(func(x, y float64) bool { return true }, func(col, row int, x, y float64, z float32) {
		for _, fi := range faceIdx {
			if pointInRing2(x, y, rings[fi]) {
				out[fi] = append(out[fi], pixel{x: x, y: y, z: z})
				return
			}
		}
	})
	return out
}

func pointInRing2(x, y float64, ring [][2]float64) bool {
	inside := false
	n := len(ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]
		if (yi > y) != (yj > y) {
			xIntersect := (xj-xi)*(y-yi)/(yj-yi) + xi
			if x < xIntersect {
				inside = !inside
			}
		}
	}
	return inside
}

func elevationStats(pts []pixel, hf *model.HeightField) (model.ElevationStats, float64) {
	if len(pts) == 0 {
		return model.ElevationStats{}, 0
	}
	zs := make([]float64, len(pts))
	for i, p := range pts {
		zs[i] = float64(p.z)
	}
	sort.Float64s(zs)
	return model.ElevationStats{
		Min: zs[0],
		Max: zs[len(zs)-1],
		P50: percentile(zs, 0.50),
		P70: percentile(zs, 0.70),
		P97: percentile(zs, 0.97),
	}, 1.0
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	idx := p * float64(len(sorted)-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[lo]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func sortedIDs(planes model.PlaneSet) []int {
	ids := make([]int, 0, len(planes))
	for id := range planes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
