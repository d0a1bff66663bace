// Package planes implements plane detection over a building's LiDAR
// inliers: region growing and RANSAC strategies, plane-plane adjacency, and
// roof typology classification.
package planes

import (
	"math"
	"math/rand"
	"sort"
	"strconv"

	"github.com/katalvlaran/lvlath/core"
	"gonum.org/v1/gonum/stat"

	"github.com/arx-os/roofer/core/reconstruct/model"
	"github.com/arx-os/roofer/internal/geom"
)

// Detector runs plane detection over one building's point set.
type Detector struct {
	cfg model.Config
}

// NewDetector builds a Detector bound to cfg.
func NewDetector(cfg model.Config) *Detector {
	return &Detector{cfg: cfg}
}

// Result is the output of Detect: the detected planes, the adjacency graph
// between them, and the plane-id assigned to each input point (0 =
// unsegmented).
type Result struct {
	Planes    model.PlaneSet
	Adjacency model.PlaneAdjacency
	Labels    []int
	RoofType  model.RoofType
	Elevation model.ElevationStats

	// Clusters is the number of connected components of the plane-adjacency
	// graph (e.g. 2 when a footprint holds two roof structures with no
	// shared neighbouring inliers between them). Computed by a BFS over the
	// lvlath/core graph buildAdjacency constructs, surfaced through
	// Attributes.PlaneClusters for the caller.
	Clusters int
}

// Detect segments pts into planes using the strategy configured in d.cfg,
// then classifies the building's roof typology from the surviving planes.
func (d *Detector) Detect(pts model.PointSet) Result {
	if len(pts.Points) == 0 {
		return Result{Planes: model.PlaneSet{}, Adjacency: model.PlaneAdjacency{}, RoofType: model.RoofTypeNoPoints}
	}

	vecs := pts.Vectors()
	var planes model.PlaneSet
	var labels []int
	switch d.cfg.PlaneStrategy {
	case model.PlaneStrategyRANSAC:
		planes, labels = d.detectRANSAC(vecs)
	default:
		planes, labels = d.detectRegionGrowing(vecs)
	}

	if len(planes) == 0 {
		return Result{Planes: planes, Adjacency: model.PlaneAdjacency{}, Labels: labels, RoofType: model.RoofTypeNoPlanes}
	}

	adjacency, clusters := d.buildAdjacency(vecs, labels, planes)
	roofType := classifyRoofType(planes, d.cfg.PlaneHorizThresh)
	elevation := elevationStats(vecs, labels)

	return Result{Planes: planes, Adjacency: adjacency, Labels: labels, RoofType: roofType, Elevation: elevation, Clusters: clusters}
}

// detectRegionGrowing implements the default strategy: seed from the next
// unsegmented point, grow while neighbours stay within PlaneEpsilon and
// PlaneNormalAngle of the running fit, repeat on the remainder until fewer
// than PlaneMinPoints points are left.
func (d *Detector) detectRegionGrowing(vecs []geom.Vector3) (model.PlaneSet, []int) {
	cfg := d.cfg
	grid := geom.NewGrid3(vecs, cfg.PlaneEpsilon*4)
	normals := make([]geom.Vector3, len(vecs))
	for i, v := range vecs {
		nbrs := grid.KNN(v, cfg.PlaneK, 6)
		if len(nbrs) < 3 {
			continue
		}
		pts := make([]geom.Vector3, len(nbrs))
		for j, idx := range nbrs {
			pts[j] = vecs[idx]
		}
		plane, _, _ := geom.FitPlanePCA(pts)
		normals[i] = plane.Normal()
	}

	labels := make([]int, len(vecs))
	planes := model.PlaneSet{}
	remaining := make([]int, len(vecs))
	for i := range remaining {
		remaining[i] = i
	}
	nextID := 1

	// Refit the running region plane every refitEvery additions so the
	// distance gate tracks the region rather than drifting with the seed.
	const refitEvery = 10

	for len(remaining) >= cfg.PlaneMinPoints {
		seed := remaining[0]
		visited := map[int]bool{seed: true}
		queue := []int{seed}
		var memberIdx []int

		// Running fit, seeded from the seed point's neighbourhood normal.
		fit := geom.Plane3{
			A: normals[seed].X, B: normals[seed].Y, C: normals[seed].Z,
			D: -normals[seed].Dot(vecs[seed]),
		}
		sinceRefit := 0

		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			memberIdx = append(memberIdx, cur)
			sinceRefit++
			if sinceRefit >= refitEvery && len(memberIdx) >= 3 {
				pts := make([]geom.Vector3, len(memberIdx))
				for i, idx := range memberIdx {
					pts[i] = vecs[idx]
				}
				fit, _, _ = geom.FitPlanePCA(pts)
				sinceRefit = 0
			}

			nbrs := grid.KNN(vecs[cur], cfg.PlaneK, 6)
			for _, n := range nbrs {
				if visited[n] || labels[n] != 0 {
					continue
				}
				if math.Abs(fit.SignedDistance(vecs[n])) > cfg.PlaneEpsilon {
					continue
				}
				if math.Abs(normals[n].Dot(fit.Normal())) < cfg.PlaneNormalAngle {
					continue
				}
				visited[n] = true
				queue = append(queue, n)
			}
		}

		if len(memberIdx) < cfg.PlaneMinPoints {
			// too small to be a plane; drop the whole region and retry the
			// seed search on what's left.
			remaining = removeFromSet(remaining, memberIdx)
			continue
		}

		memberPts := make([]geom.Vector3, len(memberIdx))
		for i, idx := range memberIdx {
			memberPts[i] = vecs[idx]
		}
		coeffs, _, _ := geom.FitPlanePCA(memberPts)

		id := nextID
		nextID++
		for _, idx := range memberIdx {
			labels[idx] = id
		}
		planes[id] = &model.Plane{ID: id, Coeffs: coeffs, Inliers: memberIdx}
		remaining = removeFromSet(remaining, memberIdx)
	}

	return planes, labels
}

// detectRANSAC implements the alternative RANSAC strategy:
// repeatedly sample 3 points, keep the equation with the most inliers within
// PlaneEpsilon, peel its inliers off, and continue until fewer than
// PlaneMinPoints points remain. Seeded from cfg.PlaneSeed for determinism.
func (d *Detector) detectRANSAC(vecs []geom.Vector3) (model.PlaneSet, []int) {
	cfg := d.cfg
	rng := rand.New(rand.NewSource(int64(cfg.PlaneSeed)))
	labels := make([]int, len(vecs))
	planes := model.PlaneSet{}
	remaining := make([]int, len(vecs))
	for i := range remaining {
		remaining[i] = i
	}
	nextID := 1

	for len(remaining) >= cfg.PlaneMinPoints {
		var bestCoeffs geom.Plane3
		var bestInliers []int

		for iter := 0; iter < cfg.PlaneRANSACIters; iter++ {
			a := remaining[rng.Intn(len(remaining))]
			b := remaining[rng.Intn(len(remaining))]
			c := remaining[rng.Intn(len(remaining))]
			if a == b || b == c || a == c {
				continue
			}
			v1 := vecs[b].Sub(vecs[a])
			v2 := vecs[c].Sub(vecs[a])
			n := v1.Cross(v2).Normalize()
			if n.Length() == 0 {
				continue
			}
			cand := geom.Plane3{A: n.X, B: n.Y, C: n.Z, D: -n.Dot(vecs[a])}

			var inliers []int
			for _, idx := range remaining {
				if math.Abs(cand.SignedDistance(vecs[idx])) < cfg.PlaneEpsilon {
					inliers = append(inliers, idx)
				}
			}
			if len(inliers) > len(bestInliers) {
				bestInliers = inliers
				bestCoeffs = cand
			}
		}

		if len(bestInliers) < cfg.PlaneMinPoints {
			break
		}

		pts := make([]geom.Vector3, len(bestInliers))
		for i, idx := range bestInliers {
			pts[i] = vecs[idx]
		}
		refined, _, _ := geom.FitPlanePCA(pts)

		id := nextID
		nextID++
		for _, idx := range bestInliers {
			labels[idx] = id
		}
		planes[id] = &model.Plane{ID: id, Coeffs: refined, Inliers: bestInliers}
		remaining = removeFromSet(remaining, bestInliers)
	}

	return planes, labels
}

// buildAdjacency counts, for every point whose k nearest neighbours span
// two distinct plane labels, the co-occurrence of that pair, then loads
// the result into an lvlath graph and walks it with a NeighborIDs-driven
// BFS to report how many disjoint clusters the detected planes form (a
// footprint with two unrelated roof volumes yields 2+ clusters even
// though both share one PlaneSet).
func (d *Detector) buildAdjacency(vecs []geom.Vector3, labels []int, planes model.PlaneSet) (model.PlaneAdjacency, int) {
	grid := geom.NewGrid3(vecs, d.cfg.PlaneEpsilon*4)
	adj := model.PlaneAdjacency{}

	for i, v := range vecs {
		if labels[i] == 0 {
			continue
		}
		nbrs := grid.KNN(v, d.cfg.PlaneK, 6)
		for _, n := range nbrs {
			if labels[n] == 0 || labels[n] == labels[i] {
				continue
			}
			adj.Add(labels[i], labels[n])
		}
	}

	g := core.NewGraph(core.WithWeighted(), core.WithDirected(false))
	for id := range planes {
		_ = g.AddVertex(planeVertexID(id))
	}
	for pair, count := range adj {
		hi, lo := planeVertexID(pair.Hi), planeVertexID(pair.Lo)
		_, _ = g.AddEdge(hi, lo, float64(count))
	}

	return adj, countClusters(g)
}

// countClusters runs a BFS over g via NeighborIDs and returns the number
// of connected components found.
func countClusters(g *core.Graph) int {
	visited := map[string]bool{}
	clusters := 0
	for _, root := range g.Vertices() {
		if visited[root] {
			continue
		}
		clusters++
		queue := []string{root}
		visited[root] = true
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			neighborIDs, _ := g.NeighborIDs(cur)
			for _, nb := range neighborIDs {
				if !visited[nb] {
					visited[nb] = true
					queue = append(queue, nb)
				}
			}
		}
	}
	return clusters
}

func planeVertexID(id int) string {
	return strconv.Itoa(id)
}

// classifyRoofType buckets the detected planes into a roof typology:
// horizontal planes have |normal.z| above horizThresh.
func classifyRoofType(planes model.PlaneSet, horizThresh float64) model.RoofType {
	horizontal := 0
	for _, p := range planes {
		if math.Abs(p.Coeffs.Normal().Z) >= horizThresh {
			horizontal++
		}
	}
	switch {
	case horizontal == len(planes) && horizontal == 1:
		return model.RoofTypeHorizontal
	case horizontal == len(planes) && horizontal > 1:
		return model.RoofTypeMultipleHorizontal
	default:
		return model.RoofTypeSlanted
	}
}

// elevationStats computes the min/max/p50/p70/p97 elevation of every
// segmented point (label != 0), via gonum/stat for the percentiles.
func elevationStats(vecs []geom.Vector3, labels []int) model.ElevationStats {
	var zs []float64
	for i, l := range labels {
		if l != 0 {
			zs = append(zs, vecs[i].Z)
		}
	}
	if len(zs) == 0 {
		return model.ElevationStats{}
	}
	sort.Float64s(zs)
	return model.ElevationStats{
		Min: zs[0],
		Max: zs[len(zs)-1],
		P50: stat.Quantile(0.50, stat.Empirical, zs, nil),
		P70: stat.Quantile(0.70, stat.Empirical, zs, nil),
		P97: stat.Quantile(0.97, stat.Empirical, zs, nil),
	}
}

func removeFromSet(set []int, remove []int) []int {
	drop := make(map[int]bool, len(remove))
	for _, r := range remove {
		drop[r] = true
	}
	out := set[:0]
	for _, v := range set {
		if !drop[v] {
			out = append(out, v)
		}
	}
	return out
}
