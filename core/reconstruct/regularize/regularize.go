// Package regularize snaps a building's raw boundary/ridge segments onto a
// small set of dominant directions and offsets by two-stage
// angle-then-distance clustering, producing the exact 2D segments the
// arrangement builder inserts. The clustering itself runs in f64;
// internal/geom/exact enters only when the final segments are emitted.
package regularize

import (
	"math"
	"sort"

	"github.com/arx-os/roofer/core/reconstruct/model"
	"github.com/arx-os/roofer/internal/geom"
	"github.com/arx-os/roofer/internal/geom/exact"
)

// Regulariser clusters and snaps a building's segment population.
type Regulariser struct {
	cfg model.Config
}

// NewRegulariser builds a Regulariser bound to cfg.
func NewRegulariser(cfg model.Config) *Regulariser {
	return &Regulariser{cfg: cfg}
}

// Regularise projects segs onto basis's 2D plane (all inputs are assumed to
// already share one working frame — the footprint plane — by the time this
// stage runs), clusters by angle then by perpendicular offset within each
// angle cluster, and returns one exact 2D segment per cluster spanning the
// extent of its members, extended by ThresRegLineExt.
func (r *Regulariser) Regularise(segs []model.Segment3, basis geom.PlaneBasis) []exact.Segment {
	if len(segs) == 0 {
		return nil
	}

	projected := make([]seg2, len(segs))
	for i, s := range segs {
		projected[i] = seg2{a: basis.Project(s.A), b: basis.Project(s.B), priority: s.Priority}
	}

	angleClusters := clusterByAngle(projected, r.cfg.RegAngleThreshold)

	var out []exact.Segment
	for _, cluster := range angleClusters {
		distClusters := clusterByDistance(cluster, projected, r.cfg.ThresRegLineDist)
		for _, dc := range distClusters {
			a2, b2, ok := fitAndSpan(dc, projected)
			if !ok {
				continue
			}
			a2, b2 = extend2D(a2, b2, r.cfg.ThresRegLineExt)
			out = append(out, exact.Segment{A: exact.NewPoint(a2.X, a2.Y), B: exact.NewPoint(b2.X, b2.Y)})
		}
	}
	return out
}

// seg2 is one input segment projected into the working 2D frame.
type seg2 struct {
	a, b     geom.Vector2
	priority int
}

// clusterByAngle groups segment indices whose direction (mod pi, since a
// line and its reverse share a direction) falls within threshold radians of
// the cluster's running mean, processed in a stable, priority-descending
// order so high-priority (plane intersection) segments seed clusters first.
func clusterByAngle(segs []seg2, threshold float64) [][]int {
	order := make([]int, len(segs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return segs[order[i]].priority > segs[order[j]].priority
	})

	angles := make([]float64, len(segs))
	for i, s := range segs {
		angles[i] = math.Mod(math.Atan2(s.b.Y-s.a.Y, s.b.X-s.a.X)+math.Pi, math.Pi)
	}

	var clusters [][]int
	var means []float64
	for _, idx := range order {
		best := -1
		bestDiff := threshold
		for c, mean := range means {
			diff := angleDiff(angles[idx], mean)
			if diff < bestDiff {
				bestDiff = diff
				best = c
			}
		}
		if best == -1 {
			clusters = append(clusters, []int{idx})
			means = append(means, angles[idx])
		} else {
			clusters[best] = append(clusters[best], idx)
			means[best] = circularMeanMod(means[best], angles[idx], len(clusters[best]), math.Pi)
		}
	}
	return clusters
}

func angleDiff(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), math.Pi)
	if d > math.Pi/2 {
		d = math.Pi - d
	}
	return d
}

func circularMeanMod(mean, next float64, countIncludingNext int, modulus float64) float64 {
	// simple running average on the unwrapped representation closest to
	// mean, good enough since clusters are tight by construction.
	for next-mean > modulus/2 {
		next -= modulus
	}
	for mean-next > modulus/2 {
		next += modulus
	}
	return mean + (next-mean)/float64(countIncludingNext)
}

// clusterByDistance groups a single angle-cluster's segments by their
// perpendicular offset from an arbitrary reference line through the
// origin along the cluster's dominant direction.
func clusterByDistance(indices []int, segs []seg2, threshold float64) [][]int {
	if len(indices) == 0 {
		return nil
	}
	dir := segs[indices[0]].b.Sub(segs[indices[0]].a).Normalize()
	normal := geom.Vector2{X: -dir.Y, Y: dir.X}

	order := append([]int{}, indices...)
	sort.SliceStable(order, func(i, j int) bool {
		return segs[order[i]].priority > segs[order[j]].priority
	})

	var clusters [][]int
	var offsets []float64
	for _, idx := range order {
		mid := segs[idx].a.Add(segs[idx].b).Scale(0.5)
		offset := mid.Dot(normal)
		best := -1
		bestDiff := threshold
		for c, o := range offsets {
			if d := math.Abs(o - offset); d < bestDiff {
				bestDiff = d
				best = c
			}
		}
		if best == -1 {
			clusters = append(clusters, []int{idx})
			offsets = append(offsets, offset)
		} else {
			clusters[best] = append(clusters[best], idx)
			n := float64(len(clusters[best]))
			offsets[best] += (offset - offsets[best]) / n
		}
	}
	return clusters
}

func fitAndSpan(indices []int, segs []seg2) (geom.Vector2, geom.Vector2, bool) {
	if len(indices) == 0 {
		return geom.Vector2{}, geom.Vector2{}, false
	}
	dir := segs[indices[0]].b.Sub(segs[indices[0]].a).Normalize()
	var origin geom.Vector2
	n := 0.0
	for _, idx := range indices {
		origin = origin.Add(segs[idx].a).Add(segs[idx].b)
		n += 2
	}
	origin = origin.Scale(1 / n)

	minT, maxT := math.Inf(1), math.Inf(-1)
	for _, idx := range indices {
		ta := segs[idx].a.Sub(origin).Dot(dir)
		tb := segs[idx].b.Sub(origin).Dot(dir)
		minT = math.Min(minT, math.Min(ta, tb))
		maxT = math.Max(maxT, math.Max(ta, tb))
	}
	return origin.Add(dir.Scale(minT)), origin.Add(dir.Scale(maxT)), true
}

func extend2D(a, b geom.Vector2, extend float64) (geom.Vector2, geom.Vector2) {
	dir := b.Sub(a)
	l := dir.Length()
	if l == 0 {
		return a, b
	}
	dir = dir.Scale(1 / l)
	return a.Sub(dir.Scale(extend)), b.Add(dir.Scale(extend))
}
