package geom

import "math"

// Grid3 is a uniform spatial hash over 3D points, used for approximate
// nearest-neighbour queries during plane detection. A flat bucket hash
// supports that kNN access pattern without the rebalancing machinery a
// quadtree needs.
type Grid3 struct {
	cellSize float64
	buckets  map[[3]int64][]int
	points   []Vector3
}

// NewGrid3 builds a grid over points with the given cell size.
func NewGrid3(points []Vector3, cellSize float64) *Grid3 {
	g := &Grid3{
		cellSize: cellSize,
		buckets:  make(map[[3]int64][]int, len(points)),
		points:   points,
	}
	for i, p := range points {
		key := g.cellKey(p)
		g.buckets[key] = append(g.buckets[key], i)
	}
	return g
}

func (g *Grid3) cellKey(p Vector3) [3]int64 {
	return [3]int64{
		int64(math.Floor(p.X / g.cellSize)),
		int64(math.Floor(p.Y / g.cellSize)),
		int64(math.Floor(p.Z / g.cellSize)),
	}
}

// KNN returns the indices of the k nearest points to query, searching
// outward cell-by-cell until at least k candidates are found or the search
// radius exceeds maxRadiusCells.
func (g *Grid3) KNN(query Vector3, k int, maxRadiusCells int) []int {
	center := g.cellKey(query)
	type cand struct {
		idx  int
		dist float64
	}
	var candidates []cand
	seen := make(map[int]bool)

	for radius := 0; radius <= maxRadiusCells; radius++ {
		for dx := -radius; dx <= radius; dx++ {
			for dy := -radius; dy <= radius; dy++ {
				for dz := -radius; dz <= radius; dz++ {
					if max3(abs(dx), abs(dy), abs(dz)) != radius {
						continue // only the new shell at this radius
					}
					key := [3]int64{center[0] + int64(dx), center[1] + int64(dy), center[2] + int64(dz)}
					for _, idx := range g.buckets[key] {
						if seen[idx] {
							continue
						}
						seen[idx] = true
						candidates = append(candidates, cand{idx, query.Distance(g.points[idx])})
					}
				}
			}
		}
		if len(candidates) >= k && radius >= 1 {
			break
		}
	}

	// partial selection sort is fine: k is small (~15) relative to candidates
	for i := 0; i < len(candidates) && i < k; i++ {
		minIdx := i
		for j := i + 1; j < len(candidates); j++ {
			if candidates[j].dist < candidates[minIdx].dist {
				minIdx = j
			}
		}
		candidates[i], candidates[minIdx] = candidates[minIdx], candidates[i]
	}
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	out := make([]int, len(candidates))
	for i, c := range candidates {
		out[i] = c.idx
	}
	return out
}

// Neighbors returns every point index in the grid cells within radiusCells
// cells of query's cell. The rasteriser's nodata fill does not use it; it
// scans the height field directly.
func (g *Grid3) Neighbors(query Vector3, radiusCells int) []int {
	return g.KNN(query, 1<<30, radiusCells)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func max3(a, b, c int) int {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}
