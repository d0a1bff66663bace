// Package mesh implements the pipeline's two tail stages:
// MeshTriangulator (turning each labelled ring into a triangle fan for
// export/validation) and the RMSE/validity checks the Attributes row
// reports. RMSE is a plain RMS over per-point residuals, a single scalar
// rather than a distribution.
package mesh

import (
	"math"

	"github.com/arx-os/roofer/core/reconstruct/model"
	"github.com/arx-os/roofer/internal/geom"
)

// Triangle is one triangulated facet, carrying the surface type of the
// ring it came from.
type Triangle struct {
	A, B, C geom.Vector3
	Surface model.SurfaceType
}

// Triangulator fan-triangulates every ring of a Mesh.
type Triangulator struct{}

// NewTriangulator builds a Triangulator.
func NewTriangulator() *Triangulator { return &Triangulator{} }

// Triangulate returns every surface of mesh as a flat triangle list. Each
// ring is triangulated as a fan from its first vertex; holes are cut into
// the fan by bridging to the nearest outer vertex (a standard
// polygon-with-holes-to-simple-polygon reduction), since the rings this
// pipeline produces are near-convex building facets rather than arbitrary
// concave polygons.
func (t *Triangulator) Triangulate(mesh model.Mesh) []Triangle {
	var out []Triangle
	for _, surf := range mesh {
		ring := flattenHoles(surf.Ring)
		out = append(out, fanTriangulate(ring, surf.Surface)...)
	}
	return out
}

// flattenHoles bridges every hole into the outer ring via a zero-width slit
// from the hole's closest vertex to the outer ring's closest vertex, giving
// a single simple polygon a fan triangulation can consume.
func flattenHoles(ring model.LinearRing) []geom.Vector3 {
	verts := append([]geom.Vector3(nil), ring.Vertices...)
	for _, hole := range ring.Holes {
		if len(hole) == 0 {
			continue
		}
		oi, hi := closestPair(verts, hole)
		bridged := make([]geom.Vector3, 0, len(verts)+len(hole)+2)
		bridged = append(bridged, verts[:oi+1]...)
		bridged = append(bridged, hole[hi:]...)
		bridged = append(bridged, hole[:hi+1]...)
		bridged = append(bridged, verts[oi:]...)
		verts = bridged
	}
	return verts
}

func closestPair(outer, hole []geom.Vector3) (int, int) {
	bestO, bestH := 0, 0
	bestDist := math.Inf(1)
	for i, o := range outer {
		for j, h := range hole {
			d := o.Distance(h)
			if d < bestDist {
				bestDist = d
				bestO, bestH = i, j
			}
		}
	}
	return bestO, bestH
}

func fanTriangulate(verts []geom.Vector3, surface model.SurfaceType) []Triangle {
	if len(verts) < 3 {
		return nil
	}
	out := make([]Triangle, 0, len(verts)-2)
	for i := 1; i < len(verts)-1; i++ {
		out = append(out, Triangle{A: verts[0], B: verts[i], C: verts[i+1], Surface: surface})
	}
	return out
}

// RMSE returns the root-mean-square vertical distance between pts and the
// plane that best explains them at each point's (x, y), using planeAt to
// resolve which plane covers a given point — typically a closure over the
// optimised arrangement's per-face planes.
// Points planeAt rejects (ok == false) are excluded.
func RMSE(pts []geom.Vector3, planeAt func(x, y float64) (geom.Plane3, bool)) float64 {
	var sse float64
	var n int
	for _, p := range pts {
		plane, ok := planeAt(p.X, p.Y)
		if !ok {
			continue
		}
		residual := p.Z - plane.ElevationAt(p.X, p.Y)
		sse += residual * residual
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sse / float64(n))
}

// Validator checks the structural properties of a finished solid: every
// ring closes, and every edge of the solid is shared
// by exactly two triangles (a watertight 2-manifold).
type Validator struct{}

// NewValidator builds a Validator.
func NewValidator() *Validator { return &Validator{} }

// Valid reports whether every MeshSurface in mesh is a closed ring (first
// and last vertex distinct, at least 3 vertices) and whether the
// triangulated solid is edge-manifold.
func (v *Validator) Valid(mesh model.Mesh, tris []Triangle) bool {
	for _, surf := range mesh {
		if len(surf.Ring.Vertices) < 3 {
			return false
		}
		if surf.Ring.Vertices[0] == surf.Ring.Vertices[len(surf.Ring.Vertices)-1] {
			return false
		}
	}
	edgeCount := map[edgeKey]int{}
	for _, t := range tris {
		for _, e := range [][2]geom.Vector3{{t.A, t.B}, {t.B, t.C}, {t.C, t.A}} {
			edgeCount[canonicalEdge(e[0], e[1])]++
		}
	}
	for _, count := range edgeCount {
		if count != 2 {
			return false
		}
	}
	return true
}

type edgeKey struct {
	ax, ay, az, bx, by, bz float64
}

func canonicalEdge(a, b geom.Vector3) edgeKey {
	const q = 1e6 // quantise to damp float noise when matching shared edges
	ra := [3]float64{math.Round(a.X * q), math.Round(a.Y * q), math.Round(a.Z * q)}
	rb := [3]float64{math.Round(b.X * q), math.Round(b.Y * q), math.Round(b.Z * q)}
	if lessVec(rb, ra) {
		ra, rb = rb, ra
	}
	return edgeKey{ra[0], ra[1], ra[2], rb[0], rb[1], rb[2]}
}

func lessVec(a, b [3]float64) bool {
	if a[0] != b[0] {
		return a[0] < b[0]
	}
	if a[1] != b[1] {
		return a[1] < b[1]
	}
	return a[2] < b[2]
}
