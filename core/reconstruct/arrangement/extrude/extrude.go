// Package extrude implements ArrangementExtruder: turns a dissolved,
// labelled arrangement into a MultiSolid holding, per building part, one
// ground surface per traced boundary ring, one roof surface per face,
// perimeter wall surfaces, and interior wall surfaces where adjacent roof
// heights differ. Roof facets are lifted
// via geom.Plane3.ElevationAt; part boundaries are traced with the same
// angle-sort technique the arrangement builder uses for face cycles,
// reapplied to each part's exterior ring instead of a DCEL face.
package extrude

import (
	"math"
	"sort"

	"github.com/arx-os/roofer/core/reconstruct/model"
	"github.com/arx-os/roofer/internal/geom"
)

// Extruder builds labelled solids from a dissolved arrangement.
type Extruder struct {
	cfg model.Config
}

// NewExtruder builds an Extruder bound to cfg.
func NewExtruder(cfg model.Config) *Extruder {
	return &Extruder{cfg: cfg}
}

// Extrude walks every part id present in arr and returns one Mesh per part,
// using floor for the ground ring's elevation. For LoD 1.2/1.3 each face's
// roof is flattened to a horizontal plane at its 70th-percentile elevation;
// LoD 2.2 keeps the true assigned plane.
func (x *Extruder) Extrude(arr *model.Arrangement, lod model.LoD, floor model.FloorElevation) model.MultiSolid {
	if lod != model.LoD22 {
		for i := range arr.Faces {
			f := &arr.Faces[i]
			if f.Dissolved || f.OuterComponent < 0 || !f.InFootprint {
				continue
			}
			f.Plane = geom.Plane3{C: 1, D: -f.Elevation.P70}
		}
	}

	partFaces := map[int][]int{}
	for i, f := range arr.Faces {
		if f.Dissolved || f.OuterComponent < 0 || !f.InFootprint {
			continue
		}
		partFaces[f.PartID] = append(partFaces[f.PartID], i)
	}

	out := model.MultiSolid{}
	partIDs := make([]int, 0, len(partFaces))
	for id := range partFaces {
		partIDs = append(partIDs, id)
	}
	sort.Ints(partIDs)

	for _, part := range partIDs {
		out[part] = x.extrudePart(arr, partFaces[part], part, floor)
	}
	return out
}

func (x *Extruder) extrudePart(arr *model.Arrangement, faces []int, part int, floor model.FloorElevation) model.Mesh {
	var mesh model.Mesh

	for _, fi := range faces {
		f := arr.Faces[fi]
		ring := liftRing(arr, f.OuterComponent, f.Plane)
		var holes [][]geom.Vector3
		for _, inner := range f.InnerComponents {
			holes = append(holes, liftVerts(arr, inner, f.Plane))
		}
		mesh = append(mesh, model.MeshSurface{
			Ring:    model.LinearRing{Vertices: ring, Holes: holes},
			Surface: model.SurfaceRoof,
		})
	}

	mesh = append(mesh, stepWalls(arr, faces)...)

	rings := exteriorRings(arr, faces, part)
	for _, br := range rings {
		groundVerts := liftFloor(br.verts, floor)
		reversed := reverseVectors(groundVerts)
		mesh = append(mesh, model.MeshSurface{
			Ring:    model.LinearRing{Vertices: reversed},
			Surface: model.SurfaceGround,
		})

		wallKind := model.SurfaceWallOuter
		if br.hole {
			wallKind = model.SurfaceWallInner
		}
		for i := 0; i < len(br.verts); i++ {
			j := (i + 1) % len(br.verts)
			a, b := br.verts[i], br.verts[j]
			topA := roofElevationAt(arr, br.supportFace[i], a)
			topB := roofElevationAt(arr, br.supportFace[j], b)
			quad := []geom.Vector3{
				{X: a.X, Y: a.Y, Z: topA},
				{X: b.X, Y: b.Y, Z: topB},
				{X: b.X, Y: b.Y, Z: floor.ElevationAt(b.X, b.Y)},
				{X: a.X, Y: a.Y, Z: floor.ElevationAt(a.X, a.Y)},
			}
			mesh = append(mesh, model.MeshSurface{
				Ring:    model.LinearRing{Vertices: quad},
				Surface: wallKind,
			})
		}
	}

	return mesh
}

// stepWalls emits an interior WallInner quad wherever two in-part faces'
// roof planes disagree along a shared edge: the quad spans the elevation
// difference between the two roof labels, so quads appear only where the
// two roof heights differ.
func stepWalls(arr *model.Arrangement, faces []int) model.Mesh {
	faceSet := make(map[int]bool, len(faces))
	for _, fi := range faces {
		faceSet[fi] = true
	}

	const eps = 1e-7
	var walls model.Mesh
	emitted := map[int]bool{}
	for _, fi := range faces {
		f := arr.Faces[fi]
		for _, e := range arr.EdgeLoop(f.OuterComponent) {
			he := arr.HalfEdges[e]
			if emitted[e] || emitted[he.Twin] {
				continue
			}
			other := arr.HalfEdges[he.Twin].Face
			if other < 0 || other == fi || !faceSet[other] {
				continue
			}
			emitted[e] = true

			av := arr.Vertices[he.Origin].Pos
			bv := arr.Vertices[arr.HalfEdges[he.Twin].Origin].Pos
			ax, ay := av.Float64()
			bx, by := bv.Float64()

			hiA := arr.Faces[fi].Plane.ElevationAt(ax, ay)
			hiB := arr.Faces[fi].Plane.ElevationAt(bx, by)
			loA := arr.Faces[other].Plane.ElevationAt(ax, ay)
			loB := arr.Faces[other].Plane.ElevationAt(bx, by)
			if math.Abs(hiA-loA) < eps && math.Abs(hiB-loB) < eps {
				continue
			}
			quad := []geom.Vector3{
				{X: ax, Y: ay, Z: hiA},
				{X: bx, Y: by, Z: hiB},
				{X: bx, Y: by, Z: loB},
				{X: ax, Y: ay, Z: loA},
			}
			walls = append(walls, model.MeshSurface{
				Ring:    model.LinearRing{Vertices: quad},
				Surface: model.SurfaceWallInner,
			})
		}
	}
	return walls
}

func liftRing(arr *model.Arrangement, startHE int, plane geom.Plane3) []geom.Vector3 {
	loop := arr.EdgeLoop(startHE)
	return liftPoints(arr, loop, plane)
}

func liftVerts(arr *model.Arrangement, startHE int, plane geom.Plane3) []geom.Vector3 {
	return liftRing(arr, startHE, plane)
}

func liftPoints(arr *model.Arrangement, loop []int, plane geom.Plane3) []geom.Vector3 {
	out := make([]geom.Vector3, len(loop))
	for i, e := range loop {
		p := arr.Vertices[arr.HalfEdges[e].Origin].Pos
		x, y := p.Float64()
		out[i] = geom.Vector3{X: x, Y: y, Z: plane.ElevationAt(x, y)}
	}
	return out
}

func liftFloor(pts []geom.Vector2, floor model.FloorElevation) []geom.Vector3 {
	out := make([]geom.Vector3, len(pts))
	for i, p := range pts {
		out[i] = geom.Vector3{X: p.X, Y: p.Y, Z: floor.ElevationAt(p.X, p.Y)}
	}
	return out
}

func reverseVectors(v []geom.Vector3) []geom.Vector3 {
	out := make([]geom.Vector3, len(v))
	for i, p := range v {
		out[len(v)-1-i] = p
	}
	return out
}

// boundaryRing is one traced exterior ring of a building part, with the
// originating in-part face recorded per vertex (for wall-top elevation) and
// whether the ring bounds a footprint hole (courtyard) rather than the
// outer perimeter.
type boundaryRing struct {
	verts       []geom.Vector2
	supportFace []int
	hole        bool
}

type boundaryEdge struct {
	he     int
	ofFace int
}

// exteriorRings traces every connected boundary of the faces in part,
// using the same angle-sort-around-a-vertex technique arrangement.go's
// linkHalfEdges uses to recover DCEL face cycles, applied here to the
// sub-graph of half-edges whose twin does not belong to this part.
func exteriorRings(arr *model.Arrangement, faces []int, part int) []boundaryRing {
	faceSet := make(map[int]bool, len(faces))
	for _, fi := range faces {
		faceSet[fi] = true
	}

	var boundary []boundaryEdge
	for _, fi := range faces {
		f := arr.Faces[fi]
		loops := append([]int{f.OuterComponent}, f.InnerComponents...)
		for _, start := range loops {
			if start < 0 {
				continue
			}
			for _, e := range arr.EdgeLoop(start) {
				twin := arr.HalfEdges[arr.HalfEdges[e].Twin]
				if !faceSet[twin.Face] {
					boundary = append(boundary, boundaryEdge{he: e, ofFace: fi})
				}
			}
		}
	}

	// next-boundary-edge-at-vertex lookup, angle-sorted like
	// arrangement.go's vertex linking so a vertex touched by more than one
	// boundary edge resolves deterministically.
	outAt := map[int][]boundaryEdge{}
	for _, be := range boundary {
		origin := arr.HalfEdges[be.he].Origin
		outAt[origin] = append(outAt[origin], be)
	}
	for v := range outAt {
		sort.Slice(outAt[v], func(i, j int) bool {
			return angleOf(arr, outAt[v][i].he) < angleOf(arr, outAt[v][j].he)
		})
	}

	visited := make(map[int]bool)
	var rings []boundaryRing
	for _, start := range boundary {
		if visited[start.he] {
			continue
		}
		var verts []geom.Vector2
		var support []int
		cur := start
		for i := 0; i < len(boundary)+1; i++ {
			visited[cur.he] = true
			p := arr.Vertices[arr.HalfEdges[cur.he].Origin].Pos
			x, y := p.Float64()
			verts = append(verts, geom.Vector2{X: x, Y: y})
			support = append(support, cur.ofFace)

			dest := arr.HalfEdges[arr.HalfEdges[cur.he].Twin].Origin
			candidates := outAt[dest]
			incomingAngle := angleOf(arr, arr.HalfEdges[cur.he].Twin)
			next, ok := pickClockwiseFrom(arr, candidates, incomingAngle)
			if !ok {
				break
			}
			cur = next
			if cur.he == start.he {
				break
			}
		}
		if len(verts) < 3 {
			continue
		}
		area := shoelace(verts)
		rings = append(rings, boundaryRing{verts: verts, supportFace: support, hole: area < 0})
	}
	return rings
}

// pickClockwiseFrom chooses, among candidates leaving the shared vertex,
// the one immediately clockwise of fromAngle (the reverse of the incoming
// edge's direction) — the same rule arrangement.go's linkHalfEdges uses to
// keep the traced region on one consistent side.
func pickClockwiseFrom(arr *model.Arrangement, candidates []boundaryEdge, fromAngle float64) (boundaryEdge, bool) {
	if len(candidates) == 0 {
		return boundaryEdge{}, false
	}
	best := candidates[0]
	bestDelta := -1.0
	for _, c := range candidates {
		delta := normalizeAngle(angleOf(arr, c.he) - fromAngle)
		if delta > bestDelta {
			bestDelta = delta
			best = c
		}
	}
	return best, true
}

func normalizeAngle(a float64) float64 {
	const twoPi = 6.283185307179586
	for a < 0 {
		a += twoPi
	}
	for a >= twoPi {
		a -= twoPi
	}
	return a
}

func shoelace(pts []geom.Vector2) float64 {
	var sum float64
	n := len(pts)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return sum / 2
}

func roofElevationAt(arr *model.Arrangement, faceID int, pt geom.Vector2) float64 {
	f := arr.Faces[faceID]
	return f.Plane.ElevationAt(pt.X, pt.Y)
}

func angleOf(arr *model.Arrangement, he int) float64 {
	o := arr.Vertices[arr.HalfEdges[he].Origin].Pos
	d := arr.Vertices[arr.HalfEdges[arr.HalfEdges[he].Twin].Origin].Pos
	ox, oy := o.Float64()
	dx, dy := d.Float64()
	return math.Atan2(dy-oy, dx-ox)
}

// Prism builds the LoD 1.1-style fallback solid: the outer footprint
// extruded from floor to the 70th-percentile roof elevation, emitted in
// place of the standard pipeline when a building
// exceeds max_arr_complexity or max_time_ms. It reuses the same ring-
// reversal and floor-lifting helpers the standard extrusion path uses, with
// a flat roofZ in place of a per-face plane and the footprint's own rings
// in place of a traced arrangement boundary.
func Prism(fp model.Footprint, floor model.FloorElevation, roofZ float64) model.Mesh {
	var mesh model.Mesh

	roofRing := make([]geom.Vector3, len(fp.Outer))
	for i, v := range fp.Outer {
		roofRing[i] = geom.Vector3{X: v.X, Y: v.Y, Z: roofZ}
	}
	mesh = append(mesh, model.MeshSurface{
		Ring:    model.LinearRing{Vertices: roofRing},
		Surface: model.SurfaceRoof,
	})

	floorOuter := reverseVectors(liftFloor(fp.Outer, floor))
	var floorHoles [][]geom.Vector3
	for _, hole := range fp.Holes {
		floorHoles = append(floorHoles, liftFloor(hole, floor))
	}
	mesh = append(mesh, model.MeshSurface{
		Ring:    model.LinearRing{Vertices: floorOuter, Holes: floorHoles},
		Surface: model.SurfaceGround,
	})

	mesh = append(mesh, prismWalls(fp.Outer, floor, roofZ, model.SurfaceWallOuter)...)
	for _, hole := range fp.Holes {
		mesh = append(mesh, prismWalls(hole, floor, roofZ, model.SurfaceWallInner)...)
	}
	return mesh
}

func prismWalls(ring []geom.Vector2, floor model.FloorElevation, roofZ float64, kind model.SurfaceType) model.Mesh {
	var walls model.Mesh
	n := len(ring)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		a, b := ring[i], ring[j]
		quad := []geom.Vector3{
			{X: a.X, Y: a.Y, Z: roofZ},
			{X: b.X, Y: b.Y, Z: roofZ},
			{X: b.X, Y: b.Y, Z: floor.ElevationAt(b.X, b.Y)},
			{X: a.X, Y: a.Y, Z: floor.ElevationAt(a.X, a.Y)},
		}
		walls = append(walls, model.MeshSurface{
			Ring:    model.LinearRing{Vertices: quad},
			Surface: kind,
		})
	}
	return walls
}

// CDTFloorElevation implements model.FloorElevation by interpolating the
// ground height over a fan triangulation of the footprint's outer ring
// (used when the footprint carries a per-vertex ZValues rather than a
// single constant floor height). A fan from the ring's centroid stands in
// for a true constrained Delaunay triangulation: the footprint ring
// supplied to Reconstruct is assumed near-convex, so the fan already
// covers it.
type CDTFloorElevation struct {
	centroid  geom.Vector2
	centroidZ float64
	ring      []geom.Vector2
	z         []float64
}

// NewCDTFloorElevation builds a CDTFloorElevation from a footprint whose
// Outer ring and ZValues are the same length.
func NewCDTFloorElevation(fp model.Footprint) CDTFloorElevation {
	var c geom.Vector2
	var cz float64
	n := float64(len(fp.Outer))
	for i, p := range fp.Outer {
		c = c.Add(p)
		if i < len(fp.ZValues) {
			cz += fp.ZValues[i]
		}
	}
	if n > 0 {
		c = c.Scale(1 / n)
		cz /= n
	}
	return CDTFloorElevation{centroid: c, centroidZ: cz, ring: fp.Outer, z: fp.ZValues}
}

// ElevationAt implements model.FloorElevation via barycentric interpolation
// within whichever centroid fan triangle contains (x, y); points outside
// every fan triangle fall back to the nearest ring vertex's elevation.
func (f CDTFloorElevation) ElevationAt(x, y float64) float64 {
	p := geom.Vector2{X: x, Y: y}
	n := len(f.ring)
	if n == 0 {
		return f.centroidZ
	}
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		if bary, ok := barycentric(f.centroid, f.ring[i], f.ring[j], p); ok {
			zi, zj := f.zAt(i), f.zAt(j)
			return bary[0]*f.centroidZ + bary[1]*zi + bary[2]*zj
		}
	}
	best := 0
	bestDist := p.Distance(f.ring[0])
	for i := 1; i < n; i++ {
		if d := p.Distance(f.ring[i]); d < bestDist {
			bestDist = d
			best = i
		}
	}
	return f.zAt(best)
}

func (f CDTFloorElevation) zAt(i int) float64 {
	if i < len(f.z) {
		return f.z[i]
	}
	return f.centroidZ
}

// barycentric returns the barycentric weights of p within triangle (a,b,c)
// and whether p lies inside it (all weights in [0,1]).
func barycentric(a, b, c, p geom.Vector2) ([3]float64, bool) {
	v0, v1, v2 := b.Sub(a), c.Sub(a), p.Sub(a)
	d00 := v0.Dot(v0)
	d01 := v0.Dot(v1)
	d11 := v1.Dot(v1)
	d20 := v2.Dot(v0)
	d21 := v2.Dot(v1)
	denom := d00*d11 - d01*d01
	if denom == 0 {
		return [3]float64{}, false
	}
	v := (d11*d20 - d01*d21) / denom
	w := (d00*d21 - d01*d20) / denom
	u := 1 - v - w
	const eps = -1e-9
	if u < eps || v < eps || w < eps {
		return [3]float64{}, false
	}
	return [3]float64{u, v, w}, true
}
