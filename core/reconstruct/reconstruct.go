// Package reconstruct wires the pipeline stages into the single
// per-building entry point, enforcing the per-building complexity and time
// budgets and producing the three LoDs in one pass over a shared,
// progressively refined arrangement.
package reconstruct

import (
	"sort"
	"time"

	"github.com/arx-os/roofer/core/reconstruct/alpha"
	"github.com/arx-os/roofer/core/reconstruct/arrangement"
	"github.com/arx-os/roofer/core/reconstruct/arrangement/dissolve"
	"github.com/arx-os/roofer/core/reconstruct/arrangement/extrude"
	"github.com/arx-os/roofer/core/reconstruct/arrangement/optimize"
	"github.com/arx-os/roofer/core/reconstruct/arrangement/snap"
	"github.com/arx-os/roofer/core/reconstruct/lines"
	"github.com/arx-os/roofer/core/reconstruct/mesh"
	"github.com/arx-os/roofer/core/reconstruct/model"
	"github.com/arx-os/roofer/core/reconstruct/planes"
	"github.com/arx-os/roofer/core/reconstruct/raster"
	"github.com/arx-os/roofer/core/reconstruct/regularize"
	"github.com/arx-os/roofer/internal/geom"
	apperrors "github.com/arx-os/roofer/pkg/errors"
)

// groundClassification is the ASPRS LAS code for ground-classified points.
const groundClassification = 2

// worldXYBasis is the flat footprint-plane basis every 2D-world-coordinate
// stage (regularisation, arrangement insertion) shares, anchored at the
// origin so exact.Point values carry the point cloud's own local frame.
var worldXYBasis = geom.NewPlaneBasis(geom.Plane3{C: 1}, geom.Vector3{})

// Reconstruct runs the full pipeline for one building, given its LiDAR
// inliers, its 2D footprint, and the tunables of cfg. floor supplies the
// solids' ground elevation; pass model.ConstantElevation(z) or
// extrude.NewCDTFloorElevation(footprint).
func Reconstruct(points model.PointSet, footprint model.Footprint, cfg model.Config, floor model.FloorElevation) model.Result {
	start := time.Now()

	if degenerateFootprint(footprint) {
		return model.Result{
			Status: model.StatusSkipped,
			Attributes: model.Attributes{
				ExtrusionMode:  model.ExtrusionModeSkip,
				FallbackReason: "degenerate_footprint",
			},
			Err:      apperrors.NewAppError(apperrors.CodeDegenerateInput, "footprint rejected before plane detection", nil),
			Duration: time.Since(start),
		}
	}

	roofPts, groundPts := splitByClassification(points)
	roofDetect := planes.NewDetector(cfg).Detect(roofPts)
	if len(roofDetect.Planes) == 0 {
		return model.Result{
			Status:     model.StatusInsufficient,
			Attributes: model.Attributes{RoofType: roofDetect.RoofType, ExtrusionMode: model.ExtrusionModeSkip},
			Err:        apperrors.NewAppError(apperrors.CodeInsufficientData, string(roofDetect.RoofType), nil),
			Duration:   time.Since(start),
		}
	}

	groundDetect := planes.Result{Planes: model.PlaneSet{}}
	if len(groundPts.Points) > 0 {
		groundDetect = planes.NewDetector(cfg).Detect(groundPts)
	}

	shaper := alpha.NewShaper(cfg)
	lineDet := lines.NewDetector(cfg)
	var allTriangles []model.AlphaTriangle
	var allSegments []model.Segment3
	bounds := geom.EmptyBoundingBox2()

	for _, id := range sortedPlaneIDs(roofDetect.Planes) {
		plane := roofDetect.Planes[id]
		ring, tris, ok := shaper.Shape(plane, roofPts)
		if !ok {
			continue
		}
		allTriangles = append(allTriangles, tris...)
		for _, v := range ring.Vertices {
			bounds = bounds.Expand(geom.Vector2{X: v.X, Y: v.Y})
		}

		centroid := inlierCentroid(plane, roofPts)
		basis := geom.NewPlaneBasis(plane.Coeffs, centroid)
		allSegments = append(allSegments, lineDet.DetectRing(ring, basis)...)
	}
	for _, v := range footprint.Outer {
		bounds = bounds.Expand(v)
	}

	// Ground planes contribute alpha triangles to the heightfield (cells
	// the roof never covered) but no boundary lines: the footprint itself
	// bounds the terrain.
	var groundTriangles []model.AlphaTriangle
	for _, id := range sortedPlaneIDs(groundDetect.Planes) {
		_, tris, ok := shaper.Shape(groundDetect.Planes[id], groundPts)
		if !ok {
			continue
		}
		groundTriangles = append(groundTriangles, tris...)
	}

	intersector := lines.NewIntersector(cfg)
	allSegments = append(allSegments, intersector.Intersect(roofDetect.Planes, roofDetect.Adjacency, roofPts)...)

	regularised := regularize.NewRegulariser(cfg).Regularise(allSegments, worldXYBasis)

	bounds = bounds.Pad(cfg.CellSize)
	hf := raster.NewRasteriser(cfg).RasteriseWithGround(allTriangles, groundTriangles, bounds)

	builder := arrangement.NewBuilder(cfg)
	arr, boundedFaces := builder.Build(footprint, regularised)

	maxComplexity := float64(cfg.MaxArrComplexity) * cfg.ComplexityFactor
	if maxComplexity > 0 && float64(boundedFaces) > maxComplexity {
		return fallbackResult(footprint, floor, roofDetect, "face_count", start)
	}

	useGround := cfg.ClipGround && len(groundDetect.Planes) > 0
	optimize.NewOptimiser(cfg).Optimise(arr, hf, roofDetect.Planes, groundDetect.Planes, useGround)

	if cfg.MaxTimeMs > 0 && uint32(time.Since(start).Milliseconds()) > cfg.MaxTimeMs {
		return fallbackResult(footprint, floor, roofDetect, "time_budget", start)
	}

	dissolver := dissolve.NewDissolver(cfg)
	snapper := snap.NewSnapper(cfg)
	extruder := extrude.NewExtruder(cfg)
	triangulator := mesh.NewTriangulator()
	validator := mesh.NewValidator()

	attrs := model.Attributes{
		RoofType:      roofDetect.RoofType,
		RoofElevation: roofDetect.Elevation,
		ExtrusionMode: model.ExtrusionModeStandard,
		PlaneClusters: roofDetect.Clusters,
	}
	lods := map[model.LoD]model.MultiSolid{}

	for _, lod := range []model.LoD{model.LoD12, model.LoD13, model.LoD22} {
		lodArr := dissolver.Dissolve(arr, lod)
		snapper.Snap(lodArr)
		solids := extruder.Extrude(lodArr, lod, floor)
		lods[lod] = solids

		var rmse float64
		valid := true
		var volume float64
		for _, part := range solids {
			tris := triangulator.Triangulate(part)
			valid = valid && validator.Valid(part, tris)
			volume += solidVolume(tris)
		}
		rmse = meshRMSE(lodArr, roofPts)

		switch lod {
		case model.LoD12:
			attrs.RMSELoD12, attrs.ValidLoD12, attrs.VolumeLoD12 = rmse, valid, volume
		case model.LoD13:
			attrs.RMSELoD13, attrs.ValidLoD13, attrs.VolumeLoD13 = rmse, valid, volume
		case model.LoD22:
			attrs.RMSELoD22, attrs.ValidLoD22, attrs.VolumeLoD22 = rmse, valid, volume
		}
	}

	return model.Result{
		LoDs:       lods,
		Attributes: attrs,
		Status:     model.StatusOk,
		Duration:   time.Since(start),
	}
}

// fallbackResult builds the LoD 1.1-style fallback Result emitted when a
// building exceeds its complexity or time budget: the
// footprint extruded from floor to the 70th-percentile roof elevation,
// reused identically across all three LoD keys since the fallback replaces
// the standard per-LoD pipeline wholesale rather than approximating each
// LoD separately.
func fallbackResult(footprint model.Footprint, floor model.FloorElevation, roofDetect planes.Result, reason string, start time.Time) model.Result {
	roofZ := roofDetect.Elevation.P70
	part := extrude.Prism(footprint, floor, roofZ)
	solids := model.MultiSolid{0: part}

	triangulator := mesh.NewTriangulator()
	tris := triangulator.Triangulate(part)
	valid := mesh.NewValidator().Valid(part, tris)
	volume := solidVolume(tris)

	lods := map[model.LoD]model.MultiSolid{
		model.LoD12: solids,
		model.LoD13: solids,
		model.LoD22: solids,
	}

	return model.Result{
		LoDs: lods,
		Attributes: model.Attributes{
			RoofType:       roofDetect.RoofType,
			RoofElevation:  roofDetect.Elevation,
			ExtrusionMode:  model.ExtrusionModeLoD11Fallback,
			FallbackReason: reason,
			PlaneClusters:  roofDetect.Clusters,
			VolumeLoD12:    volume,
			VolumeLoD13:    volume,
			VolumeLoD22:    volume,
			ValidLoD12:     valid,
			ValidLoD13:     valid,
			ValidLoD22:     valid,
		},
		Status:   model.StatusFallback,
		Err:      apperrors.NewAppError(apperrors.CodeBudgetExceeded, reason, nil),
		Duration: time.Since(start),
	}
}

// degenerateFootprint rejects unusable footprints before any plane
// detection runs: fewer than three outer
// vertices, or an outer ring whose area is effectively zero (collinear
// ring, repeated vertex polygon).
func degenerateFootprint(fp model.Footprint) bool {
	if len(fp.Outer) < 3 {
		return true
	}
	var area float64
	n := len(fp.Outer)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		area += fp.Outer[i].X*fp.Outer[j].Y - fp.Outer[j].X*fp.Outer[i].Y
	}
	if area < 0 {
		area = -area
	}
	return area/2 <= 1e-9
}

func splitByClassification(points model.PointSet) (roof, ground model.PointSet) {
	for _, p := range points.Points {
		if p.Classification == groundClassification {
			ground.Points = append(ground.Points, p)
		} else {
			roof.Points = append(roof.Points, p)
		}
	}
	return roof, ground
}

func inlierCentroid(plane *model.Plane, pts model.PointSet) geom.Vector3 {
	var c geom.Vector3
	for _, idx := range plane.Inliers {
		c = c.Add(pts.Points[idx].Vector())
	}
	if len(plane.Inliers) > 0 {
		c = c.Scale(1 / float64(len(plane.Inliers)))
	}
	return c
}

func sortedPlaneIDs(planes model.PlaneSet) []int {
	ids := make([]int, 0, len(planes))
	for id := range planes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// meshRMSE reassembles the per-face plane lookup from the dissolved
// arrangement's surviving faces and scores every roof-classified input
// point against whichever face contains it in plan view.
func meshRMSE(arr *model.Arrangement, roofPts model.PointSet) float64 {
	type facePoly struct {
		ring  [][2]float64
		plane geom.Plane3
	}
	var faces []facePoly
	for _, f := range arr.Faces {
		if f.Dissolved || f.OuterComponent < 0 || !f.InFootprint {
			continue
		}
		loop := arr.EdgeLoop(f.OuterComponent)
		ring := make([][2]float64, len(loop))
		for i, e := range loop {
			p := arr.Vertices[arr.HalfEdges[e].Origin].Pos
			x, y := p.Float64()
			ring[i] = [2]float64{x, y}
		}
		faces = append(faces, facePoly{ring: ring, plane: f.Plane})
	}

	pts := make([]geom.Vector3, len(roofPts.Points))
	for i, p := range roofPts.Points {
		pts[i] = p.Vector()
	}
	return mesh.RMSE(pts, func(x, y float64) (geom.Plane3, bool) {
		for _, f := range faces {
			if pointInPoly(x, y, f.ring) {
				return f.plane, true
			}
		}
		return geom.Plane3{}, false
	})
}

func pointInPoly(x, y float64, ring [][2]float64) bool {
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

// solidVolume estimates a part's enclosed volume via the divergence theorem
// (sum over triangles of the signed tetrahedron volume to the origin),
// the standard mesh-volume formula the mesh package's triangle fans feed
// directly into.
func solidVolume(tris []mesh.Triangle) float64 {
	var vol float64
	for _, t := range tris {
		vol += t.A.Dot(t.B.Cross(t.C)) / 6
	}
	if vol < 0 {
		vol = -vol
	}
	return vol
}
