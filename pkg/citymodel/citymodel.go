// Package citymodel implements the CityJSON writer the driver streams
// results through: one CityJSON metadata line followed by one
// CityJSONFeature per building, newline-delimited, with vertex coordinates
// quantised to integers. CityJSON's schema is exactly what encoding/json
// struct tags already express, so it is used directly.
package citymodel

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/arx-os/roofer/core/reconstruct/model"
	"github.com/arx-os/roofer/internal/geom"
)

// Transform is the CityJSON quantisation `(raw - translate) / scale`,
// applied per axis.
type Transform struct {
	Scale     [3]float64
	Translate [3]float64
}

// DefaultTransform returns the scale=0.001/translate=anchor default,
// anchored at the given world-space origin (the tile's data anchor).
func DefaultTransform(anchor geom.Vector3) Transform {
	return Transform{
		Scale:     [3]float64{0.001, 0.001, 0.001},
		Translate: [3]float64{anchor.X, anchor.Y, anchor.Z},
	}
}

// metadata is the header line's CityJSON document, version "2.0", empty
// CityObjects/vertices — a tile's metadata carries no geometry of its
// own, only the transform every feature line's vertices are expressed
// against.
type metadata struct {
	Type        string         `json:"type"`
	Version     string         `json:"version"`
	Transform   cityTransform  `json:"transform"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CityObjects map[string]any `json:"CityObjects"`
	Vertices    [][3]int64     `json:"vertices"`
}

type cityTransform struct {
	Scale     [3]float64 `json:"scale"`
	Translate [3]float64 `json:"translate"`
}

// feature is one CityJSONFeature line: a single building's CityObjects
// (the building itself plus one BuildingPart per solid) and the
// feature-local vertex list its geometry boundaries index into.
type feature struct {
	Type        string                  `json:"type"`
	ID          string                  `json:"id"`
	CityObjects map[string]cityObject   `json:"CityObjects"`
	Vertices    [][3]int64              `json:"vertices"`
}

type cityObject struct {
	Type       string                 `json:"type"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
	Geometry   []geometry             `json:"geometry,omitempty"`
	Parents    []string               `json:"parents,omitempty"`
	Children   []string               `json:"children,omitempty"`
}

type geometry struct {
	Type        string          `json:"type"` // "Solid"
	LoD         string          `json:"lod"`
	Boundaries  [][][][]int     `json:"boundaries"`
	Semantics   *semanticsBlock `json:"semantics,omitempty"`
}

type semanticsBlock struct {
	Surfaces []map[string]string `json:"surfaces"`
	Values   [][]int             `json:"values"`
}

// Writer accumulates a CityJSON metadata header and writes one
// CityJSONFeature per building, the `.city.jsonl` tile layout.
type Writer struct {
	w         io.Writer
	transform Transform
	wroteMeta bool
}

// NewWriter builds a Writer that quantises coordinates with transform.
func NewWriter(w io.Writer, transform Transform) *Writer {
	return &Writer{w: w, transform: transform}
}

// WriteMetadata writes the CityJSON header line. Must be called exactly
// once, before any WriteBuilding call.
func (cw *Writer) WriteMetadata() error {
	if cw.wroteMeta {
		return fmt.Errorf("citymodel: metadata already written")
	}
	cw.wroteMeta = true
	meta := metadata{
		Type:    "CityJSON",
		Version: "2.0",
		Transform: cityTransform{
			Scale:     cw.transform.Scale,
			Translate: cw.transform.Translate,
		},
		CityObjects: map[string]any{},
		Vertices:    [][3]int64{},
	}
	return cw.writeLine(meta)
}

// Building is everything WriteBuilding needs to emit one feature: the id,
// the per-LoD solids, and the reconstruction attribute row. It also carries
// the footprint, which WriteBuilding does not write, neither as geometry
// nor as an attribute.
type Building struct {
	ID         string
	Footprint  model.Footprint
	LoDs       map[model.LoD]model.MultiSolid
	Attributes model.Attributes
}

// WriteBuilding quantises and writes one CityJSONFeature line: the
// Building CityObject plus one BuildingPart child per solid part, each
// carrying every available LoD's Solid geometry.
func (cw *Writer) WriteBuilding(b Building) error {
	if !cw.wroteMeta {
		return fmt.Errorf("citymodel: WriteMetadata must be called before WriteBuilding")
	}

	vtx := &vertexPool{transform: cw.transform}
	children := make([]string, 0)
	objects := map[string]cityObject{}

	partIDs := unionPartIDs(b.LoDs)
	for _, partID := range partIDs {
		partName := fmt.Sprintf("%s-part-%d", b.ID, partID)
		children = append(children, partName)

		var geoms []geometry
		for _, lod := range []model.LoD{model.LoD12, model.LoD13, model.LoD22} {
			solid, ok := b.LoDs[lod]
			if !ok {
				continue
			}
			mesh, ok := solid[partID]
			if !ok {
				continue
			}
			geoms = append(geoms, buildGeometry(lod, mesh, vtx))
		}
		objects[partName] = cityObject{
			Type:     "BuildingPart",
			Geometry: geoms,
			Parents:  []string{b.ID},
		}
	}

	objects[b.ID] = cityObject{
		Type:       "Building",
		Attributes: attributesMap(b.Attributes),
		Children:   children,
	}

	feat := feature{
		Type:        "CityJSONFeature",
		ID:          b.ID,
		CityObjects: objects,
		Vertices:    vtx.vertices,
	}
	return cw.writeLine(feat)
}

func (cw *Writer) writeLine(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := cw.w.Write(data); err != nil {
		return err
	}
	_, err = cw.w.Write([]byte("\n"))
	return err
}

// vertexPool deduplicates quantised vertices within one feature, the
// same per-feature vertex list CityJSONFeature's own schema requires
// (each feature line carries its own "vertices" array, distinct from the
// header's).
type vertexPool struct {
	transform Transform
	vertices  [][3]int64
	index     map[[3]int64]int
}

func (p *vertexPool) add(v geom.Vector3) int {
	if p.index == nil {
		p.index = map[[3]int64]int{}
	}
	q := [3]int64{
		quantise(v.X, p.transform.Scale[0], p.transform.Translate[0]),
		quantise(v.Y, p.transform.Scale[1], p.transform.Translate[1]),
		quantise(v.Z, p.transform.Scale[2], p.transform.Translate[2]),
	}
	if idx, ok := p.index[q]; ok {
		return idx
	}
	idx := len(p.vertices)
	p.vertices = append(p.vertices, q)
	p.index[q] = idx
	return idx
}

func quantise(raw, scale, translate float64) int64 {
	return int64(math.Round((raw - translate) / scale))
}

// buildGeometry turns one part's Mesh into a CityJSON Solid geometry:
// one boundary per MeshSurface, with each LinearRing's holes written as
// the surface's interior loops per the CityJSON boundary nesting, plus a
// parallel semantics block labelling every surface by model.SurfaceType.
func buildGeometry(lod model.LoD, mesh model.Mesh, vtx *vertexPool) geometry {
	surfaceIndex := map[model.SurfaceType]int{}
	var surfaces []map[string]string
	var values []int
	var boundaries [][][]int

	for _, surf := range mesh {
		ring := make([]int, 0, len(surf.Ring.Vertices))
		for _, v := range surf.Ring.Vertices {
			ring = append(ring, vtx.add(v))
		}
		shell := [][]int{ring}
		for _, hole := range surf.Ring.Holes {
			holeIdx := make([]int, 0, len(hole))
			for _, v := range hole {
				holeIdx = append(holeIdx, vtx.add(v))
			}
			shell = append(shell, holeIdx)
		}
		boundaries = append(boundaries, shell)

		si, ok := surfaceIndex[surf.Surface]
		if !ok {
			si = len(surfaces)
			surfaceIndex[surf.Surface] = si
			surfaces = append(surfaces, map[string]string{"type": surf.Surface.String()})
		}
		values = append(values, si)
	}

	return geometry{
		Type:       "Solid",
		LoD:        fmt.Sprintf("%.1f", float64(lod)/10),
		Boundaries: [][][][]int{boundaries},
		Semantics:  &semanticsBlock{Surfaces: surfaces, Values: [][]int{values}},
	}
}

func unionPartIDs(lods map[model.LoD]model.MultiSolid) []int {
	seen := map[int]bool{}
	for _, solid := range lods {
		for id := range solid {
			seen[id] = true
		}
	}
	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func attributesMap(a model.Attributes) map[string]interface{} {
	return map[string]interface{}{
		"roof_type":        string(a.RoofType),
		"roof_elevation_min": a.RoofElevation.Min,
		"roof_elevation_max": a.RoofElevation.Max,
		"roof_elevation_50p": a.RoofElevation.P50,
		"roof_elevation_70p": a.RoofElevation.P70,
		"rmse_lod12":       a.RMSELoD12,
		"rmse_lod13":       a.RMSELoD13,
		"rmse_lod22":       a.RMSELoD22,
		"volume_lod12":     a.VolumeLoD12,
		"volume_lod13":     a.VolumeLoD13,
		"volume_lod22":     a.VolumeLoD22,
		"validity_lod12":   a.ValidLoD12,
		"validity_lod13":   a.ValidLoD13,
		"validity_lod22":   a.ValidLoD22,
		"extrusion_mode":   string(a.ExtrusionMode),
		"fallback_reason":  a.FallbackReason,
		"plane_clusters":   a.PlaneClusters,
	}
}
