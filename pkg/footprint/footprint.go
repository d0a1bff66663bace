// Package footprint implements the footprint reader the driver feeds the
// pipeline from: 2D polygons with holes and arbitrary attribute rows. No
// format is mandated; this package provides an in-memory Reader and a
// minimal GeoJSON reader (a single FeatureCollection of Polygon features),
// mirroring pkg/pointcloud's reader shape.
package footprint

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/arx-os/roofer/core/reconstruct/model"
	"github.com/arx-os/roofer/internal/geom"
)

// Building is one footprint polygon plus its caller-defined attribute
// row, keyed however the
// upstream dataset likes (a parcel id, an OSM way id, ...).
type Building struct {
	ID         string
	Outer      []geom.Vector2
	Holes      [][]geom.Vector2
	Attributes map[string]interface{}
}

// ToModel converts b into the model.Footprint core/reconstruct.Reconstruct
// expects, discarding ID and Attributes (they travel alongside the result
// in the driver, not through the core).
func (b Building) ToModel() model.Footprint {
	return model.Footprint{Outer: b.Outer, Holes: b.Holes}
}

// Reader provides access to every building footprint in a dataset.
type Reader interface {
	// Each calls fn once per building, stopping and returning fn's
	// error if it returns non-nil.
	Each(fn func(Building) error) error
}

// InMemory is a Reader backed by an already-loaded slice.
type InMemory struct {
	Buildings []Building
}

// NewInMemory builds an InMemory reader over buildings.
func NewInMemory(buildings []Building) *InMemory {
	return &InMemory{Buildings: buildings}
}

// Each implements Reader.
func (m *InMemory) Each(fn func(Building) error) error {
	for _, b := range m.Buildings {
		if err := fn(b); err != nil {
			return err
		}
	}
	return nil
}

// geoJSON is the minimal subset of GeoJSON this reader understands: a
// FeatureCollection of Polygon features, ring 0 the outer boundary and
// any further rings holes, per the GeoJSON Polygon convention.
type geoJSON struct {
	Features []struct {
		Properties map[string]interface{} `json:"properties"`
		Geometry   struct {
			Type        string        `json:"type"`
			Coordinates [][][]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// ReadGeoJSON parses a GeoJSON FeatureCollection of Polygon features
// into buildings, using each feature's "id" property (falling back to
// its index) as Building.ID.
func ReadGeoJSON(r io.Reader) (*InMemory, error) {
	var doc geoJSON
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding geojson: %w", err)
	}
	buildings := make([]Building, 0, len(doc.Features))
	for i, feat := range doc.Features {
		if feat.Geometry.Type != "Polygon" {
			return nil, fmt.Errorf("feature %d: unsupported geometry type %q", i, feat.Geometry.Type)
		}
		if len(feat.Geometry.Coordinates) == 0 {
			return nil, fmt.Errorf("feature %d: polygon has no rings", i)
		}
		b := Building{
			ID:         buildingID(feat.Properties, i),
			Outer:      toRing(feat.Geometry.Coordinates[0]),
			Attributes: feat.Properties,
		}
		for _, hole := range feat.Geometry.Coordinates[1:] {
			b.Holes = append(b.Holes, toRing(hole))
		}
		buildings = append(buildings, b)
	}
	return NewInMemory(buildings), nil
}

func buildingID(props map[string]interface{}, index int) string {
	if props != nil {
		if id, ok := props["id"]; ok {
			return fmt.Sprint(id)
		}
	}
	return fmt.Sprintf("feature-%d", index)
}

func toRing(coords [][]float64) []geom.Vector2 {
	ring := make([]geom.Vector2, len(coords))
	for i, c := range coords {
		if len(c) < 2 {
			continue
		}
		ring[i] = geom.Vector2{X: c[0], Y: c[1]}
	}
	return ring
}

// ReadGeoJSONFile opens path and parses it as a GeoJSON FeatureCollection.
func ReadGeoJSONFile(path string) (*InMemory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadGeoJSON(f)
}
