package citymodel

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/arx-os/roofer/core/reconstruct/model"
	"github.com/arx-os/roofer/internal/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simpleMesh() model.Mesh {
	return model.Mesh{
		{
			Surface: model.SurfaceRoof,
			Ring: model.LinearRing{Vertices: []geom.Vector3{
				{X: 0, Y: 0, Z: 3}, {X: 10, Y: 0, Z: 3}, {X: 10, Y: 10, Z: 3}, {X: 0, Y: 10, Z: 3},
			}},
		},
		{
			Surface: model.SurfaceGround,
			Ring: model.LinearRing{Vertices: []geom.Vector3{
				{X: 0, Y: 0, Z: 0}, {X: 0, Y: 10, Z: 0}, {X: 10, Y: 10, Z: 0}, {X: 10, Y: 0, Z: 0},
			}},
		},
	}
}

func TestWriteMetadataOnlyOnce(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, DefaultTransform(geom.Vector3{}))
	require.NoError(t, w.WriteMetadata())
	assert.Error(t, w.WriteMetadata())
}

func TestWriteBuildingRequiresMetadataFirst(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, DefaultTransform(geom.Vector3{}))
	err := w.WriteBuilding(Building{ID: "b1"})
	assert.Error(t, err)
}

func TestWriteBuildingProducesValidFeatureLine(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, DefaultTransform(geom.Vector3{}))
	require.NoError(t, w.WriteMetadata())

	b := Building{
		ID: "b1",
		LoDs: map[model.LoD]model.MultiSolid{
			model.LoD22: {0: simpleMesh()},
		},
		Attributes: model.Attributes{RoofType: model.RoofTypeHorizontal, ExtrusionMode: model.ExtrusionModeStandard},
	}
	require.NoError(t, w.WriteBuilding(b))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &meta))
	assert.Equal(t, "CityJSON", meta["type"])

	var feat map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[1], &feat))
	assert.Equal(t, "CityJSONFeature", feat["type"])
	assert.Equal(t, "b1", feat["id"])

	objects := feat["CityObjects"].(map[string]interface{})
	require.Contains(t, objects, "b1")
	require.Contains(t, objects, "b1-part-0")

	part := objects["b1-part-0"].(map[string]interface{})
	geoms := part["geometry"].([]interface{})
	require.Len(t, geoms, 1)
	geom0 := geoms[0].(map[string]interface{})
	assert.Equal(t, "2.2", geom0["lod"])
}

func TestQuantiseRoundsToScale(t *testing.T) {
	assert.Equal(t, int64(1000), quantise(1.0, 0.001, 0))
	assert.Equal(t, int64(0), quantise(5.0, 0.001, 5.0))
}

func TestVertexPoolDeduplicates(t *testing.T) {
	pool := &vertexPool{transform: DefaultTransform(geom.Vector3{})}
	a := pool.add(geom.Vector3{X: 1, Y: 2, Z: 3})
	b := pool.add(geom.Vector3{X: 1, Y: 2, Z: 3})
	c := pool.add(geom.Vector3{X: 4, Y: 5, Z: 6})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, pool.vertices, 2)
}

func TestUnionPartIDsSortsAndDedupes(t *testing.T) {
	lods := map[model.LoD]model.MultiSolid{
		model.LoD12: {2: nil, 0: nil},
		model.LoD22: {0: nil, 1: nil},
	}
	assert.Equal(t, []int{0, 1, 2}, unionPartIDs(lods))
}
