package pointcloud

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadXYZParsesColumnsAndSkipsComments(t *testing.T) {
	input := "# header\n1.0 2.0 3.0 6 100.5\n4 5 6\n\n"
	r, err := ReadXYZ(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, r.Points, 2)
	assert.Equal(t, Point{X: 1, Y: 2, Z: 3, Classification: 6, GPSTime: 100.5}, r.Points[0])
	assert.Equal(t, Point{X: 4, Y: 5, Z: 6}, r.Points[1])
}

func TestReadXYZRejectsShortLines(t *testing.T) {
	_, err := ReadXYZ(strings.NewReader("1.0 2.0\n"))
	assert.Error(t, err)
}

func TestEachStopsOnCallbackError(t *testing.T) {
	r := NewInMemory("", []Point{{X: 1}, {X: 2}, {X: 3}})
	sentinel := errors.New("stop")
	var seen int
	err := r.Each(func(Point) error {
		seen++
		if seen == 2 {
			return sentinel
		}
		return nil
	})
	assert.Equal(t, sentinel, err)
	assert.Equal(t, 2, seen)
}

func TestClassFilteredKeepsOnlyMatchingClasses(t *testing.T) {
	r := NewInMemory("EPSG:4326", []Point{
		{X: 1, Classification: 2},
		{X: 2, Classification: 6},
		{X: 3, Classification: 2},
	})
	ground, err := ClassFiltered(r, 2)
	require.NoError(t, err)
	assert.Equal(t, "EPSG:4326", ground.SRS())

	var xs []float64
	require.NoError(t, ground.Each(func(p Point) error {
		xs = append(xs, p.X)
		return nil
	}))
	assert.Equal(t, []float64{1, 3}, xs)
}

func TestToPointSetDropsSRSAndGPSTime(t *testing.T) {
	r := NewInMemory("EPSG:4326", []Point{{X: 1, Y: 2, Z: 3, Classification: 6, GPSTime: 42}})
	set, err := ToPointSet(r)
	require.NoError(t, err)
	require.Len(t, set.Points, 1)
	assert.Equal(t, float64(1), set.Points[0].X)
	assert.Equal(t, uint8(6), set.Points[0].Classification)
}
