// Package pointcloud implements the point-cloud reader the driver feeds
// the pipeline from: iterator-like access to (x, y, z, classification,
// gps_time) plus the dataset's SRS, with a classification-filtered view
// for separating ground from building points before handing them to
// core/reconstruct.
package pointcloud

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/arx-os/roofer/core/reconstruct/model"
)

// Point is one LiDAR return in the reader's own double-precision,
// un-anchored coordinate space, including the two ASPRS codes
// reconstruct.go currently distinguishes between (ground=2, building=6).
type Point struct {
	X, Y, Z        float64
	Classification uint8
	GPSTime        float64
}

// Reader provides iterator-like access to a point cloud's points and its
// spatial reference system. No format is mandated;
// Reader is implemented here by an in-memory slice and by an XYZ text
// reader, and a caller may implement it over LAS/LAZ/COPC without
// touching core/reconstruct.
type Reader interface {
	// SRS returns the dataset's spatial reference system as WKT, or ""
	// if unknown.
	SRS() string

	// Each calls fn once per point in file order, stopping and
	// returning fn's error if it returns non-nil.
	Each(fn func(Point) error) error
}

// InMemory is a Reader backed by an already-loaded slice, useful for
// tests and for callers who have already parsed their own format.
type InMemory struct {
	srs    string
	Points []Point
}

// NewInMemory builds an InMemory reader over points, tagging it with srs
// (pass "" if unknown).
func NewInMemory(srs string, points []Point) *InMemory {
	return &InMemory{srs: srs, Points: points}
}

// SRS implements Reader.
func (m *InMemory) SRS() string { return m.srs }

// Each implements Reader.
func (m *InMemory) Each(fn func(Point) error) error {
	for _, p := range m.Points {
		if err := fn(p); err != nil {
			return err
		}
	}
	return nil
}

// ReadXYZ parses a whitespace-delimited XYZ text file: one point per
// line, columns `x y z [classification [gps_time]]`, `#`-prefixed lines
// ignored as comments. This is the simplest of the many point cloud text
// formats the pipeline's ground truth fixtures use and needs no external
// parser.
func ReadXYZ(r io.Reader) (*InMemory, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	var points []Point
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, fmt.Errorf("xyz line %d: expected at least 3 columns, got %d", lineNo, len(fields))
		}
		p, err := parsePoint(fields)
		if err != nil {
			return nil, fmt.Errorf("xyz line %d: %w", lineNo, err)
		}
		points = append(points, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return NewInMemory("", points), nil
}

func parsePoint(fields []string) (Point, error) {
	x, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return Point{}, fmt.Errorf("x: %w", err)
	}
	y, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return Point{}, fmt.Errorf("y: %w", err)
	}
	z, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return Point{}, fmt.Errorf("z: %w", err)
	}
	p := Point{X: x, Y: y, Z: z}
	if len(fields) > 3 {
		cls, err := strconv.ParseUint(fields[3], 10, 8)
		if err != nil {
			return Point{}, fmt.Errorf("classification: %w", err)
		}
		p.Classification = uint8(cls)
	}
	if len(fields) > 4 {
		t, err := strconv.ParseFloat(fields[4], 64)
		if err != nil {
			return Point{}, fmt.Errorf("gps_time: %w", err)
		}
		p.GPSTime = t
	}
	return p, nil
}

// ReadXYZFile opens path and parses it as an XYZ text file.
func ReadXYZFile(path string) (*InMemory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadXYZ(f)
}

// ToPointSet drains r into a model.PointSet, discarding SRS and GPS
// time (core/reconstruct works in the caller's local anchor frame and
// has no use for either).
func ToPointSet(r Reader) (model.PointSet, error) {
	var set model.PointSet
	err := r.Each(func(p Point) error {
		set.Points = append(set.Points, model.Point{X: p.X, Y: p.Y, Z: p.Z, Classification: p.Classification})
		return nil
	})
	return set, err
}

// ClassFiltered returns a Reader view over only the points of r matching
// one of the given classification codes, e.g. ground vs building.
func ClassFiltered(r Reader, classes ...uint8) (Reader, error) {
	allow := make(map[uint8]bool, len(classes))
	for _, c := range classes {
		allow[c] = true
	}
	var filtered []Point
	err := r.Each(func(p Point) error {
		if allow[p.Classification] {
			filtered = append(filtered, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return NewInMemory(r.SRS(), filtered), nil
}
