package model

import "github.com/arx-os/roofer/internal/geom"

// HeightField is the raster SegmentRasteriser produces:
// each cell stores the maximum z among the alpha triangles covering it, or
// NoData.
type HeightField struct {
	Bounds   geom.BoundingBox2
	CellSize float64
	Cols     int
	Rows     int
	Values   []float32 // row-major, len == Cols*Rows
}

// NoData marks a cell with no triangle coverage.
const NoData = float32(-1e30)

// NewHeightField allocates a height field covering bounds at the given cell
// size, initialised to NoData.
func NewHeightField(bounds geom.BoundingBox2, cellSize float64) *HeightField {
	cols := int(bounds.Width()/cellSize) + 1
	rows := int(bounds.Height()/cellSize) + 1
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	values := make([]float32, cols*rows)
	for i := range values {
		values[i] = NoData
	}
	return &HeightField{Bounds: bounds, CellSize: cellSize, Cols: cols, Rows: rows, Values: values}
}

// CellIndex returns the (col, row) of the cell containing (x, y).
func (h *HeightField) CellIndex(x, y float64) (int, int) {
	col := int((x - h.Bounds.Min.X) / h.CellSize)
	row := int((y - h.Bounds.Min.Y) / h.CellSize)
	return col, row
}

// CellCenter returns the world coordinate of the centre of cell (col, row).
func (h *HeightField) CellCenter(col, row int) (float64, float64) {
	x := h.Bounds.Min.X + (float64(col)+0.5)*h.CellSize
	y := h.Bounds.Min.Y + (float64(row)+0.5)*h.CellSize
	return x, y
}

// At returns the value stored at (col, row), or NoData if out of range.
func (h *HeightField) At(col, row int) float32 {
	if col < 0 || col >= h.Cols || row < 0 || row >= h.Rows {
		return NoData
	}
	return h.Values[row*h.Cols+col]
}

// SetMax writes v into (col, row) if it is greater than the current value
// (or the cell is NoData).
func (h *HeightField) SetMax(col, row int, v float32) {
	if col < 0 || col >= h.Cols || row < 0 || row >= h.Rows {
		return
	}
	idx := row*h.Cols + col
	if h.Values[idx] == NoData || v > h.Values[idx] {
		h.Values[idx] = v
	}
}

// SetIfEmpty writes v into (col, row) only if the cell currently holds
// NoData (used by the ground pass, which must never lower a roof cell).
func (h *HeightField) SetIfEmpty(col, row int, v float32) {
	if col < 0 || col >= h.Cols || row < 0 || row >= h.Rows {
		return
	}
	idx := row*h.Cols + col
	if h.Values[idx] == NoData {
		h.Values[idx] = v
	}
}

// PixelsIn iterates the cells whose centre falls inside the polygon
// described by contains, invoking fn(col, row, x, y, z) for each non-NoData
// cell.
func (h *HeightField) PixelsIn(contains func(x, y float64) bool, fn func(col, row int, x, y float64, z float32)) {
	for row := 0; row < h.Rows; row++ {
		for col := 0; col < h.Cols; col++ {
			v := h.At(col, row)
			if v == NoData {
				continue
			}
			x, y := h.CellCenter(col, row)
			if contains(x, y) {
				fn(col, row, x, y, v)
			}
		}
	}
}
