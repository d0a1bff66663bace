// Package raster rasterises a building's alpha-shape triangles into a
// height field and fills small nodata gaps by a moving-maximum over
// neighbouring cells, written directly against model.HeightField's
// row-major grid.
package raster

import (
	"math"

	"github.com/arx-os/roofer/core/reconstruct/model"
	"github.com/arx-os/roofer/internal/geom"
)

// Rasteriser scan-converts alpha triangles into a heightfield.
type Rasteriser struct {
	cfg model.Config
}

// NewRasteriser builds a Rasteriser bound to cfg.
func NewRasteriser(cfg model.Config) *Rasteriser {
	return &Rasteriser{cfg: cfg}
}

// Rasterise builds a height field covering bounds, filling every cell whose
// centre lies within one of tris with that triangle's interpolated z (the
// maximum across overlapping triangles, e.g. at plane seams), then fills
// any remaining nodata cells with the maximum value found within
// FillNodataRadius cells.
func (r *Rasteriser) Rasterise(tris []model.AlphaTriangle, bounds geom.BoundingBox2) *model.HeightField {
	return r.RasteriseWithGround(tris, nil, bounds)
}

// RasteriseWithGround is Rasterise with a second, ground-classified
// triangle set burned into the same field: ground cells are written only
// where the cell is still nodata, so ground coverage can never lower a
// roof cell.
func (r *Rasteriser) RasteriseWithGround(roofTris, groundTris []model.AlphaTriangle, bounds geom.BoundingBox2) *model.HeightField {
	hf := model.NewHeightField(bounds, r.cfg.CellSize)

	for _, tri := range roofTris {
		rasterizeTriangle(hf, tri, false)
	}
	for _, tri := range groundTris {
		rasterizeTriangle(hf, tri, true)
	}

	r.fillNodata(hf)
	return hf
}

func rasterizeTriangle(hf *model.HeightField, tri model.AlphaTriangle, onlyIfEmpty bool) {
	a2, b2, c2 := geom.Vector2{X: tri.A.X, Y: tri.A.Y}, geom.Vector2{X: tri.B.X, Y: tri.B.Y}, geom.Vector2{X: tri.C.X, Y: tri.C.Y}
	minX := math.Min(a2.X, math.Min(b2.X, c2.X))
	maxX := math.Max(a2.X, math.Max(b2.X, c2.X))
	minY := math.Min(a2.Y, math.Min(b2.Y, c2.Y))
	maxY := math.Max(a2.Y, math.Max(b2.Y, c2.Y))

	colMin, rowMin := hf.CellIndex(minX, minY)
	colMax, rowMax := hf.CellIndex(maxX, maxY)

	for row := rowMin; row <= rowMax; row++ {
		for col := colMin; col <= colMax; col++ {
			x, y := hf.CellCenter(col, row)
			u, v, w, ok := barycentric(a2, b2, c2, geom.Vector2{X: x, Y: y})
			if !ok {
				continue
			}
			z := u*tri.A.Z + v*tri.B.Z + w*tri.C.Z
			if onlyIfEmpty {
				hf.SetIfEmpty(col, row, float32(z))
			} else {
				hf.SetMax(col, row, float32(z))
			}
		}
	}
}

func barycentric(a, b, c, p geom.Vector2) (u, v, w float64, ok bool) {
	v0, v1, v2 := b.Sub(a), c.Sub(a), p.Sub(a)
	d00 := v0.Dot(v0)
	d01 := v0.Dot(v1)
	d11 := v1.Dot(v1)
	d20 := v2.Dot(v0)
	d21 := v2.Dot(v1)
	denom := d00*d11 - d01*d01
	if math.Abs(denom) < 1e-12 {
		return 0, 0, 0, false
	}
	vv := (d11*d20 - d01*d21) / denom
	ww := (d00*d21 - d01*d20) / denom
	uu := 1 - vv - ww
	const eps = -1e-6
	if uu < eps || vv < eps || ww < eps {
		return 0, 0, 0, false
	}
	return uu, vv, ww, true
}

// fillNodata replaces every remaining NoData cell with the maximum value
// found among cells within FillNodataRadius grid cells, leaving it as
// NoData when no filled neighbour exists.
func (r *Rasteriser) fillNodata(hf *model.HeightField) {
	radius := r.cfg.FillNodataRadius
	if radius <= 0 {
		return
	}
	originals := append([]float32(nil), hf.Values...)
	for row := 0; row < hf.Rows; row++ {
		for col := 0; col < hf.Cols; col++ {
			idx := row*hf.Cols + col
			if originals[idx] != model.NoData {
				continue
			}
			var best float32 = model.NoData
			found := false
			for dr := -radius; dr <= radius; dr++ {
				for dc := -radius; dc <= radius; dc++ {
					nr, nc := row+dr, col+dc
					if nr < 0 || nr >= hf.Rows || nc < 0 || nc >= hf.Cols {
						continue
					}
					v := originals[nr*hf.Cols+nc]
					if v == model.NoData {
						continue
					}
					if !found || v > best {
						best = v
						found = true
					}
				}
			}
			if found {
				hf.Values[idx] = best
			}
		}
	}
}
