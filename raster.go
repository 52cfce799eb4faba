/*
Copyright © 2026 the StormPop authors.
This file is part of StormPop.

StormPop is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

StormPop is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with StormPop.  If not, see <http://www.gnu.org/licenses/>.
*/

package stormpop

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
	"github.com/ctessum/sparse"
)

// A Raster is a regular 2-D grid of population counts together with the
// affine transform that places it in geographic coordinates. Grids with
// rotation terms in their transform are not supported.
type Raster struct {
	// Data holds the cell values with shape [Ny, Nx]. Data.Get(j, i)
	// is the value of the cell in row j (counted northward from Yo)
	// and column i (counted eastward from Xo).
	Data *sparse.DenseArray

	// Xo, Yo are the coordinates of the lower-left corner of the grid
	// and Dx, Dy are the cell sizes, all in the units of SR.
	Xo, Yo, Dx, Dy float64

	// NoData is the sentinel value marking cells without an observation.
	NoData float64

	// SR is the spatial reference of the grid coordinates.
	SR *proj.SR
}

// Nx returns the number of columns in the grid.
func (r *Raster) Nx() int { return r.Data.Shape[1] }

// Ny returns the number of rows in the grid.
func (r *Raster) Ny() int { return r.Data.Shape[0] }

// Bounds returns the rectangular extent of the grid.
func (r *Raster) Bounds() *geom.Bounds {
	return &geom.Bounds{
		Min: geom.Point{X: r.Xo, Y: r.Yo},
		Max: geom.Point{X: r.Xo + r.Dx*float64(r.Nx()), Y: r.Yo + r.Dy*float64(r.Ny())},
	}
}

// Sum returns the sum of all non-masked cell values.
func (r *Raster) Sum() float64 {
	var sum float64
	for j := 0; j < r.Ny(); j++ {
		for i := 0; i < r.Nx(); i++ {
			if v, ok := r.cellValue(i, j); ok {
				sum += v
			}
		}
	}
	return sum
}

// cellValue returns the value of cell (i, j), or ok=false if the cell
// holds the no-data sentinel.
func (r *Raster) cellValue(i, j int) (v float64, ok bool) {
	v = r.Data.Get(j, i)
	if v == r.NoData || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// cellCenter returns the geographic coordinates of the center of
// cell (i, j).
func (r *Raster) cellCenter(i, j int) geom.Point {
	return geom.Point{
		X: r.Xo + (float64(i)+0.5)*r.Dx,
		Y: r.Yo + (float64(j)+0.5)*r.Dy,
	}
}

// A PopulationPoint is a weighted point feature sampled from a population
// raster. It is immutable after sampling.
type PopulationPoint struct {
	geom.Point
	Weight float64
}

// SampleMode selects how raster cells are converted to points.
type SampleMode int

const (
	// SampleCellCenters creates one point per raster cell, located at the
	// cell center. This is the recommended mode for population rasters:
	// every cell contributes exactly one point, so a cell can never be
	// attributed to more than one polygon in a later point-in-polygon join.
	SampleCellCenters SampleMode = iota

	// SampleMergeEqual merges 4-connected runs of cells holding an
	// identical value into a single region before sampling, placing one
	// point at the mean of the merged cell centers. This matches vectorizing
	// the raster into equal-valued shapes, but shifts sampled locations off
	// the pixel grid and so risks misattribution near polygon boundaries.
	// It is kept as a documented approximation.
	SampleMergeEqual
)

// SamplePoints converts the raster to a set of weighted points according
// to mode. Cells holding the no-data sentinel are excluded entirely.
// The sum of the returned weights equals the sum of all non-masked cell
// values regardless of mode.
func (r *Raster) SamplePoints(mode SampleMode) ([]*PopulationPoint, error) {
	if len(r.Data.Shape) != 2 {
		return nil, fmt.Errorf("stormpop: population raster must be 2-D; got shape %v", r.Data.Shape)
	}
	if r.Dx <= 0 || r.Dy <= 0 {
		return nil, fmt.Errorf("stormpop: invalid raster cell size dx=%g, dy=%g", r.Dx, r.Dy)
	}
	switch mode {
	case SampleCellCenters:
		return r.sampleCellCenters()
	case SampleMergeEqual:
		return r.sampleMergeEqual()
	default:
		return nil, fmt.Errorf("stormpop: unknown sample mode %d", mode)
	}
}

func (r *Raster) sampleCellCenters() ([]*PopulationPoint, error) {
	points := make([]*PopulationPoint, 0, r.Nx()*r.Ny())
	for j := 0; j < r.Ny(); j++ {
		for i := 0; i < r.Nx(); i++ {
			v, ok := r.cellValue(i, j)
			if !ok {
				continue
			}
			if v < 0 {
				return nil, fmt.Errorf("stormpop: negative population %g in raster cell (%d, %d)", v, i, j)
			}
			points = append(points, &PopulationPoint{
				Point:  r.cellCenter(i, j),
				Weight: v,
			})
		}
	}
	return points, nil
}

func (r *Raster) sampleMergeEqual() ([]*PopulationPoint, error) {
	nx, ny := r.Nx(), r.Ny()
	labels := sparse.ZerosDenseInt(ny, nx)
	var points []*PopulationPoint
	next := 0
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			v, ok := r.cellValue(i, j)
			if !ok || labels.Get(j, i) != 0 {
				continue
			}
			if v < 0 {
				return nil, fmt.Errorf("stormpop: negative population %g in raster cell (%d, %d)", v, i, j)
			}
			next++
			n, cx, cy := r.floodEqual(labels, next, i, j, v)
			points = append(points, &PopulationPoint{
				Point:  geom.Point{X: cx / float64(n), Y: cy / float64(n)},
				Weight: v * float64(n),
			})
		}
	}
	return points, nil
}

// floodEqual labels the 4-connected region of cells equal to v that
// contains (i0, j0), returning the region size and the sums of the member
// cell-center coordinates.
func (r *Raster) floodEqual(labels *sparse.DenseArrayInt, label, i0, j0 int, v float64) (n int, sumX, sumY float64) {
	type cell struct{ i, j int }
	stack := []cell{{i0, j0}}
	labels.Set(label, j0, i0)
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n++
		ctr := r.cellCenter(c.i, c.j)
		sumX += ctr.X
		sumY += ctr.Y
		for _, nb := range []cell{{c.i - 1, c.j}, {c.i + 1, c.j}, {c.i, c.j - 1}, {c.i, c.j + 1}} {
			if nb.i < 0 || nb.i >= r.Nx() || nb.j < 0 || nb.j >= r.Ny() {
				continue
			}
			if labels.Get(nb.j, nb.i) != 0 {
				continue
			}
			nv, ok := r.cellValue(nb.i, nb.j)
			if !ok || nv != v {
				continue
			}
			labels.Set(label, nb.j, nb.i)
			stack = append(stack, nb)
		}
	}
	return n, sumX, sumY
}
