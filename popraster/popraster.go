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

// Package popraster reads and writes gridded population estimates in
// NetCDF containers.
//
// A population variable is a 2-D array with dimensions [y, x] carrying
// the attributes xo, yo, dx, dy (the affine cell-to-coordinate
// transform), nodata (the mask sentinel) and proj4 (the coordinate
// reference system).
package popraster

import (
	"fmt"
	"os"

	"github.com/ctessum/cdf"
	"github.com/ctessum/geom/proj"
	"github.com/ctessum/sparse"

	"github.com/spatialrisk/stormpop"
)

// Read loads the named population variable from a NetCDF file.
func Read(filename, varName string) (*stormpop.Raster, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, &stormpop.DataUnavailableError{Source: "population raster", Err: err}
	}
	defer f.Close()
	r, err := read(f, varName)
	if err != nil {
		return nil, &stormpop.DataUnavailableError{Source: "population raster", Err: err}
	}
	return r, nil
}

func read(f *os.File, varName string) (*stormpop.Raster, error) {
	ff, err := cdf.Open(f)
	if err != nil {
		return nil, fmt.Errorf("popraster: opening NetCDF file: %w", err)
	}
	dims := ff.Header.Lengths(varName)
	if len(dims) != 2 {
		return nil, fmt.Errorf("popraster: variable %s must be 2-D; got shape %v", varName, dims)
	}

	data := sparse.ZerosDense(dims...)
	tmp := make([]float64, len(data.Elements))
	r := ff.Reader(varName, nil, nil)
	if _, err := r.Read(tmp); err != nil {
		return nil, fmt.Errorf("popraster: reading variable %s: %w", varName, err)
	}
	copy(data.Elements, tmp)

	out := &stormpop.Raster{Data: data}
	for _, a := range []struct {
		name string
		dst  *float64
	}{
		{"xo", &out.Xo},
		{"yo", &out.Yo},
		{"dx", &out.Dx},
		{"dy", &out.Dy},
		{"nodata", &out.NoData},
	} {
		v, err := attrFloat(ff.Header, varName, a.name)
		if err != nil {
			return nil, err
		}
		*a.dst = v
	}

	proj4, ok := ff.Header.GetAttribute(varName, "proj4").(string)
	if !ok || proj4 == "" {
		return nil, fmt.Errorf("popraster: variable %s is missing the proj4 attribute", varName)
	}
	out.SR, err = proj.Parse(proj4)
	if err != nil {
		return nil, fmt.Errorf("popraster: parsing proj4 attribute: %w", err)
	}
	return out, nil
}

// attrFloat extracts a scalar numeric attribute, tolerating the element
// types NetCDF attributes may be stored as.
func attrFloat(h *cdf.Header, varName, attr string) (float64, error) {
	switch a := h.GetAttribute(varName, attr).(type) {
	case []float64:
		if len(a) == 1 {
			return a[0], nil
		}
	case []float32:
		if len(a) == 1 {
			return float64(a[0]), nil
		}
	case []int32:
		if len(a) == 1 {
			return float64(a[0]), nil
		}
	case float64:
		return a, nil
	}
	return 0, fmt.Errorf("popraster: variable %s is missing scalar attribute %s", varName, attr)
}

// Write stores the raster as the named variable in a new NetCDF file, in
// the layout that Read expects.
func Write(filename string, r *stormpop.Raster, varName, proj4 string) error {
	h := cdf.NewHeader([]string{"y", "x"}, []int{r.Ny(), r.Nx()})
	h.AddAttribute("", "comment", "Gridded population estimate")
	h.AddVariable(varName, []string{"y", "x"}, []float64{0})
	h.AddAttribute(varName, "units", "people")
	h.AddAttribute(varName, "xo", []float64{r.Xo})
	h.AddAttribute(varName, "yo", []float64{r.Yo})
	h.AddAttribute(varName, "dx", []float64{r.Dx})
	h.AddAttribute(varName, "dy", []float64{r.Dy})
	h.AddAttribute(varName, "nodata", []float64{r.NoData})
	h.AddAttribute(varName, "proj4", proj4)
	h.Define()

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("popraster: creating NetCDF file: %w", err)
	}
	defer f.Close()
	ff, err := cdf.Create(f, h)
	if err != nil {
		return fmt.Errorf("popraster: writing NetCDF header: %w", err)
	}
	end := ff.Header.Lengths(varName)
	start := make([]int, len(end))
	w := ff.Writer(varName, start, end)
	if _, err := w.Write(r.Data.Elements); err != nil {
		return fmt.Errorf("popraster: writing variable %s: %w", varName, err)
	}
	return cdf.UpdateNumRecs(f)
}
