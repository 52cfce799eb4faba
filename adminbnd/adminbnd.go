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

// Package adminbnd loads administrative boundary polygons from
// shapefiles, including shapefiles packaged in zip archives as
// distributed by OCHA.
package adminbnd

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/proj"
	"github.com/sirupsen/logrus"

	"github.com/spatialrisk/stormpop"
)

// FieldNames maps the attributes of an AdministrativeUnit to columns of
// the boundary shapefile.
type FieldNames struct {
	PCode    string
	Name     string
	Province string
	Country  string
}

// DefaultFields matches the OCHA ADM2 boundary products.
var DefaultFields = FieldNames{
	PCode:    "ADM2_PCODE",
	Name:     "ADM2_EN",
	Province: "ADM1_EN",
	Country:  "ADM0_EN",
}

// Load reads administrative units from the shapefile at path,
// reprojecting the geometries to sr. If path points to a zip archive,
// the shapefile inside it is extracted to a temporary directory first;
// layer selects the shapefile within the archive and may be empty if
// the archive contains only one.
func Load(path, layer string, fields FieldNames, sr *proj.SR) ([]*stormpop.AdministrativeUnit, error) {
	units, err := load(path, layer, fields, sr)
	if err != nil {
		return nil, &stormpop.DataUnavailableError{Source: "administrative boundaries", Err: err}
	}
	return units, nil
}

func load(path, layer string, fields FieldNames, sr *proj.SR) ([]*stormpop.AdministrativeUnit, error) {
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		dir, err := os.MkdirTemp("", "adminbnd")
		if err != nil {
			return nil, err
		}
		defer os.RemoveAll(dir)
		path, err = extractShapefile(path, layer, dir)
		if err != nil {
			return nil, err
		}
	}

	d, err := shp.NewDecoder(path)
	if err != nil {
		return nil, fmt.Errorf("adminbnd: opening boundary shapefile: %w", err)
	}
	defer d.Close()

	srIn, err := d.SR()
	if err != nil {
		// OCHA archives occasionally omit the .prj file; their
		// coordinates are geographic WGS84.
		logrus.WithError(err).Warnf("adminbnd: %s has no readable projection; assuming WGS84", path)
		srIn, err = proj.Parse(stormpop.WGS84)
		if err != nil {
			return nil, err
		}
	}
	ct, err := srIn.NewTransform(sr)
	if err != nil {
		return nil, fmt.Errorf("adminbnd: creating boundary transform: %w", err)
	}

	var units []*stormpop.AdministrativeUnit
	for {
		g, attrs, more := d.DecodeRowFields(fields.PCode, fields.Name, fields.Province, fields.Country)
		if !more {
			break
		}
		gg, err := g.Transform(ct)
		if err != nil {
			return nil, fmt.Errorf("adminbnd: reprojecting unit %s: %w", attrs[fields.PCode], err)
		}
		poly, ok := gg.(geom.Polygonal)
		if !ok {
			return nil, fmt.Errorf("adminbnd: unit %s has non-polygonal geometry %T", attrs[fields.PCode], gg)
		}
		pcode := strings.TrimSpace(attrs[fields.PCode])
		if pcode == "" {
			return nil, fmt.Errorf("adminbnd: row %d has an empty %s field", len(units), fields.PCode)
		}
		units = append(units, &stormpop.AdministrativeUnit{
			Polygonal: poly,
			PCode:     pcode,
			Name:      strings.TrimSpace(attrs[fields.Name]),
			Province:  strings.TrimSpace(attrs[fields.Province]),
			Country:   strings.TrimSpace(attrs[fields.Country]),
		})
	}
	if err := d.Error(); err != nil {
		return nil, fmt.Errorf("adminbnd: in file %s: %w", path, err)
	}
	if len(units) == 0 {
		return nil, fmt.Errorf("adminbnd: no administrative units in %s", path)
	}
	return units, nil
}

// extractShapefile unpacks the members of the named layer (the .shp,
// .dbf, .shx and .prj files) from a zip archive into dir and returns the
// path of the extracted .shp file.
func extractShapefile(zipPath, layer, dir string) (string, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", fmt.Errorf("adminbnd: opening boundary archive: %w", err)
	}
	defer zr.Close()

	shpPath := ""
	for _, f := range zr.File {
		base := filepath.Base(f.Name)
		ext := strings.ToLower(filepath.Ext(base))
		switch ext {
		case ".shp", ".dbf", ".shx", ".prj":
		default:
			continue
		}
		if layer != "" && strings.TrimSuffix(base, filepath.Ext(base)) != layer {
			continue
		}
		dst := filepath.Join(dir, base)
		if err := extractFile(f, dst); err != nil {
			return "", err
		}
		if ext == ".shp" {
			if shpPath != "" {
				return "", fmt.Errorf("adminbnd: archive %s contains multiple shapefiles; specify a layer", zipPath)
			}
			shpPath = dst
		}
	}
	if shpPath == "" {
		return "", fmt.Errorf("adminbnd: no shapefile layer %q in archive %s", layer, zipPath)
	}
	return shpPath, nil
}

func extractFile(f *zip.File, dst string) error {
	r, err := f.Open()
	if err != nil {
		return fmt.Errorf("adminbnd: extracting %s: %w", f.Name, err)
	}
	defer r.Close()
	w, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer w.Close()
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("adminbnd: extracting %s: %w", f.Name, err)
	}
	return nil
}
