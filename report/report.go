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

// Package report exports pipeline results to spreadsheets and
// shapefiles.
package report

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/ctessum/geom/encoding/shp"
	goshp "github.com/jonas-p/go-shp"
	"github.com/tealeg/xlsx"

	"github.com/spatialrisk/stormpop"
)

// twoDecimals is the spreadsheet number format for reported values.
// Values keep full precision inside the pipeline; rounding happens only
// here, at presentation.
const twoDecimals = "0.00"

// WriteXLSX writes the result to an Excel workbook: an exposure sheet
// with one row per administrative unit, plus a band-totals sheet with
// the country-wide population per band. Cells for pairs that could not
// be computed are left blank.
func WriteXLSX(res *stormpop.Result, filename string) error {
	f := xlsx.NewFile()
	if err := addExposureSheet(f, res.Table); err != nil {
		return err
	}
	if err := addBandTotalsSheet(f, res.BandTotals); err != nil {
		return err
	}
	if err := f.Save(filename); err != nil {
		return fmt.Errorf("report: saving workbook %s: %w", filename, err)
	}
	return nil
}

func addExposureSheet(f *xlsx.File, t *stormpop.ExposureTable) error {
	sheet, err := f.AddSheet("exposure_by_adm2")
	if err != nil {
		return fmt.Errorf("report: creating exposure sheet: %w", err)
	}
	header := sheet.AddRow()
	for _, col := range t.Columns() {
		header.AddCell().SetString(col)
	}
	for _, r := range t.Rows {
		row := sheet.AddRow()
		row.AddCell().SetString(r.PCode)
		row.AddCell().SetString(r.Name)
		row.AddCell().SetString(r.Province)
		row.AddCell().SetString(r.Country)
		row.AddCell().SetFloatWithFormat(r.TotalPopulation, twoDecimals)
		for _, v := range r.Population {
			addNumberCell(row, v)
		}
		for _, v := range r.Percent {
			addNumberCell(row, v)
		}
	}
	return nil
}

func addBandTotalsSheet(f *xlsx.File, totals []stormpop.BandTotal) error {
	sheet, err := f.AddSheet("band_totals")
	if err != nil {
		return fmt.Errorf("report: creating band totals sheet: %w", err)
	}
	header := sheet.AddRow()
	values := sheet.AddRow()
	for _, bt := range totals {
		header.AddCell().SetString(fmt.Sprintf("Total_people_at_%gkmph", bt.Threshold))
		values.AddCell().SetFloatWithFormat(bt.Population, twoDecimals)
	}
	return nil
}

// addNumberCell writes v rounded to two decimals, or a blank cell if v
// is NaN ("not computed").
func addNumberCell(row *xlsx.Row, v float64) {
	cell := row.AddCell()
	if math.IsNaN(v) {
		cell.SetString("")
		return
	}
	cell.SetFloatWithFormat(v, twoDecimals)
}

// WriteBandsShapefile writes the partitioned hazard bands to a
// shapefile for inspection in GIS tools.
func WriteBandsShapefile(bands []stormpop.HazardBand, filename string) error {
	base := filename[:len(filename)-len(filepath.Ext(filename))]
	for _, ext := range []string{".shp", ".shx", ".dbf", ".prj"} {
		os.Remove(base + ext)
	}
	e, err := shp.NewEncoderFromFields(filename, goshp.POLYGON,
		goshp.FloatField("wind_speed", 16, 2))
	if err != nil {
		return fmt.Errorf("report: creating band shapefile: %w", err)
	}
	for _, b := range bands {
		if err := e.EncodeFields(b.Polygonal, b.Threshold); err != nil {
			return fmt.Errorf("report: encoding band %g: %w", b.Threshold, err)
		}
	}
	e.Close()
	return nil
}
