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

// Package stormpop estimates the population of a country's administrative
// subdivisions exposed to tiered cyclone wind-speed bands, by overlaying a
// gridded population estimate, administrative boundary polygons, and nested
// wind-threshold polygons.
//
// The computation is a strict forward pipeline of pure stages: the raster is
// sampled into weighted points; point weights are aggregated per
// administrative unit; the nested threshold polygons are partitioned into
// disjoint bands; unit populations are apportioned across bands by
// area-overlap fractions in a projected reference system; and the apportioned
// values are assembled into one wide row per unit. Every stage consumes its
// inputs read-only and returns a new value.
//
// Input loading (NetCDF raster, boundary shapefile, GDACS polygon fetch) and
// result export (spreadsheet, shapefile) live in the popraster, adminbnd,
// gdacs and report subpackages.
package stormpop

import (
	"fmt"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
)

// WGS84 is the proj4 definition of the geographic reference system the
// pipeline works in. All loaders reproject into it.
const WGS84 = "+proj=longlat +datum=WGS84 +no_defs"

// A BandTotal is the country-wide population within one hazard band,
// irrespective of administrative boundaries.
type BandTotal struct {
	Threshold  float64
	Population float64
}

// A Result bundles the outputs of one pipeline run.
type Result struct {
	// Table is the per-unit exposure table.
	Table *ExposureTable

	// Bands are the disjoint hazard bands derived from the threshold
	// polygons, in the geographic reference system.
	Bands []HazardBand

	// BandTotals is the total sampled population per band, ascending by
	// threshold.
	BandTotals []BandTotal

	// SampledPopulation is the total weight of all sampled points. It
	// equals the sum of the non-masked raster cells (mass conservation).
	SampledPopulation float64
}

// EstimateExposure runs the full overlay pipeline. The raster carries its
// own geographic reference system; units and thresholds must already be in
// that same system (the loaders in adminbnd and gdacs arrange this).
// projectedSR is the projected, area-faithful system used for overlap
// areas. mode selects the raster sampling strategy.
func EstimateExposure(raster *Raster, units []*AdministrativeUnit, thresholds []ThresholdPolygon, projectedSR *proj.SR, mode SampleMode) (*Result, error) {
	points, err := raster.SamplePoints(mode)
	if err != nil {
		return nil, err
	}
	ix := NewPointIndex(points)

	unitPolys := make(map[string]geom.Polygonal, len(units))
	for _, u := range units {
		if u.PCode == "" {
			return nil, fmt.Errorf("stormpop: administrative unit %q has no identifier", u.Name)
		}
		if _, ok := unitPolys[u.PCode]; ok {
			return nil, fmt.Errorf("stormpop: duplicate administrative unit identifier %s", u.PCode)
		}
		unitPolys[u.PCode] = u.Polygonal
	}
	unitTotals := ix.SumWeights(unitPolys)

	bands, err := PartitionBands(thresholds)
	if err != nil {
		return nil, err
	}
	bandPolys := make(map[string]geom.Polygonal, len(bands))
	for _, b := range bands {
		bandPolys[bandKey(b.Threshold)] = b.Polygonal
	}
	bandSums := ix.SumWeights(bandPolys)
	bandTotals := make([]BandTotal, len(bands))
	for i, b := range bands {
		bandTotals[i] = BandTotal{
			Threshold:  b.Threshold,
			Population: bandSums[bandKey(b.Threshold)],
		}
	}

	records, err := Apportion(units, unitTotals, bands, raster.SR, projectedSR)
	if err != nil {
		return nil, err
	}

	ths := make([]float64, len(bands))
	for i, b := range bands {
		ths[i] = b.Threshold
	}
	return &Result{
		Table:             AssembleTable(units, unitTotals, ths, records),
		Bands:             bands,
		BandTotals:        bandTotals,
		SampledPopulation: ix.Total(),
	}, nil
}

// bandKey formats a threshold as a fixed-width aggregation key so that
// lexical key order matches numeric threshold order.
func bandKey(threshold float64) string {
	return fmt.Sprintf("%016.6f", threshold)
}
