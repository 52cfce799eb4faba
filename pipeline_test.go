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
	"math"
	"reflect"
	"testing"

	"github.com/ctessum/sparse"
)

// pipelineTestData builds a 4×4 raster of ones over lon/lat [0,4]²,
// two administrative units splitting the domain at lon 2, and threshold
// polygons whose 120 km/h polygon covers the western unit exactly.
func pipelineTestData(t *testing.T) (*Raster, []*AdministrativeUnit, []ThresholdPolygon) {
	t.Helper()
	geographic, _ := testSRs(t)

	data := sparse.ZerosDense(4, 4)
	for i := range data.Elements {
		data.Elements[i] = 1
	}
	raster := &Raster{Data: data, Xo: 0, Yo: 0, Dx: 1, Dy: 1, NoData: -9999, SR: geographic}

	units := []*AdministrativeUnit{
		{PCode: "MG002", Name: "East", Province: "P", Country: "Madagascar",
			Polygonal: square(2, 0, 2).Union(square(2, 2, 2))},
		{PCode: "MG001", Name: "West", Province: "P", Country: "Madagascar",
			Polygonal: square(0, 0, 2).Union(square(0, 2, 2))},
	}
	thresholds := []ThresholdPolygon{
		{Threshold: 60, Polygonal: square(0, 0, 2).Union(square(0, 2, 2)).
			Union(square(2, 0, 2)).Union(square(2, 2, 2))},
		{Threshold: 120, Polygonal: square(0, 0, 2).Union(square(0, 2, 2))},
	}
	return raster, units, thresholds
}

func TestEstimateExposure(t *testing.T) {
	raster, units, thresholds := pipelineTestData(t)
	_, projected := testSRs(t)

	res, err := EstimateExposure(raster, units, thresholds, projected, SampleCellCenters)
	if err != nil {
		t.Fatal(err)
	}

	if res.SampledPopulation != 16 {
		t.Errorf("got sampled population %g, want 16", res.SampledPopulation)
	}

	// The 120 band covers the western half, the 60 band the eastern
	// half; each half holds 8 of the 16 sampled people.
	wantTotals := []BandTotal{{Threshold: 60, Population: 8}, {Threshold: 120, Population: 8}}
	if !reflect.DeepEqual(res.BandTotals, wantTotals) {
		t.Errorf("got band totals %v, want %v", res.BandTotals, wantTotals)
	}

	tbl := res.Table
	if !reflect.DeepEqual(tbl.Thresholds, []float64{60, 120}) {
		t.Fatalf("got thresholds %v", tbl.Thresholds)
	}
	if len(tbl.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(tbl.Rows))
	}

	west := tbl.Rows[0]
	if west.PCode != "MG001" || west.TotalPopulation != 8 {
		t.Fatalf("west row: got %s total %g", west.PCode, west.TotalPopulation)
	}
	// The western unit lies entirely inside the 120 band.
	if different(west.Population[1], 8, 1e-9) || different(west.Percent[1], 100, 1e-9) {
		t.Errorf("west 120 band: got %g people, %g%%", west.Population[1], west.Percent[1])
	}
	if !math.IsNaN(west.Population[0]) {
		t.Errorf("west 60 band: got %g, want NaN", west.Population[0])
	}

	east := tbl.Rows[1]
	if east.PCode != "MG002" || east.TotalPopulation != 8 {
		t.Fatalf("east row: got %s total %g", east.PCode, east.TotalPopulation)
	}
	if different(east.Population[0], 8, 1e-9) || different(east.Percent[0], 100, 1e-9) {
		t.Errorf("east 60 band: got %g people, %g%%", east.Population[0], east.Percent[0])
	}
	if !math.IsNaN(east.Population[1]) {
		t.Errorf("east 120 band: got %g, want NaN", east.Population[1])
	}
}

func TestEstimateExposureIdempotent(t *testing.T) {
	raster, units, thresholds := pipelineTestData(t)
	_, projected := testSRs(t)

	first, err := EstimateExposure(raster, units, thresholds, projected, SampleCellCenters)
	if err != nil {
		t.Fatal(err)
	}
	again, err := EstimateExposure(raster, units, thresholds, projected, SampleCellCenters)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first.Table, again.Table) {
		t.Error("tables differ between identical runs")
	}
	if !reflect.DeepEqual(first.BandTotals, again.BandTotals) {
		t.Error("band totals differ between identical runs")
	}
}

func TestEstimateExposureBadUnits(t *testing.T) {
	raster, units, thresholds := pipelineTestData(t)
	_, projected := testSRs(t)

	dup := append(units, units[0])
	if _, err := EstimateExposure(raster, dup, thresholds, projected, SampleCellCenters); err == nil {
		t.Error("expected an error for duplicate unit identifiers")
	}

	anon := []*AdministrativeUnit{{Name: "nameless", Polygonal: square(0, 0, 1)}}
	if _, err := EstimateExposure(raster, anon, thresholds, projected, SampleCellCenters); err == nil {
		t.Error("expected an error for a unit without an identifier")
	}
}
