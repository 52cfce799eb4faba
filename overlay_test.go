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
	"errors"
	"reflect"
	"testing"

	"github.com/ctessum/geom/proj"
)

// mercProj is an equatorial Mercator definition used for overlap areas
// in tests: x is proportional to longitude, so splitting a polygon along
// a meridian gives exact area fractions.
const mercProj = "+proj=merc +a=6378137 +b=6378137 +lat_ts=0.0 +lon_0=0.0 +x_0=0.0 +y_0=0 +k=1.0 +units=m +nadgrids=@null +no_defs"

func testSRs(t *testing.T) (geographic, projected *proj.SR) {
	t.Helper()
	geographic, err := proj.Parse(WGS84)
	if err != nil {
		t.Fatal(err)
	}
	projected, err = proj.Parse(mercProj)
	if err != nil {
		t.Fatal(err)
	}
	return geographic, projected
}

func TestApportion(t *testing.T) {
	geographic, projected := testSRs(t)

	// One unit spanning lon [0,2]; one band covering its western half.
	// With an equatorial Mercator projection the area fraction is
	// exactly one half.
	units := []*AdministrativeUnit{
		{PCode: "MG001", Name: "Alpha", Polygonal: square(0, 0, 1).Union(square(1, 0, 1))},
	}
	totals := map[string]float64{"MG001": 1000}
	bands := []HazardBand{
		{Threshold: 60, Polygonal: square(0, 0, 1)},
	}

	records, err := Apportion(units, totals, bands, geographic, projected)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	rec := records[0]
	if rec.PCode != "MG001" || rec.Threshold != 60 {
		t.Fatalf("got record for (%s, %g)", rec.PCode, rec.Threshold)
	}
	if different(rec.Fraction, 0.5, 1e-9) {
		t.Errorf("got fraction %g, want 0.5", rec.Fraction)
	}
	if different(rec.Population, 500, 1e-9) {
		t.Errorf("got population %g, want 500", rec.Population)
	}
	if different(rec.OverlapArea/rec.UnitArea, rec.Fraction, 1e-12) {
		t.Errorf("fraction %g inconsistent with areas %g/%g",
			rec.Fraction, rec.OverlapArea, rec.UnitArea)
	}
}

func TestApportionBounds(t *testing.T) {
	geographic, projected := testSRs(t)

	units := []*AdministrativeUnit{
		{PCode: "MG001", Polygonal: square(0, 0, 2)},
		{PCode: "MG002", Polygonal: square(2, 0, 2)},
		{PCode: "MG003", Polygonal: square(10, 10, 1)}, // outside all bands
	}
	totals := map[string]float64{"MG001": 100, "MG002": 200, "MG003": 300}
	bands := []HazardBand{
		{Threshold: 60, Polygonal: square(0, 0, 3).Difference(square(0, 0, 1))},
		{Threshold: 120, Polygonal: square(0, 0, 1)},
	}

	records, err := Apportion(units, totals, bands, geographic, projected)
	if err != nil {
		t.Fatal(err)
	}
	sums := make(map[string]float64)
	for _, rec := range records {
		if rec.Fraction < 0 || rec.Fraction > 1+1e-12 {
			t.Errorf("(%s, %g): fraction %g outside [0, 1]", rec.PCode, rec.Threshold, rec.Fraction)
		}
		if rec.PCode == "MG003" {
			t.Error("got a record for a unit with no intersection")
		}
		sums[rec.PCode] += rec.Population
	}
	// Bands are disjoint, so a unit's exposure summed over bands cannot
	// exceed its population.
	for pcode, sum := range sums {
		if sum > totals[pcode]+1e-9 {
			t.Errorf("unit %s: apportioned %g > total %g", pcode, sum, totals[pcode])
		}
	}
}

// Records must come back in the same order no matter how the work is
// spread over workers.
func TestApportionDeterministic(t *testing.T) {
	geographic, projected := testSRs(t)

	var units []*AdministrativeUnit
	totals := make(map[string]float64)
	for i := 0; i < 20; i++ {
		pcode := string(rune('A'+i%5)) + string(rune('a'+i))
		units = append(units, &AdministrativeUnit{
			PCode:     pcode,
			Polygonal: square(float64(i)*0.3, 0, 1),
		})
		totals[pcode] = float64(100 * (i + 1))
	}
	bands := []HazardBand{
		{Threshold: 60, Polygonal: square(0, 0, 7).Difference(square(0, 0, 3))},
		{Threshold: 120, Polygonal: square(0, 0, 3)},
	}

	first, err := Apportion(units, totals, bands, geographic, projected)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		again, err := Apportion(units, totals, bands, geographic, projected)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs from first run", i)
		}
	}
}

func TestApportionCRSMismatch(t *testing.T) {
	geographic, projected := testSRs(t)
	units := []*AdministrativeUnit{{PCode: "MG001", Polygonal: square(0, 0, 1)}}
	bands := []HazardBand{{Threshold: 60, Polygonal: square(0, 0, 1)}}

	var e *CRSMismatchError
	if _, err := Apportion(units, nil, bands, nil, projected); !errors.As(err, &e) {
		t.Errorf("nil geographic system: got %v, want a CRSMismatchError", err)
	}
	if _, err := Apportion(units, nil, bands, geographic, nil); !errors.As(err, &e) {
		t.Errorf("nil projected system: got %v, want a CRSMismatchError", err)
	}
	// A geographic system is not acceptable for area computation.
	if _, err := Apportion(units, nil, bands, geographic, geographic); !errors.As(err, &e) {
		t.Errorf("geographic area system: got %v, want a CRSMismatchError", err)
	}
}
