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
	"sort"
)

// An ExposureRow is the exposure summary for one administrative unit.
// Population and Percent are aligned with the Thresholds slice of the
// containing table; NaN marks a (unit, band) pair that could not be
// computed — no intersection, or a percentage over a zero total — as
// opposed to a computed zero.
type ExposureRow struct {
	PCode    string
	Name     string
	Province string
	Country  string

	// TotalPopulation is the point-sampled population of the whole unit.
	TotalPopulation float64

	// Population holds the absolute population per band.
	Population []float64

	// Percent holds Population as a share of TotalPopulation × 100,
	// rounded to two decimals.
	Percent []float64
}

// An ExposureTable is the final wide result: one row per administrative
// unit with one absolute and one percentage column per hazard band.
type ExposureTable struct {
	// Thresholds lists the band thresholds in ascending order; the
	// per-band slices in each row are indexed to match.
	Thresholds []float64
	Rows       []ExposureRow
}

// PopulationColumn returns the name of the absolute-population column
// for the given threshold, e.g. "People_at_60kmph". Column names are
// derived from the threshold value only, so they are stable across runs.
func PopulationColumn(threshold float64) string {
	return fmt.Sprintf("People_at_%gkmph", threshold)
}

// PercentColumn returns the name of the percentage column for the given
// threshold, e.g. "%_people_at_60kmph".
func PercentColumn(threshold float64) string {
	return fmt.Sprintf("%%_people_at_%gkmph", threshold)
}

// Columns returns the full ordered column set of the table: the
// identifier and name fields, the total, then one absolute column per
// threshold followed by one percentage column per threshold.
func (t *ExposureTable) Columns() []string {
	cols := []string{"ADM2_PCODE", "ADM2_EN", "ADM1_EN", "ADM0_EN", "Total_population"}
	for _, th := range t.Thresholds {
		cols = append(cols, PopulationColumn(th))
	}
	for _, th := range t.Thresholds {
		cols = append(cols, PercentColumn(th))
	}
	return cols
}

// AssembleTable pivots aggregation records into one row per
// administrative unit. thresholds declares the full band set: a column
// pair is emitted for every declared threshold even if no unit
// intersects that band. Units with zero total population get NaN
// percentages rather than a division failure, and rows are sorted by
// PCode so identical inputs yield identical tables.
func AssembleTable(units []*AdministrativeUnit, totals map[string]float64, thresholds []float64, records []AggregationRecord) *ExposureTable {
	ths := make([]float64, len(thresholds))
	copy(ths, thresholds)
	sort.Float64s(ths)
	thIndex := make(map[float64]int, len(ths))
	for i, th := range ths {
		thIndex[th] = i
	}

	byUnit := make(map[string][]AggregationRecord)
	for _, rec := range records {
		byUnit[rec.PCode] = append(byUnit[rec.PCode], rec)
	}

	t := &ExposureTable{Thresholds: ths}
	for _, u := range units {
		row := ExposureRow{
			PCode:           u.PCode,
			Name:            u.Name,
			Province:        u.Province,
			Country:         u.Country,
			TotalPopulation: totals[u.PCode],
			Population:      nanSlice(len(ths)),
			Percent:         nanSlice(len(ths)),
		}
		for _, rec := range byUnit[u.PCode] {
			i, ok := thIndex[rec.Threshold]
			if !ok {
				continue // record for an undeclared threshold
			}
			row.Population[i] = rec.Population
			if row.TotalPopulation > 0 {
				row.Percent[i] = round2(rec.Population / row.TotalPopulation * 100)
			}
		}
		t.Rows = append(t.Rows, row)
	}
	sort.Slice(t.Rows, func(i, j int) bool { return t.Rows[i].PCode < t.Rows[j].PCode })
	return t
}

func nanSlice(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
