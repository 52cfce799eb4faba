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
	"runtime"
	"sort"
	"sync"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
)

// An AdministrativeUnit is one subdivision from the boundary dataset.
// Units are immutable after loading.
type AdministrativeUnit struct {
	geom.Polygonal

	// PCode is the unique identifier of the unit, e.g. an OCHA p-code.
	PCode string

	// Name, Province and Country are human-readable name fields carried
	// through to the output table.
	Name     string
	Province string
	Country  string
}

// An AggregationRecord is the exposure of one administrative unit to one
// hazard band. Pairs with no spatial intersection have no record; their
// exposure is implicitly zero.
type AggregationRecord struct {
	PCode     string  // administrative unit identifier
	Threshold float64 // band identifier

	// OverlapArea is the area of the unit/band intersection and UnitArea
	// the total area of the unit, both in the projected reference system.
	OverlapArea float64
	UnitArea    float64

	// Fraction is OverlapArea / UnitArea.
	Fraction float64

	// Population is Fraction × the unit's total population.
	Population float64
}

// Apportion computes, for every intersecting (unit, band) pair, the
// fraction of the unit's area covered by the band and the corresponding
// share of the unit's point-sampled total population (from totals, keyed
// by unit PCode). Unit and band geometries must share geographicSR;
// areas are computed after reprojection to projectedSR, which must be a
// projected, area-faithful system — a CRSMismatchError is returned
// otherwise. All values are kept in full double precision; rounding is
// left to presentation.
//
// Units are processed in parallel. Each worker owns a disjoint subset of
// the units and the merged result is sorted by (PCode, Threshold), so
// the output does not depend on scheduling.
func Apportion(units []*AdministrativeUnit, totals map[string]float64, bands []HazardBand, geographicSR, projectedSR *proj.SR) ([]AggregationRecord, error) {
	if geographicSR == nil {
		return nil, &CRSMismatchError{Reason: "no geographic reference system given for the input geometries"}
	}
	if projectedSR == nil {
		return nil, &CRSMismatchError{Reason: "no projected reference system given for area computation"}
	}
	if projectedSR.Name == "longlat" {
		return nil, &CRSMismatchError{Reason: fmt.Sprintf("%q is a geographic reference system; areas require a projected one", projectedSR.SRSCode)}
	}
	ct, err := geographicSR.NewTransform(projectedSR)
	if err != nil {
		return nil, fmt.Errorf("stormpop: creating overlay transform: %w", err)
	}

	projBands := make([]geom.Polygonal, len(bands))
	for i, b := range bands {
		g, err := b.Polygonal.Transform(ct)
		if err != nil {
			return nil, fmt.Errorf("stormpop: reprojecting band %g: %w", b.Threshold, err)
		}
		projBands[i] = g.(geom.Polygonal)
	}

	nprocs := runtime.GOMAXPROCS(0)
	var mu sync.Mutex
	var records []AggregationRecord
	errChan := make(chan error)
	for procnum := 0; procnum < nprocs; procnum++ {
		go func(procnum int) {
			for i := procnum; i < len(units); i += nprocs {
				u := units[i]
				g, err := u.Polygonal.Transform(ct)
				if err != nil {
					errChan <- fmt.Errorf("stormpop: reprojecting unit %s: %w", u.PCode, err)
					return
				}
				up := repairPolygonal(g.(geom.Polygonal))
				unitArea := up.Area()
				if unitArea == 0 {
					continue // zero-area unit: no apportionable exposure
				}
				total := totals[u.PCode]
				for j, band := range projBands {
					overlap := up.Intersection(band).Area()
					if overlap <= 0 {
						continue
					}
					frac := overlap / unitArea
					mu.Lock()
					records = append(records, AggregationRecord{
						PCode:       u.PCode,
						Threshold:   bands[j].Threshold,
						OverlapArea: overlap,
						UnitArea:    unitArea,
						Fraction:    frac,
						Population:  frac * total,
					})
					mu.Unlock()
				}
			}
			errChan <- nil
		}(procnum)
	}
	for procnum := 0; procnum < nprocs; procnum++ {
		if err := <-errChan; err != nil {
			return nil, err
		}
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].PCode != records[j].PCode {
			return records[i].PCode < records[j].PCode
		}
		return records[i].Threshold < records[j].Threshold
	})
	return records, nil
}
