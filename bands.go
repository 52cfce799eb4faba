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
	"sort"

	"github.com/ctessum/geom"
)

// A ThresholdPolygon is the outer boundary of all locations experiencing
// at least the given hazard intensity, e.g. wind speed ≥ Threshold.
// Polygons for higher thresholds are nested within those for lower
// thresholds by construction.
type ThresholdPolygon struct {
	Threshold float64 // e.g. wind speed [km/h]
	geom.Polygonal
}

// A HazardBand is a disjoint geometric ring derived from the threshold
// polygons: it covers the locations with intensity between Threshold and
// the next higher threshold.
type HazardBand struct {
	Threshold float64
	geom.Polygonal
}

// PartitionBands converts nested threshold polygons into mutually
// disjoint hazard bands: each band is its threshold polygon minus the
// polygon of the next-higher threshold, except the highest threshold,
// whose band is its polygon unmodified. The input is not mutated.
//
// The returned bands have pairwise-empty interior intersections, and
// their union equals the geometry of the lowest-threshold polygon.
// An InsufficientBandsError is returned for fewer than two thresholds,
// and a DegenerateGeometryError if any subtraction yields an empty
// geometry.
func PartitionBands(thresholds []ThresholdPolygon) ([]HazardBand, error) {
	if len(thresholds) < 2 {
		return nil, &InsufficientBandsError{N: len(thresholds)}
	}
	sorted := make([]ThresholdPolygon, len(thresholds))
	copy(sorted, thresholds)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Threshold < sorted[j].Threshold
	})

	bands := make([]HazardBand, len(sorted))
	for i, t := range sorted {
		var g geom.Polygonal
		if i == len(sorted)-1 {
			g = repairPolygonal(t.Polygonal)
		} else {
			g = t.Polygonal.Difference(sorted[i+1].Polygonal)
		}
		if g == nil || g.Area() <= 0 {
			return nil, &DegenerateGeometryError{Threshold: t.Threshold}
		}
		bands[i] = HazardBand{Threshold: t.Threshold, Polygonal: g}
	}
	return bands, nil
}

// repairPolygonal re-nodes a possibly self-intersecting polygon by
// clipping it against its own bounding rectangle, yielding a clean
// geometry whose area can be computed reliably. Geometries that pass
// through a clipping operation (such as the band subtractions above)
// come out already re-noded and do not need this.
func repairPolygonal(p geom.Polygonal) geom.Polygonal {
	b := p.Bounds()
	box := geom.Polygon{{
		{X: b.Min.X, Y: b.Min.Y},
		{X: b.Max.X, Y: b.Min.Y},
		{X: b.Max.X, Y: b.Max.Y},
		{X: b.Min.X, Y: b.Max.Y},
		{X: b.Min.X, Y: b.Min.Y},
	}}
	return p.Intersection(box)
}
