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
	"github.com/ctessum/geom/index/rtree"
)

// A PointIndex is a spatial index over population points that supports
// summing point weights within arbitrary polygon sets.
type PointIndex struct {
	tree   *rtree.Rtree
	total  float64
	points int
}

// NewPointIndex builds a spatial index over points. The points are
// referenced, not copied, and must not be modified afterward.
func NewPointIndex(points []*PopulationPoint) *PointIndex {
	ix := &PointIndex{tree: rtree.NewTree(25, 50)}
	for _, p := range points {
		ix.tree.Insert(p)
		ix.total += p.Weight
		ix.points++
	}
	return ix
}

// Total returns the sum of the weights of all indexed points.
func (ix *PointIndex) Total() float64 { return ix.total }

// Len returns the number of indexed points.
func (ix *PointIndex) Len() int { return ix.points }

// SumWeights returns the summed weight of the indexed points falling
// within each polygon, keyed by the polygon's key. Keys absent from the
// result had no points; their sum is zero.
//
// A point counts for a polygon when it is inside it or on its edge; the
// same convention applies to every polygon set so that totals computed
// against different sets remain comparable. Polygons are processed in
// ascending key order and each point is credited to exactly one polygon,
// the first that claims it, so points on a boundary shared by two
// polygons are never double counted and the assignment does not depend
// on input ordering.
func (ix *PointIndex) SumWeights(polys map[string]geom.Polygonal) map[string]float64 {
	keys := make([]string, 0, len(polys))
	for k := range polys {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	claimed := make(map[*PopulationPoint]struct{})
	sums := make(map[string]float64)
	for _, k := range keys {
		poly := polys[k]
		matched := false
		var sum float64
		for _, pI := range ix.tree.SearchIntersect(poly.Bounds()) {
			p := pI.(*PopulationPoint)
			if _, ok := claimed[p]; ok {
				continue
			}
			if p.Within(poly) == geom.Outside {
				continue
			}
			claimed[p] = struct{}{}
			sum += p.Weight
			matched = true
		}
		if matched {
			sums[k] = sum
		}
	}
	return sums
}
