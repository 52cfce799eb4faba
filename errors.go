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

import "fmt"

// DataUnavailableError indicates that one of the input data sources
// (population raster, administrative boundaries, or hazard polygons)
// could not be loaded. It is fatal for the run.
type DataUnavailableError struct {
	// Source names the data source that failed, e.g. "population raster".
	Source string
	Err    error
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("stormpop: %s unavailable: %v", e.Source, e.Err)
}

func (e *DataUnavailableError) Unwrap() error { return e.Err }

// InsufficientBandsError indicates that fewer than two hazard thresholds
// were supplied, so no meaningful exposure band can be formed.
type InsufficientBandsError struct {
	N int // number of thresholds supplied
}

func (e *InsufficientBandsError) Error() string {
	return fmt.Sprintf("stormpop: %d hazard threshold(s) supplied; at least 2 are required to partition bands", e.N)
}

// DegenerateGeometryError indicates that subtracting the next-higher
// threshold polygon from a threshold polygon produced an empty or
// invalid geometry, making the resulting band meaningless.
type DegenerateGeometryError struct {
	Threshold float64
}

func (e *DegenerateGeometryError) Error() string {
	return fmt.Sprintf("stormpop: partitioning the band for threshold %g produced an empty or invalid geometry", e.Threshold)
}

// CRSMismatchError indicates that an area computation was attempted
// without a common, area-correct projected reference system.
type CRSMismatchError struct {
	Reason string
}

func (e *CRSMismatchError) Error() string {
	return fmt.Sprintf("stormpop: cannot compute overlap areas: %s", e.Reason)
}
