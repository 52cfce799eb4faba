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

package stormpoputil

import (
	"context"
	"fmt"

	"github.com/ctessum/geom/proj"
	"github.com/sirupsen/logrus"

	"github.com/spatialrisk/stormpop"
	"github.com/spatialrisk/stormpop/adminbnd"
	"github.com/spatialrisk/stormpop/gdacs"
	"github.com/spatialrisk/stormpop/popraster"
	"github.com/spatialrisk/stormpop/report"
)

// hazardCacheSize is the number of GDACS responses held in memory.
const hazardCacheSize = 10

// hazardThresholds obtains the cyclone wind-speed polygons, either from a
// local GeoJSON file or from GDACS.
func hazardThresholds(ctx context.Context, cfg *Config) ([]stormpop.ThresholdPolygon, error) {
	if err := cfg.validateHazard(); err != nil {
		return nil, err
	}
	if cfg.HazardGeoJSON != "" {
		logrus.WithField("file", cfg.HazardGeoJSON).Info("reading hazard polygons")
		return gdacs.ReadFile(cfg.HazardGeoJSON)
	}
	event := gdacs.Event{
		EventType: cfg.EventType,
		EventID:   cfg.EventID,
		EpisodeID: cfg.EpisodeID,
		SourceID:  cfg.SourceID,
	}
	logrus.WithField("event", event.String()).Info("fetching hazard polygons from GDACS")
	return gdacs.NewClient(hazardCacheSize).Thresholds(ctx, event)
}

// Run performs a full exposure estimate as configured by cfg and writes
// the results.
func Run(ctx context.Context, cfg *Config) error {
	if err := cfg.validateRun(); err != nil {
		return err
	}

	logrus.WithField("file", cfg.PopRaster).Info("reading population raster")
	raster, err := popraster.Read(cfg.PopRaster, cfg.PopRasterVar)
	if err != nil {
		return err
	}
	if raster.SR != nil && raster.SR.Name != "longlat" {
		return fmt.Errorf("stormpoputil: population raster must use geographic coordinates; got %s", raster.SR.Name)
	}

	logrus.WithField("file", cfg.Boundaries).Info("reading administrative boundaries")
	units, err := adminbnd.Load(cfg.Boundaries, cfg.BoundaryLayer, cfg.BoundaryFields, raster.SR)
	if err != nil {
		return err
	}

	thresholds, err := hazardThresholds(ctx, cfg)
	if err != nil {
		return err
	}

	projectedSR, err := proj.Parse(cfg.ProjectedSR)
	if err != nil {
		return fmt.Errorf("stormpoputil: parsing projected spatial reference: %v", err)
	}

	mode := stormpop.SampleCellCenters
	if cfg.MergeEqualCells {
		mode = stormpop.SampleMergeEqual
	}

	logrus.WithFields(logrus.Fields{
		"units":      len(units),
		"thresholds": len(thresholds),
	}).Info("estimating exposure")
	res, err := stormpop.EstimateExposure(raster, units, thresholds, projectedSR, mode)
	if err != nil {
		return err
	}
	for _, bt := range res.BandTotals {
		logrus.WithFields(logrus.Fields{
			"windspeed":  bt.Threshold,
			"population": bt.Population,
		}).Info("band total")
	}

	logrus.WithField("file", cfg.OutputXLSX).Info("writing result workbook")
	if err := report.WriteXLSX(res, cfg.OutputXLSX); err != nil {
		return err
	}
	if cfg.BandShapefile != "" {
		logrus.WithField("file", cfg.BandShapefile).Info("writing band shapefile")
		if err := report.WriteBandsShapefile(res.Bands, cfg.BandShapefile); err != nil {
			return err
		}
	}
	return nil
}

// WriteBands obtains the cyclone polygons, partitions them into disjoint
// wind bands, and writes the bands to the configured shapefile.
func WriteBands(ctx context.Context, cfg *Config) error {
	if cfg.BandShapefile == "" {
		return fmt.Errorf("stormpoputil: no band shapefile configured (output.bandshapefile)")
	}
	thresholds, err := hazardThresholds(ctx, cfg)
	if err != nil {
		return err
	}
	bands, err := stormpop.PartitionBands(thresholds)
	if err != nil {
		return err
	}
	logrus.WithField("file", cfg.BandShapefile).Info("writing band shapefile")
	return report.WriteBandsShapefile(bands, cfg.BandShapefile)
}
