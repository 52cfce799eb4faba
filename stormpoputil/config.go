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
	"fmt"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/spatialrisk/stormpop/adminbnd"
)

// DefaultProjectedSR is the proj4 definition used for overlap areas when
// none is configured: UTM zone 38S, which is area-faithful at
// administrative-unit scale for Madagascar, the default study area.
const DefaultProjectedSR = "+proj=utm +zone=38 +south +datum=WGS84 +units=m +no_defs"

// Config holds one run's settings, read from configuration by
// LoadConfig.
type Config struct {
	// PopRaster is the path to the NetCDF population file and
	// PopRasterVar the population variable within it.
	PopRaster    string
	PopRasterVar string

	// Boundaries is the path to the administrative boundary shapefile or
	// zip archive; BoundaryLayer selects a shapefile within an archive
	// holding several.
	Boundaries     string
	BoundaryLayer  string
	BoundaryFields adminbnd.FieldNames

	// HazardGeoJSON, if set, is a local GeoJSON file with the cyclone
	// polygons, used instead of fetching from GDACS.
	HazardGeoJSON string

	// GDACS event selection, used when HazardGeoJSON is empty.
	EventType string
	EventID   int
	EpisodeID int
	SourceID  string

	// ProjectedSR is the proj4 definition of the projected reference
	// system used for overlap areas.
	ProjectedSR string

	// MergeEqualCells selects the region-merging raster sampling mode
	// instead of one point per cell.
	MergeEqualCells bool

	// OutputXLSX is the path of the result workbook; BandShapefile, if
	// set, additionally writes the partitioned bands as a shapefile.
	OutputXLSX    string
	BandShapefile string
}

// intSetting converts the named setting to an int, treating an absent
// key as zero but rejecting unparseable values.
func intSetting(cfg *viper.Viper, key string) (int, error) {
	v := cfg.Get(key)
	if v == nil {
		return 0, nil
	}
	i, err := cast.ToIntE(v)
	if err != nil {
		return 0, fmt.Errorf("stormpoputil: parsing %s: %w", key, err)
	}
	return i, nil
}

// LoadConfig extracts and validates a run configuration from cfg.
func LoadConfig(cfg *viper.Viper) (*Config, error) {
	eventID, err := intSetting(cfg, "hazard.eventid")
	if err != nil {
		return nil, err
	}
	episodeID, err := intSetting(cfg, "hazard.episodeid")
	if err != nil {
		return nil, err
	}
	c := &Config{
		PopRaster:     cfg.GetString("raster.file"),
		PopRasterVar:  cfg.GetString("raster.variable"),
		Boundaries:    cfg.GetString("boundaries.file"),
		BoundaryLayer: cfg.GetString("boundaries.layer"),
		BoundaryFields: adminbnd.FieldNames{
			PCode:    cfg.GetString("boundaries.pcodefield"),
			Name:     cfg.GetString("boundaries.namefield"),
			Province: cfg.GetString("boundaries.provincefield"),
			Country:  cfg.GetString("boundaries.countryfield"),
		},
		HazardGeoJSON:   cfg.GetString("hazard.geojson"),
		EventType:       cfg.GetString("hazard.eventtype"),
		EventID:         eventID,
		EpisodeID:       episodeID,
		SourceID:        cfg.GetString("hazard.sourceid"),
		ProjectedSR:     cfg.GetString("projectedsr"),
		MergeEqualCells: cfg.GetBool("mergeequalcells"),
		OutputXLSX:      cfg.GetString("output.xlsx"),
		BandShapefile:   cfg.GetString("output.bandshapefile"),
	}
	if c.BoundaryFields == (adminbnd.FieldNames{}) {
		c.BoundaryFields = adminbnd.DefaultFields
	}
	if c.ProjectedSR == "" {
		c.ProjectedSR = DefaultProjectedSR
	}
	return c, nil
}

// validateRun checks the fields that the run command requires.
func (c *Config) validateRun() error {
	if c.PopRaster == "" {
		return fmt.Errorf("stormpoputil: no population raster configured (raster.file)")
	}
	if c.PopRasterVar == "" {
		return fmt.Errorf("stormpoputil: no population variable configured (raster.variable)")
	}
	if c.Boundaries == "" {
		return fmt.Errorf("stormpoputil: no boundary file configured (boundaries.file)")
	}
	if c.OutputXLSX == "" {
		return fmt.Errorf("stormpoputil: no output workbook configured (output.xlsx)")
	}
	return c.validateHazard()
}

// validateHazard checks the fields needed to obtain hazard polygons.
func (c *Config) validateHazard() error {
	if c.HazardGeoJSON != "" {
		return nil
	}
	if c.EventType == "" || c.EventID == 0 {
		return fmt.Errorf("stormpoputil: hazard.geojson or a GDACS event (hazard.eventtype, hazard.eventid) must be configured")
	}
	return nil
}
