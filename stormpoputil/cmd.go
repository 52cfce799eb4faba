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

// Package stormpoputil holds the command-line interface and
// configuration handling for the stormpop command.
package stormpoputil

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version is the version of this program.
const Version = "0.1.0"

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to StormPop.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "raster.file",
			usage: `
              raster.file specifies the location of the NetCDF file holding
              the gridded population counts.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "raster.variable",
			usage: `
              raster.variable specifies the name of the population variable
              within the raster file.`,
			defaultVal: "population",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "boundaries.file",
			usage: `
              boundaries.file specifies the location of the administrative
              boundary shapefile. It may be a zip archive holding the
              shapefile.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "boundaries.layer",
			usage: `
              boundaries.layer selects a shapefile by base name when
              boundaries.file is a zip archive holding more than one.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "boundaries.pcodefield",
			usage: `
              boundaries.pcodefield specifies the attribute holding the
              unique administrative unit code.`,
			defaultVal: "ADM2_PCODE",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "boundaries.namefield",
			usage: `
              boundaries.namefield specifies the attribute holding the
              administrative unit name.`,
			defaultVal: "ADM2_EN",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "boundaries.provincefield",
			usage: `
              boundaries.provincefield specifies the attribute holding the
              parent province name.`,
			defaultVal: "ADM1_EN",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "boundaries.countryfield",
			usage: `
              boundaries.countryfield specifies the attribute holding the
              country name.`,
			defaultVal: "ADM0_EN",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "hazard.geojson",
			usage: `
              hazard.geojson specifies a local GeoJSON file holding the
              cyclone wind-speed polygons. When set, no GDACS request is
              made.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), bandsCmd.Flags()},
		},
		{
			name: "hazard.eventtype",
			usage: `
              hazard.eventtype specifies the GDACS event type of the cyclone
              of interest, typically "TC".`,
			defaultVal: "TC",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), bandsCmd.Flags()},
		},
		{
			name: "hazard.eventid",
			usage: `
              hazard.eventid specifies the GDACS event identifier of the
              cyclone of interest.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), bandsCmd.Flags()},
		},
		{
			name: "hazard.episodeid",
			usage: `
              hazard.episodeid specifies the GDACS episode identifier of the
              cyclone of interest.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), bandsCmd.Flags()},
		},
		{
			name: "hazard.sourceid",
			usage: `
              hazard.sourceid specifies the GDACS source identifier of the
              cyclone forecast of interest.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), bandsCmd.Flags()},
		},
		{
			name: "projectedsr",
			usage: `
              projectedsr specifies the proj4 definition of the projected
              spatial reference system used for calculating overlap areas.`,
			defaultVal: DefaultProjectedSR,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "mergeequalcells",
			usage: `
              mergeequalcells specifies whether to merge connected
              raster cells holding equal population into a single sample
              point instead of sampling one point per cell.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "output.xlsx",
			usage: `
              output.xlsx specifies the location of the result workbook.`,
			shorthand:  "o",
			defaultVal: "exposure.xlsx",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "output.bandshapefile",
			usage: `
              output.bandshapefile specifies a shapefile location for the
              partitioned wind bands. If empty, no shapefile is written.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), bandsCmd.Flags()},
		},
	}

	Cfg = viper.New()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(runCmd)
	Root.AddCommand(bandsCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("stormpop: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "stormpop",
	Short: "Estimate population exposure to cyclone wind bands.",
	Long: `StormPop estimates the number of people exposed to each wind-speed
band of a tropical cyclone, broken down by administrative unit.
Use the subcommands specified below to access the functionality.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag) or by using command-line arguments.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of StormPop.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("StormPop v%s\n", Version)
	},
	DisableAutoGenTag: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an exposure estimate.",
	Long: `run samples the population raster, partitions the cyclone polygons
into disjoint wind bands, apportions the exposed population among the
administrative units, and writes the result workbook.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(Cfg)
		if err != nil {
			return err
		}
		return Run(cmd.Context(), cfg)
	},
	DisableAutoGenTag: true,
}

var bandsCmd = &cobra.Command{
	Use:   "bands",
	Short: "Write the disjoint wind bands as a shapefile.",
	Long: `bands obtains the cyclone polygons, partitions them into disjoint
wind bands, and writes the bands to the configured shapefile without
performing an exposure estimate.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(Cfg)
		if err != nil {
			return err
		}
		return WriteBands(cmd.Context(), cfg)
	},
	DisableAutoGenTag: true,
}
