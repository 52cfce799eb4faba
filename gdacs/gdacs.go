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

// Package gdacs fetches tropical-cyclone wind-threshold polygons from the
// GDACS polygon API and converts them to stormpop threshold polygons.
package gdacs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/geojson"
	"github.com/ctessum/requestcache"
	"github.com/sirupsen/logrus"

	"github.com/spatialrisk/stormpop"
)

// DefaultBaseURL is the GDACS polygon geometry endpoint.
const DefaultBaseURL = "https://www.gdacs.org/gdacsapi/api/polygons/getgeometry"

// windLabelSuffix marks the polygon features that represent wind-speed
// thresholds; other features (track, centroid, uncertainty cones) are
// ignored.
const windLabelSuffix = " km/h"

// An Event identifies one episode of a tropical cyclone in GDACS.
type Event struct {
	EventType string // e.g. "TC"
	EventID   int
	EpisodeID int
	SourceID  string // e.g. "JTWC"
}

func (e Event) String() string {
	return fmt.Sprintf("%s-%d-%d-%s", e.EventType, e.EventID, e.EpisodeID, e.SourceID)
}

// A Client fetches and caches GDACS polygon geometry. The zero value is
// not usable; use NewClient.
type Client struct {
	// BaseURL is the polygon geometry endpoint. It defaults to
	// DefaultBaseURL.
	BaseURL string

	// HTTPClient is used for requests. It defaults to http.DefaultClient.
	HTTPClient *http.Client

	// InitialRetryInterval is the starting interval for the exponential
	// retry backoff.
	InitialRetryInterval time.Duration

	cache *requestcache.Cache
}

// NewClient returns a client that holds up to memCacheSize fetched
// polygon sets in an in-memory cache, so repeated requests for the same
// event hit the network only once.
func NewClient(memCacheSize int) *Client {
	c := &Client{
		BaseURL:              DefaultBaseURL,
		HTTPClient:           http.DefaultClient,
		InitialRetryInterval: time.Second,
	}
	c.cache = requestcache.NewCache(c.fetch, runtime.GOMAXPROCS(-1),
		requestcache.Memory(memCacheSize))
	return c
}

// Thresholds fetches the wind-threshold polygons for the given event,
// sorted ascending by wind speed. The returned geometries are in the
// WGS84 geographic reference system, as served by GDACS. Failures are
// reported as a stormpop.DataUnavailableError.
func (c *Client) Thresholds(ctx context.Context, event Event) ([]stormpop.ThresholdPolygon, error) {
	u, err := c.eventURL(event)
	if err != nil {
		return nil, &stormpop.DataUnavailableError{Source: "hazard polygons", Err: err}
	}
	r := c.cache.NewRequest(ctx, u, "gdacs_"+event.String())
	result, err := r.Result()
	if err != nil {
		return nil, &stormpop.DataUnavailableError{Source: "hazard polygons", Err: err}
	}
	return result.([]stormpop.ThresholdPolygon), nil
}

func (c *Client) eventURL(event Event) (string, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("eventtype", event.EventType)
	q.Set("eventid", strconv.Itoa(event.EventID))
	q.Set("episodeid", strconv.Itoa(event.EpisodeID))
	q.Set("sourceid", event.SourceID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// fetch downloads and parses one polygon set. It fulfills the
// requestcache ProcessFunc signature.
func (c *Client) fetch(ctx context.Context, request interface{}) (interface{}, error) {
	u := request.(string)
	var body []byte
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.InitialRetryInterval
	err := backoff.RetryNotify(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
			if err != nil {
				return err
			}
			resp, err := c.HTTPClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("gdacs: unexpected response status %s", resp.Status)
			}
			body, err = io.ReadAll(resp.Body)
			return err
		},
		backoff.WithMaxRetries(bo, 4),
		func(err error, d time.Duration) {
			logrus.WithError(err).Warnf("gdacs: fetch failed; retrying in %v", d)
		},
	)
	if err != nil {
		return nil, err
	}
	return ParseThresholds(body)
}

// ReadFile loads wind-threshold polygons from a GeoJSON file previously
// downloaded from GDACS, for offline runs.
func ReadFile(filename string) ([]stormpop.ThresholdPolygon, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, &stormpop.DataUnavailableError{Source: "hazard polygons", Err: err}
	}
	t, err := ParseThresholds(b)
	if err != nil {
		return nil, &stormpop.DataUnavailableError{Source: "hazard polygons", Err: err}
	}
	return t, nil
}

type featureCollection struct {
	Features []struct {
		Properties struct {
			PolygonLabel string `json:"polygonlabel"`
		} `json:"properties"`
		Geometry json.RawMessage `json:"geometry"`
	} `json:"features"`
}

// ParseThresholds extracts the wind-speed threshold polygons from a GDACS
// GeoJSON feature collection. Features are kept only if their
// polygonlabel is a wind speed such as "60 km/h"; the label's numeric
// part becomes the threshold value. The result is sorted ascending by
// threshold.
func ParseThresholds(b []byte) ([]stormpop.ThresholdPolygon, error) {
	var fc featureCollection
	if err := json.Unmarshal(b, &fc); err != nil {
		return nil, fmt.Errorf("gdacs: decoding feature collection: %w", err)
	}
	var thresholds []stormpop.ThresholdPolygon
	for _, f := range fc.Features {
		label := strings.TrimSpace(f.Properties.PolygonLabel)
		if !strings.HasSuffix(label, windLabelSuffix) {
			continue
		}
		speed, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(label, windLabelSuffix)), 64)
		if err != nil {
			return nil, fmt.Errorf("gdacs: parsing wind speed from label %q: %w", label, err)
		}
		g, err := geojson.Decode(f.Geometry)
		if err != nil {
			return nil, fmt.Errorf("gdacs: decoding geometry for %q: %w", label, err)
		}
		poly, ok := g.(geom.Polygonal)
		if !ok {
			return nil, fmt.Errorf("gdacs: feature %q has non-polygonal geometry %T", label, g)
		}
		thresholds = append(thresholds, stormpop.ThresholdPolygon{
			Threshold: speed,
			Polygonal: poly,
		})
	}
	if len(thresholds) == 0 {
		return nil, fmt.Errorf("gdacs: no wind-speed polygons in feature collection")
	}
	sort.Slice(thresholds, func(i, j int) bool {
		return thresholds[i].Threshold < thresholds[j].Threshold
	})
	return thresholds, nil
}
