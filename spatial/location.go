// Copyright 2025 The GQC Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strconv"

	"github.com/selbybotany/gqc/utils/textutils"
)

// Well known metadata keys.
const (
	MetadataBoundingBox     = "boundingbox"
	MetadataDistance        = "distance"
	MetadataDisplayName     = "display_name"
	MetadataRequestPosition = "__request_position"
	MetadataRequestURL      = "__request_url"
	MetadataResponse        = "__response"
)

// Location is a geocoded place: a coordinate, the political division that
// contains it and whatever else the service reported about it.
type Location struct {
	Coordinate        Coordinate        `json:"coordinate"`
	PoliticalDivision PoliticalDivision `json:"political_division"`
	Metadata          map[string]any    `json:"metadata"`
}

// NewLocation returns a location owning a shallow copy of metadata.
func NewLocation(c Coordinate, pd PoliticalDivision, metadata map[string]any) Location {
	return Location{Coordinate: c, PoliticalDivision: pd, Metadata: maps.Clone(metadata)}
}

// ParseLocation decodes a location from its JSON form. Both the coordinate
// and the political division must be present.
func ParseLocation(data []byte) (Location, error) {
	var raw struct {
		Coordinate        *Coordinate        `json:"coordinate"`
		PoliticalDivision *PoliticalDivision `json:"political_division"`
		Metadata          map[string]any     `json:"metadata"`
	}

	if err := json.Unmarshal(data, &raw); err != nil {
		return Location{}, fmt.Errorf("decoding location: %w", err)
	}

	if raw.Coordinate == nil {
		return Location{}, errors.New("location has no coordinate")
	}

	if raw.PoliticalDivision == nil {
		return Location{}, errors.New("location has no political_division")
	}

	c, err := NewCoordinate(raw.Coordinate.Latitude, raw.Coordinate.Longitude)
	if err != nil {
		return Location{}, fmt.Errorf("location coordinate: %w", err)
	}

	return Location{Coordinate: c, PoliticalDivision: *raw.PoliticalDivision, Metadata: raw.Metadata}, nil
}

// DisplayName returns the human readable name reported by the service, if any.
func (l Location) DisplayName() string {
	s, _ := l.Metadata[MetadataDisplayName].(string)

	return s
}

// BoundingBox returns the area the service associates with the location.
func (l Location) BoundingBox() (BoundingBox, bool) {
	values, ok := textutils.AnyToStringSlice(l.Metadata[MetadataBoundingBox])
	if !ok || len(values) != 4 {
		return BoundingBox{}, false
	}

	b, err := ParseBoundingBox(values)
	if err != nil {
		return BoundingBox{}, false
	}

	return b, true
}

// BoundingBox is an area delimited by two latitudes and two longitudes.
type BoundingBox struct {
	South float64 `json:"latitude-south"`
	North float64 `json:"latitude-north"`
	East  float64 `json:"longitude-east"`
	West  float64 `json:"longitude-west"`
}

// ParseBoundingBox reads [south, north, east, west] as returned by the
// reverse geocoding services.
func ParseBoundingBox(values []string) (BoundingBox, error) {
	if len(values) != 4 {
		return BoundingBox{}, fmt.Errorf("bounding box has %d values, want 4", len(values))
	}

	var f [4]float64

	for i, v := range values {
		x, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return BoundingBox{}, fmt.Errorf("bounding box value %q: %w", v, err)
		}

		f[i] = x
	}

	return BoundingBox{South: f[0], North: f[1], East: f[2], West: f[3]}, nil
}

// Values returns the box as [south, north, east, west] strings.
func (b BoundingBox) Values() []any {
	return []any{
		strconv.FormatFloat(b.South, 'f', -1, 64),
		strconv.FormatFloat(b.North, 'f', -1, 64),
		strconv.FormatFloat(b.East, 'f', -1, 64),
		strconv.FormatFloat(b.West, 'f', -1, 64),
	}
}

// EdgeDistances are the distances, in kilometers, from a point to each edge
// of a bounding box.
type EdgeDistances struct {
	South float64 `json:"latitude-south"`
	North float64 `json:"latitude-north"`
	East  float64 `json:"longitude-east"`
	West  float64 `json:"longitude-west"`
}

// EdgeDistances measures from c to each edge along the meridian or parallel
// through c.
func (b BoundingBox) EdgeDistances(c Coordinate) EdgeDistances {
	km := func(lat, lon float64) float64 {
		return Kilometers(c.Distance(Coordinate{Latitude: lat, Longitude: lon}))
	}

	return EdgeDistances{
		South: km(b.South, c.Longitude),
		North: km(b.North, c.Longitude),
		East:  km(c.Latitude, b.East),
		West:  km(c.Latitude, b.West),
	}
}
