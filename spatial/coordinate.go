// Copyright 2025 The GQC Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// EarthRadius is the IUGG mean Earth radius, in meters.
const EarthRadius = 6371008.8

// Valid ranges, inclusive. Longitudes beyond ±180 are tolerated because
// collection sheets sometimes measure east from Greenwich all the way round.
const (
	MinLatitude  = -90.0
	MaxLatitude  = 90.0
	MinLongitude = -360.0
	MaxLongitude = 360.0
)

// RangeError reports a coordinate component outside its valid range.
type RangeError struct {
	Field string
	Value float64
	Min   float64
	Max   float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s %s is not between %s and %s, inclusive",
		e.Field, FormatDegrees(e.Value), FormatDegrees(e.Min), FormatDegrees(e.Max))
}

// FormatError reports a coordinate component that is not a decimal number.
type FormatError struct {
	Field string
	Value string
	Err   error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s %q is not a decimal number", e.Field, e.Value)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// Coordinate is a latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NewCoordinate returns a coordinate after checking both components are in range.
func NewCoordinate(lat, lon float64) (Coordinate, error) {
	if err := checkRange("latitude", lat, MinLatitude, MaxLatitude); err != nil {
		return Coordinate{}, err
	}

	if err := checkRange("longitude", lon, MinLongitude, MaxLongitude); err != nil {
		return Coordinate{}, err
	}

	return Coordinate{Latitude: lat, Longitude: lon}, nil
}

// ParseLatitude parses and range checks a latitude.
func ParseLatitude(s string) (float64, error) {
	return parseDegrees("latitude", s, MinLatitude, MaxLatitude)
}

// ParseLongitude parses and range checks a longitude.
func ParseLongitude(s string) (float64, error) {
	return parseDegrees("longitude", s, MinLongitude, MaxLongitude)
}

// ParseCoordinate parses both components of a coordinate.
func ParseCoordinate(lat, lon string) (Coordinate, error) {
	la, err := ParseLatitude(lat)
	if err != nil {
		return Coordinate{}, err
	}

	lo, err := ParseLongitude(lon)
	if err != nil {
		return Coordinate{}, err
	}

	return Coordinate{Latitude: la, Longitude: lo}, nil
}

func parseDegrees(field, s string, lower, upper float64) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) {
		return 0, &FormatError{Field: field, Value: s, Err: err}
	}

	if err := checkRange(field, v, lower, upper); err != nil {
		return 0, err
	}

	return v, nil
}

func checkRange(field string, v, lower, upper float64) error {
	if math.IsNaN(v) || v < lower || v > upper {
		return &RangeError{Field: field, Value: v, Min: lower, Max: upper}
	}

	return nil
}

// String returns the coordinate as "(lat, lon)".
func (c Coordinate) String() string {
	return fmt.Sprintf("(%s, %s)", FormatDegrees(c.Latitude), FormatDegrees(c.Longitude))
}

// Distance returns the great-circle distance to other in meters.
func (c Coordinate) Distance(other Coordinate) float64 {
	lat1 := c.Latitude * math.Pi / 180
	lat2 := other.Latitude * math.Pi / 180
	dLat := (other.Latitude - c.Latitude) * math.Pi / 180
	dLng := (other.Longitude - c.Longitude) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c2 := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadius * c2
}

// AlmostEqual reports whether other lies within tolerance meters of c.
func (c Coordinate) AlmostEqual(other Coordinate, tolerance float64) bool {
	return c.Distance(other) <= tolerance
}

// SignPermutations returns the coordinates obtained by flipping the sign of
// the latitude, the longitude or both. The identity and duplicates (which
// appear when a component is zero) are left out.
func (c Coordinate) SignPermutations() []Coordinate {
	signs := [][2]float64{{1, -1}, {-1, 1}, {-1, -1}}
	seen := map[Coordinate]bool{c: true}

	var out []Coordinate

	for _, s := range signs {
		// Adding zero turns -0 into +0 so it compares and prints like 0.
		p := Coordinate{Latitude: c.Latitude*s[0] + 0, Longitude: c.Longitude*s[1] + 0}
		if seen[p] {
			continue
		}

		seen[p] = true
		out = append(out, p)
	}

	return out
}

// Canonicalize rounds v to precision decimal places by formatting and
// parsing it back, so canonicalizing twice yields the same value.
func Canonicalize(v float64, precision int) float64 {
	out, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', precision, 64), 64)
	if err != nil {
		return v
	}

	return out + 0
}

// Canonicalizer rounds coordinates to a fixed number of decimal places.
type Canonicalizer struct {
	LatitudePrecision  int
	LongitudePrecision int
}

// Coordinate returns c with both components rounded.
func (p Canonicalizer) Coordinate(c Coordinate) Coordinate {
	return Coordinate{
		Latitude:  Canonicalize(c.Latitude, p.LatitudePrecision),
		Longitude: Canonicalize(c.Longitude, p.LongitudePrecision),
	}
}

// BoundingBox returns b with latitudes and longitudes rounded.
func (p Canonicalizer) BoundingBox(b BoundingBox) BoundingBox {
	return BoundingBox{
		South: Canonicalize(b.South, p.LatitudePrecision),
		North: Canonicalize(b.North, p.LatitudePrecision),
		East:  Canonicalize(b.East, p.LongitudePrecision),
		West:  Canonicalize(b.West, p.LongitudePrecision),
	}
}

// FormatDegrees prints v with the shortest representation that parses back
// to v, keeping a trailing ".0" on integral values.
func FormatDegrees(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".nN") {
		s += ".0"
	}

	return s
}

// Kilometers converts meters to kilometers rounded to the meter.
func Kilometers(meters float64) float64 {
	return Canonicalize(meters/1000, 3)
}
