// Copyright 2025 The GQC Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCoordinate(t *testing.T) {
	tests := []struct {
		name      string
		lat       string
		lon       string
		want      Coordinate
		wantRange bool
		wantFmt   bool
	}{
		{name: "montevideo", lat: "-34.9011", lon: "-56.1645", want: Coordinate{-34.9011, -56.1645}},
		{name: "surrounding spaces", lat: " 21.3 ", lon: "\t-157.8", want: Coordinate{21.3, -157.8}},
		{name: "integral", lat: "10", lon: "20", want: Coordinate{10, 20}},
		{name: "poles and wrapped longitude", lat: "-90", lon: "360", want: Coordinate{-90, 360}},
		{name: "latitude too high", lat: "91", lon: "0", wantRange: true},
		{name: "longitude too low", lat: "0", lon: "-360.5", wantRange: true},
		{name: "latitude text", lat: "N 34", lon: "0", wantFmt: true},
		{name: "longitude empty", lat: "10", lon: "", wantFmt: true},
		{name: "not a number", lat: "NaN", lon: "0", wantFmt: true},
		{name: "infinite", lat: "0", lon: "Inf", wantRange: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCoordinate(tt.lat, tt.lon)

			var rangeErr *RangeError

			var fmtErr *FormatError

			switch {
			case tt.wantRange:
				require.Error(t, err)
				assert.True(t, errors.As(err, &rangeErr), "want RangeError, got %T", err)
			case tt.wantFmt:
				require.Error(t, err)
				assert.True(t, errors.As(err, &fmtErr), "want FormatError, got %T", err)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestRangeErrorMessage(t *testing.T) {
	_, err := NewCoordinate(95, 0)
	require.Error(t, err)
	assert.Equal(t, "latitude 95.0 is not between -90.0 and 90.0, inclusive", err.Error())
}

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		v         float64
		precision int
		want      float64
	}{
		{-34.90114, 3, -34.901},
		{-34.9016, 3, -34.902},
		{10, 3, 10},
		{0.00049, 3, 0},
		{-0.0001, 3, 0},
		{12.3456789, 5, 12.34568},
	}

	for _, tt := range tests {
		got := Canonicalize(tt.v, tt.precision)
		assert.Equal(t, tt.want, got, "Canonicalize(%v, %d)", tt.v, tt.precision)
		assert.Equal(t, got, Canonicalize(got, tt.precision), "not idempotent for %v", tt.v)
	}
}

func TestCanonicalizer(t *testing.T) {
	c := Canonicalizer{LatitudePrecision: 2, LongitudePrecision: 4}
	got := c.Coordinate(Coordinate{Latitude: 25.76168, Longitude: -80.19179})
	assert.Equal(t, Coordinate{Latitude: 25.76, Longitude: -80.1918}, got)
	assert.Equal(t, got, c.Coordinate(got))
}

func TestDistance(t *testing.T) {
	origin := Coordinate{}

	oneDegree := origin.Distance(Coordinate{Longitude: 1})
	assert.InDelta(t, 111195.08, oneDegree, 0.01)
	assert.InDelta(t, 111.195, Kilometers(oneDegree), 1e-9)

	assert.Zero(t, origin.Distance(origin))

	a := Coordinate{Latitude: -34.9011, Longitude: -56.1645}
	b := Coordinate{Latitude: -34.9234, Longitude: -54.9483}
	assert.InDelta(t, a.Distance(b), b.Distance(a), 1e-6)
	assert.InDelta(t, 111.0, Kilometers(a.Distance(b)), 1.0)

	assert.True(t, a.AlmostEqual(Coordinate{Latitude: -34.9012, Longitude: -56.1645}, 1000))
	assert.False(t, a.AlmostEqual(b, 1000))
}

func TestSignPermutations(t *testing.T) {
	tests := []struct {
		name string
		in   Coordinate
		want []Coordinate
	}{
		{
			name: "both non zero",
			in:   Coordinate{Latitude: 25.7, Longitude: 80.2},
			want: []Coordinate{{25.7, -80.2}, {-25.7, 80.2}, {-25.7, -80.2}},
		},
		{
			name: "zero latitude",
			in:   Coordinate{Latitude: 0, Longitude: 5},
			want: []Coordinate{{0, -5}},
		},
		{
			name: "origin",
			in:   Coordinate{},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.SignPermutations()
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, got, tt.in)
		})
	}
}

func TestFormatDegrees(t *testing.T) {
	assert.Equal(t, "12.0", FormatDegrees(12))
	assert.Equal(t, "-34.901", FormatDegrees(-34.901))
	assert.Equal(t, "0.0", FormatDegrees(0))
	assert.Equal(t, "(10.0, -0.5)", Coordinate{Latitude: 10, Longitude: -0.5}.String())
}
