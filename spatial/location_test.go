// Copyright 2025 The GQC Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocationJSONRoundTrip(t *testing.T) {
	loc := NewLocation(
		Coordinate{Latitude: 22.89, Longitude: -109.91},
		NewPoliticalDivision("Mexico", "Baja California Sur", "Los Cabos"),
		map[string]any{
			MetadataBoundingBox: []any{"22.8", "23.0", "-109.8", "-110.0"},
			MetadataDistance:    12.5,
			MetadataDisplayName: "Cabo San Lucas, Los Cabos, Baja California Sur, Mexico",
		},
	)

	data, err := json.Marshal(loc)
	require.NoError(t, err)

	var keys map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &keys))
	assert.Contains(t, keys, "coordinate")
	assert.Contains(t, keys, "political_division")
	assert.Contains(t, keys, "metadata")

	got, err := ParseLocation(data)
	require.NoError(t, err)

	if diff := cmp.Diff(loc, got); diff != "" {
		t.Errorf("ParseLocation() mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, "Cabo San Lucas, Los Cabos, Baja California Sur, Mexico", got.DisplayName())
}

func TestParseLocationErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{`},
		{"no coordinate", `{"political_division": {"country": "Mexico"}}`},
		{"no division", `{"coordinate": {"latitude": 1, "longitude": 2}}`},
		{"bad latitude", `{"coordinate": {"latitude": 100, "longitude": 2}, "political_division": {}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLocation([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestParseLocationNullLevels(t *testing.T) {
	loc, err := ParseLocation([]byte(`{
		"coordinate": {"latitude": 18.2, "longitude": -66.5},
		"political_division": {"country": "Puerto Rico", "pd1": null},
		"metadata": {}
	}`))
	require.NoError(t, err)
	assert.Equal(t, NewPoliticalDivision("Puerto Rico"), loc.PoliticalDivision)
}

func TestBoundingBox(t *testing.T) {
	loc := Location{Metadata: map[string]any{MetadataBoundingBox: []any{"-1", "1", "1", "-1"}}}

	box, ok := loc.BoundingBox()
	require.True(t, ok)
	assert.Equal(t, BoundingBox{South: -1, North: 1, East: 1, West: -1}, box)

	d := box.EdgeDistances(Coordinate{})
	assert.Equal(t, EdgeDistances{South: 111.195, North: 111.195, East: 111.195, West: 111.195}, d)

	_, ok = Location{}.BoundingBox()
	assert.False(t, ok)

	_, ok = Location{Metadata: map[string]any{MetadataBoundingBox: []any{"a", "1", "1", "-1"}}}.BoundingBox()
	assert.False(t, ok)

	rounded := Canonicalizer{LatitudePrecision: 1, LongitudePrecision: 1}.BoundingBox(BoundingBox{South: 1.26, North: 2.04, East: 3.15, West: 4.44})
	assert.Equal(t, BoundingBox{South: 1.3, North: 2, East: 3.1, West: 4.4}, rounded)
	assert.Equal(t, []any{"1.3", "2", "3.1", "4.4"}, rounded.Values())
}
