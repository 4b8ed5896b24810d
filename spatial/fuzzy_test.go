// Copyright 2025 The GQC Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  São Tomé and Príncipe ", "sao tome and principe"},
		{"Miami-Dade County", "miami dade county"},
		{"St. John's", "st john s"},
		{"null", ""},
		{"NULL", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.in))
		})
	}
}

func TestRatio(t *testing.T) {
	assert.Equal(t, 100, Ratio("florida", "florida"))
	assert.Equal(t, 62, Ratio("kitten", "sitting"))
	assert.Equal(t, 0, Ratio("", "florida"))
	assert.Equal(t, 0, Ratio("abc", "xyz"))
}

func TestTokenSetRatio(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"baja california sur", "baja california", 100},
		{"county miami dade", "miami dade county", 100},
		{"new york new york", "new york", 100},
		{"florida", "", 0},
		{"", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.a+"|"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, TokenSetRatio(tt.a, tt.b))
			assert.Equal(t, tt.want, TokenSetRatio(tt.b, tt.a), "not symmetric")
		})
	}
}

func TestNamesMatch(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"México", "Mexico", true},
		{"Estado de México", "México", true},
		{"Miami-Dade County", "Miami Dade", true},
		{"", "", true},
		{"null", "", true},
		{"Florida", "Georgia", false},
		{"", "Florida", false},
		{"Puerto Rico", "United States", false},
	}

	for _, tt := range tests {
		t.Run(tt.a+"|"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, NamesMatch(tt.a, tt.b, DefaultFuzzyThreshold))
		})
	}
}
