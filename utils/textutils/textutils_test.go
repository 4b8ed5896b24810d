// Copyright 2025 The GQC Authors
// SPDX-License-Identifier: Apache-2.0

package textutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLowerAsciiFolding(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "hello world"},
		{"  Spaces  ", "spaces"},
		{"Áéíóú", "aeiou"},
		{"São Paulo", "sao paulo"},
		{"Ciudad de México", "ciudad de mexico"},
		{"", ""},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, LowerASCIIFolding(tc.input))
		})
	}
}

func TestWords(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"Baja California Sur", []string{"baja", "california", "sur"}},
		{"  Saint-Barthélemy ", []string{"saint", "barthelemy"}},
		{"Condado de Miami-Dade, FL", []string{"condado", "de", "miami", "dade", "fl"}},
		{"Route 66", []string{"route", "66"}},
		{" ,. ", []string{}},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			assert.ElementsMatch(t, tc.expected, Words(tc.input))
		})
	}
}

func TestAnyToStringSlice(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected []string
		ok       bool
	}{
		{"nil", nil, nil, true},
		{"[]string", []string{"a", "b"}, []string{"a", "b"}, true},
		{"[]any string", []any{"a", "b"}, []string{"a", "b"}, true},
		{"[]any numbers", []any{"-34.5", 12.25, float64(3)}, []string{"-34.5", "12.25", "3"}, true},
		{"[]any mixed invalid", []any{"a", true}, nil, false},
		{"not a slice", 123, nil, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, ok := AnyToStringSlice(tc.input)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.expected, res)
		})
	}
}

func TestFormatInt(t *testing.T) {
	tests := []struct {
		input    int64
		expected string
	}{
		{0, "0"},
		{1, "1"},
		{123, "123"},
		{1234, "1,234"},
		{123456, "123,456"},
		{1234567, "1,234,567"},
		{-1, "-1"},
		{-1234, "-1,234"},
		{-1234567, "-1,234,567"},
	}

	for _, tc := range tests {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, FormatInt(tc.input))
		})
	}
}
