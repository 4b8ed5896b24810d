// Copyright 2025 The GQC Authors
// SPDX-License-Identifier: Apache-2.0

package curation

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/selbybotany/gqc/spatial"
)

func TestVerdictRecord(t *testing.T) {
	box := spatial.BoundingBox{South: 25.709, North: 25.856, East: -80.139, West: -80.32}
	edges := spatial.EdgeDistances{South: 5.894, North: 10.451, East: 5.214, West: 12.84}

	v := Verdict{
		Action: ActionError,
		Reason: ReasonCoordinateSignError,
		Note:   "suggestion: change location",
		Location: &LocationReport{
			PoliticalDivision: spatial.NewPoliticalDivision("United States", "Florida", "Miami-Dade County"),
			Latitude:          25.762,
			Longitude:         -80,
			ErrorDistance:     0.0389,
			BoundingBox:       &box,
			EdgeDistances:     &edges,
		},
	}

	want := []string{
		"error", "coordinate-sign-error",
		"United States", "Florida", "Miami-Dade County", "", "", "",
		"25.762", "-80.0",
		"0.039",
		`{"latitude-south":25.709,"latitude-north":25.856,"longitude-east":-80.139,"longitude-west":-80.32}`,
		`{"latitude-south":5.894,"latitude-north":10.451,"longitude-east":5.214,"longitude-west":12.84}`,
		"suggestion: change location",
	}

	if diff := cmp.Diff(want, v.Record()); diff != "" {
		t.Errorf("Record() mismatch (-want +got):\n%s", diff)
	}

	if got := v.Status(); got != "error.coordinate-sign-error" {
		t.Errorf("Status() = %q", got)
	}
}

func TestVerdictRecordWithoutLocation(t *testing.T) {
	v := Verdict{Action: ActionIgnore, Reason: ReasonBlankLine}
	got := v.Record()

	if len(got) != len(OutputColumns) {
		t.Fatalf("Record() has %d columns, want %d", len(got), len(OutputColumns))
	}

	if got[0] != "ignore" || got[1] != "blank-line" {
		t.Errorf("Record() = %q", got[:2])
	}

	for i, col := range got[2:] {
		if col != "" {
			t.Errorf("column %s = %q, want empty", OutputColumns[i+2], col)
		}
	}
}

func TestMismatchReason(t *testing.T) {
	if got := MismatchReason(spatial.Country); got != ReasonCountryMismatch {
		t.Errorf("MismatchReason(Country) = %q", got)
	}

	if got := MismatchReason(spatial.PD3); got != "pd3-mismatch" {
		t.Errorf("MismatchReason(PD3) = %q", got)
	}
}
