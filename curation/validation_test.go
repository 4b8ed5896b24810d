// Copyright 2025 The GQC Authors
// SPDX-License-Identifier: Apache-2.0

package curation

import (
	"testing"

	"github.com/selbybotany/gqc/spatial"
)

func TestValidateRow(t *testing.T) {
	tests := []struct {
		name       string
		row        Row
		wantAction Action
		wantReason Reason
		wantNote   string
		wantCoord  spatial.Coordinate
	}{
		{
			name:      "valid miami coordinates",
			row:       row("1", "25.7617", "-80.1918", "United States", "Florida"),
			wantCoord: coord(25.7617, -80.1918),
		},
		{
			name:      "longitude beyond 180 is accepted",
			row:       row("1", "10", "200", "Chad"),
			wantCoord: coord(10, 200),
		},
		{
			name:       "blank line",
			row:        Row{Raw: []string{"", " ", ""}},
			wantAction: ActionIgnore,
			wantReason: ReasonBlankLine,
		},
		{
			name:       "comment line",
			row:        Row{Division: spatial.NewPoliticalDivision("# header"), Raw: []string{"# header", ""}, FirstColumn: "# header"},
			wantAction: ActionIgnore,
			wantReason: ReasonCommentLine,
		},
		{
			name:       "no accession number",
			row:        row("", "1", "1", "Chad"),
			wantAction: ActionIgnore,
			wantReason: ReasonNoAccessionNumber,
		},
		{
			name:       "accession number with letters",
			row:        row("12a", "1", "1", "Chad"),
			wantAction: ActionIgnore,
			wantReason: ReasonAccessionNumberNotInteger,
			wantNote:   "«12a» should be a decimal integer",
		},
		{
			name:       "negative accession number",
			row:        row("-3", "1", "1", "Chad"),
			wantAction: ActionIgnore,
			wantReason: ReasonAccessionNumberNotInteger,
			wantNote:   "«-3» should be a decimal integer",
		},
		{
			name:       "no coordinate at all",
			row:        row("1", "", "", "Chad"),
			wantAction: ActionIgnore,
			wantReason: ReasonNoLatitudeLongitude,
		},
		{
			name:       "no latitude",
			row:        row("1", "", "5", "Chad"),
			wantAction: ActionIgnore,
			wantReason: ReasonNoLatitude,
		},
		{
			name:       "latitude too high",
			row:        row("1", "95", "5", "Chad"),
			wantAction: ActionError,
			wantReason: ReasonLatitudeRange,
			wantNote:   "«95» cannot be less than -90 or greater than +90",
		},
		{
			name:       "latitude not a number",
			row:        row("1", "north", "5", "Chad"),
			wantAction: ActionIgnore,
			wantReason: ReasonLatitudeNotDecimal,
			wantNote:   "«north» must be a floating point (real) number",
		},
		{
			name:       "bad latitude is reported before a missing longitude",
			row:        row("1", "north", "", "Chad"),
			wantAction: ActionIgnore,
			wantReason: ReasonLatitudeNotDecimal,
			wantNote:   "«north» must be a floating point (real) number",
		},
		{
			name:       "no longitude",
			row:        row("1", "5", "", "Chad"),
			wantAction: ActionIgnore,
			wantReason: ReasonNoLongitude,
		},
		{
			name:       "longitude too low",
			row:        row("1", "5", "-361", "Chad"),
			wantAction: ActionError,
			wantReason: ReasonLongitudeRange,
			wantNote:   "«-361» cannot be less than -360 or greater than +360",
		},
		{
			name:       "longitude not a number",
			row:        row("1", "5", "80W", "Chad"),
			wantAction: ActionIgnore,
			wantReason: ReasonLongitudeNotDecimal,
			wantNote:   "«80W» must be a floating point (real) number",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, v := validateRow(tt.row)

			if tt.wantAction == "" {
				if v != nil {
					t.Fatalf("validateRow() rejected the row: %s %q", v.Status(), v.Note)
				}

				if got != tt.wantCoord {
					t.Errorf("validateRow() = %v, want %v", got, tt.wantCoord)
				}

				return
			}

			if v == nil {
				t.Fatalf("validateRow() accepted the row, want %s.%s", tt.wantAction, tt.wantReason)
			}

			if v.Action != tt.wantAction || v.Reason != tt.wantReason {
				t.Errorf("validateRow() = %s, want %s.%s", v.Status(), tt.wantAction, tt.wantReason)
			}

			if v.Note != tt.wantNote {
				t.Errorf("validateRow() note = %q, want %q", v.Note, tt.wantNote)
			}

			if v.AccessionNumber != tt.row.AccessionNumber {
				t.Errorf("validateRow() accession = %q, want %q", v.AccessionNumber, tt.row.AccessionNumber)
			}
		})
	}
}

func TestIsDecimalInteger(t *testing.T) {
	for s, want := range map[string]bool{
		"0": true, "0012": true, "123456": true,
		"": false, "12a": false, "1.5": false, "+1": false, "١٢": false,
	} {
		if got := isDecimalInteger(s); got != want {
			t.Errorf("isDecimalInteger(%q) = %v, want %v", s, got, want)
		}
	}
}
