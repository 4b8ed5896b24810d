// Copyright 2025 The GQC Authors
// SPDX-License-Identifier: Apache-2.0

package curation

import (
	"encoding/json"
	"strconv"

	"github.com/selbybotany/gqc/spatial"
)

// Action is the outcome class of a verified row.
type Action string

const (
	ActionPass          Action = "pass"
	ActionError         Action = "error"
	ActionIgnore        Action = "ignore"
	ActionInternalError Action = "internal-error"
)

// Reason explains an Action.
type Reason string

const (
	ReasonBlankLine                 Reason = "blank-line"
	ReasonCommentLine               Reason = "comment-line"
	ReasonUnparseableLine           Reason = "unparseable-line"
	ReasonNoAccessionNumber         Reason = "no-accession-number"
	ReasonAccessionNumberNotInteger Reason = "accession-number-not-integer"
	ReasonNoLatitudeLongitude       Reason = "no-latitude-longitude"
	ReasonNoLatitude                Reason = "no-latitude"
	ReasonLatitudeNotDecimal        Reason = "latitude-number-not-decimal-float"
	ReasonLatitudeRange             Reason = "latitude-range-error"
	ReasonNoLongitude               Reason = "no-longitude"
	ReasonLongitudeNotDecimal       Reason = "longitude-number-not-decimal-float"
	ReasonLongitudeRange            Reason = "longitude-range-error"

	ReasonMatchingLocation    Reason = "matching-location"
	ReasonIncorrectCoordinate Reason = "incorrect-latitude-longitude"
	ReasonCountryMismatch     Reason = "country-mismatch"
	ReasonCoordinateSignError Reason = "coordinate-sign-error"
	ReasonCountryIsTerritory  Reason = "country-is-territory"
	ReasonPD1IsReverseCountry Reason = "pd1-is-reverse-country"
	ReasonGeolocateError      Reason = "reverse-geolocate-error"
)

// MismatchReason is the reason for a disagreement first found at level l.
func MismatchReason(l spatial.Level) Reason {
	return Reason(l.String() + "-mismatch")
}

// LocationReport is the part of a verdict describing the location the
// service returned.
type LocationReport struct {
	PoliticalDivision spatial.PoliticalDivision `json:"political_division"`
	Latitude          float64                   `json:"latitude"`
	Longitude         float64                   `json:"longitude"`
	// ErrorDistance is the distance from the input coordinate, in kilometers.
	ErrorDistance float64                `json:"error-distance"`
	BoundingBox   *spatial.BoundingBox   `json:"bounding-box,omitempty"`
	EdgeDistances *spatial.EdgeDistances `json:"bounding-box-error-distances,omitempty"`
	DisplayName   string                 `json:"display-name,omitempty"`
}

// Verdict is the result of verifying one row.
type Verdict struct {
	Action          Action          `json:"action"`
	Reason          Reason          `json:"reason"`
	Note            string          `json:"note,omitempty"`
	AccessionNumber string          `json:"accession-number,omitempty"`
	Location        *LocationReport `json:"location,omitempty"`
}

// Status is "action.reason", the key used to count verdicts.
func (v Verdict) Status() string {
	return string(v.Action) + "." + string(v.Reason)
}

// OutputColumns are the names of the columns Record appends to each row.
var OutputColumns = []string{
	"action", "reason",
	"location-country",
	"location-pd1", "location-pd2", "location-pd3", "location-pd4", "location-pd5",
	"location-latitude", "location-longitude",
	"location-error-distance", "location-bounding-box", "location-bounding-box-error-distances",
	"note",
}

// Record renders the verdict as output columns, in OutputColumns order.
func (v Verdict) Record() []string {
	out := make([]string, len(OutputColumns))
	out[0] = string(v.Action)
	out[1] = string(v.Reason)
	out[len(out)-1] = v.Note

	if loc := v.Location; loc != nil {
		for i, name := range loc.PoliticalDivision.Levels() {
			out[2+i] = name
		}

		out[8] = spatial.FormatDegrees(loc.Latitude)
		out[9] = spatial.FormatDegrees(loc.Longitude)
		out[10] = strconv.FormatFloat(loc.ErrorDistance, 'f', 3, 64)
		out[11] = compactJSON(loc.BoundingBox)
		out[12] = compactJSON(loc.EdgeDistances)
	}

	return out
}

func compactJSON[T any](v *T) string {
	if v == nil {
		return ""
	}

	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}

	return string(b)
}
