// Copyright 2025 The GQC Authors
// SPDX-License-Identifier: Apache-2.0

package curation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/selbybotany/gqc/spatial"
)

// isDecimalInteger reports whether s is made only of ASCII digits.
func isDecimalInteger(s string) bool {
	if s == "" {
		return false
	}

	return strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }) < 0
}

// validateRow checks the structure of a row before any lookup. It returns
// the parsed coordinate, or the verdict that ends processing of the row.
func validateRow(r Row) (spatial.Coordinate, *Verdict) {
	reject := func(action Action, reason Reason, note string) (spatial.Coordinate, *Verdict) {
		return spatial.Coordinate{}, &Verdict{
			Action:          action,
			Reason:          reason,
			Note:            note,
			AccessionNumber: r.AccessionNumber,
		}
	}

	switch {
	case r.IsBlank():
		return reject(ActionIgnore, ReasonBlankLine, "")
	case r.IsComment():
		return reject(ActionIgnore, ReasonCommentLine, "")
	case r.AccessionNumber == "":
		return reject(ActionIgnore, ReasonNoAccessionNumber, "")
	case !isDecimalInteger(r.AccessionNumber):
		return reject(ActionIgnore, ReasonAccessionNumberNotInteger,
			fmt.Sprintf("«%s» should be a decimal integer", r.AccessionNumber))
	case r.Latitude == "" && r.Longitude == "":
		return reject(ActionIgnore, ReasonNoLatitudeLongitude, "")
	case r.Latitude == "":
		return reject(ActionIgnore, ReasonNoLatitude, "")
	}

	lat, err := spatial.ParseLatitude(r.Latitude)
	if err != nil {
		var rangeErr *spatial.RangeError
		if errors.As(err, &rangeErr) {
			return reject(ActionError, ReasonLatitudeRange,
				fmt.Sprintf("«%s» cannot be less than -90 or greater than +90", r.Latitude))
		}

		return reject(ActionIgnore, ReasonLatitudeNotDecimal,
			fmt.Sprintf("«%s» must be a floating point (real) number", r.Latitude))
	}

	if r.Longitude == "" {
		return reject(ActionIgnore, ReasonNoLongitude, "")
	}

	lon, err := spatial.ParseLongitude(r.Longitude)
	if err != nil {
		var rangeErr *spatial.RangeError
		if errors.As(err, &rangeErr) {
			return reject(ActionError, ReasonLongitudeRange,
				fmt.Sprintf("«%s» cannot be less than -360 or greater than +360", r.Longitude))
		}

		return reject(ActionIgnore, ReasonLongitudeNotDecimal,
			fmt.Sprintf("«%s» must be a floating point (real) number", r.Longitude))
	}

	return spatial.Coordinate{Latitude: lat, Longitude: lon}, nil
}
