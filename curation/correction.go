// Copyright 2025 The GQC Authors
// SPDX-License-Identifier: Apache-2.0

package curation

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/selbybotany/gqc/spatial"
)

type candidate struct {
	coord      spatial.Coordinate
	loc        spatial.Location
	comparison spatial.Comparison
}

// correct tries to explain a country mismatch or a failed lookup. primary is
// the location found at coord, nil when the lookup found nothing.
func (e *Engine) correct(ctx context.Context, coord spatial.Coordinate, input spatial.PoliticalDivision, primary *spatial.Location, v *Verdict) error {
	if err := e.correctSigns(ctx, coord, input, v); err != nil {
		return err
	}

	if v.Reason == ReasonCountryMismatch && primary != nil {
		e.correctTerritory(coord, input, *primary, v)
	}

	return nil
}

// correctSigns looks up every sign permutation of coord and keeps the one
// whose location agrees with the input on the most leading levels.
func (e *Engine) correctSigns(ctx context.Context, coord spatial.Coordinate, input spatial.PoliticalDivision, v *Verdict) error {
	var candidates []candidate

	for _, p := range coord.SignPermutations() {
		loc, err := e.ReverseGeolocate(ctx, p, e.opts.CacheEnabled, false)
		if err != nil {
			return err
		}

		if loc == nil {
			continue
		}

		cmp := input.Compare(loc.PoliticalDivision, e.opts.FuzzyThreshold)
		if !cmp.Any() {
			continue
		}

		candidates = append(candidates, candidate{coord: p, loc: *loc, comparison: cmp})
	}

	if len(candidates) == 0 {
		return nil
	}

	// MaxBy keeps the first of equally good candidates.
	best := lo.MaxBy(candidates, func(a, b candidate) bool {
		return a.comparison.Matching > b.comparison.Matching
	})

	v.Location = e.report(coord, best.loc)

	if best.loc.Coordinate.AlmostEqual(coord, e.opts.AllowableError) {
		v.Action, v.Reason, v.Note = ActionPass, ReasonMatchingLocation, ""

		return nil
	}

	v.Action, v.Reason = ActionError, ReasonCoordinateSignError
	v.Note = fmt.Sprintf("suggestion: change location from %v to %v => %v", coord, best.coord, best.loc.PoliticalDivision)

	return nil
}

// correctTerritory recognizes records that give a territory as their country
// (the service answers it as pd1), and records whose pd1 is the country the
// service answers.
func (e *Engine) correctTerritory(coord spatial.Coordinate, input spatial.PoliticalDivision, loc spatial.Location, v *Verdict) {
	returned := loc.PoliticalDivision
	th := e.opts.FuzzyThreshold

	switch {
	case strings.TrimSpace(input.Country) != "" && spatial.NamesMatch(input.Country, returned.PD1, th):
		v.Reason = ReasonCountryIsTerritory
		v.Note = fmt.Sprintf("suggestion: file «%s» under the country «%s»: change %v => %v",
			input.Country, returned.Country, input, returned)
	case strings.TrimSpace(input.PD1) != "" && spatial.NamesMatch(input.PD1, returned.Country, th):
		v.Reason = ReasonPD1IsReverseCountry
		v.Note = fmt.Sprintf("suggestion: use pd1 «%s» as the country: change %v => %v", input.PD1, input, returned)
	default:
		return
	}

	v.Location = e.report(coord, loc)
}
