// Copyright 2025 The GQC Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"math"
	"slices"
	"strings"

	"github.com/samber/lo"
	"github.com/xrash/smetrics"

	"github.com/selbybotany/gqc/utils/textutils"
)

// DefaultFuzzyThreshold is the token set ratio at or above which two names match.
const DefaultFuzzyThreshold = 85

// NormalizeName folds accents and case and reduces punctuation to single
// spaces. The literal "null", which some exports use for missing values,
// normalizes to the empty string.
func NormalizeName(s string) string {
	out := strings.Join(textutils.Words(s), " ")
	if out == "null" {
		return ""
	}

	return out
}

// NamesMatch reports whether a and b name the same place: equal once
// normalized, or with a token set ratio of at least threshold.
func NamesMatch(a, b string, threshold int) bool {
	na, nb := NormalizeName(a), NormalizeName(b)
	if na == nb {
		return true
	}

	return TokenSetRatio(na, nb) >= threshold
}

// TokenSetRatio scores the similarity of two strings from 0 to 100 ignoring
// word order and repeated words. The common words are compared against each
// side's full word set, and the best of the three pairings wins.
func TokenSetRatio(a, b string) int {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	common := lo.Intersect(ta, tb)
	slices.Sort(common)

	sect := strings.Join(common, " ")
	ab := strings.TrimSpace(sect + " " + strings.Join(lo.Without(ta, common...), " "))
	ba := strings.TrimSpace(sect + " " + strings.Join(lo.Without(tb, common...), " "))

	return max(Ratio(sect, ab), Ratio(sect, ba), Ratio(ab, ba))
}

// Ratio is the normalized edit similarity of a and b from 0 to 100, where a
// substitution costs two edits.
func Ratio(a, b string) int {
	if a == "" || b == "" {
		return 0
	}

	lensum := len(a) + len(b)
	dist := smetrics.WagnerFischer(a, b, 1, 1, 2)

	return int(math.Round(100 * float64(lensum-dist) / float64(lensum)))
}

func tokenSet(s string) []string {
	out := lo.Uniq(strings.Fields(NormalizeName(s)))
	slices.Sort(out)

	return out
}
