// Copyright 2025 The GQC Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Level is a political division level, Country being the coarsest.
type Level int

const (
	Country Level = iota
	PD1
	PD2
	PD3
	PD4
	PD5
)

// NumLevels is the number of political division levels.
const NumLevels = 6

var levelNames = [NumLevels]string{"country", "pd1", "pd2", "pd3", "pd4", "pd5"}

func (l Level) String() string {
	if l < 0 || int(l) >= NumLevels {
		return fmt.Sprintf("level(%d)", int(l))
	}

	return levelNames[l]
}

// ParseLevel returns the level named by s ("country", "pd1" ... "pd5").
func ParseLevel(s string) (Level, error) {
	for i, name := range levelNames {
		if name == s {
			return Level(i), nil
		}
	}

	return 0, fmt.Errorf("unknown political division level %q", s)
}

// PoliticalDivision is the hierarchy of named areas containing a place, from
// country down to pd5. A blank level means unknown.
type PoliticalDivision struct {
	Country string `json:"country"`
	PD1     string `json:"pd1"`
	PD2     string `json:"pd2"`
	PD3     string `json:"pd3"`
	PD4     string `json:"pd4"`
	PD5     string `json:"pd5"`
}

// NewPoliticalDivision builds a division from its levels, coarsest first.
// Extra levels beyond pd5 are ignored.
func NewPoliticalDivision(levels ...string) PoliticalDivision {
	var pd PoliticalDivision
	for i, v := range levels {
		if i >= NumLevels {
			break
		}

		pd = pd.With(Level(i), v)
	}

	return pd
}

// Levels returns all six levels, coarsest first.
func (pd PoliticalDivision) Levels() []string {
	return []string{pd.Country, pd.PD1, pd.PD2, pd.PD3, pd.PD4, pd.PD5}
}

// Level returns the value at level l.
func (pd PoliticalDivision) Level(l Level) string {
	if l < 0 || int(l) >= NumLevels {
		return ""
	}

	return pd.Levels()[l]
}

// With returns a copy of pd with level l set to v.
func (pd PoliticalDivision) With(l Level, v string) PoliticalDivision {
	switch l {
	case Country:
		pd.Country = v
	case PD1:
		pd.PD1 = v
	case PD2:
		pd.PD2 = v
	case PD3:
		pd.PD3 = v
	case PD4:
		pd.PD4 = v
	case PD5:
		pd.PD5 = v
	}

	return pd
}

// IsEmpty reports whether every level is blank.
func (pd PoliticalDivision) IsEmpty() bool {
	return len(pd.RContract()) == 0
}

// Contract removes blank levels, shifting the remaining names up so that
// {Mexico, "", Cabo} becomes {Mexico, Cabo}.
func (pd PoliticalDivision) Contract() PoliticalDivision {
	names := lo.Compact(lo.Map(pd.Levels(), func(s string, _ int) string {
		return strings.TrimSpace(s)
	}))

	return NewPoliticalDivision(names...)
}

// RContract returns the levels up to and including the last non-blank one.
// Interior gaps are kept.
func (pd PoliticalDivision) RContract() []string {
	levels := pd.Levels()

	n := len(levels)
	for n > 0 && strings.TrimSpace(levels[n-1]) == "" {
		n--
	}

	return levels[:n]
}

// Equal reports whether both divisions name the same places once normalized.
func (pd PoliticalDivision) Equal(other PoliticalDivision) bool {
	for i, v := range pd.Levels() {
		if NormalizeName(v) != NormalizeName(other.Level(Level(i))) {
			return false
		}
	}

	return true
}

// LevelComparison is the outcome of comparing one level of two divisions.
type LevelComparison struct {
	Level Level
	This  string
	Other string
	Match bool
}

// Comparison is the level by level outcome of comparing two divisions.
type Comparison struct {
	Levels []LevelComparison
	// Matching is the number of consecutive matching levels starting at the country.
	Matching int
}

// Any reports whether at least the country matched.
func (c Comparison) Any() bool {
	return c.Matching > 0
}

// All reports whether every level matched.
func (c Comparison) All() bool {
	return c.Matching == len(c.Levels)
}

// Compare matches pd against other level by level using NamesMatch. Two
// blank levels match each other.
func (pd PoliticalDivision) Compare(other PoliticalDivision, threshold int) Comparison {
	var c Comparison

	leading := true

	for i, v := range pd.Levels() {
		o := other.Level(Level(i))
		m := NamesMatch(v, o, threshold)
		c.Levels = append(c.Levels, LevelComparison{Level: Level(i), This: v, Other: o, Match: m})

		if leading && m {
			c.Matching++
		} else {
			leading = false
		}
	}

	return c
}

// FuzzyEqual reports whether every level of pd and other matches.
func (pd PoliticalDivision) FuzzyEqual(other PoliticalDivision, threshold int) bool {
	return pd.Compare(other, threshold).All()
}

// FirstDifferentDivision returns the coarsest level at which pd and other
// disagree, looking only as deep as the shallower of the two. With contract
// set, blank levels are removed from both sides before comparing, otherwise
// only trailing blanks are ignored.
func (pd PoliticalDivision) FirstDifferentDivision(other PoliticalDivision, contract bool, threshold int) (Level, bool) {
	a, b := pd, other
	if contract {
		a, b = a.Contract(), b.Contract()
	}

	la, lb := a.RContract(), b.RContract()

	for i := range min(len(la), len(lb)) {
		if !NamesMatch(la[i], lb[i], threshold) {
			return Level(i), true
		}
	}

	return 0, false
}

// String prints the levels up to the last non-blank one, e.g.
// `{country="Mexico" pd1="" pd2="Cabo"}`.
func (pd PoliticalDivision) String() string {
	levels := pd.RContract()
	if len(levels) == 0 {
		return "{}"
	}

	parts := make([]string, len(levels))
	for i, v := range levels {
		parts[i] = fmt.Sprintf("%s=%q", Level(i), v)
	}

	return "{" + strings.Join(parts, " ") + "}"
}
