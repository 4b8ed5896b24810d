// Copyright 2025 The GQC Authors
// SPDX-License-Identifier: Apache-2.0

package curation

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/selbybotany/gqc/spatial"
)

// Input field names, as used in the column mapping.
const (
	FieldAccessionNumber = "accession-number"
	FieldLatitude        = "latitude"
	FieldLongitude       = "longitude"
)

// Unmapped marks a field that has no input column.
const Unmapped = -1

// Row is one input record, trimmed and assigned to fields.
type Row struct {
	AccessionNumber string
	Division        spatial.PoliticalDivision
	Latitude        string
	Longitude       string

	// Raw is the mapped fields in column order, used to spot blank lines.
	Raw []string
	// FirstColumn is the first column of the input record, mapped or not,
	// used to spot comment lines.
	FirstColumn string
}

// ColumnMapping assigns input column indexes to fields.
type ColumnMapping struct {
	AccessionNumber int
	Latitude        int
	Longitude       int
	Divisions       [spatial.NumLevels]int
}

// DefaultColumnMapping is country, pd1, accession number, latitude, longitude.
func DefaultColumnMapping() ColumnMapping {
	m := ColumnMapping{AccessionNumber: 2, Latitude: 3, Longitude: 4}
	for i := range m.Divisions {
		m.Divisions[i] = Unmapped
	}

	m.Divisions[spatial.Country] = 0
	m.Divisions[spatial.PD1] = 1

	return m
}

// FieldNames lists every field a column can be assigned to.
func FieldNames() []string {
	names := []string{FieldAccessionNumber, FieldLatitude, FieldLongitude}
	for i := range spatial.NumLevels {
		names = append(names, spatial.Level(i).String())
	}

	return names
}

// WithColumns returns m with the given fields reassigned. A negative index
// unmaps a division.
func (m ColumnMapping) WithColumns(columns map[string]int) (ColumnMapping, error) {
	for _, name := range slices.Sorted(maps.Keys(columns)) {
		idx := columns[name]
		if idx < 0 {
			idx = Unmapped
		}

		switch name {
		case FieldAccessionNumber:
			m.AccessionNumber = idx
		case FieldLatitude:
			m.Latitude = idx
		case FieldLongitude:
			m.Longitude = idx
		default:
			level, err := spatial.ParseLevel(name)
			if err != nil {
				return m, fmt.Errorf("column mapping: unknown field %q (want one of %s)", name, strings.Join(FieldNames(), ", "))
			}

			m.Divisions[level] = idx
		}
	}

	return m, m.Validate()
}

func (m ColumnMapping) fields() map[string]int {
	out := map[string]int{
		FieldAccessionNumber: m.AccessionNumber,
		FieldLatitude:        m.Latitude,
		FieldLongitude:       m.Longitude,
	}

	for i, idx := range m.Divisions {
		out[spatial.Level(i).String()] = idx
	}

	return out
}

// Validate checks that the required fields are mapped, that the country is
// mapped and that no column feeds two fields.
func (m ColumnMapping) Validate() error {
	var errs []error

	for _, name := range []string{FieldAccessionNumber, FieldLatitude, FieldLongitude} {
		if m.fields()[name] == Unmapped {
			errs = append(errs, fmt.Errorf("column mapping: %s has no column", name))
		}
	}

	if m.Divisions[spatial.Country] == Unmapped {
		errs = append(errs, errors.New("column mapping: country has no column"))
	}

	seen := map[int]string{}

	for _, name := range FieldNames() {
		idx := m.fields()[name]
		if idx == Unmapped {
			continue
		}

		if other, ok := seen[idx]; ok {
			errs = append(errs, fmt.Errorf("column mapping: column %d is assigned to both %s and %s", idx, other, name))
		}

		seen[idx] = name
	}

	return errors.Join(errs...)
}

// String prints the mapping as name=index pairs in column order.
func (m ColumnMapping) String() string {
	fields := m.fields()
	names := slices.DeleteFunc(FieldNames(), func(n string) bool { return fields[n] == Unmapped })
	slices.SortStableFunc(names, func(a, b string) int { return fields[a] - fields[b] })

	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = fmt.Sprintf("%s=%d", n, fields[n])
	}

	return strings.Join(parts, ",")
}

// Row extracts the mapped fields of record. Columns missing from a short
// record read as empty.
func (m ColumnMapping) Row(record []string) Row {
	get := func(idx int) string {
		if idx < 0 || idx >= len(record) {
			return ""
		}

		return strings.TrimSpace(record[idx])
	}

	r := Row{
		FirstColumn:     get(0),
		AccessionNumber: get(m.AccessionNumber),
		Latitude:        get(m.Latitude),
		Longitude:       get(m.Longitude),
	}

	for i, idx := range m.Divisions {
		r.Division = r.Division.With(spatial.Level(i), get(idx))
	}

	fields := m.fields()
	cols := slices.DeleteFunc(slices.Collect(maps.Values(fields)), func(i int) bool { return i == Unmapped })
	slices.Sort(cols)

	for _, idx := range cols {
		r.Raw = append(r.Raw, get(idx))
	}

	return r
}

func (r Row) joined() string {
	if r.Raw != nil {
		return strings.Join(r.Raw, "")
	}

	return r.AccessionNumber + strings.Join(r.Division.Levels(), "") + r.Latitude + r.Longitude
}

// IsBlank reports whether every field is empty.
func (r Row) IsBlank() bool {
	return strings.TrimSpace(r.joined()) == ""
}

// IsComment reports whether the row starts with a '#', ignoring leading
// blanks. Rows read from a record look at its first column only.
func (r Row) IsComment() bool {
	if r.Raw != nil {
		return strings.HasPrefix(r.FirstColumn, "#")
	}

	return strings.HasPrefix(strings.TrimSpace(r.joined()), "#")
}
