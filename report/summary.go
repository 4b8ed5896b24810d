// Copyright 2025 The GQC Authors
// SPDX-License-Identifier: Apache-2.0

// Package report summarizes verification result files.
package report

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"slices"
	"strings"

	"github.com/uber/h3-go/v4"

	"github.com/selbybotany/gqc/curation"
	"github.com/selbybotany/gqc/spatial"
)

// ErrNoVerdictColumns is returned for files without the verdict header.
var ErrNoVerdictColumns = errors.New("no action column in header; was the file written with --first-line-is-header?")

// Options control the summary.
type Options struct {
	// Columns locates the input coordinate used for hotspots.
	Columns curation.ColumnMapping
	// Hotspots is the number of H3 cells to list. Zero disables them.
	Hotspots int
	// Resolution is the H3 resolution of the hotspot cells.
	Resolution int
}

// DefaultOptions returns the settings used by the command line.
func DefaultOptions() Options {
	return Options{Columns: curation.DefaultColumnMapping(), Resolution: 3}
}

// StatusCount is the number of rows with one action and reason.
type StatusCount struct {
	Action string
	Reason string
	Count  int
}

// Status is "action.reason".
func (s StatusCount) Status() string {
	return s.Action + "." + s.Reason
}

// Hotspot is an H3 cell holding rows in error.
type Hotspot struct {
	Cell  h3.Cell
	Count int
}

// Summary describes one result file.
type Summary struct {
	Path     string
	Rows     int
	Statuses []StatusCount
	Hotspots []Hotspot
}

// Reporter runs the summary queries on a DuckDB connection.
type Reporter struct {
	db   *sql.DB
	opts Options
}

// NewReporter creates a Reporter. db must be a DuckDB handle.
func NewReporter(db *sql.DB, opts Options) (*Reporter, error) {
	if opts.Hotspots > 0 && (opts.Resolution < 0 || opts.Resolution > h3.MaxResolution) {
		return nil, fmt.Errorf("h3 resolution %d is not between 0 and %d", opts.Resolution, h3.MaxResolution)
	}

	return &Reporter{db: db, opts: opts}, nil
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func (r *Reporter) columns(ctx context.Context, source string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT * FROM "+source+" LIMIT 0")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return rows.Columns()
}

// Summarize counts the verdicts of the result file at path. Legacy
// "reason~detail" values count as "reason".
func (r *Reporter) Summarize(ctx context.Context, path string) (*Summary, error) {
	source := fmt.Sprintf("read_csv(%s, header=true, all_varchar=true)", quoteLiteral(path))

	names, err := r.columns(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	actionIdx := slices.Index(names, curation.OutputColumns[0])
	if actionIdx < 0 || actionIdx+1 >= len(names) {
		return nil, fmt.Errorf("%s: %w", path, ErrNoVerdictColumns)
	}

	action, reason := quoteIdent(names[actionIdx]), quoteIdent(names[actionIdx+1])

	query := fmt.Sprintf(`
		SELECT %[1]s, regexp_replace(coalesce(%[2]s, ''), '~.*$', '') AS reason, COUNT(*)
		FROM %[3]s
		WHERE %[1]s IS NOT NULL AND %[1]s <> ''
		GROUP BY 1, 2
		ORDER BY 1 DESC, 2 ASC`, action, reason, source)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("summarizing %s: %w", path, err)
	}
	defer rows.Close()

	s := &Summary{Path: path}

	for rows.Next() {
		var c StatusCount
		if err := rows.Scan(&c.Action, &c.Reason, &c.Count); err != nil {
			return nil, fmt.Errorf("summarizing %s: %w", path, err)
		}

		s.Statuses = append(s.Statuses, c)
		s.Rows += c.Count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("summarizing %s: %w", path, err)
	}

	if r.opts.Hotspots > 0 {
		s.Hotspots, err = r.hotspots(ctx, source, names, action)
		if err != nil {
			return nil, fmt.Errorf("hotspots for %s: %w", path, err)
		}
	}

	return s, nil
}

// hotspots groups the rows in error by the H3 cell of their input
// coordinate. Rows whose coordinate does not parse are skipped.
func (r *Reporter) hotspots(ctx context.Context, source string, names []string, action string) ([]Hotspot, error) {
	m := r.opts.Columns
	if m.Latitude < 0 || m.Latitude >= len(names) || m.Longitude < 0 || m.Longitude >= len(names) {
		return nil, fmt.Errorf("coordinate columns %d and %d are outside the %d columns of the file", m.Latitude, m.Longitude, len(names))
	}

	query := fmt.Sprintf(`SELECT %s, %s FROM %s WHERE %s = %s`,
		quoteIdent(names[m.Latitude]), quoteIdent(names[m.Longitude]), source, action, quoteLiteral(string(curation.ActionError)))

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[h3.Cell]int{}

	for rows.Next() {
		var lat, lon sql.NullString
		if err := rows.Scan(&lat, &lon); err != nil {
			return nil, err
		}

		c, err := spatial.ParseCoordinate(lat.String, lon.String)
		if err != nil {
			continue
		}

		cell, err := h3.LatLngToCell(h3.NewLatLng(c.Latitude, normalizeLongitude(c.Longitude)), r.opts.Resolution)
		if err != nil {
			log.Printf("No h3 cell for %v: %v\n", c, err)

			continue
		}

		counts[cell]++
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	hotspots := make([]Hotspot, 0, len(counts))
	for cell, n := range counts {
		hotspots = append(hotspots, Hotspot{Cell: cell, Count: n})
	}

	slices.SortFunc(hotspots, func(a, b Hotspot) int {
		return cmp.Or(cmp.Compare(b.Count, a.Count), cmp.Compare(a.Cell.String(), b.Cell.String()))
	})

	return hotspots[:min(len(hotspots), r.opts.Hotspots)], nil
}

// normalizeLongitude maps the accepted [-360, 360] range onto [-180, 180].
func normalizeLongitude(lon float64) float64 {
	for lon > 180 {
		lon -= 360
	}

	for lon < -180 {
		lon += 360
	}

	return lon
}

// Print writes s in a human readable form.
func (s *Summary) Print(w io.Writer) error {
	width := len("total")
	for _, c := range s.Statuses {
		width = max(width, len(c.Status()))
	}

	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", s.Path)

	for _, c := range s.Statuses {
		fmt.Fprintf(&b, "  %-*s %8d\n", width, c.Status(), c.Count)
	}

	fmt.Fprintf(&b, "  %-*s %8d\n", width, "total", s.Rows)

	if len(s.Hotspots) > 0 {
		fmt.Fprintf(&b, "  error hotspots:\n")

		for _, h := range s.Hotspots {
			fmt.Fprintf(&b, "    %s (res %d) %8d\n", h.Cell, h.Cell.Resolution(), h.Count)
		}
	}

	_, err := io.WriteString(w, b.String())

	return err
}
