// Copyright 2025 The GQC Authors
// SPDX-License-Identifier: Apache-2.0

package curation

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/net/html/charset"

	"github.com/selbybotany/gqc/utils/textutils"
)

// BatchOptions control how a CSV file is read.
type BatchOptions struct {
	Columns           ColumnMapping
	FirstLineIsHeader bool
	// InputEncoding is a WHATWG encoding label such as "windows-1252". Empty
	// means UTF-8.
	InputEncoding string
}

// RunMetrics tracks statistics about a batch run.
type RunMetrics struct {
	Rows     int
	Actions  map[Action]int
	Statuses map[string]int
}

// Merge combines two RunMetrics.
func (m *RunMetrics) Merge(o *RunMetrics) *RunMetrics {
	m.Rows += o.Rows

	for k, v := range o.Actions {
		m.count(k, "", v)
	}

	for k, v := range o.Statuses {
		m.count("", k, v)
	}

	return m
}

func (m *RunMetrics) count(action Action, status string, n int) {
	if m.Actions == nil {
		m.Actions = map[Action]int{}
		m.Statuses = map[string]int{}
	}

	if action != "" {
		m.Actions[action] += n
	}

	if status != "" {
		m.Statuses[status] += n
	}
}

func (m *RunMetrics) add(v Verdict) {
	m.Rows++
	m.count(v.Action, v.Status(), 1)
}

// String summarizes the run, e.g. "3 rows: 2 pass, 1 error".
func (m *RunMetrics) String() string {
	var parts []string

	for _, a := range []Action{ActionPass, ActionError, ActionIgnore, ActionInternalError} {
		if n := m.Actions[a]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, a))
		}
	}

	if len(parts) == 0 {
		return fmt.Sprintf("%d rows", m.Rows)
	}

	return fmt.Sprintf("%d rows: %s", m.Rows, strings.Join(parts, ", "))
}

// Runner verifies every row of a CSV file and writes the input rows back
// with the verdict columns appended. Output row i always corresponds to
// input row i.
type Runner struct {
	engine  *Engine
	opts    BatchOptions
	Metrics RunMetrics
}

// NewRunner creates a Runner.
func NewRunner(engine *Engine, opts BatchOptions) (*Runner, error) {
	if err := opts.Columns.Validate(); err != nil {
		return nil, err
	}

	return &Runner{engine: engine, opts: opts}, nil
}

// Run processes in until EOF or until ctx is cancelled. Cancellation is
// checked between rows; the row being verified is allowed to finish.
func (r *Runner) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	if r.opts.InputEncoding != "" {
		decoded, err := charset.NewReaderLabel(r.opts.InputEncoding, in)
		if err != nil {
			return fmt.Errorf("input encoding %q: %w", r.opts.InputEncoding, err)
		}

		in = decoded
	}

	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	w := csv.NewWriter(out)
	defer w.Flush()

	var bar *progressbar.ProgressBar
	if isatty.IsTerminal(os.Stderr.Fd()) {
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("Verifying"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			log.Printf("Stopping after %d rows: %v\n", r.Metrics.Rows, err)

			return err
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		var v Verdict

		switch {
		case err != nil:
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return fmt.Errorf("reading row %d: %w", n, err)
			}

			log.Printf("Row %d: %v\n", n, err)

			v = Verdict{Action: ActionIgnore, Reason: ReasonUnparseableLine, Note: parseErr.Err.Error()}
		case n == 1 && r.opts.FirstLineIsHeader:
			if err := w.Write(append(slices.Clone(record), OutputColumns...)); err != nil {
				return fmt.Errorf("writing header: %w", err)
			}

			continue
		default:
			v = r.engine.Verify(context.WithoutCancel(ctx), r.opts.Columns.Row(record))
		}

		if v.Action == ActionInternalError {
			log.Printf("Row %d: %s %s\n", n, v.Status(), v.Note)
		}

		r.Metrics.add(v)

		if err := w.Write(append(slices.Clone(record), v.Record()...)); err != nil {
			return fmt.Errorf("writing row %d: %w", n, err)
		}

		w.Flush()

		if err := w.Error(); err != nil {
			return fmt.Errorf("writing row %d: %w", n, err)
		}

		if bar == nil {
			if r.Metrics.Rows%1000 == 0 {
				log.Printf("Verified %s rows\n", textutils.FormatInt(int64(r.Metrics.Rows)))
			}
		} else {
			_ = bar.Add(1)
		}
	}

	if bar != nil {
		_ = bar.Finish()
	}

	log.Printf("Verification complete - %s\n", r.Metrics.String())

	for _, status := range slices.Sorted(maps.Keys(r.Metrics.Statuses)) {
		log.Printf("  %-60s %d\n", status, r.Metrics.Statuses[status])
	}

	return nil
}
