// Copyright 2025 The GQC Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/spf13/cobra"

	"github.com/selbybotany/gqc/report"
)

var summaryOptions = report.DefaultOptions()

var summaryCmd = &cobra.Command{
	Use:   "summary <result.csv>...",
	Short: "Count the verdicts of verification result files",
	Long: `
Prints, for each result file written by "gqc verify", the number of rows of
each action and reason. With --hotspots N it also lists the N H3 cells
holding the most rows in error, located by their input coordinate.

$ gqc summary --hotspots 5 results/*.csv
`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		columns, err := columnMapping()
		if err != nil {
			return err
		}

		summaryOptions.Columns = columns

		db, err := sql.Open("duckdb", "")
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		r, err := report.NewReporter(db, summaryOptions)
		if err != nil {
			return err
		}

		for _, path := range args {
			s, err := r.Summarize(context.Background(), path)
			if err != nil {
				return err
			}

			if err := s.Print(os.Stdout); err != nil {
				return err
			}
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd)

	summaryCmd.Flags().IntVar(
		&summaryOptions.Hotspots,
		"hotspots",
		0,
		"Number of H3 cells with the most errors to list",
	)
	summaryCmd.Flags().IntVar(
		&summaryOptions.Resolution,
		"h3-resolution",
		summaryOptions.Resolution,
		"H3 resolution of the hotspot cells (0-15)",
	)
	summaryCmd.Flags().StringToIntVar(
		&verifyOptions.columns,
		"columns",
		nil,
		"Column index of each input field, used to find the input coordinate",
	)
}
