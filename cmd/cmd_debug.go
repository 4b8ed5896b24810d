// Copyright 2025 The GQC Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/selbybotany/gqc/cache"
	"github.com/selbybotany/gqc/spatial"
	"github.com/selbybotany/gqc/utils/textutils"
)

// isTerminal reports whether f is a character device. When f cannot be
// stat'ed we say that it isn't.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}

	return (info.Mode() & os.ModeCharDevice) != 0
}

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Dev tools",
}

var debugLookupCmd = &cobra.Command{
	Use:   "lookup <latitude> <longitude>",
	Short: "Reverse geocode one coordinate and print the location found",
	Long: `
Canonicalizes the coordinate the way verify does, looks it up (cache first)
and prints the location as stored in the cache.

$ gqc debug lookup -- 25.7617 -80.1918
`,
	Args: cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		c, err := spatial.ParseCoordinate(args[0], args[1])
		if err != nil {
			return err
		}

		ctx, stop := signalContext()
		defer stop()

		engine, _, err := engineOpts.newEngine(ctx)
		if err != nil {
			return err
		}

		c = engine.Options().Canonicalizer.Coordinate(c)

		loc, err := engine.ReverseGeolocate(ctx, c, engine.Options().CacheEnabled, true)
		if err != nil {
			return err
		}

		if loc == nil {
			return fmt.Errorf("nothing found at %v", c)
		}

		s, err := json.MarshalIndent(loc, "", "  ")
		if err != nil {
			return err
		}

		fmt.Printf("%s\n", s)

		return nil
	},
}

var debugCompareOptions struct {
	threshold int
}

var debugCompareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare political divisions level by level",
	Long: `
Reads one pair of political divisions per line, separated by a tab. The levels
of each division are separated by commas, starting at the country. Prints the
token set ratio of every level and whether it matches.

$ printf 'United States,Florida\tEstados Unidos,FL\n' | gqc debug compare
`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		input := os.Stdin
		if isTerminal(input) {
			fmt.Fprintln(os.Stderr, "Enter pairs of divisions to compare, tab separated, one per line…")
		}

		scanner := bufio.NewScanner(input)
		for scanner.Scan() {
			line := scanner.Text()

			left, right, ok := strings.Cut(line, "\t")
			if !ok {
				fmt.Printf("%s\t%q\n", line, "missing tab between divisions")

				continue
			}

			a := spatial.NewPoliticalDivision(splitLevels(left)...)
			b := spatial.NewPoliticalDivision(splitLevels(right)...)
			c := a.Compare(b, debugCompareOptions.threshold)

			fmt.Printf("%v\t%v\tmatching=%d\n", a, b, c.Matching)

			for _, l := range c.Levels {
				if l.This == "" && l.Other == "" {
					continue
				}

				fmt.Printf("  %-8s %3d %-5t %q %q\n",
					l.Level, spatial.TokenSetRatio(l.This, l.Other), l.Match, l.This, l.Other)
			}
		}

		if err := scanner.Err(); err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		return nil
	},
}

func splitLevels(s string) []string {
	return lo.Map(strings.Split(s, ","), func(v string, _ int) string {
		return strings.TrimSpace(v)
	})
}

var debugCacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Print statistics about the reverse lookup cache",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		path := engineOpts.cacheFile
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("cache file %s does not exist", path)
		}

		entries := cache.Load(path).Entries()

		var oldest, newest time.Time

		broken := 0
		legacy := 0

		for _, e := range entries {
			if _, err := spatial.ParseLocation(e.Value); err != nil {
				broken++
			}

			if e.CreationTime.IsZero() {
				legacy++

				continue
			}

			if oldest.IsZero() || e.CreationTime.Before(oldest) {
				oldest = e.CreationTime
			}

			if e.CreationTime.After(newest) {
				newest = e.CreationTime
			}
		}

		fmt.Printf("file:        %s\n", path)
		fmt.Printf("entries:     %s\n", textutils.FormatInt(int64(len(entries))))
		fmt.Printf("undecodable: %d\n", broken)
		fmt.Printf("undated:     %d\n", legacy)

		if !oldest.IsZero() {
			fmt.Printf("oldest:      %s\n", oldest.Format(time.RFC3339))
			fmt.Printf("newest:      %s\n", newest.Format(time.RFC3339))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(debugCmd)
	debugCmd.AddCommand(debugLookupCmd)
	debugCmd.AddCommand(debugCompareCmd)
	debugCmd.AddCommand(debugCacheCmd)

	addEngineFlags(debugLookupCmd)

	debugCompareCmd.Flags().IntVar(
		&debugCompareOptions.threshold,
		"fuzzy-threshold",
		spatial.DefaultFuzzyThreshold,
		"Token set ratio (0-100) at which two place names match",
	)
	debugCacheCmd.Flags().StringVarP(
		&engineOpts.cacheFile,
		"cache-file",
		"C",
		defaultCacheFile(),
		"Reverse lookup cache file",
	)
}
