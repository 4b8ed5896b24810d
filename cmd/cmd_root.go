// Copyright 2025 The GQC Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/selbybotany/gqc/config"
)

type logWriter struct {
	writer io.Writer
}

func (w *logWriter) Write(bytes []byte) (int, error) {
	return fmt.Fprintf(w.writer, "%s %s", time.Now().Format("2006-01-02 15:04:05"), string(bytes))
}

func init() {
	log.SetFlags(0)
	log.SetOutput(&logWriter{writer: os.Stderr})
}

var rootOptions struct {
	configFile string
	logFile    string
}

var rootCmd = &cobra.Command{
	Use:   "gqc",
	Short: "geolocation quality control for collection records",
	Long: `
gqc checks that the latitude and longitude of each collection record fall
inside the political division (country, state, ...) the record names. It
reverse geocodes every coordinate, explains the disagreements it can, such as
a latitude or longitude with the wrong sign, and writes the records back with
a verdict appended.

Settings are read from /usr/local/etc/gqc.cfg, gqc.cfg next to the
executable, ~/.gqc/gqc.cfg, ~/.gqc/config and finally --config. Flags given on
the command line win.
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		paths := config.DefaultPaths()

		if rootOptions.configFile != "" {
			if _, err := os.Stat(rootOptions.configFile); err != nil {
				return fmt.Errorf("configuration file: %w", err)
			}

			paths = append(paths, rootOptions.configFile)
		}

		read, err := config.Apply(cmd.Flags(), paths)
		if err != nil {
			return err
		}

		if err := setupLog(rootOptions.logFile); err != nil {
			return err
		}

		for _, p := range read {
			log.Printf("Loaded configuration from %s\n", p)
		}

		return nil
	},
}

// setupLog sends the log to path, appending. An empty path keeps stderr.
func setupLog(path string) error {
	if path == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("log directory: %w", err)
	}

	f, err := os.OpenFile(filepath.Clean(path), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("log file: %w", err)
	}

	log.SetOutput(&logWriter{writer: f})

	return nil
}

var Version = "dev"

func Execute(version string) {
	Version = version

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&rootOptions.configFile,
		"config",
		"",
		"Configuration file read after the default ones",
	)
	rootCmd.PersistentFlags().StringVar(
		&rootOptions.logFile,
		"log-file",
		"",
		"Append the log to this file instead of stderr",
	)
}
