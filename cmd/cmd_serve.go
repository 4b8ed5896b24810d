// Copyright 2025 The GQC Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/selbybotany/gqc/curation"
)

var serveOptions struct {
	addr string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve record verification over HTTP",
	Long: `
Starts an HTTP server with these endpoints:

  POST /api/verify   verifies one record given as JSON, e.g.
                     {"accession-number": 1, "country": "United States",
                      "pd1": "Florida", "latitude": 25.7617, "longitude": -80.1918}
  GET  /api/reverse  reverse geocodes ?latitude=&longitude=
  GET  /api/health   reports the server state

Requests are served one at a time and share the lookup cache.
`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		engine, _, err := engineOpts.newEngine(context.Background())
		if err != nil {
			return err
		}

		return curation.NewServer(engine).Run(serveOptions.addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addEngineFlags(serveCmd)

	serveCmd.Flags().StringVar(
		&serveOptions.addr,
		"addr",
		"localhost:8080",
		"Address to listen on",
	)
}
