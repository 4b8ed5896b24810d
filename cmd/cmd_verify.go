// Copyright 2025 The GQC Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/selbybotany/gqc/cache"
	"github.com/selbybotany/gqc/curation"
	"github.com/selbybotany/gqc/geocode"
	"github.com/selbybotany/gqc/spatial"
)

// engineOptions are the settings shared by every command that looks
// coordinates up.
type engineOptions struct {
	latitudePrecision  int
	longitudePrecision int
	fuzzyThreshold     int
	allowableError     float64

	cacheEnabled bool
	cacheOnly    bool
	cacheFile    string

	provider      string
	apiHost       string
	apiToken      string
	googleAPIKey  string
	googleProject string

	backoff              geocode.BackoffOptions
	maxRequestsPerSecond float64
	timeout              time.Duration

	enableHTTPTrace     bool
	enableHTTPBodyTrace bool

	skipProbe bool
}

var engineOpts = &engineOptions{backoff: geocode.DefaultBackoffOptions()}

func defaultCacheFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "gqc.reverse-lookup.cache"
	}

	return filepath.Join(home, ".gqc", "gqc.reverse-lookup.cache")
}

func addEngineFlags(cmd *cobra.Command) {
	o := engineOpts
	defaults := curation.DefaultOptions()
	flags := cmd.Flags()

	flags.IntVar(&o.latitudePrecision, "latitude-precision", defaults.Canonicalizer.LatitudePrecision,
		"Fractional digits kept in latitudes; 3 is about 100 m")
	flags.IntVar(&o.longitudePrecision, "longitude-precision", defaults.Canonicalizer.LongitudePrecision,
		"Fractional digits kept in longitudes; 3 is about 100 m at the equator")
	flags.IntVar(&o.fuzzyThreshold, "fuzzy-threshold", defaults.FuzzyThreshold,
		"Token set ratio (0-100) at which two place names match")
	flags.Float64Var(&o.allowableError, "allowable-coordinate-error", defaults.AllowableError,
		"Distance in meters under which two coordinates are the same place")

	flags.BoolVar(&o.cacheEnabled, "cache-enabled", true, "Read and write the reverse lookup cache")
	flags.BoolVar(&o.cacheOnly, "cache-only", false, "Only read from the cache; never call the geocoding service")
	flags.StringVarP(&o.cacheFile, "cache-file", "C", defaultCacheFile(), "Reverse lookup cache file")

	flags.StringVar(&o.provider, "provider", geocode.ProviderLocationIQ, "Geocoding service: locationiq or google")
	flags.StringVar(&o.apiHost, "api-host", geocode.DefaultLocationIQHost, "LocationIQ API host")
	flags.StringVar(&o.apiToken, "api-token", "", "LocationIQ API token")
	flags.StringVar(&o.googleAPIKey, "google-api-key", "",
		"Google Maps API key; defaults to $GOOGLE_MAPS_API_KEY, then to Application Default Credentials")
	flags.StringVar(&o.googleProject, "google-project", "", "Google Cloud project holding the Maps API key")

	flags.DurationVar(&o.backoff.Min, "backoff-min", o.backoff.Min, "Smallest delay between requests")
	flags.DurationVar(&o.backoff.Max, "backoff-max", o.backoff.Max, "Largest delay between requests")
	flags.Float64Var(&o.backoff.Growth, "backoff-growth-factor", o.backoff.Growth,
		"Delay multiplier after each throttled attempt")
	flags.Float64Var(&o.backoff.Learning, "backoff-learning-factor", o.backoff.Learning,
		"Share of the delay added for good after throttling")
	flags.Float64Var(&o.backoff.Decay, "backoff-decay-factor", o.backoff.Decay,
		"Share of the delay dropped after a clean request")
	flags.Float64Var(&o.maxRequestsPerSecond, "max-requests-per-second", 2,
		"Hard ceiling on the request rate; 0 disables it")
	flags.DurationVar(&o.timeout, "timeout", time.Minute, "Timeout of a single request")

	flags.BoolVar(&o.enableHTTPTrace, "trace-http", false, "Display HTTP requests-responses")
	flags.BoolVar(&o.enableHTTPBodyTrace, "trace-http-body", false, "Display HTTP requests-responses bodies")
	flags.BoolVar(&o.skipProbe, "skip-probe", false, "Do not check that the geocoding service answers before starting")
}

func (o *engineOptions) curationOptions() curation.Options {
	return curation.Options{
		Canonicalizer: spatial.Canonicalizer{
			LatitudePrecision:  o.latitudePrecision,
			LongitudePrecision: o.longitudePrecision,
		},
		FuzzyThreshold: o.fuzzyThreshold,
		AllowableError: o.allowableError,
		CacheEnabled:   o.cacheEnabled || o.cacheOnly,
		CacheOnly:      o.cacheOnly,
	}
}

func (o *engineOptions) newGeocoder(ctx context.Context) (geocode.Geocoder, error) {
	provider, err := geocode.ParseProvider(o.provider)
	if err != nil {
		return nil, err
	}

	if err := o.backoff.Validate(); err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if o.maxRequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(o.maxRequestsPerSecond), 1)
	}

	client := geocode.NewHTTPClient(geocode.HTTPOptions{
		UserAgent:           fmt.Sprintf("gqc/%s", Version),
		EnableHTTPTrace:     o.enableHTTPTrace,
		EnableHTTPBodyTrace: o.enableHTTPBodyTrace,
		Timeout:             o.timeout,
	})
	backoff := geocode.NewBackoff(o.backoff, limiter)

	switch provider {
	case geocode.ProviderGoogle:
		key := o.googleAPIKey
		if key == "" {
			key = os.Getenv("GOOGLE_MAPS_API_KEY")
		}

		if key == "" {
			log.Println("No Google Maps API key given, looking it up through Application Default Credentials")

			key, err = geocode.GoogleAPIKeyFromADC(ctx, o.googleProject, geocode.DefaultGoogleKeyName)
			if err != nil {
				return nil, fmt.Errorf("google maps api key: %w", err)
			}
		}

		return geocode.NewGoogleMaps(key, "", client, backoff)
	default:
		if o.apiToken == "" {
			return nil, errors.New("no LocationIQ api token: set --api-token, or api-token in the [location-iq] section of the configuration")
		}

		return geocode.NewLocationIQ(geocode.LocationIQOptions{Host: o.apiHost, Token: o.apiToken}, client, backoff)
	}
}

// newEngine builds the engine and checks everything that would otherwise
// fail on every row: credentials, the cache file and the service itself.
func (o *engineOptions) newEngine(ctx context.Context) (*curation.Engine, *cache.FileStore, error) {
	opts := o.curationOptions()

	var (
		store *cache.FileStore
		c     curation.Cache
	)

	if opts.CacheEnabled {
		if err := cache.CheckWritable(o.cacheFile); err != nil {
			return nil, nil, err
		}

		store = cache.Load(o.cacheFile)
		c = store

		log.Printf("Loaded %d cached locations from %s\n", store.Len(), store.Path())
	}

	var geocoder geocode.Geocoder

	if !opts.CacheOnly {
		g, err := o.newGeocoder(ctx)
		if err != nil {
			return nil, nil, err
		}

		geocoder = g
	}

	engine := curation.NewEngine(opts, c, geocoder)

	if geocoder != nil && !o.skipProbe {
		if err := engine.Probe(ctx); err != nil {
			log.Printf("Unable to reach the geocoding service, running in --cache-only mode: %v\n", err)
			engine.SetCacheOnly(true)
		}
	}

	return engine, store, nil
}

var verifyOptions struct {
	columns           map[string]int
	firstLineIsHeader bool
	inputEncoding     string
	input             string
	output            string
}

func columnMapping() (curation.ColumnMapping, error) {
	return curation.DefaultColumnMapping().WithColumns(verifyOptions.columns)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the coordinates of a CSV file of collection records",
	Long: `
Reads collection records from a CSV file, one per row, and writes each row
back with these columns appended:

  action, reason, location-country, location-pd1 ... location-pd5,
  location-latitude, location-longitude, location-error-distance,
  location-bounding-box, location-bounding-box-error-distances, note

action is one of pass, error, ignore or internal-error. Distances are in
kilometers. By default the input columns are country, pd1, accession
number, latitude and longitude; use --columns to change that:

$ gqc verify -i records.csv --columns accession-number=0,country=3,pd1=4,latitude=7,longitude=8
`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		columns, err := columnMapping()
		if err != nil {
			return err
		}

		ctx, stop := signalContext()
		defer stop()

		engine, _, err := engineOpts.newEngine(ctx)
		if err != nil {
			return err
		}

		var in io.Reader = os.Stdin

		if verifyOptions.input != "" && verifyOptions.input != "-" {
			f, err := os.Open(verifyOptions.input)
			if err != nil {
				return fmt.Errorf("input: %w", err)
			}
			defer f.Close()

			in = f
		}

		var out io.Writer = os.Stdout

		if verifyOptions.output != "" && verifyOptions.output != "-" {
			f, err := os.Create(verifyOptions.output)
			if err != nil {
				return fmt.Errorf("output: %w", err)
			}
			defer f.Close()

			out = f
		}

		runner, err := curation.NewRunner(engine, curation.BatchOptions{
			Columns:           columns,
			FirstLineIsHeader: verifyOptions.firstLineIsHeader,
			InputEncoding:     verifyOptions.inputEncoding,
		})
		if err != nil {
			return err
		}

		log.Printf("Verifying with columns %s\n", columns)

		err = runner.Run(ctx, in, out)

		m := engine.Metrics
		log.Printf("Lookups - %d service calls, %d cache hits, %d cache write failures\n",
			m.Lookups, m.CacheHits, m.CacheWriteErrors)

		if errors.Is(err, context.Canceled) {
			log.Println("Interrupted")

			return nil
		}

		return err
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	addEngineFlags(verifyCmd)

	verifyCmd.Flags().StringToIntVar(
		&verifyOptions.columns,
		"columns",
		nil,
		"Column index of each field, e.g. accession-number=0,country=1,pd1=2,latitude=3,longitude=4",
	)
	verifyCmd.Flags().BoolVarP(
		&verifyOptions.firstLineIsHeader,
		"first-line-is-header",
		"f",
		true,
		"Treat the first row as a header and append the verdict column names to it",
	)
	verifyCmd.Flags().StringVar(
		&verifyOptions.inputEncoding,
		"input-encoding",
		"",
		"Encoding of the input file, e.g. windows-1252; defaults to UTF-8",
	)
	verifyCmd.Flags().StringVarP(
		&verifyOptions.input,
		"input",
		"i",
		"",
		"Input CSV file; defaults to stdin",
	)
	verifyCmd.Flags().StringVarP(
		&verifyOptions.output,
		"output",
		"o",
		"",
		"Output CSV file; defaults to stdout",
	)
}
