// Copyright 2025 The GQC Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testOptions struct {
	precision    int
	threshold    int
	apiHost      string
	apiToken     string
	googleAPIKey string
	cacheEnabled bool
	backoffMax   time.Duration
	columns      map[string]int
}

func newFlagSet(o *testOptions) *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.IntVar(&o.precision, "precision", 3, "")
	fs.IntVar(&o.threshold, "fuzzy-threshold", 85, "")
	fs.StringVar(&o.apiHost, "api-host", "us1.locationiq.com", "")
	fs.StringVar(&o.apiToken, "api-token", "", "")
	fs.StringVar(&o.googleAPIKey, "google-api-key", "", "")
	fs.BoolVar(&o.cacheEnabled, "cache-enabled", true, "")
	fs.DurationVar(&o.backoffMax, "backoff-max", time.Minute, "")
	fs.StringToIntVar(&o.columns, "columns", map[string]int{"country": 0}, "")

	return fs
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestApply(t *testing.T) {
	dir := t.TempDir()
	system := writeFile(t, dir, "system.cfg", `
precision = 4

[gqc]
fuzzy-threshold = 90
cache-enabled =
backoff-max = 30s

[location-iq]
api-host = eu1.locationiq.com
api-token = from-system

[google]
api-key = maps-key

[columns]
accession-number = 0
country = 1
latitude = 2
longitude = 3

[mystery]
whatever = 1
`)
	user := writeFile(t, dir, "user.cfg", `
[location-iq]
api-token = from-user
unknown-key = ignored
`)

	var o testOptions

	fs := newFlagSet(&o)
	require.NoError(t, fs.Parse([]string{"--precision=5"}))

	read, err := Apply(fs, []string{system, filepath.Join(dir, "missing.cfg"), user})
	require.NoError(t, err)
	assert.Equal(t, []string{system, user}, read)

	assert.Equal(t, 5, o.precision, "command line wins")
	assert.Equal(t, 90, o.threshold)
	assert.False(t, o.cacheEnabled, "an empty boolean is false")
	assert.Equal(t, 30*time.Second, o.backoffMax)
	assert.Equal(t, "eu1.locationiq.com", o.apiHost)
	assert.Equal(t, "from-user", o.apiToken, "later files win")
	assert.Equal(t, "maps-key", o.googleAPIKey)

	want := map[string]int{"accession-number": 0, "country": 1, "latitude": 2, "longitude": 3}
	if diff := cmp.Diff(want, o.columns); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyNoFiles(t *testing.T) {
	var o testOptions

	read, err := Apply(newFlagSet(&o), []string{filepath.Join(t.TempDir(), "nope.cfg")})
	require.NoError(t, err)
	assert.Empty(t, read)
	assert.Equal(t, 3, o.precision)
}

func TestApplyBadValue(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.cfg", "[gqc]\nprecision = three\n")

	var o testOptions

	_, err := Apply(newFlagSet(&o), []string{path})
	require.ErrorContains(t, err, "gqc.precision")
}

func TestDefaultPaths(t *testing.T) {
	paths := DefaultPaths()
	require.NotEmpty(t, paths)
	assert.Equal(t, "/usr/local/etc/gqc.cfg", paths[0])
}
