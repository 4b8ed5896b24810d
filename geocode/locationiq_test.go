// Copyright 2025 The GQC Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selbybotany/gqc/spatial"
)

const miamiResponse = `{
	"place_id": "1",
	"lat": "25.7617",
	"lon": "-80.1918",
	"display_name": "Miami, Miami-Dade County, Florida, United States",
	"boundingbox": ["25.70", "25.85", "-80.14", "-80.32"],
	"distance": 12.5,
	"address": {
		"city": "Miami",
		"county": "Miami-Dade County",
		"state": "Florida",
		"country": "United States",
		"country_code": "us"
	}
}`

// fastBackoff never sleeps.
func fastBackoff() *Backoff {
	b := NewBackoff(DefaultBackoffOptions(), nil)
	b.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }

	return b
}

func newTestLocationIQ(t *testing.T, handler http.HandlerFunc) *LocationIQ {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	g, err := NewLocationIQ(LocationIQOptions{Token: "tok3n", Endpoint: srv.URL + "/v1/reverse.php"}, srv.Client(), fastBackoff())
	require.NoError(t, err)

	return g
}

func TestLocationIQReverse(t *testing.T) {
	g := newTestLocationIQ(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/v1/reverse.php", r.URL.Path)
		assert.Equal(t, "tok3n", q.Get("key"))
		assert.Equal(t, "25.762", q.Get("lat"))
		assert.Equal(t, "-80.192", q.Get("lon"))
		assert.Equal(t, "json", q.Get("format"))
		assert.Equal(t, "1", q.Get("addressdetails"))
		assert.Equal(t, "1", q.Get("showdistance"))

		_, _ = w.Write([]byte(miamiResponse))
	})

	loc, err := g.Reverse(context.Background(), spatial.Coordinate{Latitude: 25.762, Longitude: -80.192}, false)
	require.NoError(t, err)
	require.NotNil(t, loc)

	assert.Equal(t, spatial.Coordinate{Latitude: 25.7617, Longitude: -80.1918}, loc.Coordinate)
	assert.Equal(t, spatial.NewPoliticalDivision("United States", "Florida", "Miami-Dade County", "Miami"), loc.PoliticalDivision)
	assert.Equal(t, "Miami, Miami-Dade County, Florida, United States", loc.DisplayName())
	assert.InDelta(t, 12.5, loc.Metadata[spatial.MetadataDistance], 1e-9)

	box, ok := loc.BoundingBox()
	require.True(t, ok)
	assert.Equal(t, spatial.BoundingBox{South: 25.70, North: 25.85, East: -80.14, West: -80.32}, box)

	reqURL, _ := loc.Metadata[spatial.MetadataRequestURL].(string)
	assert.Contains(t, reqURL, "key=REDACTED")
	assert.NotContains(t, reqURL, "tok3n")
	assert.Contains(t, loc.Metadata, spatial.MetadataResponse)
}

func TestLocationIQNumericPosition(t *testing.T) {
	g := newTestLocationIQ(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"lat": 18.2, "lon": -66.5, "address": {"country": "Puerto Rico"}}`))
	})

	loc, err := g.Reverse(context.Background(), spatial.Coordinate{Latitude: 18.2, Longitude: -66.5}, false)
	require.NoError(t, err)
	require.NotNil(t, loc)
	assert.Equal(t, spatial.Coordinate{Latitude: 18.2, Longitude: -66.5}, loc.Coordinate)
	assert.Equal(t, "Puerto Rico", loc.PoliticalDivision.Country)

	_, ok := loc.BoundingBox()
	assert.False(t, ok)
}

func TestLocationIQNoResult(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"not found", http.StatusNotFound, `{"error": "Unable to geocode"}`},
		{"no address", http.StatusOK, `{"lat": "0", "lon": "0"}`},
		{"empty body", http.StatusOK, ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestLocationIQ(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			loc, err := g.Reverse(context.Background(), spatial.Coordinate{Latitude: 0, Longitude: -160}, false)
			require.NoError(t, err)
			assert.Nil(t, loc)
		})
	}
}

func TestLocationIQRetriesThrottled(t *testing.T) {
	var calls atomic.Int32

	g := newTestLocationIQ(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error": "Rate Limited Second"}`))

			return
		}

		_, _ = w.Write([]byte(miamiResponse))
	})

	loc, err := g.Reverse(context.Background(), spatial.Coordinate{Latitude: 25.762, Longitude: -80.192}, true)
	require.NoError(t, err)
	require.NotNil(t, loc)
	assert.Equal(t, int32(3), calls.Load())
	assert.Greater(t, g.backoff.Current(), DefaultBackoffOptions().Min, "throttling raises the learned delay")
}

func TestLocationIQErrors(t *testing.T) {
	t.Run("error payload", func(t *testing.T) {
		g := newTestLocationIQ(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"error": "Invalid key"}`))
		})

		_, err := g.Reverse(context.Background(), spatial.Coordinate{Latitude: 1, Longitude: 1}, false)
		require.Error(t, err)

		var geoErr *GeocodingError
		require.True(t, errors.As(err, &geoErr))
		assert.Equal(t, ErrorTypeService, geoErr.Type)
		assert.Contains(t, err.Error(), "Invalid key")
	})

	t.Run("unauthorized", func(t *testing.T) {
		g := newTestLocationIQ(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error": "Invalid key"}`))
		})

		_, err := g.Reverse(context.Background(), spatial.Coordinate{Latitude: 1, Longitude: 1}, false)
		require.Error(t, err)
		assert.Equal(t, ErrorTypeQuotaExceeded, TypeOf(err))

		var geoErr *GeocodingError
		require.True(t, errors.As(err, &geoErr))
		assert.Equal(t, http.StatusUnauthorized, geoErr.StatusCode)
	})

	t.Run("server error", func(t *testing.T) {
		g := newTestLocationIQ(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		_, err := g.Reverse(context.Background(), spatial.Coordinate{Latitude: 1, Longitude: 1}, false)
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "503"))
	})
}

func TestNewLocationIQ(t *testing.T) {
	_, err := NewLocationIQ(LocationIQOptions{Host: DefaultLocationIQHost}, http.DefaultClient, fastBackoff())
	require.Error(t, err)

	_, err = NewLocationIQ(LocationIQOptions{Token: "t"}, http.DefaultClient, fastBackoff())
	require.Error(t, err)

	g, err := NewLocationIQ(LocationIQOptions{Host: "eu1.locationiq.com", Token: "t"}, http.DefaultClient, fastBackoff())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(g.reverseURL(spatial.Coordinate{Latitude: 1, Longitude: 2}), "https://eu1.locationiq.com/v1/reverse.php?"))
}
