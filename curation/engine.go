// Copyright 2025 The GQC Authors
// SPDX-License-Identifier: Apache-2.0

// Package curation verifies the geolocation of collection records: it
// reverse geocodes each record's coordinate, compares the answer with the
// recorded political division and explains the disagreements it can.
package curation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"

	"github.com/selbybotany/gqc/cache"
	"github.com/selbybotany/gqc/geocode"
	"github.com/selbybotany/gqc/spatial"
)

// Cache stores locations under the key of their requested coordinate.
type Cache interface {
	Get(key string) (spatial.Location, bool)
	Put(key string, loc spatial.Location) error
}

// Options tune the verification.
type Options struct {
	Canonicalizer spatial.Canonicalizer
	// FuzzyThreshold is the token set ratio at which two names match.
	FuzzyThreshold int
	// AllowableError is the distance, in meters, under which two
	// coordinates are the same place.
	AllowableError float64
	// CacheEnabled makes lookups read and write the cache.
	CacheEnabled bool
	// CacheOnly never calls the service; a cache miss is no result.
	CacheOnly bool
}

// DefaultOptions returns the settings used by the command line.
func DefaultOptions() Options {
	return Options{
		Canonicalizer:  spatial.Canonicalizer{LatitudePrecision: 3, LongitudePrecision: 3},
		FuzzyThreshold: spatial.DefaultFuzzyThreshold,
		AllowableError: 100,
		CacheEnabled:   true,
	}
}

// EngineMetrics counts what the engine did.
type EngineMetrics struct {
	Rows             int
	CacheHits        int
	Lookups          int
	CacheWriteErrors int
	InternalErrors   int
}

// Merge combines two EngineMetrics.
func (m *EngineMetrics) Merge(o *EngineMetrics) *EngineMetrics {
	m.Rows += o.Rows
	m.CacheHits += o.CacheHits
	m.Lookups += o.Lookups
	m.CacheWriteErrors += o.CacheWriteErrors
	m.InternalErrors += o.InternalErrors

	return m
}

// Engine verifies rows one at a time. It is not safe for concurrent use:
// the cache and the geocoder's backoff are shared by every row.
type Engine struct {
	opts     Options
	cache    Cache
	geocoder geocode.Geocoder
	Metrics  EngineMetrics
}

// NewEngine creates an engine. cache may be nil to disable caching, and
// geocoder may be nil when running from the cache only.
func NewEngine(opts Options, c Cache, geocoder geocode.Geocoder) *Engine {
	if c == nil {
		opts.CacheEnabled = false
	}

	if geocoder == nil {
		opts.CacheOnly = true
	}

	return &Engine{opts: opts, cache: c, geocoder: geocoder}
}

// Options returns the settings in effect.
func (e *Engine) Options() Options {
	return e.opts
}

// SetCacheOnly switches lookups to the cache only.
func (e *Engine) SetCacheOnly(on bool) {
	e.opts.CacheOnly = on || e.geocoder == nil
}

// Probe checks that the service answers. An empty answer counts as
// reachable. The probe bypasses the cache and the pacing delay.
func (e *Engine) Probe(ctx context.Context) error {
	if e.geocoder == nil {
		return errors.New("no geocoding service configured")
	}

	_, err := e.geocoder.Reverse(ctx, spatial.Coordinate{}, false)

	return err
}

// ReverseGeolocate returns the location at c, preferring the cache when
// useCache is set. Service answers are written back to the cache; a failed
// write is logged and otherwise ignored.
func (e *Engine) ReverseGeolocate(ctx context.Context, c spatial.Coordinate, useCache, wait bool) (*spatial.Location, error) {
	useCache = useCache && e.cache != nil
	key := cache.Key(c)

	if useCache {
		if loc, ok := e.cache.Get(key); ok {
			e.Metrics.CacheHits++

			return &loc, nil
		}
	}

	if e.opts.CacheOnly {
		return nil, nil
	}

	e.Metrics.Lookups++

	loc, err := e.geocoder.Reverse(ctx, c, wait)
	if err != nil {
		return nil, err
	}

	if loc != nil && useCache {
		if err := e.cache.Put(key, *loc); err != nil {
			e.Metrics.CacheWriteErrors++
			log.Printf("Failed to cache %s: %v\n", key, err)
		}
	}

	return loc, nil
}

// Verify checks one row and returns its verdict. It never fails: service
// errors and unexpected panics become internal-error verdicts. A refused
// or exhausted quota switches the engine to the cache only.
func (e *Engine) Verify(ctx context.Context, r Row) (v Verdict) {
	e.Metrics.Rows++

	defer func() {
		if p := recover(); p != nil {
			log.Printf("Unexpected failure verifying accession %q: %v\n%s", r.AccessionNumber, p, debug.Stack())

			e.Metrics.InternalErrors++
			v = Verdict{
				Action:          ActionInternalError,
				Reason:          ReasonGeolocateError,
				Note:            fmt.Sprintf("error «%v»", p),
				AccessionNumber: r.AccessionNumber,
			}
		}
	}()

	coord, rejected := validateRow(r)
	if rejected != nil {
		return *rejected
	}

	coord = e.opts.Canonicalizer.Coordinate(coord)
	v = Verdict{AccessionNumber: r.AccessionNumber}

	if err := e.verify(ctx, coord, r.Division, &v); err != nil {
		kind := geocode.TypeOf(err)
		log.Printf("Reverse geolocation of %v for accession %q failed (%v): %v\n", coord, r.AccessionNumber, kind, err)

		e.Metrics.InternalErrors++

		// Every later lookup would be refused the same way.
		if kind == geocode.ErrorTypeQuotaExceeded && !e.opts.CacheOnly {
			log.Println("The geocoding service refused the request, continuing from the cache only")
			e.SetCacheOnly(true)
		}

		return Verdict{
			Action:          ActionInternalError,
			Reason:          ReasonGeolocateError,
			Note:            errorNote(err),
			AccessionNumber: r.AccessionNumber,
		}
	}

	return v
}

func (e *Engine) verify(ctx context.Context, coord spatial.Coordinate, input spatial.PoliticalDivision, v *Verdict) error {
	loc, err := e.ReverseGeolocate(ctx, coord, e.opts.CacheEnabled, true)
	if err != nil {
		return err
	}

	if loc == nil {
		v.Action, v.Reason = ActionError, ReasonIncorrectCoordinate
		v.Note = fmt.Sprintf("reverse geolocation of %v found nothing: the latitude, the longitude or both are seriously wrong", coord)

		return e.correct(ctx, coord, input, nil, v)
	}

	v.Location = e.report(coord, *loc)

	level, differs := input.FirstDifferentDivision(loc.PoliticalDivision, true, e.opts.FuzzyThreshold)
	if !differs {
		v.Action, v.Reason = ActionPass, ReasonMatchingLocation

		return nil
	}

	v.Action, v.Reason = ActionError, MismatchReason(level)
	v.Note = fmt.Sprintf("input location %v %v does not match returned location %v %v",
		input, coord, loc.PoliticalDivision, spatial.Coordinate{Latitude: v.Location.Latitude, Longitude: v.Location.Longitude})

	if level != spatial.Country {
		return nil
	}

	return e.correct(ctx, coord, input, loc, v)
}

// report describes loc as seen from the input coordinate.
func (e *Engine) report(input spatial.Coordinate, loc spatial.Location) *LocationReport {
	canon := e.opts.Canonicalizer
	at := canon.Coordinate(loc.Coordinate)

	r := &LocationReport{
		PoliticalDivision: loc.PoliticalDivision,
		Latitude:          at.Latitude,
		Longitude:         at.Longitude,
		ErrorDistance:     spatial.Kilometers(input.Distance(loc.Coordinate)),
		DisplayName:       loc.DisplayName(),
	}

	if box, ok := loc.BoundingBox(); ok {
		box = canon.BoundingBox(box)
		d := box.EdgeDistances(input)
		r.BoundingBox, r.EdgeDistances = &box, &d
	}

	return r
}

func errorNote(err error) string {
	var geoErr *geocode.GeocodingError
	if errors.As(err, &geoErr) && geoErr.StatusCode != 0 {
		return fmt.Sprintf("HTTP error «(%d) %s»", geoErr.StatusCode, geoErr.Message)
	}

	return fmt.Sprintf("error «%v»", err)
}
