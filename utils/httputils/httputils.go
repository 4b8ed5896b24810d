// Copyright 2025 The GQC Authors
// SPDX-License-Identifier: Apache-2.0

// Package httputils provides utility functions for working with HTTP.
package httputils

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"
)

const redacted = "REDACTED"

/////////////////////////////////////////
/// RountTrippers

// LoggingRoundTripper adds a very primitive logging to a http transaction.
// Query parameters named in Redact, and the Authorization header, never
// reach the log.
type LoggingRoundTripper struct {
	Transport http.RoundTripper
	Writer    io.Writer
	DumpBody  bool
	Redact    []string
}

// reduce the content the liens.
func abbreviate(lines []string, prefix rune) []string {
	const maxLines, maxChars = 2048, 512

	for i, line := range lines {
		if i < maxLines {
			lines[i] = fmt.Sprintf("%c %s", prefix, line)
		} else {
			break
		}
	}

	if len(lines) > maxLines {
		lines = lines[:maxLines]
		lines = append(lines, "…")
	}

	for i, line := range lines {
		if len(line) > maxChars {
			lines[i] = line[0:maxChars] + "…"
		}
	}

	return lines
}

func (t *LoggingRoundTripper) dumpRequest(req *http.Request) error {
	// Dump a copy so the redactions don't leak into the real request.
	out := req.Clone(req.Context())
	out.URL = RedactURL(req.URL, t.Redact...)

	if out.Header.Get("Authorization") != "" {
		out.Header.Set("Authorization", redacted)
	}

	dump, err := httputil.DumpRequestOut(out, true)
	if err != nil {
		return fmt.Errorf("tracing HTTP request: %w", err)
	}

	// DumpRequestOut drains the clone's body; hand it back to the original.
	if req.Body != nil && out.Body != nil {
		req.Body = out.Body
	}

	lines := abbreviate(strings.Split(string(dump), "\n"), '>')
	lines = append(lines, "")
	_, err = fmt.Fprint(t.Writer, strings.Join(lines, "\n"))

	return err
}

func (t *LoggingRoundTripper) dumpResponse(resp *http.Response, duration time.Duration) error {
	dump, err := httputil.DumpResponse(resp, t.DumpBody)
	if err != nil {
		return fmt.Errorf("tracing HTTP request: %w", err)
	}

	lines := abbreviate(strings.Split(string(dump), "\n"), '<')

	_, err = fmt.Fprintf(t.Writer, "< RESPONSE: [%v]\n", duration)
	if err != nil {
		return fmt.Errorf("tracing HTTP request: %w", err)
	}

	lines = append(lines, "")
	_, err = fmt.Fprint(t.Writer, strings.Join(lines, "\n"))

	return err
}

// RoundTrip implements the http.RoundTripper interface.
func (t *LoggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Writer == nil {
		return t.Transport.RoundTrip(req)
	}

	if err := t.dumpRequest(req); err != nil {
		return nil, err
	}

	start := time.Now()

	resp, err := t.Transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if err := t.dumpResponse(resp, time.Since(start)); err != nil {
		return nil, err
	}

	return resp, nil
}

// AppendRequestHeadersRoundTripper adds headers to the request.
type AppendRequestHeadersRoundTripper struct {
	Transport http.RoundTripper
	Headers   map[string]string
}

// RoundTrip implements the http.RoundTripper interface.
func (t *AppendRequestHeadersRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	for k, v := range t.Headers {
		req.Header.Set(k, v)
	}

	resp, err := t.Transport.RoundTrip(req)

	return resp, err
}

////////////////////////////////////////////////////

// RedactURL returns a copy of u with the values of the named query
// parameters replaced.
func RedactURL(u *url.URL, params ...string) *url.URL {
	if u == nil {
		return nil
	}

	out := *u
	if len(params) == 0 || u.RawQuery == "" {
		return &out
	}

	q := u.Query()
	changed := false

	for _, p := range params {
		if q.Has(p) {
			q.Set(p, redacted)

			changed = true
		}
	}

	if changed {
		out.RawQuery = q.Encode()
	}

	return &out
}

// RedactURLString is RedactURL for URLs held as strings. Unparseable input is
// returned as is.
func RedactURLString(raw string, params ...string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	return RedactURL(u, params...).String()
}
