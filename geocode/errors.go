// Copyright 2025 The GQC Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// GeocodingError describes a failed reverse geocoding request.
type GeocodingError struct {
	Type       ErrorType
	StatusCode int
	Message    string
	Err        error
}

// ErrorType classifies geocoding errors.
type ErrorType int

const (
	// ErrorTypeUnknown unclassified error.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeRateLimit the service asked us to slow down.
	ErrorTypeRateLimit
	// ErrorTypeQuotaExceeded the account ran out of requests or was denied.
	ErrorTypeQuotaExceeded
	// ErrorTypeTimeout connection timeout.
	ErrorTypeTimeout
	// ErrorTypeNotFound no such location.
	ErrorTypeNotFound
	// ErrorTypeInvalidRequest the service rejected the request.
	ErrorTypeInvalidRequest
	// ErrorTypeNetworkError the service could not be reached.
	ErrorTypeNetworkError
	// ErrorTypeService the service answered with an error payload.
	ErrorTypeService
)

var errorTypeNames = map[ErrorType]string{
	ErrorTypeUnknown:        "unknown",
	ErrorTypeRateLimit:      "rate-limit",
	ErrorTypeQuotaExceeded:  "quota-exceeded",
	ErrorTypeTimeout:        "timeout",
	ErrorTypeNotFound:       "not-found",
	ErrorTypeInvalidRequest: "invalid-request",
	ErrorTypeNetworkError:   "network",
	ErrorTypeService:        "service",
}

func (t ErrorType) String() string {
	if name, ok := errorTypeNames[t]; ok {
		return name
	}

	return fmt.Sprintf("ErrorType(%d)", int(t))
}

func (e *GeocodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *GeocodingError) Unwrap() error {
	return e.Err
}

// TypeOf classifies err. Errors that are not GeocodingErrors are timeouts
// when they carry a deadline or a net.Error timeout, and unknown otherwise.
func TypeOf(err error) ErrorType {
	var geoErr *GeocodingError
	if errors.As(err, &geoErr) {
		return geoErr.Type
	}

	if isTimeout(err) {
		return ErrorTypeTimeout
	}

	return ErrorTypeUnknown
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr) && netErr.Timeout()
}

// requestFailed wraps a transport error; timeouts are told apart from other
// network failures.
func requestFailed(message string, err error) *GeocodingError {
	t := ErrorTypeNetworkError
	if isTimeout(err) {
		t = ErrorTypeTimeout
	}

	return &GeocodingError{Type: t, Message: message, Err: err}
}

// httpStatusTypes maps the HTTP statuses the services are known to answer.
var httpStatusTypes = map[int]struct {
	t       ErrorType
	message string
}{
	http.StatusTooManyRequests:    {ErrorTypeRateLimit, "rate limit reached"},
	http.StatusUnauthorized:       {ErrorTypeQuotaExceeded, "quota exceeded or access denied"},
	http.StatusForbidden:          {ErrorTypeQuotaExceeded, "quota exceeded or access denied"},
	http.StatusBadRequest:         {ErrorTypeInvalidRequest, "invalid request"},
	http.StatusNotFound:           {ErrorTypeNotFound, "location not found"},
	http.StatusBadGateway:         {ErrorTypeNetworkError, "service unavailable (status 502)"},
	http.StatusServiceUnavailable: {ErrorTypeNetworkError, "service unavailable (status 503)"},
	http.StatusGatewayTimeout:     {ErrorTypeTimeout, "service timed out (status 504)"},
}

// ClassifyHTTPError turns an unexpected HTTP status into a GeocodingError.
// The start of the body is kept in the message to help diagnose the failure.
func ClassifyHTTPError(statusCode int, body string) *GeocodingError {
	e := &GeocodingError{
		Type:       ErrorTypeUnknown,
		StatusCode: statusCode,
		Message:    fmt.Sprintf("HTTP error %d", statusCode),
	}

	if known, ok := httpStatusTypes[statusCode]; ok {
		e.Type, e.Message = known.t, known.message
	}

	if body = strings.TrimSpace(body); body != "" {
		const maxBody = 256
		if len(body) > maxBody {
			body = body[:maxBody] + "…"
		}

		e.Message += ": " + body
	}

	return e
}
