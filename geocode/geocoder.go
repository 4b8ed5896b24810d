// Copyright 2025 The GQC Authors
// SPDX-License-Identifier: Apache-2.0

// Package geocode turns coordinates into political divisions using remote
// reverse geocoding services.
package geocode

import (
	"context"
	"fmt"

	"github.com/selbybotany/gqc/spatial"
)

// Supported providers.
const (
	ProviderLocationIQ = "locationiq"
	ProviderGoogle     = "google"
)

// Geocoder resolves a coordinate into the location that contains it.
type Geocoder interface {
	// Reverse returns nil and no error when the service knows nothing about c.
	// With wait set, the call also sleeps the current backoff interval after a
	// successful response so batches stay under the service's rate limit.
	Reverse(ctx context.Context, c spatial.Coordinate, wait bool) (*spatial.Location, error)
}

// ParseProvider validates a provider name.
func ParseProvider(name string) (string, error) {
	switch name {
	case ProviderLocationIQ, ProviderGoogle:
		return name, nil
	default:
		return "", fmt.Errorf("unknown geocoding provider %q (want %s or %s)", name, ProviderLocationIQ, ProviderGoogle)
	}
}
