// Copyright 2025 The GQC Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"

	"github.com/selbybotany/gqc/spatial"
	"github.com/selbybotany/gqc/utils/httputils"
)

// DefaultGoogleEndpoint is the Google Maps Geocoding API.
const DefaultGoogleEndpoint = "https://maps.googleapis.com/maps/api/geocode/json"

// googleComponentTypes maps Google address component types onto division
// levels. The first type present in a result wins for each level.
var googleComponentTypes = [spatial.NumLevels][]string{
	{"country"},
	{"administrative_area_level_1"},
	{"administrative_area_level_2"},
	{"locality", "administrative_area_level_3"},
	{"sublocality", "sublocality_level_1", "administrative_area_level_4"},
	{"neighborhood", "sublocality_level_2"},
}

// GoogleMaps reverse geocodes through the Google Maps Geocoding API.
type GoogleMaps struct {
	apiKey   string
	endpoint string
	client   *http.Client
	backoff  *Backoff
}

// NewGoogleMaps creates a Google Maps geocoder. An empty endpoint selects
// DefaultGoogleEndpoint.
func NewGoogleMaps(apiKey, endpoint string, client *http.Client, backoff *Backoff) (*GoogleMaps, error) {
	if apiKey == "" {
		return nil, errors.New("google: api key is not set")
	}

	if endpoint == "" {
		endpoint = DefaultGoogleEndpoint
	}

	return &GoogleMaps{apiKey: apiKey, endpoint: endpoint, client: client, backoff: backoff}, nil
}

type googleLatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type googleMapsResponse struct {
	Results []struct {
		AddressComponents []struct {
			LongName  string   `json:"long_name"`
			ShortName string   `json:"short_name"`
			Types     []string `json:"types"`
		} `json:"address_components"`
		Geometry struct {
			Location     googleLatLng `json:"location"`
			LocationType string       `json:"location_type"` // ROOFTOP, RANGE_INTERPOLATED, GEOMETRIC_CENTER, APPROXIMATE
			Viewport     struct {
				Northeast googleLatLng `json:"northeast"`
				Southwest googleLatLng `json:"southwest"`
			} `json:"viewport"`
		} `json:"geometry"`
		FormattedAddress string `json:"formatted_address"`
	} `json:"results"`
	Status       string `json:"status"` // OK, ZERO_RESULTS, etc.
	ErrorMessage string `json:"error_message"`
}

// Reverse implements Geocoder. OVER_QUERY_LIMIT is treated as throttling.
func (g *GoogleMaps) Reverse(ctx context.Context, c spatial.Coordinate, wait bool) (*spatial.Location, error) {
	params := url.Values{}
	params.Set("latlng", spatial.FormatDegrees(c.Latitude)+","+spatial.FormatDegrees(c.Longitude))
	params.Set("key", g.apiKey)

	reqURL := g.endpoint + "?" + params.Encode()

	var gmResp googleMapsResponse

	err := g.backoff.Do(ctx, wait, func(ctx context.Context) (bool, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return false, fmt.Errorf("creating request: %w", err)
		}

		resp, err := g.client.Do(req)
		if err != nil {
			return false, requestFailed("geocoding request failed", err)
		}

		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			_, _ = io.Copy(io.Discard, resp.Body)

			return true, nil
		}

		if resp.StatusCode != http.StatusOK {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

			return false, ClassifyHTTPError(resp.StatusCode, string(snippet))
		}

		gmResp = googleMapsResponse{}
		if err := json.NewDecoder(resp.Body).Decode(&gmResp); err != nil {
			return false, &GeocodingError{Type: ErrorTypeService, Message: "decoding response", Err: err}
		}

		switch gmResp.Status {
		case "OK", "ZERO_RESULTS":
			return false, nil
		case "OVER_QUERY_LIMIT":
			return true, nil
		case "REQUEST_DENIED":
			return false, &GeocodingError{Type: ErrorTypeQuotaExceeded, Message: "google maps status: " + gmResp.Status + " " + gmResp.ErrorMessage}
		case "INVALID_REQUEST":
			return false, &GeocodingError{Type: ErrorTypeInvalidRequest, Message: "google maps status: " + gmResp.Status + " " + gmResp.ErrorMessage}
		default:
			return false, &GeocodingError{Type: ErrorTypeService, Message: "google maps status: " + gmResp.Status + " " + gmResp.ErrorMessage}
		}
	})
	if err != nil {
		return nil, err
	}

	if gmResp.Status != "OK" || len(gmResp.Results) == 0 {
		return nil, nil
	}

	result := gmResp.Results[0]

	var pd spatial.PoliticalDivision

	for i, types := range googleComponentTypes {
		for _, comp := range result.AddressComponents {
			if slices.ContainsFunc(types, func(t string) bool { return slices.Contains(comp.Types, t) }) {
				pd = pd.With(spatial.Level(i), comp.LongName)

				break
			}
		}
	}

	at, err := spatial.NewCoordinate(result.Geometry.Location.Lat, result.Geometry.Location.Lng)
	if err != nil {
		return nil, &GeocodingError{Type: ErrorTypeService, Message: "google maps returned a bad coordinate", Err: err}
	}

	vp := result.Geometry.Viewport
	box := spatial.BoundingBox{
		South: vp.Southwest.Lat,
		North: vp.Northeast.Lat,
		East:  vp.Northeast.Lng,
		West:  vp.Southwest.Lng,
	}

	meta := map[string]any{
		spatial.MetadataBoundingBox: box.Values(),
		spatial.MetadataDistance:    at.Distance(c),
		spatial.MetadataDisplayName: result.FormattedAddress,
		spatial.MetadataRequestPosition: map[string]any{
			"latitude":  c.Latitude,
			"longitude": c.Longitude,
		},
		spatial.MetadataRequestURL: httputils.RedactURLString(reqURL, "key"),
		"location_type":            result.Geometry.LocationType,
		"result_count":             float64(len(gmResp.Results)),
	}

	loc := spatial.NewLocation(at, pd, meta)

	return &loc, nil
}
