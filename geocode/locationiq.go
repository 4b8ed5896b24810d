// Copyright 2025 The GQC Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"github.com/selbybotany/gqc/spatial"
	"github.com/selbybotany/gqc/utils/httputils"
)

// DefaultLocationIQHost is the LocationIQ region used when none is configured.
const DefaultLocationIQHost = "us1.locationiq.com"

// locationIQAddressKeys maps LocationIQ address fields onto division levels.
var locationIQAddressKeys = [spatial.NumLevels]string{
	"country", "state", "county", "city", "suburb", "neighbourhood",
}

// LocationIQOptions configures the LocationIQ client.
type LocationIQOptions struct {
	// Host is the API host, e.g. us1.locationiq.com.
	Host string
	// Token is the API access token.
	Token string
	// Endpoint overrides the reverse geocoding URL built from Host.
	Endpoint string
}

// LocationIQ reverse geocodes through the LocationIQ API.
type LocationIQ struct {
	endpoint string
	token    string
	client   *http.Client
	backoff  *Backoff
}

// NewLocationIQ creates a LocationIQ geocoder.
func NewLocationIQ(opts LocationIQOptions, client *http.Client, backoff *Backoff) (*LocationIQ, error) {
	if opts.Token == "" {
		return nil, errors.New("locationiq: api token is not set")
	}

	endpoint := opts.Endpoint
	if endpoint == "" {
		if opts.Host == "" {
			return nil, errors.New("locationiq: api host is not set")
		}

		endpoint = "https://" + opts.Host + "/v1/reverse.php"
	}

	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("locationiq: bad endpoint: %w", err)
	}

	return &LocationIQ{endpoint: endpoint, token: opts.Token, client: client, backoff: backoff}, nil
}

func (g *LocationIQ) reverseURL(c spatial.Coordinate) string {
	params := url.Values{}
	params.Set("key", g.token)
	params.Set("lat", spatial.FormatDegrees(c.Latitude))
	params.Set("lon", spatial.FormatDegrees(c.Longitude))
	params.Set("format", "json")
	params.Set("addressdetails", "1")
	params.Set("extratags", "1")
	params.Set("matchquality", "1")
	params.Set("namedetails", "1")
	params.Set("normalizeaddress", "1")
	params.Set("normalizecity", "1")
	params.Set("showdistance", "1")

	return g.endpoint + "?" + params.Encode()
}

// Reverse implements Geocoder. A 404 from the service means there is nothing
// at c; a throttled request is retried without limit.
func (g *LocationIQ) Reverse(ctx context.Context, c spatial.Coordinate, wait bool) (*spatial.Location, error) {
	reqURL := g.reverseURL(c)

	var body []byte

	err := g.backoff.Do(ctx, wait, func(ctx context.Context) (bool, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return false, fmt.Errorf("creating request: %w", err)
		}

		resp, err := g.client.Do(req)
		if err != nil {
			return false, requestFailed("reverse geocoding request failed", err)
		}

		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusOK:
			body, err = io.ReadAll(resp.Body)
			if err != nil {
				return false, requestFailed("reading response", err)
			}

			return false, nil
		case http.StatusTooManyRequests:
			_, _ = io.Copy(io.Discard, resp.Body)

			return true, nil
		case http.StatusNotFound:
			body = nil

			return false, nil
		default:
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

			return false, ClassifyHTTPError(resp.StatusCode, string(snippet))
		}
	})
	if err != nil {
		return nil, err
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	return parseLocationIQ(body, c, httputils.RedactURLString(reqURL, "key"))
}

// flexFloat decodes numbers that LocationIQ sends either as JSON numbers or
// as strings.
type flexFloat struct {
	Value float64
	Set   bool
}

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("parsing %q: %w", s, err)
		}

		*f = flexFloat{Value: v, Set: true}

		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	*f = flexFloat{Value: v, Set: true}

	return nil
}

type locationIQResponse struct {
	Lat         flexFloat         `json:"lat"`
	Lon         flexFloat         `json:"lon"`
	Address     map[string]string `json:"address"`
	BoundingBox []string          `json:"boundingbox"`
	Distance    *float64          `json:"distance"`
	DisplayName string            `json:"display_name"`
}

func parseLocationIQ(body []byte, requested spatial.Coordinate, requestURL string) (*spatial.Location, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &GeocodingError{Type: ErrorTypeService, Message: "decoding locationiq response", Err: err}
	}

	if msg, ok := raw["error"]; ok {
		return nil, &GeocodingError{Type: ErrorTypeService, Message: fmt.Sprintf("locationiq error: %v", msg)}
	}

	var resp locationIQResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &GeocodingError{Type: ErrorTypeService, Message: "decoding locationiq response", Err: err}
	}

	if !resp.Lat.Set || !resp.Lon.Set || resp.Address == nil {
		log.Printf("LocationIQ response for %v has no position or address\n", requested)

		return nil, nil
	}

	c, err := spatial.NewCoordinate(resp.Lat.Value, resp.Lon.Value)
	if err != nil {
		return nil, &GeocodingError{Type: ErrorTypeService, Message: "locationiq returned a bad coordinate", Err: err}
	}

	var pd spatial.PoliticalDivision
	for i, key := range locationIQAddressKeys {
		pd = pd.With(spatial.Level(i), resp.Address[key])
	}

	meta := map[string]any{
		spatial.MetadataRequestPosition: map[string]any{
			"latitude":  requested.Latitude,
			"longitude": requested.Longitude,
		},
		spatial.MetadataRequestURL: requestURL,
		spatial.MetadataResponse:   raw,
	}

	if resp.Distance != nil {
		meta[spatial.MetadataDistance] = *resp.Distance
	}

	if len(resp.BoundingBox) == 4 {
		box := make([]any, len(resp.BoundingBox))
		for i, v := range resp.BoundingBox {
			box[i] = v
		}

		meta[spatial.MetadataBoundingBox] = box
	}

	if resp.DisplayName != "" {
		meta[spatial.MetadataDisplayName] = resp.DisplayName
	}

	loc := spatial.NewLocation(c, pd, meta)

	return &loc, nil
}
