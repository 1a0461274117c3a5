// Package nominatim resolves place names via the OpenStreetMap Nominatim API.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const defaultBaseURL = "https://nominatim.openstreetmap.org"

// Config holds the Nominatim client settings. UserAgent is mandatory per the
// Nominatim usage policy.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	Logger    *zap.Logger
}

// Geocoder implements normalize.Geocoder on the Nominatim search endpoint.
type Geocoder struct {
	baseURL   string
	userAgent string
	client    *http.Client
	logger    *zap.Logger
}

// New creates a Nominatim geocoder.
func New(cfg *Config) *Geocoder {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Geocoder{
		baseURL:   baseURL,
		userAgent: cfg.UserAgent,
		client:    &http.Client{Timeout: timeout},
		logger:    cfg.Logger,
	}
}

type searchResult struct {
	DisplayName string `json:"display_name"`
}

// Locate returns the display name of the best match for the location query.
func (g *Geocoder) Locate(ctx context.Context, location string) (string, error) {
	q := url.Values{}
	q.Set("q", location)
	q.Set("format", "jsonv2")
	q.Set("limit", "1")

	reqURL := fmt.Sprintf("%s/search?%s", g.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("build geocode request: %w", err)
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("geocode %q: %w", location, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geocode %q: status %d", location, resp.StatusCode)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return "", fmt.Errorf("decode geocode response: %w", err)
	}
	if len(results) == 0 || results[0].DisplayName == "" {
		return "", fmt.Errorf("geocode %q: no results", location)
	}

	return results[0].DisplayName, nil
}
