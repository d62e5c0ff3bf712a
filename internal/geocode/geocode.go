// Package geocode resolves an Indian city name to its state using the
// OpenStreetMap Nominatim API. Used during onboarding to pre-fill the state
// board guess; failures degrade to the manual state picker.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/btrlrn/learnbuddy/internal/syllabus"
)

// DefaultBaseURL is the public Nominatim endpoint.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// DefaultTimeout bounds a single lookup; onboarding must not hang on a slow
// geocoder.
const DefaultTimeout = 8 * time.Second

// defaultUserAgent identifies this service per the Nominatim usage policy.
const defaultUserAgent = "btrlrn-edu-bot/1.0"

// Opts holds configuration options for the geocoding client.
type Opts struct {
	BaseURL    string
	UserAgent  string
	HTTPClient *http.Client
}

// Option configures the geocoding client.
type Option func(*Opts)

// WithBaseURL points the client at an alternate Nominatim endpoint.
func WithBaseURL(u string) Option {
	return func(o *Opts) {
		o.BaseURL = u
	}
}

// WithUserAgent overrides the User-Agent header sent to the geocoder.
func WithUserAgent(ua string) Option {
	return func(o *Opts) {
		o.UserAgent = ua
	}
}

// WithHTTPClient substitutes the HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) {
		o.HTTPClient = c
	}
}

// Client looks up Indian states for city names.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

// NewClient creates a geocoding client.
func NewClient(opts ...Option) *Client {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{baseURL: cfg.BaseURL, userAgent: cfg.UserAgent, http: cfg.HTTPClient}
}

// nominatimResult is the slice of the search response we care about.
type nominatimResult struct {
	Address struct {
		State string `json:"state"`
	} `json:"address"`
}

// StateForCity returns the state for an Indian city, normalized against the
// known state list. Returns "" with nil error when the city cannot be
// resolved; callers fall back to the manual picker.
func (c *Client) StateForCity(ctx context.Context, city string) (string, error) {
	if city == "" {
		return "", nil
	}

	q := url.Values{}
	q.Set("q", city+", India")
	q.Set("format", "json")
	q.Set("addressdetails", "1")
	q.Set("limit", "1")
	reqURL := c.baseURL + "/search?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build geocode request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		slog.Warn("Geocode request failed", "error", err, "city", city)
		return "", fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("Geocode returned non-OK status", "status", resp.StatusCode, "city", city)
		return "", fmt.Errorf("geocode returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read geocode response: %w", err)
	}
	var results []nominatimResult
	if err := json.Unmarshal(body, &results); err != nil {
		return "", fmt.Errorf("failed to decode geocode response: %w", err)
	}
	if len(results) == 0 || results[0].Address.State == "" {
		slog.Debug("Geocode found no state", "city", city)
		return "", nil
	}

	state := syllabus.BestMatchState(results[0].Address.State)
	if state == "" {
		slog.Debug("Geocode state not in known list", "city", city, "raw", results[0].Address.State)
		return "", nil
	}
	slog.Debug("Geocode resolved city", "city", city, "state", state)
	return state, nil
}
