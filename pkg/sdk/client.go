// Package sdk is a typed HTTP client for the jobdex API.
package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// ErrJobNotFound is returned by Job for unknown job ids.
var ErrJobNotFound = errors.New("jobdex: job not found")

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("jobdex: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// Client talks to a jobdex API server.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the Bearer token sent with every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Weights overrides the ranking component weights for one search.
// Components must be non-negative and sum to 1.
type Weights struct {
	Semantic float64 `json:"semantic"`
	Title    float64 `json:"title"`
	Skills   float64 `json:"skills"`
	Location float64 `json:"location"`
}

// SearchRequest is a semantic job search.
type SearchRequest struct {
	Query      string   `json:"query"`
	Location   string   `json:"location,omitempty"`
	Remote     bool     `json:"remote,omitempty"`
	Skills     string   `json:"skills,omitempty"`
	NumResults int      `json:"num_results,omitempty"`
	Explain    bool     `json:"explain,omitempty"`
	Weights    *Weights `json:"weights,omitempty"`
}

// ComponentScores is the per-factor score breakdown of one result.
type ComponentScores struct {
	Semantic float64 `json:"semantic"`
	Title    float64 `json:"title"`
	Skills   float64 `json:"skills"`
	Location float64 `json:"location"`
}

// SearchResult is one ranked posting.
type SearchResult struct {
	Rank          int             `json:"rank"`
	JobID         string          `json:"job_id"`
	Title         string          `json:"title"`
	CompanyName   string          `json:"company_name"`
	Location      string          `json:"location"`
	RemoteAllowed bool            `json:"remote_allowed"`
	Skills        string          `json:"skills"`
	URL           string          `json:"url"`
	Score         float64         `json:"score"`
	Scores        ComponentScores `json:"scores"`
	Explanation   string          `json:"explanation"`
}

// SearchResponse is the result of one search.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
}

// Job is a single indexed posting.
type Job struct {
	JobID         string `json:"job_id"`
	Title         string `json:"title"`
	CompanyName   string `json:"company_name"`
	Location      string `json:"location"`
	RemoteAllowed bool   `json:"remote_allowed"`
	Skills        string `json:"skills"`
	URL           string `json:"url"`
}

// Health is the aggregated server health report.
type Health struct {
	Status      string            `json:"status"`
	Checks      map[string]string `json:"checks"`
	IndexedJobs int               `json:"indexed_jobs"`
}

// Search runs a semantic job search.
func (c *Client) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	var resp SearchResponse
	if err := c.do(ctx, http.MethodPost, "/search", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Job fetches one posting by id.
func (c *Client) Job(ctx context.Context, jobID string) (*Job, error) {
	var job Job
	err := c.do(ctx, http.MethodGet, "/jobs/"+url.PathEscape(jobID), nil, &job)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// Health fetches the server health report. An unhealthy server answers 503
// with a report in the body, so that is not an error here.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return nil, fmt.Errorf("jobdex: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jobdex: GET /healthz: %w", err)
	}
	defer resp.Body.Close()

	var h Health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return nil, fmt.Errorf("jobdex: decode health report: %w", err)
	}
	return &h, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body bytes.Buffer
	if in != nil {
		if err := json.NewEncoder(&body).Encode(in); err != nil {
			return fmt.Errorf("jobdex: encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &body)
	if err != nil {
		return fmt.Errorf("jobdex: build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("jobdex: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errBody struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.NewDecoder(resp.Body).Decode(&errBody) == nil {
			apiErr.Code = errBody.Code
			apiErr.Message = errBody.Message
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("jobdex: decode response: %w", err)
	}
	return nil
}
