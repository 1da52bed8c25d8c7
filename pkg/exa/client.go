// Package exa provides a client for the Exa neural search API.
package exa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the Exa operations used by the pipeline.
type Client interface {
	// FindSimilar returns pages semantically similar to seedURL, with their
	// full text attached.
	FindSimilar(ctx context.Context, seedURL string, numResults int) (*FindSimilarResponse, error)
}

// FindSimilarResponse is the parsed /findSimilar response.
type FindSimilarResponse struct {
	RequestID string   `json:"requestId"`
	Results   []Result `json:"results"`
}

// Result is a single similar page.
type Result struct {
	ID            string  `json:"id"`
	URL           string  `json:"url"`
	Title         string  `json:"title"`
	Text          string  `json:"text"`
	PublishedDate string  `json:"publishedDate,omitempty"`
	Author        string  `json:"author,omitempty"`
	Score         float64 `json:"score,omitempty"`
}

type findSimilarRequest struct {
	URL        string   `json:"url"`
	NumResults int      `json:"numResults"`
	Contents   contents `json:"contents"`
}

type contents struct {
	Text bool `json:"text"`
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("exa: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Option configures the Exa client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a new Exa client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://api.exa.ai",
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) FindSimilar(ctx context.Context, seedURL string, numResults int) (*FindSimilarResponse, error) {
	payload, err := json.Marshal(findSimilarRequest{
		URL:        seedURL,
		NumResults: numResults,
		Contents:   contents{Text: true},
	})
	if err != nil {
		return nil, eris.Wrap(err, "exa: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/findSimilar", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "exa: create request")
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "exa: request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "exa: read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, eris.Wrapf(&StatusError{StatusCode: resp.StatusCode, Body: string(body)}, "exa: find similar %s", seedURL)
	}

	var result FindSimilarResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "exa: unmarshal response")
	}
	return &result, nil
}
