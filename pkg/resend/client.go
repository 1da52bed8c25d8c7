// Package resend provides a minimal client for the Resend transactional email API.
package resend

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/resilience"
)

// Client defines the Resend operations used for lead delivery.
type Client interface {
	Send(ctx context.Context, email Email) (*SendResponse, error)
}

// Email is a single outbound message.
type Email struct {
	From        string       `json:"from"`
	To          []string     `json:"to"`
	Subject     string       `json:"subject"`
	HTML        string       `json:"html,omitempty"`
	Text        string       `json:"text,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment is a file sent with the email. Content is raw bytes; the client
// base64-encodes it on the wire.
type Attachment struct {
	Filename string
	Content  []byte
}

// MarshalJSON encodes the attachment in the shape Resend expects.
func (a Attachment) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Filename string `json:"filename"`
		Content  string `json:"content"`
	}{a.Filename, base64.StdEncoding.EncodeToString(a.Content)})
}

// SendResponse is the parsed /emails response.
type SendResponse struct {
	ID string `json:"id"`
}

// Option configures the Resend client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
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

// NewClient creates a new Resend client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://api.resend.com",
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Send(ctx context.Context, email Email) (*SendResponse, error) {
	payload, err := json.Marshal(email)
	if err != nil {
		return nil, eris.Wrap(err, "resend: marshal email")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "resend: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "resend: request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "resend: read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := fmt.Errorf("resend: status %d: %s", resp.StatusCode, string(body))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		return nil, statusErr
	}

	var out SendResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "resend: unmarshal response")
	}
	return &out, nil
}
