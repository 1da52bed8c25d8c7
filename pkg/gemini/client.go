// Package gemini wraps the Google Gen AI SDK for structured JSON generation.
package gemini

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"

	"github.com/sells-group/leadgen-cli/internal/resilience"
)

// Client defines the Gemini operations used by the extractor.
type Client interface {
	// GenerateJSON sends one prompt and returns the model's JSON reply,
	// constrained to schema when it is non-nil.
	GenerateJSON(ctx context.Context, req Request) (*Response, error)
}

// Request is a single structured-output generation call.
type Request struct {
	Model             string
	SystemInstruction string
	Prompt            string
	Schema            *genai.Schema
	Temperature       *float32
}

// Response carries the raw JSON text and token accounting.
type Response struct {
	Text  string
	Model string
	Usage TokenUsage
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
}

// Config configures the SDK client.
type Config struct {
	APIKey string
	// BaseURL overrides the Gemini API base URL. Useful for proxies/testing.
	BaseURL string
}

type sdkClient struct {
	client *genai.Client
}

// NewClient creates a Gemini client for the Gemini Developer API backend.
func NewClient(ctx context.Context, cfg Config) (Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, resilience.NewConfigError("GOOGLE_GENERATIVE_AI_API_KEY", "")
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: new client")
	}
	return &sdkClient{client: client}, nil
}

func (c *sdkClient) GenerateJSON(ctx context.Context, req Request) (*Response, error) {
	gc := &genai.GenerateContentConfig{
		CandidateCount:   1,
		ResponseMIMEType: "application/json",
		ResponseSchema:   req.Schema,
		Temperature:      req.Temperature,
	}
	if req.SystemInstruction != "" {
		gc.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), gc)
	if err != nil {
		return nil, eris.Wrap(classifyErr(err), "gemini: generate content")
	}

	out := &Response{Text: resp.Text(), Model: req.Model}
	if resp.UsageMetadata != nil {
		out.Usage = TokenUsage{
			InputTokens:  int64(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int64(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	if strings.TrimSpace(out.Text) == "" {
		return nil, eris.New("gemini: empty response")
	}
	return out, nil
}

func classifyErr(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 || apiErr.Code/100 == 5 {
			return resilience.NewTransientError(err, apiErr.Code)
		}
		return err
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return resilience.NewTransientError(err, 0)
	}
	return err
}
