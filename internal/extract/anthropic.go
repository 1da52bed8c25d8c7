package extract

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/pkg/anthropic"
)

const jsonInstruction = "\n\nRespond with a single JSON object of the form {\"leads\":[{\"name\":\"\",\"company\":\"\",\"city\":\"\",\"signalType\":\"\",\"sourceLink\":\"\",\"explanation\":\"\",\"linkedinUrl\":\"\"}]} and nothing else."

// Anthropic extracts candidates with a Claude message call.
type Anthropic struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	prompts   *Prompts
}

// NewAnthropic creates a Claude-backed extractor.
func NewAnthropic(client anthropic.Client, model string, maxTokens int64, prompts *Prompts) *Anthropic {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Anthropic{client: client, model: model, maxTokens: maxTokens, prompts: prompts}
}

// Name implements Extractor.
func (a *Anthropic) Name() string { return "anthropic" }

// Model implements Extractor.
func (a *Anthropic) Model() string { return a.model }

// Extract implements Extractor.
func (a *Anthropic) Extract(ctx context.Context, req Request) (*Response, error) {
	system, err := a.prompts.System()
	if err != nil {
		return nil, err
	}
	user, err := a.prompts.User(req)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		System:    system + jsonInstruction,
		Messages:  []anthropic.Message{{Role: "user", Content: user}},
	})
	if err != nil {
		return nil, eris.Wrap(err, "extract: anthropic")
	}

	leads, err := parseLeads(resp.Text())
	if err != nil {
		return nil, err
	}
	return &Response{
		Candidates: leads,
		Usage:      Usage{InputTokens: resp.Usage.InputTokens, OutputTokens: resp.Usage.OutputTokens},
	}, nil
}
