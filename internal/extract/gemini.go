package extract

import (
	"context"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"

	"github.com/sells-group/leadgen-cli/pkg/gemini"
)

var leadSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"leads": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"name":        {Type: genai.TypeString},
					"company":     {Type: genai.TypeString},
					"city":        {Type: genai.TypeString},
					"signalType":  {Type: genai.TypeString},
					"sourceLink":  {Type: genai.TypeString},
					"explanation": {Type: genai.TypeString},
					"linkedinUrl": {Type: genai.TypeString},
				},
				Required: []string{"name", "company", "city", "signalType", "sourceLink", "explanation", "linkedinUrl"},
			},
		},
	},
	Required: []string{"leads"},
}

// Gemini extracts candidates with a schema-constrained Gemini call.
type Gemini struct {
	client  gemini.Client
	model   string
	prompts *Prompts
}

// NewGemini creates a Gemini-backed extractor.
func NewGemini(client gemini.Client, model string, prompts *Prompts) *Gemini {
	return &Gemini{client: client, model: model, prompts: prompts}
}

// Name implements Extractor.
func (g *Gemini) Name() string { return "gemini" }

// Model implements Extractor.
func (g *Gemini) Model() string { return g.model }

// Extract implements Extractor.
func (g *Gemini) Extract(ctx context.Context, req Request) (*Response, error) {
	system, err := g.prompts.System()
	if err != nil {
		return nil, err
	}
	user, err := g.prompts.User(req)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.GenerateJSON(ctx, gemini.Request{
		Model:             g.model,
		SystemInstruction: system,
		Prompt:            user,
		Schema:            leadSchema,
	})
	if err != nil {
		return nil, eris.Wrap(err, "extract: gemini")
	}

	leads, err := parseLeads(resp.Text)
	if err != nil {
		return nil, err
	}
	return &Response{
		Candidates: leads,
		Usage:      Usage{InputTokens: resp.Usage.InputTokens, OutputTokens: resp.Usage.OutputTokens},
	}, nil
}
