// Package extract asks a language model for structured lead candidates drawn
// from a corpus of articles.
package extract

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// Extractor turns a corpus into candidate leads. Implementations return the
// model's candidates as given; verification happens downstream.
type Extractor interface {
	Name() string
	Model() string
	Extract(ctx context.Context, req Request) (*Response, error)
}

// Request is one extraction attempt.
type Request struct {
	// Corpus is the delimited article text shared by every attempt of a run.
	Corpus string
	// ExcludeNames and ExcludeSources list leads already verified this run.
	ExcludeNames   []string
	ExcludeSources []string
	// Count is how many new candidates to ask for.
	Count int
}

// Response holds the parsed candidates and token accounting.
type Response struct {
	Candidates []model.Candidate
	Usage      Usage
}

// Usage tracks token consumption of a single call.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

type leadsEnvelope struct {
	Leads []model.Candidate `json:"leads"`
}

// parseLeads decodes a {"leads":[...]} reply, tolerating markdown code fences
// and a bare top-level array.
func parseLeads(text string) ([]model.Candidate, error) {
	text = stripFences(text)
	if text == "" {
		return nil, eris.New("extract: empty model reply")
	}

	if strings.HasPrefix(text, "[") {
		var arr []model.Candidate
		if err := json.Unmarshal([]byte(text), &arr); err != nil {
			return nil, eris.Wrap(err, "extract: parse candidate array")
		}
		return arr, nil
	}

	var env leadsEnvelope
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		// Models sometimes wrap JSON in prose; fall back to the outermost object.
		start, end := strings.Index(text, "{"), strings.LastIndex(text, "}")
		if start < 0 || end <= start {
			return nil, eris.Wrap(err, "extract: parse candidates")
		}
		if err2 := json.Unmarshal([]byte(text[start:end+1]), &env); err2 != nil {
			return nil, eris.Wrap(err2, "extract: parse candidates")
		}
	}
	return env.Leads, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
