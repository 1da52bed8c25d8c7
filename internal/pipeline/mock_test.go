package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/leadgen-cli/internal/extract"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/pkg/exa"
)

// --- Extractor Mock ---

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) Name() string  { return "gemini" }
func (m *mockExtractor) Model() string { return "gemini-3-flash-preview" }

func (m *mockExtractor) Extract(ctx context.Context, req extract.Request) (*extract.Response, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*extract.Response), args.Error(1)
}

// scriptedExtractor replays fixed responses and records every request.
type scriptedExtractor struct {
	mu       sync.Mutex
	replies  []func(ctx context.Context) (*extract.Response, error)
	requests []extract.Request
}

func (s *scriptedExtractor) Name() string  { return "gemini" }
func (s *scriptedExtractor) Model() string { return "gemini-3-flash-preview" }

func (s *scriptedExtractor) Extract(ctx context.Context, req extract.Request) (*extract.Response, error) {
	s.mu.Lock()
	n := len(s.requests)
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	if n >= len(s.replies) {
		return &extract.Response{}, nil
	}
	return s.replies[n](ctx)
}

func (s *scriptedExtractor) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func reply(cands ...model.Candidate) func(context.Context) (*extract.Response, error) {
	return func(context.Context) (*extract.Response, error) {
		return &extract.Response{Candidates: cands, Usage: extract.Usage{InputTokens: 1000, OutputTokens: 200}}, nil
	}
}

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateList(ctx context.Context, name string) (*model.List, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.List), args.Error(1)
}

func (m *mockStore) GetList(ctx context.Context, id string) (*model.List, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.List), args.Error(1)
}

func (m *mockStore) FindLead(ctx context.Context, name, company string) (string, bool, error) {
	args := m.Called(ctx, name, company)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockStore) InsertLead(ctx context.Context, lead model.Lead) (string, error) {
	args := m.Called(ctx, lead)
	return args.String(0), args.Error(1)
}

func (m *mockStore) LinkLead(ctx context.Context, listID, leadID string) error {
	args := m.Called(ctx, listID, leadID)
	return args.Error(0)
}

func (m *mockStore) ListLeads(ctx context.Context, listID string) ([]model.PersistedLead, error) {
	args := m.Called(ctx, listID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PersistedLead), args.Error(1)
}

func (m *mockStore) LeadCities(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}

// --- Search fake ---

// fakeSearch returns numResults documents per seed at <seed>/related-<n>.
type fakeSearch struct {
	err   error
	mu    sync.Mutex
	seeds []string
}

func (f *fakeSearch) FindSimilar(_ context.Context, seedURL string, numResults int) (*exa.FindSimilarResponse, error) {
	f.mu.Lock()
	f.seeds = append(f.seeds, seedURL)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	resp := &exa.FindSimilarResponse{}
	for i := range numResults {
		resp.Results = append(resp.Results, exa.Result{
			URL:   fmt.Sprintf("%s/related-%d", seedURL, i),
			Title: fmt.Sprintf("Story %d", i),
			Text:  "Founder sells company.",
		})
	}
	return resp, nil
}

// urlSet is a SourceSet over literal URLs.
type urlSet map[string]struct{}

func newURLSet(urls ...string) urlSet {
	s := make(urlSet, len(urls))
	for _, u := range urls {
		s[u] = struct{}{}
	}
	return s
}

func (s urlSet) Contains(url string) bool {
	_, ok := s[url]
	return ok
}

func candidate(name, source string) model.Candidate {
	return model.Candidate{
		Name:        name,
		Company:     name + " Holdings",
		City:        "Toronto",
		SignalType:  model.SignalExit,
		SourceLink:  source,
		Explanation: name + " sold a company.",
	}
}
