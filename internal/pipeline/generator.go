package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/config"
	"github.com/sells-group/leadgen-cli/internal/cost"
	"github.com/sells-group/leadgen-cli/internal/extract"
	"github.com/sells-group/leadgen-cli/internal/metrics"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/progress"
	"github.com/sells-group/leadgen-cli/internal/resilience"
	"github.com/sells-group/leadgen-cli/internal/source"
	"github.com/sells-group/leadgen-cli/internal/store"
	"github.com/sells-group/leadgen-cli/pkg/anthropic"
	"github.com/sells-group/leadgen-cli/pkg/exa"
	"github.com/sells-group/leadgen-cli/pkg/gemini"
	"github.com/sells-group/leadgen-cli/pkg/jina"
)

// Providers builds the per-run clients. Every run gets its own clients so
// credential overrides never leak between runs.
type Providers struct {
	Search    func(apiKey string) exa.Client
	Reader    func() jina.Client
	Extractor func(ctx context.Context, apiKey string) (extract.Extractor, error)
	Store     func(ctx context.Context, dsn string) (store.Store, error)
}

// DefaultProviders wires the production clients from cfg.
func DefaultProviders(cfg *config.Config, prompts *extract.Prompts) Providers {
	return Providers{
		Search: func(apiKey string) exa.Client {
			return exa.NewClient(apiKey, exa.WithBaseURL(cfg.Exa.BaseURL))
		},
		Reader: func() jina.Client {
			return jina.NewClient(cfg.Jina.Key, jina.WithBaseURL(cfg.Jina.BaseURL))
		},
		Extractor: func(ctx context.Context, apiKey string) (extract.Extractor, error) {
			switch cfg.Extract.Provider {
			case "anthropic":
				client := anthropic.NewClient(apiKey)
				return extract.NewAnthropic(client, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens, prompts), nil
			default:
				client, err := gemini.NewClient(ctx, gemini.Config{APIKey: apiKey, BaseURL: cfg.Gemini.BaseURL})
				if err != nil {
					return nil, err
				}
				return extract.NewGemini(client, cfg.Gemini.Model, prompts), nil
			}
		},
		Store: func(ctx context.Context, dsn string) (store.Store, error) {
			st, err := store.Open(ctx, cfg.Store.Driver, dsn, store.Options{MaxConns: cfg.Store.MaxConns})
			if err != nil {
				return nil, err
			}
			if err := st.Migrate(ctx); err != nil {
				st.Close() //nolint:errcheck
				return nil, err
			}
			return st, nil
		},
	}
}

// Generator runs lead generation requests.
type Generator struct {
	cfg       *config.Config
	providers Providers
	store     store.Store
	calc      *cost.Calculator
	now       func() time.Time
}

// NewGenerator creates a Generator. st is the default datastore and may be
// nil; a request's DatabaseURL replaces it for that run.
func NewGenerator(cfg *config.Config, providers Providers, st store.Store) *Generator {
	rates := cost.DefaultRates()
	models := make(map[string]cost.ModelRate, len(cfg.Pricing.Models))
	for name, p := range cfg.Pricing.Models {
		models[name] = cost.ModelRate{Input: p.Input, Output: p.Output}
	}
	return &Generator{
		cfg:       cfg,
		providers: providers,
		store:     st,
		calc:      cost.NewCalculator(rates.Merge(models, cfg.Pricing.ExaPerRequest)),
		now:       time.Now,
	}
}

// credentials holds the keys resolved for one run.
type credentials struct {
	search string
	model  string
}

// resolveCredentials applies request overrides over configured keys.
func (g *Generator) resolveCredentials(req model.GenerateRequest) (credentials, error) {
	var creds credentials

	creds.search = firstNonEmpty(req.ExaAPIKey, g.cfg.Exa.Key)
	if creds.search == "" {
		return creds, resilience.NewConfigError("EXA_API_KEY", "")
	}

	switch g.cfg.Extract.Provider {
	case "anthropic":
		creds.model = firstNonEmpty(req.AnthropicKey, g.cfg.Anthropic.Key)
		if creds.model == "" {
			return creds, resilience.NewConfigError("ANTHROPIC_API_KEY", "")
		}
	default:
		creds.model = firstNonEmpty(req.GeminiAPIKey, g.cfg.Gemini.Key)
		if creds.model == "" {
			return creds, resilience.NewConfigError("GOOGLE_GENERATIVE_AI_API_KEY", "")
		}
	}
	return creds, nil
}

// Run executes one request, emitting progress to sink. The returned event is
// the terminal result also sent to sink. An error means the run ended with an
// error event: an invalid request, a missing credential, or a failed fetch.
func (g *Generator) Run(ctx context.Context, req model.GenerateRequest, sink progress.Sink) (model.Event, error) {
	runID := uuid.New().String()
	start := g.now()
	rep := progress.NewReporter(sink)
	log := zap.L().With(zap.String("run_id", runID))

	fail := func(err error) (model.Event, error) {
		log.Error("pipeline: run failed", zap.Error(err))
		metrics.ObserveRun("error", g.now().Sub(start).Seconds())
		rep.Error(err.Error())
		return model.Event{Type: model.EventError, Message: err.Error()}, err
	}

	if err := req.Validate(); err != nil {
		return fail(err)
	}
	target := req.Target(g.cfg.Generate.DefaultResults)

	creds, err := g.resolveCredentials(req)
	if err != nil {
		return fail(err)
	}

	extractor, err := g.providers.Extractor(ctx, creds.model)
	if err != nil {
		return fail(eris.Wrap(err, "pipeline: build extractor"))
	}

	st := g.store
	if req.DatabaseURL != "" {
		runStore, err := g.providers.Store(ctx, req.DatabaseURL)
		if err != nil {
			log.Error("pipeline: open request datastore failed, persistence disabled", zap.Error(err))
			st = nil
		} else {
			defer runStore.Close() //nolint:errcheck
			st = runStore
		}
	}

	log.Info("pipeline: run started",
		zap.Int("target", target),
		zap.Int("reference_urls", len(req.ReferenceURLs)),
		zap.String("provider", extractor.Name()),
	)
	tally := cost.NewTally(g.calc)
	defer tally.Log(runID)

	// Step 1: similarity search.
	rep.Step(1, "Searching Exa for liquidity signals...")
	var reader jina.Client
	if g.providers.Reader != nil {
		reader = g.providers.Reader()
	}
	fetcher := source.NewFetcher(g.providers.Search(creds.search), reader, source.Options{
		ResultsPerSeed: g.cfg.Exa.ResultsPerSeed,
		MaxChars:       g.cfg.Generate.MaxArticleChars,
		Concurrency:    g.cfg.Exa.Concurrency,
		RateLimitRPS:   g.cfg.Exa.RateLimitRPS,
	})
	seeds := source.Seeds(append(append([]string{}, g.cfg.Generate.ReferenceURLs...), req.ReferenceURLs...))
	corpus, err := fetcher.Fetch(ctx, seeds)
	if err != nil {
		return fail(err)
	}
	tally.AddSearch(len(seeds))
	log.Info("pipeline: corpus fetched", zap.Int("seeds", len(seeds)), zap.Int("documents", len(corpus.Documents)))
	log.Debug("pipeline: corpus sources", zap.Strings("urls", corpus.URLs()))

	// Step 2: extraction loop.
	ctrl := NewController(extractor, LoopConfig{
		MaxAttempts: g.cfg.Generate.MaxAttempts,
		Timeout:     g.cfg.Generate.Timeout(),
		Backoff:     g.cfg.Generate.Backoff(),
	}, rep, tally)
	loop := ctrl.Run(ctx, corpus.Text, corpus, target)

	partial := len(loop.Leads) < target
	note := ""
	if partial && loop.Outcome.Note() != "" {
		note = " (" + loop.Outcome.Note() + ")"
	}

	// Step 3: persistence.
	rep.Step(3, "Verified %d/%d leads%s. Saving to database...", len(loop.Leads), target, note)
	commit := NewCommitter(st).Commit(context.WithoutCancel(ctx), loop.Leads)
	metrics.AddPersisted(commit.Inserted, commit.Skipped)

	rep.Step(4, "Done!")

	result := model.Event{
		Type:   model.EventResult,
		Leads:  loop.Leads,
		ListID: commit.ListID,
		Stats: model.Stats{
			Total:    len(loop.Leads),
			Inserted: commit.Inserted,
			Skipped:  commit.Skipped,
		},
		Partial: partial,
		Outcome: loop.Outcome,
	}
	if partial {
		result.Message = partialMessage(len(loop.Leads), target)
	}
	rep.Result(result)

	metrics.ObserveRun(string(loop.Outcome), g.now().Sub(start).Seconds())
	log.Info("pipeline: run complete",
		zap.String("outcome", string(loop.Outcome)),
		zap.Int("attempts", loop.Attempts),
		zap.Int("verified", len(loop.Leads)),
		zap.String("list_id", commit.ListID),
	)
	return result, nil
}

func partialMessage(found, target int) string {
	return fmt.Sprintf("Most relevant leads generated (%d/%d found with verified sources)", found, target)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
