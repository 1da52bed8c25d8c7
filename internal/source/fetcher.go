package source

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadgen-cli/internal/metrics"
	"github.com/sells-group/leadgen-cli/pkg/exa"
	"github.com/sells-group/leadgen-cli/pkg/jina"
)

// Options tunes the fetcher. Zero values fall back to defaults.
type Options struct {
	ResultsPerSeed int
	MaxChars       int
	Concurrency    int
	RateLimitRPS   float64
}

func (o Options) withDefaults() Options {
	if o.ResultsPerSeed <= 0 {
		o.ResultsPerSeed = 5
	}
	if o.MaxChars <= 0 {
		o.MaxChars = 1500
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 5
	}
	if o.RateLimitRPS <= 0 {
		o.RateLimitRPS = 5
	}
	return o
}

// Fetcher runs one similarity search per seed and merges the results.
type Fetcher struct {
	exa     exa.Client
	reader  jina.Client
	opts    Options
	limiter *rate.Limiter
}

// NewFetcher creates a Fetcher. reader may be nil, which disables text
// backfill for results that arrive without a body.
func NewFetcher(client exa.Client, reader jina.Client, opts Options) *Fetcher {
	opts = opts.withDefaults()
	return &Fetcher{
		exa:     client,
		reader:  reader,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.RateLimitRPS), opts.Concurrency),
	}
}

// Fetch queries every seed and returns the merged corpus. Documents are
// ordered by seed, then by rank within the seed, regardless of which request
// finished first. Any search error aborts the fetch.
func (f *Fetcher) Fetch(ctx context.Context, seeds []string) (*Corpus, error) {
	perSeed := make([][]Document, len(seeds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.opts.Concurrency)

	for i, seed := range seeds {
		g.Go(func() error {
			docs, err := f.fetchSeed(gctx, i, seed)
			if err != nil {
				return err
			}
			perSeed[i] = docs
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var docs []Document
	for _, d := range perSeed {
		docs = append(docs, d...)
	}

	zap.L().Info("source: corpus assembled",
		zap.Int("seeds", len(seeds)),
		zap.Int("documents", len(docs)),
	)
	return NewCorpus(docs), nil
}

func (f *Fetcher) fetchSeed(ctx context.Context, seedIdx int, seed string) ([]Document, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "source: rate limit wait")
	}

	resp, err := f.exa.FindSimilar(ctx, seed, f.opts.ResultsPerSeed)
	if err != nil {
		metrics.IncSearchRequest("error")
		return nil, eris.Wrapf(err, "source: find similar for seed %d", seedIdx+1)
	}
	metrics.IncSearchRequest("ok")

	docs := make([]Document, 0, len(resp.Results))
	for rank, r := range resp.Results {
		text := r.Text
		if text == "" {
			text = f.backfill(ctx, r.URL)
		}
		docs = append(docs, Document{
			Index: seedIdx*f.opts.ResultsPerSeed + rank + 1,
			URL:   r.URL,
			Title: r.Title,
			Text:  truncateRunes(text, f.opts.MaxChars),
			Seed:  seed,
		})
	}
	return docs, nil
}

func (f *Fetcher) backfill(ctx context.Context, url string) string {
	if f.reader == nil {
		return ""
	}
	page, err := f.reader.Read(ctx, url)
	if err != nil {
		zap.L().Warn("source: text backfill failed", zap.String("url", url), zap.Error(err))
		return ""
	}
	return page.Content
}
