package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/cost"
	"github.com/sells-group/leadgen-cli/internal/extract"
	"github.com/sells-group/leadgen-cli/internal/metrics"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/progress"
)

// LoopConfig bounds the extraction loop.
type LoopConfig struct {
	MaxAttempts int
	Timeout     time.Duration
	Backoff     time.Duration
}

func (c LoopConfig) withDefaults() LoopConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Minute
	}
	if c.Backoff < 0 {
		c.Backoff = 0
	}
	return c
}

// LoopResult is the controller's terminal state.
type LoopResult struct {
	Leads    []model.Lead
	Outcome  model.Outcome
	Attempts int
}

// Controller drives sequential extraction attempts until the target is met,
// the attempt budget is spent, or the wall-clock ceiling passes.
type Controller struct {
	extractor extract.Extractor
	cfg       LoopConfig
	reporter  *progress.Reporter
	tally     *cost.Tally
	now       func() time.Time
}

// NewController creates a Controller. tally may be nil.
func NewController(ex extract.Extractor, cfg LoopConfig, reporter *progress.Reporter, tally *cost.Tally) *Controller {
	if reporter == nil {
		reporter = progress.NewReporter(nil)
	}
	return &Controller{
		extractor: ex,
		cfg:       cfg.withDefaults(),
		reporter:  reporter,
		tally:     tally,
		now:       time.Now,
	}
}

// Run loops over the corpus until a terminal state. It never returns an
// error: extraction failures consume an attempt and the loop continues.
func (c *Controller) Run(ctx context.Context, corpus string, sources SourceSet, target int) LoopResult {
	start := c.now()
	state := NewRunState(target, sources)
	log := zap.L().With(zap.String("provider", c.extractor.Name()), zap.Int("target", target))

	attempt := 0
	finish := func(outcome model.Outcome) LoopResult {
		log.Info("pipeline: extraction loop finished",
			zap.String("outcome", string(outcome)),
			zap.Int("attempts", attempt),
			zap.Int("verified", state.Count()),
		)
		return LoopResult{Leads: state.Verified(), Outcome: outcome, Attempts: attempt}
	}

	for {
		elapsed := c.now().Sub(start)
		if elapsed > c.cfg.Timeout {
			return finish(model.OutcomeTimedOut)
		}
		if ctx.Err() != nil {
			return finish(model.OutcomeCancelled)
		}

		attempt++
		if attempt > c.cfg.MaxAttempts {
			attempt = c.cfg.MaxAttempts
			return finish(model.OutcomeExhausted)
		}

		if attempt == 1 {
			c.reporter.Step(2, "Analyzing results with %s...", providerLabel(c.extractor.Name()))
		} else {
			c.reporter.Step(2, "Found %d/%d verified leads. Searching for %d more (attempt %d)...",
				state.Count(), target, state.Remaining(), attempt)
		}

		req := extract.Request{
			Corpus:         corpus,
			ExcludeNames:   state.ExcludeNames(),
			ExcludeSources: state.ExcludeSources(),
			Count:          state.Remaining(),
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout-elapsed)
		resp, err := c.extractor.Extract(attemptCtx, req)
		cancel()

		if err != nil {
			metrics.IncExtractAttempt(c.extractor.Name(), "error")
			log.Warn("pipeline: extraction attempt failed", zap.Int("attempt", attempt), zap.Error(err))
			if ctx.Err() != nil {
				return finish(model.OutcomeCancelled)
			}
			if attempt < c.cfg.MaxAttempts {
				c.wait(ctx, c.cfg.Timeout-c.now().Sub(start))
			}
			continue
		}

		metrics.IncExtractAttempt(c.extractor.Name(), "ok")
		if c.tally != nil {
			c.tally.AddTokens(c.extractor.Model(), resp.Usage.InputTokens, resp.Usage.OutputTokens)
		}

		admitted := state.Admit(attempt, resp.Candidates)
		log.Info("pipeline: attempt complete",
			zap.Int("attempt", attempt),
			zap.Int("candidates", len(resp.Candidates)),
			zap.Int("admitted", admitted),
			zap.Int("verified", state.Count()),
		)

		if state.Sufficient() {
			return finish(model.OutcomeSufficient)
		}
	}
}

// wait sleeps for the backoff, cut short by ctx or the remaining run budget.
func (c *Controller) wait(ctx context.Context, remaining time.Duration) {
	d := c.cfg.Backoff
	if remaining < d {
		d = remaining
	}
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func providerLabel(name string) string {
	switch name {
	case "gemini":
		return "Gemini AI"
	case "anthropic":
		return "Claude"
	default:
		return name
	}
}
