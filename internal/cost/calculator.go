// Package cost estimates the USD spend of a generation run.
package cost

import (
	"sync"

	"go.uber.org/zap"
)

// Rates holds per-provider pricing configuration.
type Rates struct {
	Models        map[string]ModelRate
	ExaPerRequest float64
}

// ModelRate holds per-model token pricing (per million tokens).
type ModelRate struct {
	Input  float64
	Output float64
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Tokens computes the cost of one model call. Unknown models cost 0.
func (c *Calculator) Tokens(model string, input, output int64) float64 {
	rate, ok := c.rates.Models[model]
	if !ok {
		return 0
	}
	return (float64(input)/1e6)*rate.Input + (float64(output)/1e6)*rate.Output
}

// Search returns the cost of n similarity search requests.
func (c *Calculator) Search(n int) float64 {
	return float64(n) * c.rates.ExaPerRequest
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Models: map[string]ModelRate{
			"gemini-3-flash-preview":     {Input: 0.50, Output: 3.00},
			"gemini-2.5-flash":           {Input: 0.30, Output: 2.50},
			"claude-haiku-4-5-20251001":  {Input: 0.80, Output: 4.00},
			"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
		},
		ExaPerRequest: 0.005,
	}
}

// Merge overlays configured rates on top of r.
func (r Rates) Merge(models map[string]ModelRate, exaPerRequest float64) Rates {
	out := Rates{Models: make(map[string]ModelRate, len(r.Models)+len(models)), ExaPerRequest: r.ExaPerRequest}
	for k, v := range r.Models {
		out.Models[k] = v
	}
	for k, v := range models {
		out.Models[k] = v
	}
	if exaPerRequest > 0 {
		out.ExaPerRequest = exaPerRequest
	}
	return out
}

// Tally accumulates a single run's usage. Safe for concurrent use.
type Tally struct {
	calc *Calculator

	mu           sync.Mutex
	searches     int
	inputTokens  int64
	outputTokens int64
	usd          float64
}

// NewTally starts an empty tally priced by calc.
func NewTally(calc *Calculator) *Tally {
	return &Tally{calc: calc}
}

// AddSearch records n search requests.
func (t *Tally) AddSearch(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.searches += n
	t.usd += t.calc.Search(n)
}

// AddTokens records one model call.
func (t *Tally) AddTokens(model string, input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inputTokens += input
	t.outputTokens += output
	t.usd += t.calc.Tokens(model, input, output)
}

// USD returns the estimated spend so far.
func (t *Tally) USD() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.usd
}

// Log writes the tally with structured zap fields.
func (t *Tally) Log(runID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	zap.L().Info("cost attribution",
		zap.String("run_id", runID),
		zap.Int("search_requests", t.searches),
		zap.Int64("input_tokens", t.inputTokens),
		zap.Int64("output_tokens", t.outputTokens),
		zap.Float64("estimated_cost_usd", t.usd),
	)
}
