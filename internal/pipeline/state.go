// Package pipeline runs one lead generation request: fetch a corpus, ask the
// model for candidates until enough pass verification, then persist them.
package pipeline

import (
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/metrics"
	"github.com/sells-group/leadgen-cli/internal/model"
)

// Rejection reasons, used as log fields and metric labels.
const (
	RejectDuplicate  = "duplicate"
	RejectIncomplete = "incomplete"
	RejectUnverified = "unverified_source"
	RejectOverTarget = "over_target"
)

// SourceSet answers exact-match membership for source URLs.
type SourceSet interface {
	Contains(url string) bool
}

// RunState is the verified lead set of one run. It is owned by the
// controller loop and never shared across goroutines.
type RunState struct {
	target      int
	sources     SourceSet
	usedNames   map[string]struct{}
	usedSources map[string]struct{}
	verified    []model.Lead
}

// NewRunState starts an empty state for target leads checked against sources.
func NewRunState(target int, sources SourceSet) *RunState {
	return &RunState{
		target:      target,
		sources:     sources,
		usedNames:   make(map[string]struct{}),
		usedSources: make(map[string]struct{}),
	}
}

// Verified returns the admitted leads in admission order.
func (s *RunState) Verified() []model.Lead { return s.verified }

// Count returns the number of admitted leads.
func (s *RunState) Count() int { return len(s.verified) }

// Remaining returns how many more leads are needed.
func (s *RunState) Remaining() int {
	if n := s.target - len(s.verified); n > 0 {
		return n
	}
	return 0
}

// Sufficient reports whether the target has been met.
func (s *RunState) Sufficient() bool { return s.Remaining() == 0 }

// ExcludeNames lists admitted names as the model returned them.
func (s *RunState) ExcludeNames() []string {
	out := make([]string, len(s.verified))
	for i, l := range s.verified {
		out[i] = l.Name
	}
	return out
}

// ExcludeSources lists admitted source links as the model returned them.
func (s *RunState) ExcludeSources() []string {
	out := make([]string, len(s.verified))
	for i, l := range s.verified {
		out[i] = l.SourceLink
	}
	return out
}

// Admit filters candidates in order and returns how many were admitted.
func (s *RunState) Admit(attempt int, candidates []model.Candidate) int {
	log := zap.L().With(zap.Int("attempt", attempt))
	admitted := 0
	for i, c := range candidates {
		if s.Remaining() == 0 {
			if dropped := len(candidates) - i; dropped > 0 {
				log.Debug("pipeline: target reached, ignoring remaining candidates", zap.Int("dropped", dropped))
				for range dropped {
					metrics.IncRejection(RejectOverTarget)
				}
			}
			break
		}
		if reason := s.check(c); reason != "" {
			log.Info("pipeline: candidate rejected",
				zap.String("reason", reason),
				zap.String("name", c.Name),
				zap.String("source", c.SourceLink),
			)
			metrics.IncRejection(reason)
			continue
		}
		s.usedNames[c.NameKey()] = struct{}{}
		s.usedSources[c.SourceKey()] = struct{}{}
		s.verified = append(s.verified, model.Lead(c))
		admitted++
	}
	return admitted
}

func (s *RunState) check(c model.Candidate) string {
	if _, ok := s.usedSources[c.SourceKey()]; ok {
		return RejectDuplicate
	}
	if _, ok := s.usedNames[c.NameKey()]; ok {
		return RejectDuplicate
	}
	if c.Name == "" || c.Company == "" || c.City == "" || c.SourceLink == "" {
		return RejectIncomplete
	}
	if !s.sources.Contains(c.SourceLink) {
		return RejectUnverified
	}
	return ""
}
