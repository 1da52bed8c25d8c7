// Package metrics exposes Prometheus collectors for the lead generation pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "leadgen"

	// Labels
	statusLabel   = "status"
	providerLabel = "provider"
	resultLabel   = "result"
	reasonLabel   = "reason"
	outcomeLabel  = "outcome"
)

var searchRequestsMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "search_requests_total",
		Help:      "number of similarity search requests partitioned by status",
	},
	[]string{statusLabel},
)

var extractAttemptsMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "extract_attempts_total",
		Help:      "number of extraction attempts partitioned by provider and result",
	},
	[]string{providerLabel, resultLabel},
)

var candidateRejectionsMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "candidate_rejections_total",
		Help:      "number of extracted candidates dropped by the verification filter",
	},
	[]string{reasonLabel},
)

var runsMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "number of completed generation runs partitioned by outcome",
	},
	[]string{outcomeLabel},
)

var runDurationMetric = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "wall-clock duration of generation runs",
		Buckets:   []float64{5, 15, 30, 60, 120, 180, 300},
	},
)

var leadsPersistedMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "leads_persisted_total",
		Help:      "number of leads committed partitioned by inserted or skipped",
	},
	[]string{resultLabel},
)

// IncSearchRequest records one similarity search call.
func IncSearchRequest(status string) {
	searchRequestsMetric.With(prometheus.Labels{statusLabel: status}).Inc()
}

// IncExtractAttempt records one extraction attempt.
func IncExtractAttempt(provider, result string) {
	extractAttemptsMetric.With(prometheus.Labels{providerLabel: provider, resultLabel: result}).Inc()
}

// IncRejection records one filtered candidate.
func IncRejection(reason string) {
	candidateRejectionsMetric.With(prometheus.Labels{reasonLabel: reason}).Inc()
}

// ObserveRun records a finished run.
func ObserveRun(outcome string, seconds float64) {
	runsMetric.With(prometheus.Labels{outcomeLabel: outcome}).Inc()
	runDurationMetric.Observe(seconds)
}

// AddPersisted records commit counters.
func AddPersisted(inserted, skipped int) {
	leadsPersistedMetric.With(prometheus.Labels{resultLabel: "inserted"}).Add(float64(inserted))
	leadsPersistedMetric.With(prometheus.Labels{resultLabel: "skipped"}).Add(float64(skipped))
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(searchRequestsMetric)
	prometheus.MustRegister(extractAttemptsMetric)
	prometheus.MustRegister(candidateRejectionsMetric)
	prometheus.MustRegister(runsMetric)
	prometheus.MustRegister(runDurationMetric)
	prometheus.MustRegister(leadsPersistedMetric)
	prometheus.MustRegister(requestsMetric)
	prometheus.MustRegister(latencyMetric)
}
