// Package metrics exposes Prometheus instruments for reconciliation work.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder groups the reconciliation metrics. A nil *Recorder is a no-op.
type Recorder struct {
	matchesCreated *prometheus.CounterVec
	matchesRemoved prometheus.Counter
	completions    *prometheus.CounterVec
	confidence     prometheus.Histogram
	importedLines  prometheus.Counter
}

// NewRecorder builds the instruments and registers them on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		matchesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reconciliation",
			Name:      "matches_created_total",
			Help:      "Match rows created, by match type.",
		}, []string{"match_type"}),
		matchesRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reconciliation",
			Name:      "matches_removed_total",
			Help:      "Match rows deleted by unmatch.",
		}),
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reconciliation",
			Name:      "completions_total",
			Help:      "Completion attempts, by outcome.",
		}, []string{"outcome"}),
		confidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "reconciliation",
			Name:      "auto_match_confidence",
			Help:      "Confidence score of auto-created matches.",
			Buckets:   []float64{50, 60, 70, 80, 90, 95, 100},
		}),
		importedLines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reconciliation",
			Name:      "statement_lines_imported_total",
			Help:      "Bank statement lines imported.",
		}),
	}
	reg.MustRegister(r.matchesCreated, r.matchesRemoved, r.completions, r.confidence, r.importedLines)
	return r
}

func (r *Recorder) MatchesCreated(matchType string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.matchesCreated.WithLabelValues(matchType).Add(float64(n))
}

func (r *Recorder) ObserveConfidence(score int) {
	if r == nil {
		return
	}
	r.confidence.Observe(float64(score))
}

func (r *Recorder) MatchesRemoved(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.matchesRemoved.Add(float64(n))
}

func (r *Recorder) Completion(outcome string) {
	if r == nil {
		return
	}
	r.completions.WithLabelValues(outcome).Inc()
}

func (r *Recorder) LinesImported(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.importedLines.Add(float64(n))
}
