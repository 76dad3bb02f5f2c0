package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics records ledger and analysis engine activity.
type EngineMetrics struct {
	debits      *prometheus.CounterVec
	credits     *prometheus.CounterVec
	rejections  prometheus.Counter
	aiDuration  *prometheus.HistogramVec
	aiFailures  *prometheus.CounterVec
	votesCast   *prometheus.CounterVec
	rankUpdates *prometheus.CounterVec
}

// NewEngineMetrics registers the engine metrics on the provided registerer.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	if reg == nil {
		return &EngineMetrics{}
	}
	debits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "credit_debits_total",
		Help: "Successful credit debits.",
	}, []string{"reason"})
	credits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "credit_credits_total",
		Help: "Successful credit additions.",
	}, []string{"type"})
	rejections := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "credit_debit_rejections_total",
		Help: "Debits rejected for insufficient balance.",
	})
	aiDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "analysis_invoke_duration_seconds",
		Help:    "Duration of AI analysis invocations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"model"})
	aiFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "analysis_invoke_failures_total",
		Help: "Failed AI analysis invocations.",
	}, []string{"model"})
	votesCast := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "votes_cast_total",
		Help: "Votes recorded, by target type and outcome.",
	}, []string{"target", "outcome"})
	rankUpdates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "leaderboard_rank_recomputes_total",
		Help: "Full-bucket rank recomputations, by timeframe.",
	}, []string{"timeframe"})
	reg.MustRegister(debits, credits, rejections, aiDuration, aiFailures, votesCast, rankUpdates)
	return &EngineMetrics{
		debits:      debits,
		credits:     credits,
		rejections:  rejections,
		aiDuration:  aiDuration,
		aiFailures:  aiFailures,
		votesCast:   votesCast,
		rankUpdates: rankUpdates,
	}
}

// ObserveDebit counts one successful debit.
func (m *EngineMetrics) ObserveDebit(reason string) {
	if m == nil || m.debits == nil {
		return
	}
	m.debits.WithLabelValues(normalizeLabel(reason)).Inc()
}

// ObserveCredit counts one successful credit.
func (m *EngineMetrics) ObserveCredit(txType string) {
	if m == nil || m.credits == nil {
		return
	}
	m.credits.WithLabelValues(normalizeLabel(txType)).Inc()
}

// ObserveDebitRejection counts one insufficient-credits rejection.
func (m *EngineMetrics) ObserveDebitRejection() {
	if m == nil || m.rejections == nil {
		return
	}
	m.rejections.Inc()
}

// ObserveAIInvocation records the latency of one AI call.
func (m *EngineMetrics) ObserveAIInvocation(model string, duration time.Duration) {
	if m == nil || m.aiDuration == nil {
		return
	}
	m.aiDuration.WithLabelValues(normalizeLabel(model)).Observe(duration.Seconds())
}

// ObserveAIFailure counts one failed AI call.
func (m *EngineMetrics) ObserveAIFailure(model string) {
	if m == nil || m.aiFailures == nil {
		return
	}
	m.aiFailures.WithLabelValues(normalizeLabel(model)).Inc()
}

// ObserveVote counts one vote operation.
func (m *EngineMetrics) ObserveVote(target, outcome string) {
	if m == nil || m.votesCast == nil {
		return
	}
	m.votesCast.WithLabelValues(normalizeLabel(target), normalizeLabel(outcome)).Inc()
}

// ObserveRankRecompute counts one full-bucket rank recomputation.
func (m *EngineMetrics) ObserveRankRecompute(timeframe string) {
	if m == nil || m.rankUpdates == nil {
		return
	}
	m.rankUpdates.WithLabelValues(normalizeLabel(timeframe)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
