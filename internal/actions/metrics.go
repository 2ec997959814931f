package actions

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/remoteflow/remoteflow/internal/rules"
)

// Metrics counts rule firings and action outcomes. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	firings  *prometheus.CounterVec
	actions  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the executor collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		firings: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "remoteflow",
			Name:      "rule_firings_total",
			Help:      "Rule executions by trigger kind.",
		}, []string{"trigger"}),
		actions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "remoteflow",
			Name:      "actions_total",
			Help:      "Executed actions by type and outcome.",
		}, []string{"type", "outcome"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "remoteflow",
			Name:      "action_duration_seconds",
			Help:      "Action execution latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),
	}
}

func (m *Metrics) observeFiring(trigger rules.TriggerKind) {
	if m == nil {
		return
	}
	m.firings.WithLabelValues(string(trigger)).Inc()
}

func (m *Metrics) observeAction(res Result) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(string(res.Type), string(res.Outcome)).Inc()
	m.duration.WithLabelValues(string(res.Type)).Observe(res.Duration.Seconds())
}
