package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics of the moderation core.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	CasesRecorded    *prometheus.CounterVec
	CasesReversed    *prometheus.CounterVec
	ReversalFailures *prometheus.CounterVec
	NotifyFailures   prometheus.Counter
	SweepDuration    *prometheus.HistogramVec
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CasesRecorded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "modlog_cases_recorded_total",
			Help: "Cases written by the ledger, by action",
		}, []string{"action"}),
		CasesReversed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "modlog_cases_reversed_total",
			Help: "Expired cases reversed by the scheduler, by rule",
		}, []string{"rule"}),
		ReversalFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "modlog_reversal_failures_total",
			Help: "Expired cases left pending after a failed reversal, by rule and stage",
		}, []string{"rule", "stage"}),
		NotifyFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "modlog_notify_failures_total",
			Help: "Case notifications that could not be delivered",
		}),
		SweepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "modlog_sweep_duration_seconds",
			Help:    "Duration of one expiry sweep over all guilds",
			Buckets: prometheus.DefBuckets,
		}, []string{"rule"}),
	}
}

func (m *Metrics) IncrementCasesRecorded(action string) {
	if m == nil {
		return
	}
	m.CasesRecorded.WithLabelValues(action).Inc()
}

func (m *Metrics) IncrementCasesReversed(rule string) {
	if m == nil {
		return
	}
	m.CasesReversed.WithLabelValues(rule).Inc()
}

// IncrementReversalFailures counts a failure at stage "enforce" or "store".
func (m *Metrics) IncrementReversalFailures(rule, stage string) {
	if m == nil {
		return
	}
	m.ReversalFailures.WithLabelValues(rule, stage).Inc()
}

func (m *Metrics) IncrementNotifyFailures() {
	if m == nil {
		return
	}
	m.NotifyFailures.Inc()
}

func (m *Metrics) ObserveSweep(rule string, seconds float64) {
	if m == nil {
		return
	}
	m.SweepDuration.WithLabelValues(rule).Observe(seconds)
}
