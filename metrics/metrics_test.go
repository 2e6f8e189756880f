package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncrementCasesRecorded("Muted")
	m.IncrementCasesRecorded("Muted")
	m.IncrementCasesReversed("unmute")
	m.IncrementReversalFailures("unban", "enforce")
	m.IncrementNotifyFailures()
	m.ObserveSweep("unmute", 0.2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CasesRecorded.WithLabelValues("Muted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CasesReversed.WithLabelValues("unmute")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReversalFailures.WithLabelValues("unban", "enforce")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotifyFailures))
	assert.Equal(t, 1, testutil.CollectAndCount(m.SweepDuration))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementCasesRecorded("Warned")
		m.IncrementCasesReversed("unban")
		m.IncrementReversalFailures("unban", "store")
		m.IncrementNotifyFailures()
		m.ObserveSweep("unban", 1)
	})
}
