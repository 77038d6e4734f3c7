package metrics

import (
	"testing"
	"time"

	"github.com/langowen/ratepresence/internal/rate_updater/updater"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveCycle(updater.OutcomePublished, 20*time.Millisecond)
	m.ObserveCycle(updater.OutcomePublished, 30*time.Millisecond)
	m.ObserveCycle(updater.OutcomeFetchFailed, time.Millisecond)
	m.SetRate(4684.67)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CyclesTotal.WithLabelValues(string(updater.OutcomePublished))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CyclesTotal.WithLabelValues(string(updater.OutcomeFetchFailed))))
	assert.Equal(t, 4684.67, testutil.ToFloat64(m.CurrentRate))
}
