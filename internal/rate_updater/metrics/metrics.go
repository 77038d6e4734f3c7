package metrics

import (
	"time"

	"github.com/langowen/ratepresence/internal/rate_updater/updater"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	CyclesTotal   *prometheus.CounterVec
	CycleDuration prometheus.Histogram
	CurrentRate   prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CyclesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_update_cycles_total",
				Help: "Rate update cycles by outcome",
			},
			[]string{"outcome"},
		),
		CycleDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rate_update_cycle_duration_seconds",
				Help:    "Time from fetch start to the end of publishing",
				Buckets: prometheus.DefBuckets,
			},
		),
		CurrentRate: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "rate_current_value",
				Help: "Last persisted rate",
			},
		),
	}
}

func (m *Metrics) ObserveCycle(outcome updater.Outcome, duration time.Duration) {
	m.CyclesTotal.WithLabelValues(string(outcome)).Inc()
	m.CycleDuration.Observe(duration.Seconds())
}

func (m *Metrics) SetRate(rate float64) {
	m.CurrentRate.Set(rate)
}
