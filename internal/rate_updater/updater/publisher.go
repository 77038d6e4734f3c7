package updater

import (
	"context"
	"time"
)

type Publisher interface {
	Publish(ctx context.Context, label string) error
}

type Metrics interface {
	ObserveCycle(outcome Outcome, duration time.Duration)
	SetRate(rate float64)
}

type noopMetrics struct{}

func (noopMetrics) ObserveCycle(Outcome, time.Duration) {}
func (noopMetrics) SetRate(float64) {}
