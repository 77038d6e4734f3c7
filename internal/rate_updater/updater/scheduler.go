package updater

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

type Job func(ctx context.Context)

// Scheduler runs a job at start and on every tick afterwards. The job runs on
// the scheduler goroutine, so a slow run delays the next one instead of overlapping it.
type Scheduler struct {
	interval time.Duration
	job      Job
}

func NewScheduler(interval time.Duration, job Job) *Scheduler {
	return &Scheduler{
		interval: interval,
		job:      job,
	}
}

func (s *Scheduler) Run(ctx context.Context) error {
	const op = "scheduler.Run"

	if s.interval <= 0 {
		return errors.Errorf("%s: non-positive interval %s", op, s.interval)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.job(ctx)

	for {
		select {
		case <-ticker.C:
			s.job(ctx)

		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), op)
		}
	}
}
