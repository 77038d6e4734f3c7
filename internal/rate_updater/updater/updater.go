package updater

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/langowen/ratepresence/internal/entities"
	"github.com/langowen/ratepresence/internal/rate_updater/trend"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const DefaultLabelFormat = "$ %s %s"

type State int32

const (
	Idle State = iota
	Fetching
	Reconciling
	Persisting
	Publishing
)

var stateNames = [...]string{"idle", "fetching", "reconciling", "persisting", "publishing"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

type Outcome string

const (
	OutcomePublished     Outcome = "published"
	OutcomePublishFailed Outcome = "publish_failed"
	OutcomeSkipped       Outcome = "publish_skipped"
	OutcomeFetchFailed   Outcome = "fetch_failed"
	OutcomeStoreFailed   Outcome = "store_failed"
)

// Result describes one cycle that reached the store.
type Result struct {
	CycleID    string
	Rate       decimal.Decimal
	Trend      trend.Trend
	Label      string
	Inserted   bool
	Outcome    Outcome
	PublishErr error
	At         time.Time
}

type Updater struct {
	source      RateSource
	storage     Storage
	publisher   Publisher
	metrics     Metrics
	labelFormat string
	now         func() time.Time

	state atomic.Int32

	mu   sync.RWMutex
	last *Result
}

type Option func(u *Updater)

// WithPublisher sets where labels go. Without one the updater only fetches and persists.
func WithPublisher(p Publisher) Option {
	return func(u *Updater) {
		u.publisher = p
	}
}

func WithMetrics(m Metrics) Option {
	return func(u *Updater) {
		u.metrics = m
	}
}

func WithLabelFormat(format string) Option {
	return func(u *Updater) {
		if format != "" {
			u.labelFormat = format
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(u *Updater) {
		u.now = now
	}
}

func NewUpdater(source RateSource, storage Storage, opts ...Option) *Updater {
	u := &Updater{
		source:      source,
		storage:     storage,
		metrics:     noopMetrics{},
		labelFormat: DefaultLabelFormat,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(u)
	}

	return u
}

// Run executes a single fetch, reconcile, persist and publish cycle.
// A returned error means nothing was persisted or published for this cycle.
// A publish failure is reported through Result.PublishErr instead.
func (u *Updater) Run(ctx context.Context) (*Result, error) {
	const op = "updater.Run"

	cycleID := uuid.NewString()
	log := slog.With("op", op, "cycle_id", cycleID)
	start := u.now()

	defer u.setState(Idle)

	u.setState(Fetching)
	raw, err := u.source.Fetch(ctx)
	if err != nil {
		u.metrics.ObserveCycle(OutcomeFetchFailed, u.now().Sub(start))
		return nil, errors.Wrap(entities.Mark(entities.ErrFetch, err), op)
	}
	rate := entities.RoundRate(raw)
	log.Debug("rate fetched", "raw", raw.String(), "rate", rate.StringFixed(entities.RatePlaces))

	u.setState(Reconciling)
	latest, err := u.storage.GetLatest(ctx)
	if err != nil {
		u.metrics.ObserveCycle(OutcomeStoreFailed, u.now().Sub(start))
		return nil, errors.Wrap(entities.Mark(entities.ErrStore, err), op)
	}

	var oldRate *decimal.Decimal
	if latest != nil {
		oldRate = &latest.Rate
		log.Debug("old rate retrieved", "rate", latest.Rate.StringFixed(entities.RatePlaces))
	}
	tr := trend.Classify(rate, oldRate)

	u.setState(Persisting)
	inserted, err := u.persist(ctx, rate, latest == nil)
	if err != nil {
		u.metrics.ObserveCycle(OutcomeStoreFailed, u.now().Sub(start))
		return nil, errors.Wrap(entities.Mark(entities.ErrStore, err), op)
	}
	if latest == nil && !inserted {
		// The stored seed wins; report it instead of the value that was not written.
		seeded, err := u.storage.GetLatest(ctx)
		if err != nil {
			u.metrics.ObserveCycle(OutcomeStoreFailed, u.now().Sub(start))
			return nil, errors.Wrap(entities.Mark(entities.ErrStore, err), op)
		}
		if seeded != nil {
			rate = seeded.Rate
			tr = trend.Classify(rate, nil)
		}
		log.Info("initial rate already seeded by a concurrent cycle", "rate", rate.StringFixed(entities.RatePlaces))
	}
	u.metrics.SetRate(rate.InexactFloat64())

	result := &Result{
		CycleID:  cycleID,
		Rate:     rate,
		Trend:    tr,
		Label:    u.FormatLabel(rate, tr.Indicator),
		Inserted: inserted,
		At:       u.now(),
	}

	u.setState(Publishing)
	outcome := u.publish(ctx, log, result)
	result.Outcome = outcome

	u.remember(result)
	u.metrics.ObserveCycle(outcome, u.now().Sub(start))

	log.Info("rate updated",
		"label", result.Label,
		"trend", tr.Indicator.String(),
		"difference", tr.Difference.String(),
		"outcome", string(outcome),
	)

	return result, nil
}

// Tick runs a cycle and logs its failure. It is the scheduler job.
func (u *Updater) Tick(ctx context.Context) {
	if _, err := u.Run(ctx); err != nil {
		slog.Error("rate update cycle aborted", "error", err)
	}
}

func (u *Updater) persist(ctx context.Context, rate decimal.Decimal, first bool) (bool, error) {
	if first {
		slog.Info("no old rate found, creating new entry", "rate", rate.StringFixed(entities.RatePlaces))
		return u.storage.InsertInitial(ctx, rate)
	}

	return false, u.storage.UpdateLatest(ctx, rate)
}

func (u *Updater) publish(ctx context.Context, log *slog.Logger, result *Result) Outcome {
	if u.publisher == nil {
		log.Debug("publisher not configured, label kept local", "label", result.Label)
		return OutcomeSkipped
	}

	if err := u.publisher.Publish(ctx, result.Label); err != nil {
		result.PublishErr = entities.Mark(entities.ErrPublish, err)
		log.Warn("failed to publish label", "label", result.Label, "error", err)
		return OutcomePublishFailed
	}

	return OutcomePublished
}

// FormatLabel renders the rate and the indicator glyph with the configured format.
func (u *Updater) FormatLabel(rate decimal.Decimal, indicator trend.Indicator) string {
	return fmt.Sprintf(u.labelFormat, rate.StringFixed(entities.RatePlaces), indicator.Glyph())
}

func (u *Updater) State() State {
	return State(u.state.Load())
}

func (u *Updater) setState(s State) {
	prev := State(u.state.Swap(int32(s)))
	if prev != s {
		slog.Debug("cycle state changed", "from", prev.String(), "to", s.String())
	}
}

// LastResult returns the most recent cycle that reached the store, or nil.
func (u *Updater) LastResult() *Result {
	u.mu.RLock()
	defer u.mu.RUnlock()

	return u.last
}

func (u *Updater) remember(r *Result) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.last = r
}
