package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/langowen/ratepresence/internal/entities"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// seedLockKey guards the conditional first insert across concurrent cycles.
const seedLockKey int64 = 0x72617465

type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Storage struct {
	db   DB
	pool *pgxpool.Pool
}

func NewStorage(db DB) *Storage {
	return &Storage{
		db: db,
	}
}

func InitStorage(ctx context.Context, dsn string, timeout time.Duration) (*Storage, error) {
	const op = "storage.postgres.InitStorage"

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 10 * time.Minute
	poolConfig.MaxConnIdleTime = time.Minute

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, op)
	}

	if err = Migrate(dsn); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, op)
	}

	storageBD := NewStorage(pool)
	storageBD.pool = pool

	return storageBD, nil
}

func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// GetLatest returns the row with the highest id, or nil when the table is empty.
func (s *Storage) GetLatest(ctx context.Context) (*entities.RateRecord, error) {
	const op = "storage.postgres.GetLatest"

	var (
		id        int64
		rateText  string
		updatedAt time.Time
	)

	err := s.db.QueryRow(ctx, `SELECT id, rate::text, updated_at FROM rates ORDER BY id DESC LIMIT 1`).
		Scan(&id, &rateText, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(entities.Mark(entities.ErrStore, err), op)
	}

	rate, err := decimal.NewFromString(rateText)
	if err != nil {
		return nil, errors.Wrap(entities.Mark(entities.ErrStore, err), op)
	}

	record, err := entities.NewRateRecord(id, rate, updatedAt)
	if err != nil {
		return nil, errors.Wrap(entities.Mark(entities.ErrStore, err), op)
	}

	return record, nil
}

// InsertInitial seeds the table only when it is empty. The advisory lock makes
// the emptiness check and the insert atomic against other callers.
func (s *Storage) InsertInitial(ctx context.Context, rate decimal.Decimal) (inserted bool, err error) {
	const op = "storage.postgres.InsertInitial"

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, errors.Wrap(entities.Mark(entities.ErrStore, err), op)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, seedLockKey); err != nil {
		return false, errors.Wrap(entities.Mark(entities.ErrStore, err), op)
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO rates (rate)
		SELECT $1::numeric
		WHERE NOT EXISTS (SELECT 1 FROM rates)
	`, entities.RoundRate(rate).String())
	if err != nil {
		return false, errors.Wrap(entities.Mark(entities.ErrStore, err), op)
	}

	if err = tx.Commit(ctx); err != nil {
		return false, errors.Wrap(entities.Mark(entities.ErrStore, err), op)
	}

	return tag.RowsAffected() == 1, nil
}

// UpdateLatest overwrites the row with the highest id and refreshes its timestamp.
func (s *Storage) UpdateLatest(ctx context.Context, rate decimal.Decimal) error {
	const op = "storage.postgres.UpdateLatest"

	tag, err := s.db.Exec(ctx, `
		UPDATE rates
		SET rate = $1::numeric, updated_at = now()
		WHERE id = (SELECT max(id) FROM rates)
	`, entities.RoundRate(rate).String())
	if err != nil {
		return errors.Wrap(entities.Mark(entities.ErrStore, err), op)
	}

	if tag.RowsAffected() == 0 {
		return errors.Wrap(entities.Mark(entities.ErrStore, entities.ErrNotFound), op)
	}

	return nil
}
