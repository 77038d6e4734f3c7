package updater

import (
	"context"

	"github.com/langowen/ratepresence/internal/entities"
	"github.com/shopspring/decimal"
)

type Storage interface {
	GetLatest(ctx context.Context) (*entities.RateRecord, error)
	InsertInitial(ctx context.Context, rate decimal.Decimal) (bool, error)
	UpdateLatest(ctx context.Context, rate decimal.Decimal) error
}
