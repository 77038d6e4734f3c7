package updater

import (
	"context"

	"github.com/shopspring/decimal"
)

type RateSource interface {
	Fetch(ctx context.Context) (decimal.Decimal, error)
}
