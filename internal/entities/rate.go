package entities

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// RatePlaces is the precision of the rates.rate column.
const RatePlaces = 2

type RateRecord struct {
	ID        int64
	Rate      decimal.Decimal
	UpdatedAt time.Time
}

func NewRateRecord(id int64, rate decimal.Decimal, updatedAt time.Time) (*RateRecord, error) {
	if rate.IsNegative() {
		return nil, errors.Wrapf(ErrNegativeRate, "record %d", id)
	}

	record := &RateRecord{
		ID:        id,
		Rate:      rate,
		UpdatedAt: updatedAt,
	}
	return record, nil
}

// RoundRate rounds half away from zero at the hundredths place,
// which is half-up for the non-negative values a rate can hold.
func RoundRate(rate decimal.Decimal) decimal.Decimal {
	return rate.Round(RatePlaces)
}
