package entities

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundRate(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: "4684.666", want: "4684.67"},
		{raw: "4684.665", want: "4684.67"},
		{raw: "4684.664", want: "4684.66"},
		{raw: "10", want: "10.00"},
		{raw: "0.005", want: "0.01"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := RoundRate(decimal.RequireFromString(tt.raw))
			assert.Equal(t, tt.want, got.StringFixed(RatePlaces))
		})
	}
}

func TestNewRateRecord(t *testing.T) {
	now := time.Now()

	rec, err := NewRateRecord(1, decimal.RequireFromString("10.30"), now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.ID)
	assert.True(t, rec.Rate.Equal(decimal.RequireFromString("10.3")))

	_, err = NewRateRecord(2, decimal.RequireFromString("-1"), now)
	assert.ErrorIs(t, err, ErrNegativeRate)
}

func TestMark(t *testing.T) {
	cause := errors.New("connection refused")

	err := Mark(ErrStore, cause)
	assert.ErrorIs(t, err, ErrStore)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "rate store failed: connection refused", err.Error())

	assert.Equal(t, err, Mark(ErrStore, err))
	assert.NoError(t, Mark(ErrFetch, nil))
}
