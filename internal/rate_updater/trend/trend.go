// Package trend derives a direction indicator from two consecutive rates.
package trend

import "github.com/shopspring/decimal"

type Indicator int

const (
	Unchanged Indicator = iota
	StrongUp
	StrongDown
	MildUp
	MildDown
)

var (
	names  = [...]string{"unchanged", "strong_up", "strong_down", "mild_up", "mild_down"}
	glyphs = [...]string{"( = )", "( ↑ )", "( ↓ )", "( ↗ )", "( ↘ )"}
)

// Threshold separates strong moves from mild ones, in rate units.
func Threshold() decimal.Decimal {
	return decimal.New(5, -1)
}

func (i Indicator) valid() bool {
	return i >= Unchanged && int(i) < len(names)
}

func (i Indicator) String() string {
	if !i.valid() {
		return "unknown"
	}
	return names[i]
}

// Glyph is the symbol shown next to the rate in the published label.
func (i Indicator) Glyph() string {
	if !i.valid() {
		return "( ? )"
	}
	return glyphs[i]
}

type Trend struct {
	Difference decimal.Decimal
	Indicator  Indicator
}

// Classify compares newRate with oldRate. A missing oldRate counts as zero,
// so the first observation always reads as upward.
func Classify(newRate decimal.Decimal, oldRate *decimal.Decimal) Trend {
	diff := newRate
	if oldRate != nil {
		diff = newRate.Sub(*oldRate)
	}

	threshold := Threshold()

	var indicator Indicator
	switch {
	case diff.GreaterThan(threshold):
		indicator = StrongUp
	case diff.LessThan(threshold.Neg()):
		indicator = StrongDown
	case diff.IsPositive():
		indicator = MildUp
	case diff.IsNegative():
		indicator = MildDown
	default:
		indicator = Unchanged
	}

	return Trend{
		Difference: diff,
		Indicator:  indicator,
	}
}
