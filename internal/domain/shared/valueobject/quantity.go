package valueobject

import "github.com/shopspring/decimal"

const (
	// StorageScale is the number of fractional digits persisted for
	// quantities, costs and yields
	StorageScale int32 = 6

	// StorageIntegerDigits is the number of integer digits a persisted
	// quantity may carry
	StorageIntegerDigits = 14

	// WasteScale is the number of fractional digits persisted for waste
	// percentages
	WasteScale int32 = 2
)

var (
	hundred        = decimal.NewFromInt(100)
	storageCeiling = decimal.New(1, StorageIntegerDigits)
)

// FloorProduction rounds a production quantity down to whole units of
// finished product. Every computed production quantity (max producible,
// achievable after allocation) goes through this rule.
func FloorProduction(q decimal.Decimal) decimal.Decimal {
	if q.IsNegative() {
		return decimal.Zero
	}
	return q.Floor()
}

// ApplyWaste inflates a quantity by a waste percentage: q * (1 + w/100)
func ApplyWaste(q, wastePercentage decimal.Decimal) decimal.Decimal {
	return q.Mul(hundred.Add(wastePercentage)).Div(hundred)
}

// WithinScale reports whether q has no more than scale fractional digits.
// Trailing zeros do not count.
func WithinScale(q decimal.Decimal, scale int32) bool {
	return q.Equal(q.Truncate(scale))
}

// FitsStorage reports whether q is stored exactly: at most StorageScale
// fractional digits and at most StorageIntegerDigits integer digits.
func FitsStorage(q decimal.Decimal) bool {
	return WithinScale(q, StorageScale) && q.Abs().LessThan(storageCeiling)
}
