package billing

import "github.com/shopspring/decimal"

// =============================================================================
// MONEY - All amounts are decimal euros; floats exist only at the API edge
// =============================================================================

// Money is a decimal euro amount. Prices come out of configuration and
// enrollment records already rounded to cents; computed totals are rounded
// to cents only when a discount percentage introduces sub-cent precision.
type Money = decimal.Decimal

var zeroMoney = decimal.Zero

// MoneyFromFloat converts an API/storage float into Money.
func MoneyFromFloat(f float64) Money { return decimal.NewFromFloat(f) }

// MustMoney parses a decimal string and panics on malformed input.
// Use only for literals in tests and scenario seeds.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic("billing: bad money literal: " + s)
	}
	return d
}

// Percent is a percentage expressed as its human value (15 = 15%).
type Percent = decimal.Decimal

var hundred = decimal.NewFromInt(100)

// ApplyPercent returns amount reduced by pct, rounded to cents.
// ApplyPercent(100, 15) = 85.00.
func ApplyPercent(amount Money, pct Percent) Money {
	return amount.Sub(PercentOf(amount, pct)).Round(2)
}

// PercentOf returns pct of amount, rounded to cents.
func PercentOf(amount Money, pct Percent) Money {
	return amount.Mul(pct).Div(hundred).Round(2)
}

// GrossFromNet reconstructs the pre-discount amount from a stored
// net-of-discount amount: net / (1 - pct/100). Returns net unchanged when
// pct is zero or would divide by zero (a 100% discount stores no usable
// gross price).
func GrossFromNet(net Money, pct Percent) Money {
	if pct.IsZero() {
		return net
	}
	factor := decimal.NewFromInt(1).Sub(pct.Div(hundred))
	if factor.IsZero() || factor.IsNegative() {
		return net
	}
	return net.Div(factor)
}
