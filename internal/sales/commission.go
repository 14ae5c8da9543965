package sales

import "github.com/shopspring/decimal"

var (
	hundred = decimal.NewFromInt(100)

	// DefaultCommissionPercentage applies when a seller has no rate of
	// their own configured.
	DefaultCommissionPercentage = decimal.New(500, -2)
)

// CalculateCommission converts a sale total and a commission percentage
// into the commission amount owed to the seller.
//
// The computation is two-stage: the rate is percentage/100 rounded to four
// decimals half-up, and the result is total multiplied by that rate rounded
// to two decimals half-up. Collapsing the stages changes the output for
// non-terminating rates, which would break reconciliation against
// historical records.
func CalculateCommission(total, percentage decimal.Decimal) decimal.Decimal {
	rate := percentage.DivRound(hundred, 4)
	return total.Mul(rate).Round(2)
}
