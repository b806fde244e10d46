// Package commission computes the service fee charged on balance
// movements. It is a pure in-process calculation with no I/O; callers
// that cannot tolerate a failure treat the commission as zero rather
// than fail the primary operation.
package commission

import (
	"github.com/shopspring/decimal"

	"capypay/internal/model"
)

// Per-tier commission rates. Unknown tiers fall back to the standard rate.
var tierRates = map[model.Tier]decimal.Decimal{
	model.TierStandard: decimal.NewFromFloat(0.05),
	model.TierPremium:  decimal.NewFromFloat(0.02),
}

// ServiceFeeRate is the flat rate applied to cafeteria orders. It is
// the single source of truth for any client-side preview.
var ServiceFeeRate = decimal.NewFromFloat(0.05)

// Calculate returns the commission for a transfer of amount by an
// account of the given tier. The result is rounded to two decimal
// places. Returns model.ErrInvalidAmount for non-positive amounts.
func Calculate(amount decimal.Decimal, tier model.Tier) (decimal.Decimal, error) {
	if amount.Sign() <= 0 {
		return decimal.Zero, model.ErrInvalidAmount
	}
	rate, ok := tierRates[tier]
	if !ok {
		rate = tierRates[model.TierStandard]
	}
	return amount.Mul(rate).Round(2), nil
}

// OrderFee returns the rounded service fee for a cafeteria order subtotal.
func OrderFee(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(ServiceFeeRate).Round(0)
}
