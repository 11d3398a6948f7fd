// Package services – fee estimation.
//
// When the authoritative processor fee cannot be read from the charge's
// balance transaction (not yet settled, API error, missing charge), the
// ledger still needs a fee figure. The estimator reproduces the processor's
// published rate: a basis-point share of the amount plus a fixed component.
package services

import "github.com/shopspring/decimal"

// FeeEstimator computes processor fees from a rate schedule. The zero value
// estimates a fee of 0.
type FeeEstimator struct {
	// Bps is the proportional fee in basis points (290 = 2.9%).
	Bps int64
	// FixedCents is the flat per-transaction component.
	FixedCents int64
}

var tenThousand = decimal.NewFromInt(10_000)

// Estimate returns round(amountCents * Bps / 10000) + FixedCents, clamped to
// be non-negative. Rounding is half away from zero, matching how the
// processor rounds its own fee lines.
func (e FeeEstimator) Estimate(amountCents int64) int64 {
	proportional := decimal.NewFromInt(amountCents).
		Mul(decimal.NewFromInt(e.Bps)).
		Div(tenThousand).
		Round(0).
		IntPart()
	fee := proportional + e.FixedCents
	if fee < 0 {
		return 0
	}
	return fee
}
