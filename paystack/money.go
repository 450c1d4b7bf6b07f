package paystack

import "github.com/shopspring/decimal"

// Paystack reports amounts in kobo; the ledger stores naira. Every conversion
// between the two happens here so no call site grows its own off-by-100 bug.

// MinorUnitTolerance absorbs sub-kobo rounding in provider reports. Anything
// past one kobo is a real mismatch.
const MinorUnitTolerance = 1

const minorUnitsPerMajor = 100

// ToMinorUnits converts a major-unit ledger amount to kobo.
func ToMinorUnits(major decimal.Decimal) int64 {
	return major.Mul(decimal.NewFromInt(minorUnitsPerMajor)).Round(0).IntPart()
}

// ToMajorUnits converts a kobo amount reported by the gateway to naira.
func ToMajorUnits(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Div(decimal.NewFromInt(minorUnitsPerMajor))
}

// AmountWithinTolerance reports whether a claimed minor-unit settlement
// matches a major-unit order total.
func AmountWithinTolerance(totalMajor decimal.Decimal, claimedMinor int64) bool {
	expected := ToMinorUnits(totalMajor)
	diff := expected - claimedMinor
	if diff < 0 {
		diff = -diff
	}
	return diff <= MinorUnitTolerance
}
