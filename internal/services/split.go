// internal/services/split.go
package services

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Split divides a sale between the creator and the platform.
// CreatorShare + PlatformShare always equals the sale amount.
type Split struct {
	Amount             int64           `json:"amount"`
	CreatorShare       int64           `json:"creator_share"`
	PlatformShare      int64           `json:"platform_share"`
	PlatformFeePercent decimal.Decimal `json:"platform_fee_percent"`
}

// ComputeSplit floors the creator's share and gives the platform the
// remainder, so no currency unit is created or lost to rounding.
func ComputeSplit(amount int64, feePercent decimal.Decimal) (Split, error) {
	if amount <= 0 {
		return Split{}, fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	if feePercent.IsNegative() || feePercent.GreaterThan(hundred) {
		return Split{}, fmt.Errorf("%w: got %s", ErrInvalidFeeRate, feePercent)
	}

	creator := decimal.NewFromInt(amount).
		Mul(hundred.Sub(feePercent)).
		Div(hundred).
		Floor().
		IntPart()

	return Split{
		Amount:             amount,
		CreatorShare:       creator,
		PlatformShare:      amount - creator,
		PlatformFeePercent: feePercent,
	}, nil
}
