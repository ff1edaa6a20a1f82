package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// All price arithmetic for the checkout workflow funnels through this
// package so the rounding convention (half up) is applied in exactly
// one place. Amounts at rest and on the wire to the processor are
// integer minor units (cents).

var oneHundred = decimal.NewFromInt(100)

// DiscountedUnitPrice applies a percentage discount to a unit price in
// cents, rounding half up to the nearest cent.
func DiscountedUnitPrice(unitPriceCents, discountPercent int) (int, error) {
	if unitPriceCents < 0 {
		return 0, fmt.Errorf("unit price must be non-negative, got %d", unitPriceCents)
	}
	if discountPercent < 0 || discountPercent > 100 {
		return 0, fmt.Errorf("discount percent must be within [0,100], got %d", discountPercent)
	}

	price := decimal.NewFromInt(int64(unitPriceCents))
	multiplier := oneHundred.Sub(decimal.NewFromInt(int64(discountPercent))).Div(oneHundred)
	return int(price.Mul(multiplier).Round(0).IntPart()), nil
}

// LineTotal multiplies a discounted unit price by quantity.
func LineTotal(unitPriceCents, quantity int) (int, error) {
	if unitPriceCents < 0 {
		return 0, fmt.Errorf("unit price must be non-negative, got %d", unitPriceCents)
	}
	if quantity <= 0 {
		return 0, fmt.Errorf("quantity must be positive, got %d", quantity)
	}
	return unitPriceCents * quantity, nil
}

// ValidateChargeAmount rejects amounts the processor will not accept.
func ValidateChargeAmount(amountCents int) error {
	if amountCents <= 0 {
		return fmt.Errorf("charge amount must be positive, got %d", amountCents)
	}
	return nil
}
