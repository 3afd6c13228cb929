// Package pricing turns purchase prices into sale prices.
//
// All amounts are rounded to two decimal places with half-away-from-zero
// rounding. Promotional codes may never take more than 10% off the
// undiscounted sale price: a discount that would breach that floor is voided
// and the undiscounted price is charged instead. With the current constants
// this means PERCENTOFF (15% off) never applies, and DISCOUNT (25 off) only
// applies once the sale price reaches 250.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rl1809/plate-catalog/internal/core/domain"
)

type PromoCode string

const (
	PromoDiscount   PromoCode = "DISCOUNT"
	PromoPercentOff PromoCode = "PERCENTOFF"
)

const minorUnits = 2

var (
	markup           = decimal.RequireFromString("1.20")
	flatDiscount     = decimal.NewFromInt(25)
	percentOffFactor = decimal.RequireFromString("0.85")
	floorFactor      = decimal.RequireFromString("0.90")
)

// ParsePromoCode is the only way to obtain a PromoCode from caller input.
func ParsePromoCode(s string) (PromoCode, error) {
	switch PromoCode(s) {
	case PromoDiscount, PromoPercentOff:
		return PromoCode(s), nil
	}
	return "", fmt.Errorf("%w: %q", domain.ErrInvalidPromoCode, s)
}

func SalePrice(purchasePrice decimal.Decimal) decimal.Decimal {
	return purchasePrice.Mul(markup).Round(minorUnits)
}

// DiscountedPrice panics on a code that did not come from ParsePromoCode.
func DiscountedPrice(purchasePrice decimal.Decimal, code PromoCode) decimal.Decimal {
	base := SalePrice(purchasePrice)

	var candidate decimal.Decimal
	switch code {
	case PromoDiscount:
		candidate = base.Sub(flatDiscount)
	case PromoPercentOff:
		candidate = base.Mul(percentOffFactor)
	default:
		panic(fmt.Sprintf("pricing: unknown promo code %q", code))
	}
	candidate = candidate.Round(minorUnits)

	if candidate.LessThan(base.Mul(floorFactor)) {
		return base
	}
	return candidate
}
