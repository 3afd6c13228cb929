package service

import (
	"github.com/shopspring/decimal"

	"github.com/rl1809/plate-catalog/internal/core/domain"
)

type priceFunc func(purchasePrice decimal.Decimal) decimal.Decimal

// price is the single projection from a stored plate to what callers see.
func price(p domain.Plate, salePrice priceFunc) domain.PricedPlate {
	return domain.PricedPlate{
		ID:            p.ID,
		Registration:  p.Registration,
		Letters:       p.Letters,
		Numbers:       p.Numbers,
		PurchasePrice: p.PurchasePrice,
		SalePrice:     salePrice(p.PurchasePrice),
	}
}

func priceAll(plates []domain.Plate, salePrice priceFunc) []domain.PricedPlate {
	priced := make([]domain.PricedPlate, 0, len(plates))
	for _, p := range plates {
		priced = append(priced, price(p, salePrice))
	}
	return priced
}
