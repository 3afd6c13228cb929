package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale is written once, in the same unit of work that marks the plate sold.
type Sale struct {
	ID            string          `json:"id"`
	PlateID       string          `json:"plateId"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"`
	SalePrice     decimal.Decimal `json:"salePrice"`
	SoldAt        time.Time       `json:"soldAt"`
}

// ProfitMargin never goes negative.
func (s Sale) ProfitMargin() decimal.Decimal {
	return decimal.Max(s.SalePrice.Sub(s.PurchasePrice), decimal.Zero)
}

type RevenueSummary struct {
	SalesCount   int             `json:"salesCount"`
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
	TotalProfit  decimal.Decimal `json:"totalProfit"`
}

// PlateSoldEvent is published after a sale has been committed.
type PlateSoldEvent struct {
	SaleID        string          `json:"saleId"`
	PlateID       string          `json:"plateId"`
	Registration  string          `json:"registration"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"`
	SalePrice     decimal.Decimal `json:"salePrice"`
	SoldAt        time.Time       `json:"soldAt"`
}
