package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rl1809/plate-catalog/internal/core/domain"
)

// Revenue is recomputed from the sale records on every call.
func (s *CatalogService) Revenue(ctx context.Context) (summary domain.RevenueSummary, err error) {
	ctx, span := s.tracer.Start(ctx, "catalog.revenue")
	defer func() { endSpan(span, err) }()

	sales, err := s.repo.Sales(ctx)
	if err != nil {
		return domain.RevenueSummary{}, fmt.Errorf("list sales: %w", err)
	}

	summary = domain.RevenueSummary{
		SalesCount:   len(sales),
		TotalRevenue: decimal.Zero,
		TotalProfit:  decimal.Zero,
	}
	for _, sale := range sales {
		summary.TotalRevenue = summary.TotalRevenue.Add(sale.SalePrice)
		summary.TotalProfit = summary.TotalProfit.Add(sale.ProfitMargin())
	}
	return summary, nil
}
