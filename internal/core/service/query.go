package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/plate-catalog/internal/core/domain"
	"github.com/rl1809/plate-catalog/internal/core/pricing"
	"github.com/rl1809/plate-catalog/internal/port"
)

type QueryEngine struct {
	repo port.PlateRepository
}

func NewQueryEngine(repo port.PlateRepository) *QueryEngine {
	return &QueryEngine{repo: repo}
}

// Query returns one page. Count and page are read separately, so a page may
// reflect writes that the total does not.
func (q *QueryEngine) Query(ctx context.Context, opts domain.QueryOptions) (domain.Page, error) {
	defer observe("list")()

	orderBy, err := domain.ParseSortKey(string(opts.OrderBy))
	if err != nil {
		return domain.Page{}, err
	}
	page := max(opts.PageNumber, 1)

	total, err := q.repo.Count(ctx, port.ListFilter{})
	if err != nil {
		return domain.Page{}, fmt.Errorf("count plates: %w", err)
	}

	totalPages := (total + domain.PageSize - 1) / domain.PageSize

	// Past the last page the offset may not even fit in an int.
	var plates []domain.Plate
	if page <= totalPages {
		plates, err = q.repo.List(ctx, port.ListFilter{
			OrderBy: orderBy,
			Offset:  (page - 1) * domain.PageSize,
			Limit:   domain.PageSize,
		})
		if err != nil {
			return domain.Page{}, fmt.Errorf("list plates: %w", err)
		}
	}

	return domain.Page{
		Plates:      priceAll(plates, pricing.SalePrice),
		CurrentPage: page,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrevious: page > 1,
	}, nil
}

func (q *QueryEngine) All(ctx context.Context, orderBy domain.SortKey) ([]domain.PricedPlate, error) {
	defer observe("all")()

	plates, err := q.repo.List(ctx, port.ListFilter{OrderBy: orderBy})
	if err != nil {
		return nil, fmt.Errorf("list plates: %w", err)
	}
	return priceAll(plates, pricing.SalePrice), nil
}

// Filter matches registrations containing query, case-sensitively. forSale
// drops plates that are reserved or already sold.
func (q *QueryEngine) Filter(ctx context.Context, query string, forSale bool) ([]domain.PricedPlate, error) {
	defer observe("filter")()

	plates, err := q.repo.List(ctx, port.ListFilter{
		OrderBy:         domain.SortRegistrationAscending,
		Contains:        query,
		ExcludeReserved: forSale,
		ExcludeSold:     forSale,
	})
	if err != nil {
		return nil, fmt.Errorf("filter plates: %w", err)
	}
	return priceAll(plates, pricing.SalePrice), nil
}

// QueryWithDiscount validates the promo code before reading anything.
func (q *QueryEngine) QueryWithDiscount(ctx context.Context, promoCode string) ([]domain.PricedPlate, error) {
	code, err := pricing.ParsePromoCode(promoCode)
	if err != nil {
		return nil, err
	}
	defer observe("discount")()

	plates, err := q.repo.List(ctx, port.ListFilter{
		OrderBy:         domain.SortRegistrationAscending,
		ExcludeReserved: true,
		ExcludeSold:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("list plates: %w", err)
	}
	return priceAll(plates, func(p decimal.Decimal) decimal.Decimal {
		return pricing.DiscountedPrice(p, code)
	}), nil
}

func (q *QueryEngine) Get(ctx context.Context, id string) (domain.PricedPlate, error) {
	plate, err := q.repo.Get(ctx, id)
	if err != nil {
		return domain.PricedPlate{}, fmt.Errorf("get plate %s: %w", id, err)
	}
	if plate == nil {
		return domain.PricedPlate{}, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return price(*plate, pricing.SalePrice), nil
}

func observe(query string) func() {
	start := time.Now()
	return func() {
		queryDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
	}
}
