package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/rl1809/plate-catalog/internal/core/domain"
	"github.com/rl1809/plate-catalog/internal/port"
)

const tracerName = "catalog"

// CatalogService is the entry point used by every transport.
type CatalogService struct {
	repo      port.PlateRepository
	clock     port.Clock
	lifecycle *LifecycleGuard
	query     *QueryEngine
	cache     *ResultCache
	logger    *zap.Logger
	tracer    trace.Tracer
}

// NewCatalogService wires the core components. events may be nil.
func NewCatalogService(repo port.PlateRepository, cache port.CacheStore, clock port.Clock, events port.SaleEventPublisher, logger *zap.Logger) *CatalogService {
	return &CatalogService{
		repo:      repo,
		clock:     clock,
		lifecycle: NewLifecycleGuard(repo, clock, events, logger),
		query:     NewQueryEngine(repo),
		cache:     NewResultCache(cache, clock, ForSaleCacheTTL, logger),
		logger:    logger,
		tracer:    otel.Tracer(tracerName),
	}
}

func (s *CatalogService) ListPlates(ctx context.Context, opts domain.QueryOptions) (page domain.Page, err error) {
	ctx, span := s.tracer.Start(ctx, "catalog.list_plates", trace.WithAttributes(
		attribute.Int("catalog.page_number", opts.PageNumber),
		attribute.String("catalog.order_by", string(opts.OrderBy)),
	))
	defer func() { endSpan(span, err) }()

	return s.query.Query(ctx, opts)
}

func (s *CatalogService) ListPlatesOrderedByPrice(ctx context.Context) (plates []domain.PricedPlate, err error) {
	ctx, span := s.tracer.Start(ctx, "catalog.list_plates_ordered_by_price")
	defer func() { endSpan(span, err) }()

	return s.query.All(ctx, domain.SortSalePriceAscending)
}

func (s *CatalogService) FilterPlates(ctx context.Context, query string) (plates []domain.PricedPlate, err error) {
	ctx, span := s.tracer.Start(ctx, "catalog.filter_plates", trace.WithAttributes(
		attribute.String("catalog.query", query),
	))
	defer func() { endSpan(span, err) }()

	return s.query.Filter(ctx, query, false)
}

// FilterPlatesForSale may serve results up to ForSaleCacheTTL old.
func (s *CatalogService) FilterPlatesForSale(ctx context.Context, query string) (plates []domain.PricedPlate, err error) {
	ctx, span := s.tracer.Start(ctx, "catalog.filter_plates_for_sale", trace.WithAttributes(
		attribute.String("catalog.query", query),
	))
	defer func() { endSpan(span, err) }()

	return s.cache.GetOrCompute(ctx, query, func(ctx context.Context) ([]domain.PricedPlate, error) {
		return s.query.Filter(ctx, query, true)
	})
}

func (s *CatalogService) ApplyDiscount(ctx context.Context, promoCode string) (plates []domain.PricedPlate, err error) {
	ctx, span := s.tracer.Start(ctx, "catalog.apply_discount", trace.WithAttributes(
		attribute.String("catalog.promo_code", promoCode),
	))
	defer func() { endSpan(span, err) }()

	return s.query.QueryWithDiscount(ctx, promoCode)
}

func (s *CatalogService) GetPlate(ctx context.Context, id string) (plate domain.PricedPlate, err error) {
	ctx, span := s.tracer.Start(ctx, "catalog.get_plate", trace.WithAttributes(
		attribute.String("plate.id", id),
	))
	defer func() { endSpan(span, err) }()

	return s.query.Get(ctx, id)
}

func (s *CatalogService) ReservePlate(ctx context.Context, id string) (err error) {
	ctx, span := s.tracer.Start(ctx, "catalog.reserve_plate", trace.WithAttributes(
		attribute.String("plate.id", id),
	))
	defer func() { endSpan(span, err) }()

	return s.lifecycle.Reserve(ctx, id)
}

func (s *CatalogService) ReleasePlate(ctx context.Context, id string) (err error) {
	ctx, span := s.tracer.Start(ctx, "catalog.release_plate", trace.WithAttributes(
		attribute.String("plate.id", id),
	))
	defer func() { endSpan(span, err) }()

	return s.lifecycle.Release(ctx, id)
}

func (s *CatalogService) SellPlate(ctx context.Context, id string) (sale domain.Sale, err error) {
	ctx, span := s.tracer.Start(ctx, "catalog.sell_plate", trace.WithAttributes(
		attribute.String("plate.id", id),
	))
	defer func() { endSpan(span, err) }()

	sale, err = s.lifecycle.Sell(ctx, id)
	if err == nil {
		span.SetAttributes(attribute.String("sale.price", sale.SalePrice.StringFixed(2)))
	}
	return sale, err
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
