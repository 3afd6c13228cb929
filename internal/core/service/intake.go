package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/rl1809/plate-catalog/internal/core/domain"
	"github.com/rl1809/plate-catalog/internal/core/pricing"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Purchase prices are whole minor units and must fit a DECIMAL(12,2) column.
var maxPurchasePrice = decimal.RequireFromString("9999999999.99")

// AddPlate registers a plate as available. Cached for-sale results are not
// invalidated; they pick the plate up once they expire.
func (s *CatalogService) AddPlate(ctx context.Context, req domain.NewPlate) (plate domain.PricedPlate, err error) {
	ctx, span := s.tracer.Start(ctx, "catalog.add_plate", trace.WithAttributes(
		attribute.String("plate.registration", req.Registration),
	))
	defer func() { endSpan(span, err) }()

	if err := validateNewPlate(req); err != nil {
		return domain.PricedPlate{}, err
	}

	now := s.clock.Now()
	p := domain.Plate{
		ID:            uuid.NewString(),
		Registration:  req.Registration,
		Letters:       req.Letters,
		Numbers:       req.Numbers,
		PurchasePrice: req.PurchasePrice,
		Status:        domain.PlateStatusAvailable,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Add(ctx, p); err != nil {
		return domain.PricedPlate{}, fmt.Errorf("add plate %s: %w", p.Registration, err)
	}

	s.logger.Info("plate added",
		zap.String("plate_id", p.ID),
		zap.String("registration", p.Registration),
	)
	return price(p, pricing.SalePrice), nil
}

func validateNewPlate(req domain.NewPlate) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if req.PurchasePrice.IsNegative() {
		return fmt.Errorf("%w: purchase price must be zero or greater", domain.ErrValidation)
	}
	if !req.PurchasePrice.Equal(req.PurchasePrice.Truncate(2)) {
		return fmt.Errorf("%w: purchase price %s has more than two decimal places", domain.ErrValidation, req.PurchasePrice)
	}
	if req.PurchasePrice.GreaterThan(maxPurchasePrice) {
		return fmt.Errorf("%w: purchase price %s exceeds %s", domain.ErrValidation, req.PurchasePrice, maxPurchasePrice.StringFixed(2))
	}
	return nil
}
