package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/plate-catalog/internal/core/domain"
	"github.com/rl1809/plate-catalog/internal/core/pricing"
	"github.com/rl1809/plate-catalog/internal/port"
)

// LifecycleGuard applies reserve, release and sell transitions. It relies on
// the repository's optimistic lock so that at most one of several concurrent
// transitions on the same plate is persisted.
type LifecycleGuard struct {
	repo   port.PlateRepository
	clock  port.Clock
	events port.SaleEventPublisher
	logger *zap.Logger
}

func NewLifecycleGuard(repo port.PlateRepository, clock port.Clock, events port.SaleEventPublisher, logger *zap.Logger) *LifecycleGuard {
	return &LifecycleGuard{
		repo:   repo,
		clock:  clock,
		events: events,
		logger: logger,
	}
}

func (g *LifecycleGuard) Reserve(ctx context.Context, id string) error {
	err := g.transition(ctx, id, (*domain.Plate).Reserve)
	lifecycleTransitions.WithLabelValues("reserve", transitionResult(err)).Inc()
	return err
}

func (g *LifecycleGuard) Release(ctx context.Context, id string) error {
	err := g.transition(ctx, id, (*domain.Plate).Release)
	lifecycleTransitions.WithLabelValues("release", transitionResult(err)).Inc()
	return err
}

func (g *LifecycleGuard) Sell(ctx context.Context, id string) (domain.Sale, error) {
	sale, err := g.sell(ctx, id)
	lifecycleTransitions.WithLabelValues("sell", transitionResult(err)).Inc()
	return sale, err
}

func (g *LifecycleGuard) sell(ctx context.Context, id string) (domain.Sale, error) {
	plate, err := g.load(ctx, id)
	if err != nil {
		return domain.Sale{}, err
	}
	if err := plate.Sell(); err != nil {
		g.logger.Warn("sell rejected", zap.String("plate_id", id), zap.Error(err))
		return domain.Sale{}, err
	}

	now := g.clock.Now()
	plate.UpdatedAt = now
	sale := domain.Sale{
		ID:            uuid.NewString(),
		PlateID:       plate.ID,
		PurchasePrice: plate.PurchasePrice,
		SalePrice:     pricing.SalePrice(plate.PurchasePrice),
		SoldAt:        now,
	}

	if err := g.repo.SaveWithSale(ctx, *plate, sale); err != nil {
		return domain.Sale{}, saveError(id, err)
	}
	g.logger.Info("plate sold",
		zap.String("plate_id", id),
		zap.String("sale_id", sale.ID),
		zap.String("sale_price", sale.SalePrice.StringFixed(2)),
	)

	g.publishSold(ctx, *plate, sale)
	return sale, nil
}

func (g *LifecycleGuard) transition(ctx context.Context, id string, apply func(*domain.Plate) error) error {
	plate, err := g.load(ctx, id)
	if err != nil {
		return err
	}
	from := plate.Status
	if err := apply(plate); err != nil {
		g.logger.Warn("transition rejected", zap.String("plate_id", id), zap.Error(err))
		return err
	}
	plate.UpdatedAt = g.clock.Now()

	if err := g.repo.Save(ctx, *plate); err != nil {
		return saveError(id, err)
	}
	g.logger.Info("plate transitioned",
		zap.String("plate_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(plate.Status)),
	)
	return nil
}

func (g *LifecycleGuard) load(ctx context.Context, id string) (*domain.Plate, error) {
	plate, err := g.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get plate %s: %w", id, err)
	}
	if plate == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return plate, nil
}

// A lost optimistic lock means another transition won the race.
func saveError(id string, err error) error {
	if errors.Is(err, port.ErrOptimisticLock) {
		return fmt.Errorf("%w: plate %s was modified concurrently", domain.ErrInvalidTransition, id)
	}
	return fmt.Errorf("save plate %s: %w", id, err)
}

func (g *LifecycleGuard) publishSold(ctx context.Context, plate domain.Plate, sale domain.Sale) {
	if g.events == nil {
		return
	}
	event := domain.PlateSoldEvent{
		SaleID:        sale.ID,
		PlateID:       plate.ID,
		Registration:  plate.Registration,
		PurchasePrice: sale.PurchasePrice,
		SalePrice:     sale.SalePrice,
		SoldAt:        sale.SoldAt,
	}
	if err := g.events.PublishPlateSold(ctx, event); err != nil {
		g.logger.Error("publish plate sold event failed",
			zap.String("plate_id", plate.ID),
			zap.String("sale_id", sale.ID),
			zap.Error(err),
		)
	}
}
