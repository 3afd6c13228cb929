package port

import (
	"context"

	"github.com/rl1809/plate-catalog/internal/core/domain"
)

type SaleEventPublisher interface {
	PublishPlateSold(ctx context.Context, event domain.PlateSoldEvent) error
}
