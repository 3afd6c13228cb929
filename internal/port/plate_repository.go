package port

import (
	"context"
	"errors"

	"github.com/rl1809/plate-catalog/internal/core/domain"
)

// ErrOptimisticLock is returned by Save and SaveWithSale when the stored
// version no longer matches the version that was read.
var ErrOptimisticLock = errors.New("optimistic lock conflict")

// ListFilter selects and orders plates. A zero Limit means no limit.
type ListFilter struct {
	OrderBy         domain.SortKey
	Contains        string // case-sensitive substring of the registration
	ExcludeReserved bool
	ExcludeSold     bool
	Offset          int
	Limit           int
}

type PlateRepository interface {
	// Get returns nil, nil when no plate has the given id
	Get(ctx context.Context, id string) (*domain.Plate, error)

	// List returns plates ordered by filter.OrderBy, ties broken by insertion order
	List(ctx context.Context, filter ListFilter) ([]domain.Plate, error)

	// Count ignores Offset and Limit
	Count(ctx context.Context, filter ListFilter) (int, error)

	// Add inserts a new plate and assigns its insertion sequence
	Add(ctx context.Context, plate domain.Plate) error

	// Save updates the plate if its version is unchanged since it was read
	Save(ctx context.Context, plate domain.Plate) error

	// SaveWithSale applies Save and appends the sale atomically
	SaveWithSale(ctx context.Context, plate domain.Plate, sale domain.Sale) error

	// Sales returns every recorded sale, oldest first
	Sales(ctx context.Context) ([]domain.Sale, error)
}
