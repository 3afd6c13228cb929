package storage

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/rl1809/plate-catalog/internal/core/domain"
	"github.com/rl1809/plate-catalog/internal/core/pricing"
	"github.com/rl1809/plate-catalog/internal/port"
)

// MemoryAdapter keeps plates and sales in process. Plates are held in
// insertion order so that stable sorts keep ties in that order.
type MemoryAdapter struct {
	mu     sync.RWMutex
	plates []domain.Plate
	index  map[string]int
	sales  []domain.Sale
	seq    int64
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{index: make(map[string]int)}
}

func (m *MemoryAdapter) Get(_ context.Context, id string) (*domain.Plate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := m.index[id]
	if !ok {
		return nil, nil
	}
	plate := m.plates[i]
	return &plate, nil
}

func (m *MemoryAdapter) List(_ context.Context, filter port.ListFilter) ([]domain.Plate, error) {
	m.mu.RLock()
	matched := m.match(filter)
	m.mu.RUnlock()

	sortPlates(matched, filter.OrderBy)

	start := min(max(filter.Offset, 0), len(matched))
	end := len(matched)
	if filter.Limit > 0 {
		end = min(start+filter.Limit, len(matched))
	}
	return matched[start:end], nil
}

func (m *MemoryAdapter) Count(_ context.Context, filter port.ListFilter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.match(filter)), nil
}

func (m *MemoryAdapter) Add(_ context.Context, plate domain.Plate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.index[plate.ID]; ok {
		return fmt.Errorf("plate %s already exists", plate.ID)
	}
	m.seq++
	plate.Seq = m.seq
	m.index[plate.ID] = len(m.plates)
	m.plates = append(m.plates, plate)
	return nil
}

func (m *MemoryAdapter) Save(_ context.Context, plate domain.Plate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.save(plate)
}

func (m *MemoryAdapter) SaveWithSale(_ context.Context, plate domain.Plate, sale domain.Sale) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.save(plate); err != nil {
		return err
	}
	m.sales = append(m.sales, sale)
	return nil
}

func (m *MemoryAdapter) Sales(_ context.Context) ([]domain.Sale, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Clone(m.sales), nil
}

// save must be called with mu held.
func (m *MemoryAdapter) save(plate domain.Plate) error {
	i, ok := m.index[plate.ID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, plate.ID)
	}
	stored := m.plates[i]
	if stored.Version != plate.Version {
		return port.ErrOptimisticLock
	}

	plate.Version++
	plate.Seq = stored.Seq
	plate.CreatedAt = stored.CreatedAt
	m.plates[i] = plate
	return nil
}

// match must be called with mu held for reading.
func (m *MemoryAdapter) match(filter port.ListFilter) []domain.Plate {
	matched := make([]domain.Plate, 0, len(m.plates))
	for _, p := range m.plates {
		if filter.ExcludeReserved && p.Status == domain.PlateStatusReserved {
			continue
		}
		if filter.ExcludeSold && p.Status == domain.PlateStatusSold {
			continue
		}
		if filter.Contains != "" && !strings.Contains(p.Registration, filter.Contains) {
			continue
		}
		matched = append(matched, p)
	}
	return matched
}

func sortPlates(plates []domain.Plate, orderBy domain.SortKey) {
	var cmp func(a, b domain.Plate) int
	switch orderBy {
	case domain.SortRegistrationDescending:
		cmp = func(a, b domain.Plate) int { return strings.Compare(b.Registration, a.Registration) }
	case domain.SortSalePriceAscending:
		cmp = func(a, b domain.Plate) int {
			return pricing.SalePrice(a.PurchasePrice).Cmp(pricing.SalePrice(b.PurchasePrice))
		}
	case domain.SortSalePriceDescending:
		cmp = func(a, b domain.Plate) int {
			return pricing.SalePrice(b.PurchasePrice).Cmp(pricing.SalePrice(a.PurchasePrice))
		}
	default:
		cmp = func(a, b domain.Plate) int { return strings.Compare(a.Registration, b.Registration) }
	}
	slices.SortStableFunc(plates, cmp)
}
