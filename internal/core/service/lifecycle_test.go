package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/plate-catalog/internal/adapter/storage"
	"github.com/rl1809/plate-catalog/internal/core/domain"
	"github.com/rl1809/plate-catalog/internal/port"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Mock SaleEventPublisher
type mockPublisher struct {
	mu     sync.Mutex
	events []domain.PlateSoldEvent
	err    error
}

func (m *mockPublisher) PublishPlateSold(ctx context.Context, event domain.PlateSoldEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

// Mock PlateRepository whose writes always lose the optimistic lock
type staleRepo struct {
	*storage.MemoryAdapter
}

func (r staleRepo) Save(ctx context.Context, plate domain.Plate) error {
	return port.ErrOptimisticLock
}

func (r staleRepo) SaveWithSale(ctx context.Context, plate domain.Plate, sale domain.Sale) error {
	return port.ErrOptimisticLock
}

func seedPlate(t *testing.T, repo port.PlateRepository, registration, purchase string) domain.Plate {
	t.Helper()
	p := domain.Plate{
		ID:            uuid.NewString(),
		Registration:  registration,
		Numbers:       1,
		PurchasePrice: decimal.RequireFromString(purchase),
		Status:        domain.PlateStatusAvailable,
	}
	if err := repo.Add(context.Background(), p); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	return p
}

func statusOf(t *testing.T, repo port.PlateRepository, id string) domain.PlateStatus {
	t.Helper()
	p, err := repo.Get(context.Background(), id)
	if err != nil || p == nil {
		t.Fatalf("get %s: %v", id, err)
	}
	return p.Status
}

func TestReserve_Success(t *testing.T) {
	repo := storage.NewMemoryAdapter()
	guard := NewLifecycleGuard(repo, newFakeClock(), nil, zap.NewNop())
	plate := seedPlate(t, repo, "ABC1", "100")

	if err := guard.Reserve(context.Background(), plate.ID); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if got := statusOf(t, repo, plate.ID); got != domain.PlateStatusReserved {
		t.Errorf("expected reserved, got %s", got)
	}
}

func TestReserve_AlreadyReserved(t *testing.T) {
	repo := storage.NewMemoryAdapter()
	guard := NewLifecycleGuard(repo, newFakeClock(), nil, zap.NewNop())
	plate := seedPlate(t, repo, "ABC1", "100")

	guard.Reserve(context.Background(), plate.ID)
	err := guard.Reserve(context.Background(), plate.ID)
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got: %v", err)
	}
}

func TestRelease(t *testing.T) {
	repo := storage.NewMemoryAdapter()
	guard := NewLifecycleGuard(repo, newFakeClock(), nil, zap.NewNop())
	plate := seedPlate(t, repo, "ABC1", "100")
	ctx := context.Background()

	if err := guard.Release(ctx, plate.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("release of available plate: expected ErrInvalidTransition, got: %v", err)
	}

	guard.Reserve(ctx, plate.ID)
	if err := guard.Release(ctx, plate.ID); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if got := statusOf(t, repo, plate.ID); got != domain.PlateStatusAvailable {
		t.Errorf("expected available, got %s", got)
	}
}

func TestSell_Success(t *testing.T) {
	repo := storage.NewMemoryAdapter()
	clock := newFakeClock()
	publisher := &mockPublisher{}
	guard := NewLifecycleGuard(repo, clock, publisher, zap.NewNop())
	plate := seedPlate(t, repo, "ABC1", "100")

	sale, err := guard.Sell(context.Background(), plate.ID)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}

	if !sale.SalePrice.Equal(decimal.RequireFromString("120")) {
		t.Errorf("expected sale price 120, got %s", sale.SalePrice)
	}
	if !sale.SoldAt.Equal(clock.Now()) {
		t.Errorf("expected sale time from clock, got %v", sale.SoldAt)
	}
	if got := statusOf(t, repo, plate.ID); got != domain.PlateStatusSold {
		t.Errorf("expected sold, got %s", got)
	}

	sales, _ := repo.Sales(context.Background())
	if len(sales) != 1 || sales[0].ID != sale.ID {
		t.Errorf("expected the sale to be recorded, got %v", sales)
	}

	if len(publisher.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(publisher.events))
	}
	if publisher.events[0].Registration != "ABC1" {
		t.Errorf("unexpected event %+v", publisher.events[0])
	}
}

func TestSell_Rejected(t *testing.T) {
	tests := []struct {
		name  string
		setup func(ctx context.Context, guard *LifecycleGuard, id string)
	}{
		{
			name: "reserved",
			setup: func(ctx context.Context, guard *LifecycleGuard, id string) {
				guard.Reserve(ctx, id)
			},
		},
		{
			name: "already sold",
			setup: func(ctx context.Context, guard *LifecycleGuard, id string) {
				guard.Sell(ctx, id)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := storage.NewMemoryAdapter()
			guard := NewLifecycleGuard(repo, newFakeClock(), nil, zap.NewNop())
			plate := seedPlate(t, repo, "ABC1", "100")
			ctx := context.Background()

			tt.setup(ctx, guard, plate.ID)
			before, _ := repo.Sales(ctx)

			_, err := guard.Sell(ctx, plate.ID)
			if !errors.Is(err, domain.ErrInvalidTransition) {
				t.Errorf("expected ErrInvalidTransition, got: %v", err)
			}

			after, _ := repo.Sales(ctx)
			if len(after) != len(before) {
				t.Errorf("rejected sell recorded a sale")
			}
		})
	}
}

func TestTransitions_NotFound(t *testing.T) {
	guard := NewLifecycleGuard(storage.NewMemoryAdapter(), newFakeClock(), nil, zap.NewNop())
	ctx := context.Background()

	if err := guard.Reserve(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("reserve: expected ErrNotFound, got: %v", err)
	}
	if err := guard.Release(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("release: expected ErrNotFound, got: %v", err)
	}
	if _, err := guard.Sell(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("sell: expected ErrNotFound, got: %v", err)
	}
}

func TestTransitions_LostRace(t *testing.T) {
	repo := staleRepo{storage.NewMemoryAdapter()}
	guard := NewLifecycleGuard(repo, newFakeClock(), nil, zap.NewNop())
	plate := seedPlate(t, repo, "ABC1", "100")
	ctx := context.Background()

	if err := guard.Reserve(ctx, plate.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("reserve: expected ErrInvalidTransition, got: %v", err)
	}
	if _, err := guard.Sell(ctx, plate.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("sell: expected ErrInvalidTransition, got: %v", err)
	}
}

// Mock PlateRepository whose store is unreachable
type faultyRepo struct {
	*storage.MemoryAdapter
}

func (r faultyRepo) Get(ctx context.Context, id string) (*domain.Plate, error) {
	return nil, errors.New("connection refused")
}

func TestTransitionResult(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{fmt.Errorf("%w: plate p-1 is sold", domain.ErrInvalidTransition), "rejected"},
		{fmt.Errorf("%w: p-1", domain.ErrNotFound), "rejected"},
		{fmt.Errorf("save plate p-1: %w", errors.New("connection refused")), "error"},
	}

	for _, tt := range tests {
		if got := transitionResult(tt.err); got != tt.want {
			t.Errorf("%v: expected %s, got %s", tt.err, tt.want, got)
		}
	}
}

func TestTransitions_StoreFaultCountedAsError(t *testing.T) {
	guard := NewLifecycleGuard(faultyRepo{storage.NewMemoryAdapter()}, newFakeClock(), nil, zap.NewNop())
	errorsBefore := testutil.ToFloat64(lifecycleTransitions.WithLabelValues("reserve", "error"))
	rejectedBefore := testutil.ToFloat64(lifecycleTransitions.WithLabelValues("reserve", "rejected"))

	err := guard.Reserve(context.Background(), "p-1")
	if err == nil || errors.Is(err, domain.ErrInvalidTransition) || errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected a store error, got: %v", err)
	}

	if got := testutil.ToFloat64(lifecycleTransitions.WithLabelValues("reserve", "error")) - errorsBefore; got != 1 {
		t.Errorf("expected 1 error increment, got %v", got)
	}
	if got := testutil.ToFloat64(lifecycleTransitions.WithLabelValues("reserve", "rejected")) - rejectedBefore; got != 0 {
		t.Errorf("expected no rejected increment, got %v", got)
	}
}

func TestSell_PublishFailureKeepsSale(t *testing.T) {
	repo := storage.NewMemoryAdapter()
	publisher := &mockPublisher{err: errors.New("broker down")}
	guard := NewLifecycleGuard(repo, newFakeClock(), publisher, zap.NewNop())
	plate := seedPlate(t, repo, "ABC1", "100")

	if _, err := guard.Sell(context.Background(), plate.ID); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if got := statusOf(t, repo, plate.ID); got != domain.PlateStatusSold {
		t.Errorf("expected sold, got %s", got)
	}
}

func TestSell_Concurrent(t *testing.T) {
	repo := storage.NewMemoryAdapter()
	guard := NewLifecycleGuard(repo, newFakeClock(), nil, zap.NewNop())
	plate := seedPlate(t, repo, "ABC1", "100")

	var successCount atomic.Int32
	var wg sync.WaitGroup
	concurrency := 100

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := guard.Sell(context.Background(), plate.ID)
			if err == nil {
				successCount.Add(1)
				return
			}
			if !errors.Is(err, domain.ErrInvalidTransition) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	wg.Wait()

	// Only one should succeed
	if successCount.Load() != 1 {
		t.Errorf("expected exactly 1 success, got %d", successCount.Load())
	}
	sales, _ := repo.Sales(context.Background())
	if len(sales) != 1 {
		t.Errorf("expected 1 recorded sale, got %d", len(sales))
	}
}

func TestReserveAndSell_Concurrent(t *testing.T) {
	repo := storage.NewMemoryAdapter()
	guard := NewLifecycleGuard(repo, newFakeClock(), nil, zap.NewNop())
	plate := seedPlate(t, repo, "ABC1", "100")
	ctx := context.Background()

	var reserveErr, sellErr error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		reserveErr = guard.Reserve(ctx, plate.ID)
	}()
	go func() {
		defer wg.Done()
		_, sellErr = guard.Sell(ctx, plate.ID)
	}()
	wg.Wait()

	if (reserveErr == nil) == (sellErr == nil) {
		t.Fatalf("expected exactly one winner, reserve=%v sell=%v", reserveErr, sellErr)
	}

	status := statusOf(t, repo, plate.ID)
	if reserveErr == nil && status != domain.PlateStatusReserved {
		t.Errorf("reserve won but status is %s", status)
	}
	if sellErr == nil && status != domain.PlateStatusSold {
		t.Errorf("sell won but status is %s", status)
	}
}
