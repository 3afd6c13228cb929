package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/rl1809/plate-catalog/internal/adapter/clock"
	"github.com/rl1809/plate-catalog/internal/adapter/handler"
	"github.com/rl1809/plate-catalog/internal/adapter/storage"
	"github.com/rl1809/plate-catalog/internal/core/domain"
	"github.com/rl1809/plate-catalog/internal/core/service"
)

const (
	registration  = "RACE1"
	purchasePrice = "100"
)

// seller is satisfied in-process by the catalog and remotely by the gRPC client.
type seller interface {
	add(ctx context.Context) (string, error)
	sell(ctx context.Context, id string) error
}

func main() {
	addr := flag.String("grpc", "", "gRPC address of a running server; empty runs in process")
	totalRequests := flag.Int("requests", 50, "concurrent sell attempts")
	flag.Parse()

	ctx := context.Background()

	var s seller
	if *addr == "" {
		catalog := service.NewCatalogService(storage.NewMemoryAdapter(), storage.NewMemoryCache(), clock.System{}, nil, zap.NewNop())
		s = localSeller{catalog: catalog}
	} else {
		conn, err := grpc.NewClient(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			log.Fatalf("failed to connect: %v", err)
		}
		defer conn.Close()
		s = remoteSeller{client: handler.NewCatalogClient(conn)}
	}

	plateID, err := s.add(ctx)
	if err != nil {
		log.Fatalf("failed to add plate: %v", err)
	}

	// Counters
	var successCount atomic.Int32
	var failCount atomic.Int32

	// Spawn concurrent requests
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < *totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			if err := s.sell(ctx, plateID); err == nil {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	// Results
	success := successCount.Load()
	fail := failCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Plate:            %s (%s)\n", registration, plateID)
	fmt.Printf("Total Requests:   %d\n", *totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	// Assertions
	if success == 1 && fail == int32(*totalRequests-1) {
		fmt.Printf("PASS: Exactly 1 sale succeeded, %d rejected\n", fail)
	} else {
		fmt.Printf("FAIL: Expected 1 success/%d fail, got %d/%d\n", *totalRequests-1, success, fail)
	}

	if local, ok := s.(localSeller); ok {
		summary, err := local.catalog.Revenue(ctx)
		if err != nil {
			log.Fatalf("failed to read revenue: %v", err)
		}
		fmt.Printf("Recorded sales:   %d (revenue %s)\n", summary.SalesCount, summary.TotalRevenue.StringFixed(2))
		if summary.SalesCount == 1 {
			fmt.Println("PASS: Exactly 1 sale recorded")
		} else {
			fmt.Printf("FAIL: Expected 1 recorded sale, got %d\n", summary.SalesCount)
		}
	}
}

type localSeller struct {
	catalog *service.CatalogService
}

func (l localSeller) add(ctx context.Context) (string, error) {
	p, err := l.catalog.AddPlate(ctx, domain.NewPlate{
		Registration:  registration,
		PurchasePrice: decimal.RequireFromString(purchasePrice),
	})
	return p.ID, err
}

func (l localSeller) sell(ctx context.Context, id string) error {
	_, err := l.catalog.SellPlate(ctx, id)
	return err
}

type remoteSeller struct {
	client *handler.CatalogClient
}

func (r remoteSeller) add(ctx context.Context) (string, error) {
	p, err := r.client.AddPlate(ctx, &domain.NewPlate{
		Registration:  registration,
		PurchasePrice: decimal.RequireFromString(purchasePrice),
	})
	if err != nil {
		return "", err
	}
	return p.ID, nil
}

func (r remoteSeller) sell(ctx context.Context, id string) error {
	_, err := r.client.SellPlate(ctx, &handler.PlateRequest{ID: id})
	return err
}
