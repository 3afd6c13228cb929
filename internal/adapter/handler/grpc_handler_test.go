package handler

import (
	"context"
	"net"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/rl1809/plate-catalog/internal/core/domain"
	"github.com/rl1809/plate-catalog/internal/core/service"
)

func newTestClient(t *testing.T, catalog *service.CatalogService) *CatalogClient {
	t.Helper()

	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	RegisterCatalogServer(srv, NewGRPCHandler(catalog, zap.NewNop()))
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return NewCatalogClient(conn)
}

func TestGRPC_AddAndSell(t *testing.T) {
	client := newTestClient(t, newTestCatalog(t))
	ctx := context.Background()

	plate, err := client.AddPlate(ctx, &domain.NewPlate{
		Registration:  "ABC123",
		PurchasePrice: decimal.RequireFromString("100"),
	})
	if err != nil {
		t.Fatalf("AddPlate failed: %v", err)
	}
	if !plate.SalePrice.Equal(decimal.NewFromInt(120)) {
		t.Errorf("expected sale price 120, got %s", plate.SalePrice)
	}

	if _, err := client.ReservePlate(ctx, &PlateRequest{ID: plate.ID}); err != nil {
		t.Fatalf("ReservePlate failed: %v", err)
	}
	if _, err := client.SellPlate(ctx, &PlateRequest{ID: plate.ID}); status.Code(err) != codes.FailedPrecondition {
		t.Errorf("expected FailedPrecondition selling a reserved plate, got %v", err)
	}
	if _, err := client.ReleasePlate(ctx, &PlateRequest{ID: plate.ID}); err != nil {
		t.Fatalf("ReleasePlate failed: %v", err)
	}

	sale, err := client.SellPlate(ctx, &PlateRequest{ID: plate.ID})
	if err != nil {
		t.Fatalf("SellPlate failed: %v", err)
	}
	if sale.PlateID != plate.ID || !sale.SalePrice.Equal(decimal.NewFromInt(120)) {
		t.Errorf("unexpected sale %+v", sale)
	}
}

func TestGRPC_Queries(t *testing.T) {
	catalog := newTestCatalog(t)
	addPlate(t, catalog, "ABC1", "1000")
	addPlate(t, catalog, "XYZ1", "10")
	client := newTestClient(t, catalog)
	ctx := context.Background()

	page, err := client.ListPlates(ctx, &ListPlatesRequest{PageNumber: 1})
	if err != nil {
		t.Fatalf("ListPlates failed: %v", err)
	}
	if len(page.Plates) != 2 || page.TotalPages != 1 {
		t.Errorf("unexpected page %+v", page)
	}

	forSale, err := client.FilterPlatesForSale(ctx, &FilterRequest{Query: "XYZ"})
	if err != nil {
		t.Fatalf("FilterPlatesForSale failed: %v", err)
	}
	if len(forSale.Plates) != 1 {
		t.Errorf("unexpected filter result %+v", forSale)
	}

	discounted, err := client.ApplyDiscount(ctx, &DiscountRequest{PromoCode: "DISCOUNT"})
	if err != nil {
		t.Fatalf("ApplyDiscount failed: %v", err)
	}
	if !discounted.Plates[0].SalePrice.Equal(decimal.NewFromInt(1175)) {
		t.Errorf("unexpected discount %s", discounted.Plates[0].SalePrice)
	}
}

func TestGRPC_ErrorCodes(t *testing.T) {
	client := newTestClient(t, newTestCatalog(t))
	ctx := context.Background()

	if _, err := client.SellPlate(ctx, &PlateRequest{ID: "missing"}); status.Code(err) != codes.NotFound {
		t.Errorf("expected NotFound, got %v", err)
	}
	if _, err := client.ApplyDiscount(ctx, &DiscountRequest{PromoCode: "BOGUS"}); status.Code(err) != codes.InvalidArgument {
		t.Errorf("expected InvalidArgument, got %v", err)
	}
	if _, err := client.ListPlates(ctx, &ListPlatesRequest{OrderBy: "Colour"}); status.Code(err) != codes.InvalidArgument {
		t.Errorf("expected InvalidArgument, got %v", err)
	}
	if _, err := client.AddPlate(ctx, &domain.NewPlate{}); status.Code(err) != codes.InvalidArgument {
		t.Errorf("expected InvalidArgument, got %v", err)
	}
}
