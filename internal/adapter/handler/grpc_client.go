package handler

import (
	"context"

	"google.golang.org/grpc"

	"github.com/rl1809/plate-catalog/internal/core/domain"
)

type CatalogClient struct {
	cc grpc.ClientConnInterface
}

func NewCatalogClient(cc grpc.ClientConnInterface) *CatalogClient {
	return &CatalogClient{cc: cc}
}

func (c *CatalogClient) ListPlates(ctx context.Context, in *ListPlatesRequest) (*domain.Page, error) {
	return invoke[domain.Page](ctx, c.cc, "ListPlates", in)
}

func (c *CatalogClient) FilterPlatesForSale(ctx context.Context, in *FilterRequest) (*PlatesResponse, error) {
	return invoke[PlatesResponse](ctx, c.cc, "FilterPlatesForSale", in)
}

func (c *CatalogClient) ApplyDiscount(ctx context.Context, in *DiscountRequest) (*PlatesResponse, error) {
	return invoke[PlatesResponse](ctx, c.cc, "ApplyDiscount", in)
}

func (c *CatalogClient) ReservePlate(ctx context.Context, in *PlateRequest) (*TransitionResponse, error) {
	return invoke[TransitionResponse](ctx, c.cc, "ReservePlate", in)
}

func (c *CatalogClient) ReleasePlate(ctx context.Context, in *PlateRequest) (*TransitionResponse, error) {
	return invoke[TransitionResponse](ctx, c.cc, "ReleasePlate", in)
}

func (c *CatalogClient) SellPlate(ctx context.Context, in *PlateRequest) (*domain.Sale, error) {
	return invoke[domain.Sale](ctx, c.cc, "SellPlate", in)
}

func (c *CatalogClient) AddPlate(ctx context.Context, in *domain.NewPlate) (*domain.PricedPlate, error) {
	return invoke[domain.PricedPlate](ctx, c.cc, "AddPlate", in)
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any) (*Resp, error) {
	out := new(Resp)
	err := cc.Invoke(ctx, "/"+catalogServiceName+"/"+method, in, out, grpc.CallContentSubtype(codecName))
	if err != nil {
		return nil, err
	}
	return out, nil
}
