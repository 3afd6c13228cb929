package handler

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/plate-catalog/internal/core/domain"
	"github.com/rl1809/plate-catalog/internal/core/service"
)

const catalogServiceName = "catalog.v1.CatalogService"

type ListPlatesRequest struct {
	PageNumber int    `json:"pageNumber"`
	OrderBy    string `json:"orderBy"`
}

type FilterRequest struct {
	Query string `json:"query"`
}

type DiscountRequest struct {
	PromoCode string `json:"promoCode"`
}

type PlateRequest struct {
	ID string `json:"id"`
}

type PlatesResponse struct {
	Plates []domain.PricedPlate `json:"plates"`
}

type CatalogServer interface {
	ListPlates(context.Context, *ListPlatesRequest) (*domain.Page, error)
	FilterPlatesForSale(context.Context, *FilterRequest) (*PlatesResponse, error)
	ApplyDiscount(context.Context, *DiscountRequest) (*PlatesResponse, error)
	ReservePlate(context.Context, *PlateRequest) (*TransitionResponse, error)
	ReleasePlate(context.Context, *PlateRequest) (*TransitionResponse, error)
	SellPlate(context.Context, *PlateRequest) (*domain.Sale, error)
	AddPlate(context.Context, *domain.NewPlate) (*domain.PricedPlate, error)
}

type GRPCHandler struct {
	catalog *service.CatalogService
	logger  *zap.Logger
}

func NewGRPCHandler(catalog *service.CatalogService, logger *zap.Logger) *GRPCHandler {
	return &GRPCHandler{catalog: catalog, logger: logger}
}

func (h *GRPCHandler) ListPlates(ctx context.Context, req *ListPlatesRequest) (*domain.Page, error) {
	page, err := h.catalog.ListPlates(ctx, domain.QueryOptions{
		PageNumber: req.PageNumber,
		OrderBy:    domain.SortKey(req.OrderBy),
	})
	if err != nil {
		return nil, h.grpcError("ListPlates", err)
	}
	return &page, nil
}

func (h *GRPCHandler) FilterPlatesForSale(ctx context.Context, req *FilterRequest) (*PlatesResponse, error) {
	plates, err := h.catalog.FilterPlatesForSale(ctx, req.Query)
	if err != nil {
		return nil, h.grpcError("FilterPlatesForSale", err)
	}
	return &PlatesResponse{Plates: plates}, nil
}

func (h *GRPCHandler) ApplyDiscount(ctx context.Context, req *DiscountRequest) (*PlatesResponse, error) {
	plates, err := h.catalog.ApplyDiscount(ctx, req.PromoCode)
	if err != nil {
		return nil, h.grpcError("ApplyDiscount", err)
	}
	return &PlatesResponse{Plates: plates}, nil
}

func (h *GRPCHandler) ReservePlate(ctx context.Context, req *PlateRequest) (*TransitionResponse, error) {
	if err := h.catalog.ReservePlate(ctx, req.ID); err != nil {
		return nil, h.grpcError("ReservePlate", err)
	}
	return &TransitionResponse{Success: true, Message: "plate reserved"}, nil
}

func (h *GRPCHandler) ReleasePlate(ctx context.Context, req *PlateRequest) (*TransitionResponse, error) {
	if err := h.catalog.ReleasePlate(ctx, req.ID); err != nil {
		return nil, h.grpcError("ReleasePlate", err)
	}
	return &TransitionResponse{Success: true, Message: "plate released"}, nil
}

func (h *GRPCHandler) SellPlate(ctx context.Context, req *PlateRequest) (*domain.Sale, error) {
	sale, err := h.catalog.SellPlate(ctx, req.ID)
	if err != nil {
		return nil, h.grpcError("SellPlate", err)
	}
	return &sale, nil
}

func (h *GRPCHandler) AddPlate(ctx context.Context, req *domain.NewPlate) (*domain.PricedPlate, error) {
	plate, err := h.catalog.AddPlate(ctx, *req)
	if err != nil {
		return nil, h.grpcError("AddPlate", err)
	}
	return &plate, nil
}

func (h *GRPCHandler) grpcError(method string, err error) error {
	code := grpcCode(err)
	if code == codes.Internal {
		h.logger.Error("rpc failed", zap.String("method", method), zap.Error(err))
		return status.Error(code, "internal error")
	}
	return status.Error(code, err.Error())
}

func grpcCode(err error) codes.Code {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, domain.ErrInvalidTransition):
		return codes.FailedPrecondition
	case errors.Is(err, domain.ErrInvalidPromoCode), errors.Is(err, domain.ErrValidation):
		return codes.InvalidArgument
	default:
		return codes.Internal
	}
}

func RegisterCatalogServer(s grpc.ServiceRegistrar, srv CatalogServer) {
	s.RegisterService(&catalogServiceDesc, srv)
}

var catalogServiceDesc = grpc.ServiceDesc{
	ServiceName: catalogServiceName,
	HandlerType: (*CatalogServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListPlates", Handler: unaryHandler("ListPlates", CatalogServer.ListPlates)},
		{MethodName: "FilterPlatesForSale", Handler: unaryHandler("FilterPlatesForSale", CatalogServer.FilterPlatesForSale)},
		{MethodName: "ApplyDiscount", Handler: unaryHandler("ApplyDiscount", CatalogServer.ApplyDiscount)},
		{MethodName: "ReservePlate", Handler: unaryHandler("ReservePlate", CatalogServer.ReservePlate)},
		{MethodName: "ReleasePlate", Handler: unaryHandler("ReleasePlate", CatalogServer.ReleasePlate)},
		{MethodName: "SellPlate", Handler: unaryHandler("SellPlate", CatalogServer.SellPlate)},
		{MethodName: "AddPlate", Handler: unaryHandler("AddPlate", CatalogServer.AddPlate)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "catalog/v1/catalog.proto",
}

func unaryHandler[Req, Resp any](method string, call func(CatalogServer, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := "/" + catalogServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CatalogServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(CatalogServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}
