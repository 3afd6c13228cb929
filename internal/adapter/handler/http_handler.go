package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rl1809/plate-catalog/internal/core/domain"
	"github.com/rl1809/plate-catalog/internal/core/service"
)

type HTTPHandler struct {
	catalog *service.CatalogService
	logger  *zap.Logger
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type TransitionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func NewHTTPHandler(catalog *service.CatalogService, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{catalog: catalog, logger: logger}
}

func (h *HTTPHandler) Register(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)

	api := r.Group("/api/catalog")
	api.GET("", h.ListPlates)
	api.POST("", h.AddPlate)
	api.GET("/ordered-by-price", h.ListPlatesOrderedByPrice)
	api.GET("/filter", h.FilterPlates)
	api.GET("/filter-for-sale", h.FilterPlatesForSale)
	api.GET("/discount", h.ApplyDiscount)
	api.GET("/plates/:id", h.GetPlate)
	api.POST("/reserve/:id", h.ReservePlate)
	api.POST("/release/:id", h.ReleasePlate)
	api.POST("/sell/:id", h.SellPlate)
	api.GET("/revenue", h.Revenue)
}

func (h *HTTPHandler) ListPlates(c *gin.Context) {
	pageNumber := 1
	if raw := c.Query("pageNumber"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "pageNumber must be an integer"})
			return
		}
		pageNumber = n
	}

	page, err := h.catalog.ListPlates(c.Request.Context(), domain.QueryOptions{
		PageNumber: pageNumber,
		OrderBy:    domain.SortKey(c.Query("orderBy")),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *HTTPHandler) ListPlatesOrderedByPrice(c *gin.Context) {
	plates, err := h.catalog.ListPlatesOrderedByPrice(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, plates)
}

func (h *HTTPHandler) FilterPlates(c *gin.Context) {
	plates, err := h.catalog.FilterPlates(c.Request.Context(), c.Query("query"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, plates)
}

func (h *HTTPHandler) FilterPlatesForSale(c *gin.Context) {
	plates, err := h.catalog.FilterPlatesForSale(c.Request.Context(), c.Query("query"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, plates)
}

func (h *HTTPHandler) ApplyDiscount(c *gin.Context) {
	plates, err := h.catalog.ApplyDiscount(c.Request.Context(), c.Query("promoCode"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, plates)
}

func (h *HTTPHandler) GetPlate(c *gin.Context) {
	plate, err := h.catalog.GetPlate(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, plate)
}

func (h *HTTPHandler) AddPlate(c *gin.Context) {
	var req domain.NewPlate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	plate, err := h.catalog.AddPlate(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, plate)
}

func (h *HTTPHandler) ReservePlate(c *gin.Context) {
	if err := h.catalog.ReservePlate(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, TransitionResponse{Success: true, Message: "plate reserved"})
}

func (h *HTTPHandler) ReleasePlate(c *gin.Context) {
	if err := h.catalog.ReleasePlate(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, TransitionResponse{Success: true, Message: "plate released"})
}

func (h *HTTPHandler) SellPlate(c *gin.Context) {
	sale, err := h.catalog.SellPlate(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

func (h *HTTPHandler) Revenue(c *gin.Context) {
	summary, err := h.catalog.Revenue(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HTTPHandler) writeError(c *gin.Context, err error) {
	status, message := httpStatus(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Error(err),
		)
	}
	c.JSON(status, ErrorResponse{Error: message})
}

func httpStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrInvalidPromoCode), errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
