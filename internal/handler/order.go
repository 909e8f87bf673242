package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-catalog/internal/model"
)

type OrderService interface {
	FindByID(ctx context.Context, id uint64) (*model.Order, error)
	Search(ctx context.Context, c model.OrderCriteria, page, size int) (*model.Page[model.Order], error)
	Create(ctx context.Context, in model.OrderInput) (*model.Order, error)
	Update(ctx context.Context, patch model.OrderInput) (*model.Order, error)
	Delete(ctx context.Context, id uint64) error
}

// OrderHandler serves /api/orders.
type OrderHandler struct {
	svc OrderService
}

func NewOrderHandler(svc OrderService) *OrderHandler {
	if svc == nil {
		panic("nil service passed to NewOrderHandler")
	}
	return &OrderHandler{svc: svc}
}

func (h *OrderHandler) Get(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.String(http.StatusBadRequest, "invalid id")
	}
	o, err := h.svc.FindByID(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toOrderResponse(*o))
}

func (h *OrderHandler) Search(c echo.Context) error {
	page, size, ok := parsePaging(c)
	if !ok {
		return c.String(http.StatusBadRequest, "invalid paging")
	}
	var req orderRequest
	if err := bindOptional(c, &req); err != nil {
		return c.String(http.StatusBadRequest, "invalid request body")
	}
	p, err := h.svc.Search(c.Request().Context(), req.criteria(), page, size)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toPageResponse(p, toOrderResponse))
}

// Create ignores any orderTime in the body; orders are dated today.
func (h *OrderHandler) Create(c echo.Context) error {
	var req orderRequest
	if err := c.Bind(&req); err != nil {
		return c.String(http.StatusBadRequest, "invalid request body")
	}
	o, err := h.svc.Create(c.Request().Context(), req.input())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toOrderResponse(*o))
}

func (h *OrderHandler) Update(c echo.Context) error {
	var req orderRequest
	if err := c.Bind(&req); err != nil {
		return c.String(http.StatusBadRequest, "invalid request body")
	}
	o, err := h.svc.Update(c.Request().Context(), req.input())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toOrderResponse(*o))
}

func (h *OrderHandler) Delete(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.String(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.String(http.StatusOK, "ok")
}
