package handler

import (
	"dinedash-backend/internal/dto"
	"dinedash-backend/internal/model"
	"dinedash-backend/internal/repository"
	"dinedash-backend/internal/service"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

type OrderHandler struct {
	orderService service.OrderService
}

func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

func orderIDParam(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}
	return uint(id), nil
}

func (h *OrderHandler) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	order, err := h.orderService.PlaceOrder(ctx, &req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, order)
}

// TrackOrder is the public lookup; the tracking code is the only credential.
func (h *OrderHandler) TrackOrder(c echo.Context) error {
	ctx := c.Request().Context()

	order, err := h.orderService.GetByTrackingCode(ctx, c.Param("tracking_code"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()

	orderID, err := orderIDParam(c)
	if err != nil {
		return err
	}

	order, err := h.orderService.GetByID(ctx, orderID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()

	filter := repository.OrderFilter{
		Status: model.OrderStatus(c.QueryParam("status")),
	}
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		filter.Limit = limit
	}

	orders, err := h.orderService.List(ctx, filter)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()

	orderID, err := orderIDParam(c)
	if err != nil {
		return err
	}

	var req dto.StatusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	order, err := h.orderService.TransitionStatus(ctx, orderID, model.OrderStatus(req.Status))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, order)
}
