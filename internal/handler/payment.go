package handler

import (
	"dinedash-backend/internal/dto"
	"dinedash-backend/internal/model"
	"dinedash-backend/internal/service"
	"net/http"

	"github.com/labstack/echo/v4"
)

type PaymentHandler struct {
	paymentService service.PaymentService
}

func NewPaymentHandler(paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// VerifyPayment is the gateway callback. It always acknowledges a known
// payment with 200; the body says whether it completed.
func (h *PaymentHandler) VerifyPayment(c echo.Context) error {
	ctx := c.Request().Context()

	var q dto.VerifyQuery
	if err := c.Bind(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid verification parameters")
	}

	res, err := h.paymentService.Verify(ctx, service.VerifyInput{
		TransactionRef:       q.Reference(),
		OrderID:              q.OrderID,
		Outcome:              q.Result(),
		GatewayTransactionID: q.TransactionID,
	})
	if err != nil {
		return err
	}

	resp := dto.VerifyResponse{
		Replayed: res.Replayed,
		OrderID:  res.Order.ID,
		Order:    res.Order,
		Payment:  res.Payment,
	}
	switch {
	case res.Replayed:
		resp.Message = "Payment already verified."
	case res.Payment.Status == model.PaymentCompleted:
		resp.Message = "Payment verified successfully."
	default:
		resp.Message = "Payment was not successful."
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *PaymentHandler) FinalizePayment(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.FinalizeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := h.paymentService.FinalizeByStaff(ctx, req.OrderID, model.PaymentMethod(req.PaymentMethod), req.Amount)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dto.FinalizeResponse{
		Message: "Order finalized.",
		Order:   res.Order,
		Payment: res.Payment,
	})
}
