package handler

import (
	"dinedash-backend/internal/dto"
	"dinedash-backend/internal/model"
	"dinedash-backend/internal/service"
	"net/http"

	"github.com/labstack/echo/v4"
)

type CheckoutHandler struct {
	checkoutService service.CheckoutService
}

func NewCheckoutHandler(checkoutService service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
	}
}

// Checkout answers 201 when the payment settled on the spot, 402 when the
// gateway declined it on the spot and 202 when the customer still has to
// complete payment at the returned link.
func (h *CheckoutHandler) Checkout(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	res, err := h.checkoutService.Checkout(ctx, &req)
	if err != nil {
		return err
	}

	resp := dto.CheckoutResponse{
		Order:          res.Order,
		Payment:        res.Payment,
		TransactionRef: res.Payment.TransactionRef,
	}

	if !res.AwaitingPayment {
		if res.Payment.Status != model.PaymentCompleted {
			resp.Message = "Payment was declined. The order stays pending; try another payment."
			return c.JSON(http.StatusPaymentRequired, resp)
		}
		resp.Message = "Order placed and paid."
		return c.JSON(http.StatusCreated, resp)
	}

	resp.Status = dto.StatusPendingPaymentRedirect
	resp.Message = "Order placed. Complete payment to confirm it."
	resp.PaymentLink = res.Payment.PaymentLink
	return c.JSON(http.StatusAccepted, resp)
}
