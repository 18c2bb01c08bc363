package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/api"
	"github.com/iliyamo/table-reservation/internal/service"
)

// CreatePaymentIntent handles POST /v1/tenants/:tenant/payment-intents.
// The response carries the client secret the widget confirms with.
func (h *BookingHandler) CreatePaymentIntent(c echo.Context) error {
	var req api.IntentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	pi, err := h.svc.CreatePaymentIntent(ctx, service.IntentRequest{
		TenantRef:      c.Param("tenant"),
		AmountCents:    req.AmountCents,
		Email:          req.Email,
		IdempotencyKey: idempotencyKey(c, req.IdempotencyKey),
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, pi)
}
