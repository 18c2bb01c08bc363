package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/api"
	"github.com/iliyamo/table-reservation/internal/service"
)

// Confirm handles POST /v1/tenants/:tenant/reservations.  The key must be
// the one the hold was placed with.
func (h *BookingHandler) Confirm(c echo.Context) error {
	var req api.ConfirmRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	res, err := h.svc.Confirm(ctx, service.ConfirmRequest{
		TenantRef:      c.Param("tenant"),
		HoldID:         req.HoldID,
		Guest:          req.Guest,
		Deposit:        req.Deposit,
		IdempotencyKey: idempotencyKey(c, req.IdempotencyKey),
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	out := api.NewBooking(res.Booking, res.Table)
	out.Replayed = res.Replayed
	if res.Replayed {
		return c.JSON(http.StatusOK, out)
	}
	return c.JSON(http.StatusCreated, out)
}

// GetReservation handles GET /v1/reservations/:id.
func (h *BookingHandler) GetReservation(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	b, table, err := h.svc.Booking(ctx, c.Param("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, api.NewBooking(b, table))
}

// CancelReservation handles POST /v1/reservations/:id/cancel.
func (h *BookingHandler) CancelReservation(c echo.Context) error {
	var req api.CancelRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	b, err := h.svc.GuestCancel(ctx, c.Param("id"), req.Email)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, api.NewBooking(b, nil))
}
