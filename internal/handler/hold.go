package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/api"
	"github.com/iliyamo/table-reservation/internal/service"
)

// CreateHold handles POST /v1/tenants/:tenant/holds.  A new hold answers
// 201, a replay of the same key 200.
func (h *BookingHandler) CreateHold(c echo.Context) error {
	var req api.HoldRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	res, err := h.svc.CreateHold(ctx, service.HoldRequest{
		TenantRef:      c.Param("tenant"),
		PartySize:      req.PartySize,
		SlotTime:       req.SlotTime,
		IdempotencyKey: idempotencyKey(c, req.IdempotencyKey),
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	return c.JSON(status, api.NewHold(res.Hold, res.Table, res.Replayed))
}

// ReleaseHold handles DELETE /v1/tenants/:tenant/holds/:id.
func (h *BookingHandler) ReleaseHold(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	if err := h.svc.ReleaseHold(ctx, c.Param("tenant"), c.Param("id")); err != nil {
		return respondError(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
