package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/api"
	"github.com/iliyamo/table-reservation/internal/service"
)

// GetTenant handles GET /v1/tenants/:tenant.  The profile may come from
// the cache; the confidence field says which.
func (h *BookingHandler) GetTenant(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	t, conf, err := h.svc.Tenant(ctx, c.Param("tenant"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, api.NewTenant(t, conf))
}

// Availability handles GET /v1/tenants/:tenant/availability?party_size=&date=.
func (h *BookingHandler) Availability(c echo.Context) error {
	party, err := strconv.Atoi(strings.TrimSpace(c.QueryParam("party_size")))
	if err != nil {
		return badRequest(c, "party_size must be a number")
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	av, err := h.svc.Availability(ctx, service.AvailabilityRequest{
		TenantRef: c.Param("tenant"),
		PartySize: party,
		Date:      strings.TrimSpace(c.QueryParam("date")),
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, av)
}
