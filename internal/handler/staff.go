package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/api"
	"github.com/iliyamo/table-reservation/internal/middleware"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/service"
)

// ListBookings handles GET /v1/staff/bookings?date=YYYY-MM-DD.  The
// tenant comes from the access token.
func (h *BookingHandler) ListBookings(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	tenantID := middleware.TenantID(c)
	date := strings.TrimSpace(c.QueryParam("date"))
	list, err := h.svc.ListBookings(ctx, tenantID, date)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if date == "" {
		date = time.Now().Format(service.DateLayout)
		if t, _, err := h.svc.Tenant(ctx, tenantID); err == nil {
			date = time.Now().In(t.Location()).Format(service.DateLayout)
		}
	}
	out := api.BookingList{Date: date, Bookings: make([]api.Booking, 0, len(list))}
	for i := range list {
		out.Bookings = append(out.Bookings, api.NewBooking(&list[i], nil).WithContact(&list[i]))
	}
	return c.JSON(http.StatusOK, out)
}

// UpdateStatus handles PATCH /v1/staff/bookings/:id/status.
func (h *BookingHandler) UpdateStatus(c echo.Context) error {
	var req api.StatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	to, ok := model.ParseBookingStatus(req.Status)
	if !ok {
		return badRequest(c, "unknown status")
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	b, err := h.svc.UpdateStatus(ctx, middleware.TenantID(c), c.Param("id"), to)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, api.NewBooking(b, nil).WithContact(b))
}
