package handler // handler defines the HTTP handlers of the booking API

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/table-reservation/internal/api"
	"github.com/iliyamo/table-reservation/internal/cache"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/service"
	"github.com/iliyamo/table-reservation/internal/validate"
)

// BookingService is the part of service.Service the handlers call.
type BookingService interface {
	Tenant(ctx context.Context, ref string) (model.Tenant, cache.Confidence, error)
	Availability(ctx context.Context, req service.AvailabilityRequest) (model.Availability, error)
	CreateHold(ctx context.Context, req service.HoldRequest) (service.HoldResult, error)
	ReleaseHold(ctx context.Context, tenantRef, holdID string) error
	CreatePaymentIntent(ctx context.Context, req service.IntentRequest) (model.PaymentIntent, error)
	Confirm(ctx context.Context, req service.ConfirmRequest) (service.ConfirmResult, error)
	Booking(ctx context.Context, id string) (*model.Booking, *model.Table, error)
	GuestCancel(ctx context.Context, bookingID, email string) (*model.Booking, error)
	UpdateStatus(ctx context.Context, tenantID, bookingID string, to model.BookingStatus) (*model.Booking, error)
	ListBookings(ctx context.Context, tenantID, date string) ([]model.Booking, error)
}

// requestTimeout bounds the work done for a single request.
const requestTimeout = 10 * time.Second

// BookingHandler serves the guest and staff booking endpoints.
type BookingHandler struct {
	svc BookingService
	log *zap.Logger
}

func NewBookingHandler(svc BookingService, log *zap.Logger) *BookingHandler {
	if svc == nil {
		panic("nil service passed to NewBookingHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BookingHandler{svc: svc, log: log}
}

// errorMapping pairs a service sentinel with its status and code.
type errorMapping struct {
	err    error
	status int
	code   string
}

// ordered: the first match wins
var errorMappings = []errorMapping{
	{service.ErrIdempotencyKeyRequired, http.StatusBadRequest, "idempotency_key_required"},
	{service.ErrValidation, http.StatusBadRequest, "validation_failed"},
	{service.ErrIdempotencyConflict, http.StatusUnprocessableEntity, "idempotency_conflict"},
	{service.ErrTenantNotFound, http.StatusNotFound, "tenant_not_found"},
	{service.ErrBookingNotFound, http.StatusNotFound, "reservation_not_found"},
	{service.ErrHoldNotFound, http.StatusNotFound, "hold_not_found"},
	{service.ErrOutsideHours, http.StatusBadRequest, "outside_business_hours"},
	{service.ErrSlotUnavailable, http.StatusConflict, "slot_unavailable"},
	{service.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{service.ErrHoldExpired, http.StatusGone, "hold_expired"},
	{service.ErrDepositRequired, http.StatusPaymentRequired, "deposit_required"},
	{service.ErrDepositUnverified, http.StatusPaymentRequired, "deposit_unverified"},
	{service.ErrPaymentDeclined, http.StatusPaymentRequired, "card_declined"},
	{service.ErrPaymentFailed, http.StatusBadGateway, "payment_failed"},
	{service.ErrPaymentUnavailable, http.StatusServiceUnavailable, "payment_unavailable"},
}

// respondError writes the JSON error body for err.  Unknown errors are
// logged and reported as 500 without detail.
func respondError(c echo.Context, log *zap.Logger, err error) error {
	for _, m := range errorMappings {
		if !errors.Is(err, m.err) {
			continue
		}
		body := api.Error{Error: err.Error(), Code: m.code}
		var fe validate.FieldErrors
		if errors.As(err, &fe) {
			body.Fields = fe
		}
		return c.JSON(m.status, body)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		log.Warn("request timed out", zap.String("path", c.Path()), zap.Error(err))
		return c.JSON(http.StatusGatewayTimeout, api.Error{Error: "request timed out", Code: "timeout"})
	}
	log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	return c.JSON(http.StatusInternalServerError, api.Error{Error: "internal error", Code: "internal_error"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, api.Error{Error: msg, Code: "validation_failed"})
}

// idempotencyKey prefers the header and falls back to the body field.
func idempotencyKey(c echo.Context, body string) string {
	if k := strings.TrimSpace(c.Request().Header.Get(api.HeaderIdempotencyKey)); k != "" {
		return k
	}
	return strings.TrimSpace(body)
}

func (h *BookingHandler) ctx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}
