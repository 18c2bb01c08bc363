package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/table-reservation/internal/api"
	"github.com/iliyamo/table-reservation/internal/cache"
	"github.com/iliyamo/table-reservation/internal/middleware"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/service"
	"github.com/iliyamo/table-reservation/internal/utils"
	"github.com/iliyamo/table-reservation/internal/validate"
)

type mockService struct{ mock.Mock }

func (m *mockService) Tenant(ctx context.Context, ref string) (model.Tenant, cache.Confidence, error) {
	args := m.Called(ctx, ref)
	return args.Get(0).(model.Tenant), args.Get(1).(cache.Confidence), args.Error(2)
}

func (m *mockService) Availability(ctx context.Context, req service.AvailabilityRequest) (model.Availability, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(model.Availability), args.Error(1)
}

func (m *mockService) CreateHold(ctx context.Context, req service.HoldRequest) (service.HoldResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(service.HoldResult), args.Error(1)
}

func (m *mockService) ReleaseHold(ctx context.Context, tenantRef, holdID string) error {
	return m.Called(ctx, tenantRef, holdID).Error(0)
}

func (m *mockService) CreatePaymentIntent(ctx context.Context, req service.IntentRequest) (model.PaymentIntent, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(model.PaymentIntent), args.Error(1)
}

func (m *mockService) Confirm(ctx context.Context, req service.ConfirmRequest) (service.ConfirmResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(service.ConfirmResult), args.Error(1)
}

func (m *mockService) Booking(ctx context.Context, id string) (*model.Booking, *model.Table, error) {
	args := m.Called(ctx, id)
	b, _ := args.Get(0).(*model.Booking)
	t, _ := args.Get(1).(*model.Table)
	return b, t, args.Error(2)
}

func (m *mockService) GuestCancel(ctx context.Context, bookingID, email string) (*model.Booking, error) {
	args := m.Called(ctx, bookingID, email)
	b, _ := args.Get(0).(*model.Booking)
	return b, args.Error(1)
}

func (m *mockService) UpdateStatus(ctx context.Context, tenantID, bookingID string, to model.BookingStatus) (*model.Booking, error) {
	args := m.Called(ctx, tenantID, bookingID, to)
	b, _ := args.Get(0).(*model.Booking)
	return b, args.Error(1)
}

func (m *mockService) ListBookings(ctx context.Context, tenantID, date string) ([]model.Booking, error) {
	args := m.Called(ctx, tenantID, date)
	list, _ := args.Get(0).([]model.Booking)
	return list, args.Error(1)
}

const jwtSecret = "handler-secret"

var slot = time.Date(2025, 6, 3, 19, 0, 0, 0, time.UTC)

func newServer(svc BookingService) *echo.Echo {
	h := NewBookingHandler(svc, nil)
	e := echo.New()
	e.GET("/v1/tenants/:tenant", h.GetTenant)
	e.GET("/v1/tenants/:tenant/availability", h.Availability)
	e.POST("/v1/tenants/:tenant/holds", h.CreateHold)
	e.DELETE("/v1/tenants/:tenant/holds/:id", h.ReleaseHold)
	e.POST("/v1/tenants/:tenant/payment-intents", h.CreatePaymentIntent)
	e.POST("/v1/tenants/:tenant/reservations", h.Confirm)
	e.GET("/v1/reservations/:id", h.GetReservation)
	e.POST("/v1/reservations/:id/cancel", h.CancelReservation)
	staff := e.Group("/v1/staff", middleware.JWTAuth(jwtSecret))
	staff.GET("/bookings", h.ListBookings)
	staff.PATCH("/bookings/:id/status", h.UpdateStatus)
	return e
}

func do(e *echo.Echo, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func booking(status model.BookingStatus) *model.Booking {
	tableID := uint64(3)
	return &model.Booking{
		ID:              "6a1c2d44-1b7e-4c55-9d1e-7f2b550f3a9c",
		TenantID:        "t-bistro",
		TableID:         &tableID,
		HoldID:          "h-1",
		GuestFirstName:  "Ada",
		GuestLastName:   "Lovelace",
		GuestEmail:      "ada@example.com",
		GuestPhone:      "+1 555 0100",
		PartySize:       2,
		BookingTime:     slot,
		DurationMinutes: 90,
		Status:          status,
	}
}

func TestRespondErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{service.ErrIdempotencyKeyRequired, http.StatusBadRequest, "idempotency_key_required"},
		{fmt.Errorf("%w: party_size", service.ErrValidation), http.StatusBadRequest, "validation_failed"},
		{service.ErrIdempotencyConflict, http.StatusUnprocessableEntity, "idempotency_conflict"},
		{service.ErrTenantNotFound, http.StatusNotFound, "tenant_not_found"},
		{service.ErrHoldNotFound, http.StatusNotFound, "hold_not_found"},
		{service.ErrSlotUnavailable, http.StatusConflict, "slot_unavailable"},
		{fmt.Errorf("%w: seated -> pending", service.ErrInvalidTransition), http.StatusConflict, "invalid_transition"},
		{service.ErrHoldExpired, http.StatusGone, "hold_expired"},
		{service.ErrDepositRequired, http.StatusPaymentRequired, "deposit_required"},
		{service.ErrPaymentDeclined, http.StatusPaymentRequired, "card_declined"},
		{service.ErrPaymentFailed, http.StatusBadGateway, "payment_failed"},
		{service.ErrPaymentUnavailable, http.StatusServiceUnavailable, "payment_unavailable"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	e := echo.New()
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		require.NoError(t, respondError(c, NewBookingHandler(&mockService{}, nil).log, tc.err))
		assert.Equal(t, tc.status, rec.Code, tc.code)
		assert.Contains(t, rec.Body.String(), `"code":"`+tc.code+`"`)
	}
}

func TestRespondErrorIncludesFieldErrors(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)
	err := fmt.Errorf("%w: %w", service.ErrValidation, validate.FieldErrors{"email": "email"})
	require.NoError(t, respondError(c, nil, err))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"fields":{"email":"email"}`)
}

func TestGetTenantReportsConfidence(t *testing.T) {
	svc := &mockService{}
	svc.On("Tenant", mock.Anything, "bistro").Return(model.Tenant{ID: "t-bistro", Slug: "bistro", Name: "Bistro"}, cache.Cached, nil)
	svc.On("Tenant", mock.Anything, "nope").Return(model.Tenant{}, cache.Confidence(""), service.ErrTenantNotFound)
	e := newServer(svc)

	rec := do(e, http.MethodGet, "/v1/tenants/bistro", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"confidence":"cached"`)
	assert.Contains(t, rec.Body.String(), `"slug":"bistro"`)

	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, "/v1/tenants/nope", "", nil).Code)
}

func TestAvailabilityParsesQuery(t *testing.T) {
	svc := &mockService{}
	req := service.AvailabilityRequest{TenantRef: "bistro", PartySize: 2, Date: "2025-06-03"}
	svc.On("Availability", mock.Anything, req).Return(model.Availability{
		TenantID:  "t-bistro",
		Date:      "2025-06-03",
		PartySize: 2,
		Slots:     []model.TimeSlot{{Time: slot, AvailableTables: 5, Optimal: true}},
	}, nil)
	e := newServer(svc)

	rec := do(e, http.MethodGet, "/v1/tenants/bistro/availability?party_size=2&date=2025-06-03", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"available_tables":5`)

	rec = do(e, http.MethodGet, "/v1/tenants/bistro/availability?party_size=two&date=2025-06-03", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNumberOfCalls(t, "Availability", 1)
}

func TestCreateHoldStatusCodesAndKeySource(t *testing.T) {
	svc := &mockService{}
	hold := &model.Hold{ID: "h-1", TenantID: "t-bistro", TableID: 3, PartySize: 2, SlotTime: slot,
		DurationMinutes: 90, Status: model.HoldActive, ExpiresAt: slot.Add(-time.Hour)}
	table := &model.Table{ID: 3, Label: "T3", Capacity: 2}

	svc.On("CreateHold", mock.Anything, mock.MatchedBy(func(r service.HoldRequest) bool {
		return r.IdempotencyKey == "header-key"
	})).Return(service.HoldResult{Hold: hold, Table: table}, nil).Once()
	svc.On("CreateHold", mock.Anything, mock.MatchedBy(func(r service.HoldRequest) bool {
		return r.IdempotencyKey == "body-key"
	})).Return(service.HoldResult{Hold: hold, Table: table, Replayed: true}, nil).Once()
	e := newServer(svc)

	body := `{"party_size":2,"slot_time":"2025-06-03T19:00:00Z","idempotency_key":"body-key"}`
	rec := do(e, http.MethodPost, "/v1/tenants/bistro/holds", body, map[string]string{api.HeaderIdempotencyKey: "header-key"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"table_label":"T3"`)

	rec = do(e, http.MethodPost, "/v1/tenants/bistro/holds", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"replayed":true`)
	svc.AssertExpectations(t)
}

func TestCreateHoldLeavesLoggingToService(t *testing.T) {
	svc := &mockService{}
	hold := &model.Hold{ID: "h-1", TenantID: "t-bistro", TableID: 3, PartySize: 2, SlotTime: slot,
		DurationMinutes: 90, Status: model.HoldActive, ExpiresAt: slot.Add(-time.Hour)}
	svc.On("CreateHold", mock.Anything, mock.Anything).Return(service.HoldResult{Hold: hold}, nil)

	core, logs := observer.New(zapcore.DebugLevel)
	h := NewBookingHandler(svc, zap.New(core))
	e := echo.New()
	e.POST("/v1/tenants/:tenant/holds", h.CreateHold)

	rec := do(e, http.MethodPost, "/v1/tenants/bistro/holds", `{"party_size":2,"slot_time":"2025-06-03T19:00:00Z"}`,
		map[string]string{api.HeaderIdempotencyKey: "k"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Zero(t, logs.Len())
}

func TestCreateHoldSlotTaken(t *testing.T) {
	svc := &mockService{}
	svc.On("CreateHold", mock.Anything, mock.Anything).Return(service.HoldResult{}, service.ErrSlotUnavailable)
	e := newServer(svc)

	rec := do(e, http.MethodPost, "/v1/tenants/bistro/holds", `{"party_size":6,"slot_time":"2025-06-03T19:00:00Z"}`,
		map[string]string{api.HeaderIdempotencyKey: "k"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"slot_unavailable"`)
}

func TestReleaseHold(t *testing.T) {
	svc := &mockService{}
	svc.On("ReleaseHold", mock.Anything, "bistro", "h-1").Return(nil)
	svc.On("ReleaseHold", mock.Anything, "bistro", "h-9").Return(service.ErrHoldNotFound)
	e := newServer(svc)

	assert.Equal(t, http.StatusNoContent, do(e, http.MethodDelete, "/v1/tenants/bistro/holds/h-1", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodDelete, "/v1/tenants/bistro/holds/h-9", "", nil).Code)
}

func TestCreatePaymentIntent(t *testing.T) {
	svc := &mockService{}
	svc.On("CreatePaymentIntent", mock.Anything, service.IntentRequest{
		TenantRef: "bistro", AmountCents: 2500, Email: "ada@example.com", IdempotencyKey: "k1",
	}).Return(model.PaymentIntent{ID: "pi_1", ClientSecret: "pi_1_secret", Status: model.IntentRequiresPaymentMethod,
		AmountCents: 2500, Currency: "usd"}, nil)
	e := newServer(svc)

	rec := do(e, http.MethodPost, "/v1/tenants/bistro/payment-intents", `{"amount_cents":2500,"email":"ada@example.com"}`,
		map[string]string{api.HeaderIdempotencyKey: "k1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"client_secret":"pi_1_secret"`)
}

func TestConfirmReturnsConfirmationNumber(t *testing.T) {
	svc := &mockService{}
	b := booking(model.StatusConfirmed)
	svc.On("Confirm", mock.Anything, mock.MatchedBy(func(r service.ConfirmRequest) bool {
		return r.HoldID == "h-1" && r.IdempotencyKey == "k1" && r.Guest.Email == "ada@example.com"
	})).Return(service.ConfirmResult{Booking: b, Table: &model.Table{ID: 3, Label: "T3"}}, nil)
	e := newServer(svc)

	body := `{"hold_id":"h-1","guest":{"first_name":"Ada","last_name":"Lovelace","email":"ada@example.com","phone":"+1 555 0100"}}`
	rec := do(e, http.MethodPost, "/v1/tenants/bistro/reservations", body, map[string]string{api.HeaderIdempotencyKey: "k1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"confirmation_number":"CONF0F3A9C"`)
	assert.Contains(t, rec.Body.String(), `"headline":"Booking Confirmed"`)
	assert.NotContains(t, rec.Body.String(), "ada@example.com")
}

func TestConfirmErrors(t *testing.T) {
	svc := &mockService{}
	svc.On("Confirm", mock.Anything, mock.MatchedBy(func(r service.ConfirmRequest) bool { return r.HoldID == "gone" })).
		Return(service.ConfirmResult{}, service.ErrHoldExpired)
	svc.On("Confirm", mock.Anything, mock.MatchedBy(func(r service.ConfirmRequest) bool { return r.HoldID == "other" })).
		Return(service.ConfirmResult{}, service.ErrIdempotencyConflict)
	e := newServer(svc)
	hdr := map[string]string{api.HeaderIdempotencyKey: "k1"}

	assert.Equal(t, http.StatusGone, do(e, http.MethodPost, "/v1/tenants/bistro/reservations", `{"hold_id":"gone"}`, hdr).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(e, http.MethodPost, "/v1/tenants/bistro/reservations", `{"hold_id":"other"}`, hdr).Code)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPost, "/v1/tenants/bistro/reservations", `{"hold_id":`, hdr).Code)
}

func TestGetAndCancelReservation(t *testing.T) {
	svc := &mockService{}
	b := booking(model.StatusPending)
	svc.On("Booking", mock.Anything, b.ID).Return(b, nil, nil)
	svc.On("Booking", mock.Anything, "missing").Return(nil, nil, service.ErrBookingNotFound)
	cancelled := booking(model.StatusCancelled)
	svc.On("GuestCancel", mock.Anything, b.ID, "ADA@example.com").Return(cancelled, nil)
	e := newServer(svc)

	rec := do(e, http.MethodGet, "/v1/reservations/"+b.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"headline":"Reservation Submitted"`)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, "/v1/reservations/missing", "", nil).Code)

	rec = do(e, http.MethodPost, "/v1/reservations/"+b.ID+"/cancel", `{"email":"ADA@example.com"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"cancelled"`)
}

func staffAuth(t *testing.T) map[string]string {
	t.Helper()
	tok, err := utils.NewAccessToken(jwtSecret, 1, "t-bistro", model.RoleStaff, 5)
	require.NoError(t, err)
	return map[string]string{echo.HeaderAuthorization: "Bearer " + tok.Token}
}

func TestStaffListUsesTokenTenant(t *testing.T) {
	svc := &mockService{}
	svc.On("ListBookings", mock.Anything, "t-bistro", "2025-06-03").Return([]model.Booking{*booking(model.StatusConfirmed)}, nil)
	e := newServer(svc)

	rec := do(e, http.MethodGet, "/v1/staff/bookings?date=2025-06-03", "", staffAuth(t))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"date":"2025-06-03"`)
	assert.Contains(t, rec.Body.String(), `"guest_email":"ada@example.com"`)

	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/v1/staff/bookings", "", nil).Code)
}

func TestStaffUpdateStatus(t *testing.T) {
	svc := &mockService{}
	svc.On("UpdateStatus", mock.Anything, "t-bistro", "b-1", model.StatusSeated).Return(booking(model.StatusSeated), nil)
	svc.On("UpdateStatus", mock.Anything, "t-bistro", "b-2", model.StatusSeated).
		Return(nil, fmt.Errorf("%w: pending -> seated", service.ErrInvalidTransition))
	e := newServer(svc)
	auth := staffAuth(t)

	rec := do(e, http.MethodPatch, "/v1/staff/bookings/b-1/status", `{"status":"SEATED"}`, auth)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"seated"`)

	rec = do(e, http.MethodPatch, "/v1/staff/bookings/b-2/status", `{"status":"seated"}`, auth)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(e, http.MethodPatch, "/v1/staff/bookings/b-1/status", `{"status":"booked"}`, auth)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	e := echo.New()
	e.GET("/ok", Health(pinger{}))
	e.GET("/down", Health(pinger{err: errors.New("refused")}))
	e.GET("/nodb", Health(nil))

	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/ok", "", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(e, http.MethodGet, "/down", "", nil).Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/nodb", "", nil).Code)
}
