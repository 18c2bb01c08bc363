package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/payment"
	"github.com/iliyamo/table-reservation/internal/queue"
	"github.com/iliyamo/table-reservation/internal/validate"
)

// 2025-06-01 is a Sunday; 2025-06-03 the following Tuesday.
var (
	sunday      = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	tuesday1900 = time.Date(2025, 6, 3, 19, 0, 0, 0, time.UTC)
)

type fixture struct {
	db     *memDB
	svc    *Service
	clock  *fakeClock
	pay    *mockProcessor
	events *recorder
}

type option func(*model.Tenant, *Deps)

func withDeposit(amount string) option {
	return func(t *model.Tenant, _ *Deps) {
		t.Deposit = model.DepositPolicy{Required: true, Amount: decimal.RequireFromString(amount), Description: "Deposit"}
	}
}

func withManualApproval() option {
	return func(t *model.Tenant, _ *Deps) { t.ApprovalPolicy = model.ApprovalManual }
}

func withoutPayments() option {
	return func(_ *model.Tenant, d *Deps) { d.Payments = nil }
}

func newFixture(t *testing.T, opts ...option) *fixture {
	t.Helper()
	tn := bistro()
	f := &fixture{clock: &fakeClock{t: sunday}, pay: &mockProcessor{}, events: &recorder{}}
	d := Deps{
		Settings: Settings{HoldTTL: 10 * time.Minute, AlternativeDays: 3, MaxAlternatives: 3},
		Now:      f.clock.Now,
		Payments: f.pay,
		Events:   f.events,
	}
	for _, o := range opts {
		o(&tn, &d)
	}
	f.db = newMemDB(tn, fiveTables(tn.ID)...)
	d.Tenants = memTenants{f.db}
	d.Tables = memTables{f.db}
	d.Holds = memHolds{f.db}
	d.Bookings = memBookings{f.db}
	f.svc = New(d)
	return f
}

func guest() model.GuestDetails {
	return model.GuestDetails{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "Ada@Example.com",
		Phone:     "+1 555 010 0199",
	}
}

func (f *fixture) hold(t *testing.T, party int, at time.Time, key string) HoldResult {
	t.Helper()
	res, err := f.svc.CreateHold(context.Background(), HoldRequest{TenantRef: "bistro", PartySize: party, SlotTime: at, IdempotencyKey: key})
	require.NoError(t, err)
	return res
}

func TestAvailabilityTuesdayEvening(t *testing.T) {
	f := newFixture(t)
	av, err := f.svc.Availability(context.Background(), AvailabilityRequest{TenantRef: "bistro", PartySize: 2, Date: "2025-06-03"})
	require.NoError(t, err)

	require.Len(t, av.Slots, 8)
	assert.Equal(t, time.Date(2025, 6, 3, 17, 0, 0, 0, time.UTC), av.Slots[0].Time.UTC())
	assert.Equal(t, time.Date(2025, 6, 3, 20, 30, 0, 0, time.UTC), av.Slots[7].Time.UTC())
	for _, s := range av.Slots {
		assert.Equal(t, 5, s.AvailableTables)
		assert.True(t, s.Optimal)
		assert.Equal(t, int64(8000), s.ProjectedRevenueCents)
	}
	assert.Empty(t, av.Alternatives)
	assert.False(t, av.DepositPolicy.Required)
}

func TestAvailabilityClosedMondayIsEmptyWithAlternatives(t *testing.T) {
	f := newFixture(t)
	av, err := f.svc.Availability(context.Background(), AvailabilityRequest{TenantRef: "bistro", PartySize: 2, Date: "2025-06-02"})
	require.NoError(t, err)

	assert.Empty(t, av.Slots)
	require.Len(t, av.Alternatives, 3)
	assert.Equal(t, time.Date(2025, 6, 3, 17, 0, 0, 0, time.UTC), av.Alternatives[0].Time.UTC())
	assert.Equal(t, time.Date(2025, 6, 3, 18, 0, 0, 0, time.UTC), av.Alternatives[2].Time.UTC())
	for _, s := range append(av.Slots, av.Alternatives...) {
		assert.True(t, bistro().WithinBusinessHours(s.Time, 90*time.Minute))
	}
}

func TestAvailabilityReflectsHoldsAndLargeParties(t *testing.T) {
	f := newFixture(t)
	f.hold(t, 6, tuesday1900, "booking:six")

	av, err := f.svc.Availability(context.Background(), AvailabilityRequest{TenantRef: "bistro", PartySize: 6, Date: "2025-06-03"})
	require.NoError(t, err)
	for _, s := range av.Slots {
		start := s.Time.UTC()
		overlaps := start.Before(tuesday1900.Add(90*time.Minute)) && tuesday1900.Before(start.Add(90*time.Minute))
		assert.False(t, overlaps, "slot %s overlaps the held table", start)
	}

	av, err = f.svc.Availability(context.Background(), AvailabilityRequest{TenantRef: "bistro", PartySize: 7, Date: "2025-06-03"})
	require.NoError(t, err)
	assert.Empty(t, av.Slots)
	assert.Empty(t, av.Alternatives)
}

func TestAvailabilityValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Availability(ctx, AvailabilityRequest{TenantRef: "bistro", PartySize: 0, Date: "2025-06-03"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.svc.Availability(ctx, AvailabilityRequest{TenantRef: "bistro", PartySize: 2, Date: "03/06/2025"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.svc.Availability(ctx, AvailabilityRequest{TenantRef: "nope", PartySize: 2, Date: "2025-06-03"})
	assert.ErrorIs(t, err, ErrTenantNotFound)
}

func TestAvailabilityUsesCachedTenant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := AvailabilityRequest{TenantRef: "bistro", PartySize: 2, Date: "2025-06-03"}
	_, err := f.svc.Availability(ctx, req)
	require.NoError(t, err)
	_, err = f.svc.Availability(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 1, f.db.tenantLoads)

	_, conf, err := f.svc.Tenant(ctx, "bistro")
	require.NoError(t, err)
	assert.Equal(t, "cached", string(conf))
}

func TestCreateHoldIsIdempotent(t *testing.T) {
	f := newFixture(t)
	first := f.hold(t, 2, tuesday1900, "booking:k1")
	assert.False(t, first.Replayed)
	require.NotNil(t, first.Table)
	assert.Equal(t, 2, first.Table.Capacity)
	assert.Equal(t, sunday.Add(10*time.Minute), first.Hold.ExpiresAt)

	again := f.hold(t, 2, tuesday1900, "booking:k1")
	assert.True(t, again.Replayed)
	assert.Equal(t, first.Hold.ID, again.Hold.ID)
	assert.Len(t, f.db.holds, 1)

	_, err := f.svc.CreateHold(context.Background(), HoldRequest{TenantRef: "bistro", PartySize: 4, SlotTime: tuesday1900, IdempotencyKey: "booking:k1"})
	assert.ErrorIs(t, err, ErrIdempotencyConflict)
	assert.Len(t, f.db.holds, 1)
}

func TestCreateHoldConcurrentSameKey(t *testing.T) {
	f := newFixture(t)
	const n = 16
	ids := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.svc.CreateHold(context.Background(), HoldRequest{TenantRef: "bistro", PartySize: 6, SlotTime: tuesday1900, IdempotencyKey: "booking:race"})
			errs[i] = err
			if err == nil {
				ids[i] = res.Hold.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	assert.Len(t, f.db.holds, 1)
}

func TestCreateHoldCapacity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.hold(t, 6, tuesday1900, "booking:a")

	_, err := f.svc.CreateHold(ctx, HoldRequest{TenantRef: "bistro", PartySize: 6, SlotTime: tuesday1900, IdempotencyKey: "booking:b"})
	assert.ErrorIs(t, err, ErrSlotUnavailable)
	_, err = f.svc.CreateHold(ctx, HoldRequest{TenantRef: "bistro", PartySize: 5, SlotTime: tuesday1900.Add(30 * time.Minute), IdempotencyKey: "booking:c"})
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	later := f.hold(t, 6, tuesday1900.Add(90*time.Minute), "booking:d")
	assert.Equal(t, uint64(5), later.Hold.TableID)
}

func TestCreateHoldRejectsBadSlots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cases := []struct {
		name string
		at   time.Time
		want error
	}{
		{"closed monday", time.Date(2025, 6, 2, 19, 0, 0, 0, time.UTC), ErrOutsideHours},
		{"runs past close", time.Date(2025, 6, 3, 21, 0, 0, 0, time.UTC), ErrOutsideHours},
		{"in the past", sunday.Add(-time.Hour), ErrValidation},
	}
	for _, tc := range cases {
		_, err := f.svc.CreateHold(ctx, HoldRequest{TenantRef: "bistro", PartySize: 2, SlotTime: tc.at, IdempotencyKey: "booking:" + tc.name})
		assert.ErrorIs(t, err, tc.want, tc.name)
	}
	_, err := f.svc.CreateHold(ctx, HoldRequest{TenantRef: "bistro", PartySize: 2, SlotTime: tuesday1900})
	assert.ErrorIs(t, err, ErrIdempotencyKeyRequired)
	assert.Empty(t, f.db.holds)
}

func TestReleaseHoldFreesTable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := f.hold(t, 6, tuesday1900, "booking:a")
	require.NoError(t, f.svc.ReleaseHold(ctx, "bistro", h.Hold.ID))
	f.hold(t, 6, tuesday1900, "booking:b")

	assert.ErrorIs(t, f.svc.ReleaseHold(ctx, "bistro", "missing"), ErrHoldNotFound)
}

func TestExpireHoldsRestoresCapacity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.hold(t, 6, tuesday1900, "booking:a")

	f.clock.Advance(11 * time.Minute)
	expired, purged, err := f.svc.ExpireHolds(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), expired)
	assert.Zero(t, purged)
	f.hold(t, 6, tuesday1900, "booking:b")

	f.clock.Advance(25 * time.Hour)
	_, purged, err = f.svc.ExpireHolds(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), purged)
}

func (f *fixture) confirm(hold HoldResult, key string, g model.GuestDetails, dep *model.DepositProof) (ConfirmResult, error) {
	return f.svc.Confirm(context.Background(), ConfirmRequest{
		TenantRef: "bistro", HoldID: hold.Hold.ID, Guest: g, Deposit: dep, IdempotencyKey: key,
	})
}

func TestConfirmIsIdempotent(t *testing.T) {
	f := newFixture(t)
	h := f.hold(t, 2, tuesday1900, "booking:k")

	first, err := f.confirm(h, "booking:k", guest(), nil)
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	again, err := f.confirm(h, "booking:k", guest(), nil)
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Equal(t, first.Booking.ID, again.Booking.ID)
	assert.Len(t, f.db.bookings, 1)
	assert.Equal(t, []string{queue.EventBookingCreated}, f.events.types())
}

func TestConfirmConcurrentSameKeyYieldsOneBooking(t *testing.T) {
	f := newFixture(t)
	h := f.hold(t, 2, tuesday1900, "booking:k")

	const n = 12
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.confirm(h, "booking:k", guest(), nil)
			if err == nil {
				ids[i] = res.Booking.ID
			}
		}(i)
	}
	wg.Wait()
	for i := range ids {
		assert.Equal(t, ids[0], ids[i])
	}
	assert.NotEmpty(t, ids[0])
	assert.Len(t, f.db.bookings, 1)
}

func TestConfirmRetryWithOtherGuestConflicts(t *testing.T) {
	f := newFixture(t)
	h := f.hold(t, 2, tuesday1900, "booking:k")
	_, err := f.confirm(h, "booking:k", guest(), nil)
	require.NoError(t, err)

	g := guest()
	g.Email = "someone.else@example.com"
	_, err = f.confirm(h, "booking:k", g, nil)
	assert.ErrorIs(t, err, ErrIdempotencyConflict)
	assert.Len(t, f.db.bookings, 1)
}

func TestConfirmKeyMustMatchHold(t *testing.T) {
	f := newFixture(t)
	h := f.hold(t, 2, tuesday1900, "booking:k")
	_, err := f.confirm(h, "booking:other", guest(), nil)
	assert.ErrorIs(t, err, ErrIdempotencyConflict)
	assert.Empty(t, f.db.bookings)
}

func TestConfirmValidatesBeforeWriting(t *testing.T) {
	f := newFixture(t)
	h := f.hold(t, 2, tuesday1900, "booking:k")
	g := guest()
	g.Email = "not-an-email"
	g.Phone = "12"

	_, err := f.confirm(h, "booking:k", g, nil)
	require.ErrorIs(t, err, ErrValidation)
	var fe validate.FieldErrors
	require.True(t, errors.As(err, &fe))
	assert.Contains(t, fe, "email")
	assert.Contains(t, fe, "phone")
	assert.Empty(t, f.db.bookings)
	assert.Equal(t, model.HoldActive, f.db.holds[h.Hold.ID].Status)
}

func TestConfirmExpiredOrUnknownHold(t *testing.T) {
	f := newFixture(t)
	h := f.hold(t, 2, tuesday1900, "booking:k")
	f.clock.Advance(10 * time.Minute)
	_, err := f.confirm(h, "booking:k", guest(), nil)
	assert.ErrorIs(t, err, ErrHoldExpired)

	_, err = f.svc.Confirm(context.Background(), ConfirmRequest{TenantRef: "bistro", HoldID: "nope", Guest: guest(), IdempotencyKey: "booking:x"})
	assert.ErrorIs(t, err, ErrHoldNotFound)
}

func TestConfirmStatusFollowsApprovalPolicy(t *testing.T) {
	auto := newFixture(t)
	res, err := auto.confirm(auto.hold(t, 2, tuesday1900, "booking:a"), "booking:a", guest(), nil)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, res.Booking.Status)
	assert.Equal(t, "Booking Confirmed", res.Booking.Status.Headline())

	manual := newFixture(t, withManualApproval())
	res, err = manual.confirm(manual.hold(t, 2, tuesday1900, "booking:m"), "booking:m", guest(), nil)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, res.Booking.Status)
	assert.Equal(t, "Reservation Submitted", res.Booking.Status.Headline())
	assert.NotEqual(t, "Booking Confirmed", res.Booking.Status.Headline())
}

func TestDepositGate(t *testing.T) {
	f := newFixture(t, withDeposit("25.00"))
	h := f.hold(t, 2, tuesday1900, "booking:d")
	ctx := context.Background()

	_, err := f.confirm(h, "booking:d", guest(), nil)
	assert.ErrorIs(t, err, ErrDepositRequired)
	_, err = f.confirm(h, "booking:d", guest(), &model.DepositProof{Required: true, AmountCents: 2500, Paid: false, PaymentIntentID: "pi_1"})
	assert.ErrorIs(t, err, ErrDepositRequired)

	f.pay.On("GetIntent", mock.Anything, "pi_unpaid").
		Return(model.PaymentIntent{ID: "pi_unpaid", Status: model.IntentRequiresPaymentMethod, AmountCents: 2500, Metadata: map[string]string{"tenant_id": "t-bistro"}}, nil)
	_, err = f.confirm(h, "booking:d", guest(), &model.DepositProof{Paid: true, PaymentIntentID: "pi_unpaid"})
	assert.ErrorIs(t, err, ErrDepositUnverified)

	f.pay.On("GetIntent", mock.Anything, "pi_other").
		Return(model.PaymentIntent{ID: "pi_other", Status: model.IntentSucceeded, AmountCents: 2500, Metadata: map[string]string{"tenant_id": "t-elsewhere"}}, nil)
	_, err = f.confirm(h, "booking:d", guest(), &model.DepositProof{Paid: true, PaymentIntentID: "pi_other"})
	assert.ErrorIs(t, err, ErrDepositUnverified)

	f.pay.On("GetIntent", mock.Anything, "pi_missing").Return(model.PaymentIntent{}, payment.ErrIntentNotFound)
	_, err = f.confirm(h, "booking:d", guest(), &model.DepositProof{Paid: true, PaymentIntentID: "pi_missing"})
	assert.ErrorIs(t, err, ErrDepositUnverified)
	assert.Empty(t, f.db.bookings)

	f.pay.On("GetIntent", mock.Anything, "pi_ok").
		Return(model.PaymentIntent{ID: "pi_ok", Status: model.IntentSucceeded, AmountCents: 2500, Currency: "usd", Metadata: map[string]string{"tenant_id": "t-bistro"}}, nil)
	g := guest()
	g.PaymentIntentID = "pi_ok"
	res, err := f.svc.Confirm(ctx, ConfirmRequest{TenantRef: "bistro", HoldID: h.Hold.ID, Guest: g,
		Deposit: &model.DepositProof{Required: true, AmountCents: 2500, Paid: true}, IdempotencyKey: "booking:d"})
	require.NoError(t, err)
	assert.True(t, res.Booking.DepositPaid)
	assert.Equal(t, int64(2500), res.Booking.DepositAmountCents)
	require.NotNil(t, res.Booking.PaymentIntentID)
	assert.Equal(t, "pi_ok", *res.Booking.PaymentIntentID)
	f.pay.AssertExpectations(t)
}

func TestDepositBacksOneBookingOnly(t *testing.T) {
	f := newFixture(t, withDeposit("25.00"))
	f.pay.On("GetIntent", mock.Anything, "pi_ok").
		Return(model.PaymentIntent{ID: "pi_ok", Status: model.IntentSucceeded, AmountCents: 2500, Currency: "usd", Metadata: map[string]string{"tenant_id": "t-bistro"}}, nil)
	proof := &model.DepositProof{Required: true, AmountCents: 2500, Paid: true, PaymentIntentID: "pi_ok"}

	h1 := f.hold(t, 2, tuesday1900, "booking:one")
	h2 := f.hold(t, 2, tuesday1900.Add(time.Hour), "booking:two")

	first, err := f.confirm(h1, "booking:one", guest(), proof)
	require.NoError(t, err)

	_, err = f.confirm(h2, "booking:two", guest(), proof)
	assert.ErrorIs(t, err, ErrDepositUnverified)
	assert.Len(t, f.db.bookings, 1)

	// the first attempt can still be retried
	again, err := f.confirm(h1, "booking:one", guest(), proof)
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Equal(t, first.Booking.ID, again.Booking.ID)
}

func TestDepositGateWithoutProcessor(t *testing.T) {
	f := newFixture(t, withDeposit("25.00"), withoutPayments())
	h := f.hold(t, 2, tuesday1900, "booking:d")
	_, err := f.confirm(h, "booking:d", guest(), &model.DepositProof{Paid: true, PaymentIntentID: "pi_ok"})
	assert.ErrorIs(t, err, ErrPaymentUnavailable)

	_, err = f.svc.CreatePaymentIntent(context.Background(), IntentRequest{TenantRef: "bistro", AmountCents: 2500, IdempotencyKey: "booking:d"})
	assert.ErrorIs(t, err, ErrPaymentUnavailable)
}

func TestCreatePaymentIntent(t *testing.T) {
	f := newFixture(t, withDeposit("25.00"))
	ctx := context.Background()

	_, err := f.svc.CreatePaymentIntent(ctx, IntentRequest{TenantRef: "bistro", AmountCents: 1000, IdempotencyKey: "booking:p"})
	assert.ErrorIs(t, err, ErrValidation)

	f.pay.On("CreateIntent", mock.Anything, mock.MatchedBy(func(r payment.IntentRequest) bool {
		return r.TenantID == "t-bistro" && r.AmountCents == 2500 && r.Currency == "usd" && r.IdempotencyKey == "booking:p"
	})).Return(model.PaymentIntent{ID: "pi_new", ClientSecret: "pi_new_secret", Status: model.IntentRequiresPaymentMethod, AmountCents: 2500}, nil).Once()
	pi, err := f.svc.CreatePaymentIntent(ctx, IntentRequest{TenantRef: "bistro", AmountCents: 2500, Email: "ada@example.com", IdempotencyKey: "booking:p"})
	require.NoError(t, err)
	assert.Equal(t, "pi_new_secret", pi.ClientSecret)

	f.pay.On("CreateIntent", mock.Anything, mock.Anything).Return(model.PaymentIntent{}, payment.ErrDeclined).Once()
	_, err = f.svc.CreatePaymentIntent(ctx, IntentRequest{TenantRef: "bistro", AmountCents: 2500, IdempotencyKey: "booking:q"})
	assert.ErrorIs(t, err, ErrPaymentDeclined)

	plain := newFixture(t)
	_, err = plain.svc.CreatePaymentIntent(ctx, IntentRequest{TenantRef: "bistro", AmountCents: 2500, IdempotencyKey: "booking:r"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTuesdayEveningEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	av, err := f.svc.Availability(ctx, AvailabilityRequest{TenantRef: "bistro", PartySize: 2, Date: "2025-06-03"})
	require.NoError(t, err)
	var slot *model.TimeSlot
	for i := range av.Slots {
		if av.Slots[i].Time.Equal(tuesday1900) {
			slot = &av.Slots[i]
		}
	}
	require.NotNil(t, slot)
	assert.Equal(t, 5, slot.AvailableTables)

	h := f.hold(t, 2, slot.Time, "booking:e2e")
	res, err := f.confirm(h, "booking:e2e", guest(), nil)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, res.Booking.Status)
	assert.Regexp(t, `^CONF[A-Z0-9]{6}$`, res.Booking.ConfirmationNumber())
	assert.Equal(t, "ada@example.com", res.Booking.GuestEmail)
	require.NotNil(t, res.Table)
	assert.Equal(t, h.Table.ID, res.Table.ID)

	got, _, err := f.svc.Booking(ctx, res.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, got.Status)

	av, err = f.svc.Availability(ctx, AvailabilityRequest{TenantRef: "bistro", PartySize: 2, Date: "2025-06-03"})
	require.NoError(t, err)
	for _, s := range av.Slots {
		if s.Time.Equal(tuesday1900) {
			assert.Equal(t, 4, s.AvailableTables)
		}
	}
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.confirm(f.hold(t, 2, tuesday1900, "booking:s"), "booking:s", guest(), nil)
	require.NoError(t, err)
	id := res.Booking.ID

	b, err := f.svc.UpdateStatus(ctx, "t-bistro", id, model.StatusSeated)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSeated, b.Status)

	b, err = f.svc.UpdateStatus(ctx, "t-bistro", id, model.StatusSeated)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSeated, b.Status)

	_, err = f.svc.UpdateStatus(ctx, "t-bistro", id, model.StatusCancelled)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.UpdateStatus(ctx, "t-other", id, model.StatusCompleted)
	assert.ErrorIs(t, err, ErrBookingNotFound)

	assert.Equal(t, []string{queue.EventBookingCreated, queue.EventBookingStatusChanged}, f.events.types())
}

func TestGuestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.confirm(f.hold(t, 6, tuesday1900, "booking:c"), "booking:c", guest(), nil)
	require.NoError(t, err)

	_, err = f.svc.GuestCancel(ctx, res.Booking.ID, "someone@else.com")
	assert.ErrorIs(t, err, ErrBookingNotFound)

	b, err := f.svc.GuestCancel(ctx, res.Booking.ID, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, b.Status)

	// the big table is free again
	f.hold(t, 6, tuesday1900, "booking:c2")
}

func TestListBookingsByLocalDate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.confirm(f.hold(t, 2, tuesday1900, "booking:l1"), "booking:l1", guest(), nil)
	require.NoError(t, err)
	_, err = f.confirm(f.hold(t, 2, time.Date(2025, 6, 6, 20, 0, 0, 0, time.UTC), "booking:l2"), "booking:l2", guest(), nil)
	require.NoError(t, err)

	list, err := f.svc.ListBookings(ctx, "t-bistro", "2025-06-03")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, tuesday1900, list[0].BookingTime)

	_, err = f.svc.ListBookings(ctx, "t-bistro", "tuesday")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSuspendedTenantRejectsWrites(t *testing.T) {
	f := newFixture(t)
	tn := bistro()
	tn.Status = model.TenantSuspended
	f.db.setTenant(tn)

	_, err := f.svc.CreateHold(context.Background(), HoldRequest{TenantRef: "bistro", PartySize: 2, SlotTime: tuesday1900, IdempotencyKey: "booking:z"})
	assert.ErrorIs(t, err, ErrTenantNotFound)
}
