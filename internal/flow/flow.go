// Package flow drives one guest booking attempt against the booking API:
// availability, slot choice, hold, deposit, confirmation and a
// background read-back.  Each step is a separate call and every step
// takes and updates an explicit State.
package flow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/table-reservation/internal/api"
	"github.com/iliyamo/table-reservation/internal/client"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/validate"
)

// API is the part of *client.Client the workflow calls.
type API interface {
	Tenant(ctx context.Context, ref string) (api.Tenant, error)
	Availability(ctx context.Context, ref string, party int, date string) (model.Availability, error)
	PlaceHold(ctx context.Context, ref string, req api.HoldRequest, key string) (api.Hold, error)
	CreatePaymentIntent(ctx context.Context, ref string, req api.IntentRequest, key string) (model.PaymentIntent, error)
	Confirm(ctx context.Context, ref string, req api.ConfirmRequest, key string) (api.Booking, error)
	Reservation(ctx context.Context, id string) (api.Booking, error)
}

// PaymentCollector confirms a deposit intent with the processor's own
// card collection, given the client secret, and returns the intent.
// payment.TestCollector is one implementation.
type PaymentCollector interface {
	Collect(ctx context.Context, intentID, clientSecret string) (model.PaymentIntent, error)
}

// DefaultVerifyDelay is how long the read-back waits after confirmation.
const DefaultVerifyDelay = 1500 * time.Millisecond

type Workflow struct {
	api         API
	payments    PaymentCollector
	log         *zap.Logger
	verifyDelay time.Duration
}

type Option func(*Workflow)

func WithVerifyDelay(d time.Duration) Option { return func(w *Workflow) { w.verifyDelay = d } }

func WithLogger(log *zap.Logger) Option {
	return func(w *Workflow) {
		if log != nil {
			w.log = log
		}
	}
}

// New returns a workflow.  payments may be nil; tenants that require a
// deposit then cannot be booked.
func New(a API, payments PaymentCollector, opts ...Option) *Workflow {
	w := &Workflow{api: a, payments: payments, log: zap.NewNop(), verifyDelay: DefaultVerifyDelay}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Outcome is what the guest is shown after confirming.  Pending and
// confirmed bookings get different headlines.
type Outcome struct {
	BookingID          string
	ConfirmationNumber string
	Status             model.BookingStatus
	Headline           string
	Message            string
	Summary            api.Summary
	Replayed           bool
}

// LoadAvailability fetches the tenant and the slots for the state's
// date.  Slots outside the tenant's business hours are dropped even if
// the server returned them.
func (w *Workflow) LoadAvailability(ctx context.Context, st *State) error {
	t, err := w.api.Tenant(ctx, st.TenantRef)
	if err != nil {
		return fmt.Errorf("load tenant: %w", err)
	}
	av, err := w.api.Availability(ctx, st.TenantRef, st.PartySize, st.Date)
	if err != nil {
		return fmt.Errorf("load availability: %w", err)
	}
	tm := t.Model()
	st.Tenant = t
	st.Slots = model.ClampSlots(tm, av.Slots)
	st.Alternatives = model.ClampSlots(tm, av.Alternatives)
	st.Deposit = av.DepositPolicy
	if dropped := len(av.Slots) + len(av.Alternatives) - len(st.Slots) - len(st.Alternatives); dropped > 0 {
		w.log.Warn("dropped slots outside business hours", zap.String("tenant", st.TenantRef),
			zap.String("date", st.Date), zap.Int("dropped", dropped))
	}
	st.Step = StepSelectSlot
	return nil
}

// SelectSlot picks one of the offered slots or alternatives.
func (w *Workflow) SelectSlot(st *State, at time.Time) error {
	if st.Step < StepSelectSlot {
		return fmt.Errorf("%w: load availability first", ErrOutOfOrder)
	}
	for _, list := range [][]model.TimeSlot{st.Slots, st.Alternatives} {
		for _, s := range list {
			if s.Time.Equal(at) {
				t := s.Time
				st.Selected = &t
				st.Hold = nil
				st.Step = StepHold
				return nil
			}
		}
	}
	return fmt.Errorf("%w: %s", ErrSlotNotOffered, at.Format(time.RFC3339))
}

// PlaceHold reserves the selected slot.  When the slot is gone the state
// is restarted and the caller should load availability again.
func (w *Workflow) PlaceHold(ctx context.Context, st *State) error {
	if st.Selected == nil {
		return fmt.Errorf("%w: select a slot first", ErrOutOfOrder)
	}
	h, err := w.api.PlaceHold(ctx, st.TenantRef, api.HoldRequest{
		PartySize: st.PartySize,
		SlotTime:  *st.Selected,
	}, st.IdempotencyKey)
	if err != nil {
		if errors.Is(err, client.ErrCapacity) {
			st.Restart()
		}
		return fmt.Errorf("place hold: %w", err)
	}
	st.Hold = &h
	st.Step = StepGuest
	w.log.Info("hold placed", zap.String("hold_id", h.ID), zap.Time("expires_at", h.ExpiresAt), zap.Bool("replayed", h.Replayed))
	return nil
}

// SetGuest validates and stores the guest details.  Invalid details
// never reach the server.
func (w *Workflow) SetGuest(st *State, g model.GuestDetails) error {
	g = g.Normalize()
	if err := validate.Struct(g); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidGuest, err)
	}
	if st.Payment != nil {
		g.PaymentIntentID = st.Payment.PaymentIntentID
	}
	st.Guest = g
	if st.Step < StepConfirm && st.Hold != nil {
		st.Step = StepPayment
		if !st.Deposit.Required || st.Payment != nil {
			st.Step = StepConfirm
		}
	}
	return nil
}

// PayDeposit collects the deposit when the tenant requires one.  A
// declined card leaves the state unchanged so the step can be retried.
func (w *Workflow) PayDeposit(ctx context.Context, st *State) error {
	if !st.Deposit.Required || st.Payment != nil {
		return nil
	}
	if st.Hold == nil || st.Guest.Email == "" {
		return fmt.Errorf("%w: hold and guest details come before payment", ErrOutOfOrder)
	}
	if w.payments == nil {
		return ErrPaymentUnavailable
	}
	amount := st.Deposit.AmountCents()
	pi, err := w.api.CreatePaymentIntent(ctx, st.TenantRef, api.IntentRequest{
		AmountCents: amount,
		Email:       st.Guest.Email,
	}, st.IdempotencyKey)
	if err != nil {
		return fmt.Errorf("create payment intent: %w", err)
	}
	paid, err := w.payments.Collect(ctx, pi.ID, pi.ClientSecret)
	if err != nil {
		return fmt.Errorf("collect payment: %w", err)
	}
	if !paid.Succeeded() {
		return fmt.Errorf("%w: intent %s is %s", ErrPaymentIncomplete, paid.ID, paid.Status)
	}
	st.Payment = &model.DepositProof{Required: true, AmountCents: amount, Paid: true, PaymentIntentID: paid.ID}
	st.Guest.PaymentIntentID = paid.ID
	st.Step = StepConfirm
	w.log.Info("deposit paid", zap.String("payment_intent_id", paid.ID), zap.Int64("amount_cents", amount))
	return nil
}

// Confirm converts the hold into a booking using the hold's key and
// starts the background read-back.  The returned Outcome stands no
// matter what the read-back finds.
func (w *Workflow) Confirm(ctx context.Context, st *State) (Outcome, *Verification, error) {
	if st.Hold == nil {
		return Outcome{}, nil, fmt.Errorf("%w: place a hold first", ErrOutOfOrder)
	}
	if err := validate.Struct(st.Guest); err != nil {
		return Outcome{}, nil, fmt.Errorf("%w: %w", ErrInvalidGuest, err)
	}
	if st.Deposit.Required && (st.Payment == nil || !st.Payment.Paid) {
		return Outcome{}, nil, ErrDepositRequired
	}

	b, err := w.api.Confirm(ctx, st.TenantRef, api.ConfirmRequest{
		HoldID:  st.Hold.ID,
		Guest:   st.Guest,
		Deposit: st.Payment,
	}, st.IdempotencyKey)
	if err != nil {
		if errors.Is(err, client.ErrCapacity) {
			st.Restart()
		}
		return Outcome{}, nil, fmt.Errorf("confirm: %w", err)
	}
	st.Booking = &b
	st.Step = StepDone

	status := model.BookingStatus(b.Status)
	out := Outcome{
		BookingID:          b.ID,
		ConfirmationNumber: b.ConfirmationNumber,
		Status:             status,
		Headline:           status.Headline(),
		Message:            status.Message(),
		Summary:            b.Summary,
		Replayed:           b.Replayed,
	}
	if out.ConfirmationNumber == "" {
		out.ConfirmationNumber = model.ConfirmationNumber(b.ID)
	}
	w.log.Info("booking confirmed", zap.String("booking_id", b.ID), zap.String("status", b.Status),
		zap.String("confirmation_number", out.ConfirmationNumber))
	return out, w.verify(b), nil
}

// BookRequest describes a whole attempt for Book.
type BookRequest struct {
	TenantRef string
	PartySize int
	Date      string
	// SlotTime picks the slot; zero takes the first offered one.
	SlotTime time.Time
	Guest    model.GuestDetails
}

// Book runs every step in order.  On failure the returned state tells
// the caller where the attempt stopped.
func (w *Workflow) Book(ctx context.Context, req BookRequest) (*State, Outcome, *Verification, error) {
	st := NewState(req.TenantRef, req.PartySize, req.Date)
	// details are checked before the first call
	if err := w.SetGuest(st, req.Guest); err != nil {
		return st, Outcome{}, nil, err
	}
	if err := w.LoadAvailability(ctx, st); err != nil {
		return st, Outcome{}, nil, err
	}
	at := req.SlotTime
	if at.IsZero() {
		if len(st.Slots) == 0 {
			return st, Outcome{}, nil, fmt.Errorf("%w: no slots on %s", ErrSlotNotOffered, st.Date)
		}
		at = st.Slots[0].Time
	}
	if err := w.SelectSlot(st, at); err != nil {
		return st, Outcome{}, nil, err
	}
	if err := w.PlaceHold(ctx, st); err != nil {
		return st, Outcome{}, nil, err
	}
	if err := w.SetGuest(st, req.Guest); err != nil {
		return st, Outcome{}, nil, err
	}
	if err := w.PayDeposit(ctx, st); err != nil {
		return st, Outcome{}, nil, err
	}
	out, v, err := w.Confirm(ctx, st)
	return st, out, v, err
}
