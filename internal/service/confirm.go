package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/queue"
	"github.com/iliyamo/table-reservation/internal/repository"
	"github.com/iliyamo/table-reservation/internal/validate"
)

// ConfirmRequest turns a hold into a booking.  IdempotencyKey must be
// the key the hold was created with.
type ConfirmRequest struct {
	TenantRef      string
	HoldID         string
	Guest          model.GuestDetails
	Deposit        *model.DepositProof
	IdempotencyKey string
}

// ConfirmResult is the committed booking.  Replayed is true when the key
// had already produced it.
type ConfirmResult struct {
	Booking  *model.Booking
	Table    *model.Table
	Replayed bool
}

// Confirm validates the guest, enforces the deposit policy and converts
// the hold into a booking whose initial status follows the tenant's
// approval policy.  At most one booking exists per key.
func (s *Service) Confirm(ctx context.Context, req ConfirmRequest) (ConfirmResult, error) {
	key, err := checkKey(req.IdempotencyKey)
	if err != nil {
		return ConfirmResult{}, err
	}
	holdID := strings.TrimSpace(req.HoldID)
	if holdID == "" {
		return ConfirmResult{}, fmt.Errorf("%w: hold_id is required", ErrValidation)
	}
	guest := req.Guest.Normalize()
	if err := validate.Struct(guest); err != nil {
		return ConfirmResult{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	t, err := s.verifiedTenant(ctx, req.TenantRef)
	if err != nil {
		return ConfirmResult{}, err
	}

	hash := confirmHash(t.ID, holdID, guest)
	if res, done, err := s.replayBooking(ctx, t, key, holdID, hash); done {
		return res, err
	}

	hold, err := s.holds.GetByID(ctx, t.ID, holdID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ConfirmResult{}, ErrHoldNotFound
		}
		return ConfirmResult{}, fmt.Errorf("get hold: %w", err)
	}
	if hold.IdempotencyKey != key {
		return ConfirmResult{}, ErrIdempotencyConflict
	}
	if hold.Status == model.HoldConverted {
		if res, done, err := s.replayBooking(ctx, t, key, holdID, hash); done {
			return res, err
		}
	}
	now := s.now()
	if !hold.IsActive(now) {
		return ConfirmResult{}, ErrHoldExpired
	}

	deposit, err := s.checkDeposit(ctx, t, req.Deposit, guest.PaymentIntentID)
	if err != nil {
		return ConfirmResult{}, err
	}

	b := &model.Booking{
		ID:                 s.newID(),
		TenantID:           t.ID,
		HoldID:             hold.ID,
		GuestFirstName:     guest.FirstName,
		GuestLastName:      guest.LastName,
		GuestEmail:         guest.Email,
		GuestPhone:         guest.Phone,
		Status:             t.InitialStatus(),
		DepositRequired:    deposit.Required,
		DepositAmountCents: deposit.AmountCents,
		DepositPaid:        deposit.Paid,
		SpecialRequests:    guest.SpecialRequests,
		IdempotencyKey:     key,
		RequestHash:        hash,
	}
	if deposit.PaymentIntentID != "" {
		pi := deposit.PaymentIntentID
		b.PaymentIntentID = &pi
	}

	switch err := s.bookings.ConvertHold(ctx, b, now); {
	case err == nil:
	case errors.Is(err, repository.ErrHoldConsumed), errors.Is(err, repository.ErrDuplicateKey):
		// a concurrent confirm with the same key committed first
		if res, done, rerr := s.replayBooking(ctx, t, key, holdID, hash); done {
			return res, rerr
		}
		return ConfirmResult{}, ErrHoldExpired
	case errors.Is(err, repository.ErrDepositConsumed):
		if res, done, rerr := s.replayBooking(ctx, t, key, holdID, hash); done {
			return res, rerr
		}
		s.log.Warn("deposit reused", zap.String("tenant_id", t.ID), zap.String("hold_id", hold.ID),
			zap.String("payment_intent_id", deposit.PaymentIntentID))
		return ConfirmResult{}, ErrDepositUnverified
	case errors.Is(err, repository.ErrHoldExpired):
		return ConfirmResult{}, ErrHoldExpired
	case errors.Is(err, repository.ErrNotFound):
		return ConfirmResult{}, ErrHoldNotFound
	default:
		return ConfirmResult{}, fmt.Errorf("confirm booking: %w", err)
	}

	s.log.Info("booking confirmed", zap.String("tenant_id", t.ID), zap.String("booking_id", b.ID),
		zap.String("status", string(b.Status)), zap.Bool("deposit_paid", b.DepositPaid))
	s.publish(ctx, queue.NewBookingEvent(queue.EventBookingCreated, *b, "", now))

	return ConfirmResult{Booking: b, Table: s.lookupTable(ctx, t.ID, b.TableID)}, nil
}

// confirmHash fingerprints the parts of a confirmation a retry must repeat.
func confirmHash(tenantID, holdID string, g model.GuestDetails) string {
	return requestHash("confirm", tenantID, holdID, g.FirstName, g.LastName, g.Email, g.Phone, g.SpecialRequests)
}

func (s *Service) replayBooking(ctx context.Context, t model.Tenant, key, holdID, hash string) (ConfirmResult, bool, error) {
	existing, err := s.bookings.FindByKey(ctx, t.ID, key)
	if errors.Is(err, repository.ErrNotFound) {
		return ConfirmResult{}, false, nil
	}
	if err != nil {
		return ConfirmResult{}, true, fmt.Errorf("find booking: %w", err)
	}
	if existing.HoldID != holdID || existing.RequestHash != hash {
		return ConfirmResult{}, true, ErrIdempotencyConflict
	}
	return ConfirmResult{Booking: existing, Table: s.lookupTable(ctx, t.ID, existing.TableID), Replayed: true}, true, nil
}

// lookupTable resolves a table for display.  Failures only cost the
// label, so they are logged and swallowed.
func (s *Service) lookupTable(ctx context.Context, tenantID string, id *uint64) *model.Table {
	if id == nil {
		return nil
	}
	tables, err := s.tables.ListActive(ctx, tenantID)
	if err != nil {
		s.log.Warn("list tables failed", zap.String("tenant_id", tenantID), zap.Error(err))
		return &model.Table{ID: *id}
	}
	if t := tableByID(tables, *id); t != nil {
		return t
	}
	return &model.Table{ID: *id}
}

// Booking returns a reservation by id for the public read-back.
func (s *Service) Booking(ctx context.Context, id string) (*model.Booking, *model.Table, error) {
	b, err := s.bookings.GetByID(ctx, "", strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrBookingNotFound
		}
		return nil, nil, fmt.Errorf("get booking: %w", err)
	}
	return b, s.lookupTable(ctx, b.TenantID, b.TableID), nil
}
