package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/queue"
	"github.com/iliyamo/table-reservation/internal/repository"
)

// UpdateStatus moves a booking of the tenant along the status machine.
// Requesting the current status again is a no-op.
func (s *Service) UpdateStatus(ctx context.Context, tenantID, bookingID string, to model.BookingStatus) (*model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, tenantID, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if b.Status == to {
		return b, nil
	}
	return s.transition(ctx, b, to)
}

// GuestCancel cancels a pending or confirmed booking on behalf of the
// guest.  The email must match the one given at confirmation; a
// mismatch reads as not found.
func (s *Service) GuestCancel(ctx context.Context, bookingID, email string) (*model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, "", strings.TrimSpace(bookingID))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if email = strings.TrimSpace(email); email == "" || !strings.EqualFold(email, b.GuestEmail) {
		return nil, ErrBookingNotFound
	}
	if b.Status == model.StatusCancelled {
		return b, nil
	}
	return s.transition(ctx, b, model.StatusCancelled)
}

func (s *Service) transition(ctx context.Context, b *model.Booking, to model.BookingStatus) (*model.Booking, error) {
	if !b.Status.CanTransition(to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, to)
	}
	from := b.Status
	if err := s.bookings.UpdateStatus(ctx, b.TenantID, b.ID, from, to); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return nil, fmt.Errorf("%w: status changed concurrently", ErrInvalidTransition)
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("update status: %w", err)
	}
	updated := *b
	updated.Status = to
	now := s.now()
	updated.UpdatedAt = now.UTC()

	s.log.Info("booking status changed", zap.String("booking_id", b.ID),
		zap.String("from", string(from)), zap.String("to", string(to)))
	s.publish(ctx, queue.NewBookingEvent(queue.EventBookingStatusChanged, updated, from, now))
	return &updated, nil
}

// ListBookings returns the tenant's bookings starting on the given local
// date.
func (s *Service) ListBookings(ctx context.Context, tenantID, date string) ([]model.Booking, error) {
	t, _, err := s.Tenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	loc := t.Location()
	var day time.Time
	if strings.TrimSpace(date) == "" {
		n := s.now().In(loc)
		day = time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, loc)
	} else if day, err = time.ParseInLocation(DateLayout, strings.TrimSpace(date), loc); err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}
	next := day.AddDate(0, 0, 1)
	list, err := s.bookings.ListByTenantBetween(ctx, t.ID, day.UTC(), next.UTC())
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return list, nil
}
