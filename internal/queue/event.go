// Package queue defines the booking events exchanged over RabbitMQ and
// the publisher and consumer that move them.
package queue

import (
	"time"

	"github.com/iliyamo/table-reservation/internal/model"
)

// Event types.  Each type is routed to a durable queue of the same name.
const (
	EventBookingCreated       = "booking.created"
	EventBookingStatusChanged = "booking.status_changed"
)

// BookingEvent is published after a booking is committed or changes
// status.  It carries enough for downstream consumers (notification,
// audit, analytics) to act without reading the primary database.
type BookingEvent struct {
	Type               string `json:"type"`
	BookingID          string `json:"booking_id"`
	TenantID           string `json:"tenant_id"`
	ConfirmationNumber string `json:"confirmation_number"`
	Status             string `json:"status"`
	PreviousStatus     string `json:"previous_status,omitempty"`
	GuestName          string `json:"guest_name"`
	GuestEmail         string `json:"guest_email"`
	PartySize          int    `json:"party_size"`
	TableID            uint64 `json:"table_id,omitempty"`
	BookingTime        string `json:"booking_time"`
	DepositPaid        bool   `json:"deposit_paid"`
	DepositAmountCents int64  `json:"deposit_amount_cents"`
	OccurredAt         string `json:"occurred_at"`
}

// NewBookingEvent builds an event of the given type from a booking.
func NewBookingEvent(typ string, b model.Booking, previous model.BookingStatus, at time.Time) BookingEvent {
	ev := BookingEvent{
		Type:               typ,
		BookingID:          b.ID,
		TenantID:           b.TenantID,
		ConfirmationNumber: b.ConfirmationNumber(),
		Status:             string(b.Status),
		PreviousStatus:     string(previous),
		GuestName:          b.GuestFirstName + " " + b.GuestLastName,
		GuestEmail:         b.GuestEmail,
		PartySize:          b.PartySize,
		BookingTime:        b.BookingTime.UTC().Format(time.RFC3339),
		DepositPaid:        b.DepositPaid,
		DepositAmountCents: b.DepositAmountCents,
		OccurredAt:         at.UTC().Format(time.RFC3339),
	}
	if b.TableID != nil {
		ev.TableID = *b.TableID
	}
	return ev
}
