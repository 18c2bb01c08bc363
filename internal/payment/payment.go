// Package payment is the boundary to the card processor.  The booking
// service only needs to create a deposit intent and read one back; the
// Stripe adapter in this package implements both.
package payment

import (
	"context"
	"errors"

	"github.com/iliyamo/table-reservation/internal/model"
)

var (
	// ErrDeclined is a card decline.  The guest may retry with another card.
	ErrDeclined = errors.New("card declined")
	// ErrProcessor covers every other processor failure.
	ErrProcessor = errors.New("payment processor error")
	// ErrIntentNotFound is returned when the processor has no such intent.
	ErrIntentNotFound = errors.New("payment intent not found")
)

// IntentRequest describes a deposit to collect.
type IntentRequest struct {
	TenantID       string
	AmountCents    int64
	Currency       string
	Email          string
	Description    string
	IdempotencyKey string
}

// Processor creates and reads payment intents.
type Processor interface {
	CreateIntent(ctx context.Context, req IntentRequest) (model.PaymentIntent, error)
	GetIntent(ctx context.Context, id string) (model.PaymentIntent, error)
}

// DepositKey derives the processor idempotency key from a booking key so
// a retried deposit never charges twice.
func DepositKey(bookingKey string) string { return bookingKey + ":deposit" }
