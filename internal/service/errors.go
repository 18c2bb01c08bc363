package service

import "errors"

// Sentinel errors returned by the booking service.  Handlers map them to
// HTTP status codes and machine readable codes; the client maps those
// back into its own error classes.
var (
	ErrValidation             = errors.New("validation failed")
	ErrIdempotencyKeyRequired = errors.New("idempotency key required")
	ErrIdempotencyConflict    = errors.New("idempotency key reused with different parameters")

	ErrTenantNotFound  = errors.New("tenant not found")
	ErrBookingNotFound = errors.New("reservation not found")
	ErrHoldNotFound    = errors.New("hold not found")

	ErrOutsideHours    = errors.New("slot outside business hours")
	ErrSlotUnavailable = errors.New("slot no longer available")
	ErrHoldExpired     = errors.New("hold expired")

	ErrDepositRequired    = errors.New("deposit required")
	ErrDepositUnverified  = errors.New("deposit could not be verified")
	ErrPaymentDeclined    = errors.New("card declined")
	ErrPaymentFailed      = errors.New("payment failed")
	ErrPaymentUnavailable = errors.New("payments not configured")

	ErrInvalidTransition = errors.New("invalid status transition")
)
