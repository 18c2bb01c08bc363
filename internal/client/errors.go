package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Error classes.  Transport failures and API rejections match exactly
// one of them with errors.Is.
var (
	ErrTimeout             = errors.New("request timed out")
	ErrNetwork             = errors.New("network error")
	ErrValidation          = errors.New("request rejected")
	ErrCapacity            = errors.New("slot no longer available")
	ErrPayment             = errors.New("payment problem")
	ErrNotFound            = errors.New("not found")
	ErrUpstreamUnavailable = errors.New("booking service unavailable")
)

// APIError is a non-2xx answer from the booking API.
type APIError struct {
	Status  int
	Code    string
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("booking api: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("booking api: %s (%d): %s", e.Code, e.Status, e.Message)
}

// Unwrap returns the class of the error.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case "slot_unavailable", "hold_expired", "hold_not_found":
		return ErrCapacity
	case "deposit_required", "deposit_unverified", "card_declined", "payment_failed", "payment_unavailable":
		return ErrPayment
	case "tenant_not_found", "reservation_not_found":
		return ErrNotFound
	}
	switch {
	case e.Status == http.StatusTooManyRequests, e.Status >= 500:
		return ErrUpstreamUnavailable
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	}
	return ErrValidation
}

// Retryable reports whether repeating the same call may succeed: card
// declines can be retried with another card and an overloaded service
// later.  Capacity errors need a fresh availability query instead.
func (e *APIError) Retryable() bool {
	return e.Code == "card_declined" || errors.Is(e, ErrUpstreamUnavailable)
}
