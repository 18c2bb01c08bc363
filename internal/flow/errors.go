package flow

import (
	"errors"

	"github.com/iliyamo/table-reservation/internal/client"
)

var (
	// ErrInvalidGuest wraps validate.FieldErrors for guest details that
	// are rejected before any call is made.
	ErrInvalidGuest = errors.New("guest details are invalid")

	ErrSlotNotOffered       = errors.New("slot is not offered")
	ErrOutOfOrder           = errors.New("step called out of order")
	ErrDepositRequired      = errors.New("deposit must be paid before confirming")
	ErrPaymentUnavailable   = errors.New("online payment is unavailable")
	ErrPaymentIncomplete    = errors.New("payment did not succeed")
	ErrVerificationMismatch = errors.New("booking could not be verified")
)

// UserMessage turns a step failure into text for the guest.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidGuest):
		return "Please check your details: " + err.Error()
	case errors.Is(err, ErrSlotNotOffered):
		return "That time is not available. Please pick one of the listed times."
	case errors.Is(err, ErrPaymentUnavailable):
		return "This restaurant requires a deposit but online payment is unavailable right now, so the booking cannot be submitted."
	case errors.Is(err, ErrDepositRequired):
		return "A deposit is required before the booking can be confirmed."
	case errors.Is(err, ErrPaymentIncomplete):
		return "Your payment did not go through. Please try again."
	case errors.Is(err, client.ErrTimeout):
		return "The booking service took too long to answer. It is safe to try again."
	case errors.Is(err, client.ErrNetwork):
		return "We could not reach the booking service. Check your connection and try again."
	case errors.Is(err, client.ErrCapacity):
		return "Sorry, that table is no longer available. Please choose another time."
	case errors.Is(err, client.ErrPayment):
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Code == "card_declined" {
			return "Your card was declined. Please try another card."
		}
		return "The deposit could not be processed. Please try again."
	case errors.Is(err, client.ErrNotFound):
		return "We could not find that restaurant or reservation."
	case errors.Is(err, client.ErrValidation):
		return "The booking request was rejected: " + err.Error()
	case errors.Is(err, client.ErrUpstreamUnavailable):
		return "The booking service is temporarily unavailable. Please try again shortly."
	}
	return "Something went wrong. Please try again."
}
