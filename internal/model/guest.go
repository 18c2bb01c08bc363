package model

import "strings"

// GuestDetails is the transient guest input collected before
// confirmation.  It is folded into the Booking and never stored on its
// own.
type GuestDetails struct {
	FirstName       string `json:"first_name" validate:"required,max=100"`
	LastName        string `json:"last_name" validate:"required,max=100"`
	Email           string `json:"email" validate:"required,email,max=254"`
	Phone           string `json:"phone" validate:"required,min=7,max=20,phone"`
	SpecialRequests string `json:"special_requests,omitempty" validate:"max=500"`
	PaymentIntentID string `json:"payment_intent_id,omitempty" validate:"max=255"`
}

// Normalize trims whitespace and lower-cases the email.
func (g GuestDetails) Normalize() GuestDetails {
	g.FirstName = strings.TrimSpace(g.FirstName)
	g.LastName = strings.TrimSpace(g.LastName)
	g.Email = strings.ToLower(strings.TrimSpace(g.Email))
	g.Phone = strings.TrimSpace(g.Phone)
	g.SpecialRequests = strings.TrimSpace(g.SpecialRequests)
	g.PaymentIntentID = strings.TrimSpace(g.PaymentIntentID)
	return g
}

// DepositProof is what the guest presents for a required deposit.
type DepositProof struct {
	Required        bool   `json:"required"`
	AmountCents     int64  `json:"amount_cents"`
	Paid            bool   `json:"paid"`
	PaymentIntentID string `json:"payment_intent_id"`
}
