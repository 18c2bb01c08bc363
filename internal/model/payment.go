package model

// Payment intent statuses the booking flow cares about.  They mirror the
// processor's vocabulary.
const (
	IntentSucceeded             = "succeeded"
	IntentRequiresPaymentMethod = "requires_payment_method"
	IntentRequiresConfirmation  = "requires_confirmation"
	IntentRequiresAction        = "requires_action"
	IntentProcessing            = "processing"
	IntentCanceled              = "canceled"
)

// PaymentIntent is the external payment object owned by the processor.
// The booking flow only ever reads its id, status and amount.
type PaymentIntent struct {
	ID           string            `json:"id"`
	ClientSecret string            `json:"client_secret,omitempty"`
	Status       string            `json:"status"`
	AmountCents  int64             `json:"amount_cents"`
	Currency     string            `json:"currency"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Succeeded reports whether the payment has been captured.
func (p PaymentIntent) Succeeded() bool { return p.Status == IntentSucceeded }
