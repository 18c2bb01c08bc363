package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"

	"github.com/iliyamo/table-reservation/internal/model"
)

// Stripe implements Processor against the Stripe PaymentIntents API.
type Stripe struct {
	client paymentintent.Client
}

// NewStripe returns a Stripe processor using the secret key.  An empty
// key yields nil so callers can treat deposits as unavailable.
func NewStripe(secretKey string) *Stripe {
	if strings.TrimSpace(secretKey) == "" {
		return nil
	}
	return &Stripe{client: paymentintent.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey}}
}

// CreateIntent creates a deposit intent with automatic payment methods.
// The tenant id is recorded in metadata and checked again at
// confirmation.
func (s *Stripe) CreateIntent(ctx context.Context, req IntentRequest) (model.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountCents),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	if req.Email != "" {
		params.ReceiptEmail = stripe.String(req.Email)
	}
	params.Context = ctx
	params.AddMetadata("tenant_id", req.TenantID)
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(DepositKey(req.IdempotencyKey))
	}
	pi, err := s.client.New(params)
	if err != nil {
		return model.PaymentIntent{}, mapStripeError(err)
	}
	return fromStripe(pi), nil
}

// GetIntent reads an intent back from Stripe.
func (s *Stripe) GetIntent(ctx context.Context, id string) (model.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := s.client.Get(id, params)
	if err != nil {
		return model.PaymentIntent{}, mapStripeError(err)
	}
	return fromStripe(pi), nil
}

// TestCollector confirms intents with Stripe's test card.  It refuses
// to run with a live key and exists for the operator CLI's book command.
type TestCollector struct {
	client paymentintent.Client
}

// NewTestCollector returns a collector for a sk_test_ key.
func NewTestCollector(secretKey string) (*TestCollector, error) {
	if !strings.HasPrefix(secretKey, "sk_test_") {
		return nil, fmt.Errorf("%w: test collector needs a sk_test_ key", ErrProcessor)
	}
	return &TestCollector{client: paymentintent.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey}}, nil
}

// Collect confirms the intent with the pm_card_visa test method and
// returns it.
func (c *TestCollector) Collect(ctx context.Context, intentID, _ string) (model.PaymentIntent, error) {
	params := &stripe.PaymentIntentConfirmParams{PaymentMethod: stripe.String("pm_card_visa")}
	params.Context = ctx
	pi, err := c.client.Confirm(intentID, params)
	if err != nil {
		return model.PaymentIntent{}, mapStripeError(err)
	}
	return fromStripe(pi), nil
}

func fromStripe(pi *stripe.PaymentIntent) model.PaymentIntent {
	return model.PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		AmountCents:  pi.Amount,
		Currency:     string(pi.Currency),
		Metadata:     pi.Metadata,
	}
}

func mapStripeError(err error) error {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return fmt.Errorf("%w: %v", ErrProcessor, err)
	}
	switch {
	case se.Type == stripe.ErrorTypeCard:
		return fmt.Errorf("%w: %s", ErrDeclined, se.Msg)
	case se.HTTPStatusCode == http.StatusNotFound || se.Code == stripe.ErrorCodeResourceMissing:
		return fmt.Errorf("%w: %s", ErrIntentNotFound, se.Msg)
	}
	return fmt.Errorf("%w: %s", ErrProcessor, se.Msg)
}
