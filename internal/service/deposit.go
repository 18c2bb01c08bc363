package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/payment"
)

// IntentRequest asks for a deposit payment intent.
type IntentRequest struct {
	TenantRef      string
	AmountCents    int64
	Email          string
	IdempotencyKey string
}

// CreatePaymentIntent opens a deposit intent with the processor.  The
// amount must match the tenant's deposit policy exactly.
func (s *Service) CreatePaymentIntent(ctx context.Context, req IntentRequest) (model.PaymentIntent, error) {
	if s.payments == nil {
		return model.PaymentIntent{}, ErrPaymentUnavailable
	}
	key, err := checkKey(req.IdempotencyKey)
	if err != nil {
		return model.PaymentIntent{}, err
	}
	t, err := s.verifiedTenant(ctx, req.TenantRef)
	if err != nil {
		return model.PaymentIntent{}, err
	}
	if !t.Deposit.Required {
		return model.PaymentIntent{}, fmt.Errorf("%w: tenant does not take deposits", ErrValidation)
	}
	if want := t.Deposit.AmountCents(); req.AmountCents != want {
		return model.PaymentIntent{}, fmt.Errorf("%w: amount_cents must be %d", ErrValidation, want)
	}
	desc := t.Deposit.Description
	if desc == "" {
		desc = "Booking deposit - " + t.Name
	}
	pi, err := s.payments.CreateIntent(ctx, payment.IntentRequest{
		TenantID:       t.ID,
		AmountCents:    req.AmountCents,
		Currency:       t.Currency,
		Email:          strings.ToLower(strings.TrimSpace(req.Email)),
		Description:    desc,
		IdempotencyKey: key,
	})
	if err != nil {
		s.log.Warn("create payment intent failed", zap.String("tenant_id", t.ID), zap.Error(err))
		return model.PaymentIntent{}, paymentErr(err)
	}
	return pi, nil
}

func paymentErr(err error) error {
	if errors.Is(err, payment.ErrDeclined) {
		return fmt.Errorf("%w: %v", ErrPaymentDeclined, err)
	}
	return fmt.Errorf("%w: %v", ErrPaymentFailed, err)
}

// checkDeposit enforces the tenant's deposit policy.  The intent named
// by the guest is read back from the processor; the guest's claim that
// it was paid is never trusted on its own.
func (s *Service) checkDeposit(ctx context.Context, t model.Tenant, proof *model.DepositProof, guestIntent string) (model.DepositProof, error) {
	if !t.Deposit.Required {
		return model.DepositProof{}, nil
	}
	want := t.Deposit.AmountCents()
	if proof == nil || !proof.Paid {
		return model.DepositProof{}, ErrDepositRequired
	}
	intentID := strings.TrimSpace(proof.PaymentIntentID)
	if intentID == "" {
		intentID = guestIntent
	}
	if intentID == "" {
		return model.DepositProof{}, ErrDepositRequired
	}
	if s.payments == nil {
		return model.DepositProof{}, ErrPaymentUnavailable
	}

	pi, err := s.payments.GetIntent(ctx, intentID)
	switch {
	case errors.Is(err, payment.ErrIntentNotFound):
		return model.DepositProof{}, ErrDepositUnverified
	case err != nil:
		return model.DepositProof{}, paymentErr(err)
	}
	if !pi.Succeeded() || pi.AmountCents < want || pi.Metadata["tenant_id"] != t.ID ||
		(pi.Currency != "" && !strings.EqualFold(pi.Currency, t.Currency)) {
		s.log.Warn("deposit rejected", zap.String("tenant_id", t.ID), zap.String("payment_intent_id", intentID),
			zap.String("status", pi.Status), zap.Int64("amount_cents", pi.AmountCents))
		return model.DepositProof{}, ErrDepositUnverified
	}
	return model.DepositProof{Required: true, AmountCents: want, Paid: true, PaymentIntentID: pi.ID}, nil
}
