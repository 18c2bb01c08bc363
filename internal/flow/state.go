package flow

import (
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/table-reservation/internal/api"
	"github.com/iliyamo/table-reservation/internal/model"
)

// Step is the next action the workflow expects.
type Step int

const (
	StepAvailability Step = iota
	StepSelectSlot
	StepHold
	StepGuest
	StepPayment
	StepConfirm
	StepDone
)

func (s Step) String() string {
	switch s {
	case StepAvailability:
		return "availability"
	case StepSelectSlot:
		return "select_slot"
	case StepHold:
		return "hold"
	case StepGuest:
		return "guest"
	case StepPayment:
		return "payment"
	case StepConfirm:
		return "confirm"
	case StepDone:
		return "done"
	}
	return "unknown"
}

// State is everything one booking attempt has learned so far.  Steps
// read their inputs from it and write their outputs back; nothing is
// kept elsewhere.
type State struct {
	TenantRef string
	PartySize int
	Date      string // YYYY-MM-DD, tenant local

	// IdempotencyKey is generated once per attempt and used for the
	// hold, the deposit intent and the confirmation.  A deposit paid
	// under an earlier key survives Restart.
	IdempotencyKey string

	Tenant       api.Tenant
	Slots        []model.TimeSlot
	Alternatives []model.TimeSlot
	Deposit      model.DepositPolicy

	Selected *time.Time
	Hold     *api.Hold
	Guest    model.GuestDetails
	Payment  *model.DepositProof
	Booking  *api.Booking

	Step Step
}

// NewState starts an attempt with a fresh key.
func NewState(tenantRef string, partySize int, date string) *State {
	return &State{
		TenantRef:      tenantRef,
		PartySize:      partySize,
		Date:           date,
		IdempotencyKey: newKey(),
		Step:           StepAvailability,
	}
}

// Restart sends the attempt back to the availability step.  The old
// key belongs to a hold that can no longer be used, so a new one is
// generated.  A paid deposit that no booking consumed is kept and backs
// the next hold.
func (s *State) Restart() {
	s.IdempotencyKey = newKey()
	s.Slots, s.Alternatives = nil, nil
	s.Selected, s.Hold, s.Booking = nil, nil, nil
	if s.Payment == nil || !s.Payment.Paid {
		s.Payment = nil
		s.Guest.PaymentIntentID = ""
	}
	s.Step = StepAvailability
}

func newKey() string { return "booking:" + uuid.NewString() }
