// Package api holds the JSON bodies exchanged between the booking
// server and its clients.
package api

import (
	"time"

	"github.com/iliyamo/table-reservation/internal/cache"
	"github.com/iliyamo/table-reservation/internal/model"
)

// HeaderIdempotencyKey carries the key on mutating guest requests.  A
// body field of the same name is accepted as a fallback.
const HeaderIdempotencyKey = "Idempotency-Key"

// Error is the body of every non-2xx response.
type Error struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Tenant is the public tenant profile.
type Tenant struct {
	ID                 string              `json:"id"`
	Slug               string              `json:"slug"`
	Name               string              `json:"name"`
	Timezone           string              `json:"timezone"`
	Currency           string              `json:"currency"`
	Branding           model.Branding      `json:"branding"`
	Hours              model.BusinessHours `json:"business_hours"`
	Deposit            model.DepositPolicy `json:"deposit_policy"`
	ApprovalPolicy     string              `json:"approval_policy"`
	SlotIntervalMin    int                 `json:"slot_interval_min"`
	DefaultDurationMin int                 `json:"default_duration_min"`
	Confidence         cache.Confidence    `json:"confidence"`
}

func NewTenant(t model.Tenant, conf cache.Confidence) Tenant {
	return Tenant{
		ID:                 t.ID,
		Slug:               t.Slug,
		Name:               t.Name,
		Timezone:           t.Timezone,
		Currency:           t.Currency,
		Branding:           t.Branding,
		Hours:              t.Hours,
		Deposit:            t.Deposit,
		ApprovalPolicy:     t.ApprovalPolicy,
		SlotIntervalMin:    t.SlotIntervalMin,
		DefaultDurationMin: t.DefaultDurationMin,
		Confidence:         conf,
	}
}

// Model converts the profile back into the fields the client needs to
// re-check business hours.
func (t Tenant) Model() model.Tenant {
	return model.Tenant{
		ID:                 t.ID,
		Slug:               t.Slug,
		Name:               t.Name,
		Timezone:           t.Timezone,
		Currency:           t.Currency,
		Branding:           t.Branding,
		Hours:              t.Hours,
		Deposit:            t.Deposit,
		ApprovalPolicy:     t.ApprovalPolicy,
		SlotIntervalMin:    t.SlotIntervalMin,
		DefaultDurationMin: t.DefaultDurationMin,
	}
}

type HoldRequest struct {
	PartySize      int       `json:"party_size"`
	SlotTime       time.Time `json:"slot_time"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
}

type Hold struct {
	ID              string    `json:"id"`
	TenantID        string    `json:"tenant_id"`
	TableID         uint64    `json:"table_id"`
	TableLabel      string    `json:"table_label,omitempty"`
	PartySize       int       `json:"party_size"`
	SlotTime        time.Time `json:"slot_time"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          string    `json:"status"`
	ExpiresAt       time.Time `json:"expires_at"`
	Replayed        bool      `json:"replayed"`
}

func NewHold(h *model.Hold, table *model.Table, replayed bool) Hold {
	out := Hold{
		ID:              h.ID,
		TenantID:        h.TenantID,
		TableID:         h.TableID,
		PartySize:       h.PartySize,
		SlotTime:        h.SlotTime,
		DurationMinutes: h.DurationMinutes,
		Status:          string(h.Status),
		ExpiresAt:       h.ExpiresAt,
		Replayed:        replayed,
	}
	if table != nil {
		out.TableLabel = table.Label
	}
	return out
}

type IntentRequest struct {
	AmountCents    int64  `json:"amount_cents"`
	Email          string `json:"email"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

type ConfirmRequest struct {
	HoldID         string              `json:"hold_id"`
	Guest          model.GuestDetails  `json:"guest"`
	Deposit        *model.DepositProof `json:"deposit,omitempty"`
	IdempotencyKey string              `json:"idempotency_key,omitempty"`
}

// Booking is the reservation as shown to guests and staff.  Guest
// contact details are only filled for staff.
type Booking struct {
	ID                 string    `json:"id"`
	ConfirmationNumber string    `json:"confirmation_number"`
	TenantID           string    `json:"tenant_id"`
	Status             string    `json:"status"`
	Headline           string    `json:"headline"`
	Message            string    `json:"message,omitempty"`
	TableID            *uint64   `json:"table_id,omitempty"`
	TableLabel         string    `json:"table_label,omitempty"`
	PartySize          int       `json:"party_size"`
	BookingTime        time.Time `json:"booking_time"`
	DurationMinutes    int       `json:"duration_minutes"`
	GuestFirstName     string    `json:"guest_first_name"`
	GuestLastName      string    `json:"guest_last_name"`
	GuestEmail         string    `json:"guest_email,omitempty"`
	GuestPhone         string    `json:"guest_phone,omitempty"`
	DepositRequired    bool      `json:"deposit_required"`
	DepositAmountCents int64     `json:"deposit_amount_cents"`
	DepositPaid        bool      `json:"deposit_paid"`
	SpecialRequests    string    `json:"special_requests,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	Summary            Summary   `json:"summary"`
	Replayed           bool      `json:"replayed,omitempty"`
}

// Summary is the short recap shown on the confirmation screen.
type Summary struct {
	Date      string              `json:"date"`
	Time      string              `json:"time"`
	PartySize int                 `json:"party_size"`
	Table     *TableRef           `json:"table,omitempty"`
	Deposit   *model.DepositProof `json:"deposit,omitempty"`
}

type TableRef struct {
	ID    uint64 `json:"id"`
	Label string `json:"label,omitempty"`
}

func NewBooking(b *model.Booking, table *model.Table) Booking {
	out := Booking{
		ID:                 b.ID,
		ConfirmationNumber: b.ConfirmationNumber(),
		TenantID:           b.TenantID,
		Status:             string(b.Status),
		Headline:           b.Status.Headline(),
		Message:            b.Status.Message(),
		TableID:            b.TableID,
		PartySize:          b.PartySize,
		BookingTime:        b.BookingTime,
		DurationMinutes:    b.DurationMinutes,
		GuestFirstName:     b.GuestFirstName,
		GuestLastName:      b.GuestLastName,
		DepositRequired:    b.DepositRequired,
		DepositAmountCents: b.DepositAmountCents,
		DepositPaid:        b.DepositPaid,
		SpecialRequests:    b.SpecialRequests,
		CreatedAt:          b.CreatedAt,
		Summary: Summary{
			Date:      b.BookingTime.Format("2006-01-02"),
			Time:      b.BookingTime.Format("15:04"),
			PartySize: b.PartySize,
		},
	}
	if b.TableID != nil {
		out.Summary.Table = &TableRef{ID: *b.TableID}
	}
	if table != nil {
		out.TableLabel = table.Label
		if out.Summary.Table != nil {
			out.Summary.Table.Label = table.Label
		}
	}
	if b.DepositRequired {
		d := model.DepositProof{Required: true, AmountCents: b.DepositAmountCents, Paid: b.DepositPaid}
		if b.PaymentIntentID != nil {
			d.PaymentIntentID = *b.PaymentIntentID
		}
		out.Summary.Deposit = &d
	}
	return out
}

// WithContact adds the guest's email and phone for staff views.
func (b Booking) WithContact(m *model.Booking) Booking {
	b.GuestEmail = m.GuestEmail
	b.GuestPhone = m.GuestPhone
	return b
}

type CancelRequest struct {
	Email string `json:"email"`
}

type StatusRequest struct {
	Status string `json:"status"`
}

type BookingList struct {
	Date     string    `json:"date"`
	Bookings []Booking `json:"bookings"`
}
