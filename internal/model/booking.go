package model

import (
	"strings"
	"time"
	"unicode"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusSeated    BookingStatus = "seated"
	StatusCompleted BookingStatus = "completed"
	StatusCancelled BookingStatus = "cancelled"
	StatusNoShow    BookingStatus = "noshow"
)

// transitions lists the statuses reachable from each state.
var transitions = map[BookingStatus][]BookingStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusSeated, StatusCancelled, StatusNoShow},
	StatusSeated:    {StatusCompleted},
}

// ParseBookingStatus normalises s and reports whether it names a known
// status.
func ParseBookingStatus(s string) (BookingStatus, bool) {
	st := BookingStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusConfirmed, StatusSeated, StatusCompleted, StatusCancelled, StatusNoShow:
		return st, true
	}
	return "", false
}

// CanTransition reports whether a booking may move from s to next.
func (s BookingStatus) CanTransition(next BookingStatus) bool {
	for _, n := range transitions[s] {
		if n == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s BookingStatus) Terminal() bool { return len(transitions[s]) == 0 }

// OccupiesTable reports whether a booking in this state blocks its
// table for other guests.
func (s BookingStatus) OccupiesTable() bool {
	return s == StatusPending || s == StatusConfirmed || s == StatusSeated
}

// Headline is the user-facing title shown after a booking request.
// A pending booking must never read as confirmed.
func (s BookingStatus) Headline() string {
	switch s {
	case StatusPending:
		return "Reservation Submitted"
	case StatusConfirmed, StatusSeated, StatusCompleted:
		return "Booking Confirmed"
	case StatusCancelled:
		return "Reservation Cancelled"
	case StatusNoShow:
		return "Reservation Missed"
	}
	return "Reservation"
}

// Message is the short body copy accompanying Headline.
func (s BookingStatus) Message() string {
	switch s {
	case StatusPending:
		return "The restaurant will review your request and email you once it is confirmed."
	case StatusConfirmed:
		return "Your table is booked. We look forward to seeing you."
	}
	return ""
}

// Booking is the durable reservation record.
//
// Fields:
//  ID                 – uuid primary key, also the public reservation id.
//  TenantID           – restaurant the booking belongs to.
//  TableID            – assigned table (nil until assigned).
//  HoldID             – hold that was converted into this booking.
//  Guest*             – guest identity captured at confirmation.
//  PartySize          – number of covers.
//  BookingTime        – start of the reservation (UTC).
//  DurationMinutes    – how long the table is occupied.
//  Status             – lifecycle state.
//  Deposit*           – deposit echo: required flag, amount, paid flag.
//  PaymentIntentID    – processor reference of the deposit (nullable).
//  SpecialRequests    – free text from the guest.
//  IdempotencyKey     – key that created the booking; unique per tenant.
//  RequestHash        – fingerprint of the creating request.
type Booking struct {
	ID                 string        // bookings.id
	TenantID           string        // bookings.tenant_id
	TableID            *uint64       // bookings.table_id (nullable)
	HoldID             string        // bookings.hold_id
	GuestFirstName     string        // bookings.guest_first_name
	GuestLastName      string        // bookings.guest_last_name
	GuestEmail         string        // bookings.guest_email
	GuestPhone         string        // bookings.guest_phone
	PartySize          int           // bookings.party_size
	BookingTime        time.Time     // bookings.booking_time
	DurationMinutes    int           // bookings.duration_minutes
	Status             BookingStatus // bookings.status
	DepositRequired    bool          // bookings.deposit_required
	DepositAmountCents int64         // bookings.deposit_amount_cents
	DepositPaid        bool          // bookings.deposit_paid
	PaymentIntentID    *string       // bookings.payment_intent_id (nullable)
	SpecialRequests    string        // bookings.special_requests
	IdempotencyKey     string        // bookings.idempotency_key
	RequestHash        string        // bookings.request_hash
	CreatedAt          time.Time     // bookings.created_at
	UpdatedAt          time.Time     // bookings.updated_at
}

// ConfirmationNumber derives the guest-facing number from the booking id.
func (b Booking) ConfirmationNumber() string { return ConfirmationNumber(b.ID) }

// EndTime returns when the table becomes free again.
func (b Booking) EndTime() time.Time {
	return b.BookingTime.Add(time.Duration(b.DurationMinutes) * time.Minute)
}

// ConfirmationNumber returns "CONF" followed by the last six
// alphanumeric characters of id, upper-cased.
func ConfirmationNumber(id string) string {
	var tail []rune
	rs := []rune(id)
	for i := len(rs) - 1; i >= 0 && len(tail) < 6; i-- {
		if unicode.IsLetter(rs[i]) || unicode.IsDigit(rs[i]) {
			tail = append(tail, unicode.ToUpper(rs[i]))
		}
	}
	for i, j := 0, len(tail)-1; i < j; i, j = i+1, j-1 {
		tail[i], tail[j] = tail[j], tail[i]
	}
	return "CONF" + string(tail)
}
