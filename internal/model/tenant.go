package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Approval policies decide the initial status of a confirmed booking.
const (
	ApprovalAuto   = "auto"
	ApprovalManual = "manual"
)

// Tenant status values.  Tenants are never hard-deleted; suspended
// tenants simply stop accepting bookings.
const (
	TenantActive    = "active"
	TenantSuspended = "suspended"
)

// Tenant identifies a restaurant using the booking service.
//
// Fields:
//  ID                – uuid primary key.
//  Slug              – unique, URL friendly handle used by widgets.
//  Name              – display name.
//  Timezone          – IANA zone all business hours are expressed in.
//  Currency          – ISO-4217 code (lower case) deposits are charged in.
//  Branding          – colors used by booking widgets.
//  Hours             – opening window per weekday.
//  Deposit           – deposit policy applied to every booking.
//  ApprovalPolicy    – "auto" confirms immediately, "manual" leaves bookings pending.
//  AvgSpendPerCover  – average spend per guest, used for revenue hints.
//  SlotIntervalMin   – distance between candidate start times.
//  DefaultDurationMin – how long a table is occupied by one booking.
//  Status            – active or suspended.
type Tenant struct {
	ID                 string          `json:"id"`                   // tenants.id
	Slug               string          `json:"slug"`                 // tenants.slug
	Name               string          `json:"name"`                 // tenants.name
	Timezone           string          `json:"timezone"`             // tenants.timezone
	Currency           string          `json:"currency"`             // tenants.currency
	Branding           Branding        `json:"branding"`             // tenants.primary_color, tenants.accent_color
	Hours              BusinessHours   `json:"business_hours"`       // tenants.business_hours (JSON)
	Deposit            DepositPolicy   `json:"deposit_policy"`       // tenants.deposit_*
	ApprovalPolicy     string          `json:"approval_policy"`      // tenants.approval_policy
	AvgSpendPerCover   decimal.Decimal `json:"avg_spend_per_cover"`  // tenants.avg_spend_per_cover
	SlotIntervalMin    int             `json:"slot_interval_min"`    // tenants.slot_interval_min
	DefaultDurationMin int             `json:"default_duration_min"` // tenants.default_duration_min
	Status             string          `json:"status"`               // tenants.status
	CreatedAt          time.Time       `json:"created_at"`           // tenants.created_at
	UpdatedAt          time.Time       `json:"updated_at"`           // tenants.updated_at
}

// Branding holds the widget colors of a tenant.
type Branding struct {
	PrimaryColor string `json:"primary_color"`
	AccentColor  string `json:"accent_color"`
}

// DepositPolicy dictates whether a prepayment is required before a
// booking can be finalised.  It is read-only from the booking flow's
// perspective.
type DepositPolicy struct {
	Required    bool            `json:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// AmountCents converts the policy amount to integer minor units,
// rounding half away from zero.
func (p DepositPolicy) AmountCents() int64 {
	return p.Amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// Location returns the tenant's time zone, falling back to UTC when the
// configured zone cannot be loaded.
func (t Tenant) Location() *time.Location {
	if t.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsActive reports whether the tenant accepts bookings.
func (t Tenant) IsActive() bool { return t.Status == "" || t.Status == TenantActive }

// RequiresApproval reports whether new bookings start as pending.
func (t Tenant) RequiresApproval() bool {
	return strings.EqualFold(t.ApprovalPolicy, ApprovalManual)
}

// InitialStatus is the status a freshly confirmed booking receives.
func (t Tenant) InitialStatus() BookingStatus {
	if t.RequiresApproval() {
		return StatusPending
	}
	return StatusConfirmed
}

// AvgSpendCents returns the average spend per cover in minor units.
func (t Tenant) AvgSpendCents() int64 {
	return t.AvgSpendPerCover.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// SlotInterval returns the configured slot spacing, 30 minutes by default.
func (t Tenant) SlotInterval() time.Duration {
	if t.SlotIntervalMin <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(t.SlotIntervalMin) * time.Minute
}

// BookingDuration returns how long a booking occupies its table, 90
// minutes by default.
func (t Tenant) BookingDuration() time.Duration {
	if t.DefaultDurationMin <= 0 {
		return 90 * time.Minute
	}
	return time.Duration(t.DefaultDurationMin) * time.Minute
}

// DayHours is the opening window of one weekday.  Close at or before
// Open means the window runs past midnight.
type DayHours struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// BusinessHours maps a lower-case weekday name ("monday") to its
// opening window.  A missing weekday means the tenant is closed.
type BusinessHours map[string]DayHours

// WeekdayKey returns the map key used for a weekday.
func WeekdayKey(d time.Weekday) string { return strings.ToLower(d.String()) }

// Validate checks that every configured day has parseable clock values
// and a known weekday name.
func (h BusinessHours) Validate() error {
	for day, dh := range h {
		if !validWeekday(day) {
			return fmt.Errorf("unknown weekday %q", day)
		}
		if _, err := ParseClock(dh.Open); err != nil {
			return fmt.Errorf("%s open: %w", day, err)
		}
		if _, err := ParseClock(dh.Close); err != nil {
			return fmt.Errorf("%s close: %w", day, err)
		}
	}
	return nil
}

func validWeekday(s string) bool {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if WeekdayKey(d) == s {
			return true
		}
	}
	return false
}

// ParseClock converts "HH:MM" into minutes after midnight.  "24:00" is
// accepted as the end of the day.
func ParseClock(s string) (int, error) {
	var hh, mm int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d:%d", &hh, &mm); err != nil {
		return 0, fmt.Errorf("invalid clock %q", s)
	}
	if hh < 0 || hh > 24 || mm < 0 || mm > 59 || (hh == 24 && mm != 0) {
		return 0, fmt.Errorf("invalid clock %q", s)
	}
	return hh*60 + mm, nil
}

// Window returns the opening window that starts on the given calendar
// day in the tenant's zone.  ok is false when the tenant is closed.
func (t Tenant) Window(year int, month time.Month, day int) (opens, closes time.Time, ok bool) {
	loc := t.Location()
	midnight := time.Date(year, month, day, 0, 0, 0, 0, loc)
	dh, found := t.Hours[WeekdayKey(midnight.Weekday())]
	if !found {
		return time.Time{}, time.Time{}, false
	}
	o, err := ParseClock(dh.Open)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	c, err := ParseClock(dh.Close)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	if c <= o {
		c += 24 * 60
	}
	opens = time.Date(year, month, day, 0, o, 0, 0, loc)
	closes = time.Date(year, month, day, 0, c, 0, 0, loc)
	return opens, closes, true
}

// WithinBusinessHours reports whether a booking starting at ts and
// lasting d fits entirely into one opening window.  Windows that start
// on the previous day and run past midnight are honoured.
func (t Tenant) WithinBusinessHours(ts time.Time, d time.Duration) bool {
	local := ts.In(t.Location())
	for _, back := range []int{0, -1} {
		day := local.AddDate(0, 0, back)
		opens, closes, ok := t.Window(day.Year(), day.Month(), day.Day())
		if !ok {
			continue
		}
		if !local.Before(opens) && !local.Add(d).After(closes) {
			return true
		}
	}
	return false
}
