package model

import "time"

// TimeSlot is a bookable start time computed on every availability
// query.  It is never persisted.
type TimeSlot struct {
	Time                  time.Time `json:"time"`
	AvailableTables       int       `json:"available_tables"`
	Optimal               bool      `json:"optimal"`
	ProjectedRevenueCents int64     `json:"projected_revenue_cents"`
}

// Availability is the result of an availability query.
type Availability struct {
	TenantID      string        `json:"tenant_id"`
	Date          string        `json:"date"`
	PartySize     int           `json:"party_size"`
	Slots         []TimeSlot    `json:"slots"`
	Alternatives  []TimeSlot    `json:"alternatives"`
	DepositPolicy DepositPolicy `json:"deposit_policy"`
}

// ClampSlots drops every slot that does not fit into the tenant's
// business hours.  The input slice is not modified.
func ClampSlots(t Tenant, slots []TimeSlot) []TimeSlot {
	out := make([]TimeSlot, 0, len(slots))
	d := t.BookingDuration()
	for _, s := range slots {
		if t.WithinBusinessHours(s.Time, d) {
			out = append(out, s)
		}
	}
	return out
}
