package model

import "time"

// HoldStatus is the state of a hold row.
type HoldStatus string

const (
	HoldActive    HoldStatus = "active"
	HoldConverted HoldStatus = "converted"
	HoldReleased  HoldStatus = "released"
	HoldExpired   HoldStatus = "expired"
)

// Hold represents a temporary capacity reservation on one table while a
// guest enters their details and pays any deposit.  Holds expire
// automatically at ExpiresAt.  The row outlives the hold itself so a
// replayed idempotency key keeps resolving to the same hold.
//
// Fields:
//  ID              – uuid primary key returned to the client as hold_id.
//  TenantID        – restaurant the capacity belongs to.
//  TableID         – table reserved by the hold.
//  PartySize       – covers requested.
//  SlotTime        – requested start (UTC).
//  DurationMinutes – how long the table would be occupied.
//  IdempotencyKey  – caller key; unique per tenant.
//  RequestHash     – fingerprint of the creating request.
//  Status          – active, converted, released or expired.
//  BookingID       – booking the hold was converted into (nullable).
//  CreatedAt       – when the hold was created.
//  ExpiresAt       – when the hold stops reserving capacity.
type Hold struct {
	ID              string     // holds.id
	TenantID        string     // holds.tenant_id
	TableID         uint64     // holds.table_id
	PartySize       int        // holds.party_size
	SlotTime        time.Time  // holds.slot_time
	DurationMinutes int        // holds.duration_minutes
	IdempotencyKey  string     // holds.idempotency_key
	RequestHash     string     // holds.request_hash
	Status          HoldStatus // holds.status
	BookingID       *string    // holds.booking_id (nullable)
	CreatedAt       time.Time  // holds.created_at
	ExpiresAt       time.Time  // holds.expires_at
}

// IsActive reports whether the hold still reserves capacity at now.
func (h Hold) IsActive(now time.Time) bool {
	return h.Status == HoldActive && now.Before(h.ExpiresAt)
}

// EndTime returns the end of the interval the hold covers.
func (h Hold) EndTime() time.Time {
	return h.SlotTime.Add(time.Duration(h.DurationMinutes) * time.Minute)
}
