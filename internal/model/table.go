package model

import (
	"sort"
	"time"
)

// Table is a physical dining table of a tenant.  A party is seated at a
// single table whose capacity is at least the party size.
//
// Fields:
//  ID       – primary key identifier.
//  TenantID – owning restaurant.
//  Label    – name shown to staff and guests (e.g. "T4", "Patio 2").
//  Capacity – maximum covers.
//  IsActive – inactive tables are never offered.
type Table struct {
	ID       uint64 // dining_tables.id
	TenantID string // dining_tables.tenant_id
	Label    string // dining_tables.label
	Capacity int    // dining_tables.capacity
	IsActive bool   // dining_tables.is_active
}

// Occupancy is an interval during which a table is taken by an active
// hold or a live booking.
type Occupancy struct {
	TableID uint64
	Start   time.Time
	End     time.Time
}

// Overlaps reports whether the occupancy intersects [start, end).
func (o Occupancy) Overlaps(start, end time.Time) bool {
	return o.Start.Before(end) && start.Before(o.End)
}

// FreeTables returns the active tables that seat party and are not
// occupied during [start, end), ordered best fit first (smallest
// capacity, then id).
func FreeTables(tables []Table, occ []Occupancy, party int, start, end time.Time) []Table {
	busy := make(map[uint64]bool)
	for _, o := range occ {
		if o.Overlaps(start, end) {
			busy[o.TableID] = true
		}
	}
	free := make([]Table, 0, len(tables))
	for _, t := range tables {
		if !t.IsActive || t.Capacity < party || busy[t.ID] {
			continue
		}
		free = append(free, t)
	}
	sort.SliceStable(free, func(i, j int) bool {
		if free[i].Capacity != free[j].Capacity {
			return free[i].Capacity < free[j].Capacity
		}
		return free[i].ID < free[j].ID
	})
	return free
}
