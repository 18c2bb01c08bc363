package service

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/payment"
	"github.com/iliyamo/table-reservation/internal/queue"
	"github.com/iliyamo/table-reservation/internal/repository"
)

// memDB is an in-memory stand-in for the MySQL repositories.  A single
// mutex plays the role of the per-tenant row lock.
type memDB struct {
	mu          sync.Mutex
	tenants     []model.Tenant
	tables      []model.Table
	holds       map[string]*model.Hold
	bookings    map[string]*model.Booking
	tenantLoads int
}

func newMemDB(t model.Tenant, tables ...model.Table) *memDB {
	return &memDB{
		tenants:  []model.Tenant{t},
		tables:   tables,
		holds:    map[string]*model.Hold{},
		bookings: map[string]*model.Booking{},
	}
}

func (db *memDB) setTenant(t model.Tenant) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.tenants[0] = t
}

// occupancyLocked must be called with mu held.
func (db *memDB) occupancyLocked(tenantID string, from, to, now time.Time) []model.Occupancy {
	var out []model.Occupancy
	for _, h := range db.holds {
		if h.TenantID == tenantID && h.IsActive(now) {
			o := model.Occupancy{TableID: h.TableID, Start: h.SlotTime, End: h.EndTime()}
			if o.Overlaps(from, to) {
				out = append(out, o)
			}
		}
	}
	for _, b := range db.bookings {
		if b.TenantID == tenantID && b.TableID != nil && b.Status.OccupiesTable() {
			o := model.Occupancy{TableID: *b.TableID, Start: b.BookingTime, End: b.EndTime()}
			if o.Overlaps(from, to) {
				out = append(out, o)
			}
		}
	}
	return out
}

type memTenants struct{ db *memDB }

func (m memTenants) GetByRef(_ context.Context, ref string) (model.Tenant, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	m.db.tenantLoads++
	for _, t := range m.db.tenants {
		if t.ID == ref || t.Slug == ref {
			return t, nil
		}
	}
	return model.Tenant{}, repository.ErrNotFound
}

type memTables struct{ db *memDB }

func (m memTables) ListActive(_ context.Context, tenantID string) ([]model.Table, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []model.Table
	for _, t := range m.db.tables {
		if t.TenantID == tenantID && t.IsActive {
			out = append(out, t)
		}
	}
	return out, nil
}

type memHolds struct{ db *memDB }

func (m memHolds) FindByKey(_ context.Context, tenantID, key string) (*model.Hold, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, h := range m.db.holds {
		if h.TenantID == tenantID && h.IdempotencyKey == key {
			c := *h
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m memHolds) GetByID(_ context.Context, tenantID, id string) (*model.Hold, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if h, ok := m.db.holds[id]; ok && h.TenantID == tenantID {
		c := *h
		return &c, nil
	}
	return nil, repository.ErrNotFound
}

func (m memHolds) Create(_ context.Context, h *model.Hold, candidates []uint64, now time.Time) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, other := range m.db.holds {
		if other.TenantID == h.TenantID && other.IdempotencyKey == h.IdempotencyKey {
			return repository.ErrDuplicateKey
		}
	}
	occ := m.db.occupancyLocked(h.TenantID, h.SlotTime, h.EndTime(), now)
	for _, id := range candidates {
		busy := false
		for _, o := range occ {
			if o.TableID == id {
				busy = true
				break
			}
		}
		if !busy {
			h.TableID = id
			h.CreatedAt = now
			c := *h
			m.db.holds[h.ID] = &c
			return nil
		}
	}
	return repository.ErrSlotUnavailable
}

func (m memHolds) Release(_ context.Context, tenantID, id string) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	h, ok := m.db.holds[id]
	if !ok || h.TenantID != tenantID {
		return repository.ErrNotFound
	}
	if h.Status == model.HoldActive {
		h.Status = model.HoldReleased
	}
	return nil
}

func (m memHolds) ExpireHolds(_ context.Context, now time.Time) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var n int64
	for _, h := range m.db.holds {
		if h.Status == model.HoldActive && !now.Before(h.ExpiresAt) {
			h.Status = model.HoldExpired
			n++
		}
	}
	return n, nil
}

func (m memHolds) Purge(_ context.Context, before time.Time) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var n int64
	for id, h := range m.db.holds {
		if (h.Status == model.HoldExpired || h.Status == model.HoldReleased) && h.CreatedAt.Before(before) {
			delete(m.db.holds, id)
			n++
		}
	}
	return n, nil
}

type memBookings struct{ db *memDB }

func (m memBookings) FindByKey(_ context.Context, tenantID, key string) (*model.Booking, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, b := range m.db.bookings {
		if b.TenantID == tenantID && b.IdempotencyKey == key {
			c := *b
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m memBookings) GetByID(_ context.Context, tenantID, id string) (*model.Booking, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if b, ok := m.db.bookings[id]; ok && (tenantID == "" || b.TenantID == tenantID) {
		c := *b
		return &c, nil
	}
	return nil, repository.ErrNotFound
}

func (m memBookings) ListByTenantBetween(_ context.Context, tenantID string, from, to time.Time) ([]model.Booking, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []model.Booking
	for _, b := range m.db.bookings {
		if b.TenantID == tenantID && !b.BookingTime.Before(from) && b.BookingTime.Before(to) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m memBookings) UpdateStatus(_ context.Context, tenantID, id string, from, to model.BookingStatus) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	b, ok := m.db.bookings[id]
	if !ok || b.TenantID != tenantID {
		return repository.ErrNotFound
	}
	if b.Status != from {
		return repository.ErrConflict
	}
	b.Status = to
	return nil
}

func (m memBookings) Occupancy(_ context.Context, tenantID string, from, to, now time.Time) ([]model.Occupancy, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return m.db.occupancyLocked(tenantID, from, to, now), nil
}

func (m memBookings) ConvertHold(_ context.Context, b *model.Booking, now time.Time) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	h, ok := m.db.holds[b.HoldID]
	if !ok || h.TenantID != b.TenantID {
		return repository.ErrNotFound
	}
	if h.Status == model.HoldConverted {
		return repository.ErrHoldConsumed
	}
	if !h.IsActive(now) {
		return repository.ErrHoldExpired
	}
	for _, other := range m.db.bookings {
		if other.TenantID == b.TenantID && other.IdempotencyKey == b.IdempotencyKey {
			return repository.ErrDuplicateKey
		}
		if b.PaymentIntentID != nil && other.PaymentIntentID != nil && *other.PaymentIntentID == *b.PaymentIntentID {
			return repository.ErrDepositConsumed
		}
	}
	table := h.TableID
	b.TableID = &table
	b.BookingTime = h.SlotTime
	b.PartySize = h.PartySize
	b.DurationMinutes = h.DurationMinutes
	b.CreatedAt, b.UpdatedAt = now, now
	c := *b
	m.db.bookings[b.ID] = &c
	h.Status = model.HoldConverted
	id := b.ID
	h.BookingID = &id
	return nil
}

type mockProcessor struct{ mock.Mock }

func (m *mockProcessor) CreateIntent(ctx context.Context, req payment.IntentRequest) (model.PaymentIntent, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(model.PaymentIntent), args.Error(1)
}

func (m *mockProcessor) GetIntent(ctx context.Context, id string) (model.PaymentIntent, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.PaymentIntent), args.Error(1)
}

type recorder struct {
	mu     sync.Mutex
	events []queue.BookingEvent
}

func (r *recorder) Publish(_ context.Context, ev queue.BookingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// bistro is open Tuesday 17:00-22:00, Friday 18:00-02:00 and Saturday
// 12:00-23:00, all UTC.  Monday is closed.
func bistro() model.Tenant {
	return model.Tenant{
		ID:       "t-bistro",
		Slug:     "bistro",
		Name:     "Bistro",
		Timezone: "UTC",
		Currency: "usd",
		Hours: model.BusinessHours{
			"tuesday":  {Open: "17:00", Close: "22:00"},
			"friday":   {Open: "18:00", Close: "02:00"},
			"saturday": {Open: "12:00", Close: "23:00"},
		},
		ApprovalPolicy:     model.ApprovalAuto,
		AvgSpendPerCover:   decimal.RequireFromString("40.00"),
		SlotIntervalMin:    30,
		DefaultDurationMin: 90,
		Status:             model.TenantActive,
	}
}

func fiveTables(tenantID string) []model.Table {
	caps := []int{2, 2, 4, 4, 6}
	out := make([]model.Table, 0, len(caps))
	for i, c := range caps {
		out = append(out, model.Table{ID: uint64(i + 1), TenantID: tenantID, Label: "T" + string(rune('1'+i)), Capacity: c, IsActive: true})
	}
	return out
}
