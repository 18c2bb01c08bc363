// Package service implements the booking workflow on the server side:
// availability, holds, deposits, confirmation and the staff lifecycle.
// It depends on small store interfaces so it can be exercised without a
// database.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/table-reservation/internal/cache"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/payment"
	"github.com/iliyamo/table-reservation/internal/queue"
	"github.com/iliyamo/table-reservation/internal/repository"
)

// TenantStore resolves a tenant by id or slug.
type TenantStore interface {
	GetByRef(ctx context.Context, ref string) (model.Tenant, error)
}

// TableStore lists the active tables of a tenant.
type TableStore interface {
	ListActive(ctx context.Context, tenantID string) ([]model.Table, error)
}

// HoldStore persists holds.  Create must serialize capacity decisions
// per tenant.
type HoldStore interface {
	FindByKey(ctx context.Context, tenantID, key string) (*model.Hold, error)
	GetByID(ctx context.Context, tenantID, id string) (*model.Hold, error)
	Create(ctx context.Context, h *model.Hold, candidates []uint64, now time.Time) error
	Release(ctx context.Context, tenantID, id string) error
	ExpireHolds(ctx context.Context, now time.Time) (int64, error)
	Purge(ctx context.Context, before time.Time) (int64, error)
}

// BookingStore persists bookings.  ConvertHold must consume the hold
// and insert the booking atomically.
type BookingStore interface {
	FindByKey(ctx context.Context, tenantID, key string) (*model.Booking, error)
	GetByID(ctx context.Context, tenantID, id string) (*model.Booking, error)
	ListByTenantBetween(ctx context.Context, tenantID string, from, to time.Time) ([]model.Booking, error)
	UpdateStatus(ctx context.Context, tenantID, id string, from, to model.BookingStatus) error
	Occupancy(ctx context.Context, tenantID string, from, to, now time.Time) ([]model.Occupancy, error)
	ConvertHold(ctx context.Context, b *model.Booking, now time.Time) error
}

// EventPublisher publishes booking events.  Failures never fail the
// operation that triggered them.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.BookingEvent) error
}

// Settings tunes hold and availability behaviour.
type Settings struct {
	HoldTTL         time.Duration
	HoldRetention   time.Duration
	MinLeadTime     time.Duration
	AlternativeDays int
	MaxAlternatives int
	TenantCacheTTL  time.Duration
}

func (s Settings) withDefaults() Settings {
	if s.HoldTTL <= 0 {
		s.HoldTTL = 10 * time.Minute
	}
	if s.HoldRetention <= 0 {
		s.HoldRetention = 24 * time.Hour
	}
	if s.AlternativeDays < 0 {
		s.AlternativeDays = 0
	}
	if s.MaxAlternatives <= 0 {
		s.MaxAlternatives = 3
	}
	if s.TenantCacheTTL <= 0 {
		s.TenantCacheTTL = time.Minute
	}
	return s
}

// Deps collects the collaborators of a Service.  Payments and Events may
// be nil: deposits are then unavailable and events are not published.
type Deps struct {
	Tenants     TenantStore
	TenantCache cache.Backend
	Tables      TableStore
	Holds       HoldStore
	Bookings    BookingStore
	Payments    payment.Processor
	Events      EventPublisher
	Log         *zap.Logger
	Settings    Settings
	Now         func() time.Time
	NewID       func() string
}

// Service is the booking service.
type Service struct {
	tenants  *cache.ReadThrough[model.Tenant]
	tables   TableStore
	holds    HoldStore
	bookings BookingStore
	payments payment.Processor
	events   EventPublisher
	log      *zap.Logger
	cfg      Settings
	now      func() time.Time
	newID    func() string
}

// New builds a Service.
func New(d Deps) *Service {
	cfg := d.Settings.withDefaults()
	s := &Service{
		tables:   d.Tables,
		holds:    d.Holds,
		bookings: d.Bookings,
		payments: d.Payments,
		events:   d.Events,
		log:      d.Log,
		cfg:      cfg,
		now:      d.Now,
		newID:    d.NewID,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.NewString() }
	}
	store := d.Tenants
	s.tenants = cache.NewReadThrough[model.Tenant](d.TenantCache, "tenant", cfg.TenantCacheTTL,
		func(ctx context.Context, ref string) (model.Tenant, error) { return store.GetByRef(ctx, ref) })
	return s
}

// Tenant returns the tenant profile for reads.  It may come from the
// cache, as reported by the confidence value.
func (s *Service) Tenant(ctx context.Context, ref string) (model.Tenant, cache.Confidence, error) {
	t, conf, err := s.tenants.Get(ctx, strings.TrimSpace(ref))
	if err != nil {
		return model.Tenant{}, "", tenantErr(err)
	}
	return t, conf, nil
}

// verifiedTenant reads the tenant from the store, bypassing the cache.
// Every write path and the deposit gate go through here.
func (s *Service) verifiedTenant(ctx context.Context, ref string) (model.Tenant, error) {
	t, err := s.tenants.Verify(ctx, strings.TrimSpace(ref))
	if err != nil {
		return model.Tenant{}, tenantErr(err)
	}
	if !t.IsActive() {
		return model.Tenant{}, ErrTenantNotFound
	}
	return t, nil
}

func tenantErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrTenantNotFound
	}
	return err
}

func (s *Service) publish(ctx context.Context, ev queue.BookingEvent) {
	if s.events == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.events.Publish(pctx, ev); err != nil {
		s.log.Warn("publish booking event failed", zap.String("type", ev.Type),
			zap.String("booking_id", ev.BookingID), zap.Error(err))
	}
}

// requestHash fingerprints the parameters of an idempotent request.
func requestHash(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// MaxKeyLen bounds idempotency keys to the column width.
const MaxKeyLen = 128

func checkKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrIdempotencyKeyRequired
	}
	if len(key) > MaxKeyLen {
		return "", errors.Join(ErrValidation, errors.New("idempotency key too long"))
	}
	return key, nil
}

func tableByID(tables []model.Table, id uint64) *model.Table {
	for i := range tables {
		if tables[i].ID == id {
			t := tables[i]
			return &t
		}
	}
	return nil
}
