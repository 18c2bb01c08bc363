package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/repository"
)

// HoldRequest asks for a temporary reservation of capacity.
type HoldRequest struct {
	TenantRef      string
	PartySize      int
	SlotTime       time.Time
	IdempotencyKey string
}

// HoldResult is the hold together with its table.  Replayed is true when
// the key had already produced this hold.
type HoldResult struct {
	Hold     *model.Hold
	Table    *model.Table
	Replayed bool
}

// CreateHold reserves a table for the requested slot.  Repeating the
// call with the same key and parameters returns the original hold; the
// same key with different parameters is rejected.
func (s *Service) CreateHold(ctx context.Context, req HoldRequest) (HoldResult, error) {
	key, err := checkKey(req.IdempotencyKey)
	if err != nil {
		return HoldResult{}, err
	}
	if req.PartySize <= 0 || req.PartySize > MaxPartySize {
		return HoldResult{}, fmt.Errorf("%w: party_size must be between 1 and %d", ErrValidation, MaxPartySize)
	}
	if req.SlotTime.IsZero() {
		return HoldResult{}, fmt.Errorf("%w: slot_time is required", ErrValidation)
	}
	t, err := s.verifiedTenant(ctx, req.TenantRef)
	if err != nil {
		return HoldResult{}, err
	}
	slot := req.SlotTime.UTC().Truncate(time.Minute)
	hash := requestHash("hold", t.ID, strconv.Itoa(req.PartySize), slot.Format(time.RFC3339))

	if res, done, err := s.replayHold(ctx, t, key, hash); done {
		return res, err
	}

	now := s.now()
	if !slot.After(now) {
		return HoldResult{}, fmt.Errorf("%w: slot_time is in the past", ErrValidation)
	}
	dur := t.BookingDuration()
	if !t.WithinBusinessHours(slot, dur) {
		return HoldResult{}, ErrOutsideHours
	}

	tables, err := s.tables.ListActive(ctx, t.ID)
	if err != nil {
		return HoldResult{}, fmt.Errorf("list tables: %w", err)
	}
	candidates, err := s.freeCandidates(ctx, t, tables, req.PartySize, slot, slot.Add(dur), now)
	if err != nil {
		return HoldResult{}, err
	}
	if len(candidates) == 0 {
		return s.slotTaken(ctx, t, key, hash)
	}

	h := &model.Hold{
		ID:              s.newID(),
		TenantID:        t.ID,
		PartySize:       req.PartySize,
		SlotTime:        slot,
		DurationMinutes: int(dur / time.Minute),
		IdempotencyKey:  key,
		RequestHash:     hash,
		Status:          model.HoldActive,
		ExpiresAt:       now.Add(s.cfg.HoldTTL).UTC(),
	}
	switch err := s.holds.Create(ctx, h, candidates, now); {
	case err == nil:
	case errors.Is(err, repository.ErrDuplicateKey):
		// a concurrent request with the same key won the insert
		if res, done, rerr := s.replayHold(ctx, t, key, hash); done {
			return res, rerr
		}
		return HoldResult{}, fmt.Errorf("hold key race: %w", err)
	case errors.Is(err, repository.ErrSlotUnavailable):
		return s.slotTaken(ctx, t, key, hash)
	case errors.Is(err, repository.ErrNotFound):
		return HoldResult{}, ErrTenantNotFound
	default:
		return HoldResult{}, fmt.Errorf("create hold: %w", err)
	}

	s.log.Info("hold created", zap.String("tenant_id", t.ID), zap.String("hold_id", h.ID),
		zap.Uint64("table_id", h.TableID), zap.Time("slot", h.SlotTime), zap.Int("party_size", h.PartySize))
	return HoldResult{Hold: h, Table: tableByID(tables, h.TableID)}, nil
}

// replayHold resolves an already used key.  done is false when the key
// is unused and creation should proceed.
func (s *Service) replayHold(ctx context.Context, t model.Tenant, key, hash string) (HoldResult, bool, error) {
	existing, err := s.holds.FindByKey(ctx, t.ID, key)
	if errors.Is(err, repository.ErrNotFound) {
		return HoldResult{}, false, nil
	}
	if err != nil {
		return HoldResult{}, true, fmt.Errorf("find hold: %w", err)
	}
	if existing.RequestHash != hash {
		return HoldResult{}, true, ErrIdempotencyConflict
	}
	tables, err := s.tables.ListActive(ctx, t.ID)
	if err != nil {
		return HoldResult{}, true, fmt.Errorf("list tables: %w", err)
	}
	return HoldResult{Hold: existing, Table: tableByID(tables, existing.TableID), Replayed: true}, true, nil
}

// slotTaken reports ErrSlotUnavailable unless a concurrent request with
// the same key took the capacity, in which case that hold is replayed.
func (s *Service) slotTaken(ctx context.Context, t model.Tenant, key, hash string) (HoldResult, error) {
	if res, done, err := s.replayHold(ctx, t, key, hash); done {
		return res, err
	}
	return HoldResult{}, ErrSlotUnavailable
}

// ReleaseHold gives the hold's table back before it expires.
func (s *Service) ReleaseHold(ctx context.Context, tenantRef, holdID string) error {
	t, err := s.verifiedTenant(ctx, tenantRef)
	if err != nil {
		return err
	}
	if err := s.holds.Release(ctx, t.ID, holdID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrHoldNotFound
		}
		return fmt.Errorf("release hold: %w", err)
	}
	return nil
}

// ExpireHolds marks overdue holds expired and purges finished holds
// older than the retention window.
func (s *Service) ExpireHolds(ctx context.Context) (expired, purged int64, err error) {
	now := s.now()
	if expired, err = s.holds.ExpireHolds(ctx, now); err != nil {
		return 0, 0, fmt.Errorf("expire holds: %w", err)
	}
	if purged, err = s.holds.Purge(ctx, now.Add(-s.cfg.HoldRetention)); err != nil {
		return expired, 0, fmt.Errorf("purge holds: %w", err)
	}
	if expired > 0 || purged > 0 {
		s.log.Info("holds swept", zap.Int64("expired", expired), zap.Int64("purged", purged))
	}
	return expired, purged, nil
}
