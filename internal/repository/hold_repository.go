package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/table-reservation/internal/model"
)

// HoldRepo provides data access to the holds table.  It is responsible
// for creating holds under a per-tenant lock, resolving idempotency
// keys and moving holds through their statuses.  All timestamps are
// UTC.
type HoldRepo struct {
	db *sqlx.DB
}

// NewHoldRepo returns a new HoldRepo bound to the provided database.
func NewHoldRepo(db *sqlx.DB) *HoldRepo { return &HoldRepo{db: db} }

// holdRecord mirrors the holds table.
type holdRecord struct {
	ID              string         `db:"id"`
	TenantID        string         `db:"tenant_id"`
	TableID         uint64         `db:"table_id"`
	PartySize       int            `db:"party_size"`
	SlotTime        time.Time      `db:"slot_time"`
	DurationMinutes int            `db:"duration_minutes"`
	IdempotencyKey  string         `db:"idempotency_key"`
	RequestHash     string         `db:"request_hash"`
	Status          string         `db:"status"`
	BookingID       sql.NullString `db:"booking_id"`
	CreatedAt       time.Time      `db:"created_at"`
	ExpiresAt       time.Time      `db:"expires_at"`
}

const holdColumns = `id, tenant_id, table_id, party_size, slot_time, duration_minutes, idempotency_key,
	request_hash, status, booking_id, created_at, expires_at`

func (rec holdRecord) toModel() *model.Hold {
	h := &model.Hold{
		ID:              rec.ID,
		TenantID:        rec.TenantID,
		TableID:         rec.TableID,
		PartySize:       rec.PartySize,
		SlotTime:        rec.SlotTime.UTC(),
		DurationMinutes: rec.DurationMinutes,
		IdempotencyKey:  rec.IdempotencyKey,
		RequestHash:     rec.RequestHash,
		Status:          model.HoldStatus(rec.Status),
		CreatedAt:       rec.CreatedAt.UTC(),
		ExpiresAt:       rec.ExpiresAt.UTC(),
	}
	if rec.BookingID.Valid {
		id := rec.BookingID.String
		h.BookingID = &id
	}
	return h
}

// FindByKey returns the hold created with the idempotency key, whatever
// its status.  ErrNotFound when the key was never used (or was purged).
func (r *HoldRepo) FindByKey(ctx context.Context, tenantID, key string) (*model.Hold, error) {
	var rec holdRecord
	err := r.db.GetContext(ctx, &rec,
		`SELECT `+holdColumns+` FROM holds WHERE tenant_id = ? AND idempotency_key = ?`, tenantID, key)
	if err != nil {
		return nil, notFound(err)
	}
	return rec.toModel(), nil
}

// GetByID returns a hold of the tenant by id.
func (r *HoldRepo) GetByID(ctx context.Context, tenantID, id string) (*model.Hold, error) {
	var rec holdRecord
	err := r.db.GetContext(ctx, &rec,
		`SELECT `+holdColumns+` FROM holds WHERE id = ? AND tenant_id = ?`, id, tenantID)
	if err != nil {
		return nil, notFound(err)
	}
	return rec.toModel(), nil
}

// Create inserts h on the first candidate table that is still free for
// the hold's interval.  The tenant row is locked FOR UPDATE so capacity
// decisions for one restaurant are serialized; candidates are tried in
// the order given (best fit first).  On success h.TableID is set.
//
// ErrSlotUnavailable is returned when every candidate is taken and
// ErrDuplicateKey when the idempotency key was claimed concurrently.
// The key is checked under the lock before capacity so a losing racer
// learns about the winner rather than about a full slot.
func (r *HoldRepo) Create(ctx context.Context, h *model.Hold, candidates []uint64, now time.Time) error {
	if len(candidates) == 0 {
		return ErrSlotUnavailable
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var locked string
	if err := tx.GetContext(ctx, &locked, `SELECT id FROM tenants WHERE id = ? FOR UPDATE`, h.TenantID); err != nil {
		return notFound(err)
	}

	var used int
	if err := tx.GetContext(ctx, &used,
		`SELECT COUNT(*) FROM holds WHERE tenant_id = ? AND idempotency_key = ?`, h.TenantID, h.IdempotencyKey); err != nil {
		return err
	}
	if used > 0 {
		return ErrDuplicateKey
	}

	start, end := h.SlotTime.UTC(), h.EndTime().UTC()
	var chosen uint64
	for _, tableID := range candidates {
		busy, err := tableBusyTx(ctx, tx, tableID, start, end, now.UTC())
		if err != nil {
			return err
		}
		if !busy {
			chosen = tableID
			break
		}
	}
	if chosen == 0 {
		return ErrSlotUnavailable
	}
	h.TableID = chosen
	if h.Status == "" {
		h.Status = model.HoldActive
	}
	h.CreatedAt = now.UTC()

	_, err = tx.ExecContext(ctx, `INSERT INTO holds (id, tenant_id, table_id, party_size, slot_time, duration_minutes,
		idempotency_key, request_hash, status, created_at, expires_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.TenantID, h.TableID, h.PartySize, start, h.DurationMinutes,
		h.IdempotencyKey, h.RequestHash, string(h.Status), h.CreatedAt, h.ExpiresAt.UTC())
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicateKey
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// tableBusyTx reports whether an active hold or a live booking occupies
// the table anywhere in [start, end).
func tableBusyTx(ctx context.Context, tx *sqlx.Tx, tableID uint64, start, end, now time.Time) (bool, error) {
	const q = `SELECT
		(SELECT COUNT(*) FROM holds
		  WHERE table_id = ? AND status = 'active' AND expires_at > ?
		    AND slot_time < ? AND DATE_ADD(slot_time, INTERVAL duration_minutes MINUTE) > ?)
		+
		(SELECT COUNT(*) FROM bookings
		  WHERE table_id = ? AND status IN ('pending','confirmed','seated')
		    AND booking_time < ? AND DATE_ADD(booking_time, INTERVAL duration_minutes MINUTE) > ?)`
	var n int
	if err := tx.GetContext(ctx, &n, q, tableID, now, end, start, tableID, end, start); err != nil {
		return false, err
	}
	return n > 0, nil
}

// Release marks an active hold as released so its table is offered
// again.  Releasing a hold that is no longer active is a no-op; an
// unknown hold yields ErrNotFound.
func (r *HoldRepo) Release(ctx context.Context, tenantID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE holds SET status = 'released' WHERE id = ? AND tenant_id = ? AND status = 'active'`, id, tenantID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, `SELECT COUNT(*) FROM holds WHERE id = ? AND tenant_id = ?`, id, tenantID); err != nil {
		return err
	}
	if exists == 0 {
		return ErrNotFound
	}
	return nil
}

// ExpireHolds marks every active hold whose expires_at is not after now
// as expired and returns how many rows changed.
func (r *HoldRepo) ExpireHolds(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE holds SET status = 'expired' WHERE status = 'active' AND expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Purge deletes finished holds created before the cut-off.  After that
// their idempotency keys can no longer be replayed.
func (r *HoldRepo) Purge(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM holds WHERE status IN ('released','expired') AND created_at < ?`, before.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
