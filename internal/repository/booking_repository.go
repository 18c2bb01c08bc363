package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/table-reservation/internal/model"
)

// BookingRepo provides data access to bookings.  A booking is only ever
// created by converting an active hold, so the table chosen for the
// hold carries over unchanged.  All timestamps are stored in UTC.
type BookingRepo struct {
	db *sqlx.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sqlx.DB) *BookingRepo { return &BookingRepo{db: db} }

// bookingRecord mirrors the bookings table.
type bookingRecord struct {
	ID                 string         `db:"id"`
	TenantID           string         `db:"tenant_id"`
	TableID            sql.NullInt64  `db:"table_id"`
	HoldID             string         `db:"hold_id"`
	GuestFirstName     string         `db:"guest_first_name"`
	GuestLastName      string         `db:"guest_last_name"`
	GuestEmail         string         `db:"guest_email"`
	GuestPhone         string         `db:"guest_phone"`
	PartySize          int            `db:"party_size"`
	BookingTime        time.Time      `db:"booking_time"`
	DurationMinutes    int            `db:"duration_minutes"`
	Status             string         `db:"status"`
	DepositRequired    bool           `db:"deposit_required"`
	DepositAmountCents int64          `db:"deposit_amount_cents"`
	DepositPaid        bool           `db:"deposit_paid"`
	PaymentIntentID    sql.NullString `db:"payment_intent_id"`
	SpecialRequests    string         `db:"special_requests"`
	IdempotencyKey     string         `db:"idempotency_key"`
	RequestHash        string         `db:"request_hash"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

const bookingColumns = `id, tenant_id, table_id, hold_id, guest_first_name, guest_last_name, guest_email, guest_phone,
	party_size, booking_time, duration_minutes, status, deposit_required, deposit_amount_cents, deposit_paid,
	payment_intent_id, special_requests, idempotency_key, request_hash, created_at, updated_at`

func (rec bookingRecord) toModel() *model.Booking {
	b := &model.Booking{
		ID:                 rec.ID,
		TenantID:           rec.TenantID,
		HoldID:             rec.HoldID,
		GuestFirstName:     rec.GuestFirstName,
		GuestLastName:      rec.GuestLastName,
		GuestEmail:         rec.GuestEmail,
		GuestPhone:         rec.GuestPhone,
		PartySize:          rec.PartySize,
		BookingTime:        rec.BookingTime.UTC(),
		DurationMinutes:    rec.DurationMinutes,
		Status:             model.BookingStatus(rec.Status),
		DepositRequired:    rec.DepositRequired,
		DepositAmountCents: rec.DepositAmountCents,
		DepositPaid:        rec.DepositPaid,
		SpecialRequests:    rec.SpecialRequests,
		IdempotencyKey:     rec.IdempotencyKey,
		RequestHash:        rec.RequestHash,
		CreatedAt:          rec.CreatedAt.UTC(),
		UpdatedAt:          rec.UpdatedAt.UTC(),
	}
	if rec.TableID.Valid {
		id := uint64(rec.TableID.Int64)
		b.TableID = &id
	}
	if rec.PaymentIntentID.Valid {
		pi := rec.PaymentIntentID.String
		b.PaymentIntentID = &pi
	}
	return b
}

// FindByKey returns the booking created with the idempotency key.
func (r *BookingRepo) FindByKey(ctx context.Context, tenantID, key string) (*model.Booking, error) {
	var rec bookingRecord
	err := r.db.GetContext(ctx, &rec,
		`SELECT `+bookingColumns+` FROM bookings WHERE tenant_id = ? AND idempotency_key = ?`, tenantID, key)
	if err != nil {
		return nil, notFound(err)
	}
	return rec.toModel(), nil
}

// GetByID returns a booking by id.  An empty tenantID matches any
// tenant; guest lookups go through the reservation id alone.
func (r *BookingRepo) GetByID(ctx context.Context, tenantID, id string) (*model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	args := []interface{}{id}
	if tenantID != "" {
		q += ` AND tenant_id = ?`
		args = append(args, tenantID)
	}
	var rec bookingRecord
	if err := r.db.GetContext(ctx, &rec, q, args...); err != nil {
		return nil, notFound(err)
	}
	return rec.toModel(), nil
}

// ListByTenantBetween returns the tenant's bookings starting in
// [from, to) ordered by start time.
func (r *BookingRepo) ListByTenantBetween(ctx context.Context, tenantID string, from, to time.Time) ([]model.Booking, error) {
	var recs []bookingRecord
	err := r.db.SelectContext(ctx, &recs, `SELECT `+bookingColumns+` FROM bookings
		WHERE tenant_id = ? AND booking_time >= ? AND booking_time < ?
		ORDER BY booking_time, id`, tenantID, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	out := make([]model.Booking, 0, len(recs))
	for _, rec := range recs {
		out = append(out, *rec.toModel())
	}
	return out, nil
}

// UpdateStatus moves a booking from one status to another.  The update
// only applies while the row still has status from; otherwise
// ErrConflict is returned (or ErrNotFound if the booking is unknown).
func (r *BookingRepo) UpdateStatus(ctx context.Context, tenantID, id string, from, to model.BookingStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET status = ? WHERE id = ? AND tenant_id = ? AND status = ?`,
		string(to), id, tenantID, string(from))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, `SELECT COUNT(*) FROM bookings WHERE id = ? AND tenant_id = ?`, id, tenantID); err != nil {
		return err
	}
	if exists == 0 {
		return ErrNotFound
	}
	return ErrConflict
}

// Occupancy returns every interval overlapping [from, to) during which a
// table of the tenant is taken, either by an active unexpired hold or by
// a booking that still occupies its table.
func (r *BookingRepo) Occupancy(ctx context.Context, tenantID string, from, to, now time.Time) ([]model.Occupancy, error) {
	const q = `SELECT table_id, slot_time AS start_time, DATE_ADD(slot_time, INTERVAL duration_minutes MINUTE) AS end_time
		FROM holds
		WHERE tenant_id = ? AND status = 'active' AND expires_at > ?
		  AND slot_time < ? AND DATE_ADD(slot_time, INTERVAL duration_minutes MINUTE) > ?
		UNION ALL
		SELECT table_id, booking_time, DATE_ADD(booking_time, INTERVAL duration_minutes MINUTE)
		FROM bookings
		WHERE tenant_id = ? AND table_id IS NOT NULL AND status IN ('pending','confirmed','seated')
		  AND booking_time < ? AND DATE_ADD(booking_time, INTERVAL duration_minutes MINUTE) > ?`
	var rows []struct {
		TableID uint64    `db:"table_id"`
		Start   time.Time `db:"start_time"`
		End     time.Time `db:"end_time"`
	}
	err := r.db.SelectContext(ctx, &rows, q,
		tenantID, now.UTC(), to.UTC(), from.UTC(),
		tenantID, to.UTC(), from.UTC())
	if err != nil {
		return nil, err
	}
	out := make([]model.Occupancy, 0, len(rows))
	for _, row := range rows {
		out = append(out, model.Occupancy{TableID: row.TableID, Start: row.Start.UTC(), End: row.End.UTC()})
	}
	return out, nil
}

// ConvertHold turns the hold referenced by b.HoldID into the booking b
// in one transaction.  The hold row is locked FOR UPDATE; the table,
// start time, party size and duration of the hold are copied onto b.
//
// Errors: ErrNotFound for an unknown hold, ErrHoldConsumed when the hold
// was already converted, ErrHoldExpired when it is no longer active and
// ErrDuplicateKey when the idempotency key was used concurrently and
// ErrDepositConsumed when the payment intent already backs a booking.
func (r *BookingRepo) ConvertHold(ctx context.Context, b *model.Booking, now time.Time) error {
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

	var h holdRecord
	err = tx.GetContext(ctx, &h,
		`SELECT `+holdColumns+` FROM holds WHERE id = ? AND tenant_id = ? FOR UPDATE`, b.HoldID, b.TenantID)
	if err != nil {
		return notFound(err)
	}
	hold := h.toModel()
	switch {
	case hold.Status == model.HoldConverted:
		return ErrHoldConsumed
	case !hold.IsActive(now):
		return ErrHoldExpired
	}

	tableID := hold.TableID
	b.TableID = &tableID
	b.BookingTime = hold.SlotTime
	b.PartySize = hold.PartySize
	b.DurationMinutes = hold.DurationMinutes

	var pi interface{}
	if b.PaymentIntentID != nil {
		pi = *b.PaymentIntentID
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO bookings (id, tenant_id, table_id, hold_id, guest_first_name, guest_last_name,
		guest_email, guest_phone, party_size, booking_time, duration_minutes, status, deposit_required,
		deposit_amount_cents, deposit_paid, payment_intent_id, special_requests, idempotency_key, request_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.TenantID, tableID, b.HoldID, b.GuestFirstName, b.GuestLastName,
		b.GuestEmail, b.GuestPhone, b.PartySize, b.BookingTime, b.DurationMinutes, string(b.Status), b.DepositRequired,
		b.DepositAmountCents, b.DepositPaid, pi, b.SpecialRequests, b.IdempotencyKey, b.RequestHash)
	switch {
	case duplicateOn(err, "uq_bookings_payment_intent"):
		return ErrDepositConsumed
	case isDuplicate(err):
		return ErrDuplicateKey
	case err != nil:
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE holds SET status = 'converted', booking_id = ? WHERE id = ?`, b.ID, hold.ID); err != nil {
		return err
	}
	var ts struct {
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}
	if err := tx.GetContext(ctx, &ts, `SELECT created_at, updated_at FROM bookings WHERE id = ?`, b.ID); err != nil {
		return err
	}
	b.CreatedAt, b.UpdatedAt = ts.CreatedAt.UTC(), ts.UpdatedAt.UTC()

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
