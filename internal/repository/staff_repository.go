package repository

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/utils"
)

// StaffRepo stores restaurant operator accounts.
type StaffRepo struct{ db *sqlx.DB }

func NewStaffRepo(db *sqlx.DB) *StaffRepo { return &StaffRepo{db: db} }

type staffRecord struct {
	ID           uint64    `db:"id"`
	TenantID     string    `db:"tenant_id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Role         string    `db:"role"`
	IsActive     bool      `db:"is_active"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

const staffColumns = `id, tenant_id, email, password_hash, role, is_active, created_at, updated_at`

// Create hashes password and inserts the account, returning its id.
func (r *StaffRepo) Create(ctx context.Context, tenantID, email, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO staff_users (tenant_id, email, password_hash, role) VALUES (?,?,?,?)",
		tenantID, email, hash, role)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches an account by normalized email.
func (r *StaffRepo) GetByEmail(ctx context.Context, email string) (model.StaffUser, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var rec staffRecord
	if err := r.db.GetContext(ctx, &rec, "SELECT "+staffColumns+" FROM staff_users WHERE email=? LIMIT 1", email); err != nil {
		return model.StaffUser{}, notFound(err)
	}
	return model.StaffUser(rec), nil
}

// GetByID fetches an account by id.
func (r *StaffRepo) GetByID(ctx context.Context, id uint64) (model.StaffUser, error) {
	var rec staffRecord
	if err := r.db.GetContext(ctx, &rec, "SELECT "+staffColumns+" FROM staff_users WHERE id=? LIMIT 1", id); err != nil {
		return model.StaffUser{}, notFound(err)
	}
	return model.StaffUser(rec), nil
}
