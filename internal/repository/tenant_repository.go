package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/table-reservation/internal/model"
)

// TenantRepo provides read access to restaurants and the insert used by
// the operator CLI.  Business hours are stored as a JSON document.
type TenantRepo struct {
	db *sqlx.DB
}

// NewTenantRepo returns a new TenantRepo bound to the given database.
func NewTenantRepo(db *sqlx.DB) *TenantRepo { return &TenantRepo{db: db} }

// DB exposes the underlying handle for callers that need a transaction.
func (r *TenantRepo) DB() *sqlx.DB { return r.db }

// tenantRecord mirrors the tenants table.
type tenantRecord struct {
	ID                 string          `db:"id"`
	Slug               string          `db:"slug"`
	Name               string          `db:"name"`
	Timezone           string          `db:"timezone"`
	Currency           string          `db:"currency"`
	PrimaryColor       string          `db:"primary_color"`
	AccentColor        string          `db:"accent_color"`
	BusinessHours      []byte          `db:"business_hours"`
	DepositRequired    bool            `db:"deposit_required"`
	DepositAmount      decimal.Decimal `db:"deposit_amount"`
	DepositDescription string          `db:"deposit_description"`
	ApprovalPolicy     string          `db:"approval_policy"`
	AvgSpendPerCover   decimal.Decimal `db:"avg_spend_per_cover"`
	SlotIntervalMin    int             `db:"slot_interval_min"`
	DefaultDurationMin int             `db:"default_duration_min"`
	Status             string          `db:"status"`
	CreatedAt          time.Time       `db:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at"`
}

const tenantColumns = `id, slug, name, timezone, currency, primary_color, accent_color, business_hours,
	deposit_required, deposit_amount, deposit_description, approval_policy, avg_spend_per_cover,
	slot_interval_min, default_duration_min, status, created_at, updated_at`

func (rec tenantRecord) toModel() (model.Tenant, error) {
	hours := model.BusinessHours{}
	if len(rec.BusinessHours) > 0 {
		if err := json.Unmarshal(rec.BusinessHours, &hours); err != nil {
			return model.Tenant{}, fmt.Errorf("tenant %s business_hours: %w", rec.ID, err)
		}
	}
	return model.Tenant{
		ID:       rec.ID,
		Slug:     rec.Slug,
		Name:     rec.Name,
		Timezone: rec.Timezone,
		Currency: rec.Currency,
		Branding: model.Branding{PrimaryColor: rec.PrimaryColor, AccentColor: rec.AccentColor},
		Hours:    hours,
		Deposit: model.DepositPolicy{
			Required:    rec.DepositRequired,
			Amount:      rec.DepositAmount,
			Description: rec.DepositDescription,
		},
		ApprovalPolicy:     rec.ApprovalPolicy,
		AvgSpendPerCover:   rec.AvgSpendPerCover,
		SlotIntervalMin:    rec.SlotIntervalMin,
		DefaultDurationMin: rec.DefaultDurationMin,
		Status:             rec.Status,
		CreatedAt:          rec.CreatedAt,
		UpdatedAt:          rec.UpdatedAt,
	}, nil
}

// GetByRef looks a tenant up by id or slug.  ErrNotFound is returned
// when neither matches.
func (r *TenantRepo) GetByRef(ctx context.Context, ref string) (model.Tenant, error) {
	ref = strings.TrimSpace(ref)
	var rec tenantRecord
	err := r.db.GetContext(ctx, &rec,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = ? OR slug = ? LIMIT 1`, ref, strings.ToLower(ref))
	if err != nil {
		return model.Tenant{}, notFound(err)
	}
	return rec.toModel()
}

// Create inserts a tenant.  The caller supplies the id.
func (r *TenantRepo) Create(ctx context.Context, t model.Tenant) error {
	if err := t.Hours.Validate(); err != nil {
		return err
	}
	hours, err := json.Marshal(t.Hours)
	if err != nil {
		return err
	}
	if t.Status == "" {
		t.Status = model.TenantActive
	}
	if t.ApprovalPolicy == "" {
		t.ApprovalPolicy = model.ApprovalAuto
	}
	if t.Currency == "" {
		t.Currency = "usd"
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO tenants (id, slug, name, timezone, currency, primary_color, accent_color,
		business_hours, deposit_required, deposit_amount, deposit_description, approval_policy, avg_spend_per_cover,
		slot_interval_min, default_duration_min, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, strings.ToLower(t.Slug), t.Name, t.Timezone, strings.ToLower(t.Currency), t.Branding.PrimaryColor, t.Branding.AccentColor,
		hours, t.Deposit.Required, t.Deposit.Amount, t.Deposit.Description, t.ApprovalPolicy, t.AvgSpendPerCover,
		t.SlotIntervalMin, t.DefaultDurationMin, t.Status)
	if isDuplicate(err) {
		return ErrDuplicateKey
	}
	return err
}
