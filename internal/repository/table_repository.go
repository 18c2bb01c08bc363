package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/table-reservation/internal/model"
)

// TableRepo provides access to the dining_tables table.
type TableRepo struct {
	db *sqlx.DB
}

// NewTableRepo returns a new TableRepo bound to the given database.
func NewTableRepo(db *sqlx.DB) *TableRepo { return &TableRepo{db: db} }

type tableRecord struct {
	ID       uint64 `db:"id"`
	TenantID string `db:"tenant_id"`
	Label    string `db:"label"`
	Capacity int    `db:"capacity"`
	IsActive bool   `db:"is_active"`
}

// ListActive returns the active tables of a tenant ordered by capacity.
func (r *TableRepo) ListActive(ctx context.Context, tenantID string) ([]model.Table, error) {
	var recs []tableRecord
	if err := r.db.SelectContext(ctx, &recs,
		`SELECT id, tenant_id, label, capacity, is_active FROM dining_tables
		 WHERE tenant_id = ? AND is_active = 1 ORDER BY capacity, id`, tenantID); err != nil {
		return nil, err
	}
	out := make([]model.Table, 0, len(recs))
	for _, rec := range recs {
		out = append(out, model.Table(rec))
	}
	return out, nil
}

// GetByID returns a table of the tenant.
func (r *TableRepo) GetByID(ctx context.Context, tenantID string, id uint64) (model.Table, error) {
	var rec tableRecord
	err := r.db.GetContext(ctx, &rec,
		`SELECT id, tenant_id, label, capacity, is_active FROM dining_tables WHERE id = ? AND tenant_id = ?`, id, tenantID)
	if err != nil {
		return model.Table{}, notFound(err)
	}
	return model.Table(rec), nil
}

// Create inserts a table and populates its generated ID.
func (r *TableRepo) Create(ctx context.Context, t *model.Table) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO dining_tables (tenant_id, label, capacity, is_active) VALUES (?, ?, ?, ?)`,
		t.TenantID, t.Label, t.Capacity, t.IsActive)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicateKey
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}
