package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/iliyamo/table-reservation/internal/database"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/repository"
)

// withDB runs fn against an open database.
func withDB(ctx context.Context, fn func(ctx context.Context, e *env, db *sqlx.DB) error) error {
	e, err := loadEnv(true)
	if err != nil {
		return err
	}
	db, err := database.Open(e.dbSettings())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	return fn(ctx, e, db)
}

// tenantOptions are the flags of tenant create.
type tenantOptions struct {
	slug, name, timezone, currency string
	hours                          string
	approval                       string
	deposit                        string
	depositDescription             string
	avgSpend                       string
	slotInterval, duration         int
	primaryColor, accentColor      string
}

// build turns the flags into a tenant with a fresh id.
func (o tenantOptions) build() (model.Tenant, error) {
	t := model.Tenant{
		ID:                 uuid.NewString(),
		Slug:               strings.ToLower(strings.TrimSpace(o.slug)),
		Name:               strings.TrimSpace(o.name),
		Timezone:           o.timezone,
		Currency:           strings.ToLower(o.currency),
		Branding:           model.Branding{PrimaryColor: o.primaryColor, AccentColor: o.accentColor},
		ApprovalPolicy:     o.approval,
		SlotIntervalMin:    o.slotInterval,
		DefaultDurationMin: o.duration,
		Status:             model.TenantActive,
	}
	if t.Slug == "" || t.Name == "" {
		return model.Tenant{}, fmt.Errorf("--slug and --name are required")
	}
	if t.ApprovalPolicy != model.ApprovalAuto && t.ApprovalPolicy != model.ApprovalManual {
		return model.Tenant{}, fmt.Errorf("--approval must be %q or %q", model.ApprovalAuto, model.ApprovalManual)
	}
	if _, err := time.LoadLocation(o.timezone); err != nil {
		return model.Tenant{}, fmt.Errorf("--timezone: %w", err)
	}
	if err := json.Unmarshal([]byte(o.hours), &t.Hours); err != nil {
		return model.Tenant{}, fmt.Errorf("--hours: %w", err)
	}
	if err := t.Hours.Validate(); err != nil {
		return model.Tenant{}, fmt.Errorf("--hours: %w", err)
	}
	if o.deposit != "" {
		amount, err := decimal.NewFromString(o.deposit)
		if err != nil || !amount.IsPositive() {
			return model.Tenant{}, fmt.Errorf("--deposit must be a positive amount")
		}
		t.Deposit = model.DepositPolicy{Required: true, Amount: amount, Description: o.depositDescription}
	}
	if o.avgSpend != "" {
		spend, err := decimal.NewFromString(o.avgSpend)
		if err != nil {
			return model.Tenant{}, fmt.Errorf("--avg-spend: %w", err)
		}
		t.AvgSpendPerCover = spend
	}
	return t, nil
}

func newTenantCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "tenant", Short: "Manage tenants"}

	var o tenantOptions
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a restaurant tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := o.build()
			if err != nil {
				return err
			}
			return withDB(cmd.Context(), func(ctx context.Context, _ *env, db *sqlx.DB) error {
				if err := repository.NewTenantRepo(db).Create(ctx, t); err != nil {
					return fmt.Errorf("create tenant: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "tenant %s created (slug %s)\n", t.ID, t.Slug)
				return nil
			})
		},
	}
	f := create.Flags()
	f.StringVar(&o.slug, "slug", "", "URL handle")
	f.StringVar(&o.name, "name", "", "display name")
	f.StringVar(&o.timezone, "timezone", "UTC", "IANA zone of the business hours")
	f.StringVar(&o.currency, "currency", "usd", "ISO-4217 deposit currency")
	f.StringVar(&o.hours, "hours", `{}`, `JSON business hours, e.g. {"tuesday":{"open":"17:00","close":"22:00"}}`)
	f.StringVar(&o.approval, "approval", model.ApprovalAuto, "auto or manual")
	f.StringVar(&o.deposit, "deposit", "", "deposit amount; empty means no deposit")
	f.StringVar(&o.depositDescription, "deposit-description", "Booking deposit", "shown to guests")
	f.StringVar(&o.avgSpend, "avg-spend", "", "average spend per cover")
	f.IntVar(&o.slotInterval, "slot-interval", 30, "minutes between start times")
	f.IntVar(&o.duration, "duration", 90, "minutes a booking occupies a table")
	f.StringVar(&o.primaryColor, "primary-color", "", "widget primary color")
	f.StringVar(&o.accentColor, "accent-color", "", "widget accent color")
	cmd.AddCommand(create)
	return cmd
}

func newTableCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "table", Short: "Manage dining tables"}

	var (
		tenantID string
		label    string
		capacity int
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a dining table to a tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tenantID == "" || label == "" || capacity <= 0 {
				return fmt.Errorf("--tenant, --label and a positive --capacity are required")
			}
			return withDB(cmd.Context(), func(ctx context.Context, _ *env, db *sqlx.DB) error {
				t, err := repository.NewTenantRepo(db).GetByRef(ctx, tenantID)
				if err != nil {
					return fmt.Errorf("find tenant %q: %w", tenantID, err)
				}
				tbl := &model.Table{TenantID: t.ID, Label: label, Capacity: capacity, IsActive: true}
				if err := repository.NewTableRepo(db).Create(ctx, tbl); err != nil {
					return fmt.Errorf("add table: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "table %d (%s, %d covers) added to %s\n", tbl.ID, tbl.Label, tbl.Capacity, t.Slug)
				return nil
			})
		},
	}
	add.Flags().StringVar(&tenantID, "tenant", "", "tenant slug or id")
	add.Flags().StringVar(&label, "label", "", "table label")
	add.Flags().IntVar(&capacity, "capacity", 0, "maximum covers")
	cmd.AddCommand(add)
	return cmd
}

func newStaffCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "staff", Short: "Manage staff accounts"}

	var tenantRef, email, password, role string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a staff or owner account",
		RunE: func(cmd *cobra.Command, args []string) error {
			role = strings.ToUpper(role)
			if role != model.RoleOwner && role != model.RoleStaff {
				return fmt.Errorf("--role must be %s or %s", model.RoleOwner, model.RoleStaff)
			}
			if len(password) < 8 {
				return fmt.Errorf("--password must have at least 8 characters")
			}
			return withDB(cmd.Context(), func(ctx context.Context, e *env, db *sqlx.DB) error {
				t, err := repository.NewTenantRepo(db).GetByRef(ctx, tenantRef)
				if err != nil {
					return fmt.Errorf("find tenant %q: %w", tenantRef, err)
				}
				id, err := repository.NewStaffRepo(db).Create(ctx, t.ID, email, password, role, e.cfg.BcryptCost)
				if err != nil {
					return fmt.Errorf("create staff: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "staff %d (%s) created for %s\n", id, role, t.Slug)
				return nil
			})
		},
	}
	create.Flags().StringVar(&tenantRef, "tenant", "", "tenant slug or id")
	create.Flags().StringVar(&email, "email", "", "login email")
	create.Flags().StringVar(&password, "password", "", "initial password")
	create.Flags().StringVar(&role, "role", model.RoleStaff, "OWNER or STAFF")
	cmd.AddCommand(create)
	return cmd
}
