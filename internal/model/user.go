package model

import "time"

// Staff roles.  Owners manage the tenant, staff handle the floor.
const (
	RoleOwner = "OWNER"
	RoleStaff = "STAFF"
)

// StaffUser represents a restaurant operator account as stored in the
// `staff_users` table.  Every account belongs to exactly one tenant;
// the tenant id travels in the access token so staff endpoints never
// take a tenant from the URL.
//
// Fields:
//  ID           – primary key identifier of the user.
//  TenantID     – restaurant the account operates.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – OWNER or STAFF.
//  IsActive     – deactivated accounts keep their row but cannot act.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type StaffUser struct {
	ID           uint64    `json:"id"`         // staff_users.id
	TenantID     string    `json:"tenant_id"`  // staff_users.tenant_id
	Email        string    `json:"email"`      // staff_users.email
	PasswordHash string    `json:"-"`          // staff_users.password_hash
	Role         string    `json:"role"`       // staff_users.role
	IsActive     bool      `json:"is_active"`  // staff_users.is_active
	CreatedAt    time.Time `json:"created_at"` // staff_users.created_at
	UpdatedAt    time.Time `json:"updated_at"` // staff_users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  The
// plain token is not stored; only its SHA-256 hash.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
