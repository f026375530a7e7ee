package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole = string

const (
	// RoleGuest is an guest role (ie. view)
	RoleGuest UserRole = "guest"
	// RoleMember us a member (i.e. view, edit)
	RoleMember UserRole = "member"
	// RoleAdmin is an admin role (i.e. view, edit, create)
	RoleAdmin UserRole = "admin"
	// RoleOwner is an admin role (i.e. view, edit, create, delete)
	RoleOwner UserRole = "owner"
)

// User is the user model. There is no password hash column: the OPAQUE
// registration record in AccountCredential replaces password storage.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role          UserRole       `bun:"user_role,notnull" json:"user_role,omitempty"`
	FirstName     string         `bun:"first_name,notnull" json:"first_name,omitempty"`
	LastName      string         `bun:"last_name,notnull" json:"last_name,omitempty"`
	Email         string         `bun:"email,notnull,unique" json:"email,omitempty"`
	LoggedInAt    *time.Time     `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	Metadata      map[string]any `bun:"metadata" json:"metadata,omitempty"`
	CreatedAt     *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time     `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// AddMetadata will append information to a metadata attribute
func (u *User) AddMetadata(key string, val any) *User {
	if u.Metadata == nil {
		u.Metadata = make(map[string]interface{})
	}
	u.Metadata[key] = val
	return u
}

// Snapshot captures the identity fields carried inside a sealed login state.
func (u *User) Snapshot() *IdentitySnapshot {
	if u == nil {
		return nil
	}

	return &IdentitySnapshot{
		UserID:     u.ID,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Role:       u.Role,
		LoggedInAt: u.LoggedInAt,
	}
}

// AccountCredential binds a user to the long-term OPAQUE registration record
// the server stores in place of a password. Created once at registration
// completion, immutable thereafter; there is no rotation flow.
type AccountCredential struct {
	bun.BaseModel `bun:"table:account_credentials,alias:acred"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        *uuid.UUID `bun:"user_id,notnull" json:"user_id,omitempty"`
	User          *User      `bun:"rel:has-one,join:user_id=id" json:"user,omitempty"`
	Record        string     `bun:"registration_record,notnull" json:"-"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}
