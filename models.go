package authkit

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole = string

const (
	// RoleUser is the default role assigned on registration
	RoleUser UserRole = "user"
	// RoleAdmin can manage other users
	RoleAdmin UserRole = "admin"
)

// User is the user model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role          UserRole   `bun:"user_role,notnull" json:"user_role,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash" json:"-"`
	EmailVerified bool       `bun:"is_email_verified" json:"is_email_verified"`
	LoggedInAt    *time.Time `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// TokenPurpose tags what a signed token may be used for. The set is closed;
// a token minted for one purpose is never accepted for another.
type TokenPurpose string

const (
	// PurposeAccess is a short-lived bearer token, stateless at the store layer
	PurposeAccess TokenPurpose = "access"
	// PurposeRefresh is a long-lived single-use token exchanged for new pairs
	PurposeRefresh TokenPurpose = "refresh"
	// PurposeVerifyEmail is a single-use email verification token
	PurposeVerifyEmail TokenPurpose = "verify-email"
	// PurposeResetPassword is a single-use password reset token
	PurposeResetPassword TokenPurpose = "reset-password"
)

// Valid reports whether p belongs to the closed purpose set.
func (p TokenPurpose) Valid() bool {
	switch p {
	case PurposeAccess, PurposeRefresh, PurposeVerifyEmail, PurposeResetPassword:
		return true
	}
	return false
}

// Persisted reports whether tokens of this purpose get a store record.
// Only refresh, verify-email, and reset-password tokens need server-side
// revocability and single-use enforcement; access tokens stay stateless.
func (p TokenPurpose) Persisted() bool {
	return p.Valid() && p != PurposeAccess
}

// TokenRecord is one persisted issued token. Records are created by the
// lifecycle manager's issue operation and never mutated afterward; they are
// either present or deleted.
type TokenRecord struct {
	bun.BaseModel `bun:"table:token_records,alias:tok"`
	ID            uuid.UUID    `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	SignedValue   string       `bun:"signed_value,notnull,unique" json:"-"`
	SubjectID     uuid.UUID    `bun:"subject_id,notnull,type:uuid" json:"subject_id,omitempty"`
	Purpose       TokenPurpose `bun:"purpose,notnull" json:"purpose,omitempty"`
	ExpiresAt     time.Time    `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	CreatedAt     *time.Time   `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// TokenInfo is one half of the wire token pair.
type TokenInfo struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

// TokenPair is the access+refresh pair returned by login, register, and
// refresh. Expires serializes as an RFC3339 instant.
type TokenPair struct {
	Access  TokenInfo `json:"access"`
	Refresh TokenInfo `json:"refresh"`
}
