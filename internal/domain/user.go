package domain

import (
	"slices"
	"time"
)

// Role names carried in access tokens.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// IsValidRole reports whether role is a known role.
func IsValidRole(role string) bool {
	return role == RoleCustomer || role == RoleAdmin
}

// Principal is an authenticated caller.
type Principal interface {
	Subject() string
	HasRole(role string) bool
}

// UserAccount holds login credentials. A Customer refers to it by UserID.
type UserAccount struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Roles        []string   `json:"roles"`
	IsActive     bool       `json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

var _ Principal = (*UserAccount)(nil)

// Subject returns the account id.
func (u *UserAccount) Subject() string { return u.ID }

// HasRole reports whether the account holds role.
func (u *UserAccount) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}

// TokenPair is returned by a successful login.
type TokenPair struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}
