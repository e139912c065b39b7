package auth

import (
	"strings"
	"time"
)

// RoleName is one of the fixed role identifiers.
type RoleName string

const (
	RoleUser       RoleName = "USER"
	RoleBackoffice RoleName = "BACKOFFICE"
	RoleAdmin      RoleName = "ADMIN"
)

// Valid reports whether n is a known role.
func (n RoleName) Valid() bool {
	switch n {
	case RoleUser, RoleBackoffice, RoleAdmin:
		return true
	}
	return false
}

// Permission is a fine-grained capability such as "user:create".
type Permission struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Roles     []Role     `json:"roles,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt"`
}

// RoleNames lists the roles still referencing the permission.
func (p *Permission) RoleNames() []string {
	out := make([]string, 0, len(p.Roles))
	for _, r := range p.Roles {
		out = append(out, string(r.Name))
	}
	return out
}

// Deactivate soft-deletes the permission.
func (p *Permission) Deactivate(at time.Time) {
	at = at.UTC()
	p.DeletedAt = &at
	p.UpdatedAt = at
}

// Role groups permissions.
type Role struct {
	ID          string       `json:"id"`
	Name        RoleName     `json:"name"`
	Permissions []Permission `json:"permissions"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	DeletedAt   *time.Time   `json:"deletedAt"`
}

// PermissionNames lists the names of the attached permissions.
func (r *Role) PermissionNames() []string {
	out := make([]string, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		out = append(out, p.Name)
	}
	return out
}

// Deactivate soft-deletes the role.
func (r *Role) Deactivate(at time.Time) {
	at = at.UTC()
	r.DeletedAt = &at
	r.UpdatedAt = at
}

// PasswordCredential holds the digest of a user's password.
type PasswordCredential struct {
	ID       string `json:"id"`
	Password string `json:"-"`
}

// User is an identity that can authenticate.
type User struct {
	ID        string              `json:"id"`
	Email     string              `json:"email"`
	Name      string              `json:"name"`
	Roles     []Role              `json:"roles"`
	Password  *PasswordCredential `json:"-"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
	DeletedAt *time.Time          `json:"deletedAt"`
}

// PasswordDigest returns the stored digest or "" when none was loaded.
func (u *User) PasswordDigest() string {
	if u == nil || u.Password == nil {
		return ""
	}
	return u.Password.Password
}

// ResetPasswordTicket pairs a user with an outstanding reset token.
type ResetPasswordTicket struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Created is returned by every create use case.
type Created struct {
	Created bool   `json:"created"`
	ID      string `json:"id"`
}

// NormalizeEmail lower-cases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
