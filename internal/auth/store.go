package auth

import (
	"context"
	"time"

	"github.com/mikemajesty/monorepo/internal/paginate"
)

// UserFinder resolves users with roles, permissions and password loaded.
// Implementations return ErrNotFound when no active user matches.
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
}

// PasswordWriter rotates a user's password digest.
type PasswordWriter interface {
	UpdatePassword(ctx context.Context, userID, digest string) error
}

// UserFilter selects a single user by id or email.
type UserFilter struct {
	ID    string
	Email string
}

// UserRepository manages users.
type UserRepository interface {
	UserFinder
	PasswordWriter
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
	Search(ctx context.Context, filter UserFilter) (*User, error)
	List(ctx context.Context, in paginate.Input) (paginate.Result[User], error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// RoleRepository manages roles and their permission links.
type RoleRepository interface {
	FindByID(ctx context.Context, id string) (*Role, error)
	FindByName(ctx context.Context, name RoleName) (*Role, error)
	FindByNames(ctx context.Context, names []RoleName) ([]Role, error)
	Create(ctx context.Context, r *Role) error
	Update(ctx context.Context, r *Role) error
	List(ctx context.Context, in paginate.Input) (paginate.Result[Role], error)
	AttachPermissions(ctx context.Context, roleID string, permissionIDs []string) error
	DetachPermissions(ctx context.Context, roleID string, permissionIDs []string) error
}

// PermissionRepository manages the permission catalog.
type PermissionRepository interface {
	FindByID(ctx context.Context, id string) (*Permission, error)
	FindIn(ctx context.Context, names []string) ([]Permission, error)
	Create(ctx context.Context, p *Permission) error
	Update(ctx context.Context, p *Permission) error
	List(ctx context.Context, in paginate.Input) (paginate.Result[Permission], error)
}

// ResetTicketRepository stores outstanding password reset tickets.
type ResetTicketRepository interface {
	FindByUserID(ctx context.Context, userID string) (*ResetPasswordTicket, error)
	Create(ctx context.Context, t *ResetPasswordTicket) error
	DeleteByUserID(ctx context.Context, userID string) error
}

// Blacklist keeps logged-out tokens until they would have expired anyway.
type Blacklist interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// EventSendEmail is the event name carrying an Email payload.
const EventSendEmail = "SEND_EMAIL"

// Email is the payload of EventSendEmail.
type Email struct {
	Email    string         `json:"email"`
	Subject  string         `json:"subject"`
	Template string         `json:"template"`
	Payload  map[string]any `json:"payload"`
}

// EventPublisher emits fire-and-forget notifications.
type EventPublisher interface {
	Emit(ctx context.Context, name string, payload any) error
}
