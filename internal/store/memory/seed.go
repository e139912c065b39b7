package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mikemajesty/monorepo/internal/auth"
	"github.com/mikemajesty/monorepo/internal/ids"
)

// SeedRBAC creates the fixed roles and the builtin permissions, granting all
// of them to ADMIN. It matches the SQL seed and is idempotent.
func (s *Store) SeedRBAC(ctx context.Context) error {
	now := time.Now().UTC()
	perms := s.Permissions()
	roles := s.Roles()

	existing, err := perms.FindIn(ctx, auth.BuiltinPermissions)
	if err != nil {
		return err
	}
	have := make(map[string]string, len(existing))
	for _, p := range existing {
		have[p.Name] = p.ID
	}
	permIDs := make([]string, 0, len(auth.BuiltinPermissions))
	for _, name := range auth.BuiltinPermissions {
		id, ok := have[name]
		if !ok {
			id = ids.NewUUID()
			if err := perms.Create(ctx, &auth.Permission{ID: id, Name: name, CreatedAt: now, UpdatedAt: now}); err != nil {
				return fmt.Errorf("seed permission %s: %w", name, err)
			}
		}
		permIDs = append(permIDs, id)
	}

	for _, name := range []auth.RoleName{auth.RoleUser, auth.RoleBackoffice, auth.RoleAdmin} {
		if _, err := roles.FindByName(ctx, name); err == nil {
			continue
		}
		if err := roles.Create(ctx, &auth.Role{ID: ids.NewUUID(), Name: name, CreatedAt: now, UpdatedAt: now}); err != nil {
			return fmt.Errorf("seed role %s: %w", name, err)
		}
	}
	admin, err := roles.FindByName(ctx, auth.RoleAdmin)
	if err != nil {
		return fmt.Errorf("seed admin role: %w", err)
	}
	return roles.AttachPermissions(ctx, admin.ID, permIDs)
}

// SeedUser stores an active user holding the named roles and returns its id.
func (s *Store) SeedUser(ctx context.Context, email, name, digest string, roleNames ...auth.RoleName) (string, error) {
	roles, err := s.Roles().FindByNames(ctx, roleNames)
	if err != nil {
		return "", err
	}
	if len(roles) != len(roleNames) {
		return "", auth.NotFound(auth.CodeRoleNotFound)
	}
	now := time.Now().UTC()
	u := &auth.User{
		ID:        ids.NewUUID(),
		Email:     auth.NormalizeEmail(email),
		Name:      name,
		Roles:     roles,
		Password:  &auth.PasswordCredential{ID: ids.NewUUID(), Password: digest},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Users().Create(ctx, u); err != nil {
		return "", err
	}
	return u.ID, nil
}

// Event is one emitted notification.
type Event struct {
	Name    string
	Payload any
}

// Outbox is an auth.EventPublisher that keeps events in memory.
type Outbox struct {
	mu     sync.Mutex
	events []Event
}

func (o *Outbox) Emit(_ context.Context, name string, payload any) error {
	o.mu.Lock()
	o.events = append(o.events, Event{Name: name, Payload: payload})
	o.mu.Unlock()
	return nil
}

// Emails returns the SEND_EMAIL payloads in emission order.
func (o *Outbox) Emails() []auth.Email {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []auth.Email
	for _, e := range o.events {
		if e.Name != auth.EventSendEmail {
			continue
		}
		switch p := e.Payload.(type) {
		case auth.Email:
			out = append(out, p)
		case *auth.Email:
			out = append(out, *p)
		}
	}
	return out
}
