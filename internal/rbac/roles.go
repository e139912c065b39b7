// Package rbac manages roles, permissions and the links between them.
package rbac

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mikemajesty/monorepo/internal/auth"
	"github.com/mikemajesty/monorepo/internal/ids"
	"github.com/mikemajesty/monorepo/internal/paginate"
)

type CreateRoleInput struct {
	Name auth.RoleName `json:"name" validate:"required,oneof=USER BACKOFFICE ADMIN"`
}

type UpdateRoleInput struct {
	ID   string        `json:"id" validate:"required,uuid"`
	Name auth.RoleName `json:"name" validate:"required,oneof=USER BACKOFFICE ADMIN"`
}

type IDInput struct {
	ID string `json:"id" validate:"required,uuid"`
}

// RolePermissionsInput names permissions to add to or remove from a role.
type RolePermissionsInput struct {
	ID          string   `json:"id" validate:"required,uuid"`
	Permissions []string `json:"permissions" validate:"required,min=1,max=100,dive,permission"`
}

// Roles holds the role use cases.
type Roles struct {
	roles       auth.RoleRepository
	permissions auth.PermissionRepository
	now         func() time.Time
}

func NewRoles(roles auth.RoleRepository, permissions auth.PermissionRepository) *Roles {
	return &Roles{roles: roles, permissions: permissions, now: time.Now}
}

func (s *Roles) Create(ctx context.Context, in CreateRoleInput) (auth.Created, error) {
	if err := auth.Validate(in); err != nil {
		return auth.Created{}, err
	}
	if err := s.ensureNameFree(ctx, in.Name, ""); err != nil {
		return auth.Created{}, err
	}
	now := s.now().UTC()
	role := &auth.Role{ID: ids.NewUUID(), Name: in.Name, CreatedAt: now, UpdatedAt: now}
	if err := s.roles.Create(ctx, role); err != nil {
		if errors.Is(err, auth.ErrConflict) {
			return auth.Created{}, auth.Conflict(auth.CodeRoleExists)
		}
		return auth.Created{}, fmt.Errorf("create role: %w", err)
	}
	return auth.Created{Created: true, ID: role.ID}, nil
}

func (s *Roles) Update(ctx context.Context, in UpdateRoleInput) (*auth.Role, error) {
	if err := auth.Validate(in); err != nil {
		return nil, err
	}
	role, err := s.find(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	if role.Name != in.Name {
		if err := s.ensureNameFree(ctx, in.Name, role.ID); err != nil {
			return nil, err
		}
	}
	role.Name = in.Name
	role.UpdatedAt = s.now().UTC()
	if err := s.roles.Update(ctx, role); err != nil {
		return nil, roleWriteError(err)
	}
	return role, nil
}

func (s *Roles) Get(ctx context.Context, in IDInput) (*auth.Role, error) {
	if err := auth.Validate(in); err != nil {
		return nil, err
	}
	return s.find(ctx, in.ID)
}

func (s *Roles) List(ctx context.Context, in paginate.Input) (paginate.Result[auth.Role], error) {
	if err := auth.Validate(in); err != nil {
		return paginate.Result[auth.Role]{}, err
	}
	return s.roles.List(ctx, in.Normalize())
}

// Delete soft-deletes a role. A role that still has permissions attached is
// a conflict naming those permissions.
func (s *Roles) Delete(ctx context.Context, in IDInput) (*auth.Role, error) {
	if err := auth.Validate(in); err != nil {
		return nil, err
	}
	role, err := s.find(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	if len(role.Permissions) > 0 {
		return nil, auth.ConflictWith(auth.CodeRoleHasPermissions, role.PermissionNames())
	}
	role.Deactivate(s.now())
	if err := s.roles.Update(ctx, role); err != nil {
		return nil, roleWriteError(err)
	}
	return role, nil
}

// AddPermissions attaches the named permissions, creating the ones that do
// not exist yet. Permissions already attached are left alone.
func (s *Roles) AddPermissions(ctx context.Context, in RolePermissionsInput) (*auth.Role, error) {
	if err := auth.Validate(in); err != nil {
		return nil, err
	}
	role, err := s.find(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	names := uniqueNames(in.Permissions)
	found, err := s.permissions.FindIn(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("find permissions: %w", err)
	}
	byName := make(map[string]auth.Permission, len(found))
	for _, p := range found {
		byName[p.Name] = p
	}
	now := s.now().UTC()
	for _, name := range names {
		if _, ok := byName[name]; ok {
			continue
		}
		p := auth.Permission{ID: ids.NewUUID(), Name: name, CreatedAt: now, UpdatedAt: now}
		if err := s.permissions.Create(ctx, &p); err != nil {
			return nil, fmt.Errorf("create permission %s: %w", name, err)
		}
		byName[name] = p
	}

	attached := make(map[string]struct{}, len(role.Permissions))
	for _, p := range role.Permissions {
		attached[p.Name] = struct{}{}
	}
	var toAttach []string
	for _, name := range names {
		if _, ok := attached[name]; ok {
			continue
		}
		p := byName[name]
		toAttach = append(toAttach, p.ID)
		role.Permissions = append(role.Permissions, p)
	}
	if len(toAttach) > 0 {
		if err := s.roles.AttachPermissions(ctx, role.ID, toAttach); err != nil {
			return nil, fmt.Errorf("attach permissions: %w", err)
		}
	}
	return role, nil
}

// RemovePermissions detaches the named permissions. Names the role does not
// carry are ignored.
func (s *Roles) RemovePermissions(ctx context.Context, in RolePermissionsInput) (*auth.Role, error) {
	if err := auth.Validate(in); err != nil {
		return nil, err
	}
	role, err := s.find(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	remove := make(map[string]struct{}, len(in.Permissions))
	for _, name := range in.Permissions {
		remove[name] = struct{}{}
	}
	var (
		detach []string
		kept   []auth.Permission
	)
	for _, p := range role.Permissions {
		if _, ok := remove[p.Name]; ok {
			detach = append(detach, p.ID)
			continue
		}
		kept = append(kept, p)
	}
	if len(detach) > 0 {
		if err := s.roles.DetachPermissions(ctx, role.ID, detach); err != nil {
			return nil, fmt.Errorf("detach permissions: %w", err)
		}
	}
	role.Permissions = kept
	return role, nil
}

func (s *Roles) find(ctx context.Context, id string) (*auth.Role, error) {
	role, err := s.roles.FindByID(ctx, id)
	if err != nil {
		return nil, auth.NotFoundAs(err, auth.CodeRoleNotFound)
	}
	return role, nil
}

func (s *Roles) ensureNameFree(ctx context.Context, name auth.RoleName, selfID string) error {
	existing, err := s.roles.FindByName(ctx, name)
	switch {
	case errors.Is(err, auth.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("find role: %w", err)
	case existing.ID != selfID:
		return auth.Conflict(auth.CodeRoleExists)
	}
	return nil
}

func roleWriteError(err error) error {
	if errors.Is(err, auth.ErrConflict) && auth.CodeOf(err) == "" {
		return auth.Conflict(auth.CodeRoleExists)
	}
	return auth.NotFoundAs(err, auth.CodeRoleNotFound)
}

func uniqueNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
