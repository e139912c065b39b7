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

type CreatePermissionInput struct {
	Name string `json:"name" validate:"required,permission"`
}

type UpdatePermissionInput struct {
	ID   string `json:"id" validate:"required,uuid"`
	Name string `json:"name" validate:"required,permission"`
}

// Permissions holds the permission use cases.
type Permissions struct {
	permissions auth.PermissionRepository
	now         func() time.Time
}

func NewPermissions(permissions auth.PermissionRepository) *Permissions {
	return &Permissions{permissions: permissions, now: time.Now}
}

func (s *Permissions) Create(ctx context.Context, in CreatePermissionInput) (auth.Created, error) {
	if err := auth.Validate(in); err != nil {
		return auth.Created{}, err
	}
	if err := s.ensureNameFree(ctx, in.Name, ""); err != nil {
		return auth.Created{}, err
	}
	now := s.now().UTC()
	p := &auth.Permission{ID: ids.NewUUID(), Name: in.Name, CreatedAt: now, UpdatedAt: now}
	if err := s.permissions.Create(ctx, p); err != nil {
		if errors.Is(err, auth.ErrConflict) {
			return auth.Created{}, auth.Conflict(auth.CodePermissionExists)
		}
		return auth.Created{}, fmt.Errorf("create permission: %w", err)
	}
	return auth.Created{Created: true, ID: p.ID}, nil
}

func (s *Permissions) Update(ctx context.Context, in UpdatePermissionInput) (*auth.Permission, error) {
	if err := auth.Validate(in); err != nil {
		return nil, err
	}
	p, err := s.find(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	if p.Name != in.Name {
		if err := s.ensureNameFree(ctx, in.Name, p.ID); err != nil {
			return nil, err
		}
	}
	p.Name = in.Name
	p.UpdatedAt = s.now().UTC()
	if err := s.permissions.Update(ctx, p); err != nil {
		return nil, permissionWriteError(err)
	}
	return p, nil
}

func (s *Permissions) Get(ctx context.Context, in IDInput) (*auth.Permission, error) {
	if err := auth.Validate(in); err != nil {
		return nil, err
	}
	return s.find(ctx, in.ID)
}

func (s *Permissions) List(ctx context.Context, in paginate.Input) (paginate.Result[auth.Permission], error) {
	if err := auth.Validate(in); err != nil {
		return paginate.Result[auth.Permission]{}, err
	}
	return s.permissions.List(ctx, in.Normalize())
}

// Delete soft-deletes a permission no role references.
func (s *Permissions) Delete(ctx context.Context, in IDInput) (*auth.Permission, error) {
	if err := auth.Validate(in); err != nil {
		return nil, err
	}
	p, err := s.find(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	if len(p.Roles) > 0 {
		return nil, auth.ConflictWith(auth.CodePermissionHasRoles, p.RoleNames())
	}
	p.Deactivate(s.now())
	if err := s.permissions.Update(ctx, p); err != nil {
		return nil, permissionWriteError(err)
	}
	return p, nil
}

func (s *Permissions) find(ctx context.Context, id string) (*auth.Permission, error) {
	p, err := s.permissions.FindByID(ctx, id)
	if err != nil {
		return nil, auth.NotFoundAs(err, auth.CodePermissionNotFound)
	}
	return p, nil
}

func (s *Permissions) ensureNameFree(ctx context.Context, name, selfID string) error {
	found, err := s.permissions.FindIn(ctx, []string{name})
	if err != nil {
		return fmt.Errorf("find permission: %w", err)
	}
	for _, p := range found {
		if p.ID != selfID {
			return auth.Conflict(auth.CodePermissionExists)
		}
	}
	return nil
}

func permissionWriteError(err error) error {
	if errors.Is(err, auth.ErrConflict) && auth.CodeOf(err) == "" {
		return auth.Conflict(auth.CodePermissionExists)
	}
	return auth.NotFoundAs(err, auth.CodePermissionNotFound)
}
