// Package users implements user administration on top of the auth repositories.
package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mikemajesty/monorepo/internal/auth"
	"github.com/mikemajesty/monorepo/internal/ids"
	"github.com/mikemajesty/monorepo/internal/paginate"
)

const (
	welcomeSubject  = "Welcome"
	welcomeTemplate = "welcome"
)

type CreateInput struct {
	Email    string          `json:"email" validate:"required,email"`
	Name     string          `json:"name" validate:"required,max=200"`
	Password string          `json:"password" validate:"required,min=5,max=200"`
	Roles    []auth.RoleName `json:"roles" validate:"required,min=1,dive,oneof=USER BACKOFFICE ADMIN"`
}

type UpdateInput struct {
	ID    string          `json:"id" validate:"required,uuid"`
	Email *string         `json:"email" validate:"omitempty,email"`
	Name  *string         `json:"name" validate:"omitempty,min=1,max=200"`
	Roles []auth.RoleName `json:"roles" validate:"omitempty,min=1,dive,oneof=USER BACKOFFICE ADMIN"`
}

type IDInput struct {
	ID string `json:"id" validate:"required,uuid"`
}

// SearchInput selects one user by id or email.
type SearchInput struct {
	ID    string `json:"id" validate:"required_without=Email,omitempty,uuid"`
	Email string `json:"email" validate:"required_without=ID,omitempty,email"`
}

type ChangePasswordInput struct {
	ID              string `json:"id" validate:"required,uuid"`
	Password        string `json:"password" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=5,max=200"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,min=5,max=200"`
}

// PasswordView exposes the stored digest on the internal search route.
type PasswordView struct {
	ID       string `json:"id"`
	Password string `json:"password"`
}

// SearchResult is a user with its password digest, as served to the auth
// service when it resolves users remotely.
type SearchResult struct {
	*auth.User
	Password *PasswordView `json:"password,omitempty"`
}

// Service holds the user use cases.
type Service struct {
	users  auth.UserRepository
	roles  auth.RoleRepository
	hasher auth.Hasher
	events auth.EventPublisher
	now    func() time.Time
}

func NewService(users auth.UserRepository, roles auth.RoleRepository, hasher auth.Hasher, events auth.EventPublisher) *Service {
	return &Service{users: users, roles: roles, hasher: hasher, events: events, now: time.Now}
}

func (s *Service) Create(ctx context.Context, in CreateInput) (auth.Created, error) {
	in.Email = auth.NormalizeEmail(in.Email)
	if err := auth.Validate(in); err != nil {
		return auth.Created{}, err
	}
	if err := s.ensureEmailFree(ctx, in.Email); err != nil {
		return auth.Created{}, err
	}
	roles, err := s.resolveRoles(ctx, in.Roles)
	if err != nil {
		return auth.Created{}, err
	}
	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return auth.Created{}, fmt.Errorf("hash password: %w", err)
	}
	now := s.now().UTC()
	user := &auth.User{
		ID:        ids.NewUUID(),
		Email:     in.Email,
		Name:      in.Name,
		Roles:     roles,
		Password:  &auth.PasswordCredential{ID: ids.NewUUID(), Password: digest},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, auth.ErrConflict) {
			return auth.Created{}, auth.Conflict(auth.CodeUserExists)
		}
		return auth.Created{}, fmt.Errorf("create user: %w", err)
	}
	if err := s.events.Emit(ctx, auth.EventSendEmail, auth.Email{
		Email:    user.Email,
		Subject:  welcomeSubject,
		Template: welcomeTemplate,
		Payload:  map[string]any{"name": user.Name},
	}); err != nil {
		return auth.Created{}, err
	}
	return auth.Created{Created: true, ID: user.ID}, nil
}

func (s *Service) Update(ctx context.Context, in UpdateInput) (*auth.User, error) {
	if in.Email != nil {
		email := auth.NormalizeEmail(*in.Email)
		in.Email = &email
	}
	if err := auth.Validate(in); err != nil {
		return nil, err
	}
	user, err := s.find(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	if in.Email != nil && *in.Email != user.Email {
		if err := s.ensureEmailFree(ctx, *in.Email); err != nil {
			return nil, err
		}
		user.Email = *in.Email
	}
	if in.Name != nil {
		user.Name = *in.Name
	}
	if len(in.Roles) > 0 {
		if user.Roles, err = s.resolveRoles(ctx, in.Roles); err != nil {
			return nil, err
		}
	}
	user.UpdatedAt = s.now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, auth.ErrConflict) {
			return nil, auth.Conflict(auth.CodeUserExists)
		}
		return nil, auth.NotFoundAs(err, auth.CodeUserNotFound)
	}
	return user, nil
}

func (s *Service) Get(ctx context.Context, in IDInput) (*auth.User, error) {
	if err := auth.Validate(in); err != nil {
		return nil, err
	}
	return s.find(ctx, in.ID)
}

func (s *Service) List(ctx context.Context, in paginate.Input) (paginate.Result[auth.User], error) {
	if err := auth.Validate(in); err != nil {
		return paginate.Result[auth.User]{}, err
	}
	return s.users.List(ctx, in.Normalize())
}

// Delete soft-deletes the user and returns it with deletedAt set.
func (s *Service) Delete(ctx context.Context, in IDInput) (*auth.User, error) {
	if err := auth.Validate(in); err != nil {
		return nil, err
	}
	user, err := s.find(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if err := s.users.SoftDelete(ctx, user.ID, now); err != nil {
		return nil, auth.NotFoundAs(err, auth.CodeUserNotFound)
	}
	user.DeletedAt = &now
	user.UpdatedAt = now
	return user, nil
}

func (s *Service) Search(ctx context.Context, in SearchInput) (*SearchResult, error) {
	in.Email = auth.NormalizeEmail(in.Email)
	if err := auth.Validate(in); err != nil {
		return nil, err
	}
	user, err := s.users.Search(ctx, auth.UserFilter{ID: in.ID, Email: in.Email})
	if err != nil {
		return nil, auth.NotFoundAs(err, auth.CodeUserNotFound)
	}
	out := &SearchResult{User: user}
	if user.Password != nil {
		out.Password = &PasswordView{ID: user.Password.ID, Password: user.Password.Password}
	}
	return out, nil
}

// ChangePassword rotates the password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, in ChangePasswordInput) error {
	if err := auth.Validate(in); err != nil {
		return err
	}
	if in.NewPassword != in.ConfirmPassword {
		return auth.BadRequest(auth.CodePasswordsAreDifferent)
	}
	user, err := s.find(ctx, in.ID)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(in.Password, user.PasswordDigest()) {
		return auth.BadRequest(auth.CodePasswordIsIncorrect)
	}
	digest, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, digest); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (s *Service) find(ctx context.Context, id string) (*auth.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, auth.NotFoundAs(err, auth.CodeUserNotFound)
	}
	return user, nil
}

func (s *Service) ensureEmailFree(ctx context.Context, email string) error {
	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if exists {
		return auth.Conflict(auth.CodeUserExists)
	}
	return nil
}

func (s *Service) resolveRoles(ctx context.Context, names []auth.RoleName) ([]auth.Role, error) {
	unique := make([]auth.RoleName, 0, len(names))
	seen := make(map[auth.RoleName]struct{}, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		unique = append(unique, n)
	}
	roles, err := s.roles.FindByNames(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("find roles: %w", err)
	}
	if len(roles) != len(unique) {
		return nil, auth.NotFound(auth.CodeRoleNotFound)
	}
	return roles, nil
}
