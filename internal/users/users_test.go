package users

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/stretchr/testify/require"

	"github.com/mikemajesty/monorepo/internal/auth"
	"github.com/mikemajesty/monorepo/internal/paginate"
)

var fixedNow = time.Date(2026, 7, 8, 9, 10, 11, 0, time.UTC)

type memUsers struct {
	byID map[string]*auth.User
}

func (m *memUsers) active(id string) (*auth.User, bool) {
	u, ok := m.byID[id]
	return u, ok && u.DeletedAt == nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	for _, u := range m.byID {
		if u.Email == email && u.DeletedAt == nil {
			return u, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (m *memUsers) FindByID(_ context.Context, id string) (*auth.User, error) {
	u, ok := m.active(id)
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id, digest string) error {
	u, ok := m.active(id)
	if !ok {
		return auth.ErrNotFound
	}
	u.Password = &auth.PasswordCredential{ID: u.Password.ID, Password: digest}
	return nil
}

func (m *memUsers) Create(_ context.Context, u *auth.User) error {
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUsers) Update(_ context.Context, u *auth.User) error {
	if _, ok := m.active(u.ID); !ok {
		return auth.ErrNotFound
	}
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUsers) SoftDelete(_ context.Context, id string, at time.Time) error {
	u, ok := m.active(id)
	if !ok {
		return auth.ErrNotFound
	}
	u.DeletedAt = &at
	return nil
}

func (m *memUsers) Search(ctx context.Context, f auth.UserFilter) (*auth.User, error) {
	if f.ID != "" {
		return m.FindByID(ctx, f.ID)
	}
	return m.FindByEmail(ctx, f.Email)
}

func (m *memUsers) List(_ context.Context, in paginate.Input) (paginate.Result[auth.User], error) {
	var docs []auth.User
	for _, u := range m.byID {
		if u.DeletedAt == nil {
			docs = append(docs, *u)
		}
	}
	return paginate.Result[auth.User]{Docs: docs, Page: in.Page, Limit: in.Limit, Total: int64(len(docs))}, nil
}

func (m *memUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := m.FindByEmail(ctx, email)
	return err == nil, nil
}

type memRoles struct {
	roles []auth.Role
}

func (m *memRoles) FindByID(context.Context, string) (*auth.Role, error) { return nil, auth.ErrNotFound }
func (m *memRoles) FindByName(_ context.Context, name auth.RoleName) (*auth.Role, error) {
	for _, r := range m.roles {
		if r.Name == name {
			return &r, nil
		}
	}
	return nil, auth.ErrNotFound
}
func (m *memRoles) FindByNames(_ context.Context, names []auth.RoleName) ([]auth.Role, error) {
	var out []auth.Role
	for _, n := range names {
		for _, r := range m.roles {
			if r.Name == n {
				out = append(out, r)
			}
		}
	}
	return out, nil
}
func (m *memRoles) Create(context.Context, *auth.Role) error { return nil }
func (m *memRoles) Update(context.Context, *auth.Role) error { return nil }
func (m *memRoles) List(context.Context, paginate.Input) (paginate.Result[auth.Role], error) {
	return paginate.Result[auth.Role]{}, nil
}
func (m *memRoles) AttachPermissions(context.Context, string, []string) error { return nil }
func (m *memRoles) DetachPermissions(context.Context, string, []string) error { return nil }

type recordingEvents struct {
	emails []auth.Email
}

func (r *recordingEvents) Emit(_ context.Context, _ string, payload any) error {
	r.emails = append(r.emails, payload.(auth.Email))
	return nil
}

type fixture struct {
	svc    *Service
	users  *memUsers
	events *recordingEvents
	hasher auth.Hasher
}

func newFixture() *fixture {
	f := &fixture{
		users:  &memUsers{byID: map[string]*auth.User{}},
		events: &recordingEvents{},
		hasher: auth.NewArgon2idHasher(&argon2id.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}),
	}
	roles := &memRoles{roles: []auth.Role{
		{ID: "r-user", Name: auth.RoleUser},
		{ID: "r-admin", Name: auth.RoleAdmin},
	}}
	f.svc = NewService(f.users, roles, f.hasher, f.events)
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func (f *fixture) create(t *testing.T) string {
	t.Helper()
	out, err := f.svc.Create(context.Background(), CreateInput{
		Email:    " Admin@Admin.com",
		Name:     "Admin",
		Password: "secret",
		Roles:    []auth.RoleName{auth.RoleUser, auth.RoleUser},
	})
	require.NoError(t, err)
	require.True(t, out.Created)
	return out.ID
}

func TestCreateUser(t *testing.T) {
	f := newFixture()
	id := f.create(t)

	stored := f.users.byID[id]
	require.Equal(t, "admin@admin.com", stored.Email)
	require.Len(t, stored.Roles, 1)
	require.True(t, f.hasher.Verify("secret", stored.PasswordDigest()))
	require.Len(t, f.events.emails, 1)
	require.Equal(t, "welcome", f.events.emails[0].Template)

	_, err := f.svc.Create(context.Background(), CreateInput{Email: "admin@admin.com", Name: "B", Password: "secret", Roles: []auth.RoleName{auth.RoleUser}})
	require.Equal(t, auth.CodeUserExists, auth.CodeOf(err))

	_, err = f.svc.Create(context.Background(), CreateInput{Email: "other@admin.com", Name: "B", Password: "secret", Roles: []auth.RoleName{auth.RoleBackoffice}})
	require.Equal(t, auth.CodeRoleNotFound, auth.CodeOf(err))

	_, err = f.svc.Create(context.Background(), CreateInput{Email: "other@admin.com", Name: "B", Password: "secret"})
	require.ErrorIs(t, err, auth.ErrValidation)
}

func TestUpdateAndDeleteUser(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := f.create(t)

	name := "Root"
	user, err := f.svc.Update(ctx, UpdateInput{ID: id, Name: &name, Roles: []auth.RoleName{auth.RoleAdmin}})
	require.NoError(t, err)
	require.Equal(t, "Root", user.Name)
	require.Equal(t, auth.RoleAdmin, user.Roles[0].Name)

	deleted, err := f.svc.Delete(ctx, IDInput{ID: id})
	require.NoError(t, err)
	require.Equal(t, fixedNow, *deleted.DeletedAt)

	_, err = f.svc.Get(ctx, IDInput{ID: id})
	require.Equal(t, auth.CodeUserNotFound, auth.CodeOf(err))
}

func TestSearchExposesPasswordDigest(t *testing.T) {
	f := newFixture()
	id := f.create(t)

	res, err := f.svc.Search(context.Background(), SearchInput{Email: "ADMIN@admin.com"})
	require.NoError(t, err)
	require.Equal(t, id, res.ID)

	body, err := json.Marshal(res)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	pwd, ok := decoded["password"].(map[string]any)
	require.True(t, ok, string(body))
	require.Equal(t, f.users.byID[id].PasswordDigest(), pwd["password"])

	_, err = f.svc.Search(context.Background(), SearchInput{})
	require.ErrorIs(t, err, auth.ErrValidation)

	_, err = f.svc.Search(context.Background(), SearchInput{Email: "ghost@admin.com"})
	require.Equal(t, auth.CodeUserNotFound, auth.CodeOf(err))
}

func TestChangePassword(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := f.create(t)

	err := f.svc.ChangePassword(ctx, ChangePasswordInput{ID: id, Password: "secret", NewPassword: "another", ConfirmPassword: "different"})
	require.Equal(t, auth.CodePasswordsAreDifferent, auth.CodeOf(err))

	err = f.svc.ChangePassword(ctx, ChangePasswordInput{ID: id, Password: "wrong", NewPassword: "another", ConfirmPassword: "another"})
	require.Equal(t, auth.CodePasswordIsIncorrect, auth.CodeOf(err))

	require.NoError(t, f.svc.ChangePassword(ctx, ChangePasswordInput{ID: id, Password: "secret", NewPassword: "another", ConfirmPassword: "another"}))
	require.True(t, f.hasher.Verify("another", f.users.byID[id].PasswordDigest()))
}
