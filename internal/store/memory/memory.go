// Package memory is an in-process implementation of every repository, the
// token blacklist and an event outbox. It backs local runs without
// Postgres or Redis and the HTTP tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mikemajesty/monorepo/internal/auth"
	"github.com/mikemajesty/monorepo/internal/cat"
	"github.com/mikemajesty/monorepo/internal/paginate"
)

// Store keeps all state behind one lock so role and permission links stay
// consistent with the entities they reference.
type Store struct {
	mu sync.RWMutex

	users     map[string]auth.User
	passwords map[string]auth.PasswordCredential // user id -> credential
	userRoles map[string][]string                // user id -> role ids

	roles       map[string]auth.Role
	permissions map[string]auth.Permission
	links       map[string]map[string]struct{} // role id -> permission ids

	tickets map[string][]auth.ResetPasswordTicket // user id -> tickets, oldest first
	cats    map[string]cat.Cat
	revoked map[string]time.Time // token -> expiry

	now func() time.Time
}

func New() *Store {
	return &Store{
		users:       make(map[string]auth.User),
		passwords:   make(map[string]auth.PasswordCredential),
		userRoles:   make(map[string][]string),
		roles:       make(map[string]auth.Role),
		permissions: make(map[string]auth.Permission),
		links:       make(map[string]map[string]struct{}),
		tickets:     make(map[string][]auth.ResetPasswordTicket),
		cats:        make(map[string]cat.Cat),
		revoked:     make(map[string]time.Time),
		now:         time.Now,
	}
}

// SetClock replaces the clock used to expire blacklist entries.
func (s *Store) SetClock(fn func() time.Time) {
	s.mu.Lock()
	s.now = fn
	s.mu.Unlock()
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Users() *Users             { return &Users{s} }
func (s *Store) Roles() *Roles             { return &Roles{s} }
func (s *Store) Permissions() *Permissions { return &Permissions{s} }
func (s *Store) Tickets() *Tickets         { return &Tickets{s} }
func (s *Store) Cats() *Cats               { return &Cats{s} }
func (s *Store) Blacklist() *Blacklist     { return &Blacklist{s} }

func conflict(what string) error {
	return fmt.Errorf("%w: %s already exists", auth.ErrConflict, what)
}

func page[T any](docs []T, in paginate.Input) paginate.Result[T] {
	in = in.Normalize()
	total := len(docs)
	start := min(int(in.Offset()), total)
	end := min(start+in.Limit, total)
	out := make([]T, 0, end-start)
	out = append(out, docs[start:end]...)
	return paginate.Result[T]{Docs: out, Page: in.Page, Limit: in.Limit, Total: int64(total)}
}

func matches(search string, values ...string) bool {
	if search == "" {
		return true
	}
	search = strings.ToLower(search)
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), search) {
			return true
		}
	}
	return false
}

// roleWithPermissions must be called with s.mu held.
func (s *Store) roleWithPermissions(id string) (auth.Role, bool) {
	r, ok := s.roles[id]
	if !ok || r.DeletedAt != nil {
		return auth.Role{}, false
	}
	r.Permissions = make([]auth.Permission, 0, len(s.links[id]))
	for pid := range s.links[id] {
		p, ok := s.permissions[pid]
		if !ok || p.DeletedAt != nil {
			continue
		}
		p.Roles = nil
		r.Permissions = append(r.Permissions, p)
	}
	sort.Slice(r.Permissions, func(i, j int) bool { return r.Permissions[i].Name < r.Permissions[j].Name })
	return r, true
}

// loadUser must be called with s.mu held.
func (s *Store) loadUser(u auth.User) *auth.User {
	u.Roles = make([]auth.Role, 0, len(s.userRoles[u.ID]))
	for _, rid := range s.userRoles[u.ID] {
		if r, ok := s.roleWithPermissions(rid); ok {
			u.Roles = append(u.Roles, r)
		}
	}
	if cred, ok := s.passwords[u.ID]; ok {
		u.Password = &cred
	}
	return &u
}

// Users implements auth.UserRepository.
type Users struct{ s *Store }

func (r *Users) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	email = auth.NormalizeEmail(email)
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.Email == email && u.DeletedAt == nil {
			return r.s.loadUser(u), nil
		}
	}
	return nil, auth.ErrNotFound
}

func (r *Users) FindByID(_ context.Context, id string) (*auth.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok || u.DeletedAt != nil {
		return nil, auth.ErrNotFound
	}
	return r.s.loadUser(u), nil
}

func (r *Users) Search(ctx context.Context, f auth.UserFilter) (*auth.User, error) {
	if f.ID != "" {
		u, err := r.FindByID(ctx, f.ID)
		if err != nil || f.Email == "" || u.Email == auth.NormalizeEmail(f.Email) {
			return u, err
		}
		return nil, auth.ErrNotFound
	}
	return r.FindByEmail(ctx, f.Email)
}

func (r *Users) ExistsByEmail(_ context.Context, email string) (bool, error) {
	email = auth.NormalizeEmail(email)
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.Email == email && u.DeletedAt == nil {
			return true, nil
		}
	}
	return false, nil
}

func (r *Users) Create(_ context.Context, u *auth.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.users {
		if other.Email == u.Email && other.DeletedAt == nil {
			return conflict("user " + u.Email)
		}
	}
	r.s.users[u.ID] = stripUser(*u)
	if u.Password != nil {
		r.s.passwords[u.ID] = *u.Password
	}
	r.s.setRoles(u.ID, u.Roles)
	return nil
}

func (r *Users) Update(_ context.Context, u *auth.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.users[u.ID]
	if !ok || cur.DeletedAt != nil {
		return auth.ErrNotFound
	}
	for id, other := range r.s.users {
		if id != u.ID && other.Email == u.Email && other.DeletedAt == nil {
			return conflict("user " + u.Email)
		}
	}
	r.s.users[u.ID] = stripUser(*u)
	r.s.setRoles(u.ID, u.Roles)
	return nil
}

func (r *Users) SoftDelete(_ context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok || u.DeletedAt != nil {
		return auth.ErrNotFound
	}
	at = at.UTC()
	u.DeletedAt = &at
	u.UpdatedAt = at
	r.s.users[id] = u
	return nil
}

func (r *Users) UpdatePassword(_ context.Context, userID, digest string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cred, ok := r.s.passwords[userID]
	if !ok {
		return auth.ErrNotFound
	}
	cred.Password = digest
	r.s.passwords[userID] = cred
	return nil
}

func (r *Users) List(_ context.Context, in paginate.Input) (paginate.Result[auth.User], error) {
	in = in.Normalize()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	docs := make([]auth.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		if u.DeletedAt != nil || !matches(in.Search, u.Name, u.Email) {
			continue
		}
		loaded := r.s.loadUser(u)
		loaded.Password = nil
		docs = append(docs, *loaded)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].CreatedAt.After(docs[j].CreatedAt) })
	return page(docs, in), nil
}

func stripUser(u auth.User) auth.User {
	u.Roles = nil
	u.Password = nil
	return u
}

// setRoles must be called with s.mu held.
func (s *Store) setRoles(userID string, roles []auth.Role) {
	if roles == nil {
		return
	}
	ids := make([]string, 0, len(roles))
	for _, r := range roles {
		ids = append(ids, r.ID)
	}
	s.userRoles[userID] = ids
}

// Roles implements auth.RoleRepository.
type Roles struct{ s *Store }

func (r *Roles) FindByID(_ context.Context, id string) (*auth.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	role, ok := r.s.roleWithPermissions(id)
	if !ok {
		return nil, auth.ErrNotFound
	}
	return &role, nil
}

func (r *Roles) FindByName(_ context.Context, name auth.RoleName) (*auth.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for id, role := range r.s.roles {
		if role.Name == name && role.DeletedAt == nil {
			out, _ := r.s.roleWithPermissions(id)
			return &out, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (r *Roles) FindByNames(_ context.Context, names []auth.RoleName) ([]auth.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]auth.Role, 0, len(names))
	for _, n := range names {
		for id, role := range r.s.roles {
			if role.Name == n && role.DeletedAt == nil {
				loaded, _ := r.s.roleWithPermissions(id)
				out = append(out, loaded)
			}
		}
	}
	return out, nil
}

func (r *Roles) Create(_ context.Context, role *auth.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.roles {
		if other.Name == role.Name && other.DeletedAt == nil {
			return conflict("role " + string(role.Name))
		}
	}
	cp := *role
	cp.Permissions = nil
	r.s.roles[role.ID] = cp
	return nil
}

func (r *Roles) Update(_ context.Context, role *auth.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.roles[role.ID]; !ok {
		return auth.ErrNotFound
	}
	for id, other := range r.s.roles {
		if id != role.ID && other.Name == role.Name && other.DeletedAt == nil && role.DeletedAt == nil {
			return conflict("role " + string(role.Name))
		}
	}
	cp := *role
	cp.Permissions = nil
	r.s.roles[role.ID] = cp
	return nil
}

func (r *Roles) List(_ context.Context, in paginate.Input) (paginate.Result[auth.Role], error) {
	in = in.Normalize()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	docs := make([]auth.Role, 0, len(r.s.roles))
	for id, role := range r.s.roles {
		if role.DeletedAt != nil || !matches(in.Search, string(role.Name)) {
			continue
		}
		loaded, _ := r.s.roleWithPermissions(id)
		docs = append(docs, loaded)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return page(docs, in), nil
}

func (r *Roles) AttachPermissions(_ context.Context, roleID string, permissionIDs []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.roles[roleID]; !ok {
		return fmt.Errorf("%w: role %s does not exist", auth.ErrConflict, roleID)
	}
	for _, pid := range permissionIDs {
		if _, ok := r.s.permissions[pid]; !ok {
			return fmt.Errorf("%w: permission %s does not exist", auth.ErrConflict, pid)
		}
	}
	if r.s.links[roleID] == nil {
		r.s.links[roleID] = make(map[string]struct{})
	}
	for _, pid := range permissionIDs {
		r.s.links[roleID][pid] = struct{}{}
	}
	return nil
}

func (r *Roles) DetachPermissions(_ context.Context, roleID string, permissionIDs []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, pid := range permissionIDs {
		delete(r.s.links[roleID], pid)
	}
	return nil
}

// Permissions implements auth.PermissionRepository.
type Permissions struct{ s *Store }

func (r *Permissions) FindByID(_ context.Context, id string) (*auth.Permission, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.permissions[id]
	if !ok || p.DeletedAt != nil {
		return nil, auth.ErrNotFound
	}
	p.Roles = []auth.Role{}
	for rid, perms := range r.s.links {
		role, ok := r.s.roles[rid]
		if _, linked := perms[id]; !linked || !ok || role.DeletedAt != nil {
			continue
		}
		role.Permissions = nil
		p.Roles = append(p.Roles, role)
	}
	sort.Slice(p.Roles, func(i, j int) bool { return p.Roles[i].Name < p.Roles[j].Name })
	return &p, nil
}

func (r *Permissions) FindIn(_ context.Context, names []string) ([]auth.Permission, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]auth.Permission, 0, len(names))
	for _, n := range names {
		for _, p := range r.s.permissions {
			if p.Name == n && p.DeletedAt == nil {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (r *Permissions) Create(_ context.Context, p *auth.Permission) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.permissions {
		if other.Name == p.Name && other.DeletedAt == nil {
			return conflict("permission " + p.Name)
		}
	}
	cp := *p
	cp.Roles = nil
	r.s.permissions[p.ID] = cp
	return nil
}

func (r *Permissions) Update(_ context.Context, p *auth.Permission) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.permissions[p.ID]; !ok {
		return auth.ErrNotFound
	}
	for id, other := range r.s.permissions {
		if id != p.ID && other.Name == p.Name && other.DeletedAt == nil && p.DeletedAt == nil {
			return conflict("permission " + p.Name)
		}
	}
	cp := *p
	cp.Roles = nil
	r.s.permissions[p.ID] = cp
	return nil
}

func (r *Permissions) List(_ context.Context, in paginate.Input) (paginate.Result[auth.Permission], error) {
	in = in.Normalize()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	docs := make([]auth.Permission, 0, len(r.s.permissions))
	for _, p := range r.s.permissions {
		if p.DeletedAt == nil && matches(in.Search, p.Name) {
			docs = append(docs, p)
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return page(docs, in), nil
}

// Tickets implements auth.ResetTicketRepository.
type Tickets struct{ s *Store }

func (r *Tickets) FindByUserID(_ context.Context, userID string) (*auth.ResetPasswordTicket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	list := r.s.tickets[userID]
	if len(list) == 0 {
		return nil, auth.ErrNotFound
	}
	t := list[len(list)-1]
	return &t, nil
}

func (r *Tickets) Create(_ context.Context, t *auth.ResetPasswordTicket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[t.UserID]; !ok {
		return fmt.Errorf("%w: user %s does not exist", auth.ErrConflict, t.UserID)
	}
	r.s.tickets[t.UserID] = append(r.s.tickets[t.UserID], *t)
	return nil
}

func (r *Tickets) DeleteByUserID(_ context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.tickets, userID)
	return nil
}

// Cats implements cat.Repository.
type Cats struct{ s *Store }

func (r *Cats) Create(_ context.Context, c *cat.Cat) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.cats[c.ID] = *c
	return nil
}

func (r *Cats) Update(_ context.Context, c *cat.Cat) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.cats[c.ID]
	if !ok || cur.DeletedAt != nil {
		return auth.ErrNotFound
	}
	r.s.cats[c.ID] = *c
	return nil
}

func (r *Cats) FindByID(_ context.Context, id string) (*cat.Cat, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.cats[id]
	if !ok || c.DeletedAt != nil {
		return nil, auth.ErrNotFound
	}
	return &c, nil
}

func (r *Cats) List(_ context.Context, in paginate.Input) (paginate.Result[cat.Cat], error) {
	in = in.Normalize()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	docs := make([]cat.Cat, 0, len(r.s.cats))
	for _, c := range r.s.cats {
		if c.DeletedAt == nil && matches(in.Search, c.Name, c.Breed) {
			docs = append(docs, c)
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].CreatedAt.After(docs[j].CreatedAt) })
	return page(docs, in), nil
}

// Blacklist implements auth.Blacklist with lazy expiry.
type Blacklist struct{ s *Store }

func (b *Blacklist) Revoke(_ context.Context, token string, ttl time.Duration) error {
	if token == "" {
		return errors.New("blacklist: empty token")
	}
	if ttl <= 0 {
		return errors.New("blacklist: ttl must be positive")
	}
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	b.s.revoked[token] = b.s.now().Add(ttl)
	return nil
}

func (b *Blacklist) IsRevoked(_ context.Context, token string) (bool, error) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	exp, ok := b.s.revoked[token]
	if !ok {
		return false, nil
	}
	if !b.s.now().Before(exp) {
		delete(b.s.revoked, token)
		return false, nil
	}
	return true, nil
}
