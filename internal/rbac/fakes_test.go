package rbac

import (
	"context"
	"sort"
	"sync"

	"github.com/mikemajesty/monorepo/internal/auth"
	"github.com/mikemajesty/monorepo/internal/paginate"
)

// memStore backs both repositories so links stay consistent.
type memStore struct {
	mu          sync.Mutex
	roles       map[string]auth.Role
	permissions map[string]auth.Permission
	links       map[string]map[string]struct{} // role id -> permission ids
}

func newMemStore() *memStore {
	return &memStore{
		roles:       map[string]auth.Role{},
		permissions: map[string]auth.Permission{},
		links:       map[string]map[string]struct{}{},
	}
}

type memRoles struct{ *memStore }
type memPermissions struct{ *memStore }

func (m memRoles) FindByID(_ context.Context, id string) (*auth.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roles[id]
	if !ok || r.DeletedAt != nil {
		return nil, auth.ErrNotFound
	}
	r.Permissions = nil
	for pid := range m.links[id] {
		r.Permissions = append(r.Permissions, m.permissions[pid])
	}
	sort.Slice(r.Permissions, func(i, j int) bool { return r.Permissions[i].Name < r.Permissions[j].Name })
	return &r, nil
}

func (m memRoles) FindByName(_ context.Context, name auth.RoleName) (*auth.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.roles {
		if r.Name == name && r.DeletedAt == nil {
			return &r, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (m memRoles) FindByNames(_ context.Context, names []auth.RoleName) ([]auth.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []auth.Role
	for _, n := range names {
		for _, r := range m.roles {
			if r.Name == n && r.DeletedAt == nil {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func (m memRoles) Create(_ context.Context, r *auth.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roles[r.ID] = *r
	return nil
}

func (m memRoles) Update(_ context.Context, r *auth.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.roles[r.ID]; !ok {
		return auth.ErrNotFound
	}
	m.roles[r.ID] = *r
	return nil
}

func (m memRoles) List(_ context.Context, in paginate.Input) (paginate.Result[auth.Role], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var docs []auth.Role
	for _, r := range m.roles {
		if r.DeletedAt == nil {
			docs = append(docs, r)
		}
	}
	return paginate.Result[auth.Role]{Docs: docs, Page: in.Page, Limit: in.Limit, Total: int64(len(docs))}, nil
}

func (m memRoles) AttachPermissions(_ context.Context, roleID string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.links[roleID] == nil {
		m.links[roleID] = map[string]struct{}{}
	}
	for _, id := range ids {
		m.links[roleID][id] = struct{}{}
	}
	return nil
}

func (m memRoles) DetachPermissions(_ context.Context, roleID string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.links[roleID], id)
	}
	return nil
}

func (m memPermissions) FindByID(_ context.Context, id string) (*auth.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.permissions[id]
	if !ok || p.DeletedAt != nil {
		return nil, auth.ErrNotFound
	}
	p.Roles = nil
	for rid, perms := range m.links {
		if _, ok := perms[id]; ok && m.roles[rid].DeletedAt == nil {
			p.Roles = append(p.Roles, m.roles[rid])
		}
	}
	return &p, nil
}

func (m memPermissions) FindIn(_ context.Context, names []string) ([]auth.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []auth.Permission
	for _, n := range names {
		for _, p := range m.permissions {
			if p.Name == n && p.DeletedAt == nil {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (m memPermissions) Create(_ context.Context, p *auth.Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.permissions[p.ID] = *p
	return nil
}

func (m memPermissions) Update(_ context.Context, p *auth.Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.permissions[p.ID]; !ok {
		return auth.ErrNotFound
	}
	m.permissions[p.ID] = *p
	return nil
}

func (m memPermissions) List(_ context.Context, in paginate.Input) (paginate.Result[auth.Permission], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var docs []auth.Permission
	for _, p := range m.permissions {
		if p.DeletedAt == nil {
			docs = append(docs, p)
		}
	}
	return paginate.Result[auth.Permission]{Docs: docs, Page: in.Page, Limit: in.Limit, Total: int64(len(docs))}, nil
}
