package auth

import (
	"context"
	"sync"
	"time"
)

type memUsers struct {
	mu      sync.Mutex
	byID    map[string]*User
	updated map[string]string
	findErr error
}

func newMemUsers(users ...*User) *memUsers {
	m := &memUsers{byID: map[string]*User{}, updated: map[string]string{}}
	for _, u := range users {
		m.byID[u.ID] = u
	}
	return m
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memUsers) FindByID(_ context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	u, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u, nil
}

func (m *memUsers) UpdatePassword(_ context.Context, userID, digest string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updated[userID] = digest
	if u, ok := m.byID[userID]; ok {
		u.Password = &PasswordCredential{ID: "pwd-" + userID, Password: digest}
	}
	return nil
}

type memTickets struct {
	mu      sync.Mutex
	tickets map[string]*ResetPasswordTicket
	created int
}

func newMemTickets() *memTickets {
	return &memTickets{tickets: map[string]*ResetPasswordTicket{}}
}

func (m *memTickets) FindByUserID(_ context.Context, userID string) (*ResetPasswordTicket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return t, nil
}

func (m *memTickets) Create(_ context.Context, t *ResetPasswordTicket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickets[t.UserID] = t
	m.created++
	return nil
}

func (m *memTickets) DeleteByUserID(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tickets, userID)
	return nil
}

type memBlacklist struct {
	mu      sync.Mutex
	entries map[string]time.Duration
	err     error
}

func newMemBlacklist() *memBlacklist {
	return &memBlacklist{entries: map[string]time.Duration{}}
}

func (m *memBlacklist) Revoke(_ context.Context, token string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries[token] = ttl
	return nil
}

func (m *memBlacklist) IsRevoked(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.entries[token]
	return ok, nil
}

type recordedEvent struct {
	name    string
	payload any
}

type recordingEvents struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingEvents) Emit(_ context.Context, name string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{name: name, payload: payload})
	return nil
}

func (r *recordingEvents) emails() []Email {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Email
	for _, e := range r.events {
		if m, ok := e.payload.(Email); ok && e.name == EventSendEmail {
			out = append(out, m)
		}
	}
	return out
}

func testUser(hasher Hasher, password string, roles ...Role) *User {
	digest, err := hasher.Hash(password)
	if err != nil {
		panic(err)
	}
	return &User{
		ID:       "7f1c2d4e-9a0b-4c3d-8e2f-1a2b3c4d5e6f",
		Email:    "admin@admin.com",
		Name:     "Admin",
		Roles:    roles,
		Password: &PasswordCredential{ID: "pwd-1", Password: digest},
	}
}
