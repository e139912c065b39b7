// Package userclient resolves users through the user service's search route
// when the auth service runs without direct database access to users.
package userclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/mikemajesty/monorepo/internal/auth"
	"github.com/mikemajesty/monorepo/internal/users"
)

const searchPath = "/api/v1/users/search"

// InternalKeyHeader carries the shared key expected by the user search route.
const InternalKeyHeader = "X-Internal-Key"

type Client struct {
	baseURL string
	key     string
	http    *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default client with a 10s timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithInternalKey sets the shared key sent on every search.
func WithInternalKey(key string) Option {
	return func(c *Client) {
		c.key = strings.TrimSpace(key)
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	return c.search(ctx, url.Values{"email": {email}})
}

func (c *Client) FindByID(ctx context.Context, id string) (*auth.User, error) {
	return c.search(ctx, url.Values{"id": {id}})
}

func (c *Client) search(ctx context.Context, q url.Values) (*auth.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+searchPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("userclient: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.key != "" {
		req.Header.Set(InternalKeyHeader, c.key)
	}
	if rid := middleware.GetReqID(ctx); rid != "" {
		req.Header.Set(middleware.RequestIDHeader, rid)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("userclient: search: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, auth.ErrNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("userclient: search: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var res users.SearchResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("userclient: decode: %w", err)
	}
	if res.User == nil || res.ID == "" {
		return nil, auth.ErrNotFound
	}
	user := res.User
	if res.Password != nil {
		user.Password = &auth.PasswordCredential{ID: res.Password.ID, Password: res.Password.Password}
	}
	return user, nil
}

var _ auth.UserFinder = (*Client)(nil)
