// Package cache keeps logged-out tokens in Redis until they expire.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mikemajesty/monorepo/internal/obs"
)

// kv is the subset of redis.Cmdable used by Blacklist.
type kv interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// Blacklist stores revoked tokens as key = value = token with a TTL.
type Blacklist struct {
	rdb kv
}

// New wraps an existing client.
func New(rdb kv) *Blacklist {
	return &Blacklist{rdb: rdb}
}

// Dial parses a redis:// URL and returns a client plus the blacklist on top of it.
func Dial(url string) (*redis.Client, *Blacklist, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, nil, errors.New("cache: empty redis url")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("cache: parse url: %w", err)
	}
	rdb := redis.NewClient(opts)
	return rdb, New(rdb), nil
}

// Revoke blacklists token for ttl. Revoking twice only refreshes the TTL.
func (b *Blacklist) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if token == "" {
		return errors.New("cache: empty token")
	}
	if ttl <= 0 {
		return fmt.Errorf("cache: invalid ttl %s", ttl)
	}
	if err := b.rdb.Set(ctx, token, token, ttl).Err(); err != nil {
		obs.Logger().Warn().Err(err).Msg("blacklist set failed")
		return fmt.Errorf("cache: set: %w", err)
	}
	return nil
}

// IsRevoked reports whether token was logged out and has not yet expired.
func (b *Blacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	n, err := b.rdb.Exists(ctx, token).Result()
	if err != nil {
		return false, fmt.Errorf("cache: exists: %w", err)
	}
	return n > 0, nil
}

// Ping checks connectivity for readiness probes.
func (b *Blacklist) Ping(ctx context.Context) error {
	return b.rdb.Ping(ctx).Err()
}
