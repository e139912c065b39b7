// Package config loads service settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// User lookup modes.
const (
	LookupLocal  = "local"
	LookupRemote = "remote"
)

// MemoryStore as POSTGRES_URL runs the API on the in-process store.
const MemoryStore = "memory"

type Config struct {
	Env      string
	LogLevel string

	Host     string
	HTTPAddr string

	UserAppHost string
	AuthAppHost string
	CatAppHost  string
	UserLookup  string

	// InternalAPIKey authenticates service-to-service calls to the user
	// search route. The route is not served without it.
	InternalAPIKey string

	PostgresURL string
	RedisURL    string

	TokenTTL        time.Duration
	RefreshTokenTTL time.Duration
	JWTSecret       string
	JWTIssuer       string
	PasswordHasher  string

	RateLimitBurst  int
	RateLimitPerSec float64
	HTTPTimeout     time.Duration
	MaxBodyBytes    int64

	EmailFrom string

	// Admin account created on start when the memory store is used.
	SeedAdminEmail    string
	SeedAdminPassword string
}

// UsesMemoryStore reports whether Postgres is replaced by the in-process store.
func (c *Config) UsesMemoryStore() bool {
	return c.PostgresURL == MemoryStore
}

// IsLocal reports whether the process runs on a developer machine.
func (c *Config) IsLocal() bool {
	return c.Env == "" || c.Env == "local" || c.Env == "dev"
}

// String renders the config with secrets masked.
func (c *Config) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "env=%s log_level=%s http_addr=%s host=%s user_lookup=%s", c.Env, c.LogLevel, c.HTTPAddr, c.Host, c.UserLookup)
	fmt.Fprintf(&sb, " token_ttl=%s refresh_ttl=%s hasher=%s", c.TokenTTL, c.RefreshTokenTTL, c.PasswordHasher)
	fmt.Fprintf(&sb, " postgres=%s redis=%s jwt_secret=%s internal_api_key=%s", mask(c.PostgresURL), mask(c.RedisURL), mask(c.JWTSecret), mask(c.InternalAPIKey))
	return sb.String()
}

func mask(v string) string {
	if v == "" {
		return "(empty)"
	}
	return "********"
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("ENV", "local")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HOST", "http://localhost:5000")
	v.SetDefault("HTTP_ADDR", ":5000")
	v.SetDefault("USER_LOOKUP", LookupLocal)
	v.SetDefault("TOKEN_EXPIRATION", "15m")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "7d")
	v.SetDefault("PASSWORD_HASHER", "argon2id")
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("RATE_LIMIT_PER_SEC", 10.0)
	v.SetDefault("HTTP_TIMEOUT", "15s")
	v.SetDefault("MAX_BODY_BYTES", 1<<20)
	v.SetDefault("EMAIL_FROM", "noreply@localhost")
	v.SetDefault("SEED_ADMIN_EMAIL", "admin@admin.com")
	return v
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Env:             strings.ToLower(strings.TrimSpace(v.GetString("ENV"))),
		LogLevel:        v.GetString("LOG_LEVEL"),
		Host:            strings.TrimRight(v.GetString("HOST"), "/"),
		HTTPAddr:        v.GetString("HTTP_ADDR"),
		UserAppHost:     v.GetString("USER_APP_HOST"),
		AuthAppHost:     v.GetString("AUTH_APP_HOST"),
		CatAppHost:      v.GetString("CAT_APP_HOST"),
		UserLookup:      strings.ToLower(strings.TrimSpace(v.GetString("USER_LOOKUP"))),
		PostgresURL:     strings.TrimSpace(v.GetString("POSTGRES_URL")),
		RedisURL:        strings.TrimSpace(v.GetString("REDIS_URL")),
		JWTSecret:       v.GetString("JWT_SECRET_KEY"),
		JWTIssuer:       v.GetString("JWT_ISSUER"),
		PasswordHasher:  v.GetString("PASSWORD_HASHER"),
		RateLimitBurst:  v.GetInt("RATE_LIMIT_BURST"),
		RateLimitPerSec: v.GetFloat64("RATE_LIMIT_PER_SEC"),
		MaxBodyBytes:    v.GetInt64("MAX_BODY_BYTES"),
		EmailFrom:       v.GetString("EMAIL_FROM"),

		InternalAPIKey:    strings.TrimSpace(v.GetString("INTERNAL_API_KEY")),
		SeedAdminEmail:    v.GetString("SEED_ADMIN_EMAIL"),
		SeedAdminPassword: v.GetString("SEED_ADMIN_PASSWORD"),
	}

	var errs []error
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"TOKEN_EXPIRATION", &cfg.TokenTTL},
		{"REFRESH_TOKEN_EXPIRATION", &cfg.RefreshTokenTTL},
		{"HTTP_TIMEOUT", &cfg.HTTPTimeout},
	}
	for _, d := range durations {
		parsed, err := ParseDuration(v.GetString(d.key))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.key, err))
			continue
		}
		*d.dst = parsed
	}

	if strings.TrimSpace(cfg.JWTSecret) == "" {
		errs = append(errs, errors.New("JWT_SECRET_KEY is required"))
	}
	if cfg.PostgresURL == "" {
		errs = append(errs, errors.New("POSTGRES_URL is required"))
	}
	switch cfg.UserLookup {
	case LookupLocal:
	case LookupRemote:
		if strings.TrimSpace(cfg.UserAppHost) == "" {
			errs = append(errs, errors.New("USER_APP_HOST is required when USER_LOOKUP=remote"))
		}
		if cfg.InternalAPIKey == "" {
			errs = append(errs, errors.New("INTERNAL_API_KEY is required when USER_LOOKUP=remote"))
		}
	default:
		errs = append(errs, fmt.Errorf("USER_LOOKUP must be %q or %q", LookupLocal, LookupRemote))
	}
	if cfg.RateLimitBurst <= 0 || cfg.RateLimitPerSec <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_BURST and RATE_LIMIT_PER_SEC must be positive"))
	}
	if cfg.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("MAX_BODY_BYTES must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// ParseDuration accepts Go durations ("15m"), plain seconds ("900") and a
// day suffix ("7d").
func ParseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("empty duration")
	}
	var (
		d   time.Duration
		err error
	)
	switch {
	case strings.HasSuffix(raw, "d"):
		var days float64
		days, err = strconv.ParseFloat(strings.TrimSuffix(raw, "d"), 64)
		d = time.Duration(days * float64(24*time.Hour))
	default:
		if secs, convErr := strconv.ParseInt(raw, 10, 64); convErr == nil {
			d = time.Duration(secs) * time.Second
		} else {
			d, err = time.ParseDuration(raw)
		}
	}
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", raw)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration %q must be positive", raw)
	}
	return d, nil
}
