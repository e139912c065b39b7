package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mikemajesty/monorepo/internal/auth"
	"github.com/mikemajesty/monorepo/internal/cache"
	"github.com/mikemajesty/monorepo/internal/cat"
	"github.com/mikemajesty/monorepo/internal/config"
	"github.com/mikemajesty/monorepo/internal/events"
	"github.com/mikemajesty/monorepo/internal/httpapi"
	"github.com/mikemajesty/monorepo/internal/obs"
	"github.com/mikemajesty/monorepo/internal/rbac"
	"github.com/mikemajesty/monorepo/internal/store/memory"
	"github.com/mikemajesty/monorepo/internal/store/pg"
	"github.com/mikemajesty/monorepo/internal/userclient"
	"github.com/mikemajesty/monorepo/internal/users"
)

var version = "dev"

// backend is the set of repositories the use cases run on.
type backend struct {
	users       auth.UserRepository
	roles       auth.RoleRepository
	permissions auth.PermissionRepository
	tickets     auth.ResetTicketRepository
	cats        cat.Repository
	blacklist   auth.Blacklist
	events      auth.EventPublisher
	probes      map[string]httpapi.Pinger
	closers     []func() error
}

func (b *backend) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			obs.Logger().Warn().Err(err).Msg("close dependency")
		}
	}
}

func main() {
	if err := run(); err != nil {
		obs.Logger().Fatal().Err(err).Msg("api stopped")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	obs.Configure(cfg.LogLevel, cfg.IsLocal())
	obs.Init()
	obs.InitBuildInfo("api", version)
	log := obs.Logger()
	log.Info().Str("config", cfg.String()).Msg("config loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hasher, err := auth.NewHasher(cfg.PasswordHasher)
	if err != nil {
		return err
	}
	b, err := openBackend(ctx, cfg, hasher)
	if err != nil {
		return err
	}
	defer b.close()

	tokens, err := auth.NewTokenService(cfg.JWTSecret,
		auth.WithTokenTTL(cfg.TokenTTL),
		auth.WithRefreshTTL(cfg.RefreshTokenTTL),
		auth.WithIssuer(cfg.JWTIssuer),
	)
	if err != nil {
		return err
	}

	var finder auth.UserFinder = b.users
	if cfg.UserLookup == config.LookupRemote {
		finder = userclient.New(cfg.UserAppHost,
			userclient.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
			userclient.WithInternalKey(cfg.InternalAPIKey),
		)
		log.Info().Str("user_app_host", cfg.UserAppHost).Msg("resolving users remotely")
	}

	api := httpapi.New(httpapi.Services{
		Login:          auth.NewLogin(finder, hasher, tokens),
		Refresh:        auth.NewRefresh(finder, tokens, b.blacklist),
		Logout:         auth.NewLogout(b.blacklist, tokens),
		SendResetEmail: auth.NewSendResetEmail(finder, b.tickets, tokens, b.events, cfg.Host),
		ConfirmReset:   auth.NewConfirmResetPassword(finder, b.users, b.tickets, tokens, hasher, b.events),
		Guard:          auth.NewGuard(tokens, b.blacklist),
		Principals:     finder,
		Users:          users.NewService(b.users, b.roles, hasher, b.events),
		Roles:          rbac.NewRoles(b.roles, b.permissions),
		Permissions:    rbac.NewPermissions(b.permissions),
		Cats:           cat.NewService(b.cats),
	}, httpapi.Options{
		Version:      version,
		RateBurst:    cfg.RateLimitBurst,
		RatePerSec:   cfg.RateLimitPerSec,
		Timeout:      cfg.HTTPTimeout,
		MaxBodyBytes: cfg.MaxBodyBytes,
		InternalKey:  cfg.InternalAPIKey,
		Probes:       b.probes,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       cfg.HTTPTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.HTTPTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info().Msg("stopped")
	return nil
}

func openBackend(ctx context.Context, cfg *config.Config, hasher auth.Hasher) (*backend, error) {
	b := &backend{probes: map[string]httpapi.Pinger{}}

	if cfg.UsesMemoryStore() {
		st := memory.New()
		if err := st.SeedRBAC(ctx); err != nil {
			return nil, err
		}
		if cfg.SeedAdminPassword != "" {
			digest, err := hasher.Hash(cfg.SeedAdminPassword)
			if err != nil {
				return nil, err
			}
			if _, err := st.SeedUser(ctx, cfg.SeedAdminEmail, "admin", digest, auth.RoleAdmin); err != nil {
				return nil, fmt.Errorf("seed admin: %w", err)
			}
		}
		b.users, b.roles, b.permissions, b.tickets, b.cats = st.Users(), st.Roles(), st.Permissions(), st.Tickets(), st.Cats()
		b.blacklist = st.Blacklist()
		b.probes["store"] = st
		obs.Logger().Warn().Msg("using in-memory store, data is lost on restart")
	} else {
		st, err := pg.Open(cfg.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		b.closers = append(b.closers, st.Close)
		b.users, b.roles, b.permissions, b.tickets, b.cats = st.Users(), st.Roles(), st.Permissions(), st.Tickets(), st.Cats()
		b.probes["postgres"] = st
	}

	if cfg.RedisURL == "" {
		if b.blacklist == nil {
			mem := memory.New()
			b.blacklist = mem.Blacklist()
		}
		b.events = events.Noop{}
		obs.Logger().Warn().Msg("REDIS_URL not set, using in-process blacklist and dropping events")
		return b, nil
	}

	rdb, blacklist, err := cache.Dial(cfg.RedisURL)
	if err != nil {
		b.close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	b.closers = append(b.closers, rdb.Close)
	b.blacklist = blacklist
	b.probes["redis"] = blacklist

	pub, err := events.NewPublisher(cfg.RedisURL)
	if err != nil {
		b.close()
		return nil, err
	}
	b.closers = append(b.closers, pub.Close)
	b.events = pub
	return b, nil
}
