// Package httpapi exposes the auth, user, role, permission and cat use cases
// over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mikemajesty/monorepo/internal/auth"
	"github.com/mikemajesty/monorepo/internal/cat"
	"github.com/mikemajesty/monorepo/internal/obs"
	"github.com/mikemajesty/monorepo/internal/rbac"
	"github.com/mikemajesty/monorepo/internal/users"
)

// Pinger is a readiness dependency such as the database or redis.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services are the use cases served by the API.
type Services struct {
	Login          *auth.Login
	Refresh        *auth.Refresh
	Logout         *auth.Logout
	SendResetEmail *auth.SendResetEmail
	ConfirmReset   *auth.ConfirmResetPassword
	Guard          *auth.Guard

	// Principals loads the caller with roles for permission checks.
	Principals auth.UserFinder

	Users       *users.Service
	Roles       *rbac.Roles
	Permissions *rbac.Permissions
	Cats        *cat.Service
}

// Options tune the transport.
type Options struct {
	Version      string
	RateBurst    int
	RatePerSec   float64
	Timeout      time.Duration
	MaxBodyBytes int64
	Probes       map[string]Pinger

	// InternalKey enables the user search route for peer services. Empty
	// leaves the route unmounted.
	InternalKey string
}

func (o Options) withDefaults() Options {
	if o.RateBurst <= 0 {
		o.RateBurst = 20
	}
	if o.RatePerSec <= 0 {
		o.RatePerSec = 10
	}
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = 1 << 20
	}
	return o
}

// API is the HTTP layer.
type API struct {
	svc    Services
	opts   Options
	router chi.Router
}

func New(svc Services, opts Options) *API {
	a := &API{svc: svc, opts: opts.withDefaults()}
	a.router = a.routes()
	return a
}

// Handler returns the root handler with the request deadline applied.
func (a *API) Handler() http.Handler {
	return http.TimeoutHandler(a.router, a.opts.Timeout, `{"error":"timeout","message":"request timed out"}`)
}

func (a *API) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		RequestContext,
		Logging,
		middleware.Recoverer,
		obs.Instrument,
		SecurityHeaders,
		CORS,
		MaxBodyBytes(a.opts.MaxBodyBytes),
		RateLimit(a.opts.RateBurst, a.opts.RatePerSec),
	)
	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	r.Get("/healthz", a.healthz)
	r.Get("/readyz", a.readyz)
	r.Handle("/metrics", obs.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/login", a.login)
		r.Post("/refresh", a.refresh)
		r.Post("/reset-password/send-email", a.sendResetEmail)
		r.Post("/reset-password/{token}", a.confirmResetPassword)
		if a.opts.InternalKey != "" {
			r.With(RequireInternalKey(a.opts.InternalKey)).Get("/users/search", a.searchUser)
		}

		r.Group(func(r chi.Router) {
			r.Use(a.RequireAuth)
			r.Post("/logout", a.logout)

			r.Route("/users", func(r chi.Router) {
				r.With(a.RequirePermission(auth.PermUserCreate)).Post("/", a.createUser)
				r.With(a.RequirePermission(auth.PermUserList)).Get("/", a.listUsers)
				r.With(a.RequirePermission(auth.PermUserChangePassword)).Put("/change-password/{id}", a.changePassword)
				r.With(a.RequirePermission(auth.PermUserGet)).Get("/{id}", a.getUser)
				r.With(a.RequirePermission(auth.PermUserUpdate)).Put("/{id}", a.updateUser)
				r.With(a.RequirePermission(auth.PermUserDelete)).Delete("/{id}", a.deleteUser)
			})
			r.Route("/roles", func(r chi.Router) {
				r.With(a.RequirePermission(auth.PermRoleCreate)).Post("/", a.createRole)
				r.With(a.RequirePermission(auth.PermRoleList)).Get("/", a.listRoles)
				r.With(a.RequirePermission(auth.PermRoleAddPermissions)).Put("/add-permissions/{id}", a.addRolePermissions)
				r.With(a.RequirePermission(auth.PermRoleRemovePermissions)).Put("/remove-permissions/{id}", a.removeRolePermissions)
				r.With(a.RequirePermission(auth.PermRoleGet)).Get("/{id}", a.getRole)
				r.With(a.RequirePermission(auth.PermRoleUpdate)).Put("/{id}", a.updateRole)
				r.With(a.RequirePermission(auth.PermRoleDelete)).Delete("/{id}", a.deleteRole)
			})
			r.Route("/permissions", func(r chi.Router) {
				r.With(a.RequirePermission(auth.PermPermissionCreate)).Post("/", a.createPermission)
				r.With(a.RequirePermission(auth.PermPermissionList)).Get("/", a.listPermissions)
				r.With(a.RequirePermission(auth.PermPermissionGet)).Get("/{id}", a.getPermission)
				r.With(a.RequirePermission(auth.PermPermissionUpdate)).Put("/{id}", a.updatePermission)
				r.With(a.RequirePermission(auth.PermPermissionDelete)).Delete("/{id}", a.deletePermission)
			})
			r.Route("/cats", func(r chi.Router) {
				r.With(a.RequirePermission(auth.PermCatCreate)).Post("/", a.createCat)
				r.With(a.RequirePermission(auth.PermCatList)).Get("/", a.listCats)
				r.With(a.RequirePermission(auth.PermCatGet)).Get("/{id}", a.getCat)
				r.With(a.RequirePermission(auth.PermCatUpdate)).Put("/{id}", a.updateCat)
				r.With(a.RequirePermission(auth.PermCatDelete)).Delete("/{id}", a.deleteCat)
			})
		})
	})
	return r
}

func (a *API) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": a.opts.Version,
	})
}

func (a *API) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	failed := map[string]string{}
	for name, p := range a.opts.Probes {
		if err := p.Ping(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"errors": failed,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}
