package httpapi

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"

	"github.com/mikemajesty/monorepo/internal/auth"
)

const (
	authHeader        = "Authorization"
	internalKeyHeader = "X-Internal-Key"
)

// RequireAuth rejects requests without a valid, non-revoked bearer token and
// stores the token identity in the request context.
func (a *API) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := a.svc.Guard.Authenticate(r.Context(), r.Header.Get(authHeader))
		if err != nil {
			writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.ContextWithIdentity(r.Context(), id)))
	})
}

// RequirePermission lets the request through only if the caller's roles grant
// the named permission.
func (a *API) RequirePermission(name string) func(http.Handler) http.Handler {
	return a.require(func(p auth.Principal) bool { return p.HasPermission(name) })
}

// RequireRole lets the request through only if the caller holds role.
func (a *API) RequireRole(role auth.RoleName) func(http.Handler) http.Handler {
	return a.require(func(p auth.Principal) bool { return p.HasRole(role) })
}

func (a *API) require(allowed func(auth.Principal) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := a.principal(r)
			if err != nil {
				writeError(w, r, err)
				return
			}
			if !allowed(principal) {
				w.Header().Set("WWW-Authenticate", `Bearer error="insufficient_scope"`)
				writeError(w, r, auth.Forbidden(auth.CodeForbidden))
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireInternalKey admits only peer services presenting the shared key.
func RequireInternalKey(key string) func(http.Handler) http.Handler {
	want := []byte(key)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get(internalKeyHeader))
			if len(want) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
				writeStatus(w, r, http.StatusUnauthorized, codeUnauthorized, "internal credential required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// principal loads the caller's roles once per request.
func (a *API) principal(r *http.Request) (auth.Principal, error) {
	ctx := r.Context()
	if p, ok := auth.PrincipalFromContext(ctx); ok {
		return p, nil
	}
	id, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return auth.Principal{}, auth.Unauthorized(auth.CodeMissingToken)
	}
	user, err := a.svc.Principals.FindByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return auth.Principal{}, auth.Unauthorized(auth.CodeInvalidToken)
		}
		return auth.Principal{}, fmt.Errorf("load principal: %w", err)
	}
	return auth.NewPrincipal(user), nil
}
