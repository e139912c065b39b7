package auth

import (
	"context"
	"testing"
	"time"
)

func TestPrincipalFlattensRoles(t *testing.T) {
	gone := time.Now()
	user := &User{
		ID: "user-1",
		Roles: []Role{
			{Name: RoleUser, Permissions: []Permission{{Name: PermCatCreate}, {Name: PermCatDelete, DeletedAt: &gone}}},
			{Name: RoleAdmin, DeletedAt: &gone, Permissions: []Permission{{Name: PermUserDelete}}},
		},
	}
	p := NewPrincipal(user)
	if !p.HasRole(RoleUser) || p.HasRole(RoleAdmin) {
		t.Fatalf("unexpected roles: %v", p.Roles)
	}
	if !p.HasPermission(PermCatCreate) {
		t.Fatal("expected cat:create")
	}
	if p.HasPermission(PermCatDelete) || p.HasPermission(PermUserDelete) {
		t.Fatalf("deleted grants leaked: %v", p.Permissions)
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	if _, ok := IdentityFromContext(ctx); ok {
		t.Fatal("unexpected identity in empty context")
	}
	ctx = ContextWithIdentity(ctx, Identity{UserID: "user-7", Email: "x@y.z"})
	id, ok := UserIDFromContext(ctx)
	if !ok || id != "user-7" {
		t.Fatalf("unexpected user id: %s, ok=%v", id, ok)
	}
	ctx = ContextWithPrincipal(ctx, NewPrincipal(&User{ID: "user-7", Roles: []Role{{Name: RoleAdmin}}}))
	p, ok := PrincipalFromContext(ctx)
	if !ok || !p.HasRole(RoleAdmin) {
		t.Fatalf("principal not restored: %+v", p)
	}
}
