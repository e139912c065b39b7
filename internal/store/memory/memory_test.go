package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mikemajesty/monorepo/internal/auth"
	"github.com/mikemajesty/monorepo/internal/cat"
	"github.com/mikemajesty/monorepo/internal/paginate"
)

func TestSeedRBACGrantsAdminEveryPermission(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.SeedRBAC(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := s.SeedRBAC(ctx); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	admin, err := s.Roles().FindByName(ctx, auth.RoleAdmin)
	if err != nil {
		t.Fatalf("find admin: %v", err)
	}
	if len(admin.Permissions) != len(auth.BuiltinPermissions) {
		t.Fatalf("admin permissions = %d, want %d", len(admin.Permissions), len(auth.BuiltinPermissions))
	}
	user, err := s.Roles().FindByName(ctx, auth.RoleUser)
	if err != nil {
		t.Fatalf("find user role: %v", err)
	}
	if len(user.Permissions) != 0 {
		t.Fatalf("USER role should start empty, got %v", user.PermissionNames())
	}

	perm, err := s.Permissions().FindIn(ctx, []string{auth.PermCatCreate})
	if err != nil || len(perm) != 1 {
		t.Fatalf("find cat:create: %v %v", perm, err)
	}
	loaded, err := s.Permissions().FindByID(ctx, perm[0].ID)
	if err != nil {
		t.Fatalf("permission by id: %v", err)
	}
	if got := loaded.RoleNames(); len(got) != 1 || got[0] != string(auth.RoleAdmin) {
		t.Fatalf("roles of cat:create = %v", got)
	}
}

func TestUsersLoadRolesAndPassword(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.SeedRBAC(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}
	id, err := s.SeedUser(ctx, " Admin@Admin.com ", "admin", "digest", auth.RoleAdmin)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}

	u, err := s.Users().FindByEmail(ctx, "admin@admin.com")
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if u.ID != id || u.PasswordDigest() != "digest" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if !auth.NewPrincipal(u).HasPermission(auth.PermUserCreate) {
		t.Fatal("admin should hold user:create")
	}

	if err := s.Users().UpdatePassword(ctx, id, "rotated"); err != nil {
		t.Fatalf("update password: %v", err)
	}
	u, _ = s.Users().FindByID(ctx, id)
	if u.PasswordDigest() != "rotated" {
		t.Fatalf("digest = %q", u.PasswordDigest())
	}

	if _, err := s.SeedUser(ctx, "admin@admin.com", "dup", "x", auth.RoleUser); !errors.Is(err, auth.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	page, err := s.Users().List(ctx, paginate.Input{Search: "ADMIN"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 1 || page.Docs[0].Password != nil {
		t.Fatalf("list should return one user without password: %+v", page)
	}

	if err := s.Users().SoftDelete(ctx, id, time.Now()); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if _, err := s.Users().FindByID(ctx, id); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("deleted user should be hidden, got %v", err)
	}
	if ok, _ := s.Users().ExistsByEmail(ctx, "admin@admin.com"); ok {
		t.Fatal("deleted user should not reserve its email")
	}
}

func TestBlacklistExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New()
	s.SetClock(func() time.Time { return now })
	bl := s.Blacklist()

	if err := bl.Revoke(ctx, "token", time.Minute); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if ok, _ := bl.IsRevoked(ctx, "token"); !ok {
		t.Fatal("token should be revoked")
	}
	now = now.Add(time.Minute)
	if ok, _ := bl.IsRevoked(ctx, "token"); ok {
		t.Fatal("entry should expire with its ttl")
	}
	if err := bl.Revoke(ctx, "", time.Minute); err == nil {
		t.Fatal("empty token must be rejected")
	}
	if err := bl.Revoke(ctx, "token", 0); err == nil {
		t.Fatal("zero ttl must be rejected")
	}
}

func TestTicketsReturnNewest(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.SeedRBAC(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}
	uid, err := s.SeedUser(ctx, "a@b.com", "a", "d", auth.RoleUser)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	tickets := s.Tickets()
	if _, err := tickets.FindByUserID(ctx, uid); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	_ = tickets.Create(ctx, &auth.ResetPasswordTicket{ID: "1", Token: "old", UserID: uid})
	_ = tickets.Create(ctx, &auth.ResetPasswordTicket{ID: "2", Token: "new", UserID: uid})
	got, err := tickets.FindByUserID(ctx, uid)
	if err != nil || got.Token != "new" {
		t.Fatalf("newest ticket = %+v, %v", got, err)
	}
	if err := tickets.Create(ctx, &auth.ResetPasswordTicket{ID: "3", UserID: "missing"}); !errors.Is(err, auth.ErrConflict) {
		t.Fatalf("ticket for unknown user should conflict, got %v", err)
	}
	_ = tickets.DeleteByUserID(ctx, uid)
	if _, err := tickets.FindByUserID(ctx, uid); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestCatsPaging(t *testing.T) {
	ctx := context.Background()
	s := New()
	cats := s.Cats()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"Tom", "Felix", "Garfield"} {
		c := &cat.Cat{ID: name, Name: name, Breed: "tabby", CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := cats.Create(ctx, c); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	page, err := cats.List(ctx, paginate.Input{Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 3 || len(page.Docs) != 1 || page.Docs[0].Name != "Tom" {
		t.Fatalf("unexpected page: %+v", page)
	}
	page, _ = cats.List(ctx, paginate.Input{Page: 5, Limit: 2})
	if len(page.Docs) != 0 || page.Docs == nil {
		t.Fatalf("out of range page should be empty, got %+v", page)
	}
}
