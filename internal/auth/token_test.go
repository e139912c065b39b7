package auth

import (
	"errors"
	"testing"
	"time"
)

func newTestTokens(t *testing.T, opts ...TokenOption) *TokenService {
	t.Helper()
	svc, err := NewTokenService("test-secret", opts...)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return svc
}

func TestSignAndVerify(t *testing.T) {
	svc := newTestTokens(t, WithIssuer("monorepo"))

	token, err := svc.Sign(Claims{ID: "user-1", Email: "a@b.co", Name: "Ada"})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserRef() != "user-1" || claims.Subject != "user-1" {
		t.Fatalf("unexpected subject: %+v", claims)
	}
	if claims.Email != "a@b.co" || claims.Name != "Ada" {
		t.Fatalf("payload lost: %+v", claims)
	}
	if claims.RegisteredClaims.ID == "" {
		t.Fatal("expected jti")
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != defaultTokenTTL {
		t.Fatalf("unexpected ttl: %v", got)
	}
}

func TestSignWithTTLOverride(t *testing.T) {
	svc := newTestTokens(t, WithRefreshTTL(48*time.Hour))
	token, err := svc.Sign(Claims{UserID: "user-2"}, WithTTL(svc.RefreshTTL()))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserRef() != "user-2" {
		t.Fatalf("unexpected user: %s", claims.UserRef())
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != 48*time.Hour {
		t.Fatalf("unexpected ttl: %v", got)
	}
}

func TestVerifyRejects(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	svc := newTestTokens(t, WithClock(clock), WithTokenTTL(time.Minute))

	expired, err := svc.Sign(Claims{ID: "user-1"})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	later := newTestTokens(t, WithClock(func() time.Time { return now.Add(time.Hour) }))

	other, err := NewTokenService("other-secret", WithClock(clock))
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	foreign, err := other.Sign(Claims{ID: "user-1"})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	issued := newTestTokens(t, WithIssuer("a"), WithClock(clock))
	wrongIssuer, err := issued.Sign(Claims{ID: "user-1"})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	strict := newTestTokens(t, WithIssuer("b"), WithClock(clock))

	cases := []struct {
		name  string
		svc   *TokenService
		token string
	}{
		{"expired", later, expired},
		{"bad signature", svc, foreign},
		{"malformed", svc, "not.a.jwt"},
		{"empty", svc, "  "},
		{"wrong issuer", strict, wrongIssuer},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.svc.Verify(tc.token)
			if !errors.Is(err, ErrUnauthorized) {
				t.Fatalf("expected unauthorized, got %v", err)
			}
			if CodeOf(err) != CodeInvalidToken {
				t.Fatalf("unexpected code: %s", CodeOf(err))
			}
		})
	}
}

func TestNewTokenServiceRequiresSecret(t *testing.T) {
	if _, err := NewTokenService(" "); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestVerifyKind(t *testing.T) {
	svc := newTestTokens(t)
	token, err := svc.Sign(Claims{UserID: "user-1", Kind: KindRefresh})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := svc.VerifyKind(token, KindRefresh); err != nil {
		t.Fatalf("VerifyKind(refresh): %v", err)
	}
	for _, kind := range []TokenKind{KindAccess, KindReset} {
		_, err := svc.VerifyKind(token, kind)
		if !errors.Is(err, ErrUnauthorized) || CodeOf(err) != CodeInvalidToken {
			t.Fatalf("VerifyKind(%s): expected invalid token, got %v", kind, err)
		}
	}
}

func TestRemaining(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestTokens(t, WithClock(func() time.Time { return now }), WithTokenTTL(time.Minute))
	token, err := svc.Sign(Claims{ID: "user-1", Kind: KindAccess})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	now = now.Add(20 * time.Second)
	if left, ok := svc.Remaining(token); !ok || left != 40*time.Second+clockSkew {
		t.Fatalf("Remaining = %v, %v", left, ok)
	}
	now = now.Add(time.Hour)
	if left, ok := svc.Remaining(token); !ok || left != 0 {
		t.Fatalf("Remaining after expiry = %v, %v", left, ok)
	}
	if _, ok := svc.Remaining("not.a.jwt"); ok {
		t.Fatal("expected unreadable token")
	}
	other, err := NewTokenService("other-secret")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	if _, ok := other.Remaining(token); ok {
		t.Fatal("expected foreign token to be unreadable")
	}
}
