package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBearerToken(t *testing.T) {
	cases := map[string]struct {
		header string
		token  string
		ok     bool
	}{
		"canonical":    {"Bearer abc", "abc", true},
		"lower case":   {"bearer abc", "abc", true},
		"padded":       {"  Bearer   abc  ", "abc", true},
		"missing":      {"", "", false},
		"scheme only":  {"Bearer", "", false},
		"other scheme": {"Basic abc", "", false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			token, ok := BearerToken(tc.header)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.token, token)
		})
	}
}

func TestGuardAuthenticate(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	clock := func() time.Time { return now }
	tokens := newTestTokens(t, WithClock(clock))
	blacklist := newMemBlacklist()
	guard := NewGuard(tokens, blacklist)

	access, err := tokens.Sign(Claims{ID: "user-1", Email: "a@b.co", Name: "A", Kind: KindAccess})
	require.NoError(t, err)

	id, err := guard.Authenticate(context.Background(), "Bearer "+access)
	require.NoError(t, err)
	require.Equal(t, Identity{UserID: "user-1", Email: "a@b.co", Name: "A", Token: access}, id)

	_, err = guard.Authenticate(context.Background(), "")
	require.Equal(t, CodeMissingToken, CodeOf(err))

	_, err = guard.Authenticate(context.Background(), "Bearer not-a-jwt")
	require.ErrorIs(t, err, ErrUnauthorized)
	require.Equal(t, CodeInvalidToken, CodeOf(err))

	other := newTestTokens(t)
	other.secret = []byte("another-secret")
	forged, err := other.Sign(Claims{ID: "user-1", Kind: KindAccess})
	require.NoError(t, err)
	_, err = guard.Authenticate(context.Background(), "Bearer "+forged)
	require.Equal(t, CodeInvalidToken, CodeOf(err))

	now = now.Add(tokens.TokenTTL() + time.Minute)
	_, err = guard.Authenticate(context.Background(), "Bearer "+access)
	require.Equal(t, CodeInvalidToken, CodeOf(err))
}

func TestGuardBlacklistFailure(t *testing.T) {
	tokens := newTestTokens(t)
	blacklist := newMemBlacklist()
	blacklist.err = errors.New("redis down")

	token, err := tokens.Sign(Claims{ID: "user-1", Kind: KindAccess})
	require.NoError(t, err)
	_, err = NewGuard(tokens, blacklist).Authenticate(context.Background(), "Bearer "+token)
	require.ErrorContains(t, err, "redis down")
	require.Empty(t, CodeOf(err))
}

func TestGuardAcceptsOnlyAccessTokens(t *testing.T) {
	tokens := newTestTokens(t)
	guard := NewGuard(tokens, newMemBlacklist())

	refresh, err := tokens.Sign(Claims{UserID: "user-1", Kind: KindRefresh}, WithTTL(time.Hour))
	require.NoError(t, err)
	reset, err := tokens.Sign(Claims{ID: "user-1", Kind: KindReset})
	require.NoError(t, err)
	untyped, err := tokens.Sign(Claims{ID: "user-1"})
	require.NoError(t, err)

	for name, token := range map[string]string{"refresh": refresh, "reset": reset, "untyped": untyped} {
		t.Run(name, func(t *testing.T) {
			_, err := guard.Authenticate(context.Background(), "Bearer "+token)
			require.ErrorIs(t, err, ErrUnauthorized)
			require.Equal(t, CodeInvalidToken, CodeOf(err))
		})
	}
}

func TestGuardRejectsLoggedOutTokenUntilExpiry(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	clock := func() time.Time { return now }
	tokens := newTestTokens(t, WithClock(clock))
	blacklist := newMemBlacklist()
	guard := NewGuard(tokens, blacklist)

	access, err := tokens.Sign(Claims{ID: "user-1", Kind: KindAccess})
	require.NoError(t, err)
	require.NoError(t, NewLogout(blacklist, tokens).Execute(context.Background(), LogoutInput{Token: access}))

	// The blacklist entry must outlive every moment the token still verifies.
	ttl := blacklist.entries[access]
	require.Equal(t, tokens.TokenTTL()+clockSkew, ttl)

	now = now.Add(ttl - time.Second)
	_, err = guard.Authenticate(context.Background(), "Bearer "+access)
	require.Equal(t, CodeTokenRevoked, CodeOf(err))
}
