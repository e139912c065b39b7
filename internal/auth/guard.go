package auth

import (
	"context"
	"fmt"
	"strings"
)

const bearerPrefix = "bearer "

// Guard validates bearer tokens for protected routes. It only answers whether
// an access token is currently valid and not logged out.
type Guard struct {
	tokens    *TokenService
	blacklist Blacklist
}

func NewGuard(tokens *TokenService, blacklist Blacklist) *Guard {
	return &Guard{tokens: tokens, blacklist: blacklist}
}

// Authenticate checks the Authorization header value and returns the identity
// carried by the token.
func (g *Guard) Authenticate(ctx context.Context, header string) (Identity, error) {
	token, ok := BearerToken(header)
	if !ok {
		return Identity{}, Unauthorized(CodeMissingToken)
	}
	revoked, err := g.blacklist.IsRevoked(ctx, token)
	if err != nil {
		return Identity{}, fmt.Errorf("check blacklist: %w", err)
	}
	if revoked {
		return Identity{}, Unauthorized(CodeTokenRevoked)
	}
	claims, err := g.tokens.VerifyKind(token, KindAccess)
	if err != nil {
		return Identity{}, err
	}
	userID := claims.UserRef()
	if userID == "" {
		return Identity{}, Unauthorized(CodeInvalidToken)
	}
	return Identity{UserID: userID, Email: claims.Email, Name: claims.Name, Token: token}, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" value.
func BearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	return token, token != ""
}
