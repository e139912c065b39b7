package auth

import (
	"context"
	"fmt"
	"strings"
)

type LogoutInput struct {
	Token string `json:"token" validate:"required,min=10"`
}

// Logout blacklists a token until it would have expired on its own. Tokens
// the service cannot read are kept for the access token lifetime.
type Logout struct {
	blacklist Blacklist
	tokens    *TokenService
}

func NewLogout(blacklist Blacklist, tokens *TokenService) *Logout {
	return &Logout{blacklist: blacklist, tokens: tokens}
}

func (uc *Logout) Execute(ctx context.Context, in LogoutInput) error {
	in.Token = strings.TrimSpace(in.Token)
	if err := Validate(in); err != nil {
		return err
	}
	ttl, ok := uc.tokens.Remaining(in.Token)
	switch {
	case !ok:
		ttl = uc.tokens.TokenTTL()
	case ttl == 0:
		return nil
	}
	if err := uc.blacklist.Revoke(ctx, in.Token, ttl); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}
