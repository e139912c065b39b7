package auth

import (
	"context"
	"fmt"
)

type RefreshInput struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// Refresh mints a new pair from a valid refresh token. The presented token
// stays usable until it expires or is logged out.
type Refresh struct {
	users     UserFinder
	tokens    *TokenService
	blacklist Blacklist
}

func NewRefresh(users UserFinder, tokens *TokenService, blacklist Blacklist) *Refresh {
	return &Refresh{users: users, tokens: tokens, blacklist: blacklist}
}

func (uc *Refresh) Execute(ctx context.Context, in RefreshInput) (TokenPair, error) {
	if err := Validate(in); err != nil {
		return TokenPair{}, err
	}
	revoked, err := uc.blacklist.IsRevoked(ctx, in.RefreshToken)
	if err != nil {
		return TokenPair{}, fmt.Errorf("check blacklist: %w", err)
	}
	if revoked {
		return TokenPair{}, Unauthorized(CodeTokenRevoked)
	}
	claims, err := uc.tokens.VerifyKind(in.RefreshToken, KindRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	userID := claims.UserRef()
	if userID == "" {
		return TokenPair{}, BadRequest(CodeIncorrectToken)
	}
	user, err := uc.users.FindByID(ctx, userID)
	if err != nil {
		return TokenPair{}, NotFoundAs(err, CodeUserNotFound)
	}
	if len(user.Roles) == 0 {
		return TokenPair{}, NotFound(CodeRoleNotFound)
	}
	return issuePair(uc.tokens, user)
}
