package auth

import (
	"context"
	"fmt"
)

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenPair is returned by Login and Refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Login exchanges credentials for a token pair.
type Login struct {
	users  UserFinder
	hasher Hasher
	tokens *TokenService
}

func NewLogin(users UserFinder, hasher Hasher, tokens *TokenService) *Login {
	return &Login{users: users, hasher: hasher, tokens: tokens}
}

func (uc *Login) Execute(ctx context.Context, in LoginInput) (TokenPair, error) {
	in.Email = NormalizeEmail(in.Email)
	if err := Validate(in); err != nil {
		return TokenPair{}, err
	}
	user, err := uc.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return TokenPair{}, NotFoundAs(err, CodeUserNotFound)
	}
	if len(user.Roles) == 0 {
		return TokenPair{}, NotFound(CodeRoleNotFound)
	}
	if !uc.hasher.Verify(in.Password, user.PasswordDigest()) {
		return TokenPair{}, BadRequest(CodePasswordIsIncorrect)
	}
	return issuePair(uc.tokens, user)
}

func issuePair(tokens *TokenService, user *User) (TokenPair, error) {
	access, err := tokens.Sign(Claims{ID: user.ID, Email: user.Email, Name: user.Name, Kind: KindAccess})
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := tokens.Sign(Claims{UserID: user.ID, Kind: KindRefresh}, WithTTL(tokens.RefreshTTL()))
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
