package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mikemajesty/monorepo/internal/ids"
)

const (
	resetEmailSubject  = "Reset password"
	resetEmailTemplate = "reque-reset-password"

	passwordChangedSubject  = "Password has been changed successfully"
	passwordChangedTemplate = "reset-password"
)

type SendResetEmailInput struct {
	Email string `json:"email" validate:"required,email"`
}

// SendResetEmail emails a reset link, reusing the outstanding ticket if the
// user already has one.
type SendResetEmail struct {
	users   UserFinder
	tickets ResetTicketRepository
	tokens  *TokenService
	events  EventPublisher
	baseURL string
	now     func() time.Time
}

func NewSendResetEmail(users UserFinder, tickets ResetTicketRepository, tokens *TokenService, events EventPublisher, baseURL string) *SendResetEmail {
	return &SendResetEmail{
		users:   users,
		tickets: tickets,
		tokens:  tokens,
		events:  events,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

func (uc *SendResetEmail) Execute(ctx context.Context, in SendResetEmailInput) error {
	in.Email = NormalizeEmail(in.Email)
	if err := Validate(in); err != nil {
		return err
	}
	user, err := uc.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return NotFoundAs(err, CodeUserNotFound)
	}

	var token string
	ticket, err := uc.tickets.FindByUserID(ctx, user.ID)
	switch {
	case err == nil:
		token = ticket.Token
	case errors.Is(err, ErrNotFound):
		token, err = uc.tokens.Sign(Claims{ID: user.ID, Kind: KindReset})
		if err != nil {
			return fmt.Errorf("sign reset token: %w", err)
		}
		ticket = &ResetPasswordTicket{
			ID:        ids.NewUUID(),
			Token:     token,
			UserID:    user.ID,
			CreatedAt: uc.now().UTC(),
		}
		if err := uc.tickets.Create(ctx, ticket); err != nil {
			return fmt.Errorf("create reset ticket: %w", err)
		}
	default:
		return fmt.Errorf("find reset ticket: %w", err)
	}

	return uc.events.Emit(ctx, EventSendEmail, Email{
		Email:    user.Email,
		Subject:  resetEmailSubject,
		Template: resetEmailTemplate,
		Payload: map[string]any{
			"name": user.Name,
			"link": uc.baseURL + "/api/v1/reset-password/" + token,
		},
	})
}

type ConfirmResetPasswordInput struct {
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required,min=5,max=200"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,min=5,max=200"`
}

// ConfirmResetPassword replaces the password of the ticket's user and consumes
// the ticket. The ticket is removed last so an interrupted confirm can be retried.
type ConfirmResetPassword struct {
	users     UserFinder
	passwords PasswordWriter
	tickets   ResetTicketRepository
	tokens    *TokenService
	hasher    Hasher
	events    EventPublisher
}

func NewConfirmResetPassword(users UserFinder, passwords PasswordWriter, tickets ResetTicketRepository, tokens *TokenService, hasher Hasher, events EventPublisher) *ConfirmResetPassword {
	return &ConfirmResetPassword{
		users:     users,
		passwords: passwords,
		tickets:   tickets,
		tokens:    tokens,
		hasher:    hasher,
		events:    events,
	}
}

func (uc *ConfirmResetPassword) Execute(ctx context.Context, in ConfirmResetPasswordInput) error {
	if err := Validate(in); err != nil {
		return err
	}
	if in.Password != in.ConfirmPassword {
		return BadRequest(CodePasswordsAreDifferent)
	}
	claims, err := uc.tokens.VerifyKind(in.Token, KindReset)
	if err != nil {
		return err
	}
	userID := claims.UserRef()
	if userID == "" {
		return BadRequest(CodeIncorrectToken)
	}
	user, err := uc.users.FindByID(ctx, userID)
	if err != nil {
		return NotFoundAs(err, CodeUserNotFound)
	}
	if _, err := uc.tickets.FindByUserID(ctx, user.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Unauthorized(CodeTokenWasExpired)
		}
		return fmt.Errorf("find reset ticket: %w", err)
	}

	digest, err := uc.hasher.Hash(in.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := uc.passwords.UpdatePassword(ctx, user.ID, digest); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if err := uc.events.Emit(ctx, EventSendEmail, Email{
		Email:    user.Email,
		Subject:  passwordChangedSubject,
		Template: passwordChangedTemplate,
		Payload:  map[string]any{"name": user.Name},
	}); err != nil {
		return err
	}
	if err := uc.tickets.DeleteByUserID(ctx, user.ID); err != nil {
		return fmt.Errorf("delete reset ticket: %w", err)
	}
	return nil
}
