package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mikemajesty/monorepo/internal/ids"
)

const (
	defaultTokenTTL   = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
	clockSkew         = 5 * time.Second
)

// TokenKind tells apart the tokens the service signs. Each consumer accepts
// exactly one kind.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
	KindReset   TokenKind = "reset"
)

// Claims is the payload of access, refresh and reset tokens. Access tokens
// carry id/email/name, refresh tokens carry userId only.
type Claims struct {
	ID     string    `json:"id,omitempty"`
	UserID string    `json:"userId,omitempty"`
	Email  string    `json:"email,omitempty"`
	Name   string    `json:"name,omitempty"`
	Kind   TokenKind `json:"kind,omitempty"`
	jwt.RegisteredClaims
}

// UserRef returns the user the token was issued for.
func (c *Claims) UserRef() string {
	switch {
	case strings.TrimSpace(c.UserID) != "":
		return c.UserID
	case strings.TrimSpace(c.ID) != "":
		return c.ID
	default:
		return strings.TrimSpace(c.Subject)
	}
}

// TokenService signs and verifies HS256 bearer tokens.
type TokenService struct {
	secret     []byte
	issuer     string
	tokenTTL   time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// TokenOption configures TokenService.
type TokenOption func(*TokenService) error

// WithTokenTTL sets the default lifetime used by Sign.
func WithTokenTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) error {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
		return nil
	}
}

// WithRefreshTTL sets the lifetime of refresh tokens.
func WithRefreshTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) error {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
		return nil
	}
}

// WithIssuer sets the iss claim and requires it on verification.
func WithIssuer(issuer string) TokenOption {
	return func(s *TokenService) error {
		s.issuer = strings.TrimSpace(issuer)
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) TokenOption {
	return func(s *TokenService) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

func NewTokenService(secret string, opts ...TokenOption) (*TokenService, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("auth: token secret is required")
	}
	s := &TokenService{
		secret:     []byte(secret),
		tokenTTL:   defaultTokenTTL,
		refreshTTL: defaultRefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *TokenService) TokenTTL() time.Duration   { return s.tokenTTL }
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }

type signOptions struct {
	ttl time.Duration
}

// SignOption overrides defaults for a single Sign call.
type SignOption func(*signOptions)

// WithTTL overrides the token lifetime.
func WithTTL(ttl time.Duration) SignOption {
	return func(o *signOptions) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// Sign encodes claims with iat/exp/jti and signs them with the server secret.
func (s *TokenService) Sign(claims Claims, opts ...SignOption) (string, error) {
	o := signOptions{ttl: s.tokenTTL}
	for _, opt := range opts {
		opt(&o)
	}
	now := s.now().UTC()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(o.ttl))
	claims.RegisteredClaims.ID = ids.New()
	if claims.Subject == "" {
		claims.Subject = claims.UserRef()
	}
	if s.issuer != "" {
		claims.Issuer = s.issuer
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Verify checks signature, expiry and issuer. Every failure is Unauthorized.
func (s *TokenService) Verify(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, Unauthorized(CodeInvalidToken)
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithLeeway(clockSkew),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, s.key, opts...)
	if err != nil {
		return nil, &Error{Kind: ErrUnauthorized, Code: CodeInvalidToken, Message: CodeInvalidToken + ": " + err.Error()}
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, Unauthorized(CodeInvalidToken)
	}
	return claims, nil
}

// VerifyKind is Verify restricted to one token kind.
func (s *TokenService) VerifyKind(token string, kind TokenKind) (*Claims, error) {
	claims, err := s.Verify(token)
	if err != nil {
		return nil, err
	}
	if claims.Kind != kind {
		return nil, &Error{Kind: ErrUnauthorized, Code: CodeInvalidToken, Message: CodeInvalidToken + ": not a " + string(kind) + " token"}
	}
	return claims, nil
}

// Remaining reports how long a token signed by this service would still be
// accepted, leeway included. ok is false for tokens the service cannot read.
func (s *TokenService) Remaining(token string) (left time.Duration, ok bool) {
	parsed, err := jwt.ParseWithClaims(strings.TrimSpace(token), &Claims{}, s.key,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return 0, false
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.ExpiresAt == nil {
		return 0, false
	}
	left = claims.ExpiresAt.Sub(s.now()) + clockSkew
	if left < 0 {
		left = 0
	}
	return left, true
}

func (s *TokenService) key(*jwt.Token) (any, error) {
	return s.secret, nil
}
