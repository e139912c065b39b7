package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

var errEmptyPassword = errors.New("password is empty")

// Hasher produces and checks salted password digests.
type Hasher interface {
	Hash(raw string) (string, error)
	// Verify reports whether raw matches digest. Malformed digests never match.
	Verify(raw, digest string) bool
}

// NewHasher returns the hasher registered under name ("argon2id" or "bcrypt").
func NewHasher(name string) (Hasher, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "argon2id":
		return NewArgon2idHasher(nil), nil
	case "bcrypt":
		return NewBcryptHasher(bcrypt.DefaultCost), nil
	default:
		return nil, fmt.Errorf("unknown password hasher %q", name)
	}
}

// Argon2idHasher stores PHC encoded argon2id digests.
type Argon2idHasher struct {
	params *argon2id.Params
}

func NewArgon2idHasher(params *argon2id.Params) *Argon2idHasher {
	if params == nil {
		params = argon2id.DefaultParams
	}
	return &Argon2idHasher{params: params}
}

func (h *Argon2idHasher) Hash(raw string) (string, error) {
	if raw == "" {
		return "", errEmptyPassword
	}
	return argon2id.CreateHash(raw, h.params)
}

func (h *Argon2idHasher) Verify(raw, digest string) bool {
	if digest == "" {
		return false
	}
	ok, err := argon2id.ComparePasswordAndHash(raw, digest)
	return err == nil && ok
}

// BcryptHasher stores bcrypt digests.
type BcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(raw string) (string, error) {
	if raw == "" {
		return "", errEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (h *BcryptHasher) Verify(raw, digest string) bool {
	if digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(raw)) == nil
}
