// Package cryptox hashes and verifies secrets (passwords, refresh tokens)
// with bcrypt.
package cryptox

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used when none is configured.
const DefaultCost = 10

// ErrInvalidHash is returned by Verify when the stored value is not a bcrypt hash.
var ErrInvalidHash = errors.New("invalid hash")

// Hasher produces salted one-way hashes and checks candidates against them.
type Hasher interface {
	Hash(secret string) (string, error)
	Verify(secret, hashed string) (bool, error)
}

// BcryptHasher implements Hasher with golang.org/x/crypto/bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher validates cost against bcrypt's bounds.
func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &BcryptHasher{cost: cost}, nil
}

// Hash returns a bcrypt hash of secret. Every call uses a fresh salt.
func (h *BcryptHasher) Hash(secret string) (string, error) {
	b, err := bcrypt.GenerateFromPassword(prepare(secret), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether secret matches hashed. A mismatch is not an error.
func (h *BcryptHasher) Verify(secret, hashed string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), prepare(secret))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	case errors.Is(err, bcrypt.ErrHashTooShort):
		return false, ErrInvalidHash
	default:
		var ver bcrypt.HashVersionTooNewError
		var pfx bcrypt.InvalidHashPrefixError
		if errors.As(err, &ver) || errors.As(err, &pfx) {
			return false, ErrInvalidHash
		}
		return false, err
	}
}

// prepare feeds bcrypt the base64 SHA-256 digest of secret rather than the
// secret itself. Every secret gets the same treatment, so all of a long token
// counts and no raw input can stand in for another one's digest.
func prepare(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}
