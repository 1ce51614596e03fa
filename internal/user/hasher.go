package user

import (
	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-portfolio-go/internal/apperr"
)

// DefaultCost is the bcrypt work factor for new hashes.
const DefaultCost = 10

// maxPasswordBytes is the longest input bcrypt accepts.
const maxPasswordBytes = 72

// PasswordHasher defines minimal hashing interface.
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(hash, pw string) bool
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) Hash(pw string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", oops.Code(apperr.CodeInternal).With("operation", "hash password").Wrap(err)
	}
	return string(h), nil
}

// Verify compares in constant time. A corrupt hash is a mismatch, not an error.
func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}
