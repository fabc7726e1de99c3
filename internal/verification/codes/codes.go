// Package codes generates one-time verification codes and stores them only as
// bcrypt hashes.
package codes

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"

	dErrors "alumnireg/pkg/domain-errors"
)

const (
	MinLength = 4
	MaxLength = 10
)

// ErrMismatch is returned by Verify when the code does not match the hash.
var ErrMismatch = errors.New("code mismatch")

// Generate returns a random decimal code of the given length. Leading zeros are
// kept, so every code has exactly length digits.
func Generate(length int) (string, error) {
	if length < MinLength || length > MaxLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("code length must be between %d and %d", MinLength, MaxLength))
	}
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("could not generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", length, n), nil
}

// Hash creates a bcrypt hash of code.
func Hash(code string) (string, error) {
	return hashWithCost(code, bcrypt.DefaultCost)
}

func hashWithCost(code string, cost int) (string, error) {
	if code == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "code cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(code), cost)
	if err != nil {
		return "", fmt.Errorf("could not hash code: %w", err)
	}
	return string(hashed), nil
}

// Verify checks code against hash. A mismatch returns ErrMismatch; any other
// error means the hash itself is unusable.
func Verify(code, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatch
		}
		return fmt.Errorf("could not verify code: %w", err)
	}
	return nil
}
