// Package auth authenticates the operator: password hashing, credential
// checks, Redis-backed sessions and the middleware guarding the admin area.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/sungwon/newsletter/internal/storage"
)

// BcryptCost is the work factor for stored password hashes.
const BcryptCost = 12

const (
	minPasswordLength = 12
	maxPasswordLength = 128
)

// ErrInvalidCredentials is returned for an unknown username or a wrong
// password. The two cases are deliberately indistinguishable.
var ErrInvalidCredentials = errors.New("invalid username or password")

// ErrWeakPassword is returned when a new password is outside the allowed
// length range.
var ErrWeakPassword = fmt.Errorf("password must be between %d and %d characters", minPasswordLength, maxPasswordLength)

// dummyHash is compared against when the username is unknown so a failed
// lookup costs as much as a failed password check.
var dummyHash = sync.OnceValue(func() string {
	return mustHash("gZiV6Fz3wl7Nq0FhH4tLrAqE")
})

// UserQueries is the storage needed for credential checks.
type UserQueries interface {
	GetUserByUsername(ctx context.Context, username string) (storage.User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (storage.User, error)
	UpdateUserPassword(ctx context.Context, arg storage.UpdateUserPasswordParams) error
}

// Credentials is a submitted username and password pair.
type Credentials struct {
	Username string
	Password string
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches hash.
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidateCredentials returns the user ID for valid credentials.
func ValidateCredentials(ctx context.Context, q UserQueries, creds Credentials) (uuid.UUID, error) {
	hash := dummyHash()
	userID := uuid.Nil

	user, err := q.GetUserByUsername(ctx, creds.Username)
	switch {
	case err == nil:
		hash = user.PasswordHash
		userID = user.UserID
	case !errors.Is(err, pgx.ErrNoRows):
		return uuid.Nil, fmt.Errorf("get user: %w", err)
	}

	if !VerifyPassword(hash, creds.Password) || userID == uuid.Nil {
		return uuid.Nil, ErrInvalidCredentials
	}
	return userID, nil
}

// ValidateNewPassword checks the length rules for a new password.
func ValidateNewPassword(password string) error {
	n := len([]rune(password))
	if n < minPasswordLength || n > maxPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

// ChangePassword verifies current for userID and replaces it with next.
func ChangePassword(ctx context.Context, q UserQueries, userID uuid.UUID, current, next string) error {
	user, err := q.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if !VerifyPassword(user.PasswordHash, current) {
		return ErrInvalidCredentials
	}
	if err := ValidateNewPassword(next); err != nil {
		return err
	}

	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	if err := q.UpdateUserPassword(ctx, storage.UpdateUserPasswordParams{UserID: userID, PasswordHash: hash}); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func mustHash(password string) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		panic(err)
	}
	return string(hash)
}
