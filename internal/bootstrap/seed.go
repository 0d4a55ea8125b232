// Package bootstrap provides startup-time initialization routines
// such as seeding the operator account.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/sungwon/newsletter/internal/auth"
	"github.com/sungwon/newsletter/internal/storage"
)

// SeedQueries is the storage needed to seed the operator.
type SeedQueries interface {
	GetUserByUsername(ctx context.Context, username string) (storage.User, error)
	CreateUser(ctx context.Context, arg storage.CreateUserParams) (storage.User, error)
	UpdateUserPassword(ctx context.Context, arg storage.UpdateUserPasswordParams) error
}

// SeedOperator ensures an operator account named username exists.
// It is idempotent: an existing account is kept, and its password is
// replaced only when password is non-empty. Without a password and without
// an existing account nothing is created.
func SeedOperator(ctx context.Context, queries SeedQueries, log zerolog.Logger, username, password string) error {
	if username == "" {
		return nil
	}

	user, err := queries.GetUserByUsername(ctx, username)
	switch {
	case err == nil:
		if password == "" {
			log.Info().Str("username", username).Msg("operator already exists, skipping seed")
			return nil
		}
		return updateOperatorPassword(ctx, queries, log, user, password)
	case !errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("look up operator: %w", err)
	}

	if password == "" {
		log.Warn().Str("username", username).Msg("no operator account and no operator password configured, skipping seed")
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	user, err = queries.CreateUser(ctx, storage.CreateUserParams{
		UserID:       uuid.New(),
		Username:     username,
		PasswordHash: hash,
	})
	if err != nil {
		return fmt.Errorf("create operator: %w", err)
	}

	log.Info().
		Str("user_id", user.UserID.String()).
		Str("username", username).
		Msg("operator seeded successfully")
	return nil
}

// updateOperatorPassword hashes and stores a new password for user.
func updateOperatorPassword(ctx context.Context, queries SeedQueries, log zerolog.Logger, user storage.User, password string) error {
	if auth.VerifyPassword(user.PasswordHash, password) {
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if err := queries.UpdateUserPassword(ctx, storage.UpdateUserPasswordParams{
		UserID:       user.UserID,
		PasswordHash: hash,
	}); err != nil {
		return fmt.Errorf("update operator password: %w", err)
	}

	log.Info().Str("username", user.Username).Msg("operator password updated from configuration")
	return nil
}
