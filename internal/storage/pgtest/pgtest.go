//go:build integration

// Package pgtest starts a throwaway PostgreSQL container with the schema
// applied, for integration tests outside the storage package.
package pgtest

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sungwon/newsletter/internal/migrations"
	"github.com/sungwon/newsletter/internal/storage"
)

// Start launches postgres:16-alpine, connects a pool and runs every
// migration. The returned cleanup closes the pool and removes the container.
func Start(ctx context.Context) (*storage.DB, func(), error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("start postgres container: %w", err)
	}
	terminate := func() { _ = container.Terminate(context.Background()) }

	host, err := container.Host(ctx)
	if err != nil {
		terminate()
		return nil, nil, fmt.Errorf("container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		terminate()
		return nil, nil, fmt.Errorf("container port: %w", err)
	}

	dsn := fmt.Sprintf("postgres://test:test@%s:%s/test?sslmode=disable", host, port.Port())
	db, err := storage.NewDB(ctx, dsn, 2, 10, 10*time.Second)
	if err != nil {
		terminate()
		return nil, nil, err
	}
	if _, err := migrations.Up(ctx, db.Pool); err != nil {
		db.Close()
		terminate()
		return nil, nil, err
	}

	return db, func() {
		db.Close()
		terminate()
	}, nil
}

// Reset empties every table that tests write to.
func Reset(ctx context.Context, db *storage.DB) error {
	_, err := db.Pool.Exec(ctx, `TRUNCATE issue_delivery_queue, idempotency, newsletter_issues, subscription_tokens, subscriptions, users CASCADE`)
	return err
}
