package newsletter

import (
	"context"

	"github.com/sungwon/newsletter/internal/storage"
)

// PostgresStore runs the publish transaction against PostgreSQL.
type PostgresStore struct {
	db *storage.DB
}

// NewPostgresStore returns a Store backed by db.
func NewPostgresStore(db *storage.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetSavedResponse(ctx context.Context, arg storage.GetSavedResponseParams) (storage.GetSavedResponseRow, error) {
	return s.db.Queries().GetSavedResponse(ctx, arg)
}

func (s *PostgresStore) SaveResponse(ctx context.Context, arg storage.SaveResponseParams) (int64, error) {
	return s.db.Queries().SaveResponse(ctx, arg)
}

// InTx runs fn in a read-committed transaction. A concurrent SaveResponse
// for the same key blocks on the other transaction's row lock and reports
// zero rows once that transaction commits.
func (s *PostgresStore) InTx(ctx context.Context, fn func(Tx) error) error {
	return s.db.ExecTx(ctx, func(q *storage.Queries) error {
		return fn(q)
	})
}
