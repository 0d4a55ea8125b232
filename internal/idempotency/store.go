// Package idempotency persists the first successful response to a request
// per (caller, idempotency key) so retries replay it instead of repeating
// the side effects.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sungwon/newsletter/internal/domain"
	"github.com/sungwon/newsletter/internal/storage"
)

// ErrConflict is returned by Save when a response is already stored for
// the (caller, key) pair. Callers resolve it by replaying Lookup.
var ErrConflict = errors.New("idempotency: response already saved for key")

// Queries is the slice of storage the store needs. Both the pool-bound
// and the transaction-bound *storage.Queries satisfy it.
type Queries interface {
	GetSavedResponse(ctx context.Context, arg storage.GetSavedResponseParams) (storage.GetSavedResponseRow, error)
	SaveResponse(ctx context.Context, arg storage.SaveResponseParams) (int64, error)
}

// Store reads and writes cached responses through q.
type Store struct {
	q Queries
}

// NewStore returns a Store over q. Bind q to a transaction to make Save
// part of that transaction.
func NewStore(q Queries) *Store {
	return &Store{q: q}
}

// Lookup returns the cached response for (caller, key), or nil when none
// has been saved. It never writes.
func (s *Store) Lookup(ctx context.Context, caller uuid.UUID, key domain.IdempotencyKey) (*Response, error) {
	row, err := s.q.GetSavedResponse(ctx, storage.GetSavedResponseParams{
		UserID:         caller,
		IdempotencyKey: key.String(),
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup saved response: %w", err)
	}

	var header map[string][]string
	if len(row.ResponseHeaders) > 0 {
		if err := json.Unmarshal(row.ResponseHeaders, &header); err != nil {
			return nil, fmt.Errorf("decode saved headers: %w", err)
		}
	}

	return &Response{
		StatusCode: int(row.ResponseStatusCode),
		Header:     header,
		Body:       row.ResponseBody,
	}, nil
}

// Save stores resp under (caller, key). It returns ErrConflict when a
// record for the pair already exists, including one committed by a
// concurrent transaction while this one was waiting on the row lock.
func (s *Store) Save(ctx context.Context, caller uuid.UUID, key domain.IdempotencyKey, resp *Response) error {
	if resp.StatusCode < 100 || resp.StatusCode > math.MaxInt16 {
		return fmt.Errorf("save response: invalid status code %d", resp.StatusCode)
	}

	header := resp.Header
	if header == nil {
		header = map[string][]string{}
	}
	encoded, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("encode headers: %w", err)
	}
	body := resp.Body
	if body == nil {
		body = []byte{}
	}

	n, err := s.q.SaveResponse(ctx, storage.SaveResponseParams{
		UserID:             caller,
		IdempotencyKey:     key.String(),
		ResponseStatusCode: int16(resp.StatusCode),
		ResponseHeaders:    encoded,
		ResponseBody:       body,
	})
	if err != nil {
		return fmt.Errorf("save response: %w", err)
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}
