package newsletter

import (
	"errors"
	"fmt"
)

// Kind classifies a publish failure for the HTTP boundary.
type Kind int

const (
	// KindInvalidKey means the idempotency key was malformed. Nothing was
	// read or written.
	KindInvalidKey Kind = iota + 1
	// KindInvalidIssue means the issue content was rejected. Nothing was
	// read or written.
	KindInvalidIssue
	// KindStorage means the database failed. The transaction was rolled
	// back and the request is safe to retry with the same key.
	KindStorage
	// KindInternal means the response could not be produced. The
	// transaction was rolled back.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindInvalidKey:
		return "invalid_key"
	case KindInvalidIssue:
		return "invalid_issue"
	case KindStorage:
		return "storage"
	case KindInternal:
		return "internal"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is returned by Coordinator.Publish.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("publish newsletter: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, or 0 if err did not come from Publish.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
