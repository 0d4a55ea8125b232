package domain

// MaxIdempotencyKeyLength bounds client-supplied keys.
const MaxIdempotencyKeyLength = 50

// IdempotencyKey scopes one logical publish operation for a caller.
type IdempotencyKey struct {
	key string
}

// ParseIdempotencyKey accepts 1..50 characters from [A-Za-z0-9_-].
func ParseIdempotencyKey(s string) (IdempotencyKey, error) {
	if s == "" {
		return IdempotencyKey{}, invalid("idempotency_key", "empty")
	}
	if len(s) > MaxIdempotencyKeyLength {
		return IdempotencyKey{}, invalid("idempotency_key", "longer than 50 characters")
	}
	for i := 0; i < len(s); i++ {
		if !isKeyChar(s[i]) {
			return IdempotencyKey{}, invalid("idempotency_key", "characters outside [A-Za-z0-9_-]")
		}
	}
	return IdempotencyKey{key: s}, nil
}

func isKeyChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '-' || c == '_':
		return true
	}
	return false
}

func (k IdempotencyKey) String() string { return k.key }
