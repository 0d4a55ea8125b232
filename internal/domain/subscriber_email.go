package domain

import (
	"net/mail"
	"strings"
)

const maxEmailLength = 254

// SubscriberEmail is a syntactically valid bare email address.
type SubscriberEmail struct {
	addr string
}

// ParseSubscriberEmail validates s as a bare address (no display name,
// no surrounding whitespace) with a non-empty local part and domain.
func ParseSubscriberEmail(s string) (SubscriberEmail, error) {
	if s == "" {
		return SubscriberEmail{}, invalid("email", "empty")
	}
	if len(s) > maxEmailLength {
		return SubscriberEmail{}, invalid("email", "too long")
	}
	if strings.TrimSpace(s) != s {
		return SubscriberEmail{}, invalid("email", "surrounding whitespace")
	}

	parsed, err := mail.ParseAddress(s)
	if err != nil || parsed.Address != s || parsed.Name != "" {
		return SubscriberEmail{}, invalid("email", "not a valid address")
	}

	at := strings.LastIndexByte(s, '@')
	if at <= 0 || at == len(s)-1 {
		return SubscriberEmail{}, invalid("email", "missing local part or domain")
	}
	domain := s[at+1:]
	if strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") || strings.Contains(domain, "..") {
		return SubscriberEmail{}, invalid("email", "malformed domain")
	}

	return SubscriberEmail{addr: s}, nil
}

func (e SubscriberEmail) String() string { return e.addr }
