package domain

import (
	"strings"

	"github.com/rivo/uniseg"
)

const maxNameGraphemes = 256

const forbiddenNameChars = `/()"<>\{}`

// SubscriberName is a display name supplied at subscription time.
type SubscriberName struct {
	name string
}

// ParseSubscriberName rejects blank names, names longer than 256
// user-perceived characters and names containing any of /()"<>\{}.
func ParseSubscriberName(s string) (SubscriberName, error) {
	if strings.TrimSpace(s) == "" {
		return SubscriberName{}, invalid("name", "empty")
	}
	if uniseg.GraphemeClusterCount(s) > maxNameGraphemes {
		return SubscriberName{}, invalid("name", "too long")
	}
	if strings.ContainsAny(s, forbiddenNameChars) {
		return SubscriberName{}, invalid("name", "contains forbidden characters")
	}
	return SubscriberName{name: s}, nil
}

func (n SubscriberName) String() string { return n.name }
