package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestParseSubscriberEmail(t *testing.T) {
	tests := []struct {
		name  string
		input string
		ok    bool
	}{
		{"plain address", "ursula@example.com", true},
		{"plus tag", "ursula+news@mail.example.co.uk", true},
		{"empty", "", false},
		{"missing at", "wrong_mail.com", false},
		{"missing subject", "@domain.com", false},
		{"missing domain", "ursula@", false},
		{"display name", "Ursula <ursula@example.com>", false},
		{"leading space", " ursula@example.com", false},
		{"double dot domain", "ursula@example..com", false},
		{"too long", strings.Repeat("a", 250) + "@example.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSubscriberEmail(tt.input)
			if tt.ok {
				if err != nil {
					t.Fatalf("expected %q to parse, got %v", tt.input, err)
				}
				if got.String() != tt.input {
					t.Errorf("String() = %q, want %q", got.String(), tt.input)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError for %q, got %v", tt.input, err)
			}
			if verr.Field != "email" {
				t.Errorf("expected field email, got %s", verr.Field)
			}
		})
	}
}

func TestParseSubscriberName(t *testing.T) {
	if _, err := ParseSubscriberName("Ursula Le Guin"); err != nil {
		t.Fatalf("expected valid name, got %v", err)
	}
	if _, err := ParseSubscriberName(strings.Repeat("ё", 256)); err != nil {
		t.Errorf("256 graphemes should be accepted, got %v", err)
	}
	if _, err := ParseSubscriberName(strings.Repeat("a", 257)); err == nil {
		t.Error("257 graphemes should be rejected")
	}
	for _, name := range []string{"", "   ", "a/b", "(x)", `"q"`, "<b>", `back\slash`, "{}"} {
		if _, err := ParseSubscriberName(name); err == nil {
			t.Errorf("expected %q to be rejected", name)
		}
	}
}

func TestParseIdempotencyKey(t *testing.T) {
	valid := []string{"abc123", "a", "A-b_C-9", strings.Repeat("k", MaxIdempotencyKeyLength)}
	for _, k := range valid {
		got, err := ParseIdempotencyKey(k)
		if err != nil {
			t.Errorf("expected %q to be valid, got %v", k, err)
			continue
		}
		if got.String() != k {
			t.Errorf("String() = %q, want %q", got.String(), k)
		}
	}

	invalidKeys := []string{"", strings.Repeat("k", MaxIdempotencyKeyLength+1), "has space", "semi;colon", "ümlaut", "slash/"}
	for _, k := range invalidKeys {
		if _, err := ParseIdempotencyKey(k); err == nil {
			t.Errorf("expected %q to be rejected", k)
		}
	}
}

func TestNewsletterIssueContentValidate(t *testing.T) {
	ok := NewsletterIssueContent{Title: "T", TextContent: "T", HTMLContent: "<p>T</p>"}
	if err := ok.Validate(); err != nil {
		t.Fatalf("expected valid content, got %v", err)
	}

	cases := map[string]NewsletterIssueContent{
		"title":        {TextContent: "T", HTMLContent: "<p>T</p>"},
		"text_content": {Title: "T", HTMLContent: "<p>T</p>"},
		"html_content": {Title: "T", TextContent: "T"},
	}
	for field, c := range cases {
		var verr *ValidationError
		if err := c.Validate(); !errors.As(err, &verr) || verr.Field != field {
			t.Errorf("expected %s validation error, got %v", field, err)
		}
	}
}
