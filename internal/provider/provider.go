package provider

import (
	"context"
	"time"
)

// Provider defines the interface for handing an email to a delivery service.
type Provider interface {
	// Send hands one message to the service. A nil error means the service
	// accepted it; it says nothing about final delivery.
	Send(ctx context.Context, msg *Message) (*DeliveryResult, error)
	// GetName returns the provider's identifier (e.g., "postmark", "smtp").
	GetName() string
	// HealthCheck verifies the provider is reachable and functional.
	HealthCheck(ctx context.Context) error
}

// HTTPClient abstracts HTTP operations for testability.
type HTTPClient interface {
	Do(ctx context.Context, req *HTTPRequest) (*HTTPResponse, error)
}

// HTTPRequest represents an outgoing HTTP request.
type HTTPRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// HTTPResponse represents an HTTP response from a provider API.
type HTTPResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

// Message is one email to one recipient.
type Message struct {
	// ID correlates log lines and provider-side records; it is not sent
	// to the recipient.
	ID       string
	From     string
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// DeliveryResult contains the outcome of an accepted send.
type DeliveryResult struct {
	ProviderMessageID string
	Timestamp         time.Time
	Metadata          map[string]string
}
