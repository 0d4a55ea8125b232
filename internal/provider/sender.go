package provider

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sungwon/newsletter/internal/config"
	"github.com/sungwon/newsletter/internal/domain"
)

// EmailClient sends mail from a fixed sender address through a Provider.
type EmailClient struct {
	provider Provider
	sender   domain.SubscriberEmail
}

// NewEmailClient returns an EmailClient that sends as sender.
func NewEmailClient(p Provider, sender domain.SubscriberEmail) *EmailClient {
	return &EmailClient{provider: p, sender: sender}
}

// SendEmail delivers one message to recipient. A returned error may be a
// *ProviderError; use IsTransient to decide whether a retry can help.
func (c *EmailClient) SendEmail(ctx context.Context, recipient domain.SubscriberEmail, subject, html, text string) error {
	_, err := c.provider.Send(ctx, &Message{
		ID:       uuid.NewString(),
		From:     c.sender.String(),
		To:       recipient.String(),
		Subject:  subject,
		HTMLBody: html,
		TextBody: text,
	})
	return err
}

// Provider returns the underlying provider, for health checks.
func (c *EmailClient) Provider() Provider { return c.provider }

// NewEmailClientFromConfig builds the configured provider and sender
// address.
func NewEmailClientFromConfig(cfg config.EmailConfig) (*EmailClient, error) {
	sender, err := domain.ParseSubscriberEmail(cfg.Sender)
	if err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	p, err := NewProvider(FromEmailConfig(cfg))
	if err != nil {
		return nil, err
	}
	return NewEmailClient(p, sender), nil
}
