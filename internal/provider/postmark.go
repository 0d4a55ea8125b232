package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const (
	postmarkDefaultEndpoint = "https://api.postmarkapp.com"
	postmarkSendPath        = "/email"
	postmarkServerPath      = "/server"
)

// Postmark implements the Provider interface for the Postmark email API.
type Postmark struct {
	serverToken string
	endpoint    string
	client      HTTPClient
}

// NewPostmark creates a Postmark provider from the given configuration.
func NewPostmark(cfg ProviderConfig, client HTTPClient) *Postmark {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = postmarkDefaultEndpoint
	}
	return &Postmark{
		serverToken: cfg.APIKey,
		endpoint:    endpoint,
		client:      client,
	}
}

func (p *Postmark) GetName() string { return "postmark" }

// postmarkPayload matches the Postmark single-email JSON schema.
type postmarkPayload struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

type postmarkResponse struct {
	MessageID string `json:"MessageID"`
	ErrorCode int    `json:"ErrorCode"`
	Message   string `json:"Message"`
}

// Send delivers a message via POST {endpoint}/email.
func (p *Postmark) Send(ctx context.Context, msg *Message) (*DeliveryResult, error) {
	body, err := json.Marshal(postmarkPayload{
		From:     msg.From,
		To:       msg.To,
		Subject:  msg.Subject,
		HtmlBody: msg.HTMLBody,
		TextBody: msg.TextBody,
	})
	if err != nil {
		return nil, fmt.Errorf("postmark: marshal request: %w", err)
	}

	resp, err := p.client.Do(ctx, &HTTPRequest{
		Method: "POST",
		URL:    p.endpoint + postmarkSendPath,
		Headers: map[string]string{
			"X-Postmark-Server-Token": p.serverToken,
			"Content-Type":            "application/json",
			"Accept":                  "application/json",
		},
		Body: body,
	})
	if err != nil {
		return nil, fmt.Errorf("postmark: send request: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var pr postmarkResponse
		_ = json.Unmarshal(resp.Body, &pr)
		return &DeliveryResult{
			ProviderMessageID: pr.MessageID,
			Timestamp:         time.Now(),
			Metadata: map[string]string{
				"status_code": fmt.Sprintf("%d", resp.StatusCode),
			},
		}, nil
	}

	return nil, ClassifyHTTPError("postmark", resp.StatusCode, string(resp.Body))
}

// HealthCheck verifies the server token by fetching the server record.
func (p *Postmark) HealthCheck(ctx context.Context) error {
	resp, err := p.client.Do(ctx, &HTTPRequest{
		Method: "GET",
		URL:    p.endpoint + postmarkServerPath,
		Headers: map[string]string{
			"X-Postmark-Server-Token": p.serverToken,
			"Accept":                  "application/json",
		},
	})
	if err != nil {
		return fmt.Errorf("postmark: health check request: %w", err)
	}
	if resp.StatusCode != 200 {
		return fmt.Errorf("postmark: health check returned status %d", resp.StatusCode)
	}
	return nil
}
