package provider

import (
	"errors"
	"time"

	"github.com/sungwon/newsletter/internal/config"
)

// ProviderConfig holds configuration for an email provider.
type ProviderConfig struct {
	// Type identifies the provider: "postmark", "sendgrid", "smtp", "stdout", "file".
	Type string

	// APIKey is the authentication credential for HTTP providers.
	APIKey string

	// Endpoint overrides the default API URL (useful for testing). For the
	// file provider it is the output directory.
	Endpoint string

	// Timeout is the maximum duration for one send.
	Timeout time.Duration

	SMTPAddr     string
	SMTPUsername string
	SMTPPassword string
}

const defaultTimeout = 10 * time.Second

// FromEmailConfig maps the email section of the application config.
func FromEmailConfig(cfg config.EmailConfig) ProviderConfig {
	return ProviderConfig{
		Type:         cfg.Provider,
		APIKey:       cfg.APIKey,
		Endpoint:     cfg.BaseURL,
		Timeout:      cfg.Timeout,
		SMTPAddr:     cfg.SMTPAddr,
		SMTPUsername: cfg.SMTPUsername,
		SMTPPassword: cfg.SMTPPassword,
	}
}

// Validate checks that required fields are set based on provider type.
func (c *ProviderConfig) Validate() error {
	if c.Type == "" {
		return errors.New("provider type is required")
	}

	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}

	switch c.Type {
	case "postmark":
		if c.APIKey == "" {
			return errors.New("postmark: api_key (server token) is required")
		}
	case "sendgrid":
		if c.APIKey == "" {
			return errors.New("sendgrid: api_key is required")
		}
	case "smtp":
		if c.SMTPAddr == "" {
			return errors.New("smtp: smtp_addr is required")
		}
		if (c.SMTPUsername == "") != (c.SMTPPassword == "") {
			return errors.New("smtp: smtp_username and smtp_password must be set together")
		}
	case "stdout":
		// No configuration required.
	case "file":
		// Endpoint is used as output directory; optional (defaults to ./mail_output).
	default:
		return errors.New("unknown provider type: " + c.Type)
	}

	return nil
}
