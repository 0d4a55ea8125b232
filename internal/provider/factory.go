package provider

import (
	"fmt"
)

// NewProvider creates a provider instance from the given config. HTTP
// providers share one client bounded by cfg.Timeout.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid provider config: %w", err)
	}

	switch cfg.Type {
	case "postmark":
		return NewPostmark(cfg, NewHTTPClient(cfg.Timeout)), nil
	case "sendgrid":
		return NewSendGrid(cfg, NewHTTPClient(cfg.Timeout)), nil
	case "smtp":
		return NewSMTP(cfg), nil
	case "stdout":
		return NewStdout(cfg), nil
	case "file":
		return NewFile(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", cfg.Type)
	}
}
