package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"
)

// SMTP implements the Provider interface by submitting messages to an SMTP
// relay, authenticating with SASL PLAIN when credentials are configured.
type SMTP struct {
	addr     string
	username string
	password string
	timeout  time.Duration
	dialer   net.Dialer
}

// NewSMTP creates an SMTP provider from the given configuration.
func NewSMTP(cfg ProviderConfig) *SMTP {
	return &SMTP{
		addr:     cfg.SMTPAddr,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		timeout:  cfg.Timeout,
	}
}

func (s *SMTP) GetName() string { return "smtp" }

// Send opens one connection per message. The connection deadline is the
// earlier of ctx's deadline and the configured timeout.
func (s *SMTP) Send(ctx context.Context, msg *Message) (*DeliveryResult, error) {
	now := time.Now()
	raw, err := composeMIME(msg, now)
	if err != nil {
		return nil, fmt.Errorf("smtp: compose message: %w", err)
	}

	c, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	if s.username != "" {
		if err := c.Auth(sasl.NewPlainClient("", s.username, s.password)); err != nil {
			return nil, classifySMTPError(err)
		}
	}
	if err := c.SendMail(msg.From, []string{msg.To}, bytes.NewReader(raw)); err != nil {
		return nil, classifySMTPError(err)
	}
	_ = c.Quit()

	return &DeliveryResult{
		ProviderMessageID: msg.ID,
		Timestamp:         now,
		Metadata:          map[string]string{"relay": s.addr},
	}, nil
}

// HealthCheck connects, greets the relay and disconnects.
func (s *SMTP) HealthCheck(ctx context.Context) error {
	c, err := s.dial(ctx)
	if err != nil {
		return err
	}
	defer c.Close()
	if err := c.Hello("localhost"); err != nil {
		return fmt.Errorf("smtp: health check: %w", err)
	}
	return c.Quit()
}

func (s *SMTP) dial(ctx context.Context) (*gosmtp.Client, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	conn, err := s.dialer.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return nil, fmt.Errorf("smtp: dial %s: %w", s.addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	return gosmtp.NewClient(conn), nil
}

// classifySMTPError maps SMTP reply codes onto ProviderError: 5xx replies
// are permanent, 4xx transient. Anything else (I/O, timeouts) is returned
// wrapped and treated as transient.
func classifySMTPError(err error) error {
	var se *gosmtp.SMTPError
	if errors.As(err, &se) {
		return &ProviderError{
			Provider:   "smtp",
			StatusCode: se.Code,
			Message:    se.Message,
			Permanent:  se.Code >= 500,
		}
	}
	return fmt.Errorf("smtp: %w", err)
}
