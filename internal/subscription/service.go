// Package subscription registers new subscribers and confirms them via the
// token mailed to their address.
package subscription

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/url"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/sungwon/newsletter/internal/clock"
	"github.com/sungwon/newsletter/internal/domain"
	"github.com/sungwon/newsletter/internal/storage"
)

// TokenLength is the length of a subscription token.
const TokenLength = 25

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

var (
	// ErrAlreadySubscribed is returned when the email belongs to a
	// confirmed subscriber.
	ErrAlreadySubscribed = errors.New("email is already subscribed")
	// ErrUnknownToken is returned when a confirmation token matches no
	// subscriber.
	ErrUnknownToken = errors.New("unknown subscription token")
)

// NewSubscriber is a validated subscription request.
type NewSubscriber struct {
	Email domain.SubscriberEmail
	Name  domain.SubscriberName
}

// Tx is the transaction-bound storage used by Subscribe.
type Tx interface {
	InsertSubscription(ctx context.Context, arg storage.InsertSubscriptionParams) error
	InsertSubscriptionToken(ctx context.Context, arg storage.InsertSubscriptionTokenParams) error
}

// Store is the storage used by the service.
type Store interface {
	InTx(ctx context.Context, fn func(Tx) error) error
	GetSubscriberIDFromToken(ctx context.Context, subscriptionToken string) (uuid.UUID, error)
	GetPendingSubscriptionToken(ctx context.Context, email string) (string, error)
	ConfirmSubscriber(ctx context.Context, id uuid.UUID) error
}

// EmailSender sends the confirmation email.
type EmailSender interface {
	SendEmail(ctx context.Context, recipient domain.SubscriberEmail, subject, html, text string) error
}

// Service handles subscriptions.
type Service struct {
	store   Store
	sender  EmailSender
	baseURL string
	clock   clock.Clock
	log     zerolog.Logger
}

// NewService returns a Service. baseURL prefixes confirmation links.
func NewService(store Store, sender EmailSender, baseURL string, log zerolog.Logger) *Service {
	return &Service{store: store, sender: sender, baseURL: baseURL, clock: clock.Real(), log: log}
}

// Subscribe stores sub as pending confirmation together with a fresh
// token, then mails the confirmation link. If the email is already
// registered but still unconfirmed, the existing link is mailed again.
func (s *Service) Subscribe(ctx context.Context, sub NewSubscriber) error {
	token, err := GenerateToken()
	if err != nil {
		return err
	}

	subscriberID := uuid.New()
	err = s.store.InTx(ctx, func(tx Tx) error {
		if err := tx.InsertSubscription(ctx, storage.InsertSubscriptionParams{
			ID:           subscriberID,
			Email:        sub.Email.String(),
			Name:         sub.Name.String(),
			SubscribedAt: s.clock.Now().UTC(),
		}); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return ErrAlreadySubscribed
			}
			return fmt.Errorf("insert subscriber: %w", err)
		}
		if err := tx.InsertSubscriptionToken(ctx, storage.InsertSubscriptionTokenParams{
			SubscriptionToken: token,
			SubscriberID:      subscriberID,
		}); err != nil {
			return fmt.Errorf("store subscription token: %w", err)
		}
		return nil
	})
	if errors.Is(err, ErrAlreadySubscribed) {
		return s.resendConfirmation(ctx, sub.Email)
	}
	if err != nil {
		return err
	}

	if err := s.sendConfirmation(ctx, sub.Email, token); err != nil {
		return fmt.Errorf("send confirmation email: %w", err)
	}

	s.log.Info().Stringer("subscriber_id", subscriberID).Msg("new subscriber saved, confirmation sent")
	return nil
}

func (s *Service) resendConfirmation(ctx context.Context, email domain.SubscriberEmail) error {
	token, err := s.store.GetPendingSubscriptionToken(ctx, email.String())
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrAlreadySubscribed
	}
	if err != nil {
		return fmt.Errorf("look up pending subscription: %w", err)
	}

	if err := s.sendConfirmation(ctx, email, token); err != nil {
		return fmt.Errorf("send confirmation email: %w", err)
	}
	s.log.Info().Msg("subscriber still pending, confirmation resent")
	return nil
}

func (s *Service) sendConfirmation(ctx context.Context, to domain.SubscriberEmail, token string) error {
	link := fmt.Sprintf("%s/subscriptions/confirm?subscription_token=%s", s.baseURL, url.QueryEscape(token))
	html := fmt.Sprintf("Welcome to our newsletter!<br />Click <a href=\"%s\">here</a> to confirm your subscription.", link)
	text := fmt.Sprintf("Welcome to our newsletter!\nVisit %s to confirm your subscription.", link)
	return s.sender.SendEmail(ctx, to, "Welcome!", html, text)
}

// Confirm marks the subscriber owning token as confirmed. Confirming twice
// is not an error.
func (s *Service) Confirm(ctx context.Context, token string) error {
	if !ValidToken(token) {
		return ErrUnknownToken
	}

	id, err := s.store.GetSubscriberIDFromToken(ctx, token)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrUnknownToken
	}
	if err != nil {
		return fmt.Errorf("look up subscription token: %w", err)
	}

	if err := s.store.ConfirmSubscriber(ctx, id); err != nil {
		return fmt.Errorf("confirm subscriber: %w", err)
	}
	s.log.Info().Stringer("subscriber_id", id).Msg("subscriber confirmed")
	return nil
}

// GenerateToken returns a random case-sensitive alphanumeric token.
func GenerateToken() (string, error) {
	b := make([]byte, TokenLength)
	size := big.NewInt(int64(len(tokenAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", fmt.Errorf("generate subscription token: %w", err)
		}
		b[i] = tokenAlphabet[n.Int64()]
	}
	return string(b), nil
}

// ValidToken reports whether s has the shape of a generated token.
func ValidToken(s string) bool {
	if len(s) != TokenLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}

// PostgresStore is the PostgreSQL-backed Store.
type PostgresStore struct {
	db *storage.DB
}

// NewPostgresStore returns a Store backed by db.
func NewPostgresStore(db *storage.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) InTx(ctx context.Context, fn func(Tx) error) error {
	return p.db.ExecTx(ctx, func(q *storage.Queries) error { return fn(q) })
}

func (p *PostgresStore) GetSubscriberIDFromToken(ctx context.Context, token string) (uuid.UUID, error) {
	return p.db.Queries().GetSubscriberIDFromToken(ctx, token)
}

func (p *PostgresStore) GetPendingSubscriptionToken(ctx context.Context, email string) (string, error) {
	return p.db.Queries().GetPendingSubscriptionToken(ctx, email)
}

func (p *PostgresStore) ConfirmSubscriber(ctx context.Context, id uuid.UUID) error {
	return p.db.Queries().ConfirmSubscriber(ctx, id)
}
