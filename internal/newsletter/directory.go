package newsletter

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sungwon/newsletter/internal/domain"
)

// SubscriberSource lists the raw email addresses of confirmed subscribers.
type SubscriberSource interface {
	ListConfirmedSubscriberEmails(ctx context.Context) ([]string, error)
}

// ConfirmedSubscribers snapshots the confirmed subscribers visible to src.
// Stored addresses are re-validated; ones that no longer parse are logged
// and counted in skipped rather than failing the snapshot.
func ConfirmedSubscribers(ctx context.Context, src SubscriberSource, log zerolog.Logger) (valid []domain.SubscriberEmail, skipped int, err error) {
	raw, err := src.ListConfirmedSubscriberEmails(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list confirmed subscribers: %w", err)
	}

	valid = make([]domain.SubscriberEmail, 0, len(raw))
	for _, s := range raw {
		email, err := domain.ParseSubscriberEmail(s)
		if err != nil {
			log.Warn().Err(err).Msg("skipping a confirmed subscriber, their stored contact details are invalid")
			skipped++
			continue
		}
		valid = append(valid, email)
	}
	return valid, skipped, nil
}
