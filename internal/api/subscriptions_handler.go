package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/sungwon/newsletter/internal/domain"
	"github.com/sungwon/newsletter/internal/metrics"
	"github.com/sungwon/newsletter/internal/subscription"
)

// Subscriber registers and confirms subscriptions.
type Subscriber interface {
	Subscribe(ctx context.Context, sub subscription.NewSubscriber) error
	Confirm(ctx context.Context, token string) error
}

// SubscribeHandler handles POST /subscriptions.
func SubscribeHandler(svc Subscriber, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			respondError(w, http.StatusBadRequest, "invalid form body")
			return
		}

		name, err := domain.ParseSubscriberName(r.PostForm.Get("name"))
		if err != nil {
			metrics.SubscriptionsTotal.WithLabelValues("rejected").Inc()
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		email, err := domain.ParseSubscriberEmail(r.PostForm.Get("email"))
		if err != nil {
			metrics.SubscriptionsTotal.WithLabelValues("rejected").Inc()
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		err = svc.Subscribe(r.Context(), subscription.NewSubscriber{Email: email, Name: name})
		switch {
		case errors.Is(err, subscription.ErrAlreadySubscribed):
			metrics.SubscriptionsTotal.WithLabelValues("duplicate").Inc()
			respondError(w, http.StatusConflict, err.Error())
			return
		case err != nil:
			metrics.SubscriptionsTotal.WithLabelValues("failed").Inc()
			log.Error().Err(err).Msg("failed to subscribe")
			respondError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		metrics.SubscriptionsTotal.WithLabelValues("accepted").Inc()
		w.WriteHeader(http.StatusOK)
	}
}

// ConfirmHandler handles GET /subscriptions/confirm.
func ConfirmHandler(svc Subscriber, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("subscription_token")
		if !subscription.ValidToken(token) {
			respondError(w, http.StatusBadRequest, "missing or malformed subscription token")
			return
		}

		err := svc.Confirm(r.Context(), token)
		switch {
		case errors.Is(err, subscription.ErrUnknownToken):
			respondError(w, http.StatusUnauthorized, err.Error())
			return
		case err != nil:
			log.Error().Err(err).Msg("failed to confirm subscription")
			respondError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		metrics.SubscriptionsTotal.WithLabelValues("confirmed").Inc()
		w.WriteHeader(http.StatusOK)
	}
}
