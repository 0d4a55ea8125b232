package api

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sungwon/newsletter/internal/auth"
	"github.com/sungwon/newsletter/internal/domain"
	"github.com/sungwon/newsletter/internal/idempotency"
	"github.com/sungwon/newsletter/internal/metrics"
	"github.com/sungwon/newsletter/internal/newsletter"
)

// PublishAcceptedMessage is flashed after an issue has been accepted.
const PublishAcceptedMessage = "The newsletter issue has been accepted - emails will go out shortly."

// Publisher runs the idempotent publish workflow.
type Publisher interface {
	Publish(ctx context.Context, caller uuid.UUID, req newsletter.PublishRequest) (*newsletter.PublishResult, error)
}

// AdminConfig holds the dependencies of the admin handlers.
type AdminConfig struct {
	Users     auth.UserQueries
	Publisher Publisher
	Flashes   Flashes
	Log       zerolog.Logger
}

// publishForm is the body of POST /admin/newsletters, as a form or JSON.
type publishForm struct {
	Title          string `json:"title"`
	TextContent    string `json:"text_content"`
	HTMLContent    string `json:"html_content"`
	IdempotencyKey string `json:"idempotency_key"`
}

// DashboardHandler handles GET /admin/dashboard.
func DashboardHandler(cfg AdminConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := cfg.Users.GetUserByID(r.Context(), auth.UserFromContext(r.Context()))
		if err != nil {
			cfg.Log.Error().Err(err).Msg("failed to load operator")
			respondError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		renderPage(w, cfg.Log, "dashboard.html", pageData{Username: user.Username})
	}
}

// NewsletterFormHandler handles GET /admin/newsletters. Every render carries
// a fresh idempotency key so that resubmitting the same form is a retry.
func NewsletterFormHandler(cfg AdminConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := pageData{IdempotencyKey: uuid.NewString()}
		if f, ok := cfg.Flashes.take(w, r); ok {
			data.Flashes = append(data.Flashes, f)
		}
		renderPage(w, cfg.Log, "newsletters.html", data)
	}
}

// PublishHandler handles POST /admin/newsletters.
//
// The first request for an idempotency key publishes the issue and its
// 303 response is stored; retries with the same key receive the stored
// response and change nothing.
func PublishHandler(cfg AdminConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, err := decodePublishForm(r)
		if err != nil {
			metrics.NewsletterPublishTotal.WithLabelValues("rejected").Inc()
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		caller := auth.UserFromContext(r.Context())
		req := newsletter.PublishRequest{
			Content: domain.NewsletterIssueContent{
				Title:       form.Title,
				TextContent: form.TextContent,
				HTMLContent: form.HTMLContent,
			},
			IdempotencyKey: form.IdempotencyKey,
			Respond: func(uuid.UUID) (*idempotency.Response, error) {
				rec := idempotency.NewRecorder()
				cfg.Flashes.set(rec, auth.FlashInfo, PublishAcceptedMessage)
				seeOther(rec, "/admin/newsletters")
				return rec.Response(), nil
			},
		}

		res, err := cfg.Publisher.Publish(r.Context(), caller, req)
		if err != nil {
			switch newsletter.KindOf(err) {
			case newsletter.KindInvalidKey, newsletter.KindInvalidIssue:
				metrics.NewsletterPublishTotal.WithLabelValues("rejected").Inc()
				respondError(w, http.StatusBadRequest, err.Error())
			default:
				metrics.NewsletterPublishTotal.WithLabelValues("failed").Inc()
				cfg.Log.Error().Err(err).Stringer("user_id", caller).Msg("failed to publish newsletter issue")
				respondError(w, http.StatusInternalServerError, "internal server error")
			}
			return
		}

		result := "accepted"
		if res.Replayed {
			result = "replayed"
		}
		metrics.NewsletterPublishTotal.WithLabelValues(result).Inc()

		if err := res.Response.WriteTo(w); err != nil {
			cfg.Log.Warn().Err(err).Msg("failed to write publish response")
		}
	}
}

func decodePublishForm(r *http.Request) (publishForm, error) {
	var form publishForm
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
			return form, errors.New("invalid JSON body")
		}
		return form, nil
	}

	if err := r.ParseForm(); err != nil {
		return form, errors.New("invalid form body")
	}
	form.Title = r.PostForm.Get("title")
	form.TextContent = r.PostForm.Get("text_content")
	form.HTMLContent = r.PostForm.Get("html_content")
	form.IdempotencyKey = r.PostForm.Get("idempotency_key")
	return form, nil
}

// PasswordFormHandler handles GET /admin/password.
func PasswordFormHandler(cfg AdminConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var data pageData
		if f, ok := cfg.Flashes.take(w, r); ok {
			data.Flashes = append(data.Flashes, f)
		}
		renderPage(w, cfg.Log, "password.html", data)
	}
}

// ChangePasswordHandler handles POST /admin/password.
func ChangePasswordHandler(cfg AdminConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			respondError(w, http.StatusBadRequest, "invalid form body")
			return
		}
		current := r.PostForm.Get("current_password")
		next := r.PostForm.Get("new_password")

		if next != r.PostForm.Get("new_password_check") {
			cfg.Flashes.set(w, auth.FlashError, "You entered two different new passwords - the field values must match.")
			seeOther(w, "/admin/password")
			return
		}

		userID := auth.UserFromContext(r.Context())
		err := auth.ChangePassword(r.Context(), cfg.Users, userID, current, next)
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			cfg.Flashes.set(w, auth.FlashError, "The current password is incorrect.")
			seeOther(w, "/admin/password")
			return
		case errors.Is(err, auth.ErrWeakPassword):
			cfg.Flashes.set(w, auth.FlashError, "The new password must be between 12 and 128 characters long.")
			seeOther(w, "/admin/password")
			return
		case err != nil:
			cfg.Log.Error().Err(err).Stringer("user_id", userID).Msg("failed to change password")
			respondError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		cfg.Log.Info().Stringer("user_id", userID).Msg("operator changed password")
		cfg.Flashes.set(w, auth.FlashInfo, "Your password has been changed.")
		seeOther(w, "/admin/password")
	}
}
