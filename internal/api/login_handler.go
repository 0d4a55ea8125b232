package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/sungwon/newsletter/internal/auth"
	"github.com/sungwon/newsletter/internal/metrics"
)

// LoginConfig holds the dependencies of the login handlers.
type LoginConfig struct {
	Users      auth.UserQueries
	Sessions   auth.SessionStore
	Throttle   *auth.LoginThrottle
	Flashes    Flashes
	SessionTTL time.Duration
	Log        zerolog.Logger
}

// LoginFormHandler handles GET /login.
func LoginFormHandler(cfg LoginConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var data pageData
		if f, ok := cfg.Flashes.take(w, r); ok {
			data.Flashes = append(data.Flashes, f)
		}
		renderPage(w, cfg.Log, "login.html", data)
	}
}

// LoginHandler handles POST /login.
// On success it starts a session and redirects to the dashboard; every
// failure redirects back to the login form with an error flash.
func LoginHandler(cfg LoginConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			respondError(w, http.StatusBadRequest, "invalid form body")
			return
		}
		creds := auth.Credentials{
			Username: r.PostForm.Get("username"),
			Password: r.PostForm.Get("password"),
		}
		ctx := r.Context()

		if err := cfg.Throttle.Check(ctx, creds.Username); err != nil {
			if errors.Is(err, auth.ErrTooManyAttempts) {
				metrics.APIAuthFailuresTotal.Inc()
				cfg.Flashes.set(w, auth.FlashError, "Too many failed login attempts. Try again later.")
				seeOther(w, "/login")
				return
			}
			cfg.Log.Warn().Err(err).Msg("login throttle unavailable")
		}

		userID, err := auth.ValidateCredentials(ctx, cfg.Users, creds)
		if err != nil {
			if !errors.Is(err, auth.ErrInvalidCredentials) {
				cfg.Log.Error().Err(err).Msg("failed to validate credentials")
				respondError(w, http.StatusInternalServerError, "internal server error")
				return
			}
			metrics.APIAuthFailuresTotal.Inc()
			if err := cfg.Throttle.RecordFailure(ctx, creds.Username); err != nil {
				cfg.Log.Warn().Err(err).Msg("failed to record login failure")
			}
			cfg.Log.Info().Str("username", creds.Username).Msg("login failed")
			cfg.Flashes.set(w, auth.FlashError, "Authentication failed")
			seeOther(w, "/login")
			return
		}

		if err := cfg.Throttle.Clear(ctx, creds.Username); err != nil {
			cfg.Log.Warn().Err(err).Msg("failed to clear login failures")
		}

		sessionID, err := cfg.Sessions.Create(ctx, userID)
		if err != nil {
			cfg.Log.Error().Err(err).Msg("failed to create session")
			respondError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		auth.SetSessionCookie(w, sessionID, cfg.SessionTTL)
		cfg.Log.Info().Stringer("user_id", userID).Msg("operator logged in")
		seeOther(w, "/admin/dashboard")
	}
}

// LogoutHandler handles POST /admin/logout.
func LogoutHandler(cfg LoginConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if id := auth.SessionFromContext(r.Context()); id != "" {
			if err := cfg.Sessions.Destroy(r.Context(), id); err != nil {
				cfg.Log.Error().Err(err).Msg("failed to destroy session")
				respondError(w, http.StatusInternalServerError, "internal server error")
				return
			}
		}
		auth.ClearSessionCookie(w)
		cfg.Flashes.set(w, auth.FlashInfo, "You have successfully logged out.")
		seeOther(w, "/login")
	}
}
