package api

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/sungwon/newsletter/internal/auth"
)

const flashCookieName = "_flash"

// Flashes reads and writes one-shot messages carried in a signed cookie.
type Flashes struct {
	signer *auth.FlashSigner
	log    zerolog.Logger
}

// NewFlashes returns Flashes signing with signer.
func NewFlashes(signer *auth.FlashSigner, log zerolog.Logger) Flashes {
	return Flashes{signer: signer, log: log}
}

// set attaches a flash cookie to w. A signing failure only loses the
// message, so it is logged and otherwise ignored.
func (f Flashes) set(w http.ResponseWriter, level, message string) {
	token, err := f.signer.Sign(auth.Flash{Level: level, Message: message})
	if err != nil {
		f.log.Error().Err(err).Msg("failed to sign flash message")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// take returns the pending flash, if any, and expires the cookie.
func (f Flashes) take(w http.ResponseWriter, r *http.Request) (auth.Flash, bool) {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil || cookie.Value == "" {
		return auth.Flash{}, false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	msg, err := f.signer.Verify(cookie.Value)
	if err != nil {
		f.log.Debug().Err(err).Msg("discarding flash cookie")
		return auth.Flash{}, false
	}
	return msg, true
}
