package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Flash levels.
const (
	FlashInfo  = "info"
	FlashError = "error"
)

// flashTTL bounds how long a flash cookie stays valid after it is issued.
const flashTTL = 5 * time.Minute

// Predefined errors for flash verification.
var (
	ErrFlashExpired   = errors.New("flash message has expired")
	ErrFlashInvalid   = errors.New("flash message is invalid")
	ErrFlashMalformed = errors.New("flash message is malformed")
	ErrSigningMethod  = errors.New("unexpected signing method")
)

// Flash is a one-shot message shown on the next page load.
type Flash struct {
	Level   string
	Message string
}

type flashClaims struct {
	Level   string `json:"lvl"`
	Message string `json:"msg"`
	jwt.RegisteredClaims
}

// FlashSigner signs flash messages into HS256 JWTs so they can travel in a
// cookie without being forged.
type FlashSigner struct {
	key []byte
	now func() time.Time
}

// NewFlashSigner returns a signer using key.
func NewFlashSigner(key string) *FlashSigner {
	return &FlashSigner{key: []byte(key), now: time.Now}
}

// Sign encodes f.
func (s *FlashSigner) Sign(f Flash) (string, error) {
	now := s.now()
	claims := flashClaims{
		Level:   f.Level,
		Message: f.Message,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(flashTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign flash message: %w", err)
	}
	return signed, nil
}

// Verify decodes a value produced by Sign.
func (s *FlashSigner) Verify(token string) (Flash, error) {
	parsed, err := jwt.ParseWithClaims(token, &flashClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrSigningMethod
		}
		return s.key, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return Flash{}, classifyJWTError(err)
	}

	claims, ok := parsed.Claims.(*flashClaims)
	if !ok || !parsed.Valid {
		return Flash{}, ErrFlashInvalid
	}
	return Flash{Level: claims.Level, Message: claims.Message}, nil
}

// classifyJWTError maps jwt library errors to flash errors.
func classifyJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrFlashExpired
	}
	if errors.Is(err, jwt.ErrTokenMalformed) {
		return ErrFlashMalformed
	}
	if errors.Is(err, jwt.ErrSignatureInvalid) {
		return ErrFlashInvalid
	}
	if errors.Is(err, ErrSigningMethod) {
		return ErrSigningMethod
	}
	return fmt.Errorf("verify flash message: %w", err)
}
