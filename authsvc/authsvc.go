package authsvc

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/twinj/uuid"
)

var (
	AppEnv          = getEnv("APP_ENV", "")
	AccessSecret    = getEnv("ACCESS_SECRET", "access-secret")
	CookieHashKey   = getEnv("COOKIE_HASH_KEY", "very-secret")
	CookieBlockKey  = getEnv("COOKIE_BLOCK_KEY", "a-lots-of-secret")
	SessionLifetime = getEnvAsDuration("SESSION_LIFETIME", 24*time.Hour)
)

func getEnv(key, fallback string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		value = fallback
	}
	return value
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}

	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	return fallback
}

type contextKey string

const (
	UserContextKey    contextKey = "User"
	SessionContextKey contextKey = "Session"
)

// Session binds an opaque token to the identity of a logged-in user.
type Session struct {
	Token     string    `json:"token"`
	UserID    uint64    `json:"user_id"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

type FlashKind string

const (
	FlashSuccess FlashKind = "success"
	FlashError   FlashKind = "error"
)

// Flash is a one-shot notification shown on the next rendered page.
type Flash struct {
	Kind    FlashKind `json:"kind"`
	Message string    `json:"message"`
}

// SessionStore holds sessions and their pending flash messages.
// PopFlashes returns the pending messages and clears them.
type SessionStore interface {
	Create(ctx context.Context, userID uint64, username string) (Session, error)
	Get(ctx context.Context, token string) (Session, error)
	Destroy(ctx context.Context, token string) error
	AddFlash(ctx context.Context, token string, f Flash) error
	PopFlashes(ctx context.Context, token string) ([]Flash, error)
}

// NewToken returns a fresh opaque session token.
func NewToken() string {
	return uuid.NewV4().String()
}

// SessionFromContext returns the session placed in ctx by the session
// middleware.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(SessionContextKey).(Session)
	return s, ok
}

var (
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrUserContextMissing   = errors.New("user was not passed through the context")
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionMissing       = errors.New("session was not passed through the context")
	ErrClaimsMissing        = errors.New("JWT claims was not passed through the context")
	ErrClaimsInvalid        = errors.New("JWT claims was invalid")
	ErrAlreadyAuthenticated = errors.New("already authenticated")
)
