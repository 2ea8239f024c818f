package authservice

import (
	"context"

	"github.com/go-kit/kit/log"
	"github.com/ichigozero/gtdweb/authsvc"
	"github.com/ichigozero/gtdweb/usersvc"
)

// Credentials is what a successful login hands back to the transport: the
// stored session and the signed token that goes into the session cookie.
type Credentials struct {
	Session     authsvc.Session
	AccessToken string
}

type Service interface {
	Login(ctx context.Context, username, password string) (Credentials, error)
	Logout(ctx context.Context, token string) error
	Validate(ctx context.Context, token string) (authsvc.Session, error)
	AddFlash(ctx context.Context, token string, f authsvc.Flash) error
	Flashes(ctx context.Context, token string) ([]authsvc.Flash, error)
}

func New(t Tokenizer, s authsvc.SessionStore, logger log.Logger) Service {
	var svc Service
	{
		svc = NewBasicService(t, s)
		svc = LoggingMiddleware(logger)(svc)
	}
	return svc
}

type basicService struct {
	tokenizer Tokenizer
	sessions  authsvc.SessionStore
}

func NewBasicService(t Tokenizer, s authsvc.SessionStore) Service {
	return &basicService{tokenizer: t, sessions: s}
}

// Login expects the authenticated user in ctx; see ProxingMiddleware.
func (s *basicService) Login(ctx context.Context, _, _ string) (Credentials, error) {
	user, ok := ctx.Value(authsvc.UserContextKey).(usersvc.User)
	if !ok {
		return Credentials{}, authsvc.ErrUserContextMissing
	}

	session, err := s.sessions.Create(ctx, user.ID, user.Username)
	if err != nil {
		return Credentials{}, err
	}

	token, err := s.tokenizer.Generate(session)
	if err != nil {
		s.sessions.Destroy(ctx, session.Token)
		return Credentials{}, err
	}

	return Credentials{Session: session, AccessToken: token}, nil
}

func (s *basicService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return authsvc.ErrInvalidArgument
	}

	return s.sessions.Destroy(ctx, token)
}

func (s *basicService) Validate(ctx context.Context, token string) (authsvc.Session, error) {
	if token == "" {
		return authsvc.Session{}, authsvc.ErrSessionNotFound
	}

	return s.sessions.Get(ctx, token)
}

func (s *basicService) AddFlash(ctx context.Context, token string, f authsvc.Flash) error {
	return s.sessions.AddFlash(ctx, token, f)
}

func (s *basicService) Flashes(ctx context.Context, token string) ([]authsvc.Flash, error) {
	return s.sessions.PopFlashes(ctx, token)
}
