package userservice

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/go-kit/kit/log"
	"github.com/ichigozero/gtdweb/usersvc"
)

type Service interface {
	Authenticate(ctx context.Context, username, password string) (usersvc.User, error)
	Provision(ctx context.Context, username, password string) (usersvc.User, error)
	MigrateCredentials(ctx context.Context) (int, error)
}

func New(u usersvc.UserRepository, h *PasswordHasher, logger log.Logger) Service {
	var svc Service
	{
		svc = NewBasicService(u, h)
		svc = LoggingMiddleware(logger)(svc)
	}
	return svc
}

type basicService struct {
	users  usersvc.UserRepository
	hasher *PasswordHasher
}

func NewBasicService(u usersvc.UserRepository, h *PasswordHasher) Service {
	return basicService{users: u, hasher: h}
}

func (s basicService) Authenticate(_ context.Context, username, password string) (usersvc.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return usersvc.User{}, usersvc.ErrMissingCredentials
	}

	user, err := s.users.FindByUsername(username)
	if err != nil {
		return usersvc.User{}, err
	}

	if s.hasher.IsHashed(user.Password) {
		if !s.hasher.Verify(password, user.Password) {
			return usersvc.User{}, usersvc.ErrInvalidPassword
		}
		return user, nil
	}

	// Legacy plaintext credential: accepted once, then replaced by its hash so
	// later logins can only succeed through bcrypt.
	if subtle.ConstantTimeCompare([]byte(password), []byte(user.Password)) != 1 {
		return usersvc.User{}, usersvc.ErrInvalidPassword
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return usersvc.User{}, err
	}
	if err := s.users.UpdatePassword(user.ID, hash); err != nil {
		return usersvc.User{}, err
	}
	user.Password = hash

	return user, nil
}

func (s basicService) Provision(_ context.Context, username, password string) (usersvc.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return usersvc.User{}, usersvc.ErrMissingCredentials
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return usersvc.User{}, err
	}

	return s.users.Create(username, hash)
}

func (s basicService) MigrateCredentials(_ context.Context) (int, error) {
	users, err := s.users.FindAll()
	if err != nil {
		return 0, err
	}

	var migrated int
	for _, u := range users {
		if s.hasher.IsHashed(u.Password) {
			continue
		}

		hash, err := s.hasher.Hash(u.Password)
		if err != nil {
			return migrated, err
		}
		if err := s.users.UpdatePassword(u.ID, hash); err != nil {
			return migrated, err
		}
		migrated++
	}

	return migrated, nil
}
