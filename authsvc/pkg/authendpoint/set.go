package authendpoint

import (
	"context"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/ratelimit"
	"github.com/ichigozero/gtdweb/authsvc"
	"github.com/ichigozero/gtdweb/authsvc/pkg/authservice"
	"golang.org/x/time/rate"
)

type Set struct {
	LoginEndpoint    endpoint.Endpoint
	LogoutEndpoint   endpoint.Endpoint
	ValidateEndpoint endpoint.Endpoint
	AddFlashEndpoint endpoint.Endpoint
	FlashesEndpoint  endpoint.Endpoint
}

// New builds the endpoint set. A nil loginLimiter disables login throttling.
func New(svc authservice.Service, logger log.Logger, loginLimiter *rate.Limiter) Set {
	var loginEndpoint endpoint.Endpoint
	{
		loginEndpoint = MakeLoginEndpoint(svc)
		if loginLimiter != nil {
			loginEndpoint = ratelimit.NewErroringLimiter(loginLimiter)(loginEndpoint)
		}
		loginEndpoint = LoggingMiddleware(log.With(logger, "method", "Login"))(loginEndpoint)
	}

	var logoutEndpoint endpoint.Endpoint
	{
		logoutEndpoint = MakeLogoutEndpoint(svc)
		logoutEndpoint = LoggingMiddleware(log.With(logger, "method", "Logout"))(logoutEndpoint)
	}

	var validateEndpoint endpoint.Endpoint
	{
		validateEndpoint = MakeValidateEndpoint(svc)
		validateEndpoint = LoggingMiddleware(log.With(logger, "method", "Validate"))(validateEndpoint)
	}

	var addFlashEndpoint endpoint.Endpoint
	{
		addFlashEndpoint = MakeAddFlashEndpoint(svc)
		addFlashEndpoint = LoggingMiddleware(log.With(logger, "method", "AddFlash"))(addFlashEndpoint)
	}

	var flashesEndpoint endpoint.Endpoint
	{
		flashesEndpoint = MakeFlashesEndpoint(svc)
		flashesEndpoint = LoggingMiddleware(log.With(logger, "method", "Flashes"))(flashesEndpoint)
	}

	return Set{
		LoginEndpoint:    loginEndpoint,
		LogoutEndpoint:   logoutEndpoint,
		ValidateEndpoint: validateEndpoint,
		AddFlashEndpoint: addFlashEndpoint,
		FlashesEndpoint:  flashesEndpoint,
	}
}

// AddFlash adds f to the session named by token.
func (s Set) AddFlash(ctx context.Context, token string, f authsvc.Flash) error {
	response, err := s.AddFlashEndpoint(ctx, AddFlashRequest{Token: token, Flash: f})
	if err != nil {
		return err
	}

	resp := response.(AddFlashResponse)
	return resp.Err
}

func (s Set) Flashes(ctx context.Context, token string) ([]authsvc.Flash, error) {
	response, err := s.FlashesEndpoint(ctx, FlashesRequest{Token: token})
	if err != nil {
		return nil, err
	}

	resp := response.(FlashesResponse)
	return resp.Flashes, resp.Err
}

func MakeLoginEndpoint(s authservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(LoginRequest)
		c, err := s.Login(ctx, req.Username, req.Password)

		return LoginResponse{Credentials: c, Err: err}, nil
	}
}

// MakeLogoutEndpoint falls back to the session placed in ctx by the
// session middleware when the request carries no token.
func MakeLogoutEndpoint(s authservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(LogoutRequest)
		if req.Token == "" {
			session, ok := authsvc.SessionFromContext(ctx)
			if !ok {
				return LogoutResponse{Err: authsvc.ErrSessionMissing}, nil
			}
			req.Token = session.Token
		}

		err = s.Logout(ctx, req.Token)

		return LogoutResponse{Err: err}, nil
	}
}

func MakeValidateEndpoint(s authservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(ValidateRequest)
		session, err := s.Validate(ctx, req.Token)

		return ValidateResponse{Session: session, Err: err}, nil
	}
}

func MakeAddFlashEndpoint(s authservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(AddFlashRequest)
		err = s.AddFlash(ctx, req.Token, req.Flash)

		return AddFlashResponse{Err: err}, nil
	}
}

func MakeFlashesEndpoint(s authservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(FlashesRequest)
		flashes, err := s.Flashes(ctx, req.Token)

		return FlashesResponse{Flashes: flashes, Err: err}, nil
	}
}

// LoggingMiddleware returns an endpoint middleware that logs the
// duration of each invocation, and the resulting error, if any.
func LoggingMiddleware(logger log.Logger) endpoint.Middleware {
	return func(next endpoint.Endpoint) endpoint.Endpoint {
		return func(ctx context.Context, request interface{}) (response interface{}, err error) {
			defer func(begin time.Time) {
				logger.Log("transport_error", err, "took", time.Since(begin))
			}(time.Now())
			return next(ctx, request)
		}
	}
}

var (
	_ endpoint.Failer = LoginResponse{}
	_ endpoint.Failer = LogoutResponse{}
	_ endpoint.Failer = ValidateResponse{}
	_ endpoint.Failer = AddFlashResponse{}
	_ endpoint.Failer = FlashesResponse{}
)

type LoginRequest struct {
	Username string
	Password string
}

type LoginResponse struct {
	Credentials authservice.Credentials
	Err         error
}

func (r LoginResponse) Failed() error { return r.Err }

type LogoutRequest struct {
	Token string
}

type LogoutResponse struct {
	Err error
}

func (r LogoutResponse) Failed() error { return r.Err }

type ValidateRequest struct {
	Token string
}

type ValidateResponse struct {
	Session authsvc.Session
	Err     error
}

func (r ValidateResponse) Failed() error { return r.Err }

type AddFlashRequest struct {
	Token string
	Flash authsvc.Flash
}

type AddFlashResponse struct {
	Err error
}

func (r AddFlashResponse) Failed() error { return r.Err }

type FlashesRequest struct {
	Token string
}

type FlashesResponse struct {
	Flashes []authsvc.Flash
	Err     error
}

func (r FlashesResponse) Failed() error { return r.Err }
