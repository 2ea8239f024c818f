package userendpoint

import (
	"context"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/ichigozero/gtdweb/usersvc"
	"github.com/ichigozero/gtdweb/usersvc/pkg/userservice"
)

type Set struct {
	AuthenticateEndpoint endpoint.Endpoint
}

func New(svc userservice.Service, logger log.Logger) Set {
	var authenticateEndpoint endpoint.Endpoint
	{
		authenticateEndpoint = MakeAuthenticateEndpoint(svc)
		authenticateEndpoint = LoggingMiddleware(log.With(logger, "method", "Authenticate"))(authenticateEndpoint)
	}
	return Set{
		AuthenticateEndpoint: authenticateEndpoint,
	}
}

func (s Set) Authenticate(ctx context.Context, username, password string) (usersvc.User, error) {
	resp, err := s.AuthenticateEndpoint(ctx, AuthenticateRequest{Username: username, Password: password})
	if err != nil {
		return usersvc.User{}, err
	}
	response := resp.(AuthenticateResponse)
	return response.User, response.Err
}

func MakeAuthenticateEndpoint(s userservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(AuthenticateRequest)
		u, err := s.Authenticate(ctx, req.Username, req.Password)
		return AuthenticateResponse{User: u, Err: err}, nil
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

var _ endpoint.Failer = AuthenticateResponse{}

type AuthenticateRequest struct {
	Username string
	Password string
}

type AuthenticateResponse struct {
	User usersvc.User `json:"-"`
	Err  error        `json:"-"`
}

func (r AuthenticateResponse) Failed() error { return r.Err }
