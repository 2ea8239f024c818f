package authtransport

import (
	"context"
	"errors"
	"net/http"

	stdjwt "github.com/dgrijalva/jwt-go"
	kitjwt "github.com/go-kit/kit/auth/jwt"
	"github.com/go-kit/kit/endpoint"
	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/ichigozero/gtdweb/authsvc"
	"github.com/ichigozero/gtdweb/authsvc/pkg/authendpoint"
	"github.com/ichigozero/gtdweb/authsvc/pkg/authservice"
)

// CookieToContext moves the access token from the session cookie into the
// context, where the JWT parser expects it. A missing or tampered cookie
// leaves the context untouched.
func CookieToContext(codec *CookieCodec) httptransport.RequestFunc {
	return func(ctx context.Context, r *http.Request) context.Context {
		token, err := codec.Read(r)
		if err != nil {
			return ctx
		}

		return context.WithValue(ctx, kitjwt.JWTTokenContextKey, token)
	}
}

// NewAuthenticater resolves the parsed JWT claims to a live session and
// stores it in the context.
func NewAuthenticater(validate endpoint.Endpoint) endpoint.Middleware {
	return func(next endpoint.Endpoint) endpoint.Endpoint {
		return func(ctx context.Context, request interface{}) (response interface{}, err error) {
			claims, ok := ctx.Value(kitjwt.JWTClaimsContextKey).(stdjwt.MapClaims)
			if !ok {
				return nil, authsvc.ErrClaimsMissing
			}

			token, userID, err := authservice.SessionClaims(claims)
			if err != nil {
				return nil, err
			}

			resp, err := validate(ctx, authendpoint.ValidateRequest{Token: token})
			if err != nil {
				return nil, err
			}

			validated := resp.(authendpoint.ValidateResponse)
			if validated.Err != nil {
				return nil, validated.Err
			}
			if validated.Session.UserID != userID {
				return nil, authsvc.ErrClaimsInvalid
			}

			ctx = context.WithValue(ctx, authsvc.SessionContextKey, validated.Session)

			return next(ctx, request)
		}
	}
}

// NewSessionMiddleware guards an endpoint with a valid session: the JWT
// from the cookie is verified, then the session it names is looked up.
func NewSessionMiddleware(validate endpoint.Endpoint, secret string) endpoint.Middleware {
	kf := func(token *stdjwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}

	parser := kitjwt.NewParser(kf, stdjwt.SigningMethodHS256, kitjwt.MapClaimsFactory)
	authenticater := NewAuthenticater(validate)

	return func(next endpoint.Endpoint) endpoint.Endpoint {
		return parser(authenticater(next))
	}
}

// NewGuestOnly lets a request through only when it carries no valid
// session; otherwise it fails with authsvc.ErrAlreadyAuthenticated.
func NewGuestOnly(session endpoint.Middleware) endpoint.Middleware {
	check := session(func(context.Context, interface{}) (interface{}, error) {
		return nil, nil
	})

	return func(next endpoint.Endpoint) endpoint.Endpoint {
		return func(ctx context.Context, request interface{}) (interface{}, error) {
			if _, err := check(ctx, request); err == nil {
				return nil, authsvc.ErrAlreadyAuthenticated
			}
			return next(ctx, request)
		}
	}
}

var sessionErrors = []error{
	kitjwt.ErrTokenContextMissing,
	kitjwt.ErrTokenInvalid,
	kitjwt.ErrTokenExpired,
	kitjwt.ErrTokenMalformed,
	kitjwt.ErrTokenNotActive,
	kitjwt.ErrUnexpectedSigningMethod,
	authsvc.ErrSessionNotFound,
	authsvc.ErrSessionMissing,
	authsvc.ErrClaimsMissing,
	authsvc.ErrClaimsInvalid,
}

// IsSessionError reports whether err means the caller has no usable
// session and has to log in again.
func IsSessionError(err error) bool {
	for _, e := range sessionErrors {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
