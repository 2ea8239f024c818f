package authtransport

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/ratelimit"
	"github.com/go-kit/kit/transport"
	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/mux"
	"github.com/ichigozero/gtdweb/authsvc"
	"github.com/ichigozero/gtdweb/authsvc/pkg/authendpoint"
	"github.com/ichigozero/gtdweb/usersvc"
	"github.com/ichigozero/gtdweb/web"
)

// RegisterHTTPRoutes mounts the index, login and logout pages on r.
func RegisterHTTPRoutes(r *mux.Router, endpoints authendpoint.Set, codec *CookieCodec, secret string, renderer *web.Renderer, logger log.Logger) {
	errorEncoder := NewErrorEncoder(codec, renderer, logger)
	options := []httptransport.ServerOption{
		httptransport.ServerErrorEncoder(errorEncoder),
		httptransport.ServerErrorHandler(transport.NewLogErrorHandler(logger)),
		httptransport.ServerBefore(CookieToContext(codec)),
	}

	session := NewSessionMiddleware(endpoints.ValidateEndpoint, secret)
	guestOnly := NewGuestOnly(session)

	indexHandler := httptransport.NewServer(
		guestOnly(func(context.Context, interface{}) (interface{}, error) { return nil, nil }),
		httptransport.NopRequestDecoder,
		redirectTo("/login"),
		options...,
	)

	loginFormHandler := httptransport.NewServer(
		guestOnly(func(context.Context, interface{}) (interface{}, error) {
			return authendpoint.LoginResponse{}, nil
		}),
		httptransport.NopRequestDecoder,
		encodeLoginFormResponse(renderer),
		options...,
	)

	loginHandler := httptransport.NewServer(
		guestOnly(endpoints.LoginEndpoint),
		decodeHTTPLoginRequest,
		encodeLoginResponse(codec, errorEncoder),
		append(options, httptransport.ServerBefore(usernameToContext))...,
	)

	logoutHandler := httptransport.NewServer(
		session(endpoints.LogoutEndpoint),
		decodeHTTPLogoutRequest,
		encodeLogoutResponse(codec, errorEncoder),
		options...,
	)

	r.Methods(http.MethodGet).Path("/").Handler(indexHandler)
	r.Methods(http.MethodGet).Path("/login").Handler(loginFormHandler)
	r.Methods(http.MethodPost).Path("/login").Handler(loginHandler)
	r.Methods(http.MethodGet, http.MethodPost).Path("/logout").Handler(logoutHandler)
}

// NewErrorEncoder maps errors to pages. Session failures send the caller
// to the login page, an existing session is sent to the dashboard.
func NewErrorEncoder(codec *CookieCodec, renderer *web.Renderer, logger log.Logger) httptransport.ErrorEncoder {
	return func(ctx context.Context, err error, w http.ResponseWriter) {
		switch {
		case errors.Is(err, authsvc.ErrAlreadyAuthenticated):
			Redirect(w, "/dashboard")
		case IsSessionError(err):
			codec.Clear(w)
			Redirect(w, "/login")
		case errors.Is(err, usersvc.ErrMissingCredentials),
			errors.Is(err, usersvc.ErrUserNotFound),
			errors.Is(err, usersvc.ErrInvalidPassword),
			errors.Is(err, ratelimit.ErrLimited):
			username, _ := ctx.Value(usernameContextKey).(string)
			renderLogin(w, renderer, err2code(err), loginMessage(err), username, logger)
		default:
			RenderError(w, renderer, logger)
		}
	}
}

func err2code(err error) int {
	switch {
	case errors.Is(err, usersvc.ErrMissingCredentials):
		return http.StatusUnprocessableEntity
	case errors.Is(err, usersvc.ErrUserNotFound), errors.Is(err, usersvc.ErrInvalidPassword):
		return http.StatusUnauthorized
	case errors.Is(err, ratelimit.ErrLimited):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

func loginMessage(err error) string {
	switch {
	case errors.Is(err, usersvc.ErrMissingCredentials):
		return "Please enter both username and password."
	case errors.Is(err, usersvc.ErrUserNotFound):
		return "User not found."
	case errors.Is(err, usersvc.ErrInvalidPassword):
		return "Invalid password."
	case errors.Is(err, ratelimit.ErrLimited):
		return "Too many login attempts. Please try again later."
	}
	return ""
}

func renderLogin(w http.ResponseWriter, renderer *web.Renderer, status int, message, username string, logger log.Logger) {
	err := renderer.Render(w, status, "login.html", web.Page{
		Title: "Login",
		Error: message,
		Data:  web.LoginView{Username: username},
	})
	if err != nil {
		logger.Log("during", "render", "template", "login.html", "err", err)
	}
}

// RenderError writes the generic error page. Details stay in the log.
func RenderError(w http.ResponseWriter, renderer *web.Renderer, logger log.Logger) {
	if err := renderer.Render(w, http.StatusInternalServerError, "error.html", web.Page{Title: "Error"}); err != nil {
		logger.Log("during", "render", "template", "error.html", "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// Redirect answers with 303 See Other.
func Redirect(w http.ResponseWriter, location string) {
	w.Header().Set("Location", location)
	w.WriteHeader(http.StatusSeeOther)
}

func redirectTo(location string) httptransport.EncodeResponseFunc {
	return func(_ context.Context, w http.ResponseWriter, _ interface{}) error {
		Redirect(w, location)
		return nil
	}
}

type contextKey int

const usernameContextKey contextKey = iota

// usernameToContext keeps the submitted username around so a rejected
// login can be re-rendered with it.
func usernameToContext(ctx context.Context, r *http.Request) context.Context {
	return context.WithValue(ctx, usernameContextKey, strings.TrimSpace(r.PostFormValue("username")))
}

func decodeHTTPLoginRequest(_ context.Context, r *http.Request) (interface{}, error) {
	if err := r.ParseForm(); err != nil {
		return nil, err
	}

	return authendpoint.LoginRequest{
		Username: r.PostForm.Get("username"),
		Password: r.PostForm.Get("password"),
	}, nil
}

func decodeHTTPLogoutRequest(_ context.Context, _ *http.Request) (interface{}, error) {
	return authendpoint.LogoutRequest{}, nil
}

func encodeLoginFormResponse(renderer *web.Renderer) httptransport.EncodeResponseFunc {
	return func(_ context.Context, w http.ResponseWriter, _ interface{}) error {
		return renderer.Render(w, http.StatusOK, "login.html", web.Page{
			Title: "Login",
			Data:  web.LoginView{},
		})
	}
}

func encodeLoginResponse(codec *CookieCodec, errorEncoder httptransport.ErrorEncoder) httptransport.EncodeResponseFunc {
	return func(ctx context.Context, w http.ResponseWriter, response interface{}) error {
		if f, ok := response.(endpoint.Failer); ok && f.Failed() != nil {
			errorEncoder(ctx, f.Failed(), w)
			return nil
		}

		c := response.(authendpoint.LoginResponse).Credentials
		if err := codec.Write(w, c.AccessToken, c.Session.ExpiresAt); err != nil {
			return err
		}
		Redirect(w, "/dashboard")

		return nil
	}
}

func encodeLogoutResponse(codec *CookieCodec, errorEncoder httptransport.ErrorEncoder) httptransport.EncodeResponseFunc {
	return func(ctx context.Context, w http.ResponseWriter, response interface{}) error {
		if f, ok := response.(endpoint.Failer); ok && f.Failed() != nil {
			errorEncoder(ctx, f.Failed(), w)
			return nil
		}

		codec.Clear(w)
		Redirect(w, "/login")

		return nil
	}
}
