package authservice

import (
	"context"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics"
	"github.com/ichigozero/gtdweb/authsvc"
	"github.com/ichigozero/gtdweb/usersvc/pkg/userendpoint"
)

type Middleware func(Service) Service

func LoggingMiddleware(logger log.Logger) Middleware {
	return func(next Service) Service {
		return loggingMiddleware{logger, next}
	}
}

type loggingMiddleware struct {
	logger log.Logger
	next   Service
}

func (mw loggingMiddleware) Login(ctx context.Context, username, password string) (c Credentials, err error) {
	defer func() {
		mw.logger.Log("method", "Login", "username", username, "user_id", c.Session.UserID, "err", err)
	}()
	return mw.next.Login(ctx, username, password)
}

func (mw loggingMiddleware) Logout(ctx context.Context, token string) (err error) {
	defer func() {
		mw.logger.Log("method", "Logout", "err", err)
	}()
	return mw.next.Logout(ctx, token)
}

func (mw loggingMiddleware) Validate(ctx context.Context, token string) (s authsvc.Session, err error) {
	defer func() {
		mw.logger.Log("method", "Validate", "user_id", s.UserID, "err", err)
	}()
	return mw.next.Validate(ctx, token)
}

func (mw loggingMiddleware) AddFlash(ctx context.Context, token string, f authsvc.Flash) (err error) {
	defer func() {
		mw.logger.Log("method", "AddFlash", "kind", f.Kind, "err", err)
	}()
	return mw.next.AddFlash(ctx, token, f)
}

func (mw loggingMiddleware) Flashes(ctx context.Context, token string) (flashes []authsvc.Flash, err error) {
	defer func() {
		mw.logger.Log("method", "Flashes", "count", len(flashes), "err", err)
	}()
	return mw.next.Flashes(ctx, token)
}

func InstrumentingMiddleware(counter metrics.Counter, latency metrics.Histogram) Middleware {
	return func(next Service) Service {
		return instrumentingMiddleware{counter, latency, next}
	}
}

type instrumentingMiddleware struct {
	requestCount   metrics.Counter
	requestLatency metrics.Histogram
	next           Service
}

func (mw instrumentingMiddleware) observe(method string, begin time.Time, err error) {
	lvs := []string{"method", method, "error", boolString(err != nil)}
	mw.requestCount.With(lvs...).Add(1)
	mw.requestLatency.With(lvs...).Observe(time.Since(begin).Seconds())
}

func (mw instrumentingMiddleware) Login(ctx context.Context, username, password string) (c Credentials, err error) {
	defer func(begin time.Time) { mw.observe("login", begin, err) }(time.Now())
	return mw.next.Login(ctx, username, password)
}

func (mw instrumentingMiddleware) Logout(ctx context.Context, token string) (err error) {
	defer func(begin time.Time) { mw.observe("logout", begin, err) }(time.Now())
	return mw.next.Logout(ctx, token)
}

func (mw instrumentingMiddleware) Validate(ctx context.Context, token string) (s authsvc.Session, err error) {
	defer func(begin time.Time) { mw.observe("validate", begin, err) }(time.Now())
	return mw.next.Validate(ctx, token)
}

func (mw instrumentingMiddleware) AddFlash(ctx context.Context, token string, f authsvc.Flash) (err error) {
	defer func(begin time.Time) { mw.observe("add_flash", begin, err) }(time.Now())
	return mw.next.AddFlash(ctx, token, f)
}

func (mw instrumentingMiddleware) Flashes(ctx context.Context, token string) (flashes []authsvc.Flash, err error) {
	defer func(begin time.Time) { mw.observe("flashes", begin, err) }(time.Now())
	return mw.next.Flashes(ctx, token)
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// ProxingMiddleware verifies the credentials through the user service
// before Login is allowed to open a session.
func ProxingMiddleware(users userendpoint.Set) Middleware {
	return func(next Service) Service {
		return proxingMiddleware{next, users}
	}
}

type proxingMiddleware struct {
	next  Service
	users userendpoint.Set
}

func (mw proxingMiddleware) Login(ctx context.Context, username, password string) (Credentials, error) {
	user, err := mw.users.Authenticate(ctx, username, password)
	if err != nil {
		return Credentials{}, err
	}

	ctx = context.WithValue(ctx, authsvc.UserContextKey, user)

	return mw.next.Login(ctx, username, password)
}

func (mw proxingMiddleware) Logout(ctx context.Context, token string) error {
	return mw.next.Logout(ctx, token)
}

func (mw proxingMiddleware) Validate(ctx context.Context, token string) (authsvc.Session, error) {
	return mw.next.Validate(ctx, token)
}

func (mw proxingMiddleware) AddFlash(ctx context.Context, token string, f authsvc.Flash) error {
	return mw.next.AddFlash(ctx, token, f)
}

func (mw proxingMiddleware) Flashes(ctx context.Context, token string) ([]authsvc.Flash, error) {
	return mw.next.Flashes(ctx, token)
}
