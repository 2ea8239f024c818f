package userservice

import (
	"context"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics"
	"github.com/ichigozero/gtdweb/usersvc"
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

func (mw loggingMiddleware) Authenticate(ctx context.Context, username, password string) (u usersvc.User, err error) {
	defer func() {
		mw.logger.Log("method", "Authenticate", "username", username, "id", u.ID, "err", err)
	}()
	return mw.next.Authenticate(ctx, username, password)
}

func (mw loggingMiddleware) Provision(ctx context.Context, username, password string) (u usersvc.User, err error) {
	defer func() {
		mw.logger.Log("method", "Provision", "username", username, "id", u.ID, "err", err)
	}()
	return mw.next.Provision(ctx, username, password)
}

func (mw loggingMiddleware) MigrateCredentials(ctx context.Context) (n int, err error) {
	defer func() {
		mw.logger.Log("method", "MigrateCredentials", "migrated", n, "err", err)
	}()
	return mw.next.MigrateCredentials(ctx)
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

func (mw instrumentingMiddleware) Authenticate(ctx context.Context, username, password string) (u usersvc.User, err error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "authenticate").Add(1)
		mw.requestLatency.With("method", "authenticate").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.Authenticate(ctx, username, password)
}

func (mw instrumentingMiddleware) Provision(ctx context.Context, username, password string) (u usersvc.User, err error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "provision").Add(1)
		mw.requestLatency.With("method", "provision").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.Provision(ctx, username, password)
}

func (mw instrumentingMiddleware) MigrateCredentials(ctx context.Context) (n int, err error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "migrate_credentials").Add(1)
		mw.requestLatency.With("method", "migrate_credentials").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.MigrateCredentials(ctx)
}
