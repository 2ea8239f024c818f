package taskservice

import (
	"context"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics"
	"github.com/ichigozero/gtdweb/tasksvc"
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

func (mw loggingMiddleware) Tasks(ctx context.Context, a tasksvc.Auth, status tasksvc.Status) (t []tasksvc.Task, err error) {
	defer func() {
		mw.logger.Log(
			"method", "Tasks",
			"user_id", a.UserID,
			"status", status,
			"count", len(t),
			"err", err,
		)
	}()
	return mw.next.Tasks(ctx, a, status)
}

func (mw loggingMiddleware) RecentTasks(ctx context.Context, a tasksvc.Auth, limit int) (t []tasksvc.Task, err error) {
	defer func() {
		mw.logger.Log(
			"method", "RecentTasks",
			"user_id", a.UserID,
			"limit", limit,
			"err", err,
		)
	}()
	return mw.next.RecentTasks(ctx, a, limit)
}

func (mw loggingMiddleware) Task(ctx context.Context, a tasksvc.Auth, taskID uint64) (t tasksvc.Task, err error) {
	defer func() {
		mw.logger.Log(
			"method", "Task",
			"user_id", a.UserID,
			"task_id", taskID,
			"err", err,
		)
	}()
	return mw.next.Task(ctx, a, taskID)
}

func (mw loggingMiddleware) CreateTask(ctx context.Context, a tasksvc.Auth, title, description string, status tasksvc.Status) (t tasksvc.Task, err error) {
	defer func() {
		mw.logger.Log(
			"method", "CreateTask",
			"user_id", a.UserID,
			"task_id", t.ID,
			"title", title,
			"status", status,
			"err", err,
		)
	}()
	return mw.next.CreateTask(ctx, a, title, description, status)
}

func (mw loggingMiddleware) UpdateTask(ctx context.Context, a tasksvc.Auth, task tasksvc.Task) (t tasksvc.Task, err error) {
	defer func() {
		mw.logger.Log(
			"method", "UpdateTask",
			"user_id", a.UserID,
			"task_id", task.ID,
			"title", task.Title,
			"status", task.Status,
			"err", err,
		)
	}()
	return mw.next.UpdateTask(ctx, a, task)
}

func (mw loggingMiddleware) DeleteTask(ctx context.Context, a tasksvc.Auth, taskID uint64) (result tasksvc.DeleteResult, err error) {
	defer func() {
		mw.logger.Log(
			"method", "DeleteTask",
			"user_id", a.UserID,
			"task_id", taskID,
			"result", result,
			"err", err,
		)
	}()
	return mw.next.DeleteTask(ctx, a, taskID)
}

func (mw loggingMiddleware) Stats(ctx context.Context, a tasksvc.Auth) (s tasksvc.Stats, err error) {
	defer func() {
		mw.logger.Log(
			"method", "Stats",
			"user_id", a.UserID,
			"total", s.Total,
			"err", err,
		)
	}()
	return mw.next.Stats(ctx, a)
}

func InstrumentingMiddleware(counter metrics.Counter, latency metrics.Histogram) Middleware {
	return func(next Service) Service {
		return instrumentingMiddleware{
			requestCount:   counter,
			requestLatency: latency,
			next:           next,
		}
	}
}

type instrumentingMiddleware struct {
	requestCount   metrics.Counter
	requestLatency metrics.Histogram
	next           Service
}

func (mw instrumentingMiddleware) Tasks(ctx context.Context, a tasksvc.Auth, status tasksvc.Status) (t []tasksvc.Task, err error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "tasks").Add(1)
		mw.requestLatency.With("method", "tasks").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.Tasks(ctx, a, status)
}

func (mw instrumentingMiddleware) RecentTasks(ctx context.Context, a tasksvc.Auth, limit int) (t []tasksvc.Task, err error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "recent_tasks").Add(1)
		mw.requestLatency.With("method", "recent_tasks").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.RecentTasks(ctx, a, limit)
}

func (mw instrumentingMiddleware) Task(ctx context.Context, a tasksvc.Auth, taskID uint64) (t tasksvc.Task, err error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "task").Add(1)
		mw.requestLatency.With("method", "task").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.Task(ctx, a, taskID)
}

func (mw instrumentingMiddleware) CreateTask(ctx context.Context, a tasksvc.Auth, title, description string, status tasksvc.Status) (t tasksvc.Task, err error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "create_task").Add(1)
		mw.requestLatency.With("method", "create_task").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.CreateTask(ctx, a, title, description, status)
}

func (mw instrumentingMiddleware) UpdateTask(ctx context.Context, a tasksvc.Auth, task tasksvc.Task) (t tasksvc.Task, err error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "update_task").Add(1)
		mw.requestLatency.With("method", "update_task").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.UpdateTask(ctx, a, task)
}

func (mw instrumentingMiddleware) DeleteTask(ctx context.Context, a tasksvc.Auth, taskID uint64) (result tasksvc.DeleteResult, err error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "delete_task").Add(1)
		mw.requestLatency.With("method", "delete_task").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.DeleteTask(ctx, a, taskID)
}

func (mw instrumentingMiddleware) Stats(ctx context.Context, a tasksvc.Auth) (s tasksvc.Stats, err error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "stats").Add(1)
		mw.requestLatency.With("method", "stats").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.Stats(ctx, a)
}
