package taskendpoint

import (
	"context"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/ichigozero/gtdweb/authsvc"
	"github.com/ichigozero/gtdweb/tasksvc"
	"github.com/ichigozero/gtdweb/tasksvc/pkg/taskservice"
)

type Set struct {
	DashboardEndpoint  endpoint.Endpoint
	TasksEndpoint      endpoint.Endpoint
	TaskEndpoint       endpoint.Endpoint
	CreateTaskEndpoint endpoint.Endpoint
	UpdateTaskEndpoint endpoint.Endpoint
	DeleteTaskEndpoint endpoint.Endpoint
}

func New(svc taskservice.Service, logger log.Logger) Set {
	var dashboardEndpoint endpoint.Endpoint
	{
		dashboardEndpoint = MakeDashboardEndpoint(svc)
		dashboardEndpoint = LoggingMiddleware(log.With(logger, "method", "Dashboard"))(dashboardEndpoint)
	}
	var tasksEndpoint endpoint.Endpoint
	{
		tasksEndpoint = MakeTasksEndpoint(svc)
		tasksEndpoint = LoggingMiddleware(log.With(logger, "method", "Tasks"))(tasksEndpoint)
	}
	var taskEndpoint endpoint.Endpoint
	{
		taskEndpoint = MakeTaskEndpoint(svc)
		taskEndpoint = LoggingMiddleware(log.With(logger, "method", "Task"))(taskEndpoint)
	}
	var createTaskEndpoint endpoint.Endpoint
	{
		createTaskEndpoint = MakeCreateTaskEndpoint(svc)
		createTaskEndpoint = LoggingMiddleware(log.With(logger, "method", "CreateTask"))(createTaskEndpoint)
	}
	var updateTaskEndpoint endpoint.Endpoint
	{
		updateTaskEndpoint = MakeUpdateTaskEndpoint(svc)
		updateTaskEndpoint = LoggingMiddleware(log.With(logger, "method", "UpdateTask"))(updateTaskEndpoint)
	}
	var deleteTaskEndpoint endpoint.Endpoint
	{
		deleteTaskEndpoint = MakeDeleteTaskEndpoint(svc)
		deleteTaskEndpoint = LoggingMiddleware(log.With(logger, "method", "DeleteTask"))(deleteTaskEndpoint)
	}

	return Set{
		DashboardEndpoint:  dashboardEndpoint,
		TasksEndpoint:      tasksEndpoint,
		TaskEndpoint:       taskEndpoint,
		CreateTaskEndpoint: createTaskEndpoint,
		UpdateTaskEndpoint: updateTaskEndpoint,
		DeleteTaskEndpoint: deleteTaskEndpoint,
	}
}

func MakeDashboardEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		a, err := auth(ctx)
		if err != nil {
			return DashboardResponse{Err: err}, nil
		}

		_ = request.(DashboardRequest)
		stats, err := s.Stats(ctx, a)
		if err != nil {
			return DashboardResponse{Err: err}, nil
		}
		recent, err := s.RecentTasks(ctx, a, taskservice.RecentLimit)
		return DashboardResponse{Stats: stats, Recent: recent, Err: err}, nil
	}
}

func MakeTasksEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		a, err := auth(ctx)
		if err != nil {
			return TasksResponse{Err: err}, nil
		}

		req := request.(TasksRequest)
		t, err := s.Tasks(ctx, a, req.Status)
		return TasksResponse{Tasks: t, Status: req.Status, Err: err}, nil
	}
}

func MakeTaskEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		a, err := auth(ctx)
		if err != nil {
			return TaskResponse{Err: err}, nil
		}

		req := request.(TaskRequest)
		t, err := s.Task(ctx, a, req.TaskID)
		return TaskResponse{Task: t, Err: err}, nil
	}
}

func MakeCreateTaskEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		a, err := auth(ctx)
		if err != nil {
			return CreateTaskResponse{Err: err}, nil
		}

		req := request.(CreateTaskRequest)
		if req.Form {
			return CreateTaskResponse{Request: req}, nil
		}
		t, err := s.CreateTask(ctx, a, req.Title, req.Description, req.Status)
		return CreateTaskResponse{Task: t, Request: req, Err: err}, nil
	}
}

func MakeUpdateTaskEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		a, err := auth(ctx)
		if err != nil {
			return UpdateTaskResponse{Err: err}, nil
		}

		req := request.(UpdateTaskRequest)
		t, err := s.UpdateTask(
			ctx,
			a,
			tasksvc.Task{
				ID:          req.TaskID,
				Title:       req.Title,
				Description: req.Description,
				Status:      req.Status,
				CreatedBy:   a.UserID,
			},
		)
		return UpdateTaskResponse{Task: t, Request: req, Err: err}, nil
	}
}

func MakeDeleteTaskEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		a, err := auth(ctx)
		if err != nil {
			return DeleteTaskResponse{Err: err}, nil
		}

		req := request.(DeleteTaskRequest)
		r, err := s.DeleteTask(ctx, a, req.TaskID)
		return DeleteTaskResponse{Result: r, Err: err}, nil
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

func auth(ctx context.Context) (tasksvc.Auth, error) {
	session, ok := authsvc.SessionFromContext(ctx)
	if !ok {
		return tasksvc.Auth{}, authsvc.ErrSessionMissing
	}

	return tasksvc.Auth{UserID: session.UserID}, nil
}

var (
	_ endpoint.Failer = DashboardResponse{}
	_ endpoint.Failer = TasksResponse{}
	_ endpoint.Failer = TaskResponse{}
	_ endpoint.Failer = CreateTaskResponse{}
	_ endpoint.Failer = UpdateTaskResponse{}
	_ endpoint.Failer = DeleteTaskResponse{}
)

type DashboardRequest struct{}

type DashboardResponse struct {
	Stats  tasksvc.Stats
	Recent []tasksvc.Task
	Err    error
}

func (r DashboardResponse) Failed() error { return r.Err }

type TasksRequest struct {
	Status tasksvc.Status
}

type TasksResponse struct {
	Tasks  []tasksvc.Task
	Status tasksvc.Status
	Err    error
}

func (r TasksResponse) Failed() error { return r.Err }

type TaskRequest struct {
	TaskID uint64
}

type TaskResponse struct {
	Task tasksvc.Task
	Err  error
}

func (r TaskResponse) Failed() error { return r.Err }

// CreateTaskRequest with Form set asks only for the empty form; nothing is
// written.
type CreateTaskRequest struct {
	Form        bool
	Title       string
	Description string
	Status      tasksvc.Status
}

// CreateTaskResponse echoes the request so a rejected form can be
// re-rendered with the user's input.
type CreateTaskResponse struct {
	Task    tasksvc.Task
	Request CreateTaskRequest
	Err     error
}

func (r CreateTaskResponse) Failed() error { return r.Err }

type UpdateTaskRequest struct {
	TaskID      uint64
	Title       string
	Description string
	Status      tasksvc.Status
}

type UpdateTaskResponse struct {
	Task    tasksvc.Task
	Request UpdateTaskRequest
	Err     error
}

func (r UpdateTaskResponse) Failed() error { return r.Err }

type DeleteTaskRequest struct {
	TaskID uint64
}

type DeleteTaskResponse struct {
	Result tasksvc.DeleteResult
	Err    error
}

func (r DeleteTaskResponse) Failed() error { return r.Err }
