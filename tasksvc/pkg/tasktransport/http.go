package tasktransport

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/transport"
	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/mux"
	"github.com/ichigozero/gtdweb/authsvc"
	"github.com/ichigozero/gtdweb/authsvc/pkg/authendpoint"
	"github.com/ichigozero/gtdweb/authsvc/pkg/authtransport"
	"github.com/ichigozero/gtdweb/tasksvc"
	"github.com/ichigozero/gtdweb/tasksvc/pkg/taskendpoint"
	"github.com/ichigozero/gtdweb/web"
)

const (
	msgCreated      = "Task created successfully!"
	msgUpdated      = "Task updated successfully!"
	msgDeleted      = "Task deleted successfully!"
	msgDeleteFailed = "Error deleting task. Please try again."
)

// RegisterHTTPRoutes mounts the dashboard and task pages on r. Every page
// requires a session.
func RegisterHTTPRoutes(
	r *mux.Router,
	endpoints taskendpoint.Set,
	auth authendpoint.Set,
	codec *authtransport.CookieCodec,
	secret string,
	renderer *web.Renderer,
	logger log.Logger,
) {
	p := pages{
		auth:         auth,
		renderer:     renderer,
		logger:       logger,
		errorEncoder: newErrorEncoder(codec, renderer, logger),
	}

	options := []httptransport.ServerOption{
		httptransport.ServerErrorEncoder(p.errorEncoder),
		httptransport.ServerErrorHandler(transport.NewLogErrorHandler(logger)),
		httptransport.ServerBefore(authtransport.CookieToContext(codec)),
	}

	session := authtransport.NewSessionMiddleware(auth.ValidateEndpoint, secret)
	protect := func(e endpoint.Endpoint) endpoint.Endpoint {
		return session(withSession(e))
	}

	dashboardHandler := httptransport.NewServer(
		protect(endpoints.DashboardEndpoint),
		decodeHTTPDashboardRequest,
		p.encodeDashboardResponse,
		options...,
	)

	tasksHandler := httptransport.NewServer(
		protect(endpoints.TasksEndpoint),
		decodeHTTPTasksRequest,
		p.encodeTasksResponse,
		options...,
	)

	createTaskFormHandler := httptransport.NewServer(
		protect(endpoints.CreateTaskEndpoint),
		decodeHTTPCreateTaskFormRequest,
		p.encodeCreateTaskResponse,
		options...,
	)

	createTaskHandler := httptransport.NewServer(
		protect(endpoints.CreateTaskEndpoint),
		decodeHTTPCreateTaskRequest,
		p.encodeCreateTaskResponse,
		options...,
	)

	taskHandler := httptransport.NewServer(
		protect(endpoints.TaskEndpoint),
		decodeHTTPTaskRequest,
		p.encodeTaskResponse,
		options...,
	)

	updateTaskHandler := httptransport.NewServer(
		protect(endpoints.UpdateTaskEndpoint),
		decodeHTTPUpdateTaskRequest,
		p.encodeUpdateTaskResponse,
		options...,
	)

	deleteTaskHandler := httptransport.NewServer(
		protect(endpoints.DeleteTaskEndpoint),
		decodeHTTPDeleteTaskRequest,
		p.encodeDeleteTaskResponse,
		options...,
	)

	r.Methods(http.MethodGet).Path("/dashboard").Handler(dashboardHandler)
	r.Methods(http.MethodGet).Path("/tasks").Handler(tasksHandler)
	r.Methods(http.MethodGet).Path("/tasks/create").Handler(createTaskFormHandler)
	r.Methods(http.MethodPost).Path("/tasks/create").Handler(createTaskHandler)
	r.Methods(http.MethodGet).Path("/tasks/edit").Handler(taskHandler)
	r.Methods(http.MethodPost).Path("/tasks/edit").Handler(updateTaskHandler)
	r.Methods(http.MethodGet).Path("/tasks/delete").Handler(deleteTaskHandler)
}

// sessionResponse carries the caller's session from the endpoint chain to
// the response encoder, which needs it for flashes and the page header.
type sessionResponse struct {
	session  authsvc.Session
	response interface{}
}

func (r sessionResponse) err() error {
	if f, ok := r.response.(endpoint.Failer); ok {
		return f.Failed()
	}
	return nil
}

func withSession(next endpoint.Endpoint) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		response, err := next(ctx, request)
		if err != nil {
			return nil, err
		}

		session, _ := authsvc.SessionFromContext(ctx)
		return sessionResponse{session: session, response: response}, nil
	}
}

func newErrorEncoder(codec *authtransport.CookieCodec, renderer *web.Renderer, logger log.Logger) httptransport.ErrorEncoder {
	fallback := authtransport.NewErrorEncoder(codec, renderer, logger)

	return func(ctx context.Context, err error, w http.ResponseWriter) {
		if errors.Is(err, tasksvc.ErrTaskNotFound) {
			authtransport.Redirect(w, "/tasks")
			return
		}
		fallback(ctx, err, w)
	}
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, tasksvc.ErrTitleRequired):
		return "Task title is required."
	case errors.Is(err, tasksvc.ErrTitleTooLong):
		return "Task title must be at most 100 characters."
	case errors.Is(err, tasksvc.ErrInvalidStatus):
		return "Please choose a valid status."
	}
	return err.Error()
}

type pages struct {
	auth         authendpoint.Set
	renderer     *web.Renderer
	logger       log.Logger
	errorEncoder httptransport.ErrorEncoder
}

// render pops the pending flashes of the session and writes the page.
func (p pages) render(ctx context.Context, w http.ResponseWriter, status int, name string, page web.Page, s authsvc.Session) error {
	flashes, err := p.auth.Flashes(ctx, s.Token)
	if err != nil {
		p.logger.Log("during", "Flashes", "err", err)
	}

	page.Username = s.Username
	page.Flashes = flashes

	return p.renderer.Render(w, status, name, page)
}

func (p pages) flash(ctx context.Context, s authsvc.Session, kind authsvc.FlashKind, message string) {
	if err := p.auth.AddFlash(ctx, s.Token, authsvc.Flash{Kind: kind, Message: message}); err != nil {
		p.logger.Log("during", "AddFlash", "err", err)
	}
}

func (p pages) encodeDashboardResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	sr := response.(sessionResponse)
	if err := sr.err(); err != nil {
		p.errorEncoder(ctx, err, w)
		return nil
	}

	resp := sr.response.(taskendpoint.DashboardResponse)
	return p.render(ctx, w, http.StatusOK, "dashboard.html", web.Page{
		Title: "Dashboard",
		Data:  web.DashboardView{Stats: resp.Stats, Recent: resp.Recent},
	}, sr.session)
}

func (p pages) encodeTasksResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	sr := response.(sessionResponse)
	if err := sr.err(); err != nil {
		p.errorEncoder(ctx, err, w)
		return nil
	}

	resp := sr.response.(taskendpoint.TasksResponse)
	return p.render(ctx, w, http.StatusOK, "tasks.html", web.Page{
		Title: "View Tasks",
		Data: web.TaskListView{
			Tasks:    resp.Tasks,
			Filter:   resp.Status,
			Statuses: tasksvc.Statuses,
		},
	}, sr.session)
}

func (p pages) encodeCreateTaskResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	sr := response.(sessionResponse)
	resp := sr.response.(taskendpoint.CreateTaskResponse)

	form := web.TaskFormView{
		Title:       resp.Request.Title,
		Description: resp.Request.Description,
		Status:      resp.Request.Status,
		Statuses:    tasksvc.Statuses,
	}
	if form.Status == "" {
		form.Status = tasksvc.StatusOpen
	}

	var verr tasksvc.ValidationError
	switch err := resp.Failed(); {
	case errors.As(err, &verr):
		return p.render(ctx, w, http.StatusUnprocessableEntity, "task_form.html", web.Page{
			Title: "Create Task",
			Error: validationMessage(err),
			Data:  form,
		}, sr.session)
	case err != nil:
		p.errorEncoder(ctx, err, w)
		return nil
	case resp.Request.Form:
		return p.render(ctx, w, http.StatusOK, "task_form.html", web.Page{
			Title: "Create Task",
			Data:  form,
		}, sr.session)
	}

	p.flash(ctx, sr.session, authsvc.FlashSuccess, msgCreated)
	authtransport.Redirect(w, "/tasks")

	return nil
}

func (p pages) encodeTaskResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	sr := response.(sessionResponse)
	if err := sr.err(); err != nil {
		p.errorEncoder(ctx, err, w)
		return nil
	}

	task := sr.response.(taskendpoint.TaskResponse).Task
	return p.render(ctx, w, http.StatusOK, "task_form.html", web.Page{
		Title: "Edit Task",
		Data: web.TaskFormView{
			ID:          task.ID,
			Title:       task.Title,
			Description: task.Description,
			Status:      task.Status,
			CreatedAt:   task.CreatedAt,
			Statuses:    tasksvc.Statuses,
		},
	}, sr.session)
}

func (p pages) encodeUpdateTaskResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	sr := response.(sessionResponse)
	resp := sr.response.(taskendpoint.UpdateTaskResponse)

	var verr tasksvc.ValidationError
	switch err := resp.Failed(); {
	case errors.As(err, &verr):
		return p.render(ctx, w, http.StatusUnprocessableEntity, "task_form.html", web.Page{
			Title: "Edit Task",
			Error: validationMessage(err),
			Data: web.TaskFormView{
				ID:          resp.Request.TaskID,
				Title:       resp.Request.Title,
				Description: resp.Request.Description,
				Status:      resp.Request.Status,
				Statuses:    tasksvc.Statuses,
			},
		}, sr.session)
	case err != nil:
		p.errorEncoder(ctx, err, w)
		return nil
	}

	p.flash(ctx, sr.session, authsvc.FlashSuccess, msgUpdated)
	authtransport.Redirect(w, "/tasks")

	return nil
}

// encodeDeleteTaskResponse always lands on the task list. A delete that
// matched nothing reads the same as a successful one.
func (p pages) encodeDeleteTaskResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	sr := response.(sessionResponse)
	resp := sr.response.(taskendpoint.DeleteTaskResponse)

	switch err := resp.Failed(); {
	case err == nil:
		p.flash(ctx, sr.session, authsvc.FlashSuccess, msgDeleted)
	case authtransport.IsSessionError(err):
		p.errorEncoder(ctx, err, w)
		return nil
	default:
		p.logger.Log("during", "DeleteTask", "err", err)
		p.flash(ctx, sr.session, authsvc.FlashError, msgDeleteFailed)
	}

	authtransport.Redirect(w, "/tasks")

	return nil
}

func decodeHTTPDashboardRequest(_ context.Context, _ *http.Request) (interface{}, error) {
	return taskendpoint.DashboardRequest{}, nil
}

func decodeHTTPTasksRequest(_ context.Context, r *http.Request) (interface{}, error) {
	return taskendpoint.TasksRequest{
		Status: tasksvc.Status(r.URL.Query().Get("status")),
	}, nil
}

func decodeHTTPCreateTaskFormRequest(_ context.Context, _ *http.Request) (interface{}, error) {
	return taskendpoint.CreateTaskRequest{Form: true}, nil
}

func decodeHTTPCreateTaskRequest(_ context.Context, r *http.Request) (interface{}, error) {
	if err := r.ParseForm(); err != nil {
		return nil, err
	}

	return taskendpoint.CreateTaskRequest{
		Title:       r.PostForm.Get("title"),
		Description: r.PostForm.Get("description"),
		Status:      tasksvc.Status(r.PostForm.Get("status")),
	}, nil
}

func decodeHTTPTaskRequest(_ context.Context, r *http.Request) (interface{}, error) {
	return taskendpoint.TaskRequest{TaskID: taskID(r)}, nil
}

func decodeHTTPUpdateTaskRequest(_ context.Context, r *http.Request) (interface{}, error) {
	if err := r.ParseForm(); err != nil {
		return nil, err
	}

	return taskendpoint.UpdateTaskRequest{
		TaskID:      taskID(r),
		Title:       r.PostForm.Get("title"),
		Description: r.PostForm.Get("description"),
		Status:      tasksvc.Status(r.PostForm.Get("status")),
	}, nil
}

func decodeHTTPDeleteTaskRequest(_ context.Context, r *http.Request) (interface{}, error) {
	return taskendpoint.DeleteTaskRequest{TaskID: taskID(r)}, nil
}

// taskID reads the id query parameter. Anything that is not a positive
// integer yields 0, which never matches a task.
func taskID(r *http.Request) uint64 {
	id, err := strconv.ParseUint(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
