package taskservice

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/go-kit/kit/log"
	"github.com/ichigozero/gtdweb/tasksvc"
)

// RecentLimit is the number of tasks shown on the dashboard.
const RecentLimit = 5

type Service interface {
	Tasks(ctx context.Context, a tasksvc.Auth, status tasksvc.Status) ([]tasksvc.Task, error)
	RecentTasks(ctx context.Context, a tasksvc.Auth, limit int) ([]tasksvc.Task, error)
	Task(ctx context.Context, a tasksvc.Auth, taskID uint64) (tasksvc.Task, error)
	CreateTask(ctx context.Context, a tasksvc.Auth, title, description string, status tasksvc.Status) (tasksvc.Task, error)
	UpdateTask(ctx context.Context, a tasksvc.Auth, task tasksvc.Task) (tasksvc.Task, error)
	DeleteTask(ctx context.Context, a tasksvc.Auth, taskID uint64) (tasksvc.DeleteResult, error)
	Stats(ctx context.Context, a tasksvc.Auth) (tasksvc.Stats, error)
}

func New(t tasksvc.TaskRepository, logger log.Logger) Service {
	var svc Service
	{
		svc = NewBasicService(t)
		svc = LoggingMiddleware(logger)(svc)
	}
	return svc
}

type basicService struct {
	tasks tasksvc.TaskRepository
}

func NewBasicService(t tasksvc.TaskRepository) Service {
	return basicService{tasks: t}
}

// Tasks lists the owner's tasks, newest first. An empty status lists all
// of them.
func (s basicService) Tasks(_ context.Context, a tasksvc.Auth, status tasksvc.Status) ([]tasksvc.Task, error) {
	if a.UserID == 0 {
		return nil, tasksvc.ErrInvalidArgument
	}
	return s.tasks.FindAll(a.UserID, status)
}

func (s basicService) RecentTasks(_ context.Context, a tasksvc.Auth, limit int) ([]tasksvc.Task, error) {
	if a.UserID == 0 || limit <= 0 {
		return nil, tasksvc.ErrInvalidArgument
	}
	return s.tasks.FindRecent(a.UserID, limit)
}

func (s basicService) Task(_ context.Context, a tasksvc.Auth, taskID uint64) (tasksvc.Task, error) {
	if a.UserID == 0 {
		return tasksvc.Task{}, tasksvc.ErrInvalidArgument
	}
	if taskID == 0 {
		return tasksvc.Task{}, tasksvc.ErrTaskNotFound
	}
	return s.tasks.Find(a.UserID, taskID)
}

func (s basicService) CreateTask(_ context.Context, a tasksvc.Auth, title, description string, status tasksvc.Status) (tasksvc.Task, error) {
	if a.UserID == 0 {
		return tasksvc.Task{}, tasksvc.ErrInvalidArgument
	}

	title, description, status, err := validate(title, description, status)
	if err != nil {
		return tasksvc.Task{}, err
	}

	return s.tasks.Create(tasksvc.Task{
		Title:       title,
		Description: description,
		Status:      status,
		CreatedBy:   a.UserID,
	})
}

// UpdateTask resolves the task under the caller's ownership before
// validating, so a foreign or missing id always yields ErrTaskNotFound.
func (s basicService) UpdateTask(_ context.Context, a tasksvc.Auth, task tasksvc.Task) (tasksvc.Task, error) {
	if a.UserID == 0 {
		return tasksvc.Task{}, tasksvc.ErrInvalidArgument
	}
	if task.ID == 0 {
		return tasksvc.Task{}, tasksvc.ErrTaskNotFound
	}

	current, err := s.tasks.Find(a.UserID, task.ID)
	if err != nil {
		return tasksvc.Task{}, err
	}

	title, description, status, err := validate(task.Title, task.Description, task.Status)
	if err != nil {
		return tasksvc.Task{}, err
	}

	current.Title = title
	current.Description = description
	current.Status = status

	return s.tasks.Update(current)
}

func (s basicService) DeleteTask(_ context.Context, a tasksvc.Auth, taskID uint64) (tasksvc.DeleteResult, error) {
	if a.UserID == 0 {
		return tasksvc.NotFound, tasksvc.ErrInvalidArgument
	}
	if taskID == 0 {
		return tasksvc.NotFound, nil
	}
	return s.tasks.Delete(a.UserID, taskID)
}

func (s basicService) Stats(_ context.Context, a tasksvc.Auth) (tasksvc.Stats, error) {
	if a.UserID == 0 {
		return tasksvc.Stats{}, tasksvc.ErrInvalidArgument
	}
	return s.tasks.Stats(a.UserID)
}

// validate checks title first, then status. The first failing rule wins.
func validate(title, description string, status tasksvc.Status) (string, string, tasksvc.Status, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", "", "", tasksvc.ErrTitleRequired
	}
	if utf8.RuneCountInString(title) > tasksvc.MaxTitleLength {
		return "", "", "", tasksvc.ErrTitleTooLong
	}

	if status == "" {
		status = tasksvc.StatusOpen
	}
	if !status.Valid() {
		return "", "", "", tasksvc.ErrInvalidStatus
	}

	return title, strings.TrimSpace(description), status, nil
}
