package tasksvc

import (
	"errors"
	"time"
)

type Status string

const (
	StatusOpen       Status = "Open"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
	StatusClosed     Status = "Closed"
)

// Statuses lists every accepted status in display order.
var Statuses = []Status{StatusOpen, StatusInProgress, StatusCompleted, StatusClosed}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Task is owned by the user recorded in CreatedBy. Every lookup is scoped
// by owner as well as by id.
type Task struct {
	ID          uint64    `gorm:"primaryKey"`
	Title       string    `gorm:"size:100;not null"`
	Description string    `gorm:"type:text"`
	Status      Status    `gorm:"size:20;not null;default:Open;index"`
	CreatedBy   uint64    `gorm:"column:created_by;not null;index"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

// Stats counts an owner's tasks. Closed tasks only appear in Total.
type Stats struct {
	Total      int64
	Open       int64
	InProgress int64
	Completed  int64
}

type DeleteResult int

const (
	NotFound DeleteResult = iota
	Deleted
)

func (r DeleteResult) String() string {
	if r == Deleted {
		return "deleted"
	}
	return "not_found"
}

type TaskRepository interface {
	Create(task Task) (Task, error)
	FindAll(ownerID uint64, status Status) ([]Task, error)
	FindRecent(ownerID uint64, limit int) ([]Task, error)
	Find(ownerID, taskID uint64) (Task, error)
	Update(task Task) (Task, error)
	Delete(ownerID, taskID uint64) (DeleteResult, error)
	Stats(ownerID uint64) (Stats, error)
}

// Auth identifies the user a task operation runs for.
type Auth struct {
	UserID uint64
}

// ValidationError reports user input that was rejected before any write.
type ValidationError struct {
	Message string
}

func (e ValidationError) Error() string { return e.Message }

var (
	ErrTitleRequired = ValidationError{"title required"}
	ErrTitleTooLong  = ValidationError{"title too long"}
	ErrInvalidStatus = ValidationError{"invalid status"}
)

const MaxTitleLength = 100

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrTaskNotFound    = errors.New("task not found")
)
