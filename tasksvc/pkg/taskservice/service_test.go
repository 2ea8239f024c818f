package taskservice

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/go-kit/kit/log"
	"github.com/ichigozero/gtdweb/tasksvc"
	taskgorm "github.com/ichigozero/gtdweb/tasksvc/db/gorm"
	"gorm.io/driver/sqlite"
	libgorm "gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	alice = tasksvc.Auth{UserID: 1}
	bob   = tasksvc.Auth{UserID: 2}
)

func newTestService(t *testing.T) (Service, tasksvc.TaskRepository) {
	t.Helper()

	db, err := libgorm.Open(sqlite.Open(":memory:"), &libgorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(&tasksvc.Task{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	repo := taskgorm.NewTaskRepository(db)
	return New(repo, log.NewNopLogger()), repo
}

func TestCreateTask_ThenListed(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateTask(ctx, alice, "  Buy milk  ", "  2 litres ", tasksvc.StatusInProgress)
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	tasks, err := svc.Tasks(ctx, alice, "")
	if err != nil {
		t.Fatalf("Tasks() error = %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("Tasks() returned %d tasks, want 1", len(tasks))
	}

	got := tasks[0]
	if got.ID != created.ID || got.Title != "Buy milk" || got.Description != "2 litres" ||
		got.Status != tasksvc.StatusInProgress || got.CreatedBy != alice.UserID {
		t.Errorf("listed task = %+v", got)
	}
}

func TestCreateTask_DefaultsToOpen(t *testing.T) {
	svc, _ := newTestService(t)

	task, err := svc.CreateTask(context.Background(), alice, "Title", "", "")
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if task.Status != tasksvc.StatusOpen {
		t.Errorf("status = %q, want %q", task.Status, tasksvc.StatusOpen)
	}
}

func TestCreateTask_Validation(t *testing.T) {
	tests := []struct {
		name   string
		title  string
		status tasksvc.Status
		want   error
	}{
		{"empty title", "", tasksvc.StatusOpen, tasksvc.ErrTitleRequired},
		{"blank title", "   \t", tasksvc.StatusOpen, tasksvc.ErrTitleRequired},
		{"title too long", strings.Repeat("a", 101), tasksvc.StatusOpen, tasksvc.ErrTitleTooLong},
		{"title checked before status", "", "Bogus", tasksvc.ErrTitleRequired},
		{"unknown status", "Title", "Bogus", tasksvc.ErrInvalidStatus},
		{"status is case sensitive", "Title", "open", tasksvc.ErrInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestService(t)

			_, err := svc.CreateTask(context.Background(), alice, tt.title, "x", tt.status)
			if !errors.Is(err, tt.want) {
				t.Fatalf("CreateTask() error = %v, want %v", err, tt.want)
			}
			var verr tasksvc.ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("CreateTask() error %v is not a ValidationError", err)
			}

			tasks, _ := repo.FindAll(alice.UserID, "")
			if len(tasks) != 0 {
				t.Errorf("%d tasks persisted after a validation failure", len(tasks))
			}
		})
	}
}

func TestCreateTask_TitleLengthCountsCharacters(t *testing.T) {
	svc, _ := newTestService(t)

	title := strings.Repeat("é", 100)
	task, err := svc.CreateTask(context.Background(), alice, title, "", "")
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if task.Title != title {
		t.Errorf("title = %q, want %q", task.Title, title)
	}
}

func TestUpdateTask_RoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateTask(ctx, alice, "Old", "Old desc", "")
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	_, err = svc.UpdateTask(ctx, alice, tasksvc.Task{
		ID:          created.ID,
		Title:       "New Title",
		Description: "New Desc",
		Status:      tasksvc.StatusCompleted,
	})
	if err != nil {
		t.Fatalf("UpdateTask() error = %v", err)
	}

	got, err := svc.Task(ctx, alice, created.ID)
	if err != nil {
		t.Fatalf("Task() error = %v", err)
	}
	if got.Title != "New Title" || got.Description != "New Desc" || got.Status != tasksvc.StatusCompleted {
		t.Errorf("Task() = %+v", got)
	}
	if got.ID != created.ID || got.CreatedBy != created.CreatedBy || !got.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("immutable fields changed: got %+v, created %+v", got, created)
	}
}

func TestUpdateTask_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, _ := svc.CreateTask(ctx, alice, "Keep", "", "")

	_, err := svc.UpdateTask(ctx, alice, tasksvc.Task{ID: created.ID, Title: " ", Status: tasksvc.StatusOpen})
	if err != tasksvc.ErrTitleRequired {
		t.Fatalf("UpdateTask() error = %v, want %v", err, tasksvc.ErrTitleRequired)
	}
	if got, _ := svc.Task(ctx, alice, created.ID); got.Title != "Keep" {
		t.Errorf("title changed to %q after rejected update", got.Title)
	}
}

func TestOwnershipIsEnforced(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, alice, "Private", "secret", tasksvc.StatusOpen)
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	if _, err := svc.Task(ctx, bob, task.ID); err != tasksvc.ErrTaskNotFound {
		t.Errorf("Task() by bob error = %v, want %v", err, tasksvc.ErrTaskNotFound)
	}

	// An invalid update from a non-owner still reports not found.
	_, err = svc.UpdateTask(ctx, bob, tasksvc.Task{ID: task.ID, Title: "", Status: "Bogus"})
	if err != tasksvc.ErrTaskNotFound {
		t.Errorf("UpdateTask() by bob error = %v, want %v", err, tasksvc.ErrTaskNotFound)
	}

	res, err := svc.DeleteTask(ctx, bob, task.ID)
	if err != nil || res != tasksvc.NotFound {
		t.Errorf("DeleteTask() by bob = (%v, %v), want (not_found, nil)", res, err)
	}

	got, err := svc.Task(ctx, alice, task.ID)
	if err != nil {
		t.Fatalf("Task() error = %v", err)
	}
	if got.Title != "Private" || got.Description != "secret" || got.Status != tasksvc.StatusOpen {
		t.Errorf("task changed by another owner: %+v", got)
	}

	if tasks, _ := svc.Tasks(ctx, bob, ""); len(tasks) != 0 {
		t.Errorf("bob sees %d of alice's tasks", len(tasks))
	}
}

func TestDeleteTask(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	task, _ := svc.CreateTask(ctx, alice, "Delete me", "", "")

	res, err := svc.DeleteTask(ctx, alice, task.ID)
	if err != nil || res != tasksvc.Deleted {
		t.Fatalf("DeleteTask() = (%v, %v), want (deleted, nil)", res, err)
	}
	if _, err := svc.Task(ctx, alice, task.ID); err != tasksvc.ErrTaskNotFound {
		t.Errorf("Task() after delete error = %v, want %v", err, tasksvc.ErrTaskNotFound)
	}

	res, err = svc.DeleteTask(ctx, alice, 0)
	if err != nil || res != tasksvc.NotFound {
		t.Errorf("DeleteTask(0) = (%v, %v), want (not_found, nil)", res, err)
	}
}

func TestTasks_StatusFilter(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, tc := range []struct {
		title  string
		status tasksvc.Status
	}{
		{"one", tasksvc.StatusCompleted},
		{"two", tasksvc.StatusOpen},
		{"three", tasksvc.StatusCompleted},
	} {
		if _, err := svc.CreateTask(ctx, alice, tc.title, "", tc.status); err != nil {
			t.Fatalf("CreateTask() error = %v", err)
		}
	}

	tasks, err := svc.Tasks(ctx, alice, tasksvc.StatusCompleted)
	if err != nil {
		t.Fatalf("Tasks() error = %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("Tasks() returned %d tasks, want 2", len(tasks))
	}
	for _, task := range tasks {
		if task.Status != tasksvc.StatusCompleted {
			t.Errorf("Tasks() returned status %q", task.Status)
		}
	}
	if tasks[0].Title != "three" || tasks[1].Title != "one" {
		t.Errorf("Tasks() order = [%s %s], want newest first", tasks[0].Title, tasks[1].Title)
	}
}

func TestStats(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	stats, err := svc.Stats(ctx, alice)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats != (tasksvc.Stats{}) {
		t.Errorf("Stats() = %+v, want zeros", stats)
	}

	svc.CreateTask(ctx, alice, "a", "", tasksvc.StatusOpen)
	svc.CreateTask(ctx, alice, "b", "", tasksvc.StatusCompleted)
	svc.CreateTask(ctx, bob, "c", "", tasksvc.StatusOpen)

	stats, _ = svc.Stats(ctx, alice)
	if want := (tasksvc.Stats{Total: 2, Open: 1, Completed: 1}); stats != want {
		t.Errorf("Stats() = %+v, want %+v", stats, want)
	}
}

func TestRecentTasks(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < RecentLimit+2; i++ {
		svc.CreateTask(ctx, alice, "task", "", "")
	}

	tasks, err := svc.RecentTasks(ctx, alice, RecentLimit)
	if err != nil {
		t.Fatalf("RecentTasks() error = %v", err)
	}
	if len(tasks) != RecentLimit {
		t.Errorf("RecentTasks() returned %d tasks, want %d", len(tasks), RecentLimit)
	}
}

func TestRequiresOwner(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	anon := tasksvc.Auth{}

	if _, err := svc.Tasks(ctx, anon, ""); err != tasksvc.ErrInvalidArgument {
		t.Errorf("Tasks() error = %v, want %v", err, tasksvc.ErrInvalidArgument)
	}
	if _, err := svc.CreateTask(ctx, anon, "x", "", ""); err != tasksvc.ErrInvalidArgument {
		t.Errorf("CreateTask() error = %v, want %v", err, tasksvc.ErrInvalidArgument)
	}
	if _, err := svc.Stats(ctx, anon); err != tasksvc.ErrInvalidArgument {
		t.Errorf("Stats() error = %v, want %v", err, tasksvc.ErrInvalidArgument)
	}
}
