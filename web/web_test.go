package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ichigozero/gtdweb/authsvc"
	"github.com/ichigozero/gtdweb/tasksvc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, status int, name string, p Page) *httptest.ResponseRecorder {
	t.Helper()

	r, err := NewRenderer()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, r.Render(rec, status, name, p))
	return rec
}

func TestRender_Login(t *testing.T) {
	rec := render(t, http.StatusUnauthorized, "login.html", Page{
		Title: "Login",
		Error: "Invalid password.",
		Data:  LoginView{Username: `admin"><script>`},
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "Invalid password.")
	assert.NotContains(t, body, "<script>")
	assert.NotContains(t, body, "admin123")
	assert.NotContains(t, body, "Logout", "navigation is only shown to logged-in users")
}

func TestRender_TaskList(t *testing.T) {
	long := strings.Repeat("d", 60)
	rec := render(t, http.StatusOK, "tasks.html", Page{
		Title:    "View Tasks",
		Username: "admin",
		Flashes:  []authsvc.Flash{{Kind: authsvc.FlashSuccess, Message: "Task deleted successfully!"}},
		Data: TaskListView{
			Tasks: []tasksvc.Task{
				{ID: 7, Title: "<b>Bold</b>", Description: long, Status: tasksvc.StatusInProgress, CreatedAt: time.Now().Add(-time.Hour)},
			},
			Filter:   tasksvc.StatusInProgress,
			Statuses: tasksvc.Statuses,
		},
	})

	body := rec.Body.String()
	assert.Contains(t, body, "Task deleted successfully!")
	assert.Contains(t, body, "&lt;b&gt;Bold&lt;/b&gt;")
	assert.Contains(t, body, strings.Repeat("d", 50)+"...")
	assert.NotContains(t, body, long)
	assert.Contains(t, body, "status-in-progress")
	assert.Contains(t, body, `<option value="In Progress" selected>`)
	assert.Contains(t, body, "/tasks/edit?id=7")
	assert.Contains(t, body, "/tasks/delete?id=7")
	assert.Contains(t, body, "1 hour ago")
	assert.Contains(t, body, "<th>Created By</th>")
	assert.Contains(t, body, "<td>admin</td>")
	assert.Contains(t, body, "Logout")
}

func TestRender_EmptyTaskList(t *testing.T) {
	rec := render(t, http.StatusOK, "tasks.html", Page{
		Username: "admin",
		Data:     TaskListView{Tasks: []tasksvc.Task{}, Filter: tasksvc.StatusClosed, Statuses: tasksvc.Statuses},
	})

	assert.Contains(t, rec.Body.String(), `No tasks with status "Closed".`)
}

func TestRender_Dashboard(t *testing.T) {
	rec := render(t, http.StatusOK, "dashboard.html", Page{
		Username: "admin",
		Data: DashboardView{
			Stats:  tasksvc.Stats{Total: 4, Open: 2, InProgress: 1, Completed: 0},
			Recent: []tasksvc.Task{{ID: 1, Title: "First", Status: tasksvc.StatusOpen, CreatedAt: time.Now()}},
		},
	})

	body := rec.Body.String()
	assert.Contains(t, body, `id="stat-total">4<`)
	assert.Contains(t, body, `id="stat-open">2<`)
	assert.Contains(t, body, `id="stat-in-progress">1<`)
	assert.Contains(t, body, `id="stat-completed">0<`)
	assert.Contains(t, body, "First")
	assert.Contains(t, body, "<td>admin</td>")
}

func TestRender_TaskForm(t *testing.T) {
	create := render(t, http.StatusUnprocessableEntity, "task_form.html", Page{
		Username: "admin",
		Error:    "Task title is required.",
		Data:     TaskFormView{Description: "kept input", Status: tasksvc.StatusClosed, Statuses: tasksvc.Statuses},
	}).Body.String()
	assert.Contains(t, create, `action="/tasks/create"`)
	assert.Contains(t, create, "kept input")
	assert.Contains(t, create, `<option value="Closed" selected>`)

	edit := render(t, http.StatusOK, "task_form.html", Page{
		Username: "admin",
		Data:     TaskFormView{ID: 3, Title: "Existing", Status: tasksvc.StatusOpen, CreatedAt: time.Now(), Statuses: tasksvc.Statuses},
	}).Body.String()
	assert.Contains(t, edit, `action="/tasks/edit?id=3"`)
	assert.Contains(t, edit, "Update Task")
}

func TestRender_UnknownTemplate(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	assert.Error(t, r.Render(rec, http.StatusOK, "missing.html", Page{}))
	assert.Equal(t, 0, rec.Body.Len())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate(50, "short"))
	assert.Equal(t, "ééé...", truncate(3, "éééé"))
	assert.Equal(t, "abc", truncate(3, "abc"))
}
