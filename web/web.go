// Package web renders the HTML pages of the task tracker from templates
// embedded in the binary.
package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/ichigozero/gtdweb/authsvc"
	"github.com/ichigozero/gtdweb/tasksvc"
)

//go:embed templates/*.html
var templateFS embed.FS

// DescriptionPreview is the number of description characters shown in
// task tables.
const DescriptionPreview = 50

var funcMap = template.FuncMap{
	"truncate":    truncate,
	"ago":         humanize.Time,
	"date":        func(t time.Time) string { return t.Format("Jan 02, 2006 03:04 PM") },
	"statusClass": statusClass,
	"preview":     func(s string) string { return truncate(DescriptionPreview, s) },
	"rows":        func(tasks []tasksvc.Task, owner string) TaskRows { return TaskRows{Tasks: tasks, Owner: owner} },
}

// Page is the data handed to every template.
type Page struct {
	Title    string
	Username string
	Flashes  []authsvc.Flash
	Error    string
	Data     interface{}
}

type LoginView struct {
	Username string
}

type DashboardView struct {
	Stats  tasksvc.Stats
	Recent []tasksvc.Task
}

type TaskListView struct {
	Tasks    []tasksvc.Task
	Filter   tasksvc.Status
	Statuses []tasksvc.Status
}

// TaskRows feeds the shared task table. Every listed task belongs to the
// logged-in user, so Owner fills the creator column.
type TaskRows struct {
	Tasks []tasksvc.Task
	Owner string
}

type TaskFormView struct {
	ID          uint64
	Title       string
	Description string
	Status      tasksvc.Status
	CreatedAt   time.Time
	Statuses    []tasksvc.Status
}

func (v TaskFormView) Editing() bool { return v.ID != 0 }

type Renderer struct {
	tmpl *template.Template
}

func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render executes the named template into a buffer first so that a
// template error never leaves a half-written page behind.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, p Page) error {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, p); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func truncate(n int, s string) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

func statusClass(s tasksvc.Status) string {
	return "status-" + strings.ToLower(strings.ReplaceAll(string(s), " ", "-"))
}
