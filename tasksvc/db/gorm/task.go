package gorm

import (
	"errors"

	"github.com/ichigozero/gtdweb/tasksvc"
	libgorm "gorm.io/gorm"
)

type taskRepository struct {
	db *libgorm.DB
}

func NewTaskRepository(db *libgorm.DB) tasksvc.TaskRepository {
	return &taskRepository{db}
}

func (t *taskRepository) Create(task tasksvc.Task) (tasksvc.Task, error) {
	task.ID = 0
	result := t.db.Create(&task)

	return task, result.Error
}

func (t *taskRepository) FindAll(ownerID uint64, status tasksvc.Status) ([]tasksvc.Task, error) {
	tasks := []tasksvc.Task{}

	query := t.db.Where("created_by = ?", ownerID)
	if status != "" {
		query = query.Where("status = ?", string(status))
	}
	result := query.Order("created_at DESC, id DESC").Find(&tasks)

	return tasks, result.Error
}

func (t *taskRepository) FindRecent(ownerID uint64, limit int) ([]tasksvc.Task, error) {
	tasks := []tasksvc.Task{}
	result := t.db.Where("created_by = ?", ownerID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&tasks)

	return tasks, result.Error
}

func (t *taskRepository) Find(ownerID, taskID uint64) (tasksvc.Task, error) {
	var task tasksvc.Task
	result := t.db.Where("id = ? AND created_by = ?", taskID, ownerID).First(&task)
	if errors.Is(result.Error, libgorm.ErrRecordNotFound) {
		return tasksvc.Task{}, tasksvc.ErrTaskNotFound
	}

	return task, result.Error
}

// Update writes title, description and status of the task owned by
// task.CreatedBy in a single statement. The remaining columns are never
// touched, and task is returned as given.
func (t *taskRepository) Update(task tasksvc.Task) (tasksvc.Task, error) {
	result := t.db.Model(&tasksvc.Task{}).
		Where("id = ? AND created_by = ?", task.ID, task.CreatedBy).
		Updates(map[string]interface{}{
			"title":       task.Title,
			"description": task.Description,
			"status":      string(task.Status),
		})
	if result.Error != nil {
		return tasksvc.Task{}, result.Error
	}
	if result.RowsAffected == 0 {
		return tasksvc.Task{}, tasksvc.ErrTaskNotFound
	}

	return task, nil
}

func (t *taskRepository) Delete(ownerID, taskID uint64) (tasksvc.DeleteResult, error) {
	result := t.db.Where("id = ? AND created_by = ?", taskID, ownerID).Delete(&tasksvc.Task{})
	if result.Error != nil {
		return tasksvc.NotFound, result.Error
	}
	if result.RowsAffected == 0 {
		return tasksvc.NotFound, nil
	}

	return tasksvc.Deleted, nil
}

const statsQuery = `SELECT
	COUNT(*) AS total,
	COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS open,
	COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS in_progress,
	COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS completed
FROM tasks WHERE created_by = ?`

func (t *taskRepository) Stats(ownerID uint64) (tasksvc.Stats, error) {
	var stats tasksvc.Stats
	result := t.db.Raw(
		statsQuery,
		string(tasksvc.StatusOpen),
		string(tasksvc.StatusInProgress),
		string(tasksvc.StatusCompleted),
		ownerID,
	).Scan(&stats)

	return stats, result.Error
}
