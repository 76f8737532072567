package gorm

import (
	"context"
	"errors"
	"fmt"

	"github.com/ichigozero/todokit/tasksvc"
	libgorm "gorm.io/gorm"
)

type taskRepository struct {
	db *libgorm.DB
}

func NewTaskRepository(db *libgorm.DB) tasksvc.TaskRepository {
	return &taskRepository{db}
}

func (t *taskRepository) Create(ctx context.Context, task *tasksvc.Task) error {
	result := t.db.WithContext(ctx).Create(task)
	if result.Error != nil {
		return fmt.Errorf("create task: %w", result.Error)
	}
	return nil
}

func (t *taskRepository) FindAll(ctx context.Context, creatorID string) ([]tasksvc.Task, error) {
	tasks := []tasksvc.Task{}
	result := t.db.WithContext(ctx).
		Where("creator_id = ?", creatorID).
		Order("created_at, id").
		Find(&tasks)
	if result.Error != nil {
		return nil, fmt.Errorf("find tasks: %w", result.Error)
	}
	return tasks, nil
}

func (t *taskRepository) Find(ctx context.Context, creatorID, taskID string) (tasksvc.Task, error) {
	var task tasksvc.Task
	result := t.db.WithContext(ctx).
		Where("id = ? AND creator_id = ?", taskID, creatorID).
		First(&task)

	if errors.Is(result.Error, libgorm.ErrRecordNotFound) {
		return tasksvc.Task{}, tasksvc.ErrTaskNotFound
	}
	if result.Error != nil {
		return tasksvc.Task{}, fmt.Errorf("find task: %w", result.Error)
	}
	return task, nil
}

// Update writes the mutable fields of task, zero values included, and
// returns the stored row.
func (t *taskRepository) Update(ctx context.Context, task tasksvc.Task) (tasksvc.Task, error) {
	result := t.db.WithContext(ctx).
		Model(&tasksvc.Task{}).
		Where("id = ? AND creator_id = ?", task.ID, task.CreatorID).
		Updates(map[string]interface{}{
			"text":         task.Text,
			"completed":    task.Completed,
			"completed_at": task.CompletedAt,
		})
	if result.Error != nil {
		return tasksvc.Task{}, fmt.Errorf("update task: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return tasksvc.Task{}, tasksvc.ErrTaskNotFound
	}

	return t.Find(ctx, task.CreatorID, task.ID)
}

// Delete removes the task and returns it as it was.
func (t *taskRepository) Delete(ctx context.Context, creatorID, taskID string) (tasksvc.Task, error) {
	task, err := t.Find(ctx, creatorID, taskID)
	if err != nil {
		return tasksvc.Task{}, err
	}

	result := t.db.WithContext(ctx).
		Where("id = ? AND creator_id = ?", taskID, creatorID).
		Delete(&tasksvc.Task{})
	if result.Error != nil {
		return tasksvc.Task{}, fmt.Errorf("delete task: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return tasksvc.Task{}, tasksvc.ErrTaskNotFound
	}
	return task, nil
}
