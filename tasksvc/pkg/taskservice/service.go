package taskservice

import (
	"context"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/google/uuid"
	"github.com/ichigozero/todokit/authsvc"
	"github.com/ichigozero/todokit/tasksvc"
)

// Service manages the tasks of the authenticated user. A task that does not
// exist, belongs to someone else or has a malformed ID is reported as
// tasksvc.ErrTaskNotFound in every case.
type Service interface {
	CreateTask(ctx context.Context, a authsvc.Auth, text string) (tasksvc.Task, error)
	Tasks(ctx context.Context, a authsvc.Auth) ([]tasksvc.Task, error)
	Task(ctx context.Context, a authsvc.Auth, taskID string) (tasksvc.Task, error)
	UpdateTask(ctx context.Context, a authsvc.Auth, taskID string, p tasksvc.Patch) (tasksvc.Task, error)
	DeleteTask(ctx context.Context, a authsvc.Auth, taskID string) (tasksvc.Task, error)
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
	now   func() int64
}

func NewBasicService(t tasksvc.TaskRepository) Service {
	return basicService{
		tasks: t,
		now:   func() int64 { return time.Now().UnixMilli() },
	}
}

func (s basicService) CreateTask(ctx context.Context, a authsvc.Auth, text string) (tasksvc.Task, error) {
	if a.User.ID == "" {
		return tasksvc.Task{}, authsvc.ErrUnauthenticated
	}

	text, err := tasksvc.NormalizeText(text)
	if err != nil {
		return tasksvc.Task{}, err
	}

	task := tasksvc.Task{
		ID:        uuid.NewString(),
		Text:      text,
		CreatorID: a.User.ID,
	}
	if err := s.tasks.Create(ctx, &task); err != nil {
		return tasksvc.Task{}, err
	}
	return task, nil
}

func (s basicService) Tasks(ctx context.Context, a authsvc.Auth) ([]tasksvc.Task, error) {
	if a.User.ID == "" {
		return nil, authsvc.ErrUnauthenticated
	}
	return s.tasks.FindAll(ctx, a.User.ID)
}

func (s basicService) Task(ctx context.Context, a authsvc.Auth, taskID string) (tasksvc.Task, error) {
	if err := checkTaskAccess(a, taskID); err != nil {
		return tasksvc.Task{}, err
	}
	return s.tasks.Find(ctx, a.User.ID, taskID)
}

// UpdateTask applies p to the task. Completed set to true stamps
// CompletedAt with the current time even when the task was already
// completed; anything else clears both fields.
func (s basicService) UpdateTask(ctx context.Context, a authsvc.Auth, taskID string, p tasksvc.Patch) (tasksvc.Task, error) {
	if err := checkTaskAccess(a, taskID); err != nil {
		return tasksvc.Task{}, err
	}

	task, err := s.tasks.Find(ctx, a.User.ID, taskID)
	if err != nil {
		return tasksvc.Task{}, err
	}

	if p.Text != nil {
		text, err := tasksvc.NormalizeText(*p.Text)
		if err != nil {
			return tasksvc.Task{}, err
		}
		task.Text = text
	}

	if p.Completed {
		at := s.now()
		task.Completed = true
		task.CompletedAt = &at
	} else {
		task.Completed = false
		task.CompletedAt = nil
	}

	return s.tasks.Update(ctx, task)
}

func (s basicService) DeleteTask(ctx context.Context, a authsvc.Auth, taskID string) (tasksvc.Task, error) {
	if err := checkTaskAccess(a, taskID); err != nil {
		return tasksvc.Task{}, err
	}
	return s.tasks.Delete(ctx, a.User.ID, taskID)
}

func checkTaskAccess(a authsvc.Auth, taskID string) error {
	if a.User.ID == "" {
		return authsvc.ErrUnauthenticated
	}
	if _, err := uuid.Parse(taskID); err != nil {
		return tasksvc.ErrTaskNotFound
	}
	return nil
}
