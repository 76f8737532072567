package taskendpoint

import (
	"context"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/ichigozero/todokit/authsvc"
	"github.com/ichigozero/todokit/tasksvc"
	"github.com/ichigozero/todokit/tasksvc/pkg/taskservice"
)

type Set struct {
	CreateTaskEndpoint endpoint.Endpoint
	TasksEndpoint      endpoint.Endpoint
	TaskEndpoint       endpoint.Endpoint
	UpdateTaskEndpoint endpoint.Endpoint
	DeleteTaskEndpoint endpoint.Endpoint
}

// New builds the server endpoints. Each one expects the authentication gate
// to have put an authsvc.Auth in the context.
func New(svc taskservice.Service, logger log.Logger) Set {
	var createTaskEndpoint endpoint.Endpoint
	{
		createTaskEndpoint = MakeCreateTaskEndpoint(svc)
		createTaskEndpoint = LoggingMiddleware(log.With(logger, "method", "CreateTask"))(createTaskEndpoint)
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
		CreateTaskEndpoint: createTaskEndpoint,
		TasksEndpoint:      tasksEndpoint,
		TaskEndpoint:       taskEndpoint,
		UpdateTaskEndpoint: updateTaskEndpoint,
		DeleteTaskEndpoint: deleteTaskEndpoint,
	}
}

func (s Set) CreateTask(ctx context.Context, a authsvc.Auth, text string) (tasksvc.Task, error) {
	resp, err := s.CreateTaskEndpoint(authsvc.NewContext(ctx, a), CreateTaskRequest{Text: text})
	if err != nil {
		return tasksvc.Task{}, err
	}
	response := resp.(CreateTaskResponse)
	return response.Task, response.Err
}

func (s Set) Tasks(ctx context.Context, a authsvc.Auth) ([]tasksvc.Task, error) {
	resp, err := s.TasksEndpoint(authsvc.NewContext(ctx, a), TasksRequest{})
	if err != nil {
		return nil, err
	}
	response := resp.(TasksResponse)
	return response.Tasks, response.Err
}

func (s Set) Task(ctx context.Context, a authsvc.Auth, taskID string) (tasksvc.Task, error) {
	resp, err := s.TaskEndpoint(authsvc.NewContext(ctx, a), TaskRequest{TaskID: taskID})
	if err != nil {
		return tasksvc.Task{}, err
	}
	response := resp.(TaskResponse)
	return response.Task, response.Err
}

func (s Set) UpdateTask(ctx context.Context, a authsvc.Auth, taskID string, p tasksvc.Patch) (tasksvc.Task, error) {
	resp, err := s.UpdateTaskEndpoint(authsvc.NewContext(ctx, a), UpdateTaskRequest{TaskID: taskID, Patch: p})
	if err != nil {
		return tasksvc.Task{}, err
	}
	response := resp.(UpdateTaskResponse)
	return response.Task, response.Err
}

func (s Set) DeleteTask(ctx context.Context, a authsvc.Auth, taskID string) (tasksvc.Task, error) {
	resp, err := s.DeleteTaskEndpoint(authsvc.NewContext(ctx, a), DeleteTaskRequest{TaskID: taskID})
	if err != nil {
		return tasksvc.Task{}, err
	}
	response := resp.(DeleteTaskResponse)
	return response.Task, response.Err
}

func MakeCreateTaskEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		a, ok := authsvc.FromContext(ctx)
		if !ok {
			return CreateTaskResponse{Err: authsvc.ErrAuthContextMissing}, nil
		}

		req := request.(CreateTaskRequest)
		t, err := s.CreateTask(ctx, a, req.Text)
		return CreateTaskResponse{Task: t, Err: err}, nil
	}
}

func MakeTasksEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		a, ok := authsvc.FromContext(ctx)
		if !ok {
			return TasksResponse{Err: authsvc.ErrAuthContextMissing}, nil
		}

		_ = request.(TasksRequest)
		t, err := s.Tasks(ctx, a)
		return TasksResponse{Tasks: t, Err: err}, nil
	}
}

func MakeTaskEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		a, ok := authsvc.FromContext(ctx)
		if !ok {
			return TaskResponse{Err: authsvc.ErrAuthContextMissing}, nil
		}

		req := request.(TaskRequest)
		t, err := s.Task(ctx, a, req.TaskID)
		return TaskResponse{Task: t, Err: err}, nil
	}
}

func MakeUpdateTaskEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		a, ok := authsvc.FromContext(ctx)
		if !ok {
			return UpdateTaskResponse{Err: authsvc.ErrAuthContextMissing}, nil
		}

		req := request.(UpdateTaskRequest)
		t, err := s.UpdateTask(ctx, a, req.TaskID, req.Patch)
		return UpdateTaskResponse{Task: t, Err: err}, nil
	}
}

func MakeDeleteTaskEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		a, ok := authsvc.FromContext(ctx)
		if !ok {
			return DeleteTaskResponse{Err: authsvc.ErrAuthContextMissing}, nil
		}

		req := request.(DeleteTaskRequest)
		t, err := s.DeleteTask(ctx, a, req.TaskID)
		return DeleteTaskResponse{Task: t, Err: err}, nil
	}
}

var (
	_ endpoint.Failer = CreateTaskResponse{}
	_ endpoint.Failer = TasksResponse{}
	_ endpoint.Failer = TaskResponse{}
	_ endpoint.Failer = UpdateTaskResponse{}
	_ endpoint.Failer = DeleteTaskResponse{}
)

type CreateTaskRequest struct {
	Text string `json:"text"`
}

// CreateTaskResponse encodes as the bare task.
type CreateTaskResponse struct {
	tasksvc.Task
	Err error `json:"-"`
}

func (r CreateTaskResponse) Failed() error { return r.Err }

type TasksRequest struct{}

type TasksResponse struct {
	Tasks []tasksvc.Task `json:"todos"`
	Err   error          `json:"-"`
}

func (r TasksResponse) Failed() error { return r.Err }

type TaskRequest struct {
	TaskID string
}

type TaskResponse struct {
	Task tasksvc.Task `json:"todo"`
	Err  error        `json:"-"`
}

func (r TaskResponse) Failed() error { return r.Err }

type UpdateTaskRequest struct {
	TaskID string
	Patch  tasksvc.Patch
}

type UpdateTaskResponse struct {
	Task tasksvc.Task `json:"todo"`
	Err  error        `json:"-"`
}

func (r UpdateTaskResponse) Failed() error { return r.Err }

type DeleteTaskRequest struct {
	TaskID string
}

type DeleteTaskResponse struct {
	Task tasksvc.Task `json:"todo"`
	Err  error        `json:"-"`
}

func (r DeleteTaskResponse) Failed() error { return r.Err }
