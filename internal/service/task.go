package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jageshm/task-manager-api/internal/metrics"
	"github.com/jageshm/task-manager-api/internal/model"
	"github.com/jageshm/task-manager-api/internal/repository"
)

// Task service errors.
var (
	ErrTitleRequired = errors.New("title is required")
	ErrInvalidStatus = errors.New("invalid task status")
	ErrTaskNotFound  = errors.New("task not found")
)

// TaskService handles task business logic. Every operation takes the
// authenticated owner's id; ownership is enforced by the repository's
// query predicates, never by a separate authorization pass.
type TaskService struct {
	repo    *repository.Repository
	metrics metrics.Recorder
}

// NewTaskService creates a new TaskService.
func NewTaskService(repo *repository.Repository, recorder metrics.Recorder) *TaskService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &TaskService{
		repo:    repo,
		metrics: recorder,
	}
}

// CreateTaskInput defines input for creating a task.
type CreateTaskInput struct {
	Title       string
	Description *string
	Status      string
}

// UpdateTaskInput defines a partial update. Nil fields stay untouched.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Status      *string
}

// Create validates the input and persists a new task for ownerID.
// Status defaults to pending when absent.
func (s *TaskService) Create(ctx context.Context, ownerID int64, input CreateTaskInput) (*model.Task, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, ErrTitleRequired
	}

	status := model.StatusPending
	if input.Status != "" {
		status = model.TaskStatus(input.Status)
		if !status.IsValid() {
			return nil, ErrInvalidStatus
		}
	}

	task := &model.Task{
		Title:       input.Title,
		Description: input.Description,
		Status:      status,
		OwnerID:     ownerID,
	}

	if err := s.repo.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	s.metrics.IncTaskCreated()

	return task, nil
}

// List returns every task owned by ownerID.
func (s *TaskService) List(ctx context.Context, ownerID int64) ([]*model.Task, error) {
	tasks, err := s.repo.ListTasks(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// Update applies a partial update to one of ownerID's tasks.
// A task owned by someone else is indistinguishable from a missing one.
func (s *TaskService) Update(ctx context.Context, ownerID, id int64, input UpdateTaskInput) (*model.Task, error) {
	patch := repository.TaskPatch{
		Title:       input.Title,
		Description: input.Description,
	}

	if input.Title != nil && strings.TrimSpace(*input.Title) == "" {
		return nil, ErrTitleRequired
	}

	if input.Status != nil {
		status := model.TaskStatus(*input.Status)
		if !status.IsValid() {
			return nil, ErrInvalidStatus
		}
		patch.Status = &status
	}

	task, err := s.repo.UpdateTask(ctx, ownerID, id, patch)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("update task: %w", err)
	}

	s.metrics.IncTaskUpdated()

	return task, nil
}

// Delete permanently removes one of ownerID's tasks.
// Returns ErrTaskNotFound when no row matched; a repeated delete is not
// an internal error.
func (s *TaskService) Delete(ctx context.Context, ownerID, id int64) error {
	deleted, err := s.repo.DeleteTask(ctx, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if !deleted {
		return ErrTaskNotFound
	}

	s.metrics.IncTaskDeleted()

	return nil
}
