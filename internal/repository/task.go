package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jageshm/task-manager-api/internal/model"
)

// ErrTaskNotFound is returned when no task matches the (id, owner) pair.
// Callers cannot distinguish "does not exist" from "owned by someone else";
// that is deliberate.
var ErrTaskNotFound = errors.New("task not found")

// TaskPatch carries a partial update. Nil fields are left untouched.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *model.TaskStatus
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil
}

// CreateTask inserts a new task and fills in the generated id.
// The row always carries the owner's id.
func (r *Repository) CreateTask(ctx context.Context, task *model.Task) error {
	query := `
		INSERT INTO tasks (title, description, status, user_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		task.Title,
		task.Description,
		task.Status,
		task.OwnerID,
	).Scan(&task.ID)

	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

// ListTasks retrieves every task owned by ownerID.
// No ordering is guaranteed beyond natural storage order; presentation
// ordering is the client's concern.
func (r *Repository) ListTasks(ctx context.Context, ownerID int64) ([]*model.Task, error) {
	query := `
		SELECT id, title, description, status, user_id
		FROM tasks
		WHERE user_id = $1
	`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]*model.Task, 0)
	for rows.Next() {
		task, err := scanTaskFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return tasks, nil
}

// GetTask retrieves a single task by id, scoped to its owner.
// The owner predicate is conjoined into the WHERE clause; filtering on the
// id alone would be a cross-tenant leak.
func (r *Repository) GetTask(ctx context.Context, ownerID, id int64) (*model.Task, error) {
	query := `
		SELECT id, title, description, status, user_id
		FROM tasks
		WHERE id = $1 AND user_id = $2
	`

	task, err := scanTask(r.pool.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return task, nil
}

// UpdateTask applies a partial update to a task, scoped to its owner.
// Only non-nil patch fields are written; everything else keeps its stored
// value. Returns the updated row, or ErrTaskNotFound if no row matched
// the (id, owner) pair.
func (r *Repository) UpdateTask(ctx context.Context, ownerID, id int64, patch TaskPatch) (*model.Task, error) {
	if patch.IsEmpty() {
		return r.GetTask(ctx, ownerID, id)
	}

	// Build the SET clause from present fields only.
	query := `UPDATE tasks SET `
	args := []any{}
	argIndex := 1

	if patch.Title != nil {
		query += fmt.Sprintf("title = $%d, ", argIndex)
		args = append(args, *patch.Title)
		argIndex++
	}

	if patch.Description != nil {
		query += fmt.Sprintf("description = $%d, ", argIndex)
		args = append(args, *patch.Description)
		argIndex++
	}

	if patch.Status != nil {
		query += fmt.Sprintf("status = $%d, ", argIndex)
		args = append(args, *patch.Status)
		argIndex++
	}

	query = query[:len(query)-2] // trim trailing ", "
	query += fmt.Sprintf(" WHERE id = $%d AND user_id = $%d", argIndex, argIndex+1)
	args = append(args, id, ownerID)
	query += ` RETURNING id, title, description, status, user_id`

	task, err := scanTask(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return task, nil
}

// DeleteTask permanently removes a task, scoped to its owner.
// Returns true if a row was removed; false (without error) when nothing
// matched, so repeated deletes are idempotent.
func (r *Repository) DeleteTask(ctx context.Context, ownerID, id int64) (bool, error) {
	query := `
		DELETE FROM tasks
		WHERE id = $1 AND user_id = $2
	`

	result, err := r.pool.Exec(ctx, query, id, ownerID)
	if err != nil {
		return false, fmt.Errorf("failed to delete task: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// scanTask scans a single row into a Task model.
func scanTask(row pgx.Row) (*model.Task, error) {
	var task model.Task
	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.OwnerID,
	)
	return &task, err
}

// scanTaskFromRows scans a row from pgx.Rows into a Task model.
func scanTaskFromRows(rows pgx.Rows) (*model.Task, error) {
	var task model.Task
	err := rows.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.OwnerID,
	)
	return &task, err
}
