package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/coin-rewards-ledger/internal/model"
	"github.com/fairyhunter13/coin-rewards-ledger/internal/service"
	"github.com/fairyhunter13/coin-rewards-ledger/pkg/database"
)

const taskColumns = `id, title, description, category, reward, link, is_active, created_at`

// TaskRepository provides data access for tasks using pgx.
type TaskRepository struct {
	pool PoolInterface
}

// NewTaskRepository creates a new TaskRepository with the given pool.
func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

// NewTaskRepositoryWithPool creates a new TaskRepository with a custom pool interface.
func NewTaskRepositoryWithPool(pool PoolInterface) *TaskRepository {
	return &TaskRepository{pool: pool}
}

func scanTask(row scanner) (model.Task, error) {
	var t model.Task
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Category, &t.Reward, &t.Link, &t.IsActive, &t.CreatedAt)
	return t, err
}

// Insert inserts a new task.
func (r *TaskRepository) Insert(ctx context.Context, task *model.Task) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO tasks (id, title, description, category, reward, link, is_active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		task.ID, task.Title, task.Description, task.Category, task.Reward, task.Link, task.IsActive, task.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// Update replaces the editable fields of a task.
// Returns service.ErrTaskNotFound if the task doesn't exist.
func (r *TaskRepository) Update(ctx context.Context, task *model.Task) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE tasks SET title = $2, description = $3, category = $4, reward = $5, link = $6, is_active = $7
		 WHERE id = $1`,
		task.ID, task.Title, task.Description, task.Category, task.Reward, task.Link, task.IsActive)
	if err != nil {
		return fmt.Errorf("update task %s: %w", task.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrTaskNotFound
	}
	return nil
}

// Delete removes a task.
// Returns service.ErrTaskNotFound if the task doesn't exist.
func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrTaskNotFound
	}
	return nil
}

// GetByID retrieves a task by id, inside q when it is not nil.
// Returns nil, nil if the task is not found.
func (r *TaskRepository) GetByID(ctx context.Context, q database.TxQuerier, id string) (*model.Task, error) {
	t, err := scanTask(querier(r.pool, q).QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return &t, nil
}

// List returns tasks ordered by creation, optionally only the active ones.
func (r *TaskRepository) List(ctx context.Context, activeOnly bool) ([]model.Task, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE is_active OR NOT $1 ORDER BY created_at, id`, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	tasks, err := collect(rows, scanTask)
	if err != nil {
		return nil, fmt.Errorf("scan tasks: %w", err)
	}
	return tasks, nil
}
