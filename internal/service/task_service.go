package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/coin-rewards-ledger/internal/model"
	"github.com/fairyhunter13/coin-rewards-ledger/pkg/database"
)

// TaskRepositoryInterface defines the interface for task data access.
type TaskRepositoryInterface interface {
	Insert(ctx context.Context, task *model.Task) error
	Update(ctx context.Context, task *model.Task) error
	Delete(ctx context.Context, id string) error
	// GetByID returns nil, nil when the task does not exist.
	GetByID(ctx context.Context, q database.TxQuerier, id string) (*model.Task, error)
	List(ctx context.Context, activeOnly bool) ([]model.Task, error)
}

// CompletionRepositoryInterface defines the interface for task completion data access.
type CompletionRepositoryInterface interface {
	Exists(ctx context.Context, q database.TxQuerier, userID, taskID string) (bool, error)
	// Insert returns ErrTaskAlreadyCompleted on a duplicate completion.
	Insert(ctx context.Context, tx database.TxQuerier, userID, taskID string, at time.Time) error
	ListTaskIDs(ctx context.Context, userID string) ([]string, error)
}

// VerificationRepositoryInterface defines the interface for pending task verifications.
type VerificationRepositoryInterface interface {
	// GetByUser returns nil, nil when nothing is pending.
	GetByUser(ctx context.Context, q database.TxQuerier, userID string) (*model.TaskVerification, error)
	Upsert(ctx context.Context, tx database.TxQuerier, v *model.TaskVerification) error
	Delete(ctx context.Context, q database.TxQuerier, userID string) (bool, error)
	DeleteStartedBefore(ctx context.Context, before time.Time) (int64, error)
}

// TaskTimings are the tunables of the verification flow.
type TaskTimings struct {
	// Verification is the countdown a user waits between start and finalize.
	Verification time.Duration
	// AbandonAfter is how long a pending verification survives before it counts as abandoned.
	AbandonAfter time.Duration
}

// TaskService runs the two-phase task flow: start a countdown, then finalize for the reward.
// Only one task may be pending per user.
type TaskService struct {
	pool          TxBeginner
	users         UserRepositoryInterface
	tasks         TaskRepositoryInterface
	completions   CompletionRepositoryInterface
	verifications VerificationRepositoryInterface
	ledger        *Ledger
	clock         clockwork.Clock
	timings       TaskTimings
}

// NewTaskService creates a new TaskService.
func NewTaskService(
	pool TxBeginner,
	users UserRepositoryInterface,
	tasks TaskRepositoryInterface,
	completions CompletionRepositoryInterface,
	verifications VerificationRepositoryInterface,
	ledger *Ledger,
	clock clockwork.Clock,
	timings TaskTimings,
) *TaskService {
	return &TaskService{
		pool:          pool,
		users:         users,
		tasks:         tasks,
		completions:   completions,
		verifications: verifications,
		ledger:        ledger,
		clock:         clock,
		timings:       timings,
	}
}

// Start opens the verification countdown of taskID for userID.
// Starting the task that is already pending returns the existing verification unchanged.
func (s *TaskService) Start(ctx context.Context, userID, taskID string) (*model.StartTaskResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := lockActiveUser(ctx, s.users, tx, userID); err != nil {
		return nil, err
	}

	task, err := s.tasks.GetByID(ctx, tx, taskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	if !task.IsActive {
		return nil, ErrTaskInactive
	}

	done, err := s.completions.Exists(ctx, tx, userID, taskID)
	if err != nil {
		return nil, fmt.Errorf("check completion: %w", err)
	}
	if done {
		return nil, ErrTaskAlreadyCompleted
	}

	now := s.clock.Now().UTC()
	pending, err := s.verifications.GetByUser(ctx, tx, userID)
	if err != nil {
		return nil, fmt.Errorf("get pending verification: %w", err)
	}
	if pending != nil {
		if pending.TaskID == taskID {
			return &model.StartTaskResult{Verification: pending, Link: task.Link}, nil
		}
		if !s.abandoned(pending, now) {
			return nil, ErrTaskInFlight
		}
		log.Info().
			Str("user_id", userID).
			Str("task_id", pending.TaskID).
			Msg("discarding abandoned task verification")
	}

	v := &model.TaskVerification{
		UserID:    userID,
		TaskID:    taskID,
		StartedAt: now,
		ReadyAt:   now.Add(s.timings.Verification),
	}
	if err := s.verifications.Upsert(ctx, tx, v); err != nil {
		return nil, fmt.Errorf("save verification: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return &model.StartTaskResult{Verification: v, Link: task.Link}, nil
}

func (s *TaskService) abandoned(v *model.TaskVerification, now time.Time) bool {
	return s.timings.AbandonAfter > 0 && !now.Before(v.StartedAt.Add(s.timings.AbandonAfter))
}

// Finalize credits the reward of the pending task once its countdown elapsed.
func (s *TaskService) Finalize(ctx context.Context, userID string) (*model.FinalizeTaskResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := lockActiveUser(ctx, s.users, tx, userID); err != nil {
		return nil, err
	}

	pending, err := s.verifications.GetByUser(ctx, tx, userID)
	if err != nil {
		return nil, fmt.Errorf("get pending verification: %w", err)
	}
	if pending == nil {
		return nil, ErrNoPendingTask
	}
	if s.abandoned(pending, s.clock.Now().UTC()) {
		if _, err := s.verifications.Delete(ctx, tx, userID); err != nil {
			return nil, fmt.Errorf("discard abandoned verification: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit: %w", err)
		}
		log.Info().
			Str("user_id", userID).
			Str("task_id", pending.TaskID).
			Msg("discarding abandoned task verification")
		return nil, ErrNoPendingTask
	}
	if s.clock.Now().Before(pending.ReadyAt) {
		return nil, ErrVerificationPending
	}

	task, err := s.tasks.GetByID(ctx, tx, pending.TaskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}

	if err := s.completions.Insert(ctx, tx, userID, task.ID, s.clock.Now().UTC()); err != nil {
		if errors.Is(err, ErrTaskAlreadyCompleted) {
			return nil, ErrTaskAlreadyCompleted
		}
		return nil, fmt.Errorf("insert completion: %w", err)
	}

	entry, err := s.ledger.Credit(ctx, tx, userID, task.Reward, model.SourceTask, task.ID)
	if err != nil {
		return nil, fmt.Errorf("credit task reward: %w", err)
	}

	if _, err := s.verifications.Delete(ctx, tx, userID); err != nil {
		return nil, fmt.Errorf("clear verification: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	s.ledger.Publish(entry)

	log.Info().
		Str("user_id", userID).
		Str("task_id", task.ID).
		Int64("reward", task.Reward).
		Msg("task completed")

	return &model.FinalizeTaskResult{
		TaskID: task.ID,
		Reward: task.Reward,
		Coins:  entry.CoinsAfter,
	}, nil
}

// Cancel discards the pending verification of userID without reward.
func (s *TaskService) Cancel(ctx context.Context, userID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := s.users.GetForUpdate(ctx, tx, userID); err != nil {
		return err
	}
	deleted, err := s.verifications.Delete(ctx, tx, userID)
	if err != nil {
		return fmt.Errorf("delete verification: %w", err)
	}
	if !deleted {
		return ErrNoPendingTask
	}
	return tx.Commit(ctx)
}

// SweepAbandoned deletes verifications older than the abandonment window.
func (s *TaskService) SweepAbandoned(ctx context.Context) (int64, error) {
	if s.timings.AbandonAfter <= 0 {
		return 0, nil
	}
	cutoff := s.clock.Now().UTC().Add(-s.timings.AbandonAfter)
	n, err := s.verifications.DeleteStartedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep verifications: %w", err)
	}
	return n, nil
}

// ListForUser returns the active tasks with the completion flag of userID and the pending verification.
func (s *TaskService) ListForUser(ctx context.Context, userID string) (*model.TaskBoard, error) {
	tasks, err := s.tasks.List(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	doneIDs, err := s.completions.ListTaskIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	done := make(map[string]struct{}, len(doneIDs))
	for _, id := range doneIDs {
		done[id] = struct{}{}
	}

	board := &model.TaskBoard{Tasks: make([]model.UserTask, 0, len(tasks))}
	for _, t := range tasks {
		_, completed := done[t.ID]
		board.Tasks = append(board.Tasks, model.UserTask{Task: t, Completed: completed})
	}

	pending, err := s.verifications.GetByUser(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("get pending verification: %w", err)
	}
	board.Pending = pending
	return board, nil
}

// Create adds a task. Requires the admin capability.
func (s *TaskService) Create(ctx context.Context, isAdmin bool, req *model.TaskRequest) (*model.Task, error) {
	if !isAdmin {
		return nil, ErrForbidden
	}
	task, err := taskFromRequest(req)
	if err != nil {
		return nil, err
	}
	task.ID = uuid.NewString()
	task.CreatedAt = s.clock.Now().UTC()
	if err := s.tasks.Insert(ctx, task); err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return task, nil
}

// Update replaces the editable fields of a task. Requires the admin capability.
func (s *TaskService) Update(ctx context.Context, isAdmin bool, id string, req *model.TaskRequest) (*model.Task, error) {
	if !isAdmin {
		return nil, ErrForbidden
	}
	task, err := taskFromRequest(req)
	if err != nil {
		return nil, err
	}
	task.ID = id
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Delete removes a task. Existing completions are kept. Requires the admin capability.
func (s *TaskService) Delete(ctx context.Context, isAdmin bool, id string) error {
	if !isAdmin {
		return ErrForbidden
	}
	return s.tasks.Delete(ctx, id)
}

// ListAll returns every task, active or not.
func (s *TaskService) ListAll(ctx context.Context, isAdmin bool) ([]model.Task, error) {
	if !isAdmin {
		return nil, ErrForbidden
	}
	tasks, err := s.tasks.List(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func taskFromRequest(req *model.TaskRequest) (*model.Task, error) {
	if req == nil || req.Reward == nil || req.IsActive == nil || *req.Reward <= 0 {
		return nil, ErrInvalidRequest
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Link) == "" {
		return nil, ErrInvalidRequest
	}
	return &model.Task{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Category:    strings.TrimSpace(req.Category),
		Reward:      *req.Reward,
		Link:        strings.TrimSpace(req.Link),
		IsActive:    *req.IsActive,
	}, nil
}
