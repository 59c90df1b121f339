package model

import "time"

// Task is an external-link task that pays a reward once per user.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Reward      int64     `json:"reward"`
	Link        string    `json:"link"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"-"`
}

// TaskVerification is the single in-flight task of a user.
type TaskVerification struct {
	UserID    string    `json:"user_id"`
	TaskID    string    `json:"task_id"`
	StartedAt time.Time `json:"started_at"`
	ReadyAt   time.Time `json:"ready_at"`
}

// UserTask is a task as seen by one user.
type UserTask struct {
	Task
	Completed bool `json:"completed"`
}

// TaskBoard is returned by GET /api/tasks.
type TaskBoard struct {
	Tasks   []UserTask        `json:"tasks"`
	Pending *TaskVerification `json:"pending"`
}

// StartTaskResult is returned after a task verification starts.
type StartTaskResult struct {
	Verification *TaskVerification `json:"verification"`
	Link         string            `json:"link"`
}

// FinalizeTaskResult is returned after a task reward is credited.
type FinalizeTaskResult struct {
	TaskID string `json:"task_id"`
	Reward int64  `json:"reward"`
	Coins  int64  `json:"coins"`
}

// TaskRequest is the DTO for creating or replacing a task.
type TaskRequest struct {
	Title       string `json:"title" validate:"required,notblank,max=255"`
	Description string `json:"description" validate:"max=2000"`
	Category    string `json:"category" validate:"required,notblank,max=64"`
	Reward      *int64 `json:"reward" validate:"required,gte=1"`
	Link        string `json:"link" validate:"required,url,max=2048"`
	IsActive    *bool  `json:"is_active" validate:"required"`
}
