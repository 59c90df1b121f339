package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/coin-rewards-ledger/internal/middleware"
	"github.com/fairyhunter13/coin-rewards-ledger/internal/model"
)

// TaskServiceInterface defines the task operations used by TaskHandler.
type TaskServiceInterface interface {
	ListForUser(ctx context.Context, userID string) (*model.TaskBoard, error)
	Start(ctx context.Context, userID, taskID string) (*model.StartTaskResult, error)
	Finalize(ctx context.Context, userID string) (*model.FinalizeTaskResult, error)
	Cancel(ctx context.Context, userID string) error

	ListAll(ctx context.Context, isAdmin bool) ([]model.Task, error)
	Create(ctx context.Context, isAdmin bool, req *model.TaskRequest) (*model.Task, error)
	Update(ctx context.Context, isAdmin bool, id string, req *model.TaskRequest) (*model.Task, error)
	Delete(ctx context.Context, isAdmin bool, id string) error
}

// TaskHandler handles task board and task administration requests.
type TaskHandler struct {
	service   TaskServiceInterface
	validator *validator.Validate
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(svc TaskServiceInterface, v *validator.Validate) *TaskHandler {
	return &TaskHandler{service: svc, validator: v}
}

// List handles GET /api/tasks.
func (h *TaskHandler) List(c *fiber.Ctx) error {
	board, err := h.service.ListForUser(c.Context(), middleware.UserID(c))
	if err != nil {
		return fail(c, err, "list tasks")
	}
	return c.JSON(board)
}

// Start handles POST /api/tasks/:id/start.
func (h *TaskHandler) Start(c *fiber.Ctx) error {
	result, err := h.service.Start(c.Context(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return fail(c, err, "start task")
	}
	return c.Status(fiber.StatusAccepted).JSON(result)
}

// Finalize handles POST /api/tasks/finalize.
func (h *TaskHandler) Finalize(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	result, err := h.service.Finalize(c.Context(), userID)
	if err != nil {
		return fail(c, err, "finalize task")
	}

	log.Info().
		Str("request_id", c.GetRespHeader(fiber.HeaderXRequestID)).
		Str("user_id", userID).
		Str("task_id", result.TaskID).
		Int64("reward", result.Reward).
		Msg("task completed")
	return c.JSON(result)
}

// Cancel handles DELETE /api/tasks/verification.
func (h *TaskHandler) Cancel(c *fiber.Ctx) error {
	if err := h.service.Cancel(c.Context(), middleware.UserID(c)); err != nil {
		return fail(c, err, "cancel task")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AdminList handles GET /api/admin/tasks.
func (h *TaskHandler) AdminList(c *fiber.Ctx) error {
	tasks, err := h.service.ListAll(c.Context(), middleware.IsAdmin(c))
	if err != nil {
		return fail(c, err, "list all tasks")
	}
	return c.JSON(fiber.Map{"tasks": tasks})
}

// Create handles POST /api/admin/tasks.
func (h *TaskHandler) Create(c *fiber.Ctx) error {
	var req model.TaskRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	task, err := h.service.Create(c.Context(), middleware.IsAdmin(c), &req)
	if err != nil {
		return fail(c, err, "create task")
	}
	return c.Status(fiber.StatusCreated).JSON(task)
}

// Update handles PUT /api/admin/tasks/:id.
func (h *TaskHandler) Update(c *fiber.Ctx) error {
	var req model.TaskRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	task, err := h.service.Update(c.Context(), middleware.IsAdmin(c), c.Params("id"), &req)
	if err != nil {
		return fail(c, err, "update task")
	}
	return c.JSON(task)
}

// Delete handles DELETE /api/admin/tasks/:id.
func (h *TaskHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.Context(), middleware.IsAdmin(c), c.Params("id")); err != nil {
		return fail(c, err, "delete task")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
