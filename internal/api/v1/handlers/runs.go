package handlers

import (
	"context"
	"errors"

	fiber "github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/anudishu/promote-cleanup/internal/db/models"
	"github.com/anudishu/promote-cleanup/internal/services"
)

// RunStore reads the run ledger
type RunStore interface {
	GetRun(ctx context.Context, runID string) (*models.Run, error)
	ListRuns(ctx context.Context, opts *models.ListOptions) ([]models.Run, error)
}

// RunHandler handles HTTP requests for recorded runs
type RunHandler struct {
	store RunStore
}

// NewRunHandler creates a new instance of RunHandler
func NewRunHandler(store RunStore) *RunHandler {
	return &RunHandler{store: store}
}

// GetRun handles retrieving a run by its ID
func (h *RunHandler) GetRun(c *fiber.Ctx) error {
	runID := c.Params("id")
	if runID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errInvalidInput("run id is required"))
	}

	run, err := h.store.GetRun(c.UserContext(), runID)
	switch {
	case err == nil:
		return c.JSON(success(run))
	case errors.Is(err, gorm.ErrRecordNotFound):
		return c.Status(fiber.StatusNotFound).JSON(errNotFound("run not found: " + runID))
	default:
		return h.storeError(c, err)
	}
}

// ListRuns handles listing runs with pagination and filters
func (h *RunHandler) ListRuns(c *fiber.Ctx) error {
	opts := &models.ListOptions{
		Limit:              c.QueryInt("limit", models.DefaultLimit),
		Offset:             c.QueryInt("offset", 0),
		ValidationInstance: c.Query("instance"),
	}
	if opts.Limit <= 0 || opts.Offset < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(errInvalidInput("limit must be positive and offset non-negative"))
	}
	if s := c.Query("status"); s != "" {
		status, err := models.ParseRunStatus(s)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(errInvalidInput(err.Error()))
		}
		opts.Status = &status
	}

	runs, err := h.store.ListRuns(c.UserContext(), opts)
	if err != nil {
		return h.storeError(c, err)
	}
	return c.JSON(success(runs))
}

func (h *RunHandler) storeError(c *fiber.Ctx, err error) error {
	if errors.Is(err, services.ErrLedgerDisabled) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(errUnavailable(err.Error()))
	}
	return c.Status(fiber.StatusInternalServerError).JSON(errServer(err.Error(), nil))
}
