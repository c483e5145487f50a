package handlers

import (
	"context"
	"errors"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/anudishu/promote-cleanup/internal/events"
	"github.com/anudishu/promote-cleanup/internal/logger"
	"github.com/anudishu/promote-cleanup/internal/services"
	"github.com/anudishu/promote-cleanup/internal/workflow"
)

// Executor runs a decoded request
type Executor interface {
	Execute(ctx context.Context, source string, req workflow.Request) (*workflow.Result, error)
}

// EventHandler handles triggering events delivered over HTTP
type EventHandler struct {
	executor Executor
}

// NewEventHandler creates a new instance of EventHandler
func NewEventHandler(executor Executor) *EventHandler {
	return &EventHandler{executor: executor}
}

// PubSubPush handles a Pub/Sub push delivery. Success and skipped runs are acknowledged
// with 200; a failed run answers 500 so the subscription redelivers.
func (h *EventHandler) PubSubPush(c *fiber.Ctx) error {
	env, err := events.DecodePush(c.Body())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errInvalidInput(err.Error()))
	}
	logger.WithFields(logger.Fields{
		"message_id":   env.Message.MessageID,
		"subscription": env.Subscription,
	}).Debug("Received push delivery")

	req := events.ParseMessage(env.Message)
	res, err := h.executor.Execute(c.UserContext(), events.SourcePubSub, req)
	if err != nil {
		var runErr *services.RunError
		data := RunFailure{}
		if errors.As(err, &runErr) {
			data.RunID = runErr.RunID
		}
		return c.Status(fiber.StatusInternalServerError).JSON(errServer(err.Error(), data))
	}
	return c.Status(fiber.StatusOK).JSON(success(res))
}
