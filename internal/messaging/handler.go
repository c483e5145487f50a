package messaging

import (
	"context"
	"errors"

	"github.com/anudishu/promote-cleanup/internal/events"
	"github.com/anudishu/promote-cleanup/internal/logger"
	"github.com/anudishu/promote-cleanup/internal/workflow"
)

// Executor runs a decoded request
type Executor interface {
	Execute(ctx context.Context, source string, req workflow.Request) (*workflow.Result, error)
}

// RunHandler returns the HandlerFunc that runs the workflow for each queued message.
// Undecodable messages are acked and dropped since redelivery cannot fix them.
func RunHandler(exec Executor) HandlerFunc {
	return func(ctx context.Context, data []byte) error {
		msg, err := events.DecodeMessage(data)
		if err != nil {
			if errors.Is(err, events.ErrMalformedMessage) {
				logger.Errorf("Dropping message: %v", err)
				return nil
			}
			return err
		}

		res, err := exec.Execute(ctx, events.SourceNATS, events.ParseMessage(*msg))
		if err != nil {
			return err
		}
		logger.WithFields(logger.Fields{"run_id": res.RunID, "status": res.Status}).Info("Queued event processed")
		return nil
	}
}
