package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/anudishu/promote-cleanup/internal/compute/types"
	"github.com/anudishu/promote-cleanup/internal/logger"
)

// DefaultPollInterval is how often an unfinished operation is refreshed
const DefaultPollInterval = 2 * time.Second

// OperationWaiter polls long-running operations until they finish
type OperationWaiter struct {
	compute  types.Compute
	interval time.Duration
	timeout  time.Duration
	sleep    Sleeper
}

// NewOperationWaiter creates a waiter polling every interval. A positive timeout bounds each
// wait; zero leaves waits bounded only by the caller's context.
func NewOperationWaiter(c types.Compute, interval, timeout time.Duration, sleep Sleeper) *OperationWaiter {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if sleep == nil {
		sleep = Sleep
	}
	return &OperationWaiter{compute: c, interval: interval, timeout: timeout, sleep: sleep}
}

// Await waits for the operation identified by id within scope
func (w *OperationWaiter) Await(ctx context.Context, id string, scope types.OperationScope) error {
	return w.Wait(ctx, &types.Operation{ID: id, Scope: scope, Status: types.OperationPending})
}

// Wait polls op until it is done. An operation that finished with an error payload is
// returned as *OperationError.
func (w *OperationWaiter) Wait(ctx context.Context, op *types.Operation) error {
	if op == nil {
		return fmt.Errorf("cannot wait for a nil operation")
	}
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	current := op
	for polls := 0; ; polls++ {
		if current.Done() {
			if len(current.Errors) > 0 {
				return &OperationError{OperationID: op.ID, Scope: op.Scope, Details: current.Errors}
			}
			logger.Debugf("Operation %s (%s) done after %d polls", op.ID, op.Scope, polls)
			return nil
		}

		if polls > 0 {
			if err := w.sleep(ctx, w.interval); err != nil {
				return &OperationError{OperationID: op.ID, Scope: op.Scope, Err: err}
			}
		}

		latest, err := w.compute.GetOperation(ctx, op.ID, op.Scope)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return &OperationError{OperationID: op.ID, Scope: op.Scope, Err: ctxErr}
			}
			return fmt.Errorf("failed to poll operation %s: %w", op.ID, err)
		}
		current = latest
	}
}
