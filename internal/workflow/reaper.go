package workflow

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/anudishu/promote-cleanup/internal/compute"
	"github.com/anudishu/promote-cleanup/internal/compute/types"
	"github.com/anudishu/promote-cleanup/internal/logger"
	"github.com/anudishu/promote-cleanup/internal/metrics"
)

// Reaper defaults
const (
	DefaultDeleteAttempts    = 3
	DefaultDeleteBackoff     = 5 * time.Second
	DefaultStabilizeTimeout  = 60 * time.Second
	DefaultStabilizeInterval = 5 * time.Second
	DefaultForceStopSettle   = 5 * time.Second
	DefaultDeleteSettle      = 10 * time.Second
)

// ReaperOptions configures an InstanceReaper
type ReaperOptions struct {
	// MaxAttempts is the number of full attempts before giving up
	MaxAttempts int
	// Backoff is multiplied by the attempt number to get the pause before the next attempt
	Backoff time.Duration
	// StabilizeTimeout bounds the wait for a transitional instance to settle
	StabilizeTimeout  time.Duration
	StabilizeInterval time.Duration
	// ForceStopSettle is the pause after the fallback force stop
	ForceStopSettle time.Duration
	// Settle bounds the wait for a deleted instance to disappear
	Settle         time.Duration
	SettleInterval time.Duration
}

// InstanceReaper deletes a VM, tolerating a VM that is already gone at any point
type InstanceReaper struct {
	compute types.Compute
	probe   *ResourceStateProbe
	waiter  *OperationWaiter
	opts    ReaperOptions
	sleep   Sleeper
}

// NewInstanceReaper creates a reaper
func NewInstanceReaper(c types.Compute, probe *ResourceStateProbe, waiter *OperationWaiter, opts ReaperOptions, sleep Sleeper) *InstanceReaper {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = DefaultDeleteAttempts
	}
	if opts.StabilizeInterval <= 0 {
		opts.StabilizeInterval = DefaultStabilizeInterval
	}
	if opts.SettleInterval <= 0 {
		opts.SettleInterval = DefaultPollInterval
	}
	if sleep == nil {
		sleep = Sleep
	}
	return &InstanceReaper{compute: c, probe: probe, waiter: waiter, opts: opts, sleep: sleep}
}

// Delete removes the instance. Each attempt runs
//
//	exists? -> stabilize -> stop if running -> delete -> (force stop, delete once more)
//
// and failed attempts are retried after attempt*Backoff. Not-found anywhere ends the call
// successfully. After MaxAttempts failures the last error is returned in a *DeletionError.
func (r *InstanceReaper) Delete(ctx context.Context, name string) (err error) {
	ctx, span := tracer.Start(ctx, "workflow.reap")
	span.SetAttributes(attribute.String("instance", name))
	defer func() { endSpan(span, err) }()

	var lastErr error
	for attempt := 1; attempt <= r.opts.MaxAttempts; attempt++ {
		log := logger.WithFields(logger.Fields{"instance": name, "attempt": attempt, "max_attempts": r.opts.MaxAttempts})
		metrics.DeleteAttempts.Inc()

		err := r.attempt(ctx, log, name)
		if err == nil {
			return nil
		}
		if compute.IsNotFound(err) {
			log.Info("Instance not found, already deleted")
			return nil
		}
		lastErr = err

		if attempt == r.opts.MaxAttempts {
			log.Errorf("Failed to delete instance: %v", err)
			break
		}

		wait := time.Duration(attempt) * r.opts.Backoff
		log.Warnf("Attempt failed: %v. Retrying in %s", err, wait)
		if serr := r.sleep(ctx, wait); serr != nil {
			return &DeletionError{Instance: name, Attempts: attempt, Err: fmt.Errorf("%w (last error: %v)", serr, lastErr)}
		}
	}
	return &DeletionError{Instance: name, Attempts: r.opts.MaxAttempts, Err: lastErr}
}

// attempt runs one pass of the deletion state machine
func (r *InstanceReaper) attempt(ctx context.Context, log *logger.Entry, name string) error {
	exists, err := r.probe.Exists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		log.Info("Instance does not exist, skipping deletion")
		return nil
	}

	gone, err := r.stabilize(ctx, log, name)
	if err != nil {
		return err
	}
	if gone {
		log.Info("Instance disappeared while stabilizing")
		return nil
	}

	r.stopIfRunning(ctx, log, name)

	log.Info("Deleting instance")
	err = r.deleteAndWait(ctx, name)
	if err == nil {
		log.Info("Instance deleted")
		r.settle(ctx, log, name)
		return nil
	}
	if compute.IsNotFound(err) {
		return nil
	}

	// Fallback: force stop and delete once more within this attempt
	log.Warnf("Delete failed: %v, trying force stop and delete", err)
	r.forceStop(ctx, log, name)
	if err := r.deleteAndWait(ctx, name); err != nil {
		return err
	}
	log.Info("Instance force deleted")
	r.settle(ctx, log, name)
	return nil
}

// stabilize waits for a transitional instance to reach RUNNING, STOPPED or TERMINATED.
// Running out of time is not an error; deletion is attempted anyway.
func (r *InstanceReaper) stabilize(ctx context.Context, log *logger.Entry, name string) (bool, error) {
	for waited := time.Duration(0); waited < r.opts.StabilizeTimeout; waited += r.opts.StabilizeInterval {
		inst, err := r.probe.CurrentState(ctx, name)
		if err != nil {
			return false, err
		}
		switch {
		case inst.Lifecycle == types.LifecycleNotFound:
			return true, nil
		case inst.Lifecycle.IsStable():
			log.Debugf("Instance is stable: %s", inst.Lifecycle)
			return false, nil
		}

		log.Infof("Instance in transition state %s, waiting", inst.Lifecycle)
		if err := r.sleep(ctx, r.opts.StabilizeInterval); err != nil {
			return false, err
		}
	}
	log.Warnf("Instance did not reach a stable state within %s, attempting deletion anyway", r.opts.StabilizeTimeout)
	return false, nil
}

// stopIfRunning stops a running instance before deletion. Failures are logged and ignored.
func (r *InstanceReaper) stopIfRunning(ctx context.Context, log *logger.Entry, name string) {
	inst, err := r.probe.CurrentState(ctx, name)
	if err != nil {
		log.Warnf("Could not read instance state: %v, proceeding with deletion", err)
		return
	}
	if inst.Lifecycle != types.LifecycleRunning {
		return
	}

	log.Info("Stopping instance before deletion")
	if err := r.stopAndWait(ctx, name); err != nil {
		if compute.IsNotFound(err) {
			log.Debug("Instance vanished while stopping")
			return
		}
		log.Warnf("Could not stop instance: %v, proceeding with deletion", err)
		return
	}
	log.Info("Instance stopped")
}

// forceStop stops an instance that is still RUNNING or STOPPING. Failures are ignored.
func (r *InstanceReaper) forceStop(ctx context.Context, log *logger.Entry, name string) {
	inst, err := r.probe.CurrentState(ctx, name)
	if err != nil {
		return
	}
	if inst.Lifecycle != types.LifecycleRunning && inst.Lifecycle != types.LifecycleStopping {
		return
	}

	log.Info("Force stopping instance")
	if err := r.stopAndWait(ctx, name); err != nil {
		log.Debugf("Force stop failed: %v", err)
		return
	}
	_ = r.sleep(ctx, r.opts.ForceStopSettle)
}

func (r *InstanceReaper) stopAndWait(ctx context.Context, name string) error {
	op, err := r.compute.StopInstance(ctx, name)
	if err != nil {
		return err
	}
	return r.waiter.Wait(ctx, op)
}

func (r *InstanceReaper) deleteAndWait(ctx context.Context, name string) error {
	op, err := r.compute.DeleteInstance(ctx, name)
	if err != nil {
		return err
	}
	return r.waiter.Wait(ctx, op)
}

// settle waits up to opts.Settle for the deleted instance to stop being reported. A probe
// failure falls back to waiting out the rest of the window.
func (r *InstanceReaper) settle(ctx context.Context, log *logger.Entry, name string) {
	var waited time.Duration
	for waited < r.opts.Settle {
		exists, err := r.probe.Exists(ctx, name)
		if err != nil {
			log.Debugf("Could not confirm deletion: %v, waiting %s", err, r.opts.Settle-waited)
			_ = r.sleep(ctx, r.opts.Settle-waited)
			return
		}
		if !exists {
			return
		}
		if err := r.sleep(ctx, r.opts.SettleInterval); err != nil {
			return
		}
		waited += r.opts.SettleInterval
	}
	log.Warnf("Instance still reported %s after deletion", r.opts.Settle)
}
