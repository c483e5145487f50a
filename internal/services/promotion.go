// Package services runs workflow requests arriving from any trigger and keeps the run ledger
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/anudishu/promote-cleanup/internal/db/models"
	"github.com/anudishu/promote-cleanup/internal/db/repos"
	"github.com/anudishu/promote-cleanup/internal/events"
	"github.com/anudishu/promote-cleanup/internal/logger"
	"github.com/anudishu/promote-cleanup/internal/metrics"
	"github.com/anudishu/promote-cleanup/internal/workflow"
)

// ErrLedgerDisabled is returned by run lookups when no database is configured
var ErrLedgerDisabled = errors.New("run ledger is disabled")

// Runner executes a single workflow request
type Runner interface {
	Run(ctx context.Context, req workflow.Request) (*workflow.Result, error)
}

// RunError is a workflow failure tagged with the run it belongs to
type RunError struct {
	RunID string
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run %s failed: %v", e.RunID, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// Promotion executes workflow requests and records them
type Promotion struct {
	runner Runner
	repo   *repos.RunRepository
	newID  func() string
	now    func() time.Time
}

// NewPromotionService creates a new promotion service. repo may be nil to run without a ledger.
func NewPromotionService(runner Runner, repo *repos.RunRepository) *Promotion {
	return &Promotion{
		runner: runner,
		repo:   repo,
		newID:  uuid.NewString,
		now:    time.Now,
	}
}

// Execute runs req on behalf of source. The returned result carries the run ID; a failure
// comes back as *RunError. Ledger problems are logged and never change the outcome.
func (s *Promotion) Execute(ctx context.Context, source string, req workflow.Request) (*workflow.Result, error) {
	runID := s.newID()
	log := logger.WithFields(logger.Fields{"run_id": runID, "source": source})

	s.ledger(log, "create", func() error {
		return s.repo.Create(ctx, &models.Run{
			RunID:              runID,
			Source:             source,
			ImageID:            req.ImageID,
			ScanResult:         string(req.ScanResult),
			ValidationInstance: req.ValidationInstance,
			SkipDestroy:        req.SkipDestroy,
			SkipPromotion:      req.SkipPromotion,
			Status:             models.RunStatusPending,
		})
	})
	s.ledger(log, "mark running", func() error {
		return s.repo.MarkRunning(ctx, runID, s.now())
	})

	res, err := s.runner.Run(ctx, req)
	status, eventType := outcome(res, err)
	metrics.RunsTotal.WithLabelValues(metricOutcome(status)).Inc()

	var promoted, skipReason, errText string
	if res != nil {
		res.RunID = runID
		skipReason = res.SkipReason
		if res.PromotedImage != nil {
			promoted = *res.PromotedImage
		}
	}
	if err != nil {
		errText = err.Error()
		log.Errorf("Run failed: %v", err)
	} else {
		log.WithField("status", res.Status).Info("Run finished")
	}

	// The caller's context may already be done; the ledger still gets the outcome.
	s.ledger(log, "finish", func() error {
		return s.repo.Finish(context.WithoutCancel(ctx), runID, status, promoted, skipReason, errText, s.now())
	})

	events.Publish(events.Event{
		Type:    eventType,
		RunID:   runID,
		Source:  source,
		Request: req,
		Result:  res,
		Err:     err,
	})

	if err != nil {
		return nil, &RunError{RunID: runID, Err: err}
	}
	return res, nil
}

// GetRun returns a recorded run
func (s *Promotion) GetRun(ctx context.Context, runID string) (*models.Run, error) {
	if s.repo == nil {
		return nil, ErrLedgerDisabled
	}
	return s.repo.GetByRunID(ctx, runID)
}

// ListRuns returns recorded runs, newest first
func (s *Promotion) ListRuns(ctx context.Context, opts *models.ListOptions) ([]models.Run, error) {
	if s.repo == nil {
		return nil, ErrLedgerDisabled
	}
	return s.repo.List(ctx, opts)
}

func (s *Promotion) ledger(log *logger.Entry, action string, fn func() error) {
	if s.repo == nil {
		return
	}
	if err := fn(); err != nil {
		log.Warnf("Run ledger %s failed: %v", action, err)
	}
}

func outcome(res *workflow.Result, err error) (models.RunStatus, events.EventType) {
	switch {
	case err != nil:
		return models.RunStatusFailed, events.EventRunFailed
	case res.Status == workflow.StatusSkipped:
		return models.RunStatusSkipped, events.EventRunSkipped
	default:
		return models.RunStatusSucceeded, events.EventRunSucceeded
	}
}

func metricOutcome(status models.RunStatus) string {
	switch status {
	case models.RunStatusFailed:
		return metrics.OutcomeFailed
	case models.RunStatusSkipped:
		return metrics.OutcomeSkipped
	default:
		return metrics.OutcomeSucceeded
	}
}
