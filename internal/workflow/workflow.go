// Package workflow finalizes a VM image validation: it promotes the validated VM's boot disk
// to an image and then deletes the VM, gated on the scan result.
//
// All remote calls block until their operation finishes. A run is strictly sequential and the
// VM is never deleted before its image creation has completed.
package workflow

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/anudishu/promote-cleanup/internal/compute/types"
	"github.com/anudishu/promote-cleanup/internal/logger"
	"github.com/anudishu/promote-cleanup/internal/metrics"
)

// Promoter creates an image from an instance's boot disk
type Promoter interface {
	Promote(ctx context.Context, instanceName, imageName string) (string, error)
}

// Reaper deletes an instance
type Reaper interface {
	Delete(ctx context.Context, instanceName string) error
}

// Workflow is the promotion and cleanup coordinator
type Workflow struct {
	promoter    Promoter
	reaper      Reaper
	stageSettle time.Duration
	sleep       Sleeper
	now         func() time.Time
}

// New creates a workflow from its stages
func New(promoter Promoter, reaper Reaper, opts Options) *Workflow {
	return &Workflow{
		promoter:    promoter,
		reaper:      reaper,
		stageSettle: opts.StageSettle,
		sleep:       opts.sleeper(),
		now:         opts.clock(),
	}
}

// NewFromCompute wires the waiter, probe, promoter and reaper around one compute backend
func NewFromCompute(c types.Compute, opts Options) *Workflow {
	sleep := opts.sleeper()
	waiter := NewOperationWaiter(c, opts.PollInterval, opts.OperationTimeout, sleep)
	probe := NewResourceStateProbe(c)

	promoter := NewImagePromoter(c, waiter, PromoterOptions{
		Family:         opts.ImageFamily,
		CreatedBy:      opts.CreatedBy,
		Settle:         opts.ImageSettle,
		SettleInterval: opts.PollInterval,
	}, sleep)

	reaper := NewInstanceReaper(c, probe, waiter, ReaperOptions{
		MaxAttempts:       opts.DeleteAttempts,
		Backoff:           opts.DeleteBackoff,
		StabilizeTimeout:  opts.StabilizeTimeout,
		StabilizeInterval: opts.StabilizeInterval,
		ForceStopSettle:   opts.ForceStopSettle,
		Settle:            opts.DeleteSettle,
		SettleInterval:    opts.PollInterval,
	}, sleep)

	return New(promoter, reaper, opts)
}

// Run executes the workflow for req. Gated requests return a skipped result without touching
// any resource. Any stage failure is returned as is; a failed promotion prevents cleanup.
func (w *Workflow) Run(ctx context.Context, req Request) (result *Result, err error) {
	ctx, span := tracer.Start(ctx, "workflow.run")
	span.SetAttributes(
		attribute.String("image_id", req.ImageID),
		attribute.String("scan_result", string(req.ScanResult)),
		attribute.String("validation_instance", req.ValidationInstance),
		attribute.Bool("skip_destroy", req.SkipDestroy),
		attribute.Bool("skip_promotion", req.SkipPromotion),
	)
	defer func() { endSpan(span, err) }()

	log := logger.WithFields(logger.Fields{
		"image_id":            req.ImageID,
		"scan_result":         req.ScanResult,
		"validation_instance": req.ValidationInstance,
		"skip_destroy":        req.SkipDestroy,
		"skip_promotion":      req.SkipPromotion,
	})
	log.Info("Processing promotion/cleanup")

	if req.ValidationInstance == "" {
		log.Warn("No validation_instance provided, skipping")
		return w.skipped(req, SkipReasonNoInstance), nil
	}
	if !req.ScanResult.IsPass() {
		log.Warnf("Scan result is %q, not promoting", req.ScanResult)
		return w.skipped(req, SkipReasonScanResult), nil
	}

	var promoted *string
	if !req.SkipPromotion {
		image, err := w.promote(ctx, req)
		if err != nil {
			return nil, err
		}
		log.WithField("image", image).Info("Promoted image created")
		promoted = &image
	} else {
		log.Info("Image promotion skipped (skip_promotion=true)")
	}

	if !req.SkipDestroy {
		if promoted != nil {
			log.Debugf("Waiting %s before deleting the source instance", w.stageSettle)
			if err := w.sleep(ctx, w.stageSettle); err != nil {
				return nil, fmt.Errorf("interrupted before cleanup: %w", err)
			}
		}

		start := time.Now()
		err := w.reaper.Delete(ctx, req.ValidationInstance)
		metrics.ObserveStage(metrics.StageReap, start, err)
		if err != nil {
			return nil, err
		}
		log.Info("Validation instance cleaned up")
	} else {
		log.Info("Instance cleanup skipped (skip_destroy=true)")
	}

	log.Info("Promotion and cleanup completed")
	return &Result{
		Status:             StatusSuccess,
		PromotedImage:      promoted,
		ValidationInstance: req.ValidationInstance,
		Timestamp:          w.timestamp(),
	}, nil
}

func (w *Workflow) promote(ctx context.Context, req Request) (string, error) {
	imageName := ImageName(req.ImageID, w.now())
	if req.ImageID == "" {
		return "", &PromotionError{
			Instance: req.ValidationInstance,
			Image:    imageName,
			Step:     StepValidate,
			Err:      fmt.Errorf("image_id is required to name the promoted image"),
		}
	}

	start := time.Now()
	image, err := w.promoter.Promote(ctx, req.ValidationInstance, imageName)
	metrics.ObserveStage(metrics.StagePromote, start, err)
	return image, err
}

func (w *Workflow) skipped(req Request, reason string) *Result {
	return &Result{
		Status:             StatusSkipped,
		ValidationInstance: req.ValidationInstance,
		Timestamp:          w.timestamp(),
		SkipReason:         reason,
	}
}

func (w *Workflow) timestamp() string {
	return w.now().UTC().Format(time.RFC3339)
}
