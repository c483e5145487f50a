package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/anudishu/promote-cleanup/internal/compute"
	"github.com/anudishu/promote-cleanup/internal/compute/types"
	"github.com/anudishu/promote-cleanup/internal/constants"
	"github.com/anudishu/promote-cleanup/internal/logger"
)

// PromoterOptions configures an ImagePromoter
type PromoterOptions struct {
	Family    string
	CreatedBy string
	// Settle bounds the wait for the new image to be registered as READY after its
	// creation operation completed.
	Settle         time.Duration
	SettleInterval time.Duration
}

// ImagePromoter turns the boot disk of a stopped instance into an image
type ImagePromoter struct {
	compute types.Compute
	waiter  *OperationWaiter
	opts    PromoterOptions
	sleep   Sleeper
}

// NewImagePromoter creates a promoter
func NewImagePromoter(c types.Compute, waiter *OperationWaiter, opts PromoterOptions, sleep Sleeper) *ImagePromoter {
	if opts.Family == "" {
		opts.Family = constants.DefaultImageFamily
	}
	if opts.CreatedBy == "" {
		opts.CreatedBy = constants.DefaultCreatedBy
	}
	if opts.SettleInterval <= 0 {
		opts.SettleInterval = DefaultPollInterval
	}
	if sleep == nil {
		sleep = Sleep
	}
	return &ImagePromoter{compute: c, waiter: waiter, opts: opts, sleep: sleep}
}

// Promote stops instanceName, creates imageName from its boot disk and returns the image
// name once the image is usable. A failed step is not retried and nothing is rolled back.
func (p *ImagePromoter) Promote(ctx context.Context, instanceName, imageName string) (name string, err error) {
	ctx, span := tracer.Start(ctx, "workflow.promote")
	span.SetAttributes(attribute.String("instance", instanceName), attribute.String("image", imageName))
	defer func() { endSpan(span, err) }()

	log := logger.WithFields(logger.Fields{"instance": instanceName, "image": imageName})
	fail := func(step string, err error) error {
		log.WithField("step", step).Errorf("Promotion failed: %v", err)
		return &PromotionError{Instance: instanceName, Image: imageName, Step: step, Err: err}
	}

	log.Info("Step 1: stopping instance")
	op, err := p.compute.StopInstance(ctx, instanceName)
	if err == nil {
		err = p.waiter.Wait(ctx, op)
	}
	if err != nil {
		return "", fail(StepStop, err)
	}
	log.Info("Instance stopped")

	log.Info("Step 2: reading boot disk")
	inst, err := p.compute.GetInstance(ctx, instanceName)
	if err != nil {
		return "", fail(StepReadDisk, err)
	}
	disk, ok := inst.BootDisk()
	if !ok {
		return "", fail(StepReadDisk, ErrNoBootDisk)
	}
	log.WithField("disk", disk.Source).Info("Found boot disk")

	log.Info("Step 3: creating image")
	op, err = p.compute.InsertImage(ctx, p.imageSpec(instanceName, imageName, disk.Source))
	if err == nil {
		err = p.waiter.Wait(ctx, op)
	}
	if err != nil {
		return "", fail(StepCreate, err)
	}
	log.Info("Image creation completed")

	log.Info("Step 4: waiting for image to settle")
	if err := p.settle(ctx, log, imageName); err != nil {
		return "", fail(StepSettle, err)
	}

	log.Info("Image promoted")
	return imageName, nil
}

func (p *ImagePromoter) imageSpec(instanceName, imageName, sourceDisk string) types.ImageSpec {
	return types.ImageSpec{
		Name:        imageName,
		Description: fmt.Sprintf("Promoted image from validated VM %s", instanceName),
		SourceDisk:  sourceDisk,
		Family:      p.opts.Family,
		Labels: map[string]string{
			constants.LabelSourceImage:      instanceName,
			constants.LabelValidationStatus: constants.ValidationStatusPassed,
			constants.LabelCreatedBy:        p.opts.CreatedBy,
		},
	}
}

// settle waits until the image reports READY, for at most opts.Settle. Registration is
// observed to lag the creation operation. Backends that cannot report image status get the
// full window as a fixed delay. An image still not READY at the end of the window is logged
// and accepted.
func (p *ImagePromoter) settle(ctx context.Context, log *logger.Entry, imageName string) error {
	var waited time.Duration
	for waited < p.opts.Settle {
		img, err := p.compute.GetImage(ctx, imageName)
		switch {
		case errors.Is(err, types.ErrUnsupported):
			log.Debugf("Image status unavailable, waiting fixed %s", p.opts.Settle-waited)
			return p.sleep(ctx, p.opts.Settle-waited)
		case err == nil && img.Status == types.ImageReady:
			log.Debugf("Image READY after %s", waited)
			return nil
		case err == nil && img.Status == types.ImageFailed:
			return fmt.Errorf("image %s registration failed", imageName)
		case err != nil && !compute.IsNotFound(err):
			log.Warnf("Could not read image status: %v", err)
		}

		if err := p.sleep(ctx, p.opts.SettleInterval); err != nil {
			return err
		}
		waited += p.opts.SettleInterval
	}

	log.Warnf("Image not confirmed READY within %s, continuing", p.opts.Settle)
	return nil
}
