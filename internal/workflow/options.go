package workflow

import (
	"time"

	"github.com/anudishu/promote-cleanup/config"
	"github.com/anudishu/promote-cleanup/internal/constants"
)

// DefaultStageSettle is the pause between a promotion and the cleanup that follows it
const DefaultStageSettle = 5 * time.Second

// Options configures every component of a workflow built by NewFromCompute
type Options struct {
	PollInterval     time.Duration
	OperationTimeout time.Duration

	ImageFamily string
	CreatedBy   string
	ImageSettle time.Duration

	DeleteAttempts    int
	DeleteBackoff     time.Duration
	StabilizeTimeout  time.Duration
	StabilizeInterval time.Duration
	ForceStopSettle   time.Duration
	DeleteSettle      time.Duration

	StageSettle time.Duration

	// Sleep and Now default to the real clock
	Sleep Sleeper
	Now   func() time.Time
}

// DefaultOptions returns the timings of the production deployment
func DefaultOptions() Options {
	return Options{
		PollInterval:      DefaultPollInterval,
		ImageFamily:       constants.DefaultImageFamily,
		CreatedBy:         constants.DefaultCreatedBy,
		ImageSettle:       30 * time.Second,
		DeleteAttempts:    DefaultDeleteAttempts,
		DeleteBackoff:     DefaultDeleteBackoff,
		StabilizeTimeout:  DefaultStabilizeTimeout,
		StabilizeInterval: DefaultStabilizeInterval,
		ForceStopSettle:   DefaultForceStopSettle,
		DeleteSettle:      DefaultDeleteSettle,
		StageSettle:       DefaultStageSettle,
	}
}

// OptionsFromConfig maps loaded configuration onto workflow options
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		PollInterval:      cfg.PollInterval,
		OperationTimeout:  cfg.OperationTimeout,
		ImageFamily:       cfg.ImageFamily,
		CreatedBy:         cfg.CreatedBy,
		ImageSettle:       cfg.ImageSettle,
		DeleteAttempts:    cfg.DeleteAttempts,
		DeleteBackoff:     cfg.DeleteBackoff,
		StabilizeTimeout:  cfg.StabilizeTimeout,
		StabilizeInterval: cfg.StabilizeInterval,
		ForceStopSettle:   cfg.ForceStopSettle,
		DeleteSettle:      cfg.DeleteSettle,
		StageSettle:       cfg.StageSettle,
	}
}

func (o Options) sleeper() Sleeper {
	if o.Sleep == nil {
		return Sleep
	}
	return o.Sleep
}

func (o Options) clock() func() time.Time {
	if o.Now == nil {
		return time.Now
	}
	return o.Now
}
