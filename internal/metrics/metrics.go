// Package metrics holds the Prometheus collectors exported by the promote-cleanup service
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run outcomes
const (
	OutcomeSucceeded = "succeeded"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

// Workflow stages
const (
	StagePromote = "promote"
	StageReap    = "reap"
)

var (
	// RunsTotal counts workflow invocations by outcome
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promote_cleanup_runs_total",
		Help: "Promotion and cleanup workflow runs by outcome.",
	}, []string{"outcome"})

	// StageDuration observes how long the promote and reap stages take
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "promote_cleanup_stage_duration_seconds",
		Help:    "Duration of workflow stages.",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
	}, []string{"stage", "outcome"})

	// DeleteAttempts counts reaper attempts, including retries
	DeleteAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "promote_cleanup_delete_attempts_total",
		Help: "Instance deletion attempts made by the reaper.",
	})
)

// ObserveStage records the duration of a stage that started at start
func ObserveStage(stage string, start time.Time, err error) {
	outcome := OutcomeSucceeded
	if err != nil {
		outcome = OutcomeFailed
	}
	StageDuration.WithLabelValues(stage, outcome).Observe(time.Since(start).Seconds())
}
