package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Field names for run model
const (
	// RunIDField is the column holding the external run identifier
	RunIDField = "run_id"
	// RunStatusField is the column holding the run status
	RunStatusField = "status"
	// RunInstanceField is the column holding the validation instance name
	RunInstanceField = "validation_instance"
)

// RunStatus represents the current state of a run
type RunStatus string

// Run status constants
const (
	// RunStatusPending indicates the run was recorded but has not started
	RunStatusPending RunStatus = "pending"
	// RunStatusRunning indicates the workflow is executing
	RunStatusRunning RunStatus = "running"
	// RunStatusSucceeded indicates the workflow completed
	RunStatusSucceeded RunStatus = "succeeded"
	// RunStatusSkipped indicates the request was gated before any resource was touched
	RunStatusSkipped RunStatus = "skipped"
	// RunStatusFailed indicates the workflow returned an error
	RunStatusFailed RunStatus = "failed"
)

// Run is one invocation of the promotion and cleanup workflow
type Run struct {
	gorm.Model
	RunID              string     `json:"run_id" gorm:"not null;uniqueIndex"`
	Source             string     `json:"source" gorm:"not null;index"`
	ImageID            string     `json:"image_id"`
	ScanResult         string     `json:"scan_result"`
	ValidationInstance string     `json:"validation_instance" gorm:"index"`
	SkipDestroy        bool       `json:"skip_destroy" gorm:"not null;default:false"`
	SkipPromotion      bool       `json:"skip_promotion" gorm:"not null;default:false"`
	Status             RunStatus  `json:"status" gorm:"not null;index"`
	PromotedImage      string     `json:"promoted_image,omitempty"`
	SkipReason         string     `json:"skip_reason,omitempty"`
	Error              string     `json:"error,omitempty" gorm:"type:text"`
	StartedAt          *time.Time `json:"started_at,omitempty"`
	FinishedAt         *time.Time `json:"finished_at,omitempty"`
}

// String returns the string representation of the run status
func (s RunStatus) String() string {
	return string(s)
}

// IsFinal reports whether the run will not change status anymore
func (s RunStatus) IsFinal() bool {
	return s == RunStatusSucceeded || s == RunStatusSkipped || s == RunStatusFailed
}

// ParseRunStatus converts a string to a RunStatus
func ParseRunStatus(str string) (RunStatus, error) {
	switch s := RunStatus(str); s {
	case RunStatusPending, RunStatusRunning, RunStatusSucceeded, RunStatusSkipped, RunStatusFailed:
		return s, nil
	default:
		return "", fmt.Errorf("invalid run status: %s", str)
	}
}
