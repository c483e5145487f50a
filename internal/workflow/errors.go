package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/anudishu/promote-cleanup/internal/compute/types"
)

// ErrNoBootDisk is returned when the instance being promoted has no boot disk
var ErrNoBootDisk = errors.New("no boot disk")

// ProbeError is a state query failure other than not-found
type ProbeError struct {
	Instance string
	Err      error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("failed to probe instance %s: %v", e.Instance, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// OperationError is a remote operation that finished with an error payload, or a wait that
// was cut short by its deadline or cancellation (Err set).
type OperationError struct {
	OperationID string
	Scope       types.OperationScope
	Details     []types.OperationErrorDetail
	Err         error
}

func (e *OperationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation %s did not complete: %v", e.Scope, e.OperationID, e.Err)
	}
	msgs := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		msgs = append(msgs, fmt.Sprintf("%s: %s", d.Code, d.Message))
	}
	return fmt.Sprintf("%s operation %s failed: %s", e.Scope, e.OperationID, strings.Join(msgs, "; "))
}

func (e *OperationError) Unwrap() error { return e.Err }

// NotFound reports whether the operation failed because its target disappeared
func (e *OperationError) NotFound() bool {
	for _, d := range e.Details {
		if d.NotFound() {
			return true
		}
	}
	return false
}

// Promotion steps named in PromotionError
const (
	StepValidate = "validate"
	StepStop     = "stop"
	StepReadDisk = "read-disk"
	StepCreate   = "create-image"
	StepSettle   = "settle"
)

// PromotionError is any failure while promoting an instance's boot disk to an image
type PromotionError struct {
	Instance string
	Image    string
	Step     string
	Err      error
}

func (e *PromotionError) Error() string {
	return fmt.Sprintf("promotion of %s to image %s failed at %s: %v", e.Instance, e.Image, e.Step, e.Err)
}

func (e *PromotionError) Unwrap() error { return e.Err }

// DeletionError is returned when the reaper exhausted its attempts
type DeletionError struct {
	Instance string
	Attempts int
	Err      error
}

func (e *DeletionError) Error() string {
	return fmt.Sprintf("failed to delete instance %s after %d attempts: %v", e.Instance, e.Attempts, e.Err)
}

func (e *DeletionError) Unwrap() error { return e.Err }
