package workflow

import (
	"fmt"
	"time"
)

// ScanResult is the verdict of the upstream image scan
type ScanResult string

// Scan results. Anything other than ScanPass blocks the workflow.
const (
	ScanPass    ScanResult = "Pass"
	ScanFail    ScanResult = "Fail"
	ScanUnknown ScanResult = "Unknown"
)

// IsPass reports whether the scan passed. The comparison is exact.
func (s ScanResult) IsPass() bool {
	return s == ScanPass
}

// Request is the typed form of a triggering event, decoded once at the boundary
type Request struct {
	ImageID            string     `json:"image_id"`
	ScanResult         ScanResult `json:"scan_result"`
	ValidationInstance string     `json:"validation_instance"`
	SkipDestroy        bool       `json:"skip_destroy"`
	SkipPromotion      bool       `json:"skip_promotion"`
}

// Result statuses
const (
	StatusSuccess = "success"
	StatusSkipped = "skipped"
)

// Reasons a request is skipped without touching any resource
const (
	SkipReasonNoInstance = "no validation_instance provided"
	SkipReasonScanResult = "scan result is not Pass"
)

// Result describes a finished run. PromotedImage is nil unless an image was created.
type Result struct {
	Status             string  `json:"status"`
	PromotedImage      *string `json:"promoted_image"`
	ValidationInstance string  `json:"validation_instance"`
	Timestamp          string  `json:"timestamp"`
	SkipReason         string  `json:"skip_reason,omitempty"`
	RunID              string  `json:"run_id,omitempty"`
}

// imageNameLayout is the timestamp suffix of promoted image names
const imageNameLayout = "20060102-150405"

// ImageName returns the deterministic name of the image promoted for imageID at t
func ImageName(imageID string, t time.Time) string {
	return fmt.Sprintf("%s-promoted-%s", imageID, t.UTC().Format(imageNameLayout))
}
