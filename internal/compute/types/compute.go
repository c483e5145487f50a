// Package types defines the capability contract the workflow needs from a compute backend
package types

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned (possibly wrapped) when the addressed resource does not exist
	ErrNotFound = errors.New("resource not found")

	// ErrUnsupported is returned by backends that cannot answer an optional query
	ErrUnsupported = errors.New("operation not supported by provider")
)

// Compute is the subset of a cloud compute API the promotion workflow drives.
// Instance methods address a VM by name in the backend's configured zone.
type Compute interface {
	// GetInstance returns the current projection of a VM
	GetInstance(ctx context.Context, name string) (*Instance, error)

	// StopInstance requests a stop and returns the long-running operation
	StopInstance(ctx context.Context, name string) (*Operation, error)

	// DeleteInstance requests a deletion and returns the long-running operation
	DeleteInstance(ctx context.Context, name string) (*Operation, error)

	// InsertImage requests creation of an image from a disk
	InsertImage(ctx context.Context, spec ImageSpec) (*Operation, error)

	// GetImage returns an image by name; ErrUnsupported if the backend cannot tell
	GetImage(ctx context.Context, name string) (*Image, error)

	// GetOperation refreshes an operation by identifier within its scope
	GetOperation(ctx context.Context, id string, scope OperationScope) (*Operation, error)
}

// Lifecycle is the observed lifecycle state of a VM
type Lifecycle string

// Lifecycle states
const (
	LifecycleProvisioning Lifecycle = "PROVISIONING"
	LifecycleStaging      Lifecycle = "STAGING"
	LifecycleRunning      Lifecycle = "RUNNING"
	LifecycleStopping     Lifecycle = "STOPPING"
	LifecycleStopped      Lifecycle = "STOPPED"
	LifecycleSuspending   Lifecycle = "SUSPENDING"
	LifecycleSuspended    Lifecycle = "SUSPENDED"
	LifecycleRepairing    Lifecycle = "REPAIRING"
	LifecycleTerminated   Lifecycle = "TERMINATED"
	LifecycleDeleting     Lifecycle = "DELETING"
	LifecycleNotFound     Lifecycle = "NOT_FOUND"
	LifecycleUnknown      Lifecycle = "UNKNOWN"
)

// String returns the string representation of the lifecycle
func (l Lifecycle) String() string {
	return string(l)
}

// IsStable reports whether no transition is in progress, i.e. the VM can be acted on
func (l Lifecycle) IsStable() bool {
	switch l {
	case LifecycleRunning, LifecycleStopped, LifecycleTerminated:
		return true
	default:
		return false
	}
}

// ParseLifecycle maps a provider status string onto a Lifecycle
func ParseLifecycle(s string) Lifecycle {
	switch l := Lifecycle(s); l {
	case LifecycleProvisioning, LifecycleStaging, LifecycleRunning, LifecycleStopping,
		LifecycleStopped, LifecycleSuspending, LifecycleSuspended, LifecycleRepairing,
		LifecycleTerminated, LifecycleDeleting, LifecycleNotFound:
		return l
	default:
		return LifecycleUnknown
	}
}

// Disk is a disk attached to an instance
type Disk struct {
	DeviceName string
	Boot       bool
	// Source is the fully qualified resource path of the disk
	Source string
}

// Instance is the observed projection of a VM
type Instance struct {
	Name      string
	Lifecycle Lifecycle
	Disks     []Disk
}

// BootDisk returns the disk flagged as boot, if any
func (i *Instance) BootDisk() (Disk, bool) {
	if i == nil {
		return Disk{}, false
	}
	for _, d := range i.Disks {
		if d.Boot && d.Source != "" {
			return d, true
		}
	}
	return Disk{}, false
}

// OperationScope selects which operations collection an operation lives in
type OperationScope string

// Operation scopes
const (
	ScopeZonal  OperationScope = "zonal"
	ScopeGlobal OperationScope = "global"
)

// OperationStatus is the progress of a long-running operation
type OperationStatus string

// Operation statuses
const (
	OperationPending OperationStatus = "PENDING"
	OperationRunning OperationStatus = "RUNNING"
	OperationDone    OperationStatus = "DONE"
)

// OperationErrorDetail is a single error entry carried by a finished operation
type OperationErrorDetail struct {
	Code     string
	Message  string
	Location string
}

// Operation is a long-running remote operation. It is owned by the backend and only observed.
type Operation struct {
	ID     string
	Scope  OperationScope
	Status OperationStatus
	// Errors is non-empty when the operation finished unsuccessfully
	Errors []OperationErrorDetail
}

// Done reports whether the operation reached its terminal state
func (o *Operation) Done() bool {
	return o != nil && o.Status == OperationDone
}

// ImageSpec describes an image to create
type ImageSpec struct {
	Name        string
	Description string
	// SourceDisk must be the fully qualified resource path of the disk
	SourceDisk string
	Family     string
	Labels     map[string]string
}

// ImageStatus is the registration state of an image
type ImageStatus string

// Image statuses
const (
	ImagePending  ImageStatus = "PENDING"
	ImageReady    ImageStatus = "READY"
	ImageFailed   ImageStatus = "FAILED"
	ImageDeleting ImageStatus = "DELETING"
)

// Image is the observed projection of an image
type Image struct {
	Name       string
	Status     ImageStatus
	SourceDisk string
	Family     string
	Labels     map[string]string
}

// NotFound reports whether the detail describes a missing resource
func (d OperationErrorDetail) NotFound() bool {
	return d.Code == "RESOURCE_NOT_FOUND" || d.Code == "NOT_FOUND"
}
