package compute

import (
	"context"
	"fmt"

	compute "google.golang.org/api/compute/v1"
	"google.golang.org/api/option"

	"github.com/anudishu/promote-cleanup/internal/compute/types"
	"github.com/anudishu/promote-cleanup/internal/logger"
)

// GCPProvider implements types.Compute on top of the Compute Engine v1 REST API
type GCPProvider struct {
	svc     *compute.Service
	project string
	zone    string
}

// NewGCPProvider creates a provider bound to one project and zone.
// Credentials come from Application Default Credentials unless opts override them.
func NewGCPProvider(ctx context.Context, project, zone string, opts ...option.ClientOption) (*GCPProvider, error) {
	if project == "" {
		return nil, fmt.Errorf("gcp project is required")
	}
	if zone == "" {
		return nil, fmt.Errorf("gcp zone is required")
	}

	svc, err := compute.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create compute service: %w", err)
	}

	logger.Debugf("GCP compute provider ready: project=%s, zone=%s", project, zone)
	return &GCPProvider{svc: svc, project: project, zone: zone}, nil
}

// GetInstance returns the current projection of a VM
func (p *GCPProvider) GetInstance(ctx context.Context, name string) (*types.Instance, error) {
	inst, err := p.svc.Instances.Get(p.project, p.zone, name).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get instance %s: %w", name, err)
	}
	return instanceFromAPI(inst), nil
}

// StopInstance requests a stop of the VM
func (p *GCPProvider) StopInstance(ctx context.Context, name string) (*types.Operation, error) {
	op, err := p.svc.Instances.Stop(p.project, p.zone, name).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to stop instance %s: %w", name, err)
	}
	return operationFromAPI(op), nil
}

// DeleteInstance requests deletion of the VM
func (p *GCPProvider) DeleteInstance(ctx context.Context, name string) (*types.Operation, error) {
	op, err := p.svc.Instances.Delete(p.project, p.zone, name).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to delete instance %s: %w", name, err)
	}
	return operationFromAPI(op), nil
}

// InsertImage requests creation of an image in the project
func (p *GCPProvider) InsertImage(ctx context.Context, spec types.ImageSpec) (*types.Operation, error) {
	img := &compute.Image{
		Name:        spec.Name,
		Description: spec.Description,
		SourceDisk:  spec.SourceDisk,
		Family:      spec.Family,
		Labels:      spec.Labels,
	}
	op, err := p.svc.Images.Insert(p.project, img).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to insert image %s: %w", spec.Name, err)
	}
	return operationFromAPI(op), nil
}

// GetImage returns an image of the project by name
func (p *GCPProvider) GetImage(ctx context.Context, name string) (*types.Image, error) {
	img, err := p.svc.Images.Get(p.project, name).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get image %s: %w", name, err)
	}
	return &types.Image{
		Name:       img.Name,
		Status:     types.ImageStatus(img.Status),
		SourceDisk: img.SourceDisk,
		Family:     img.Family,
		Labels:     img.Labels,
	}, nil
}

// GetOperation refreshes a zonal or global operation
func (p *GCPProvider) GetOperation(ctx context.Context, id string, scope types.OperationScope) (*types.Operation, error) {
	var (
		op  *compute.Operation
		err error
	)
	switch scope {
	case types.ScopeZonal:
		op, err = p.svc.ZoneOperations.Get(p.project, p.zone, id).Context(ctx).Do()
	case types.ScopeGlobal:
		op, err = p.svc.GlobalOperations.Get(p.project, id).Context(ctx).Do()
	default:
		return nil, fmt.Errorf("unknown operation scope: %q", scope)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s operation %s: %w", scope, id, err)
	}
	return operationFromAPI(op), nil
}

func instanceFromAPI(inst *compute.Instance) *types.Instance {
	out := &types.Instance{
		Name:      inst.Name,
		Lifecycle: types.ParseLifecycle(inst.Status),
		Disks:     make([]types.Disk, 0, len(inst.Disks)),
	}
	for _, d := range inst.Disks {
		if d == nil {
			continue
		}
		out.Disks = append(out.Disks, types.Disk{
			DeviceName: d.DeviceName,
			Boot:       d.Boot,
			Source:     d.Source,
		})
	}
	return out
}

func operationFromAPI(op *compute.Operation) *types.Operation {
	scope := types.ScopeGlobal
	if op.Zone != "" {
		scope = types.ScopeZonal
	}
	out := &types.Operation{
		ID:     op.Name,
		Scope:  scope,
		Status: types.OperationStatus(op.Status),
	}
	if op.Error != nil {
		for _, e := range op.Error.Errors {
			if e == nil {
				continue
			}
			out.Errors = append(out.Errors, types.OperationErrorDetail{
				Code:     e.Code,
				Message:  e.Message,
				Location: e.Location,
			})
		}
		if len(out.Errors) == 0 {
			out.Errors = append(out.Errors, types.OperationErrorDetail{
				Code:    "UNKNOWN",
				Message: op.HttpErrorMessage,
			})
		}
	}
	return out
}
