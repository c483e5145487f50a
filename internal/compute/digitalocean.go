package compute

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/digitalocean/godo"

	"github.com/anudishu/promote-cleanup/internal/compute/types"
	"github.com/anudishu/promote-cleanup/internal/constants"
	"github.com/anudishu/promote-cleanup/internal/logger"
)

// dropletSourcePrefix prefixes the pseudo disk path of a droplet. DigitalOcean snapshots whole
// droplets, so the boot disk of a droplet is addressed through the droplet itself.
const dropletSourcePrefix = "droplets/"

const actionErrored = "errored"

// DigitalOceanProvider implements types.Compute on top of droplets, droplet actions and snapshots
type DigitalOceanProvider struct {
	droplets       godo.DropletsService
	dropletActions godo.DropletActionsService
	actions        godo.ActionsService
	snapshots      godo.SnapshotsService
}

// NewDigitalOceanProvider creates a provider authenticated with DIGITALOCEAN_TOKEN
func NewDigitalOceanProvider() (*DigitalOceanProvider, error) {
	token := os.Getenv(constants.EnvDigitalOceanToken)
	if token == "" {
		return nil, fmt.Errorf("%s environment variable is not set", constants.EnvDigitalOceanToken)
	}
	return NewDigitalOceanProviderWithClient(godo.NewFromToken(token)), nil
}

// NewDigitalOceanProviderWithClient creates a provider from an existing godo client
func NewDigitalOceanProviderWithClient(client *godo.Client) *DigitalOceanProvider {
	return &DigitalOceanProvider{
		droplets:       client.Droplets,
		dropletActions: client.DropletActions,
		actions:        client.Actions,
		snapshots:      client.Snapshots,
	}
}

// findDroplet resolves a droplet name to the droplet. Names are not unique on DigitalOcean,
// so more than one match is refused rather than guessed.
func (p *DigitalOceanProvider) findDroplet(ctx context.Context, name string) (*godo.Droplet, error) {
	droplets, _, err := p.droplets.ListByName(ctx, name, &godo.ListOptions{PerPage: 10})
	if err != nil {
		return nil, fmt.Errorf("failed to look up droplet %s: %w", name, err)
	}
	switch len(droplets) {
	case 0:
		return nil, fmt.Errorf("droplet %s: %w", name, types.ErrNotFound)
	case 1:
		return &droplets[0], nil
	default:
		return nil, fmt.Errorf("droplet name %s is ambiguous: %d droplets match", name, len(droplets))
	}
}

// GetInstance returns the current projection of a droplet
func (p *DigitalOceanProvider) GetInstance(ctx context.Context, name string) (*types.Instance, error) {
	d, err := p.findDroplet(ctx, name)
	if err != nil {
		return nil, err
	}
	return instanceFromDroplet(d), nil
}

// StopInstance powers the droplet off
func (p *DigitalOceanProvider) StopInstance(ctx context.Context, name string) (*types.Operation, error) {
	d, err := p.findDroplet(ctx, name)
	if err != nil {
		return nil, err
	}
	if d.Status == "off" {
		return &types.Operation{Scope: types.ScopeGlobal, Status: types.OperationDone}, nil
	}

	action, _, err := p.dropletActions.PowerOff(ctx, d.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to power off droplet %s: %w", name, err)
	}
	return operationFromAction(action), nil
}

// DeleteInstance deletes the droplet. The API deletes synchronously, so the returned
// operation is already done.
func (p *DigitalOceanProvider) DeleteInstance(ctx context.Context, name string) (*types.Operation, error) {
	d, err := p.findDroplet(ctx, name)
	if err != nil {
		return nil, err
	}
	if _, err := p.droplets.Delete(ctx, d.ID); err != nil {
		return nil, fmt.Errorf("failed to delete droplet %s: %w", name, err)
	}
	return &types.Operation{Scope: types.ScopeZonal, Status: types.OperationDone}, nil
}

// InsertImage snapshots the droplet addressed by spec.SourceDisk
func (p *DigitalOceanProvider) InsertImage(ctx context.Context, spec types.ImageSpec) (*types.Operation, error) {
	id, err := dropletIDFromSource(spec.SourceDisk)
	if err != nil {
		return nil, err
	}
	if len(spec.Labels) > 0 || spec.Family != "" {
		logger.Debugf("DigitalOcean snapshots carry no labels or family; ignoring them for %s", spec.Name)
	}

	action, _, err := p.dropletActions.Snapshot(ctx, id, spec.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot droplet %d: %w", id, err)
	}
	return operationFromAction(action), nil
}

// GetImage finds a droplet snapshot by name. Snapshots are only listed once complete.
func (p *DigitalOceanProvider) GetImage(ctx context.Context, name string) (*types.Image, error) {
	opt := &godo.ListOptions{PerPage: 200}
	for {
		snapshots, resp, err := p.snapshots.ListDroplet(ctx, opt)
		if err != nil {
			return nil, fmt.Errorf("failed to list snapshots: %w", err)
		}
		for _, s := range snapshots {
			if s.Name == name {
				return &types.Image{
					Name:       s.Name,
					Status:     types.ImageReady,
					SourceDisk: dropletSourcePrefix + s.ResourceID,
				}, nil
			}
		}

		if resp == nil || resp.Links == nil || resp.Links.IsLastPage() {
			break
		}
		page, err := resp.Links.CurrentPage()
		if err != nil {
			return nil, fmt.Errorf("failed to read snapshot page: %w", err)
		}
		opt.Page = page + 1
	}
	return nil, fmt.Errorf("snapshot %s: %w", name, types.ErrNotFound)
}

// GetOperation refreshes a droplet action. Actions are account wide, so scope is ignored.
func (p *DigitalOceanProvider) GetOperation(ctx context.Context, id string, _ types.OperationScope) (*types.Operation, error) {
	actionID, err := strconv.Atoi(id)
	if err != nil {
		return nil, fmt.Errorf("invalid action id %q: %w", id, err)
	}
	action, _, err := p.actions.Get(ctx, actionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get action %d: %w", actionID, err)
	}
	return operationFromAction(action), nil
}

func dropletIDFromSource(source string) (int, error) {
	if !strings.HasPrefix(source, dropletSourcePrefix) {
		return 0, fmt.Errorf("source %q is not a droplet reference", source)
	}
	id, err := strconv.Atoi(strings.TrimPrefix(source, dropletSourcePrefix))
	if err != nil {
		return 0, fmt.Errorf("invalid droplet id in %q: %w", source, err)
	}
	return id, nil
}

func instanceFromDroplet(d *godo.Droplet) *types.Instance {
	return &types.Instance{
		Name:      d.Name,
		Lifecycle: lifecycleFromDroplet(d.Status),
		Disks: []types.Disk{{
			DeviceName: d.Name,
			Boot:       true,
			Source:     fmt.Sprintf("%s%d", dropletSourcePrefix, d.ID),
		}},
	}
}

func lifecycleFromDroplet(status string) types.Lifecycle {
	switch status {
	case "new":
		return types.LifecycleProvisioning
	case "active":
		return types.LifecycleRunning
	case "off":
		return types.LifecycleStopped
	case "archive":
		return types.LifecycleTerminated
	default:
		return types.LifecycleUnknown
	}
}

func operationFromAction(a *godo.Action) *types.Operation {
	op := &types.Operation{
		ID:     strconv.Itoa(a.ID),
		Scope:  types.ScopeGlobal,
		Status: types.OperationRunning,
	}
	switch a.Status {
	case godo.ActionCompleted:
		op.Status = types.OperationDone
	case actionErrored:
		op.Status = types.OperationDone
		op.Errors = []types.OperationErrorDetail{{
			Code:    "ACTION_ERRORED",
			Message: fmt.Sprintf("%s action %d errored", a.Type, a.ID),
		}}
	}
	return op
}
