package workflow

import (
	"context"

	"github.com/anudishu/promote-cleanup/internal/compute"
	"github.com/anudishu/promote-cleanup/internal/compute/types"
)

// ResourceStateProbe answers whether an instance exists and what state it is in.
// Nothing is cached: the state can change under us at any time.
type ResourceStateProbe struct {
	compute types.Compute
}

// NewResourceStateProbe creates a probe backed by c
func NewResourceStateProbe(c types.Compute) *ResourceStateProbe {
	return &ResourceStateProbe{compute: c}
}

// Exists reports whether the instance exists. Not-found is an answer, not an error.
func (p *ResourceStateProbe) Exists(ctx context.Context, name string) (bool, error) {
	_, err := p.compute.GetInstance(ctx, name)
	switch {
	case err == nil:
		return true, nil
	case compute.IsNotFound(err):
		return false, nil
	default:
		return false, &ProbeError{Instance: name, Err: err}
	}
}

// CurrentState returns the instance projection; a missing instance comes back with
// LifecycleNotFound.
func (p *ResourceStateProbe) CurrentState(ctx context.Context, name string) (*types.Instance, error) {
	inst, err := p.compute.GetInstance(ctx, name)
	switch {
	case err == nil:
		return inst, nil
	case compute.IsNotFound(err):
		return &types.Instance{Name: name, Lifecycle: types.LifecycleNotFound}, nil
	default:
		return nil, &ProbeError{Instance: name, Err: err}
	}
}
