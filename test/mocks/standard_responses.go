package mocks

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/anudishu/promote-cleanup/internal/compute/types"
)

// Default test values
var (
	DefaultProject  = "test-project"
	DefaultZone     = "us-central1-a"
	DefaultInstance = "vm-1"
	DefaultImageID  = "rhel9"
)

// Error values returned by the mock
var (
	ErrAPIUnavailable = errors.New("compute API: service unavailable")
	ErrQuotaExceeded  = errors.New("compute API: quota exceeded")
)

func notFound(kind, name string) error {
	return fmt.Errorf("compute API: %s %s: %w", kind, name, types.ErrNotFound)
}

// world is the in-memory state behind the standard responses
type world struct {
	mu              sync.Mutex
	instances       map[string]*types.Instance
	images          map[string]*types.Image
	operations      map[string]*pendingOperation
	opSeq           int
	pollsBeforeDone int
}

type pendingOperation struct {
	op    types.Operation
	polls int
}

func newWorld() *world {
	return &world{
		instances:  make(map[string]*types.Instance),
		images:     make(map[string]*types.Image),
		operations: make(map[string]*pendingOperation),
	}
}

// newOperation registers an operation that completes after the configured number of polls.
// Callers must hold w.mu.
func (w *world) newOperation(scope types.OperationScope) *types.Operation {
	w.opSeq++
	id := fmt.Sprintf("operation-%d", w.opSeq)
	status := types.OperationRunning
	if w.pollsBeforeDone < 0 {
		status = types.OperationDone
	}
	w.operations[id] = &pendingOperation{
		op: types.Operation{ID: id, Scope: scope, Status: types.OperationDone},
	}
	return &types.Operation{ID: id, Scope: scope, Status: status}
}

func (w *world) getInstance(_ context.Context, name string) (*types.Instance, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	inst, ok := w.instances[name]
	if !ok {
		return nil, notFound("instance", name)
	}
	cp := *inst
	cp.Disks = append([]types.Disk(nil), inst.Disks...)
	return &cp, nil
}

func (w *world) stopInstance(_ context.Context, name string) (*types.Operation, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	inst, ok := w.instances[name]
	if !ok {
		return nil, notFound("instance", name)
	}
	if inst.Lifecycle != types.LifecycleTerminated {
		inst.Lifecycle = types.LifecycleStopped
	}
	return w.newOperation(types.ScopeZonal), nil
}

func (w *world) deleteInstance(_ context.Context, name string) (*types.Operation, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.instances[name]; !ok {
		return nil, notFound("instance", name)
	}
	delete(w.instances, name)
	return w.newOperation(types.ScopeZonal), nil
}

func (w *world) insertImage(_ context.Context, spec types.ImageSpec) (*types.Operation, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.images[spec.Name]; exists {
		return nil, fmt.Errorf("compute API: image %s already exists", spec.Name)
	}
	labels := make(map[string]string, len(spec.Labels))
	for k, v := range spec.Labels {
		labels[k] = v
	}
	w.images[spec.Name] = &types.Image{
		Name:       spec.Name,
		Status:     types.ImageReady,
		SourceDisk: spec.SourceDisk,
		Family:     spec.Family,
		Labels:     labels,
	}
	return w.newOperation(types.ScopeGlobal), nil
}

func (w *world) getImage(_ context.Context, name string) (*types.Image, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	img, ok := w.images[name]
	if !ok {
		return nil, notFound("image", name)
	}
	cp := *img
	return &cp, nil
}

func (w *world) getOperation(_ context.Context, id string, scope types.OperationScope) (*types.Operation, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.operations[id]
	if !ok || p.op.Scope != scope {
		return nil, notFound("operation", id)
	}
	p.polls++
	if p.polls <= w.pollsBeforeDone {
		return &types.Operation{ID: id, Scope: scope, Status: types.OperationRunning}, nil
	}
	cp := p.op
	return &cp, nil
}
