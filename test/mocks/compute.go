package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/anudishu/promote-cleanup/internal/compute/types"
)

// Method names recorded in the call log
const (
	MethodGetInstance    = "GetInstance"
	MethodStopInstance   = "StopInstance"
	MethodDeleteInstance = "DeleteInstance"
	MethodInsertImage    = "InsertImage"
	MethodGetImage       = "GetImage"
	MethodGetOperation   = "GetOperation"
)

// Call is one recorded invocation of the mock
type Call struct {
	Method string
	Target string
}

// String renders the call as Method(target)
func (c Call) String() string {
	return fmt.Sprintf("%s(%s)", c.Method, c.Target)
}

// MockCompute implements types.Compute for testing
type MockCompute struct {
	GetInstanceFunc    func(ctx context.Context, name string) (*types.Instance, error)
	StopInstanceFunc   func(ctx context.Context, name string) (*types.Operation, error)
	DeleteInstanceFunc func(ctx context.Context, name string) (*types.Operation, error)
	InsertImageFunc    func(ctx context.Context, spec types.ImageSpec) (*types.Operation, error)
	GetImageFunc       func(ctx context.Context, name string) (*types.Image, error)
	GetOperationFunc   func(ctx context.Context, id string, scope types.OperationScope) (*types.Operation, error)

	callsMu sync.Mutex
	calls   []Call

	world *world
}

// NewMockCompute creates a MockCompute with standard responses and an empty world
func NewMockCompute() *MockCompute {
	m := &MockCompute{world: newWorld()}
	m.ResetToStandard()
	return m
}

// ResetToStandard restores every function to the standard world-backed response
func (m *MockCompute) ResetToStandard() {
	w := m.world
	m.GetInstanceFunc = w.getInstance
	m.StopInstanceFunc = w.stopInstance
	m.DeleteInstanceFunc = w.deleteInstance
	m.InsertImageFunc = w.insertImage
	m.GetImageFunc = w.getImage
	m.GetOperationFunc = w.getOperation
}

// AddInstance places a VM with a boot disk in the world
func (m *MockCompute) AddInstance(name string, lifecycle types.Lifecycle) {
	m.world.mu.Lock()
	defer m.world.mu.Unlock()
	m.world.instances[name] = &types.Instance{
		Name:      name,
		Lifecycle: lifecycle,
		Disks: []types.Disk{
			{DeviceName: "data", Boot: false, Source: DiskSource(name + "-data")},
			{DeviceName: "persistent-disk-0", Boot: true, Source: DiskSource(name)},
		},
	}
}

// SetInstance places an arbitrary instance projection in the world
func (m *MockCompute) SetInstance(inst *types.Instance) {
	m.world.mu.Lock()
	defer m.world.mu.Unlock()
	m.world.instances[inst.Name] = inst
}

// HasInstance reports whether the world still holds the VM
func (m *MockCompute) HasInstance(name string) bool {
	m.world.mu.Lock()
	defer m.world.mu.Unlock()
	_, ok := m.world.instances[name]
	return ok
}

// Lifecycle returns the lifecycle the world holds for the VM
func (m *MockCompute) Lifecycle(name string) types.Lifecycle {
	m.world.mu.Lock()
	defer m.world.mu.Unlock()
	inst, ok := m.world.instances[name]
	if !ok {
		return types.LifecycleNotFound
	}
	return inst.Lifecycle
}

// Image returns the image the world holds, if any
func (m *MockCompute) Image(name string) (types.Image, bool) {
	m.world.mu.Lock()
	defer m.world.mu.Unlock()
	img, ok := m.world.images[name]
	if !ok {
		return types.Image{}, false
	}
	return *img, true
}

// Images returns the number of images in the world
func (m *MockCompute) Images() int {
	m.world.mu.Lock()
	defer m.world.mu.Unlock()
	return len(m.world.images)
}

// SetOperationPolls makes standard operations report RUNNING for n polls before DONE
func (m *MockCompute) SetOperationPolls(n int) {
	m.world.mu.Lock()
	defer m.world.mu.Unlock()
	m.world.pollsBeforeDone = n
}

// DiskSource returns the fully qualified path the mock uses for a disk
func DiskSource(disk string) string {
	return fmt.Sprintf("projects/%s/zones/%s/disks/%s", DefaultProject, DefaultZone, disk)
}

// GetInstance calls the mocked GetInstance function
func (m *MockCompute) GetInstance(ctx context.Context, name string) (*types.Instance, error) {
	m.record(MethodGetInstance, name)
	return m.GetInstanceFunc(ctx, name)
}

// StopInstance calls the mocked StopInstance function
func (m *MockCompute) StopInstance(ctx context.Context, name string) (*types.Operation, error) {
	m.record(MethodStopInstance, name)
	return m.StopInstanceFunc(ctx, name)
}

// DeleteInstance calls the mocked DeleteInstance function
func (m *MockCompute) DeleteInstance(ctx context.Context, name string) (*types.Operation, error) {
	m.record(MethodDeleteInstance, name)
	return m.DeleteInstanceFunc(ctx, name)
}

// InsertImage calls the mocked InsertImage function
func (m *MockCompute) InsertImage(ctx context.Context, spec types.ImageSpec) (*types.Operation, error) {
	m.record(MethodInsertImage, spec.Name)
	return m.InsertImageFunc(ctx, spec)
}

// GetImage calls the mocked GetImage function
func (m *MockCompute) GetImage(ctx context.Context, name string) (*types.Image, error) {
	m.record(MethodGetImage, name)
	return m.GetImageFunc(ctx, name)
}

// GetOperation calls the mocked GetOperation function
func (m *MockCompute) GetOperation(ctx context.Context, id string, scope types.OperationScope) (*types.Operation, error) {
	m.record(MethodGetOperation, id)
	return m.GetOperationFunc(ctx, id, scope)
}

func (m *MockCompute) record(method, target string) {
	m.callsMu.Lock()
	defer m.callsMu.Unlock()
	m.calls = append(m.calls, Call{Method: method, Target: target})
}

// Calls returns a copy of the call log
func (m *MockCompute) Calls() []Call {
	m.callsMu.Lock()
	defer m.callsMu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many times method was called
func (m *MockCompute) CallCount(method string) int {
	m.callsMu.Lock()
	defer m.callsMu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// MutatingCalls returns the recorded stop, delete and image insert calls in order
func (m *MockCompute) MutatingCalls() []Call {
	var out []Call
	for _, c := range m.Calls() {
		switch c.Method {
		case MethodStopInstance, MethodDeleteInstance, MethodInsertImage:
			out = append(out, c)
		}
	}
	return out
}

// ResetCalls clears the call log
func (m *MockCompute) ResetCalls() {
	m.callsMu.Lock()
	defer m.callsMu.Unlock()
	m.calls = nil
}

// SimulateNotFound configures every instance call to report a missing VM
func (m *MockCompute) SimulateNotFound() {
	m.GetInstanceFunc = func(_ context.Context, name string) (*types.Instance, error) {
		return nil, notFound("instance", name)
	}
	m.StopInstanceFunc = func(_ context.Context, name string) (*types.Operation, error) {
		return nil, notFound("instance", name)
	}
	m.DeleteInstanceFunc = func(_ context.Context, name string) (*types.Operation, error) {
		return nil, notFound("instance", name)
	}
}

// SimulateAPIError configures every call to fail with err
func (m *MockCompute) SimulateAPIError(err error) {
	m.GetInstanceFunc = func(context.Context, string) (*types.Instance, error) { return nil, err }
	m.StopInstanceFunc = func(context.Context, string) (*types.Operation, error) { return nil, err }
	m.DeleteInstanceFunc = func(context.Context, string) (*types.Operation, error) { return nil, err }
	m.InsertImageFunc = func(context.Context, types.ImageSpec) (*types.Operation, error) { return nil, err }
	m.GetImageFunc = func(context.Context, string) (*types.Image, error) { return nil, err }
	m.GetOperationFunc = func(context.Context, string, types.OperationScope) (*types.Operation, error) { return nil, err }
}
