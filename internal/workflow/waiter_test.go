package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anudishu/promote-cleanup/internal/compute/types"
	"github.com/anudishu/promote-cleanup/test/mocks"
)

func TestOperationWaiter_Wait(t *testing.T) {
	ctx := context.Background()

	t.Run("already done returns without polling", func(t *testing.T) {
		m := mocks.NewMockCompute()
		s := &recordingSleeper{}
		w := NewOperationWaiter(m, 2*time.Second, 0, s.Sleep)

		err := w.Wait(ctx, &types.Operation{ID: "op", Scope: types.ScopeZonal, Status: types.OperationDone})
		require.NoError(t, err)
		assert.Equal(t, 0, m.CallCount(mocks.MethodGetOperation))
		assert.Empty(t, s.Sleeps())
	})

	t.Run("polls at the interval until done", func(t *testing.T) {
		m := mocks.NewMockCompute()
		m.AddInstance(mocks.DefaultInstance, types.LifecycleRunning)
		m.SetOperationPolls(2)
		s := &recordingSleeper{}
		w := NewOperationWaiter(m, 2*time.Second, 0, s.Sleep)

		op, err := m.StopInstance(ctx, mocks.DefaultInstance)
		require.NoError(t, err)
		require.False(t, op.Done())

		require.NoError(t, w.Wait(ctx, op))
		assert.Equal(t, 3, m.CallCount(mocks.MethodGetOperation))
		assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, s.Sleeps())
	})

	t.Run("error payload becomes OperationError", func(t *testing.T) {
		m := mocks.NewMockCompute()
		m.GetOperationFunc = func(_ context.Context, id string, scope types.OperationScope) (*types.Operation, error) {
			return &types.Operation{
				ID:     id,
				Scope:  scope,
				Status: types.OperationDone,
				Errors: []types.OperationErrorDetail{{Code: "QUOTA_EXCEEDED", Message: "quota exceeded"}},
			}, nil
		}
		w := NewOperationWaiter(m, time.Second, 0, (&recordingSleeper{}).Sleep)

		err := w.Wait(ctx, &types.Operation{ID: "op-1", Scope: types.ScopeGlobal, Status: types.OperationRunning})
		require.Error(t, err)

		var opErr *OperationError
		require.True(t, errors.As(err, &opErr))
		assert.Equal(t, "op-1", opErr.OperationID)
		assert.Equal(t, types.ScopeGlobal, opErr.Scope)
		require.Len(t, opErr.Details, 1)
		assert.False(t, opErr.NotFound())
		assert.Contains(t, err.Error(), "QUOTA_EXCEEDED")
	})

	t.Run("not-found payload is reported as not found", func(t *testing.T) {
		opErr := &OperationError{Details: []types.OperationErrorDetail{{Code: "RESOURCE_NOT_FOUND"}}}
		assert.True(t, opErr.NotFound())
	})

	t.Run("poll failure is wrapped", func(t *testing.T) {
		m := mocks.NewMockCompute()
		m.SimulateAPIError(mocks.ErrAPIUnavailable)
		w := NewOperationWaiter(m, time.Second, 0, (&recordingSleeper{}).Sleep)

		err := w.Wait(ctx, &types.Operation{ID: "op", Scope: types.ScopeZonal, Status: types.OperationRunning})
		require.Error(t, err)
		assert.ErrorIs(t, err, mocks.ErrAPIUnavailable)
	})

	t.Run("timeout bounds the wait", func(t *testing.T) {
		m := mocks.NewMockCompute()
		m.GetOperationFunc = func(_ context.Context, id string, scope types.OperationScope) (*types.Operation, error) {
			return &types.Operation{ID: id, Scope: scope, Status: types.OperationRunning}, nil
		}
		w := NewOperationWaiter(m, 5*time.Millisecond, 50*time.Millisecond, nil)

		err := w.Wait(ctx, &types.Operation{ID: "op", Scope: types.ScopeZonal, Status: types.OperationRunning})
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		var opErr *OperationError
		require.True(t, errors.As(err, &opErr))
		assert.Equal(t, "op", opErr.OperationID)
	})

	t.Run("cancelled context stops polling", func(t *testing.T) {
		m := mocks.NewMockCompute()
		m.GetOperationFunc = func(ctx context.Context, _ string, _ types.OperationScope) (*types.Operation, error) {
			return nil, ctx.Err()
		}
		w := NewOperationWaiter(m, time.Second, 0, (&recordingSleeper{}).Sleep)

		cctx, cancel := context.WithCancel(ctx)
		cancel()

		err := w.Wait(cctx, &types.Operation{ID: "op", Scope: types.ScopeZonal, Status: types.OperationRunning})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, m.CallCount(mocks.MethodGetOperation))
	})

	t.Run("nil operation", func(t *testing.T) {
		w := NewOperationWaiter(mocks.NewMockCompute(), time.Second, 0, nil)
		assert.Error(t, w.Wait(ctx, nil))
	})
}

func TestOperationWaiter_Await(t *testing.T) {
	ctx := context.Background()
	m := mocks.NewMockCompute()
	m.AddInstance(mocks.DefaultInstance, types.LifecycleRunning)
	w := NewOperationWaiter(m, time.Second, 0, (&recordingSleeper{}).Sleep)

	op, err := m.DeleteInstance(ctx, mocks.DefaultInstance)
	require.NoError(t, err)

	require.NoError(t, w.Await(ctx, op.ID, op.Scope))

	err = w.Await(ctx, "operation-missing", types.ScopeZonal)
	assert.Error(t, err)
}
