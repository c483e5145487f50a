package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anudishu/promote-cleanup/config"
	"github.com/anudishu/promote-cleanup/internal/api/v1/handlers"
	"github.com/anudishu/promote-cleanup/internal/api/v1/routes"
	"github.com/anudishu/promote-cleanup/internal/compute/types"
	"github.com/anudishu/promote-cleanup/internal/events"
	"github.com/anudishu/promote-cleanup/internal/services"
	"github.com/anudishu/promote-cleanup/internal/workflow"
	"github.com/anudishu/promote-cleanup/test/mocks"
)

func newTestApp(t *testing.T) (*App, *mocks.MockCompute) {
	t.Helper()
	m := mocks.NewMockCompute()
	opts := workflow.DefaultOptions()
	opts.Sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	a := Assemble(m, opts, nil)
	t.Cleanup(func() { require.NoError(t, a.Close()) })
	return a, m
}

func decode(t *testing.T, resp *http.Response) handlers.Response {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out handlers.Response
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestNew_UsesConfiguredProvider(t *testing.T) {
	cfg := &config.Config{Provider: "mock", Project: "p", Zone: "z", PollInterval: time.Second, StabilizeInterval: time.Second, DeleteAttempts: 1}

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &mocks.MockCompute{}, a.Compute)
	assert.NotNil(t, a.Workflow)
	assert.NoError(t, a.Close())

	_, err = New(context.Background(), &config.Config{Provider: "vultr"})
	assert.Error(t, err)
}

func TestServer_PushRunsWorkflow(t *testing.T) {
	a, m := newTestApp(t)
	m.AddInstance(mocks.DefaultInstance, types.LifecycleRunning)

	body, err := json.Marshal(events.PushEnvelope{Message: events.Message{Attributes: map[string]string{
		events.AttrImageID:            mocks.DefaultImageID,
		events.AttrScanResult:         string(workflow.ScanPass),
		events.AttrValidationInstance: mocks.DefaultInstance,
	}}})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, routes.PubSubPushURL(), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.Server().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	out := decode(t, resp)
	assert.Equal(t, handlers.SuccessSlug, out.Slug)
	assert.False(t, m.HasInstance(mocks.DefaultInstance))
	assert.Equal(t, 1, m.Images())
}

func TestServer_RunsWithoutLedger(t *testing.T) {
	a, _ := newTestApp(t)

	resp, err := a.Server().Test(httptest.NewRequest(http.MethodGet, routes.ListRunsURL(), nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	_, err = a.Service.ListRuns(context.Background(), nil)
	assert.ErrorIs(t, err, services.ErrLedgerDisabled)
}

func TestServer_UnknownRoute(t *testing.T) {
	a, _ := newTestApp(t)

	resp, err := a.Server().Test(httptest.NewRequest(http.MethodGet, "/nope", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, handlers.NotFoundSlug, decode(t, resp).Slug)
}
