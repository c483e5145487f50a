package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	fiber "github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/anudishu/promote-cleanup/internal/db/models"
	"github.com/anudishu/promote-cleanup/internal/events"
	"github.com/anudishu/promote-cleanup/internal/services"
	"github.com/anudishu/promote-cleanup/internal/workflow"
)

type stubExecutor struct {
	source string
	req    workflow.Request
	res    *workflow.Result
	err    error
}

func (s *stubExecutor) Execute(_ context.Context, source string, req workflow.Request) (*workflow.Result, error) {
	s.source = source
	s.req = req
	return s.res, s.err
}

type stubStore struct {
	runs []models.Run
	opts *models.ListOptions
	err  error
}

func (s *stubStore) GetRun(_ context.Context, runID string) (*models.Run, error) {
	if s.err != nil {
		return nil, s.err
	}
	for i := range s.runs {
		if s.runs[i].RunID == runID {
			return &s.runs[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubStore) ListRuns(_ context.Context, opts *models.ListOptions) ([]models.Run, error) {
	s.opts = opts
	return s.runs, s.err
}

func newTestApp(exec Executor, store RunStore) *fiber.App {
	app := fiber.New()
	app.Post("/push", NewEventHandler(exec).PubSubPush)
	runs := NewRunHandler(store)
	app.Get("/runs", runs.ListRuns)
	app.Get("/runs/:id", runs.GetRun)
	app.Get("/health", Health)
	return app
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, Response) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out Response
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func pushBody(attrs map[string]string) string {
	env := events.PushEnvelope{
		Message: events.Message{
			Data:       base64.StdEncoding.EncodeToString([]byte("validation done")),
			Attributes: attrs,
			MessageID:  "1",
		},
		Subscription: "projects/p/subscriptions/s",
	}
	b, _ := json.Marshal(env)
	return string(b)
}

func TestEventHandler_PubSubPush(t *testing.T) {
	attrs := map[string]string{
		"image_id":            "rhel9",
		"scan_result":         "Pass",
		"validation_instance": "vm-1",
		"skip_promotion":      "True",
	}

	t.Run("success is acknowledged", func(t *testing.T) {
		exec := &stubExecutor{res: &workflow.Result{Status: workflow.StatusSuccess, RunID: "run-1", ValidationInstance: "vm-1"}}
		app := newTestApp(exec, &stubStore{})

		status, resp := do(t, app, http.MethodPost, "/push", pushBody(attrs))
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, SuccessSlug, resp.Slug)
		assert.Equal(t, events.SourcePubSub, exec.source)
		assert.Equal(t, workflow.Request{
			ImageID:            "rhel9",
			ScanResult:         workflow.ScanPass,
			ValidationInstance: "vm-1",
			SkipPromotion:      true,
		}, exec.req)

		data, ok := resp.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "run-1", data["run_id"])
		assert.Nil(t, data["promoted_image"])
	})

	t.Run("skip is acknowledged", func(t *testing.T) {
		exec := &stubExecutor{res: &workflow.Result{Status: workflow.StatusSkipped, SkipReason: workflow.SkipReasonScanResult}}
		app := newTestApp(exec, &stubStore{})

		status, _ := do(t, app, http.MethodPost, "/push", pushBody(map[string]string{"scan_result": "Fail"}))
		assert.Equal(t, http.StatusOK, status)
	})

	t.Run("malformed envelope", func(t *testing.T) {
		exec := &stubExecutor{}
		app := newTestApp(exec, &stubStore{})

		status, resp := do(t, app, http.MethodPost, "/push", `{"message":`)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, InvalidInputSlug, resp.Slug)
		assert.Empty(t, exec.source)
	})

	t.Run("failure asks for redelivery", func(t *testing.T) {
		exec := &stubExecutor{err: &services.RunError{RunID: "run-9", Err: errors.New("quota exceeded")}}
		app := newTestApp(exec, &stubStore{})

		status, resp := do(t, app, http.MethodPost, "/push", pushBody(attrs))
		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Equal(t, ServerErrorSlug, resp.Slug)
		assert.Contains(t, resp.Error, "quota exceeded")
		data, ok := resp.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "run-9", data["run_id"])
	})
}

func TestRunHandler(t *testing.T) {
	store := &stubStore{runs: []models.Run{
		{RunID: "run-1", Status: models.RunStatusSucceeded, ValidationInstance: "vm-1"},
		{RunID: "run-2", Status: models.RunStatusFailed, ValidationInstance: "vm-2"},
	}}
	app := newTestApp(&stubExecutor{}, store)

	t.Run("get", func(t *testing.T) {
		status, resp := do(t, app, http.MethodGet, "/runs/run-2", "")
		assert.Equal(t, http.StatusOK, status)
		data, ok := resp.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "failed", data["status"])
	})

	t.Run("get missing", func(t *testing.T) {
		status, resp := do(t, app, http.MethodGet, "/runs/nope", "")
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, NotFoundSlug, resp.Slug)
	})

	t.Run("list with filters", func(t *testing.T) {
		status, resp := do(t, app, http.MethodGet, "/runs?limit=5&offset=2&status=failed&instance=vm-2", "")
		assert.Equal(t, http.StatusOK, status)
		assert.Len(t, resp.Data, 2)
		require.NotNil(t, store.opts)
		assert.Equal(t, 5, store.opts.Limit)
		assert.Equal(t, 2, store.opts.Offset)
		assert.Equal(t, "vm-2", store.opts.ValidationInstance)
		require.NotNil(t, store.opts.Status)
		assert.Equal(t, models.RunStatusFailed, *store.opts.Status)
	})

	t.Run("list rejects bad status", func(t *testing.T) {
		status, _ := do(t, app, http.MethodGet, "/runs?status=done", "")
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("ledger disabled", func(t *testing.T) {
		app := newTestApp(&stubExecutor{}, &stubStore{err: services.ErrLedgerDisabled})
		status, resp := do(t, app, http.MethodGet, "/runs", "")
		assert.Equal(t, http.StatusServiceUnavailable, status)
		assert.Equal(t, UnavailableSlug, resp.Slug)
	})
}

func TestHealth(t *testing.T) {
	app := newTestApp(&stubExecutor{}, &stubStore{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
