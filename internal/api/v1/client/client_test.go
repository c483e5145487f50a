package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anudishu/promote-cleanup/internal/api/v1/routes"
	"github.com/anudishu/promote-cleanup/internal/db/models"
	"github.com/anudishu/promote-cleanup/internal/events"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		opts    *ClientOptions
		wantErr bool
	}{
		{name: "nil options", opts: nil},
		{name: "valid options", opts: &ClientOptions{BaseURL: "http://example.com", Timeout: 10 * time.Second}},
		{name: "invalid base URL", opts: &ClientOptions{BaseURL: "://invalid-url"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.opts)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, client)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, client)
			}
		})
	}
}

func TestAPIClient_createAgent(t *testing.T) {
	client, err := NewClient(&ClientOptions{BaseURL: "http://example.com"})
	require.NoError(t, err)
	apiClient := client.(*APIClient)

	agent, err := apiClient.createAgent(context.Background(), http.MethodPost, "/test", map[string]string{"a": "b"})
	assert.NoError(t, err)
	assert.NotNil(t, agent)

	agent, err = apiClient.createAgent(context.Background(), http.MethodDelete, "/test", nil)
	assert.Error(t, err)
	assert.Nil(t, agent)
	assert.Contains(t, err.Error(), "unsupported HTTP method")
}

// cannedServer answers every request with status and body and records the last request URI
func cannedServer(t *testing.T, status int, body string) (Client, *string) {
	t.Helper()
	var lastURI string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastURI = r.URL.RequestURI()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(&ClientOptions{BaseURL: server.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)
	return c, &lastURI
}

func TestAPIClient_PublishEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		c, uri := cannedServer(t, http.StatusOK, `{"slug":"success","data":{"status":"skipped","promoted_image":null,"validation_instance":"","timestamp":"2024-03-05T14:07:09Z","skip_reason":"no validation_instance provided","run_id":"r-1"}}`)
		res, err := c.PublishEvent(ctx, events.Message{})
		require.NoError(t, err)
		assert.Equal(t, routes.PubSubPushURL(), *uri)
		assert.Equal(t, "skipped", res.Status)
		assert.Equal(t, "r-1", res.RunID)
	})

	t.Run("failed run", func(t *testing.T) {
		c, _ := cannedServer(t, http.StatusInternalServerError, `{"slug":"server-error","error":"quota exceeded","data":{"run_id":"r-2"}}`)
		_, err := c.PublishEvent(ctx, events.Message{})
		var runErr *RunFailedError
		require.True(t, errors.As(err, &runErr))
		assert.Equal(t, "r-2", runErr.RunID)
		assert.Equal(t, "quota exceeded", runErr.Message)
	})

	t.Run("bad request", func(t *testing.T) {
		c, _ := cannedServer(t, http.StatusBadRequest, `{"slug":"invalid-input","error":"malformed push envelope"}`)
		_, err := c.PublishEvent(ctx, events.Message{})
		var fiberErr *fiber.Error
		require.True(t, errors.As(err, &fiberErr))
		assert.Equal(t, http.StatusBadRequest, fiberErr.Code)
	})
}

func TestAPIClient_ListRunsQuery(t *testing.T) {
	c, uri := cannedServer(t, http.StatusOK, `{"slug":"success","data":[]}`)
	status := models.RunStatusFailed

	runs, err := c.ListRuns(context.Background(), &models.ListOptions{Limit: 5, Offset: 10, Status: &status, ValidationInstance: "vm-1"})
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.Equal(t, routes.ListRunsURL()+"?instance=vm-1&limit=5&offset=10&status=failed", *uri)
}

func TestAPIClient_HealthCheck(t *testing.T) {
	c, _ := cannedServer(t, http.StatusServiceUnavailable, `{"status":"down"}`)
	_, err := c.HealthCheck(context.Background())
	var fiberErr *fiber.Error
	require.True(t, errors.As(err, &fiberErr))
	assert.Equal(t, http.StatusServiceUnavailable, fiberErr.Code)
}
