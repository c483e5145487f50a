// Package mock provides a recording Client for command tests
package mock

import (
	"context"
	"time"

	"github.com/anudishu/promote-cleanup/internal/api/v1/client"
	"github.com/anudishu/promote-cleanup/internal/db/models"
	"github.com/anudishu/promote-cleanup/internal/events"
	"github.com/anudishu/promote-cleanup/internal/workflow"
)

// MockClient implements the Client interface for testing
type MockClient struct {
	// Function fields that can be set to mock behavior
	PublishEventFn func(ctx context.Context, msg events.Message) (*workflow.Result, error)
	GetRunFn       func(ctx context.Context, runID string) (*models.Run, error)
	ListRunsFn     func(ctx context.Context, opts *models.ListOptions) ([]models.Run, error)
	HealthCheckFn  func(ctx context.Context) (map[string]string, error)

	// Call tracking for verification
	PublishEventCalls []events.Message
	GetRunCalls       []string
	ListRunsCalls     []*models.ListOptions
	HealthCheckCalls  int
}

// Ensure MockClient implements Client interface
var _ client.Client = (*MockClient)(nil)

// PublishEvent mocks the PublishEvent method. By default it reports a successful run.
func (m *MockClient) PublishEvent(ctx context.Context, msg events.Message) (*workflow.Result, error) {
	m.PublishEventCalls = append(m.PublishEventCalls, msg)
	if m.PublishEventFn != nil {
		return m.PublishEventFn(ctx, msg)
	}

	req := events.ParseMessage(msg)
	image := workflow.ImageName(req.ImageID, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	return &workflow.Result{
		Status:             workflow.StatusSuccess,
		PromotedImage:      &image,
		ValidationInstance: req.ValidationInstance,
		Timestamp:          "2024-01-01T00:00:00Z",
		RunID:              "mock-run",
	}, nil
}

// GetRun mocks the GetRun method
func (m *MockClient) GetRun(ctx context.Context, runID string) (*models.Run, error) {
	m.GetRunCalls = append(m.GetRunCalls, runID)
	if m.GetRunFn != nil {
		return m.GetRunFn(ctx, runID)
	}
	return &models.Run{RunID: runID, Status: models.RunStatusSucceeded}, nil
}

// ListRuns mocks the ListRuns method
func (m *MockClient) ListRuns(ctx context.Context, opts *models.ListOptions) ([]models.Run, error) {
	m.ListRunsCalls = append(m.ListRunsCalls, opts)
	if m.ListRunsFn != nil {
		return m.ListRunsFn(ctx, opts)
	}
	return []models.Run{}, nil
}

// HealthCheck mocks the HealthCheck method
func (m *MockClient) HealthCheck(ctx context.Context) (map[string]string, error) {
	m.HealthCheckCalls++
	if m.HealthCheckFn != nil {
		return m.HealthCheckFn(ctx)
	}
	return map[string]string{"status": "healthy"}, nil
}
