// Package client is the Go client of the promote-cleanup HTTP API
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/anudishu/promote-cleanup/internal/api/v1/routes"
	"github.com/anudishu/promote-cleanup/internal/db/models"
	"github.com/anudishu/promote-cleanup/internal/events"
	"github.com/anudishu/promote-cleanup/internal/workflow"
)

// DefaultTimeout is the default timeout for API requests. Publishing waits for the whole
// workflow, so it is generous.
const DefaultTimeout = 30 * time.Minute

// Client defines the interface for interacting with the promote-cleanup API
type Client interface {
	// PublishEvent delivers msg to the push endpoint and returns the run result
	PublishEvent(ctx context.Context, msg events.Message) (*workflow.Result, error)

	// GetRun retrieves a recorded run
	GetRun(ctx context.Context, runID string) (*models.Run, error)
	// ListRuns lists recorded runs
	ListRuns(ctx context.Context, opts *models.ListOptions) ([]models.Run, error)

	// HealthCheck checks the health of the API
	HealthCheck(ctx context.Context) (map[string]string, error)
}

// ClientOptions contains configuration options for the API client
type ClientOptions struct {
	// BaseURL is the base URL of the API
	BaseURL string

	// Timeout is the request timeout
	Timeout time.Duration
}

// DefaultOptions returns the default client options
func DefaultOptions() *ClientOptions {
	return &ClientOptions{
		BaseURL: routes.DefaultBaseURL,
		Timeout: DefaultTimeout,
	}
}

// APIClient implements the Client interface
type APIClient struct {
	baseURL string
	timeout time.Duration
}

// NewClient creates a new API client with the given options
func NewClient(opts *ClientOptions) (Client, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	return &APIClient{
		baseURL: opts.BaseURL,
		timeout: opts.Timeout,
	}, nil
}

// createAgent creates a new Fiber Agent for the given method and endpoint
func (c *APIClient) createAgent(ctx context.Context, method, endpoint string, body interface{}) (*fiber.Agent, error) {
	fullURL := c.baseURL + endpoint

	var agent *fiber.Agent
	switch method {
	case http.MethodGet:
		agent = fiber.Get(fullURL)
	case http.MethodPost:
		agent = fiber.Post(fullURL)
	default:
		return nil, fmt.Errorf("unsupported HTTP method: %s", method)
	}

	if deadline, ok := ctx.Deadline(); ok {
		agent.Timeout(time.Until(deadline))
	} else {
		agent.Timeout(c.timeout)
	}

	agent.Set("Content-Type", "application/json")
	agent.Set("Accept", "application/json")
	if body != nil {
		agent.JSON(body)
	}

	return agent, nil
}

// send performs the request and returns the status code and the raw body
func (c *APIClient) send(ctx context.Context, method, endpoint string, body interface{}) (int, []byte, error) {
	agent, err := c.createAgent(ctx, method, endpoint, body)
	if err != nil {
		return 0, nil, err
	}
	statusCode, raw, errs := agent.Bytes()
	if len(errs) > 0 {
		return 0, nil, fmt.Errorf("error sending request: %w", errs[0])
	}
	return statusCode, raw, nil
}

// executeRequest performs a request answered with the API envelope and decodes its data into v
func (c *APIClient) executeRequest(ctx context.Context, method, endpoint string, body, v interface{}) error {
	statusCode, raw, err := c.send(ctx, method, endpoint, body)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if statusCode < 200 || statusCode >= 300 {
			return &fiber.Error{Code: statusCode, Message: "unknown error"}
		}
		return fmt.Errorf("error decoding response: %w", err)
	}

	if statusCode < 200 || statusCode >= 300 {
		msg := env.Error
		if msg == "" {
			msg = "unknown error"
		}
		return &apiError{fiber.Error{Code: statusCode, Message: msg}, env}
	}

	if v != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, v); err != nil {
			return fmt.Errorf("error decoding response: %w", err)
		}
	}
	return nil
}

// apiError keeps the envelope of a non-2xx response next to the fiber error
type apiError struct {
	err fiber.Error
	env envelope
}

func (e *apiError) Error() string { return e.err.Error() }

func (e *apiError) Unwrap() error { return &e.err }

// PublishEvent delivers msg as a Pub/Sub push and waits for the run to finish
func (c *APIClient) PublishEvent(ctx context.Context, msg events.Message) (*workflow.Result, error) {
	var res workflow.Result
	err := c.executeRequest(ctx, http.MethodPost, routes.PubSubPushURL(), events.PushEnvelope{Message: msg}, &res)
	if err != nil {
		if ae, ok := err.(*apiError); ok && ae.err.Code == http.StatusInternalServerError {
			var failure struct {
				RunID string `json:"run_id"`
			}
			_ = json.Unmarshal(ae.env.Data, &failure)
			return nil, &RunFailedError{RunID: failure.RunID, Message: ae.err.Message}
		}
		return nil, err
	}
	return &res, nil
}

// GetRun retrieves a run by ID
func (c *APIClient) GetRun(ctx context.Context, runID string) (*models.Run, error) {
	var run models.Run
	if err := c.executeRequest(ctx, http.MethodGet, routes.GetRunURL(runID), nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns lists runs with optional filtering
func (c *APIClient) ListRuns(ctx context.Context, opts *models.ListOptions) ([]models.Run, error) {
	endpoint := routes.ListRunsURL()
	if opts != nil {
		q := url.Values{}
		if opts.Limit > 0 {
			q.Set("limit", fmt.Sprintf("%d", opts.Limit))
		}
		if opts.Offset > 0 {
			q.Set("offset", fmt.Sprintf("%d", opts.Offset))
		}
		if opts.Status != nil {
			q.Set("status", opts.Status.String())
		}
		if opts.ValidationInstance != "" {
			q.Set("instance", opts.ValidationInstance)
		}
		if len(q) > 0 {
			endpoint += "?" + q.Encode()
		}
	}

	var runs []models.Run
	if err := c.executeRequest(ctx, http.MethodGet, endpoint, nil, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

// HealthCheck checks the health of the API
func (c *APIClient) HealthCheck(ctx context.Context) (map[string]string, error) {
	statusCode, raw, err := c.send(ctx, http.MethodGet, routes.HealthCheckURL(), nil)
	if err != nil {
		return nil, err
	}
	if statusCode != http.StatusOK {
		return nil, &fiber.Error{Code: statusCode, Message: "unhealthy"}
	}
	var response map[string]string
	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, fmt.Errorf("error decoding response: %w", err)
	}
	return response, nil
}
