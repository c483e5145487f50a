// Package routes wires the HTTP API
package routes

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/anudishu/promote-cleanup/internal/api/v1/handlers"
	"github.com/anudishu/promote-cleanup/internal/api/v1/middleware"
)

// DefaultBaseURL is the address clients use when none is configured
const DefaultBaseURL = "http://localhost:8080"

// Paths
const (
	APIPrefix      = "/api/v1"
	HealthPath     = "/health"
	MetricsPath    = "/metrics"
	PubSubPushPath = "/events/pubsub"
	RunsPath       = "/runs"
)

// Register mounts health, metrics and the v1 API on app
func Register(app *fiber.App, eventHandler *handlers.EventHandler, runHandler *handlers.RunHandler) {
	app.Use(middleware.Logger())

	app.Get(HealthPath, handlers.Health).Name("health")
	app.Get(MetricsPath, adaptor.HTTPHandler(promhttp.Handler())).Name("metrics")

	v1 := app.Group(APIPrefix)
	v1.Post(PubSubPushPath, eventHandler.PubSubPush).Name("pubsub-push")

	runs := v1.Group(RunsPath)
	runs.Get("/", runHandler.ListRuns).Name("list-runs")
	runs.Get("/:id", runHandler.GetRun).Name("get-run")
}

// HealthCheckURL returns the health endpoint path
func HealthCheckURL() string {
	return HealthPath
}

// PubSubPushURL returns the push endpoint path
func PubSubPushURL() string {
	return APIPrefix + PubSubPushPath
}

// ListRunsURL returns the run listing path
func ListRunsURL() string {
	return APIPrefix + RunsPath
}

// GetRunURL returns the path of one run
func GetRunURL(runID string) string {
	return fmt.Sprintf("%s%s/%s", APIPrefix, RunsPath, runID)
}
