// Package app assembles the promotion service and the HTTP server around it
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	"github.com/anudishu/promote-cleanup/config"
	"github.com/anudishu/promote-cleanup/internal/api/v1/handlers"
	"github.com/anudishu/promote-cleanup/internal/api/v1/routes"
	"github.com/anudishu/promote-cleanup/internal/compute"
	"github.com/anudishu/promote-cleanup/internal/compute/types"
	"github.com/anudishu/promote-cleanup/internal/db"
	"github.com/anudishu/promote-cleanup/internal/db/repos"
	"github.com/anudishu/promote-cleanup/internal/logger"
	"github.com/anudishu/promote-cleanup/internal/services"
	"github.com/anudishu/promote-cleanup/internal/workflow"
)

// App holds the wired components shared by the server and the CLI
type App struct {
	Compute  types.Compute
	Workflow *workflow.Workflow
	Service  *services.Promotion

	db *gorm.DB
}

// New connects the configured compute backend and, when enabled, the run ledger
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	c, err := compute.NewComputeProvider(ctx, compute.ProviderID(cfg.Provider), cfg.Project, cfg.Zone)
	if err != nil {
		return nil, fmt.Errorf("failed to create compute provider: %w", err)
	}

	var gdb *gorm.DB
	if cfg.LedgerEnabled() {
		ssl := cfg.DBSSL
		gdb, err = db.New(db.Options{
			Host:       cfg.DBHost,
			Port:       cfg.DBPort,
			User:       cfg.DBUser,
			Password:   cfg.DBPassword,
			DBName:     cfg.DBName,
			SSLEnabled: &ssl,
		})
		if err != nil {
			return nil, err
		}
		logger.Infof("Run ledger enabled on %s:%d/%s", cfg.DBHost, cfg.DBPort, cfg.DBName)
	} else {
		logger.Info("Run ledger disabled; runs are not recorded")
	}

	return Assemble(c, workflow.OptionsFromConfig(cfg), gdb), nil
}

// Assemble wires a workflow around c. gdb may be nil to run without a ledger.
func Assemble(c types.Compute, opts workflow.Options, gdb *gorm.DB) *App {
	wf := workflow.NewFromCompute(c, opts)

	var repo *repos.RunRepository
	if gdb != nil {
		repo = repos.NewRunRepository(gdb)
	}

	return &App{
		Compute:  c,
		Workflow: wf,
		Service:  services.NewPromotionService(wf, repo),
		db:       gdb,
	}
}

// Server returns the fiber app serving the push endpoint and the run API
func (a *App) Server() *fiber.App {
	server := fiber.New(fiber.Config{
		ErrorHandler:          errorHandler,
		DisableStartupMessage: true,
	})
	server.Use(recover.New())

	routes.Register(server, handlers.NewEventHandler(a.Service), handlers.NewRunHandler(a.Service))
	return server
}

// Close releases the ledger connection
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	slug := handlers.ServerErrorSlug
	switch {
	case code == fiber.StatusNotFound:
		slug = handlers.NotFoundSlug
	case code < fiber.StatusInternalServerError:
		slug = handlers.ErrorSlug
	}

	return c.Status(code).JSON(handlers.Response{Slug: slug, Error: err.Error()})
}
