package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/anudishu/promote-cleanup/config"
	"github.com/anudishu/promote-cleanup/internal/app"
	"github.com/anudishu/promote-cleanup/internal/events"
	"github.com/anudishu/promote-cleanup/internal/logger"
	"github.com/anudishu/promote-cleanup/internal/messaging"
	"github.com/anudishu/promote-cleanup/internal/telemetry"
)

const (
	serviceName     = "promote-cleanup"
	shutdownTimeout = 30 * time.Second
	// natsStream captures the trigger subject so the durable consumer survives restarts
	natsStream = "PROMOTE_CLEANUP"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	logger.InitializeAndConfigure()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, serviceName)
	switch {
	case errors.Is(err, telemetry.ErrNoEndpoint):
		logger.Debug("Tracing disabled: no OTLP endpoint configured")
	case err != nil:
		logger.Warnf("Tracing disabled: %v", err)
	default:
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := shutdownTracing(sctx); err != nil {
				logger.Warnf("Failed to flush traces: %v", err)
			}
		}()
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize: %v", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warnf("Failed to close ledger: %v", err)
		}
	}()

	subscribeOutcomes()
	events.Start(ctx)

	if cfg.NATSURL != "" {
		bus, err := startConsumer(ctx, cfg, a)
		if err != nil {
			logger.Fatalf("Failed to start NATS consumer: %v", err)
		}
		defer bus.Close()
	}

	server := a.Server()
	go func() {
		<-ctx.Done()
		logger.Info("Shutting down server")
		if err := server.ShutdownWithTimeout(shutdownTimeout); err != nil {
			logger.Errorf("Server shutdown failed: %v", err)
		}
	}()

	logger.Infof("Listening on :%s (provider=%s, project=%s, zone=%s)", cfg.HTTPPort, cfg.Provider, cfg.Project, cfg.Zone)
	if err := server.Listen(":" + cfg.HTTPPort); err != nil {
		logger.Errorf("Server stopped: %v", err)
	}
}

func startConsumer(ctx context.Context, cfg *config.Config, a *app.App) (*messaging.Bus, error) {
	subject, durable := cfg.NATSSubject, cfg.NATSDurable
	bus, err := messaging.New(cfg.NATSURL)
	if err != nil {
		return nil, err
	}
	if err := bus.EnsureStream(natsStream, subject); err != nil {
		bus.Close()
		return nil, err
	}
	if _, err := bus.Subscribe(ctx, subject, durable, cfg.NATSAckWait, messaging.RunHandler(a.Service)); err != nil {
		bus.Close()
		return nil, err
	}
	logger.Infof("Consuming %s as %s from %s (ack wait %s)", subject, durable, cfg.NATSURL, cfg.NATSAckWait)
	return bus, nil
}

// subscribeOutcomes logs every finished run as one structured line
func subscribeOutcomes() {
	log := func(_ context.Context, e events.Event) error {
		fields := logger.Fields{
			"run_id":   e.RunID,
			"source":   e.Source,
			"instance": e.Request.ValidationInstance,
			"image_id": e.Request.ImageID,
		}
		switch e.Type {
		case events.EventRunFailed:
			fields["error"] = e.Err
			logger.ErrorWithFields("Run failed", fields)
		case events.EventRunSkipped:
			if e.Result != nil {
				fields["reason"] = e.Result.SkipReason
			}
			logger.InfoWithFields("Run skipped", fields)
		default:
			if e.Result != nil && e.Result.PromotedImage != nil {
				fields["promoted_image"] = *e.Result.PromotedImage
			}
			logger.InfoWithFields("Run succeeded", fields)
		}
		return nil
	}
	events.Subscribe(events.EventRunSucceeded, log)
	events.Subscribe(events.EventRunSkipped, log)
	events.Subscribe(events.EventRunFailed, log)
}
