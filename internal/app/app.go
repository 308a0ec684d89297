// Package app initializes and orchestrates the main components of the
// Review-Relay application: the HTTP ingestion server and the queue consumer.
package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sevigo/review-relay/internal/config"
	"github.com/sevigo/review-relay/internal/jobs"
	"github.com/sevigo/review-relay/internal/server"
)

// consumerDrainTimeout bounds how long Stop waits for in-flight review work.
const consumerDrainTimeout = 15 * time.Second

// App holds the main application components.
type App struct {
	ctx      context.Context
	cancel   context.CancelFunc
	cfg      *config.Config
	server   *server.Server
	consumer *jobs.Consumer
	logger   *slog.Logger
	done     chan struct{}
}

// NewApp assembles the application from its already-constructed components.
// Connection lifecycles stay with the caller; the app only runs and stops the
// server and the consumer.
func NewApp(ctx context.Context, cfg *config.Config, srv *server.Server, consumer *jobs.Consumer, logger *slog.Logger) *App {
	runCtx, cancel := context.WithCancel(ctx)

	return &App{
		ctx:      runCtx,
		cancel:   cancel,
		cfg:      cfg,
		server:   srv,
		consumer: consumer,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start runs the HTTP server and the queue consumer and blocks until both have
// exited. The two are tied together: when either fails, the other is wound down.
func (a *App) Start() error {
	a.logger.Info("starting Review-Relay",
		"server_port", a.cfg.Server.Port,
		"task_stream", a.cfg.Consumer.Stream)

	defer close(a.done)

	g, ctx := errgroup.WithContext(a.ctx)
	g.Go(func() error {
		return a.consumer.Run(ctx)
	})
	g.Go(func() error {
		defer a.cancel()
		return a.server.Start()
	})

	return g.Wait()
}

// Stop shuts down the application cleanly.
func (a *App) Stop() error {
	a.logger.Info("shutting down Review-Relay services")

	// Stop the HTTP server first to prevent new incoming deliveries.
	serverErr := a.server.Stop()
	if serverErr != nil {
		a.logger.Error("error during HTTP server shutdown", "error", serverErr)
		// Continue to stop the consumer even if the server failed.
	}

	// Wind down the consumer and give in-flight review work a grace period.
	a.cancel()
	select {
	case <-a.done:
	case <-time.After(consumerDrainTimeout):
		a.logger.Warn("queue consumer did not drain before the shutdown deadline")
	}

	if serverErr != nil {
		a.logger.Error("Review-Relay stopped with errors", "error", serverErr)
		return serverErr
	}

	a.logger.Info("Review-Relay stopped successfully")
	return nil
}
