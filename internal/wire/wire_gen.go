// Code generated manually. DO NOT EDIT.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package wire

import (
	"context"
	"fmt"

	"github.com/sevigo/review-relay/internal/app"
	"github.com/sevigo/review-relay/internal/config"
	"github.com/sevigo/review-relay/internal/db"
	"github.com/sevigo/review-relay/internal/dedup"
	"github.com/sevigo/review-relay/internal/jobs"
	"github.com/sevigo/review-relay/internal/llm"
	"github.com/sevigo/review-relay/internal/logger"
	"github.com/sevigo/review-relay/internal/publish"
	"github.com/sevigo/review-relay/internal/server"
	"github.com/sevigo/review-relay/internal/storage"
)

// InitializeApp creates and wires all application dependencies.
func InitializeApp(ctx context.Context) (*app.App, func(), error) {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	slogLogger := logger.NewLogger(cfg.Logging, provideLogWriter(cfg))

	// Database (migrations run on connect)
	dbConn, dbCleanup, err := db.NewDatabase(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Outcome store
	outcomes := storage.NewOutcomeStore(dbConn.DB)

	// Redis backs both the dedup store and the task stream
	redisClient := provideRedisClient(cfg)
	cleanup := func() {
		if err := redisClient.Close(); err != nil {
			slogLogger.Error("failed to close redis client", "error", err)
		}
		dbCleanup()
	}

	// Dedup store and task queue
	dedupStore := dedup.NewRedisStore(redisClient, slogLogger)
	producer := provideTaskProducer(redisClient, cfg, slogLogger)
	stream, err := provideTaskStream(redisClient, cfg, slogLogger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to set up task stream: %w", err)
	}

	// Provider strategies
	registry := provideRegistry(cfg, slogLogger)

	// Review backend
	promptMgr, err := llm.NewPromptManager()
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to create prompt manager: %w", err)
	}
	invoker := llm.NewInvoker(llm.NewClient(cfg.Review), promptMgr, cfg.Review, slogLogger)

	// Comment publishing
	posters, err := providePosters(ctx, cfg, slogLogger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to set up comment posters: %w", err)
	}
	publisher := publish.NewPublisher(slogLogger, posters)

	// Repo policy
	policy, err := providePolicy(cfg, slogLogger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to load review policy: %w", err)
	}

	// Review job and consumer
	reviewJob := jobs.NewReviewJob(registry, invoker, publisher, outcomes, policy, slogLogger)
	consumer := jobs.NewConsumer(stream, reviewJob, slogLogger)

	// Server
	srv := server.NewServer(ctx, cfg, registry, dedupStore, producer, slogLogger)

	// App
	application := app.NewApp(ctx, cfg, srv, consumer, slogLogger)

	return application, cleanup, nil
}

// InitializeCLI wires the lighter dependency set used by the command-line
// tools. It connects to Postgres and Redis but starts no consumer group and
// no HTTP listener.
func InitializeCLI() (*app.CLI, func(), error) {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	slogLogger := logger.NewLogger(cfg.Logging, provideLogWriter(cfg))

	// Database (migrations run on connect)
	dbConn, dbCleanup, err := db.NewDatabase(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	outcomes := storage.NewOutcomeStore(dbConn.DB)

	// Redis-backed task producer; the client connects lazily, so commands that
	// never enqueue do not require a reachable Redis
	redisClient := provideRedisClient(cfg)
	producer := provideTaskProducer(redisClient, cfg, slogLogger)

	// Provider strategies
	registry := provideRegistry(cfg, slogLogger)

	cli := app.NewCLI(cfg, outcomes, producer, registry, slogLogger)

	cleanup := func() {
		if err := redisClient.Close(); err != nil {
			slogLogger.Error("failed to close redis client", "error", err)
		}
		dbCleanup()
	}
	return cli, cleanup, nil
}
