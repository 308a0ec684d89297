package wire

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/google/wire"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/sevigo/review-relay/internal/app"
	"github.com/sevigo/review-relay/internal/config"
	"github.com/sevigo/review-relay/internal/core"
	"github.com/sevigo/review-relay/internal/db"
	"github.com/sevigo/review-relay/internal/dedup"
	"github.com/sevigo/review-relay/internal/jobs"
	"github.com/sevigo/review-relay/internal/llm"
	"github.com/sevigo/review-relay/internal/logger"
	"github.com/sevigo/review-relay/internal/provider"
	"github.com/sevigo/review-relay/internal/publish"
	"github.com/sevigo/review-relay/internal/queue"
	"github.com/sevigo/review-relay/internal/server"
	"github.com/sevigo/review-relay/internal/storage"
)

var AppSet = wire.NewSet(
	app.NewApp,
	server.NewServer,
	logger.NewLogger,
	config.LoadConfig,
	db.NewDatabase,
	storage.NewOutcomeStore,
	dedup.NewRedisStore,
	jobs.NewReviewJob,
	jobs.NewConsumer,
	llm.NewPromptManager,
	llm.NewClient,
	llm.NewInvoker,
	publish.NewPublisher,
	provideRedisClient,
	provideRegistry,
	providePosters,
	provideTaskProducer,
	provideTaskStream,
	providePolicy,
	provideReviewConfig,
	provideLoggerConfig,
	provideLogWriter,
	provideDBConfig,
	provideSQLDB,
	wire.Bind(new(core.Invoker), new(*llm.Invoker)),
	wire.Bind(new(core.Publisher), new(*publish.Publisher)),
	wire.Bind(new(jobs.Job), new(*jobs.ReviewJob)),
)

// CLISet wires the lighter bundle used by the command-line tools.
var CLISet = wire.NewSet(
	app.NewCLI,
	logger.NewLogger,
	config.LoadConfig,
	db.NewDatabase,
	storage.NewOutcomeStore,
	provideRedisClient,
	provideRegistry,
	provideTaskProducer,
	provideLoggerConfig,
	provideLogWriter,
	provideDBConfig,
	provideSQLDB,
)

func provideRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func provideRegistry(cfg *config.Config, logger *slog.Logger) *provider.Registry {
	return provider.NewRegistry(
		provider.NewGitHub(cfg.GitHub, logger),
		provider.NewGitLab(cfg.GitLab, logger),
	)
}

// providePosters builds one comment poster per provider whose ingestion is
// enabled. Config validation already guarantees that an enabled provider
// carries complete publishing credentials.
func providePosters(ctx context.Context, cfg *config.Config, logger *slog.Logger) (map[core.Provider]publish.Poster, error) {
	posters := make(map[core.Provider]publish.Poster)

	if cfg.GitHub.WebhookSecret != "" {
		poster, err := publish.NewGitHubPosterFromConfig(ctx, cfg.GitHub, logger)
		if err != nil {
			return nil, err
		}
		posters[core.ProviderGitHub] = poster
	}
	if cfg.GitLab.WebhookSecret != "" {
		poster, err := publish.NewGitLabPosterFromConfig(cfg.GitLab, logger)
		if err != nil {
			return nil, err
		}
		posters[core.ProviderGitLab] = poster
	}
	return posters, nil
}

func provideTaskProducer(client *redis.Client, cfg *config.Config, logger *slog.Logger) core.TaskProducer {
	return queue.NewRedisProducer(client, cfg.Consumer.Stream, logger)
}

func provideTaskStream(client *redis.Client, cfg *config.Config, logger *slog.Logger) (jobs.TaskStream, error) {
	return queue.NewRedisConsumer(client, queue.ConsumerConfig{
		Stream:      cfg.Consumer.Stream,
		Group:       cfg.Consumer.Group,
		Consumer:    cfg.Consumer.Name,
		DLQStream:   cfg.Consumer.DLQStream,
		BatchSize:   cfg.Consumer.BatchSize,
		Block:       cfg.Consumer.Block,
		MaxAttempts: cfg.Consumer.MaxAttempts,
		MinIdle:     cfg.Consumer.ReclaimMinIdle,
	}, logger)
}

// providePolicy loads the optional review policy file. A missing file falls
// back to built-in defaults; a present but unparsable file is fatal.
func providePolicy(cfg *config.Config, logger *slog.Logger) (*config.Policy, error) {
	policy, err := config.LoadPolicy(cfg.PolicyPath)
	if err != nil {
		if errors.Is(err, config.ErrPolicyNotFound) {
			logger.Info("no review policy file found, using defaults", "path", cfg.PolicyPath)
			return policy, nil
		}
		return nil, err
	}
	logger.Info("loaded review policy", "path", cfg.PolicyPath, "repo_overrides", len(policy.Repos))
	return policy, nil
}

func provideReviewConfig(cfg *config.Config) config.ReviewConfig {
	return cfg.Review
}

func provideLoggerConfig(cfg *config.Config) logger.Config {
	return cfg.Logging
}

func provideLogWriter(cfg *config.Config) io.Writer {
	return logger.OpenOutput(cfg.Logging.Output)
}

func provideDBConfig(cfg *config.Config) *config.DBConfig {
	return &cfg.Database
}

func provideSQLDB(dbConn *db.DB) *sqlx.DB {
	return dbConn.DB
}
