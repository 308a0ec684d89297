package app

import (
	"log/slog"

	"github.com/sevigo/review-relay/internal/config"
	"github.com/sevigo/review-relay/internal/core"
	"github.com/sevigo/review-relay/internal/provider"
)

// CLI bundles the components the command-line tools need. It connects to the
// backing stores but runs no HTTP listener and no consumer.
type CLI struct {
	Cfg      *config.Config
	Outcomes core.OutcomeStore
	Producer core.TaskProducer
	Registry *provider.Registry
	Logger   *slog.Logger
}

// NewCLI assembles the command-line component bundle.
func NewCLI(cfg *config.Config, outcomes core.OutcomeStore, producer core.TaskProducer, registry *provider.Registry, logger *slog.Logger) *CLI {
	return &CLI{
		Cfg:      cfg,
		Outcomes: outcomes,
		Producer: producer,
		Registry: registry,
		Logger:   logger,
	}
}
