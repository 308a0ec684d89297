package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Config holds the logger configuration.
type Config struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// NewLogger initializes a new slog logger based on the provided configuration.
// A non-nil output overrides the configured destination, which tests use to
// capture log lines.
func NewLogger(cfg Config, output io.Writer) *slog.Logger {
	if output == nil {
		output = OpenOutput(cfg.Output)
	}

	level := new(slog.Level)
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		*level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text":
		fallthrough
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}

// OpenOutput resolves a configured destination name to a writer. It never
// returns nil: a log file that cannot be opened falls back to stdout.
func OpenOutput(name string) io.Writer {
	switch name {
	case "stdout":
		return os.Stdout
	case "stderr":
		return os.Stderr
	case "file":
		file, err := os.OpenFile("review-relay.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			fmt.Printf("Failed to open log file: %v\n", err)
			return os.Stdout
		}
		return file
	default:
		return os.Stdout
	}
}
