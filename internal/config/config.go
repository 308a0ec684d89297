package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"

	"github.com/sevigo/review-relay/internal/logger"
)

// Config holds the application's configuration values, validated once at
// startup. Components receive the typed sections they need and never consult
// the environment themselves.
type Config struct {
	Server   ServerConfig
	Database DBConfig
	Redis    RedisConfig
	GitHub   GitHubConfig
	GitLab   GitLabConfig
	Review   ReviewConfig
	Consumer ConsumerConfig
	Logging  logger.Config

	// PolicyPath points at the optional per-repo review policy file.
	PolicyPath string
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port string
}

// DBConfig holds the Postgres connection settings.
type DBConfig struct {
	Host            string
	Port            int
	Username        string
	Password        string
	Database        string
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// RedisConfig holds the connection settings shared by the dedup store and the
// task queue.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// GitHubConfig holds webhook verification and comment-publishing credentials.
// Token selects PAT auth; AppID plus InstallationID and PrivateKeyPath select
// App installation auth. Exactly one of the two modes must be configured when
// the GitHub webhook secret is set.
type GitHubConfig struct {
	WebhookSecret  string
	Token          string
	AppID          int64
	InstallationID int64
	PrivateKeyPath string
}

// GitLabConfig holds webhook verification and comment-publishing credentials.
type GitLabConfig struct {
	WebhookSecret string
	Token         string
	BaseURL       string
}

// ReviewConfig holds the settings for the review backend, an OpenAI-compatible
// chat-completions endpoint.
type ReviewConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// ConsumerConfig holds the task stream consumer settings.
type ConsumerConfig struct {
	Stream         string
	Group          string
	Name           string
	DLQStream      string
	BatchSize      int64
	Block          time.Duration
	MaxAttempts    int
	ReclaimMinIdle time.Duration
}

// LoadConfig reads configuration from environment variables and a .env file,
// sets sensible defaults, and validates required fields. It uses the Viper
// library to handle configuration loading and precedence.
func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")
	viper.SetDefault("LOG_OUTPUT", "stdout")

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 5432)
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "review_relay")
	viper.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	viper.SetDefault("DB_CONN_MAX_IDLE_TIME", "5m")

	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)

	viper.SetDefault("GITLAB_BASE_URL", "https://gitlab.com/api/v4")

	viper.SetDefault("REVIEW_API_URL", "http://localhost:8000/v1")
	viper.SetDefault("REVIEW_MODEL", "deepseek-chat")
	viper.SetDefault("REVIEW_TEMPERATURE", 0.1)
	viper.SetDefault("REVIEW_TIMEOUT", "120s")

	viper.SetDefault("TASK_STREAM", "review_tasks")
	viper.SetDefault("TASK_GROUP", "review-workers")
	viper.SetDefault("TASK_DLQ_STREAM", "review_tasks_dlq")
	viper.SetDefault("CONSUMER_NAME", "")
	viper.SetDefault("CONSUMER_BATCH_SIZE", 8)
	viper.SetDefault("CONSUMER_BLOCK", "5s")
	viper.SetDefault("CONSUMER_MAX_ATTEMPTS", 3)
	viper.SetDefault("CONSUMER_RECLAIM_MIN_IDLE", "60s")

	viper.SetDefault("REVIEW_POLICY_PATH", "review-policy.yml")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", "error", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
		},
		Database: DBConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetInt("DB_PORT"),
			Username:        viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			Database:        viper.GetString("DB_NAME"),
			ConnMaxLifetime: viper.GetDuration("DB_CONN_MAX_LIFETIME"),
			ConnMaxIdleTime: viper.GetDuration("DB_CONN_MAX_IDLE_TIME"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("REDIS_ADDR"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		GitHub: GitHubConfig{
			WebhookSecret:  viper.GetString("GITHUB_WEBHOOK_SECRET"),
			Token:          viper.GetString("GITHUB_TOKEN"),
			AppID:          viper.GetInt64("GITHUB_APP_ID"),
			InstallationID: viper.GetInt64("GITHUB_INSTALLATION_ID"),
			PrivateKeyPath: viper.GetString("GITHUB_PRIVATE_KEY_PATH"),
		},
		GitLab: GitLabConfig{
			WebhookSecret: viper.GetString("GITLAB_WEBHOOK_SECRET"),
			Token:         viper.GetString("GITLAB_TOKEN"),
			BaseURL:       viper.GetString("GITLAB_BASE_URL"),
		},
		Review: ReviewConfig{
			BaseURL:     viper.GetString("REVIEW_API_URL"),
			APIKey:      viper.GetString("REVIEW_API_KEY"),
			Model:       viper.GetString("REVIEW_MODEL"),
			Temperature: viper.GetFloat64("REVIEW_TEMPERATURE"),
			Timeout:     viper.GetDuration("REVIEW_TIMEOUT"),
		},
		Consumer: ConsumerConfig{
			Stream:         viper.GetString("TASK_STREAM"),
			Group:          viper.GetString("TASK_GROUP"),
			Name:           viper.GetString("CONSUMER_NAME"),
			DLQStream:      viper.GetString("TASK_DLQ_STREAM"),
			BatchSize:      viper.GetInt64("CONSUMER_BATCH_SIZE"),
			Block:          viper.GetDuration("CONSUMER_BLOCK"),
			MaxAttempts:    viper.GetInt("CONSUMER_MAX_ATTEMPTS"),
			ReclaimMinIdle: viper.GetDuration("CONSUMER_RECLAIM_MIN_IDLE"),
		},
		Logging: logger.Config{
			Level:  viper.GetString("LOG_LEVEL"),
			Format: viper.GetString("LOG_FORMAT"),
			Output: viper.GetString("LOG_OUTPUT"),
		},
		PolicyPath: viper.GetString("REVIEW_POLICY_PATH"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the loaded configuration for inconsistencies that would only
// surface later as confusing runtime failures.
func (c *Config) Validate() error {
	if c.GitHub.WebhookSecret == "" && c.GitLab.WebhookSecret == "" {
		return fmt.Errorf("at least one of GITHUB_WEBHOOK_SECRET or GITLAB_WEBHOOK_SECRET must be set")
	}
	if err := c.GitHub.Validate(); err != nil {
		return err
	}
	if err := c.GitLab.Validate(); err != nil {
		return err
	}
	if err := c.Review.Validate(); err != nil {
		return err
	}
	if err := c.Consumer.Validate(); err != nil {
		return err
	}
	return nil
}

// Validate checks that comment publishing is configured whenever the webhook
// secret enables GitHub ingestion.
func (c *GitHubConfig) Validate() error {
	if c.WebhookSecret == "" {
		return nil
	}
	hasPAT := c.Token != ""
	hasApp := c.AppID != 0 || c.InstallationID != 0 || c.PrivateKeyPath != ""
	if hasPAT && hasApp {
		return fmt.Errorf("GITHUB_TOKEN and GitHub App credentials are mutually exclusive")
	}
	if hasApp {
		if c.AppID == 0 || c.InstallationID == 0 || c.PrivateKeyPath == "" {
			return fmt.Errorf("GitHub App auth requires GITHUB_APP_ID, GITHUB_INSTALLATION_ID and GITHUB_PRIVATE_KEY_PATH")
		}
		return nil
	}
	if !hasPAT {
		return fmt.Errorf("GitHub publishing requires GITHUB_TOKEN or GitHub App credentials")
	}
	return nil
}

// Validate checks that comment publishing is configured whenever the webhook
// secret enables GitLab ingestion.
func (c *GitLabConfig) Validate() error {
	if c.WebhookSecret == "" {
		return nil
	}
	if c.Token == "" {
		return fmt.Errorf("GitLab publishing requires GITLAB_TOKEN")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("GITLAB_BASE_URL must not be empty")
	}
	return nil
}

// Validate checks the review backend settings.
func (c *ReviewConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("REVIEW_API_URL must be set")
	}
	if c.Model == "" {
		return fmt.Errorf("REVIEW_MODEL must be set")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("REVIEW_TEMPERATURE must be between 0 and 2, got %v", c.Temperature)
	}
	return nil
}

// Validate checks the consumer settings.
func (c *ConsumerConfig) Validate() error {
	if c.Stream == "" || c.Group == "" {
		return fmt.Errorf("TASK_STREAM and TASK_GROUP must be set")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("CONSUMER_BATCH_SIZE must be positive, got %d", c.BatchSize)
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("CONSUMER_MAX_ATTEMPTS must be positive, got %d", c.MaxAttempts)
	}
	return nil
}
