package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/natefinch/atomic"
)

// Environment variables holding secrets. They are never written to config.json.
const (
	envAPIToken      = "MIMIC_API_TOKEN"
	envRedisURL      = "MIMIC_REDIS_URL"
	envMastodonToken = "MIMIC_MASTODON_TOKEN"
	envSlackToken    = "MIMIC_SLACK_TOKEN"
)

// ServerConfig holds the configuration for the HTTP API.
type ServerConfig struct {
	ApiAddr          string `json:"api_addr"`
	LogLevel         string `json:"log_level"`
	DataDir          string `json:"data_dir"`
	DatabasePath     string `json:"database_path"`
	CommandTimeoutMs int    `json:"command_timeout_ms"`
	MaxSampleLength  int    `json:"max_sample_length"`
}

// ModelConfig holds the settings for the model cache and sampling.
type ModelConfig struct {
	CacheBudget  int `json:"cache_budget"`
	Workers      int `json:"workers"`
	SampleTries  int `json:"sample_tries"`
	GibberishCap int `json:"gibberish_cap"`
}

// CorpusConfig selects where corpora are recorded.
type CorpusConfig struct {
	Backend     string `json:"backend"` // "sqlite" or "redis"
	RedisPrefix string `json:"redis_prefix"`
}

// FeedsConfig lists the message histories a crawl drains, in order.
type FeedsConfig struct {
	MastodonServer     string   `json:"mastodon_server"`
	MastodonGuild      string   `json:"mastodon_guild"`
	MastodonAccounts   []string `json:"mastodon_accounts"`
	SlackWorkspace     string   `json:"slack_workspace"`
	SlackChannels      []string `json:"slack_channels"`
	OnlyAuthors        []string `json:"only_authors"`
	CrawlLimit         int      `json:"crawl_limit"`
	MonitorIntervalSec int      `json:"monitor_interval_sec"`
}

// Config is the top-level configuration struct that aggregates all other configs.
type Config struct {
	Server *ServerConfig `json:"server_config"`
	Model  *ModelConfig  `json:"model_config"`
	Corpus *CorpusConfig `json:"corpus_config"`
	Feeds  *FeedsConfig  `json:"feeds_config"`
}

// Secrets holds credentials read from the environment.
type Secrets struct {
	APIToken      string
	RedisURL      string
	MastodonToken string
	SlackToken    string
}

// DefaultServerConfig creates a server configuration with default values.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ApiAddr:          ":7380",
		LogLevel:         "info",
		DataDir:          "./data",
		DatabasePath:     "./data/mimic.db?_journal_mode=WAL&_busy_timeout=5000",
		CommandTimeoutMs: 15000,
		MaxSampleLength:  2000,
	}
}

// DefaultModelConfig creates a model configuration with default values.
func DefaultModelConfig() *ModelConfig {
	return &ModelConfig{
		CacheBudget:  2_000_000,
		Workers:      0,
		SampleTries:  10,
		GibberishCap: 1000,
	}
}

// DefaultCorpusConfig creates a corpus configuration with default values.
func DefaultCorpusConfig() *CorpusConfig {
	return &CorpusConfig{
		Backend:     "sqlite",
		RedisPrefix: "mimic:corpus",
	}
}

// DefaultFeedsConfig creates a feeds configuration with default values.
func DefaultFeedsConfig() *FeedsConfig {
	return &FeedsConfig{
		MastodonAccounts:   []string{},
		SlackChannels:      []string{},
		OnlyAuthors:        []string{},
		CrawlLimit:         1000,
		MonitorIntervalSec: 5,
	}
}

// DefaultConfig returns the full default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: DefaultServerConfig(),
		Model:  DefaultModelConfig(),
		Corpus: DefaultCorpusConfig(),
		Feeds:  DefaultFeedsConfig(),
	}
}

// LoadConfig reads the configuration from a JSON file at the given path.
// If the file doesn't exist, it creates one with default values.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			var data []byte
			data, err = json.MarshalIndent(config, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// The defaults are still usable without a file on disk.
				fmt.Fprintf(os.Stderr, "warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return config, nil
}

// LoadSecrets reads credentials from the environment, after loading envPath
// into it when that file exists.
func LoadSecrets(envPath string) (Secrets, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Secrets{}, fmt.Errorf("failed to load %s: %w", envPath, err)
		}
	}
	return Secrets{
		APIToken:      os.Getenv(envAPIToken),
		RedisURL:      os.Getenv(envRedisURL),
		MastodonToken: os.Getenv(envMastodonToken),
		SlackToken:    os.Getenv(envSlackToken),
	}, nil
}

// CommandTimeout is the deadline applied to a single API request's work.
func (c *ServerConfig) CommandTimeout() time.Duration {
	if c.CommandTimeoutMs <= 0 {
		return 0
	}
	return time.Duration(c.CommandTimeoutMs) * time.Millisecond
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newLogger(level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(level)}))
}
