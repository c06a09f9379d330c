// Package config loads the service configuration from an optional TOML
// file, an optional environment overlay, and FORMWISE_* environment
// variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/formwise/internal/matching"
	"github.com/JaimeStill/formwise/internal/ocr"
	"github.com/JaimeStill/formwise/internal/pipeline"
	"github.com/JaimeStill/formwise/internal/workflow"
	"github.com/JaimeStill/formwise/pkg/cache"
	"github.com/JaimeStill/formwise/pkg/database"
	"github.com/JaimeStill/formwise/pkg/retry"
	"github.com/JaimeStill/formwise/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvFormwiseEnv             = "FORMWISE_ENV"
	EnvFormwiseShutdownTimeout = "FORMWISE_SHUTDOWN_TIMEOUT"
	EnvFormwiseVersion         = "FORMWISE_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "FORMWISE_DB_HOST",
	Port:            "FORMWISE_DB_PORT",
	Name:            "FORMWISE_DB_NAME",
	User:            "FORMWISE_DB_USER",
	Password:        "FORMWISE_DB_PASSWORD",
	SSLMode:         "FORMWISE_DB_SSL_MODE",
	MaxOpenConns:    "FORMWISE_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "FORMWISE_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "FORMWISE_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "FORMWISE_DB_CONN_TIMEOUT",
	ConnectAttempts: "FORMWISE_DB_CONNECT_ATTEMPTS",
}

var storageEnv = &storage.Env{
	Enabled:          "FORMWISE_STORAGE_ENABLED",
	ContainerName:    "FORMWISE_STORAGE_CONTAINER_NAME",
	ConnectionString: "FORMWISE_STORAGE_CONNECTION_STRING",
	ServiceURL:       "FORMWISE_STORAGE_SERVICE_URL",
}

var cacheEnv = &cache.Env{
	Enabled:  "FORMWISE_CACHE_ENABLED",
	Addr:     "FORMWISE_CACHE_ADDR",
	Password: "FORMWISE_CACHE_PASSWORD",
	DB:       "FORMWISE_CACHE_DB",
	TTL:      "FORMWISE_CACHE_TTL",
}

var ocrEnv = &ocr.Env{
	Engine:          "FORMWISE_OCR_ENGINE",
	TesseractPath:   "FORMWISE_OCR_TESSERACT_PATH",
	Language:        "FORMWISE_OCR_LANGUAGE",
	MinTextLength:   "FORMWISE_OCR_MIN_TEXT_LENGTH",
	PageConcurrency: "FORMWISE_OCR_PAGE_CONCURRENCY",
}

var workflowEnv = &workflow.Env{
	BaseURL:      "FORMWISE_WORKFLOW_BASE_URL",
	APIKey:       "FORMWISE_WORKFLOW_API_KEY",
	APIKeyHeader: "FORMWISE_WORKFLOW_API_KEY_HEADER",
	Timeout:      "FORMWISE_WORKFLOW_TIMEOUT",
}

var matchingEnv = &matching.Env{
	Policy:  "FORMWISE_MATCHING_POLICY",
	Keyword: "FORMWISE_MATCHING_KEYWORD",
	Limit:   "FORMWISE_MATCHING_LIMIT",
}

var pipelineEnv = &pipeline.Env{
	OCRTimeout:       "FORMWISE_PIPELINE_OCR_TIMEOUT",
	WorkflowTimeout:  "FORMWISE_PIPELINE_WORKFLOW_TIMEOUT",
	MaxDocumentSize:  "FORMWISE_PIPELINE_MAX_DOCUMENT_SIZE",
	AllowedTypes:     "FORMWISE_PIPELINE_ALLOWED_TYPES",
	PollInterval:     "FORMWISE_PIPELINE_POLL_INTERVAL",
	BatchConcurrency: "FORMWISE_PIPELINE_BATCH_CONCURRENCY",
	WorkflowName:     "FORMWISE_PIPELINE_WORKFLOW_NAME",
	Retry: &retry.Env{
		MaxAttempts:     "FORMWISE_PIPELINE_RETRY_MAX_ATTEMPTS",
		InitialInterval: "FORMWISE_PIPELINE_RETRY_INITIAL_INTERVAL",
		Multiplier:      "FORMWISE_PIPELINE_RETRY_MULTIPLIER",
		MaxInterval:     "FORMWISE_PIPELINE_RETRY_MAX_INTERVAL",
	},
}

// Config is the root configuration for the Formwise service.
type Config struct {
	Server          ServerConfig    `toml:"server"`
	Database        database.Config `toml:"database"`
	Storage         storage.Config  `toml:"storage"`
	Cache           cache.Config    `toml:"cache"`
	Logging         LoggingConfig   `toml:"logging"`
	API             APIConfig       `toml:"api"`
	OCR             ocr.Config      `toml:"ocr"`
	Workflow        workflow.Config `toml:"workflow"`
	Matching        matching.Config `toml:"matching"`
	Pipeline        pipeline.Config `toml:"pipeline"`
	ShutdownTimeout string          `toml:"shutdown_timeout"`
	Version         string          `toml:"version"`
}

// Env returns the FORMWISE_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvFormwiseEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. Without a config.toml, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	return LoadFrom(".")
}

// LoadFrom is Load with config files resolved relative to dir.
func LoadFrom(dir string) (*Config, error) {
	cfg := &Config{}

	base := filepath.Join(dir, BaseConfigFile)
	if _, err := os.Stat(base); err == nil {
		loaded, err := load(base)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(dir); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.Cache.Merge(&overlay.Cache)
	c.Logging.Merge(&overlay.Logging)
	c.API.Merge(&overlay.API)
	c.OCR.Merge(&overlay.OCR)
	c.Workflow.Merge(&overlay.Workflow)
	c.Matching.Merge(&overlay.Matching)
	c.Pipeline.Merge(&overlay.Pipeline)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}

	sections := []struct {
		name     string
		finalize func() error
	}{
		{"server", func() error { return c.Server.Finalize(serverEnv) }},
		{"database", func() error { return c.Database.Finalize(databaseEnv) }},
		{"storage", func() error { return c.Storage.Finalize(storageEnv) }},
		{"cache", func() error { return c.Cache.Finalize(cacheEnv) }},
		{"logging", func() error { return c.Logging.Finalize(loggingEnv) }},
		{"api", func() error { return c.API.Finalize(apiEnv) }},
		{"ocr", func() error { return c.OCR.Finalize(ocrEnv) }},
		{"workflow", func() error { return c.Workflow.Finalize(workflowEnv) }},
		{"matching", func() error { return c.Matching.Finalize(matchingEnv) }},
		{"pipeline", func() error { return c.Pipeline.Finalize(pipelineEnv) }},
	}
	for _, s := range sections {
		if err := s.finalize(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvFormwiseShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvFormwiseVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return &cfg, nil
}

func overlayPath(dir string) string {
	if env := os.Getenv(EnvFormwiseEnv); env != "" {
		path := filepath.Join(dir, fmt.Sprintf(OverlayConfigPattern, env))
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
