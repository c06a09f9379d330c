package pipeline

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/JaimeStill/formwise/internal/documents"
	"github.com/JaimeStill/formwise/internal/ocr"
	"github.com/JaimeStill/formwise/pkg/formatting"
	"github.com/JaimeStill/formwise/pkg/retry"
)

// Config bounds the stages of a run.
type Config struct {
	OCRTimeout       string       `toml:"ocr_timeout"`
	WorkflowTimeout  string       `toml:"workflow_timeout"`
	MaxDocumentSize  string       `toml:"max_document_size"`
	AllowedTypes     []string     `toml:"allowed_types"`
	PollInterval     string       `toml:"poll_interval"`
	BatchConcurrency int          `toml:"batch_concurrency"`
	WorkflowName     string       `toml:"workflow_name"`
	Retry            retry.Config `toml:"retry"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	OCRTimeout       string
	WorkflowTimeout  string
	MaxDocumentSize  string
	AllowedTypes     string
	PollInterval     string
	BatchConcurrency string
	WorkflowName     string
	Retry            *retry.Env
}

// OCRTimeoutDuration returns OCRTimeout as a time.Duration.
func (c *Config) OCRTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.OCRTimeout)
	return d
}

// WorkflowTimeoutDuration returns WorkflowTimeout as a time.Duration.
func (c *Config) WorkflowTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.WorkflowTimeout)
	return d
}

// PollIntervalDuration returns PollInterval as a time.Duration.
func (c *Config) PollIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.PollInterval)
	return d
}

// MaxDocumentSizeBytes returns MaxDocumentSize in bytes.
func (c *Config) MaxDocumentSizeBytes() int64 {
	n, _ := formatting.ParseBytes(c.MaxDocumentSize)
	return n
}

// Rules returns the document intake rules.
func (c *Config) Rules() documents.Rules {
	return documents.Rules{
		MaxSize:      c.MaxDocumentSizeBytes(),
		AllowedTypes: c.AllowedTypes,
	}
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	if err := c.validate(); err != nil {
		return err
	}

	var retryEnv *retry.Env
	if env != nil {
		retryEnv = env.Retry
	}
	if err := c.Retry.Finalize(retryEnv); err != nil {
		return fmt.Errorf("retry: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.OCRTimeout != "" {
		c.OCRTimeout = overlay.OCRTimeout
	}
	if overlay.WorkflowTimeout != "" {
		c.WorkflowTimeout = overlay.WorkflowTimeout
	}
	if overlay.MaxDocumentSize != "" {
		c.MaxDocumentSize = overlay.MaxDocumentSize
	}
	if overlay.AllowedTypes != nil {
		c.AllowedTypes = overlay.AllowedTypes
	}
	if overlay.PollInterval != "" {
		c.PollInterval = overlay.PollInterval
	}
	if overlay.BatchConcurrency != 0 {
		c.BatchConcurrency = overlay.BatchConcurrency
	}
	if overlay.WorkflowName != "" {
		c.WorkflowName = overlay.WorkflowName
	}
	c.Retry.Merge(&overlay.Retry)
}

func (c *Config) loadDefaults() {
	if c.OCRTimeout == "" {
		c.OCRTimeout = "30s"
	}
	if c.WorkflowTimeout == "" {
		c.WorkflowTimeout = "15s"
	}
	if c.MaxDocumentSize == "" {
		c.MaxDocumentSize = "10MB"
	}
	if len(c.AllowedTypes) == 0 {
		c.AllowedTypes = []string{ocr.TypePDF, ocr.TypePNG, ocr.TypeJPEG}
	}
	if c.PollInterval == "" {
		c.PollInterval = "500ms"
	}
	if c.BatchConcurrency == 0 {
		c.BatchConcurrency = 4
	}
	if c.WorkflowName == "" {
		c.WorkflowName = WorkflowName
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.OCRTimeout != "" {
		if v := os.Getenv(env.OCRTimeout); v != "" {
			c.OCRTimeout = v
		}
	}
	if env.WorkflowTimeout != "" {
		if v := os.Getenv(env.WorkflowTimeout); v != "" {
			c.WorkflowTimeout = v
		}
	}
	if env.MaxDocumentSize != "" {
		if v := os.Getenv(env.MaxDocumentSize); v != "" {
			c.MaxDocumentSize = v
		}
	}
	if env.AllowedTypes != "" {
		if v := os.Getenv(env.AllowedTypes); v != "" {
			types := strings.Split(v, ",")
			for i := range types {
				types[i] = strings.TrimSpace(types[i])
			}
			c.AllowedTypes = types
		}
	}
	if env.PollInterval != "" {
		if v := os.Getenv(env.PollInterval); v != "" {
			c.PollInterval = v
		}
	}
	if env.BatchConcurrency != "" {
		if v := os.Getenv(env.BatchConcurrency); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.BatchConcurrency = n
			}
		}
	}
	if env.WorkflowName != "" {
		if v := os.Getenv(env.WorkflowName); v != "" {
			c.WorkflowName = v
		}
	}
}

func (c *Config) validate() error {
	for name, v := range map[string]string{
		"ocr_timeout":      c.OCRTimeout,
		"workflow_timeout": c.WorkflowTimeout,
		"poll_interval":    c.PollInterval,
	} {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	size, err := formatting.ParseBytes(c.MaxDocumentSize)
	if err != nil {
		return fmt.Errorf("invalid max_document_size: %w", err)
	}
	if size <= 0 {
		return fmt.Errorf("max_document_size must be positive")
	}
	if c.BatchConcurrency < 1 {
		return fmt.Errorf("batch_concurrency must be at least 1")
	}
	return nil
}
