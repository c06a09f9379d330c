package workflow

import (
	"fmt"
	"maps"
	"net/url"
	"os"
	"time"
)

// Config holds workflow engine connection parameters.
// Workflows maps logical workflow names to engine workflow ids; a name
// without an entry is used as the id.
type Config struct {
	BaseURL      string            `toml:"base_url"`
	APIKey       string            `toml:"api_key"`
	APIKeyHeader string            `toml:"api_key_header"`
	Timeout      string            `toml:"timeout"`
	Workflows    map[string]string `toml:"workflows"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	BaseURL      string
	APIKey       string
	APIKeyHeader string
	Timeout      string
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// WorkflowID resolves a logical workflow name to the engine's id.
func (c *Config) WorkflowID(name string) string {
	if id, ok := c.Workflows[name]; ok && id != "" {
		return id
	}
	return name
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay. Workflow mappings are
// merged key by key.
func (c *Config) Merge(overlay *Config) {
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.APIKey != "" {
		c.APIKey = overlay.APIKey
	}
	if overlay.APIKeyHeader != "" {
		c.APIKeyHeader = overlay.APIKeyHeader
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if len(overlay.Workflows) > 0 {
		if c.Workflows == nil {
			c.Workflows = make(map[string]string, len(overlay.Workflows))
		}
		maps.Copy(c.Workflows, overlay.Workflows)
	}
}

func (c *Config) loadDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:5678/api/v1"
	}
	if c.APIKeyHeader == "" {
		c.APIKeyHeader = "X-N8N-API-KEY"
	}
	if c.Timeout == "" {
		c.Timeout = "30s"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.BaseURL != "" {
		if v := os.Getenv(env.BaseURL); v != "" {
			c.BaseURL = v
		}
	}
	if env.APIKey != "" {
		if v := os.Getenv(env.APIKey); v != "" {
			c.APIKey = v
		}
	}
	if env.APIKeyHeader != "" {
		if v := os.Getenv(env.APIKeyHeader); v != "" {
			c.APIKeyHeader = v
		}
	}
	if env.Timeout != "" {
		if v := os.Getenv(env.Timeout); v != "" {
			c.Timeout = v
		}
	}
}

func (c *Config) validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base_url %q", c.BaseURL)
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	return nil
}
