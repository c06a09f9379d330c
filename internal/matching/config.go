package matching

import (
	"fmt"
	"os"
	"strconv"
)

// Config selects the scoring policy and result size.
type Config struct {
	Policy         string `toml:"policy"`
	Keyword        string `toml:"keyword"`
	MinTokenLength int    `toml:"min_token_length"`
	Limit          int    `toml:"limit"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Policy  string
	Keyword string
	Limit   string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Policy != "" {
		c.Policy = overlay.Policy
	}
	if overlay.Keyword != "" {
		c.Keyword = overlay.Keyword
	}
	if overlay.MinTokenLength != 0 {
		c.MinTokenLength = overlay.MinTokenLength
	}
	if overlay.Limit != 0 {
		c.Limit = overlay.Limit
	}
}

// NewPolicy builds the configured scoring policy.
func (c *Config) NewPolicy() (Policy, error) {
	switch c.Policy {
	case PolicyKeyword:
		return Keyword{Keyword: c.Keyword}, nil
	case PolicyOverlap:
		return Overlap{MinTokenLength: c.MinTokenLength}, nil
	default:
		return nil, fmt.Errorf("unknown matching policy %q", c.Policy)
	}
}

func (c *Config) loadDefaults() {
	if c.Policy == "" {
		c.Policy = PolicyKeyword
	}
	if c.Keyword == "" {
		c.Keyword = DefaultKeyword
	}
	if c.MinTokenLength == 0 {
		c.MinTokenLength = DefaultMinTokenLength
	}
	if c.Limit == 0 {
		c.Limit = DefaultLimit
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Policy != "" {
		if v := os.Getenv(env.Policy); v != "" {
			c.Policy = v
		}
	}
	if env.Keyword != "" {
		if v := os.Getenv(env.Keyword); v != "" {
			c.Keyword = v
		}
	}
	if env.Limit != "" {
		if v := os.Getenv(env.Limit); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.Limit = n
			}
		}
	}
}

func (c *Config) validate() error {
	if _, err := c.NewPolicy(); err != nil {
		return err
	}
	if c.Limit < 1 {
		return fmt.Errorf("limit must be positive")
	}
	if c.MinTokenLength < 1 {
		return fmt.Errorf("min_token_length must be positive")
	}
	return nil
}
