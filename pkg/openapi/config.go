package openapi

import "os"

// Config holds OpenAPI metadata for spec generation. ServerURL overrides
// the advertised server when the API is reached through a proxy; it
// defaults to the API base path.
type Config struct {
	Title       string `toml:"title"`
	Description string `toml:"description"`
	ServerURL   string `toml:"server_url"`
}

// ConfigEnv maps config fields to environment variable names for override injection.
type ConfigEnv struct {
	Title       string
	Description string
	ServerURL   string
}

// Finalize applies defaults and environment variable overrides.
func (c *Config) Finalize(env *ConfigEnv) error {
	if c.Title == "" {
		c.Title = "Formwise API"
	}
	if c.Description == "" {
		c.Description = "Document intake and form workflow orchestration."
	}
	if env != nil {
		for dst, name := range map[*string]string{
			&c.Title:       env.Title,
			&c.Description: env.Description,
			&c.ServerURL:   env.ServerURL,
		} {
			if v := os.Getenv(name); name != "" && v != "" {
				*dst = v
			}
		}
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Title != "" {
		c.Title = overlay.Title
	}
	if overlay.Description != "" {
		c.Description = overlay.Description
	}
	if overlay.ServerURL != "" {
		c.ServerURL = overlay.ServerURL
	}
}
