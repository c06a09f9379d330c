package ocr

import (
	"fmt"
	"os"
	"strconv"
)

// Engine names accepted by Config.Engine.
const (
	EngineAuto      = "auto"
	EngineTesseract = "tesseract"
	EngineTextLayer = "textlayer"
)

// Config selects and tunes the recognition engine.
type Config struct {
	Engine          string `toml:"engine"`
	TesseractPath   string `toml:"tesseract_path"`
	Language        string `toml:"language"`
	MinTextLength   int    `toml:"min_text_length"`
	PageConcurrency int    `toml:"page_concurrency"`
	TempDir         string `toml:"temp_dir"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Engine          string
	TesseractPath   string
	Language        string
	MinTextLength   string
	PageConcurrency string
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
	if overlay.Engine != "" {
		c.Engine = overlay.Engine
	}
	if overlay.TesseractPath != "" {
		c.TesseractPath = overlay.TesseractPath
	}
	if overlay.Language != "" {
		c.Language = overlay.Language
	}
	if overlay.MinTextLength != 0 {
		c.MinTextLength = overlay.MinTextLength
	}
	if overlay.PageConcurrency != 0 {
		c.PageConcurrency = overlay.PageConcurrency
	}
	if overlay.TempDir != "" {
		c.TempDir = overlay.TempDir
	}
}

func (c *Config) loadDefaults() {
	if c.Engine == "" {
		c.Engine = EngineAuto
	}
	if c.TesseractPath == "" {
		c.TesseractPath = "tesseract"
	}
	if c.Language == "" {
		c.Language = "eng"
	}
	if c.MinTextLength == 0 {
		c.MinTextLength = 50
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Engine != "" {
		if v := os.Getenv(env.Engine); v != "" {
			c.Engine = v
		}
	}
	if env.TesseractPath != "" {
		if v := os.Getenv(env.TesseractPath); v != "" {
			c.TesseractPath = v
		}
	}
	if env.Language != "" {
		if v := os.Getenv(env.Language); v != "" {
			c.Language = v
		}
	}
	if env.MinTextLength != "" {
		if v := os.Getenv(env.MinTextLength); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.MinTextLength = n
			}
		}
	}
	if env.PageConcurrency != "" {
		if v := os.Getenv(env.PageConcurrency); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.PageConcurrency = n
			}
		}
	}
}

func (c *Config) validate() error {
	switch c.Engine {
	case EngineAuto, EngineTesseract, EngineTextLayer:
	default:
		return fmt.Errorf("unknown engine %q", c.Engine)
	}
	if c.MinTextLength < 0 {
		return fmt.Errorf("min_text_length must be non-negative")
	}
	if c.PageConcurrency < 0 {
		return fmt.Errorf("page_concurrency must be non-negative")
	}
	return nil
}
