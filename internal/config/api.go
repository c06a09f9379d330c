package config

import (
	"fmt"
	"os"

	"github.com/JaimeStill/formwise/pkg/formatting"
	"github.com/JaimeStill/formwise/pkg/middleware"
	"github.com/JaimeStill/formwise/pkg/openapi"
	"github.com/JaimeStill/formwise/pkg/pagination"
)

// APIEnv maps API fields and nested sections to environment variable names.
type APIEnv struct {
	BasePath      string
	MaxUploadSize string
	CORS          *middleware.CORSEnv
	Pagination    *pagination.ConfigEnv
	OpenAPI       *openapi.ConfigEnv
}

var apiEnv = &APIEnv{
	BasePath:      "FORMWISE_API_BASE_PATH",
	MaxUploadSize: "FORMWISE_API_MAX_UPLOAD_SIZE",
	CORS: &middleware.CORSEnv{
		Enabled:          "FORMWISE_CORS_ENABLED",
		Origins:          "FORMWISE_CORS_ORIGINS",
		AllowedMethods:   "FORMWISE_CORS_ALLOWED_METHODS",
		AllowedHeaders:   "FORMWISE_CORS_ALLOWED_HEADERS",
		ExposedHeaders:   "FORMWISE_CORS_EXPOSED_HEADERS",
		AllowCredentials: "FORMWISE_CORS_ALLOW_CREDENTIALS",
		MaxAge:           "FORMWISE_CORS_MAX_AGE",
	},
	Pagination: &pagination.ConfigEnv{
		DefaultPageSize: "FORMWISE_PAGINATION_DEFAULT_PAGE_SIZE",
		MaxPageSize:     "FORMWISE_PAGINATION_MAX_PAGE_SIZE",
	},
	OpenAPI: &openapi.ConfigEnv{
		Title:       "FORMWISE_OPENAPI_TITLE",
		Description: "FORMWISE_OPENAPI_DESCRIPTION",
		ServerURL:   "FORMWISE_OPENAPI_SERVER_URL",
	},
}

// APIConfig holds API routing, upload limits, CORS, pagination, and
// OpenAPI metadata.
type APIConfig struct {
	BasePath      string                `toml:"base_path"`
	MaxUploadSize string                `toml:"max_upload_size"`
	CORS          middleware.CORSConfig `toml:"cors"`
	Pagination    pagination.Config     `toml:"pagination"`
	OpenAPI       openapi.Config        `toml:"openapi"`
}

// MaxUploadSizeBytes returns MaxUploadSize in bytes. It covers a whole
// request body, so batch uploads are bounded by it as well.
func (c *APIConfig) MaxUploadSizeBytes() int64 {
	size, _ := formatting.ParseBytes(c.MaxUploadSize)
	return size
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested configs.
func (c *APIConfig) Finalize(env *APIEnv) error {
	c.loadDefaults()

	var (
		corsEnv       *middleware.CORSEnv
		paginationEnv *pagination.ConfigEnv
		openapiEnv    *openapi.ConfigEnv
	)
	if env != nil {
		c.loadEnv(env)
		corsEnv, paginationEnv, openapiEnv = env.CORS, env.Pagination, env.OpenAPI
	}

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	if err := c.OpenAPI.Finalize(openapiEnv); err != nil {
		return fmt.Errorf("openapi: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxUploadSize != "" {
		c.MaxUploadSize = overlay.MaxUploadSize
	}

	c.CORS.Merge(&overlay.CORS)
	c.Pagination.Merge(&overlay.Pagination)
	c.OpenAPI.Merge(&overlay.OpenAPI)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxUploadSize == "" {
		c.MaxUploadSize = "50MB"
	}
}

func (c *APIConfig) loadEnv(env *APIEnv) {
	if v := os.Getenv(env.BasePath); env.BasePath != "" && v != "" {
		c.BasePath = v
	}
	if v := os.Getenv(env.MaxUploadSize); env.MaxUploadSize != "" && v != "" {
		c.MaxUploadSize = v
	}
}

func (c *APIConfig) validate() error {
	size, err := formatting.ParseBytes(c.MaxUploadSize)
	if err != nil {
		return fmt.Errorf("invalid max_upload_size: %w", err)
	}
	if size <= 0 {
		return fmt.Errorf("max_upload_size must be positive")
	}
	return nil
}
