package config

import (
	"fmt"
	"os"

	"github.com/epistlelabs/epistle/pkg/formatting"
	"github.com/epistlelabs/epistle/pkg/pagination"
)

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "EPISTLE_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "EPISTLE_PAGINATION_MAX_PAGE_SIZE",
}

// APIConfig holds API routing and pagination settings.
type APIConfig struct {
	BasePath       string            `toml:"base_path"`
	MaxRequestSize string            `toml:"max_request_size"`
	Pagination     pagination.Config `toml:"pagination"`
}

func (c *APIConfig) MaxRequestSizeBytes() int64 {
	size, err := formatting.ParseBytes(c.MaxRequestSize)
	if err != nil {
		return 10 * 1024 * 1024 // 10MB fallback
	}
	return size
}

// Finalize applies defaults, environment variable overrides, and
// validation for the API config and its nested pagination config.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxRequestSize != "" {
		c.MaxRequestSize = overlay.MaxRequestSize
	}

	c.Pagination.Merge(&overlay.Pagination)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxRequestSize == "" {
		c.MaxRequestSize = "10MB"
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv("EPISTLE_API_BASE_PATH"); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv("EPISTLE_API_MAX_REQUEST_SIZE"); v != "" {
		c.MaxRequestSize = v
	}
}
