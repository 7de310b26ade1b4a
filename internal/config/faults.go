package config

import (
	"fmt"
	"os"
	"time"

	"github.com/epistlelabs/epistle/internal/faults"
)

const EnvFaultsDefaultTimeout = "EPISTLE_FAULTS_DEFAULT_TIMEOUT"

// FaultsConfig tunes the failure handling tables: per-tool invocation
// timeouts and per-category retry policy overrides. Anything left unset
// falls through to the built-in tables.
type FaultsConfig struct {
	DefaultTimeout string                  `toml:"default_timeout"`
	ToolTimeouts   map[string]string       `toml:"tool_timeouts"`
	Policies       map[string]PolicyConfig `toml:"policies"`
}

// PolicyConfig overrides the retry policy of one failure category.
// MaxRetries of zero makes the category non-retryable.
type PolicyConfig struct {
	MaxRetries *int     `toml:"max_retries"`
	Backoff    []string `toml:"backoff"`
}

// TimeoutTable builds the per-tool timeout table.
func (c *FaultsConfig) TimeoutTable() faults.TimeoutTable {
	fallback, _ := time.ParseDuration(c.DefaultTimeout)

	tools := make(map[string]time.Duration, len(c.ToolTimeouts))
	for tool, raw := range c.ToolTimeouts {
		if d, err := time.ParseDuration(raw); err == nil {
			tools[tool] = d
		}
	}

	return faults.NewTimeoutTable(tools, fallback)
}

// Registry builds the retry policy registry: the built-in table with
// configured overrides applied.
func (c *FaultsConfig) Registry() faults.Registry {
	registry := faults.DefaultRegistry()

	for name, override := range c.Policies {
		cat := faults.Category(name)
		policy := registry.For(cat)

		if override.MaxRetries != nil {
			policy.MaxRetries = *override.MaxRetries
			policy.Retryable = *override.MaxRetries > 0
		}
		if len(override.Backoff) > 0 {
			backoff := make([]time.Duration, 0, len(override.Backoff))
			for _, raw := range override.Backoff {
				if d, err := time.ParseDuration(raw); err == nil {
					backoff = append(backoff, d)
				}
			}
			policy.Backoff = backoff
		}
		if !policy.Retryable {
			policy.Backoff = nil
		}

		registry[cat] = policy
	}

	return registry
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *FaultsConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *FaultsConfig) Merge(overlay *FaultsConfig) {
	if overlay.DefaultTimeout != "" {
		c.DefaultTimeout = overlay.DefaultTimeout
	}
	for tool, d := range overlay.ToolTimeouts {
		if c.ToolTimeouts == nil {
			c.ToolTimeouts = make(map[string]string)
		}
		c.ToolTimeouts[tool] = d
	}
	for name, p := range overlay.Policies {
		if c.Policies == nil {
			c.Policies = make(map[string]PolicyConfig)
		}
		c.Policies[name] = p
	}
}

func (c *FaultsConfig) loadDefaults() {
	if c.DefaultTimeout == "" {
		c.DefaultTimeout = "30s"
	}

	if c.ToolTimeouts == nil {
		c.ToolTimeouts = make(map[string]string)
	}
	for tool, d := range defaultToolTimeouts {
		if _, ok := c.ToolTimeouts[tool]; !ok {
			c.ToolTimeouts[tool] = d
		}
	}
}

// Per-tool defaults scaled to tool complexity. historical_context runs
// multi-stage synthesis and gets the longest window.
var defaultToolTimeouts = map[string]string{
	"extract_metadata":   "30s",
	"detect_structure":   "30s",
	"extract_entities":   "45s",
	"summarize_content":  "60s",
	"classify_topics":    "20s",
	"historical_context": "2m",
}

func (c *FaultsConfig) loadEnv() {
	if v := os.Getenv(EnvFaultsDefaultTimeout); v != "" {
		c.DefaultTimeout = v
	}
}

func (c *FaultsConfig) validate() error {
	if _, err := time.ParseDuration(c.DefaultTimeout); err != nil {
		return fmt.Errorf("invalid default_timeout: %w", err)
	}

	for tool, raw := range c.ToolTimeouts {
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("invalid timeout for tool %s: %w", tool, err)
		}
	}

	for name, override := range c.Policies {
		if !faults.Category(name).Valid() {
			return fmt.Errorf("unknown failure category: %s", name)
		}
		if override.MaxRetries != nil && *override.MaxRetries < 0 {
			return fmt.Errorf("category %s: negative max_retries", name)
		}
		for _, raw := range override.Backoff {
			if _, err := time.ParseDuration(raw); err != nil {
				return fmt.Errorf("category %s: invalid backoff interval: %w", name, err)
			}
		}
	}

	return c.Registry().Validate()
}
