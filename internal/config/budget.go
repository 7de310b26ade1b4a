package config

import (
	"fmt"
	"os"
	"strconv"
)

const (
	EnvBudgetDailyCeiling      = "EPISTLE_BUDGET_DAILY_CEILING"
	EnvBudgetThresholdFraction = "EPISTLE_BUDGET_THRESHOLD_FRACTION"
)

// BudgetConfig bounds daily enrichment spend. The expensive phase is
// skipped once accumulated spend reaches DailyCeiling * ThresholdFraction.
type BudgetConfig struct {
	DailyCeiling      float64            `toml:"daily_ceiling"`
	ThresholdFraction float64            `toml:"threshold_fraction"`
	ToolCosts         map[string]float64 `toml:"tool_costs"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *BudgetConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *BudgetConfig) Merge(overlay *BudgetConfig) {
	if overlay.DailyCeiling != 0 {
		c.DailyCeiling = overlay.DailyCeiling
	}
	if overlay.ThresholdFraction != 0 {
		c.ThresholdFraction = overlay.ThresholdFraction
	}
	for tool, cost := range overlay.ToolCosts {
		if c.ToolCosts == nil {
			c.ToolCosts = make(map[string]float64)
		}
		c.ToolCosts[tool] = cost
	}
}

func (c *BudgetConfig) loadDefaults() {
	if c.DailyCeiling == 0 {
		c.DailyCeiling = 100
	}
	if c.ThresholdFraction == 0 {
		c.ThresholdFraction = 0.25
	}
}

func (c *BudgetConfig) loadEnv() {
	if v := os.Getenv(EnvBudgetDailyCeiling); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.DailyCeiling = f
		}
	}
	if v := os.Getenv(EnvBudgetThresholdFraction); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.ThresholdFraction = f
		}
	}
}

func (c *BudgetConfig) validate() error {
	if c.DailyCeiling <= 0 {
		return fmt.Errorf("invalid daily_ceiling: %f", c.DailyCeiling)
	}
	if c.ThresholdFraction <= 0 || c.ThresholdFraction > 1 {
		return fmt.Errorf("invalid threshold_fraction: %f", c.ThresholdFraction)
	}
	for tool, cost := range c.ToolCosts {
		if cost < 0 {
			return fmt.Errorf("negative cost for tool %s", tool)
		}
	}
	return nil
}
