package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/epistlelabs/epistle/internal/pipeline"
)

const (
	EnvPipelineCompletenessThreshold = "EPISTLE_PIPELINE_COMPLETENESS_THRESHOLD"
	EnvPipelineWorkerLimit           = "EPISTLE_PIPELINE_WORKER_LIMIT"
)

// PipelineConfig tunes the enrichment orchestration: the review
// threshold, the field lists that drive scoring, and phase concurrency.
type PipelineConfig struct {
	CompletenessThreshold float64  `toml:"completeness_threshold"`
	RequiredFields        []string `toml:"required_fields"`
	CriticalFields        []string `toml:"critical_fields"`
	WorkerLimit           int      `toml:"worker_limit"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *PipelineConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *PipelineConfig) Merge(overlay *PipelineConfig) {
	if overlay.CompletenessThreshold != 0 {
		c.CompletenessThreshold = overlay.CompletenessThreshold
	}
	if len(overlay.RequiredFields) > 0 {
		c.RequiredFields = overlay.RequiredFields
	}
	if len(overlay.CriticalFields) > 0 {
		c.CriticalFields = overlay.CriticalFields
	}
	if overlay.WorkerLimit != 0 {
		c.WorkerLimit = overlay.WorkerLimit
	}
}

func (c *PipelineConfig) loadDefaults() {
	if c.CompletenessThreshold == 0 {
		c.CompletenessThreshold = 0.8
	}
	if len(c.RequiredFields) == 0 {
		c.RequiredFields = pipeline.DefaultRequiredFields()
	}
	if len(c.CriticalFields) == 0 {
		c.CriticalFields = pipeline.DefaultCriticalFields()
	}
	if c.WorkerLimit == 0 {
		c.WorkerLimit = 4
	}
}

func (c *PipelineConfig) loadEnv() {
	if v := os.Getenv(EnvPipelineCompletenessThreshold); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.CompletenessThreshold = f
		}
	}
	if v := os.Getenv(EnvPipelineWorkerLimit); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.WorkerLimit = n
		}
	}
}

func (c *PipelineConfig) validate() error {
	if c.CompletenessThreshold < 0 || c.CompletenessThreshold > 1 {
		return fmt.Errorf("invalid completeness_threshold: %f", c.CompletenessThreshold)
	}
	if c.WorkerLimit < 1 {
		return fmt.Errorf("invalid worker_limit: %d", c.WorkerLimit)
	}
	return nil
}
