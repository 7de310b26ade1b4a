package faults

import "time"

// TimeoutTable maps tool names to invocation timeouts calibrated to each
// tool's expected cost. Fast classification tools get short timeouts;
// multi-stage synthesis tools get the longest. Unlisted tools use the
// default.
type TimeoutTable struct {
	tools    map[string]time.Duration
	fallback time.Duration
}

// NewTimeoutTable creates a table with the given per-tool entries and
// default timeout. A non-positive default becomes 30s.
func NewTimeoutTable(tools map[string]time.Duration, fallback time.Duration) TimeoutTable {
	if fallback <= 0 {
		fallback = 30 * time.Second
	}
	entries := make(map[string]time.Duration, len(tools))
	for tool, d := range tools {
		if d > 0 {
			entries[tool] = d
		}
	}
	return TimeoutTable{tools: entries, fallback: fallback}
}

// For returns the timeout for the named tool.
func (t TimeoutTable) For(tool string) time.Duration {
	if d, ok := t.tools[tool]; ok {
		return d
	}
	return t.fallback
}
