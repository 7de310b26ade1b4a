package faults

import (
	"fmt"
	"time"
)

// Policy bounds recovery behavior for one failure category.
// Invariants, enforced by Validate: non-retryable policies have
// MaxRetries == 0, and retryable policies carry at least MaxRetries
// backoff intervals.
type Policy struct {
	Retryable  bool
	MaxRetries int
	Backoff    []time.Duration
}

// BackoffFor returns the wait before retry attempt number attempt
// (1-based). Attempts beyond the schedule reuse the final interval.
func (p Policy) BackoffFor(attempt int) time.Duration {
	if len(p.Backoff) == 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	if attempt > len(p.Backoff) {
		attempt = len(p.Backoff)
	}
	return p.Backoff[attempt-1]
}

// Registry maps each failure category to its retry policy.
type Registry map[Category]Policy

// DefaultRegistry returns the built-in policy table. Deployments tune
// these through configuration; the shape is what matters: transient
// categories back off and retry, terminal categories fail fast.
func DefaultRegistry() Registry {
	return Registry{
		CategoryTimeout: {
			Retryable:  true,
			MaxRetries: 3,
			Backoff:    schedule("1s", "2s", "4s"),
		},
		CategoryConnection: {
			Retryable:  true,
			MaxRetries: 5,
			Backoff:    schedule("1.5s", "3s", "6s", "12s", "24s"),
		},
		CategoryOverloaded: {
			Retryable:  true,
			MaxRetries: 5,
			Backoff:    schedule("3s", "9s", "27s", "81s", "81s"),
		},
		CategoryInvalidData: {
			Retryable:  false,
			MaxRetries: 0,
		},
		CategoryAuthentication: {
			Retryable:  false,
			MaxRetries: 0,
		},
		CategoryConflict: {
			Retryable:  true,
			MaxRetries: 1,
			Backoff:    schedule("500ms"),
		},
		CategoryUnknown: {
			Retryable:  true,
			MaxRetries: 1,
			Backoff:    schedule("1s"),
		},
	}
}

// For returns the policy for the given category, falling back to the
// unknown-category policy for anything outside the taxonomy.
func (r Registry) For(cat Category) Policy {
	if p, ok := r[cat]; ok {
		return p
	}
	return r[CategoryUnknown]
}

// Record combines a classification with its policy into a Record for
// the given attempt number.
func (r Registry) Record(cat Category, attempt int) Record {
	return Record{
		Category:  cat,
		Retryable: r.For(cat).Retryable,
		Attempt:   attempt,
	}
}

// Validate checks the registry covers the full taxonomy and that every
// policy satisfies the retry invariants.
func (r Registry) Validate() error {
	for _, cat := range Categories() {
		p, ok := r[cat]
		if !ok {
			return fmt.Errorf("missing policy for category %s", cat)
		}

		if !p.Retryable && p.MaxRetries != 0 {
			return fmt.Errorf("category %s: non-retryable policy must have zero retries", cat)
		}
		if p.Retryable && len(p.Backoff) < p.MaxRetries {
			return fmt.Errorf(
				"category %s: backoff schedule has %d intervals for %d retries",
				cat, len(p.Backoff), p.MaxRetries,
			)
		}
	}
	return nil
}

func schedule(intervals ...string) []time.Duration {
	out := make([]time.Duration, len(intervals))
	for i, s := range intervals {
		d, _ := time.ParseDuration(s)
		out[i] = d
	}
	return out
}
