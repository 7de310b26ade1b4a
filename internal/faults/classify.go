package faults

import (
	"context"
	"errors"
	"net"
	"strings"
)

// Signal carries the raw failure evidence available for classification:
// an optional explicit status code, the error itself, and any message
// text supplied alongside it.
type Signal struct {
	StatusCode int
	Err        error
	Message    string
}

// Classify maps a failure signal to exactly one category. Precedence is
// load-bearing: explicit status codes outrank message heuristics, so a
// payload carrying a 503 classifies as overloaded even when its message
// mentions a timeout. Error types come next, then keyword patterns, then
// unknown.
func Classify(sig Signal) Category {
	if cat, ok := classifyStatus(sig.StatusCode); ok {
		return cat
	}

	if cat, ok := classifyError(sig.Err); ok {
		return cat
	}

	text := sig.Message
	if text == "" && sig.Err != nil {
		text = sig.Err.Error()
	}
	if cat, ok := classifyMessage(text); ok {
		return cat
	}

	return CategoryUnknown
}

func classifyStatus(code int) (Category, bool) {
	switch code {
	case 401, 403:
		return CategoryAuthentication, true
	case 408, 504:
		return CategoryTimeout, true
	case 409:
		return CategoryConflict, true
	case 429, 503:
		return CategoryOverloaded, true
	case 400, 422:
		return CategoryInvalidData, true
	case 502:
		return CategoryConnection, true
	}
	return "", false
}

func classifyError(err error) (Category, bool) {
	if err == nil {
		return "", false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return CategoryTimeout, true
		}
		return CategoryConnection, true
	}

	return "", false
}

// keyword rules are checked in order; first match wins.
var keywordRules = []struct {
	category Category
	keywords []string
}{
	{CategoryOverloaded, []string{"overloaded", "rate limit", "too many requests", "capacity"}},
	{CategoryTimeout, []string{"timeout", "timed out", "deadline exceeded"}},
	{CategoryConnection, []string{"connection", "broken pipe", "no agent", "unreachable", "refused", "closed"}},
	{CategoryAuthentication, []string{"unauthorized", "forbidden", "authentication", "invalid token", "api key"}},
	{CategoryConflict, []string{"conflict", "version mismatch", "concurrent"}},
	{CategoryInvalidData, []string{"invalid", "malformed", "unparseable", "schema", "validation"}},
}

func classifyMessage(text string) (Category, bool) {
	if text == "" {
		return "", false
	}

	lower := strings.ToLower(text)
	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.category, true
			}
		}
	}

	return "", false
}
