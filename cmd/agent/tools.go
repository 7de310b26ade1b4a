package main

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// toolInput mirrors the parameter envelope the orchestrator sends with
// every invocation.
type toolInput struct {
	DocumentID string                     `json:"document_id"`
	Filename   string                     `json:"filename"`
	RawText    string                     `json:"raw_extracted_text"`
	Fields     map[string]json.RawMessage `json:"fields"`
}

func decode(parameters json.RawMessage) (toolInput, error) {
	var in toolInput
	if err := json.Unmarshal(parameters, &in); err != nil {
		return in, fmt.Errorf("decode parameters: %w", err)
	}
	return in, nil
}

var datePattern = regexp.MustCompile(
	`\b(?:\d{1,2}(?:st|nd|rd|th)?\s+)?(?:January|February|March|April|May|June|July|August|September|October|November|December)[a-z]*\.?\s+\d{1,2}?(?:,)?\s*\d{4}\b|\b\d{4}\b`,
)

func extractMetadata(_ context.Context, parameters json.RawMessage) (json.RawMessage, error) {
	in, err := decode(parameters)
	if err != nil {
		return nil, err
	}

	lines := nonEmptyLines(in.RawText)

	payload := map[string]any{
		"sender_identity":    lastSignature(lines),
		"recipient_identity": firstSalutation(lines),
		"document_date":      firstMatch(datePattern, in.RawText),
		"document_type":      "letter",
		"cost_usd":           0.002,
	}
	return json.Marshal(payload)
}

func detectStructure(_ context.Context, parameters json.RawMessage) (json.RawMessage, error) {
	in, err := decode(parameters)
	if err != nil {
		return nil, err
	}

	paragraphs := strings.Split(in.RawText, "\n\n")
	sections := make([]map[string]any, 0, len(paragraphs))
	offset := 0
	for _, p := range paragraphs {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			sections = append(sections, map[string]any{
				"kind":   "paragraph",
				"offset": offset,
				"length": len(p),
			})
		}
		offset += len(p) + 2
	}

	payload := map[string]any{
		"sections": sections,
		"cost_usd": 0.001,
	}
	return json.Marshal(payload)
}

func extractEntities(_ context.Context, parameters json.RawMessage) (json.RawMessage, error) {
	in, err := decode(parameters)
	if err != nil {
		return nil, err
	}

	entities := capitalizedRuns(in.RawText, 12)
	payload := map[string]any{
		"entities": entities,
		"cost_usd": 0.002,
	}
	return json.Marshal(payload)
}

func summarizeContent(_ context.Context, parameters json.RawMessage) (json.RawMessage, error) {
	in, err := decode(parameters)
	if err != nil {
		return nil, err
	}

	summary := in.RawText
	if idx := strings.Index(summary, "."); idx > 0 && idx < len(summary)-1 {
		summary = summary[:idx+1]
	}
	if len(summary) > 280 {
		summary = summary[:280]
	}

	payload := map[string]any{
		"summary":  strings.TrimSpace(summary),
		"cost_usd": 0.004,
	}
	return json.Marshal(payload)
}

func classifyTopics(_ context.Context, parameters json.RawMessage) (json.RawMessage, error) {
	in, err := decode(parameters)
	if err != nil {
		return nil, err
	}

	topics := make([]string, 0, 3)
	lowered := strings.ToLower(in.RawText)
	for keyword, topic := range map[string]string{
		"regiment": "military",
		"harvest":  "agriculture",
		"voyage":   "travel",
		"dearest":  "family",
		"payment":  "commerce",
	} {
		if strings.Contains(lowered, keyword) {
			topics = append(topics, topic)
		}
	}
	if len(topics) == 0 {
		topics = append(topics, "correspondence")
	}

	payload := map[string]any{
		"topics":   topics,
		"cost_usd": 0.001,
	}
	return json.Marshal(payload)
}

func historicalContext(_ context.Context, parameters json.RawMessage) (json.RawMessage, error) {
	in, err := decode(parameters)
	if err != nil {
		return nil, err
	}

	year := firstMatch(regexp.MustCompile(`\b(1[6-9]\d{2}|20\d{2})\b`), in.RawText)
	context := "No period context could be established."
	if year != "" {
		context = fmt.Sprintf("Correspondence dated around %s.", year)
	}

	payload := map[string]any{
		"historical_context": context,
		"cost_usd":           0.01,
	}
	return json.Marshal(payload)
}

func nonEmptyLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if trimmed := strings.TrimSpace(l); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

func firstSalutation(lines []string) string {
	for _, l := range lines {
		lowered := strings.ToLower(l)
		if strings.HasPrefix(lowered, "dear ") || strings.HasPrefix(lowered, "my dear ") {
			return strings.Trim(strings.TrimSpace(l), ",:")
		}
	}
	return ""
}

func lastSignature(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	last := lines[len(lines)-1]
	if len(strings.Fields(last)) <= 4 {
		return strings.Trim(last, ",.")
	}
	return ""
}

func firstMatch(pattern *regexp.Regexp, text string) string {
	return pattern.FindString(text)
}

func capitalizedRuns(text string, limit int) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, limit)

	words := strings.Fields(text)
	for i := 0; i < len(words) && len(out) < limit; i++ {
		w := strings.Trim(words[i], ".,;:!?\"'")
		if len(w) < 2 {
			continue
		}
		runes := []rune(w)
		if !unicode.IsUpper(runes[0]) || i == 0 {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}

	return out
}
