package llm

import (
	"encoding/json"
	"strings"
)

// ParseOutcome is the explicit result of the response sanitation stage:
// either the decoded JSON object, or the raw text for logging. Malformed
// responses are not retried and never surface to the event caller.
type ParseOutcome struct {
	Fields    map[string]any
	Raw       string
	Malformed bool
}

// ParseModelResponse tolerates the model wrapping its JSON in a markdown
// code fence, then decodes. The "maybe fenced" handling is a documented
// transformation, not best-effort guessing: a leading ```json or ``` marker
// and a trailing ``` marker are stripped, nothing else is repaired.
func ParseModelResponse(raw string) ParseOutcome {
	text := StripCodeFence(raw)

	var fields map[string]any
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return ParseOutcome{Raw: raw, Malformed: true}
	}
	return ParseOutcome{Fields: fields, Raw: raw}
}

// StripCodeFence removes a leading ```json (or bare ```) marker and a
// trailing ``` marker, if present.
func StripCodeFence(s string) string {
	text := strings.TrimSpace(s)
	if strings.HasPrefix(text, "```json") {
		text = text[len("```json"):]
	} else if strings.HasPrefix(text, "```") {
		text = text[len("```"):]
	}
	if strings.HasSuffix(text, "```") {
		text = text[:len(text)-len("```")]
	}
	return strings.TrimSpace(text)
}
