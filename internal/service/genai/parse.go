package genai

import (
	"encoding/json"
	"strings"
)

// StripFence removes one leading/trailing triple-backtick code fence,
// with or without a "json" language tag, and trims surrounding
// whitespace. Applying it to already-clean text is a no-op, so callers
// may run it unconditionally.
func StripFence(text string) string {
	cleaned := strings.TrimSpace(text)

	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimPrefix(cleaned, "json")
		cleaned = strings.TrimSpace(cleaned)
	}
	if strings.HasSuffix(cleaned, "```") {
		cleaned = strings.TrimSuffix(cleaned, "```")
		cleaned = strings.TrimSpace(cleaned)
	}

	return cleaned
}

// Parse decodes raw provider text expected to hold one JSON object of
// type T. On a first decode failure it strips a code fence and retries
// once. The second failure yields (nil, false) - never an error and never
// a panic: callers treat false as "no usable content this cycle".
func Parse[T any](raw string) (*T, bool) {
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return &v, true
	}

	stripped := StripFence(raw)
	var retry T
	if err := json.Unmarshal([]byte(stripped), &retry); err == nil {
		return &retry, true
	}

	return nil, false
}
