// Package jsonutil parses the JSON that Gemini returns for "output strict
// JSON" prompts. Responses frequently arrive wrapped in markdown code fences
// or padded with prose, so parsing first strips fences and isolates the
// outermost JSON value before unmarshaling.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// StripMarkdownFences removes a leading ```json (or bare ```) fence and its
// closing ``` from text. Text without fences is returned unchanged.
func StripMarkdownFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	if len(lines) < 3 {
		return text
	}

	end := len(lines) - 1
	for i := len(lines) - 1; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			end = i
			break
		}
	}

	return strings.Join(lines[1:end], "\n")
}

// ExtractJSON isolates the outermost JSON object or array in text, dropping
// any prose before or after it.
func ExtractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)

	objIdx := strings.Index(text, "{")
	arrIdx := strings.Index(text, "[")
	if objIdx == -1 && arrIdx == -1 {
		return "", fmt.Errorf("no JSON content found")
	}

	start, closer := objIdx, "}"
	if objIdx == -1 || (arrIdx != -1 && arrIdx < objIdx) {
		start, closer = arrIdx, "]"
	}

	text = text[start:]
	end := strings.LastIndex(text, closer)
	if end == -1 {
		return "", fmt.Errorf("no closing %s found", closer)
	}

	return text[:end+1], nil
}

// ParseJSON strips fences, extracts the JSON payload, and unmarshals it into
// T. This is the mandatory-JSON path: malformed output is an error the caller
// must handle.
func ParseJSON[T any](raw string) (T, error) {
	var zero T

	jsonStr, err := ExtractJSON(StripMarkdownFences(raw))
	if err != nil {
		return zero, fmt.Errorf("%w (raw length: %d)", err, len(raw))
	}

	var result T
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		preview := jsonStr
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		return zero, fmt.Errorf("invalid JSON: %w (text: %s)", err, preview)
	}
	return result, nil
}

// ParseOrDefault is the best-effort path used for review verdicts: a verdict
// the model garbled must not wedge the pipeline, so the parse error is logged
// and the supplied fallback value is returned instead. Callers choose the
// fallback deliberately. For reviews it is an approving result, so the
// pipeline fails open rather than blocking on a malformed judgment.
func ParseOrDefault[T any](raw string, fallback T) T {
	result, err := ParseJSON[T](raw)
	if err != nil {
		log.Warn().
			Err(err).
			Int("raw_length", len(raw)).
			Msg("Falling back to default after unparseable model response")
		return fallback
	}
	return result
}
