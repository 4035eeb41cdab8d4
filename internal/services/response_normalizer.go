package services

import (
	"encoding/json"
	"strings"
)

// StripCodeFences removes a wrapping markdown code fence (``` or ```json)
// from model output. Inner content is returned trimmed; text without a
// fence passes through unchanged apart from whitespace trimming.
func StripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	body := trimmed[3:]
	if newline := strings.IndexByte(body, '\n'); newline >= 0 {
		// The fence line may carry a language tag such as ```json.
		body = body[newline+1:]
	} else {
		body = strings.TrimPrefix(body, "json")
	}

	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// NormalizeTextResult cleans model text for the caller. Fences are stripped
// from every text result; structured results are additionally decoded into an
// object when they parse, and fall back to the cleaned text when they do not.
func NormalizeTextResult(raw string, structured bool) any {
	cleaned := StripCodeFences(raw)
	if !structured {
		return cleaned
	}

	var decoded any
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return cleaned
	}
	return decoded
}
