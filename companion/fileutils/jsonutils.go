package fileutils

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// DecodeModelJSON unmarshals JSON from a model response, with a small amount of robustness
// for cases where the model wraps the JSON in extra text or returns leading/trailing whitespace.
func DecodeModelJSON(outputText string, v any) error {
	return decodeDelimited(outputText, v, '{', '}')
}

// DecodeModelJSONArray is DecodeModelJSON for responses whose top level is an array.
func DecodeModelJSONArray(outputText string, v any) error {
	return decodeDelimited(outputText, v, '[', ']')
}

func decodeDelimited(outputText string, v any, open, close byte) error {
	s := strings.TrimSpace(outputText)
	if s == "" {
		return io.ErrUnexpectedEOF
	}

	// Fast path: valid JSON as-is.
	if err := json.Unmarshal([]byte(s), v); err == nil {
		return nil
	}

	// Fallback: code fences or prose around the payload.
	start := strings.IndexByte(s, open)
	end := strings.LastIndexByte(s, close)
	if start == -1 || end == -1 || end <= start {
		return fmt.Errorf("no JSON %c...%c found in model output (len=%d)", open, close, len(s))
	}

	sub := s[start : end+1]
	if err := json.Unmarshal([]byte(sub), v); err != nil {
		return fmt.Errorf("failed to unmarshal extracted JSON (len=%d): %w", len(sub), err)
	}
	return nil
}
