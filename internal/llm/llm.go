// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm sends prompts to a chat model and decodes its structured
// JSON replies. Backends differ in transport only: every backend takes a
// prompt plus a response schema and fills a Go value.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Backend abstracts the model API so tests can supply a fake.
type Backend interface {
	// GenerateJSON asks the model for a reply matching schema and decodes
	// it into out. Rate-limit refusals surface as *retry.RateLimitError.
	GenerateJSON(ctx context.Context, prompt string, schema *Schema, out any) error
}

// Decode parses a model reply into out. Markdown code fences and any text
// around the outermost JSON object are ignored.
func Decode(raw string, out any) error {
	body := strings.TrimSpace(raw)
	if body == "" {
		return fmt.Errorf("empty model reply")
	}
	if err := json.Unmarshal([]byte(body), out); err == nil {
		return nil
	}
	body = extractJSONObject(body)
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return fmt.Errorf("parsing model reply JSON: %w", err)
	}
	return nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
