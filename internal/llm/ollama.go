// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/docdeck/internal/retry"
	"github.com/pdiddy/docdeck/pkg/types"
)

const (
	// DefaultOllamaURL is the local Ollama server.
	DefaultOllamaURL = "http://localhost:11434"

	// DefaultOllamaModel is used when the configuration names no model.
	DefaultOllamaModel = "llama3.1"

	ollamaTimeout = 5 * time.Minute
)

// OllamaBackend calls the Ollama generate API over HTTP. The JSON schema
// is passed as the request format so the server constrains the reply.
type OllamaBackend struct {
	BaseURL     string
	Model       string
	APIKey      string
	Temperature float32
	Client      *http.Client
}

// NewOllama returns a backend whose HTTP client reports every response to
// gate.
func NewOllama(cfg types.GenerationConfig, gate *retry.Gate) *OllamaBackend {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultOllamaURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultOllamaModel
	}
	return &OllamaBackend{
		BaseURL:     base,
		Model:       model,
		APIKey:      cfg.APIKey,
		Temperature: cfg.Temperature,
		Client:      retry.NewClient(gate, ollamaTimeout),
	}
}

type ollamaRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Format  any            `json:"format,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

// GenerateJSON implements Backend.
func (o *OllamaBackend) GenerateJSON(ctx context.Context, prompt string, schema *Schema, out any) error {
	reqBody := ollamaRequest{
		Model:   o.Model,
		Prompt:  prompt,
		Options: map[string]any{"temperature": o.Temperature},
	}
	if schema != nil {
		reqBody.Format = schema
	} else {
		reqBody.Format = "json"
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL+"/api/generate", bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if o.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.APIKey)
	}

	client := o.Client
	if client == nil {
		client = retry.NewClient(nil, ollamaTimeout)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("calling Ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if rl := retry.FromResponse(resp, body); rl != nil {
			return rl
		}
		return fmt.Errorf("ollama returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var oResp ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&oResp); err != nil {
		return fmt.Errorf("decoding Ollama response: %w", err)
	}
	return Decode(oResp.Response, out)
}
