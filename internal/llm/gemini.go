// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pdiddy/docdeck/internal/retry"
	"github.com/pdiddy/docdeck/pkg/types"
)

// DefaultGeminiModel is used when the configuration names no model.
const DefaultGeminiModel = "gemini-1.5-pro"

// GeminiBackend calls a Gemini model on Vertex AI.
type GeminiBackend struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGemini opens a Vertex AI client for cfg.Project and cfg.Location.
// Every successful call made through the client resets gate.
func NewGemini(ctx context.Context, cfg types.GenerationConfig, gate *retry.Gate, opts ...option.ClientOption) (*GeminiBackend, error) {
	if cfg.Project == "" || cfg.Location == "" {
		return nil, types.NewError(types.KindConfig, "gemini backend", errors.New("project and location are required"))
	}

	opts = append(opts, option.WithGRPCDialOption(
		grpc.WithChainUnaryInterceptor(retry.UnaryInterceptor(gate)),
	))
	client, err := genai.NewClient(ctx, cfg.Project, cfg.Location, opts...)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiBackend{client: client, model: model, temperature: cfg.Temperature}, nil
}

// Close releases the client.
func (b *GeminiBackend) Close() error {
	return b.client.Close()
}

// GenerateJSON implements Backend.
func (b *GeminiBackend) GenerateJSON(ctx context.Context, prompt string, schema *Schema, out any) error {
	model := b.client.GenerativeModel(b.model)
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema.genai(),
		Temperature:      genai.Ptr(b.temperature),
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return fmt.Errorf("calling Gemini: %w", classifyError(err))
	}

	return decodeResponse(resp, out)
}

var errNoContent = errors.New("gemini returned no text content")

func decodeResponse(resp *genai.GenerateContentResponse, out any) error {
	text := responseText(resp)
	if text == "" {
		return errNoContent
	}
	return Decode(text, out)
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String()
}

// classifyError turns a quota refusal into a *retry.RateLimitError. The
// delay comes from the RetryInfo detail when present, otherwise from the
// message text. Other errors are returned unchanged.
func classifyError(err error) error {
	if ae, ok := apierror.FromError(err); ok {
		limited := ae.HTTPCode() == http.StatusTooManyRequests
		if st := ae.GRPCStatus(); st != nil && st.Code() == codes.ResourceExhausted {
			limited = true
		}
		if !limited {
			return err
		}
		var delay time.Duration
		if ri := ae.Details().RetryInfo; ri != nil && ri.GetRetryDelay() != nil {
			delay = ri.GetRetryDelay().AsDuration()
		}
		if delay == 0 {
			delay = retry.ParseDelay(ae.Error())
		}
		return &retry.RateLimitError{RetryAfter: delay, Err: err}
	}

	if status.Code(err) == codes.ResourceExhausted {
		return &retry.RateLimitError{RetryAfter: retry.ParseDelay(err.Error()), Err: err}
	}
	return err
}
