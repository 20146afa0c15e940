// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package slides turns lesson outline entries into slide content by
// retrieving context excerpts and asking a model to summarise them.
package slides

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/docdeck/internal/llm"
	"github.com/pdiddy/docdeck/internal/logging"
	"github.com/pdiddy/docdeck/internal/retry"
	"github.com/pdiddy/docdeck/pkg/types"
)

// DefaultK is the number of excerpts retrieved per slide.
const DefaultK = 5

// Retriever returns the context chunks most relevant to a query.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]types.Chunk, error)
}

// Generator produces one slide per call. Calls share Gate, so a run of
// rate-limit refusals across slides counts against one budget.
type Generator struct {
	Retriever Retriever
	Backend   llm.Backend
	Gate      *retry.Gate

	// Limiter paces model calls. Nil means unpaced.
	Limiter *rate.Limiter

	// K is the number of excerpts per slide. Zero uses DefaultK.
	K int
}

// NewLimiter returns a limiter allowing perMinute calls per minute, or nil
// when perMinute is not positive.
func NewLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}

// GenerateSlide builds the content of the slide covering topic.
func (g *Generator) GenerateSlide(ctx context.Context, topic, lessonTitle string) (types.SlideContent, error) {
	k := g.K
	if k <= 0 {
		k = DefaultK
	}

	chunks, err := g.Retriever.Search(ctx, topic, k)
	if err != nil {
		return types.SlideContent{}, fmt.Errorf("retrieving context for %q: %w", topic, err)
	}

	prompt, err := llm.RenderSlidePrompt(llm.SlidePrompt{
		Topic:       topic,
		LessonTitle: lessonTitle,
		Context:     FormatExcerpts(chunks),
	})
	if err != nil {
		return types.SlideContent{}, fmt.Errorf("rendering prompt: %w", err)
	}

	slide, err := retry.Do(ctx, g.Gate, func(ctx context.Context) (types.SlideContent, error) {
		if g.Limiter != nil {
			if err := g.Limiter.Wait(ctx); err != nil {
				return types.SlideContent{}, err
			}
		}
		var s types.SlideContent
		err := g.Backend.GenerateJSON(ctx, prompt, llm.SlideSchema, &s)
		return s, err
	})
	if err != nil {
		return types.SlideContent{}, fmt.Errorf("generating slide %q: %w", topic, err)
	}

	logging.Named("slides").DebugContext(ctx, "slide generated",
		"topic", topic, "excerpts", len(chunks), "sources", len(slide.SourceDocNames))
	return Normalize(slide), nil
}

// FormatExcerpts renders retrieved chunks as the prompt's context block.
func FormatExcerpts(chunks []types.Chunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		name := c.SourceDocName
		if name == "" {
			name = "Unknown"
		}
		parts[i] = fmt.Sprintf("--- EXCERPT FROM %s ---\n%s", name, c.Content)
	}
	return strings.Join(parts, "\n\n")
}

// TopicQuery is the retrieval query of an outline entry: its title
// followed by its sub-topics.
func TopicQuery(spec types.SlideSpec) string {
	if len(spec.Topics) == 0 {
		return spec.Title
	}
	return spec.Title + ": " + strings.Join(spec.Topics, ", ")
}

// Normalize enforces the slide limits on model output: at most
// types.MaxBullets non-empty bullets of at most types.MaxBulletWords words,
// and source names without blanks or duplicates.
func Normalize(s types.SlideContent) types.SlideContent {
	out := types.SlideContent{
		Title:          strings.TrimSpace(s.Title),
		SpeakerNotes:   strings.TrimSpace(s.SpeakerNotes),
		BulletPoints:   []string{},
		SourceDocNames: []string{},
	}

	for _, b := range s.BulletPoints {
		words := strings.Fields(b)
		if len(words) == 0 {
			continue
		}
		if len(words) > types.MaxBulletWords {
			words = words[:types.MaxBulletWords]
		}
		out.BulletPoints = append(out.BulletPoints, strings.Join(words, " "))
		if len(out.BulletPoints) == types.MaxBullets {
			break
		}
	}

	seen := make(map[string]bool, len(s.SourceDocNames))
	for _, name := range s.SourceDocNames {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out.SourceDocNames = append(out.SourceDocNames, name)
	}
	return out
}
