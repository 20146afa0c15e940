// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package slides

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/docdeck/internal/llm"
	"github.com/pdiddy/docdeck/internal/logging"
	"github.com/pdiddy/docdeck/internal/retry"
	"github.com/pdiddy/docdeck/pkg/types"
)

// DefaultDuration is assigned to lessons whose plan gives none.
const DefaultDuration = "4 hours"

// ParsePlan loads the lesson plan at path. YAML files are read as is;
// any other file is treated as free-form Markdown and structured by the
// model.
func ParsePlan(ctx context.Context, backend llm.Backend, gate *retry.Gate, path string) (*types.LessonPlan, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadPlanYAML(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewError(types.KindInputNotFound, "lesson plan "+path, err)
	}

	prompt, err := llm.RenderPlanPrompt(string(data))
	if err != nil {
		return nil, fmt.Errorf("rendering prompt: %w", err)
	}

	plan, err := retry.Do(ctx, gate, func(ctx context.Context) (types.LessonPlan, error) {
		var p types.LessonPlan
		err := backend.GenerateJSON(ctx, prompt, llm.LessonPlanSchema, &p)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("parsing lesson plan %s: %w", path, err)
	}

	if err := normalizePlan(&plan); err != nil {
		return nil, fmt.Errorf("lesson plan %s: %w", path, err)
	}
	logging.Named("slides").InfoContext(ctx, "lesson plan parsed", "path", path, "lessons", len(plan.Lessons))
	return &plan, nil
}

// LoadPlanYAML reads a lesson plan written as YAML.
func LoadPlanYAML(path string) (*types.LessonPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewError(types.KindInputNotFound, "lesson plan "+path, err)
	}
	var plan types.LessonPlan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("parsing lesson plan %s: %w", path, err)
	}
	if err := normalizePlan(&plan); err != nil {
		return nil, fmt.Errorf("lesson plan %s: %w", path, err)
	}
	return &plan, nil
}

func normalizePlan(p *types.LessonPlan) error {
	if len(p.Lessons) == 0 {
		return errors.New("no lessons found")
	}
	for i := range p.Lessons {
		l := &p.Lessons[i]
		if l.Number <= 0 {
			l.Number = i + 1
		}
		l.Title = strings.TrimSpace(l.Title)
		if l.Title == "" {
			l.Title = fmt.Sprintf("Lesson %d", l.Number)
		}
		if strings.TrimSpace(l.Duration) == "" {
			l.Duration = DefaultDuration
		}
	}
	return nil
}
