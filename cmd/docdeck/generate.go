// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/docdeck/internal/deck"
	"github.com/pdiddy/docdeck/internal/index"
	"github.com/pdiddy/docdeck/internal/llm"
	"github.com/pdiddy/docdeck/internal/retry"
	"github.com/pdiddy/docdeck/internal/secrets"
	"github.com/pdiddy/docdeck/internal/slides"
	"github.com/pdiddy/docdeck/pkg/types"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate slide decks from a lesson plan and the context",
	Long: `Generate parses a lesson plan (Markdown through the model, or YAML
directly), indexes the aggregated context and asks the model for one slide
per outline entry, grounded in the excerpts retrieved for it. It writes one
Marp deck per lesson and a course deck with every lesson.

Rate-limit refusals are retried with the provider's hint; a run of
consecutive refusals across the whole build stops it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		planPath, _ := cmd.Flags().GetString("plan")
		contextPath, _ := cmd.Flags().GetString("context")
		imgDir, _ := cmd.Flags().GetString("images")
		if imgDir == "" {
			imgDir = imagesDir(cfg.Conversion)
		}
		noMaster, _ := cmd.Flags().GetBool("no-master")
		placeholder, _ := cmd.Flags().GetBool("placeholder")
		courseTitle, _ := cmd.Flags().GetString("course-title")

		return runGenerate(cmd.Context(), cfg, generateRequest{
			PlanPath:    planPath,
			ContextPath: contextPath,
			ImagesDir:   imgDir,
			Options: deck.Options{
				OutDir:      cfg.Generation.OutputDir,
				Master:      !noMaster,
				CourseTitle: courseTitle,
				Placeholder: placeholder,
			},
		}, cmd.OutOrStdout())
	},
}

func init() {
	f := generateCmd.Flags()
	f.String("context", filepath.Join("output", "context.md"), "aggregated context file")
	f.String("plan", "lesson_plan.md", "lesson plan (.md parsed by the model, .yaml loaded directly)")
	f.String("output", filepath.Join("output", "decks"), "folder receiving the decks")
	f.String("provider", string(types.ProviderGemini), "model provider: gemini or ollama")
	f.String("model", "", "model name (default depends on the provider)")
	f.String("template", "", "YAML file with deck front matter")
	f.String("images", "", "folder of extracted images (default: <convert output>/images)")
	f.Int("rpm", 0, "maximum model requests per minute, 0 for unpaced")
	f.Bool("no-master", false, "skip the course deck")
	f.Bool("placeholder", false, "give slides without a matching image the first available image")
	f.String("course-title", "", "title of the course deck")

	viper.BindPFlag("generation.output_dir", f.Lookup("output"))
	viper.BindPFlag("generation.provider", f.Lookup("provider"))
	viper.BindPFlag("generation.model", f.Lookup("model"))
	viper.BindPFlag("generation.template", f.Lookup("template"))
	viper.BindPFlag("generation.requests_per_minute", f.Lookup("rpm"))

	rootCmd.AddCommand(generateCmd)
}

type generateRequest struct {
	PlanPath    string
	ContextPath string
	ImagesDir   string
	Options     deck.Options
}

// runGenerate runs the plan, index and deck steps with the configured
// backend.
func runGenerate(ctx context.Context, cfg types.Config, req generateRequest, out io.Writer) error {
	gen := cfg.Generation
	if gen.MaxAttempts > 0 {
		retry.Shared.MaxAttempts = gen.MaxAttempts
	}
	if gen.DefaultDelay > 0 {
		retry.Shared.DefaultDelay = gen.DefaultDelay
	}

	backend, closeBackend, err := newBackend(ctx, gen, retry.Shared)
	if err != nil {
		return err
	}
	defer closeBackend()

	return buildCourse(ctx, cfg, req, backend, retry.Shared, out)
}

// buildCourse drives a course build against an already constructed backend.
func buildCourse(ctx context.Context, cfg types.Config, req generateRequest, backend llm.Backend, gate *retry.Gate, out io.Writer) error {
	plan, err := slides.ParsePlan(ctx, backend, gate, req.PlanPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Lesson plan: %d lessons\n", len(plan.Lessons))

	store, err := index.Open(cfg.Index.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	sum, err := store.Build(ctx, req.ContextPath, cfg.Index.ChunkSize, cfg.Index.ChunkOverlap)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Context index: %d chunks\n", sum.Chunks)

	front, err := deck.LoadTemplate(cfg.Generation.Template)
	if err != nil {
		return err
	}

	generator := &slides.Generator{
		Retriever: store,
		Backend:   backend,
		Gate:      gate,
		Limiter:   slides.NewLimiter(cfg.Generation.RequestsPerMinute),
		K:         cfg.Index.K,
	}
	matcher := slides.NewImageMatcher(req.ImagesDir)
	newWriter := func() deck.Writer { return deck.NewMarpWriter(front) }

	written, err := deck.BuildDecks(ctx, plan, generator, matcher, newWriter, req.Options)
	for _, p := range written {
		fmt.Fprintf(out, "Wrote %s\n", p)
	}
	return err
}

// newBackend builds the configured model backend and a release function.
func newBackend(ctx context.Context, cfg types.GenerationConfig, gate *retry.Gate) (llm.Backend, func(), error) {
	switch cfg.Provider {
	case types.ProviderGemini, "":
		cfg.Project = secretDefault(secrets.VertexProject, cfg.Project)
		b, err := llm.NewGemini(ctx, cfg, gate)
		if err != nil {
			return nil, nil, err
		}
		return b, func() { b.Close() }, nil
	case types.ProviderOllama:
		cfg.APIKey = secretDefault(secrets.LLMAPIKey, cfg.APIKey)
		return llm.NewOllama(cfg, gate), func() {}, nil
	default:
		return nil, nil, types.NewError(types.KindConfig, "model provider",
			fmt.Errorf("unknown provider %q, want gemini or ollama", cfg.Provider))
	}
}
