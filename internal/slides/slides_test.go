// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package slides

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/pdiddy/docdeck/internal/llm"
	"github.com/pdiddy/docdeck/internal/logging"
	"github.com/pdiddy/docdeck/internal/retry"
	"github.com/pdiddy/docdeck/pkg/types"
)

type fakeRetriever struct {
	chunks []types.Chunk
	err    error
	query  string
	k      int
}

func (f *fakeRetriever) Search(_ context.Context, query string, k int) ([]types.Chunk, error) {
	f.query, f.k = query, k
	return f.chunks, f.err
}

// scriptedBackend fails with the queued errors before answering with reply.
type scriptedBackend struct {
	mu      sync.Mutex
	errs    []error
	reply   any
	prompts []string
	schemas []*llm.Schema
}

func (b *scriptedBackend) GenerateJSON(_ context.Context, prompt string, schema *llm.Schema, out any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prompts = append(b.prompts, prompt)
	b.schemas = append(b.schemas, schema)
	if len(b.errs) > 0 {
		err := b.errs[0]
		b.errs = b.errs[1:]
		return err
	}
	switch dst := out.(type) {
	case *types.SlideContent:
		*dst = b.reply.(types.SlideContent)
	case *types.LessonPlan:
		*dst = b.reply.(types.LessonPlan)
	default:
		return errors.New("unexpected output type")
	}
	return nil
}

func noSleep(t *testing.T) *[]time.Duration {
	t.Helper()
	var waits []time.Duration
	orig := retry.Sleep
	retry.Sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	t.Cleanup(func() { retry.Sleep = orig })
	return &waits
}

func TestGenerateSlide(t *testing.T) {
	ret := &fakeRetriever{chunks: []types.Chunk{
		{ID: 1, SourceDocName: "guide", Content: "Placenta forms early."},
		{ID: 2, SourceDocName: "atlas", Content: "It exchanges gases."},
	}}
	backend := &scriptedBackend{reply: types.SlideContent{
		Title:          "  The placenta ",
		BulletPoints:   []string{"one", "two"},
		SpeakerNotes:   "Notes.",
		SourceDocNames: []string{"guide", "guide", "atlas"},
	}}
	g := &Generator{Retriever: ret, Backend: backend, Gate: retry.NewGate(3, time.Second), K: 4}

	got, err := g.GenerateSlide(context.Background(), "Placenta: function", "Lesson 1")
	require.NoError(t, err)

	assert.Equal(t, types.SlideContent{
		Title:          "The placenta",
		BulletPoints:   []string{"one", "two"},
		SpeakerNotes:   "Notes.",
		SourceDocNames: []string{"guide", "atlas"},
	}, got)
	assert.Equal(t, "Placenta: function", ret.query)
	assert.Equal(t, 4, ret.k)
	require.Len(t, backend.prompts, 1)
	assert.Contains(t, backend.prompts[0], "--- EXCERPT FROM guide ---\nPlacenta forms early.\n\n--- EXCERPT FROM atlas ---\nIt exchanges gases.")
	assert.Same(t, llm.SlideSchema, backend.schemas[0])
}

func TestGenerateSlide_DefaultK(t *testing.T) {
	ret := &fakeRetriever{}
	g := &Generator{Retriever: ret, Backend: &scriptedBackend{reply: types.SlideContent{Title: "t"}}}
	_, err := g.GenerateSlide(context.Background(), "q", "l")
	require.NoError(t, err)
	assert.Equal(t, DefaultK, ret.k)
}

func TestGenerateSlide_RetriesRateLimits(t *testing.T) {
	waits := noSleep(t)
	gate := retry.NewGate(3, 10*time.Second)
	backend := &scriptedBackend{
		errs: []error{
			&retry.RateLimitError{RetryAfter: 5 * time.Second},
			&retry.RateLimitError{},
		},
		reply: types.SlideContent{Title: "ok"},
	}
	g := &Generator{Retriever: &fakeRetriever{}, Backend: backend, Gate: gate}

	got, err := g.GenerateSlide(context.Background(), "q", "l")
	require.NoError(t, err)
	assert.Equal(t, "ok", got.Title)
	assert.Len(t, backend.prompts, 3)
	assert.Equal(t, []time.Duration{7 * time.Second, 12 * time.Second}, *waits)
	assert.Zero(t, gate.Attempts())
}

func TestGenerateSlide_GivesUp(t *testing.T) {
	noSleep(t)
	backend := &scriptedBackend{errs: []error{
		&retry.RateLimitError{}, &retry.RateLimitError{}, &retry.RateLimitError{},
	}}
	g := &Generator{Retriever: &fakeRetriever{}, Backend: backend, Gate: retry.NewGate(2, time.Second)}

	_, err := g.GenerateSlide(context.Background(), "q", "l")
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindRateLimit))
	assert.Len(t, backend.prompts, 2)
}

func TestGenerateSlide_OtherErrorsAreNotRetried(t *testing.T) {
	boom := errors.New("bad request")
	backend := &scriptedBackend{errs: []error{boom}}
	g := &Generator{Retriever: &fakeRetriever{}, Backend: backend, Gate: retry.NewGate(3, time.Second)}

	_, err := g.GenerateSlide(context.Background(), "q", "l")
	require.ErrorIs(t, err, boom)
	assert.Len(t, backend.prompts, 1)
}

func TestGenerateSlide_RetrieverError(t *testing.T) {
	backend := &scriptedBackend{}
	g := &Generator{Retriever: &fakeRetriever{err: errors.New("db closed")}, Backend: backend}

	_, err := g.GenerateSlide(context.Background(), "q", "l")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db closed")
	assert.Empty(t, backend.prompts)
}

func TestGenerateSlide_LimiterHonoursContext(t *testing.T) {
	lim := rate.NewLimiter(rate.Every(time.Hour), 1)
	require.True(t, lim.Allow(), "drain the only token")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	backend := &scriptedBackend{}
	g := &Generator{Retriever: &fakeRetriever{}, Backend: backend, Limiter: lim}

	_, err := g.GenerateSlide(ctx, "q", "l")
	require.Error(t, err)
	assert.Empty(t, backend.prompts)
}

func TestNewLimiter(t *testing.T) {
	assert.Nil(t, NewLimiter(0))
	lim := NewLimiter(60)
	require.NotNil(t, lim)
	assert.InDelta(t, 1.0, float64(lim.Limit()), 1e-9)
	assert.Equal(t, 1, lim.Burst())
}

func TestFormatExcerpts(t *testing.T) {
	assert.Equal(t, "", FormatExcerpts(nil))
	assert.Equal(t,
		"--- EXCERPT FROM Unknown ---\na\n\n--- EXCERPT FROM b ---\nB",
		FormatExcerpts([]types.Chunk{{Content: "a"}, {SourceDocName: "b", Content: "B"}}))
}

func TestTopicQuery(t *testing.T) {
	assert.Equal(t, "Intro", TopicQuery(types.SlideSpec{Title: "Intro"}))
	assert.Equal(t, "Intro: a, b", TopicQuery(types.SlideSpec{Title: "Intro", Topics: []string{"a", "b"}}))
}

func TestNormalize(t *testing.T) {
	long := strings.Repeat("word ", 20)
	got := Normalize(types.SlideContent{
		BulletPoints:   []string{"  ", long, "b2", "b3", "b4", "b5", "b6", "b7"},
		SourceDocNames: []string{"a", " ", "a ", "b"},
	})

	require.Len(t, got.BulletPoints, types.MaxBullets)
	assert.Len(t, strings.Fields(got.BulletPoints[0]), types.MaxBulletWords)
	assert.Equal(t, "b6", got.BulletPoints[5])
	assert.Equal(t, []string{"a", "b"}, got.SourceDocNames)

	empty := Normalize(types.SlideContent{})
	assert.NotNil(t, empty.BulletPoints)
	assert.NotNil(t, empty.SourceDocNames)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParsePlan_Markdown(t *testing.T) {
	path := writeFile(t, t.TempDir(), "plan.md", "# Course\n## Lesson 1: Basics\n- intro")
	backend := &scriptedBackend{reply: types.LessonPlan{Lessons: []types.Lesson{
		{Title: " Basics ", Outline: []types.SlideSpec{{Title: "Intro"}}},
		{Number: 7, Title: "", Duration: "2 hours"},
	}}}

	plan, err := ParsePlan(context.Background(), backend, retry.NewGate(3, time.Second), path)
	require.NoError(t, err)
	require.Len(t, plan.Lessons, 2)

	assert.Equal(t, 1, plan.Lessons[0].Number)
	assert.Equal(t, "Basics", plan.Lessons[0].Title)
	assert.Equal(t, DefaultDuration, plan.Lessons[0].Duration)
	assert.Equal(t, 7, plan.Lessons[1].Number)
	assert.Equal(t, "Lesson 7", plan.Lessons[1].Title)
	assert.Equal(t, "2 hours", plan.Lessons[1].Duration)

	require.Len(t, backend.prompts, 1)
	assert.Contains(t, backend.prompts[0], "## Lesson 1: Basics")
	assert.Same(t, llm.LessonPlanSchema, backend.schemas[0])
}

func TestParsePlan_YAMLSkipsModel(t *testing.T) {
	path := writeFile(t, t.TempDir(), "plan.yaml", `lessons:
  - number: 1
    title: Basics
    objectives: [understand]
    outline:
      - title: Intro
        topics: [a, b]
`)
	backend := &scriptedBackend{}

	plan, err := ParsePlan(context.Background(), backend, nil, path)
	require.NoError(t, err)
	assert.Empty(t, backend.prompts)
	require.Len(t, plan.Lessons, 1)
	assert.Equal(t, []types.SlideSpec{{Title: "Intro", Topics: []string{"a", "b"}}}, plan.Lessons[0].Outline)
	assert.Equal(t, DefaultDuration, plan.Lessons[0].Duration)
}

func TestParsePlan_Missing(t *testing.T) {
	_, err := ParsePlan(context.Background(), &scriptedBackend{}, nil, filepath.Join(t.TempDir(), "nope.md"))
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindInputNotFound))
}

func TestLoadPlanYAML_NoLessons(t *testing.T) {
	path := writeFile(t, t.TempDir(), "plan.yml", "lessons: []\n")
	_, err := LoadPlanYAML(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no lessons")
}

func TestImageMatcher(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"doc_a_img_001.png", "doc_a_img_000.png", "Doc_B_img_002.png",
		"doc_a_img_003.jpg", "doc_a_cover.png",
	} {
		writeFile(t, dir, name, "x")
	}
	m := NewImageMatcher(dir)

	assert.Equal(t, filepath.Join(dir, "doc_a_img_000.png"), m.Match([]string{"doc_a.pdf"}))
	assert.Equal(t, filepath.Join(dir, "doc_a_img_001.png"), m.Match([]string{"DOC_A"}))
	assert.Equal(t, "", m.Match([]string{"doc_a"}), "each image is used once")
	assert.Equal(t, filepath.Join(dir, "Doc_B_img_002.png"), m.Match([]string{"missing", "doc_b.docx"}))
	assert.Equal(t, "", m.Match(nil))

	assert.Equal(t, filepath.Join(dir, "Doc_B_img_002.png"), m.Placeholder())
}

func TestImageMatcher_MissingDir(t *testing.T) {
	prev := slog.Default()
	var buf bytes.Buffer
	logging.Setup("warn", "text", &buf)
	t.Cleanup(func() { slog.SetDefault(prev) })

	m := NewImageMatcher(filepath.Join(t.TempDir(), "none"))
	for range 3 {
		assert.Equal(t, "", m.Match([]string{"a"}))
	}
	assert.Equal(t, "", m.Placeholder())
	assert.Equal(t, 1, strings.Count(buf.String(), "images directory unreadable"), "the missing directory is reported once")
}

func TestStripDocExt(t *testing.T) {
	assert.Equal(t, "report", stripDocExt("report.PDF"))
	assert.Equal(t, "v1.2 notes", stripDocExt("v1.2 notes.txt"))
	assert.Equal(t, "plain", stripDocExt("plain"))
}
