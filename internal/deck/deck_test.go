// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package deck

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/docdeck/pkg/types"
)

func TestMarpWriter_Render(t *testing.T) {
	w := NewMarpWriter(DefaultFrontMatter())
	w.AddTitleSlide("Lesson 1: Basics", "Estimated duration: 4 hours")
	w.AddContentSlide(types.SlideContent{
		Title:          "Placenta",
		BulletPoints:   []string{"a", "b"},
		SpeakerNotes:   "Say this -- now.",
		SourceDocNames: []string{"guide", "atlas"},
	}, "img/guide_img_000.png")
	w.AddFinalSlide("Practical Exercises", []string{"ex1"})

	got, err := w.Render("")
	require.NoError(t, err)

	want := "---\nmarp: true\ntheme: default\npaginate: true\n---\n" +
		"\n<!-- _class: lead -->\n\n# Lesson 1: Basics\n\nEstimated duration: 4 hours\n" +
		"\n---\n" +
		"\n## Placenta\n\n- a\n- b\n\n![bg right:40%](img/guide_img_000.png)\n\n<!--\nSay this - - now.\n\nSources: guide, atlas\n-->\n" +
		"\n---\n" +
		"\n## Practical Exercises\n\n- ex1\n"
	assert.Equal(t, want, string(got))
	assert.Equal(t, 3, w.Len())
}

func TestMarpWriter_SectionAndBareContent(t *testing.T) {
	w := NewMarpWriter(DefaultFrontMatter())
	w.AddSectionHeader("Lesson 2: More")
	w.AddContentSlide(types.SlideContent{Title: "Only title"}, "")

	got, err := w.Render("")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(got),
		"\n<!-- _class: lead -->\n\n# Lesson 2: More\n\n---\n\n## Only title\n"))
}

func TestSpeakerNotes_NoDoubleHyphens(t *testing.T) {
	notes := speakerNotes(types.SlideContent{SpeakerNotes: "a --- b ---> c"})
	assert.NotContains(t, notes, "--")
}

func TestMarpWriter_SaveRelativeImage(t *testing.T) {
	root := t.TempDir()
	img := filepath.Join(root, "images", "guide_img_000.png")
	path := filepath.Join(root, "decks", "deck.md")

	w := NewMarpWriter(DefaultFrontMatter())
	w.AddContentSlide(types.SlideContent{Title: "T"}, img)
	require.NoError(t, w.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "![bg right:40%](../images/guide_img_000.png)")
}

func TestLoadTemplate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "template.md")
	require.NoError(t, os.WriteFile(path, []byte("---\nmarp: false\ntheme: gaia\nheader: Course\n---\n"), 0o644))

	fm, err := LoadTemplate(path)
	require.NoError(t, err)
	assert.True(t, fm.Marp, "marp is always enabled")
	assert.Equal(t, "gaia", fm.Theme)
	assert.True(t, fm.Paginate, "unset keys keep their defaults")
	assert.Equal(t, map[string]any{"header": "Course"}, fm.Extra)

	got, err := NewMarpWriter(fm).Render("")
	require.NoError(t, err)
	assert.Equal(t, "---\nmarp: true\ntheme: gaia\npaginate: true\nheader: Course\n---\n", string(got))
}

func TestLoadTemplate_Fallbacks(t *testing.T) {
	fm, err := LoadTemplate("")
	require.NoError(t, err)
	assert.Equal(t, DefaultFrontMatter(), fm)

	fm, err = LoadTemplate(filepath.Join(t.TempDir(), "missing.md"))
	require.NoError(t, err)
	assert.Equal(t, DefaultFrontMatter(), fm)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("theme: [unclosed"), 0o644))
	_, err = LoadTemplate(bad)
	assert.Error(t, err)
}

func TestLessonFile(t *testing.T) {
	assert.Equal(t, "Lesson_1_Basics_of_Care.md", LessonFile(types.Lesson{Number: 1, Title: "Basics of  Care"}))
	assert.Equal(t, "Lesson_3_Care__Day_1_2.md", LessonFile(types.Lesson{Number: 3, Title: "Care: Day 1/2"}))
}

type fakeGenerator struct {
	errs   map[string]error
	topics []string
}

func (g *fakeGenerator) GenerateSlide(_ context.Context, topic, lessonTitle string) (types.SlideContent, error) {
	g.topics = append(g.topics, topic)
	if err := g.errs[topic]; err != nil {
		return types.SlideContent{}, err
	}
	return types.SlideContent{
		Title:          strings.SplitN(topic, ":", 2)[0],
		BulletPoints:   []string{"from " + lessonTitle},
		SourceDocNames: []string{"guide"},
	}, nil
}

type fakePicker struct {
	images []string
}

func (p *fakePicker) Match([]string) string {
	if len(p.images) == 0 {
		return ""
	}
	img := p.images[0]
	p.images = p.images[1:]
	return img
}

func (p *fakePicker) Placeholder() string { return "placeholder.png" }

// recorder is a Writer that logs calls instead of rendering.
type recorder struct {
	calls *[]string
	name  string
}

func (r *recorder) AddTitleSlide(title, subtitle string) {
	*r.calls = append(*r.calls, fmt.Sprintf("%s title %s | %s", r.name, title, subtitle))
}
func (r *recorder) AddSectionHeader(title string) {
	*r.calls = append(*r.calls, fmt.Sprintf("%s section %s", r.name, title))
}
func (r *recorder) AddContentSlide(c types.SlideContent, image string) {
	*r.calls = append(*r.calls, fmt.Sprintf("%s content %s [%s]", r.name, c.Title, image))
}
func (r *recorder) AddFinalSlide(title string, bullets []string) {
	*r.calls = append(*r.calls, fmt.Sprintf("%s final %s %v", r.name, title, bullets))
}
func (r *recorder) Save(path string) error {
	*r.calls = append(*r.calls, fmt.Sprintf("%s save %s", r.name, filepath.Base(path)))
	return nil
}

func samplePlan() *types.LessonPlan {
	return &types.LessonPlan{Lessons: []types.Lesson{
		{
			Number: 1, Title: "Basics", Duration: "4 hours",
			Outline:   []types.SlideSpec{{Title: "Intro", Topics: []string{"a"}}, {Title: "Roles"}},
			Exercises: []string{"role play"},
		},
		{
			Number: 2, Title: "Advanced", Duration: "2 hours",
			Outline: []types.SlideSpec{{Title: "Risks", Topics: []string{"x", "y"}}},
		},
	}}
}

func TestBuildDecks_Order(t *testing.T) {
	var calls []string
	n := 0
	newWriter := func() Writer {
		n++
		name := "master"
		if n > 1 {
			name = fmt.Sprintf("lesson%d", n-1)
		}
		return &recorder{calls: &calls, name: name}
	}
	gen := &fakeGenerator{errs: map[string]error{"Risks: x, y": errors.New("invalid JSON")}}
	picker := &fakePicker{images: []string{"guide_img_000.png"}}

	written, err := BuildDecks(context.Background(), samplePlan(), gen, picker, newWriter, Options{
		OutDir: "out", Master: true, CourseTitle: "Community Care", Placeholder: true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join("out", "Lesson_1_Basics.md"),
		filepath.Join("out", "Lesson_2_Advanced.md"),
		filepath.Join("out", MasterFile),
	}, written)
	assert.Equal(t, []string{"Intro: a", "Roles", "Risks: x, y"}, gen.topics)
	assert.Equal(t, []string{
		"master title Community Care | 2 lessons",
		"lesson1 title Lesson 1: Basics | Estimated duration: 4 hours",
		"master section Lesson 1: Basics",
		"lesson1 content Intro [guide_img_000.png]",
		"master content Intro [guide_img_000.png]",
		"lesson1 content Roles [placeholder.png]",
		"master content Roles [placeholder.png]",
		"lesson1 final Practical Exercises [role play]",
		"lesson1 save Lesson_1_Basics.md",
		"lesson2 title Lesson 2: Advanced | Estimated duration: 2 hours",
		"master section Lesson 2: Advanced",
		"lesson2 content Risks [placeholder.png]",
		"master content Risks [placeholder.png]",
		"lesson2 save Lesson_2_Advanced.md",
		"master save Complete_Course.md",
	}, calls)
}

func TestBuildDecks_WritesMarpFiles(t *testing.T) {
	out := t.TempDir()
	newWriter := func() Writer { return NewMarpWriter(DefaultFrontMatter()) }

	written, err := BuildDecks(context.Background(), samplePlan(), &fakeGenerator{}, nil, newWriter, Options{OutDir: out})
	require.NoError(t, err)
	require.Len(t, written, 2, "no master deck unless requested")

	data, err := os.ReadFile(filepath.Join(out, "Lesson_2_Advanced.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "## Risks\n\n- from Advanced\n")
	assert.Contains(t, string(data), "Sources: guide")
	assert.NotContains(t, string(data), "Practical Exercises")
}

func TestBuildDecks_StopsOnExhaustedRetries(t *testing.T) {
	gen := &fakeGenerator{errs: map[string]error{
		"Roles": types.NewError(types.KindRateLimit, "giving up after 5 consecutive rate limits", nil),
	}}
	var calls []string
	newWriter := func() Writer { return &recorder{calls: &calls, name: "w"} }

	written, err := BuildDecks(context.Background(), samplePlan(), gen, nil, newWriter, Options{OutDir: "out"})
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindRateLimit))
	assert.Empty(t, written)
	assert.Equal(t, []string{"Intro: a", "Roles"}, gen.topics)
}

func TestBuildDecks_StopsOnCancel(t *testing.T) {
	gen := &fakeGenerator{errs: map[string]error{"Intro: a": fmt.Errorf("generating: %w", context.Canceled)}}
	var calls []string
	newWriter := func() Writer { return &recorder{calls: &calls, name: "w"} }

	_, err := BuildDecks(context.Background(), samplePlan(), gen, nil, newWriter, Options{OutDir: "out"})
	require.ErrorIs(t, err, context.Canceled)
}
