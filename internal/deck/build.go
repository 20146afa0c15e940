// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package deck

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pdiddy/docdeck/internal/logging"
	"github.com/pdiddy/docdeck/internal/output"
	"github.com/pdiddy/docdeck/internal/slides"
	"github.com/pdiddy/docdeck/pkg/types"
)

// MasterFile is the name of the course deck.
const MasterFile = "Complete_Course.md"

// SlideGenerator produces the content of one slide.
type SlideGenerator interface {
	GenerateSlide(ctx context.Context, topic, lessonTitle string) (types.SlideContent, error)
}

// ImagePicker assigns images to slides.
type ImagePicker interface {
	Match(sourceDocNames []string) string
	Placeholder() string
}

// Options controls BuildDecks.
type Options struct {
	OutDir         string
	Master         bool
	CourseTitle    string
	CourseSubtitle string

	// Placeholder gives image-less slides the picker's placeholder image.
	Placeholder bool
}

// BuildDecks generates every outline entry of plan once and writes it to
// its lesson deck and, when opts.Master is set, to the course deck. It
// returns the paths written. Exhausted rate-limit retries and cancellation
// stop the build; other generation failures produce a fallback slide.
func BuildDecks(ctx context.Context, plan *types.LessonPlan, gen SlideGenerator, images ImagePicker, newWriter func() Writer, opts Options) ([]string, error) {
	log := logging.Named("deck")

	var master Writer
	if opts.Master {
		master = newWriter()
		title := opts.CourseTitle
		if title == "" {
			title = "Course"
		}
		subtitle := opts.CourseSubtitle
		if subtitle == "" {
			subtitle = fmt.Sprintf("%d lessons", len(plan.Lessons))
		}
		master.AddTitleSlide(title, subtitle)
	}

	var written []string
	for _, lesson := range plan.Lessons {
		heading := fmt.Sprintf("Lesson %d: %s", lesson.Number, lesson.Title)
		log.InfoContext(ctx, "building lesson", "lesson", lesson.Number, "title", lesson.Title, "slides", len(lesson.Outline))

		lw := newWriter()
		lw.AddTitleSlide(heading, "Estimated duration: "+lesson.Duration)
		if master != nil {
			master.AddSectionHeader(heading)
		}

		for _, item := range lesson.Outline {
			content, err := gen.GenerateSlide(ctx, slides.TopicQuery(item), lesson.Title)
			if err != nil {
				if types.IsKind(err, types.KindRateLimit) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return written, fmt.Errorf("lesson %d, slide %q: %w", lesson.Number, item.Title, err)
				}
				log.WarnContext(ctx, "slide generation failed, using outline", "slide", item.Title, "error", err)
				content = fallbackSlide(item)
			}

			image := ""
			if images != nil {
				image = images.Match(content.SourceDocNames)
				if image == "" && opts.Placeholder {
					image = images.Placeholder()
				}
			}

			lw.AddContentSlide(content, image)
			if master != nil {
				master.AddContentSlide(content, image)
			}
		}

		if len(lesson.Exercises) > 0 {
			lw.AddFinalSlide("Practical Exercises", lesson.Exercises)
		}

		path := filepath.Join(opts.OutDir, LessonFile(lesson))
		if err := lw.Save(path); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	if master != nil {
		path := filepath.Join(opts.OutDir, MasterFile)
		if err := master.Save(path); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

// LessonFile names a lesson deck: "Lesson_<n>_<Title_with_underscores>.md".
func LessonFile(l types.Lesson) string {
	title := output.SanitizeFilename(strings.Join(strings.Fields(l.Title), "_"))
	return fmt.Sprintf("Lesson_%d_%s.md", l.Number, title)
}

func fallbackSlide(item types.SlideSpec) types.SlideContent {
	return slides.Normalize(types.SlideContent{
		Title:        item.Title,
		BulletPoints: item.Topics,
	})
}
