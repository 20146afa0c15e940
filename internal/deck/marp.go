// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package deck renders generated slides into presentation files and
// assembles the per-lesson and course decks.
package deck

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/docdeck/internal/logging"
	"github.com/pdiddy/docdeck/pkg/types"
)

// Writer accumulates slides and saves them as one presentation.
type Writer interface {
	AddTitleSlide(title, subtitle string)
	AddSectionHeader(title string)
	AddContentSlide(content types.SlideContent, image string)
	AddFinalSlide(title string, bullets []string)
	Save(path string) error
}

// FrontMatter is the Marp global directive block. Keys it does not name
// are kept from the template and written back in sorted order.
type FrontMatter struct {
	Marp     bool           `yaml:"marp"`
	Theme    string         `yaml:"theme,omitempty"`
	Paginate bool           `yaml:"paginate"`
	Extra    map[string]any `yaml:",inline"`
}

// DefaultFrontMatter is used when no template is given.
func DefaultFrontMatter() FrontMatter {
	return FrontMatter{Marp: true, Theme: "default", Paginate: true}
}

// LoadTemplate reads a front matter template. The file holds YAML,
// optionally fenced by "---" lines. Keys missing from the file keep their
// default values, and marp is always enabled. A missing file yields the
// defaults.
func LoadTemplate(path string) (FrontMatter, error) {
	fm := DefaultFrontMatter()
	if path == "" {
		return fm, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logging.Named("deck").Warn("template not found, using defaults", "path", path)
		return fm, nil
	}
	if err != nil {
		return fm, fmt.Errorf("reading template %s: %w", path, err)
	}

	body := strings.TrimSpace(string(data))
	body = strings.TrimPrefix(body, "---")
	body = strings.TrimSuffix(body, "---")
	if err := yaml.Unmarshal([]byte(body), &fm); err != nil {
		return fm, fmt.Errorf("parsing template %s: %w", path, err)
	}
	fm.Marp = true
	return fm, nil
}

type slideKind int

const (
	kindTitle slideKind = iota
	kindSection
	kindContent
	kindFinal
)

type slide struct {
	kind     slideKind
	title    string
	subtitle string
	content  types.SlideContent
	image    string
	bullets  []string
}

// MarpWriter renders slides as Marp Markdown.
type MarpWriter struct {
	front  FrontMatter
	slides []slide
}

// NewMarpWriter returns a writer using fm as the deck's front matter.
func NewMarpWriter(fm FrontMatter) *MarpWriter {
	return &MarpWriter{front: fm}
}

// AddTitleSlide implements Writer.
func (w *MarpWriter) AddTitleSlide(title, subtitle string) {
	w.slides = append(w.slides, slide{kind: kindTitle, title: title, subtitle: subtitle})
}

// AddSectionHeader implements Writer.
func (w *MarpWriter) AddSectionHeader(title string) {
	w.slides = append(w.slides, slide{kind: kindSection, title: title})
}

// AddContentSlide implements Writer. An empty image means a text-only slide.
func (w *MarpWriter) AddContentSlide(content types.SlideContent, image string) {
	w.slides = append(w.slides, slide{kind: kindContent, content: content, image: image})
}

// AddFinalSlide implements Writer.
func (w *MarpWriter) AddFinalSlide(title string, bullets []string) {
	w.slides = append(w.slides, slide{kind: kindFinal, title: title, bullets: bullets})
}

// Len returns the number of slides added so far.
func (w *MarpWriter) Len() int { return len(w.slides) }

// Save writes the deck to path, creating its directory. Image paths are
// written relative to the deck's directory when possible.
func (w *MarpWriter) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating deck directory: %w", err)
	}
	data, err := w.Render(filepath.Dir(path))
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	logging.Named("deck").Info("deck saved", "path", path, "slides", len(w.slides))
	return nil
}

// Render returns the deck's Markdown. Image paths are made relative to
// baseDir when baseDir is not empty.
func (w *MarpWriter) Render(baseDir string) ([]byte, error) {
	fm, err := yaml.Marshal(w.front)
	if err != nil {
		return nil, fmt.Errorf("marshaling front matter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(fm)
	b.WriteString("---\n")
	for i, s := range w.slides {
		if i > 0 {
			b.WriteString("\n---\n")
		}
		b.WriteString("\n")
		b.WriteString(renderSlide(s, baseDir))
	}
	return []byte(b.String()), nil
}

func renderSlide(s slide, baseDir string) string {
	var b strings.Builder
	switch s.kind {
	case kindTitle:
		b.WriteString("<!-- _class: lead -->\n\n# " + s.title + "\n")
		if s.subtitle != "" {
			b.WriteString("\n" + s.subtitle + "\n")
		}
	case kindSection:
		b.WriteString("<!-- _class: lead -->\n\n# " + s.title + "\n")
	case kindContent:
		b.WriteString("## " + s.content.Title + "\n")
		writeBullets(&b, s.content.BulletPoints)
		if s.image != "" {
			b.WriteString("\n![bg right:40%](" + imageRef(s.image, baseDir) + ")\n")
		}
		if notes := speakerNotes(s.content); notes != "" {
			b.WriteString("\n<!--\n" + notes + "\n-->\n")
		}
	case kindFinal:
		b.WriteString("## " + s.title + "\n")
		writeBullets(&b, s.bullets)
	}
	return b.String()
}

func writeBullets(b *strings.Builder, bullets []string) {
	if len(bullets) == 0 {
		return
	}
	b.WriteString("\n")
	for _, bullet := range bullets {
		b.WriteString("- " + bullet + "\n")
	}
}

func speakerNotes(c types.SlideContent) string {
	var parts []string
	if c.SpeakerNotes != "" {
		parts = append(parts, c.SpeakerNotes)
	}
	if len(c.SourceDocNames) > 0 {
		parts = append(parts, "Sources: "+strings.Join(c.SourceDocNames, ", "))
	}
	// An HTML comment cannot contain "--".
	notes := strings.Join(parts, "\n\n")
	for strings.Contains(notes, "--") {
		notes = strings.ReplaceAll(notes, "--", "- -")
	}
	return notes
}

func imageRef(image, baseDir string) string {
	if baseDir == "" {
		return filepath.ToSlash(image)
	}
	absImg, err1 := filepath.Abs(image)
	absBase, err2 := filepath.Abs(baseDir)
	if err1 != nil || err2 != nil {
		return filepath.ToSlash(image)
	}
	rel, err := filepath.Rel(absBase, absImg)
	if err != nil {
		return filepath.ToSlash(image)
	}
	return filepath.ToSlash(rel)
}
