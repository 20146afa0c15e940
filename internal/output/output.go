// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package output writes converted documents as Markdown files, either one
// file per source document or a single aggregated context file.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/docdeck/internal/logging"
	"github.com/pdiddy/docdeck/pkg/types"
)

const (
	// ContextFile is the file written in single mode.
	ContextFile = "context.md"

	// AggregateTitle heads the single-mode file.
	AggregateTitle = "Aggregated Context"
)

// now is replaced in tests.
var now = func() time.Time { return time.Now().UTC() }

// Options controls the layout of the written files.
type Options struct {
	Mode        types.OutputMode
	Frontmatter bool
	TOC         bool
}

type documentFrontmatter struct {
	Title       string `yaml:"title"`
	Source      string `yaml:"source"`
	Pages       int    `yaml:"pages"`
	GeneratedAt string `yaml:"generated_at"`
}

type aggregateFrontmatter struct {
	Title       string `yaml:"title"`
	Documents   int    `yaml:"documents"`
	GeneratedAt string `yaml:"generated_at"`
}

// Write renders results into dir and returns the paths written. Results are
// ordered by source file name so the output does not depend on the order
// in which conversions finished.
func Write(results []types.Result, dir string, opts Options) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory %s: %w", dir, err)
	}

	sorted := make([]types.Result, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].SourceFile < sorted[j].SourceFile })

	if opts.Mode == types.ModeSingle {
		path, err := writeSingle(sorted, dir, opts)
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	}
	return writePerDocument(sorted, dir, opts)
}

func writePerDocument(results []types.Result, dir string, opts Options) ([]string, error) {
	log := logging.Named("output")
	taken := make(map[string]int)
	var written []string

	for _, r := range results {
		var b strings.Builder
		if opts.Frontmatter {
			fm, err := frontmatter(documentFrontmatter{
				Title:       r.Title,
				Source:      r.SourceFile,
				Pages:       r.PageCount,
				GeneratedAt: timestamp(),
			})
			if err != nil {
				return written, err
			}
			b.WriteString(fm)
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "# %s\n\n", r.Title)
		b.WriteString(r.Markdown)
		if !strings.HasSuffix(r.Markdown, "\n") {
			b.WriteString("\n")
		}

		stem := SafeStem(r.SourceFile)
		taken[stem]++
		if n := taken[stem]; n > 1 {
			stem = fmt.Sprintf("%s_%d", stem, n)
		}
		path := filepath.Join(dir, stem+".md")
		if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
			return written, fmt.Errorf("writing %s: %w", path, err)
		}
		log.Info("written", "path", path)
		written = append(written, path)
	}
	return written, nil
}

func writeSingle(results []types.Result, dir string, opts Options) (string, error) {
	var parts []string

	if opts.Frontmatter {
		fm, err := frontmatter(aggregateFrontmatter{
			Title:       AggregateTitle,
			Documents:   len(results),
			GeneratedAt: timestamp(),
		})
		if err != nil {
			return "", err
		}
		parts = append(parts, strings.TrimSuffix(fm, "\n"))
	}
	parts = append(parts, "# "+AggregateTitle)

	if opts.TOC && len(results) > 0 {
		anchors := newAnchorSet()
		lines := []string{"## Contents", ""}
		for _, r := range results {
			lines = append(lines, fmt.Sprintf("- [%s](#%s)", r.Title, anchors.next(r.Title)))
		}
		parts = append(parts, strings.Join(lines, "\n"))
	}

	for _, r := range results {
		source := fmt.Sprintf("> **Source:** `%s`", r.SourceFile)
		if r.PageCount > 0 {
			source += fmt.Sprintf(" | **Pages:** %d", r.PageCount)
		}
		parts = append(parts, strings.Join([]string{
			"---",
			"## " + r.Title,
			source,
			strings.TrimRight(r.Markdown, "\n"),
		}, "\n\n"))
	}

	path := filepath.Join(dir, ContextFile)
	if err := os.WriteFile(path, []byte(strings.Join(parts, "\n\n")+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	logging.Named("output").Info("written", "path", path, "documents", len(results))
	return path, nil
}

func frontmatter(v any) (string, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("rendering frontmatter: %w", err)
	}
	return "---\n" + string(data) + "---\n", nil
}

func timestamp() string {
	return now().Format("2006-01-02T15:04:05Z")
}

// SafeStem turns a source file name into an output file stem: extension
// dropped, spaces to underscores, lower-cased, and unsafe characters
// replaced.
func SafeStem(filename string) string {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	return SanitizeFilename(strings.ToLower(strings.ReplaceAll(stem, " ", "_")))
}

var unsafeChars = strings.NewReplacer(
	`\`, "_", "/", "_", ":", "_", "*", "_", "?", "_",
	`"`, "_", "<", "_", ">", "_", "|", "_",
)

// SanitizeFilename replaces characters that are not allowed in file names
// on common filesystems with underscores.
func SanitizeFilename(name string) string {
	return unsafeChars.Replace(name)
}

// Anchor returns the GitHub-style heading anchor for text.
func Anchor(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(text)) {
		switch {
		case r == ' ':
			b.WriteRune('-')
		case r == '-' || r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		}
	}
	return b.String()
}

// anchorSet numbers repeated anchors the way GitHub does: "intro",
// "intro-1", "intro-2".
type anchorSet map[string]int

func newAnchorSet() anchorSet { return anchorSet{} }

func (s anchorSet) next(text string) string {
	a := Anchor(text)
	n := s[a]
	s[a] = n + 1
	if n == 0 {
		return a
	}
	return fmt.Sprintf("%s-%d", a, n)
}
