// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package slides

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/pdiddy/docdeck/internal/logging"
)

var docExtensions = []string{".pdf", ".docx", ".pptx", ".xlsx", ".txt"}

// ImageMatcher hands out extracted images to slides. Each image is used at
// most once per matcher.
type ImageMatcher struct {
	Dir string

	mu   sync.Mutex
	used map[string]bool

	warnOnce sync.Once
}

// NewImageMatcher returns a matcher over the images in dir.
func NewImageMatcher(dir string) *ImageMatcher {
	return &ImageMatcher{Dir: dir, used: make(map[string]bool)}
}

// Match returns the path of the first unused image extracted from one of
// the named documents, trying the names in order, or "" when none is
// left. Images are named "<doc>_img_<n>.png" and compared without regard
// to case.
func (m *ImageMatcher) Match(sourceDocNames []string) string {
	names := m.pngs()
	if len(names) == 0 {
		return ""
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.used == nil {
		m.used = make(map[string]bool)
	}

	for _, doc := range sourceDocNames {
		clean := stripDocExt(strings.TrimSpace(doc))
		if clean == "" {
			continue
		}
		pattern := regexp.MustCompile(`(?i)^` + regexp.QuoteMeta(clean) + `_img_\d+\.png$`)
		for _, name := range names {
			if !pattern.MatchString(name) {
				continue
			}
			path := filepath.Join(m.Dir, name)
			if m.used[path] {
				continue
			}
			m.used[path] = true
			logging.Named("slides").Debug("image matched", "image", name, "doc", clean)
			return path
		}
	}
	return ""
}

// Placeholder returns the first image in the directory, used or not, or
// "" when there is none.
func (m *ImageMatcher) Placeholder() string {
	names := m.pngs()
	if len(names) == 0 {
		return ""
	}
	return filepath.Join(m.Dir, names[0])
}

func (m *ImageMatcher) pngs() []string {
	entries, err := os.ReadDir(m.Dir)
	if err != nil {
		m.warnOnce.Do(func() {
			logging.Named("slides").Warn("images directory unreadable, slides get no images", "dir", m.Dir, "error", err)
		})
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".png") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

func stripDocExt(name string) string {
	lower := strings.ToLower(name)
	for _, ext := range docExtensions {
		if strings.HasSuffix(lower, ext) {
			return strings.TrimSpace(name[:len(name)-len(ext)])
		}
	}
	return name
}
