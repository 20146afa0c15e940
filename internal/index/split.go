// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultSeparators are tried in order: section headings first, then
// paragraphs, lines and words.
var DefaultSeparators = []string{"\n## ", "\n### ", "\n\n", "\n", " "}

// UnknownSource tags chunks that precede any source line.
const UnknownSource = "Unknown"

// Splitter cuts text into chunks of at most Size characters, sharing up to
// Overlap characters between neighbours. It splits on the coarsest
// separator present, recursing into pieces that are still too long, and
// keeps each separator at the start of the piece that follows it.
type Splitter struct {
	Size       int
	Overlap    int
	Separators []string
}

// NewSplitter returns a splitter using DefaultSeparators. Non-positive
// sizes fall back to 1000 and 200.
func NewSplitter(size, overlap int) *Splitter {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 || overlap >= size {
		overlap = min(200, size/5)
	}
	return &Splitter{Size: size, Overlap: overlap, Separators: DefaultSeparators}
}

// Split returns the chunks of text, trimmed of surrounding whitespace.
func (s *Splitter) Split(text string) []string {
	if len(s.Separators) == 0 {
		return s.split(text, []string{""})
	}
	return s.split(text, s.Separators)
}

func (s *Splitter) split(text string, separators []string) []string {
	sep := separators[len(separators)-1]
	var rest []string
	for i, candidate := range separators {
		if candidate == "" {
			sep = ""
			break
		}
		if strings.Contains(text, candidate) {
			sep = candidate
			rest = separators[i+1:]
			break
		}
	}

	var (
		chunks []string
		good   []string
	)
	for _, piece := range splitKeep(text, sep) {
		if runeLen(piece) < s.Size {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			chunks = append(chunks, s.merge(good)...)
			good = nil
		}
		if len(rest) == 0 {
			if t := strings.TrimSpace(piece); t != "" {
				chunks = append(chunks, t)
			}
			continue
		}
		chunks = append(chunks, s.split(piece, rest)...)
	}
	if len(good) > 0 {
		chunks = append(chunks, s.merge(good)...)
	}
	return chunks
}

// merge packs consecutive pieces into chunks no longer than Size, carrying
// the tail of each chunk into the next one up to Overlap characters.
func (s *Splitter) merge(pieces []string) []string {
	var (
		out   []string
		cur   []string
		total int
	)
	for _, p := range pieces {
		n := runeLen(p)
		if total+n > s.Size && len(cur) > 0 {
			if doc := strings.TrimSpace(strings.Join(cur, "")); doc != "" {
				out = append(out, doc)
			}
			for len(cur) > 0 && (total > s.Overlap || total+n > s.Size) {
				total -= runeLen(cur[0])
				cur = cur[1:]
			}
		}
		cur = append(cur, p)
		total += n
	}
	if doc := strings.TrimSpace(strings.Join(cur, "")); doc != "" {
		out = append(out, doc)
	}
	return out
}

// splitKeep splits text on sep, attaching each separator to the piece that
// follows it. Empty pieces are dropped. An empty sep splits into runes.
func splitKeep(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, len(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}
	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	if parts[0] != "" {
		out = append(out, parts[0])
	}
	for _, p := range parts[1:] {
		out = append(out, sep+p)
	}
	return out
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }

var sourceLine = regexp.MustCompile("Source:\\*\\* `([^`]+)`")

// TagSources assigns each chunk the source document named by the most
// recent "> **Source:** `file`" line seen so far, without its extension.
func TagSources(chunks []string) []string {
	tags := make([]string, len(chunks))
	current := UnknownSource
	for i, c := range chunks {
		if m := sourceLine.FindStringSubmatch(c); m != nil {
			current = strings.TrimSuffix(m[1], filepath.Ext(m[1]))
		}
		tags[i] = current
	}
	return tags
}
