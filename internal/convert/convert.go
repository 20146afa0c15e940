// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert turns source documents into Markdown with pluggable,
// per-format backends.
//
// Backends report recoverable problems (an undecodable page, invalid text
// encoding, a container warning) by logging at WARN through a logger in the
// "convert" namespace with the job's context. The conversion worker captures
// those records and attaches them to the job's result.
package convert

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/docdeck/pkg/types"
)

// Picture is an embedded image whose decoding is deferred until the image
// extractor asks for it.
type Picture interface {
	Decode() (image.Image, error)
}

// Document is the converted form of one source file.
type Document interface {
	// Markdown returns the document body as Markdown.
	Markdown() (string, error)

	// PageCount returns the number of pages, or 0 when the format has no
	// notion of pages.
	PageCount() int

	// Pictures returns the embedded pictures in document order.
	Pictures() []Picture
}

// Converter reads the file at path and returns its converted form.
// Implementations log recoverable problems with ctx and fail only when
// nothing usable can be produced.
type Converter interface {
	Convert(ctx context.Context, path string) (Document, error)
}

// ConverterFunc adapts a function to the Converter interface.
type ConverterFunc func(ctx context.Context, path string) (Document, error)

// Convert implements Converter.
func (f ConverterFunc) Convert(ctx context.Context, path string) (Document, error) {
	return f(ctx, path)
}

// NewDocument builds a Document from already converted parts.
func NewDocument(markdown string, pages int, pictures []Picture) Document {
	return &document{markdown: markdown, pages: pages, pictures: pictures}
}

type document struct {
	markdown string
	pages    int
	pictures []Picture
}

func (d *document) Markdown() (string, error) { return d.markdown, nil }
func (d *document) PageCount() int            { return d.pages }
func (d *document) Pictures() []Picture       { return d.pictures }

// Registry dispatches conversion by lower-cased file extension.
type Registry struct {
	byExt map[string]Converter
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byExt: make(map[string]Converter)}
}

// Register binds ext (with or without the leading dot) to c.
func (r *Registry) Register(ext string, c Converter) {
	r.byExt[normExt(ext)] = c
}

// Supports reports whether a backend is registered for path's extension.
func (r *Registry) Supports(path string) bool {
	_, ok := r.byExt[normExt(filepath.Ext(path))]
	return ok
}

// Extensions returns the registered extensions, sorted.
func (r *Registry) Extensions() []string {
	out := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Convert implements Converter by delegating to the backend registered for
// path's extension.
func (r *Registry) Convert(ctx context.Context, path string) (Document, error) {
	c, ok := r.byExt[normExt(filepath.Ext(path))]
	if !ok {
		return nil, types.NewError(types.KindConversion, "converting "+filepath.Base(path),
			fmt.Errorf("unsupported extension %q", filepath.Ext(path)))
	}
	return c.Convert(ctx, path)
}

// NewNative returns a registry of the in-process backends for PDF, Word,
// PowerPoint, Excel and plain text.
func NewNative() *Registry {
	r := NewRegistry()
	r.Register(".txt", TextConverter{})
	r.Register(".pdf", PDFConverter{})
	r.Register(".docx", OOXMLConverter{})
	r.Register(".pptx", OOXMLConverter{})
	r.Register(".xlsx", XLSXConverter{})
	return r
}

// NewMarkitdownRegistry routes every supported extension through the
// markitdown container, keeping plain text in-process.
func NewMarkitdownRegistry(m *MarkitdownConverter) *Registry {
	r := NewRegistry()
	r.Register(".txt", TextConverter{})
	for _, ext := range []string{".pdf", ".docx", ".pptx", ".xlsx"} {
		r.Register(ext, m)
	}
	return r
}

func normExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

func fileName(path string) string {
	return filepath.Base(path)
}
