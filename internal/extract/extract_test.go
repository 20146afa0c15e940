// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/docdeck/internal/audit"
	"github.com/pdiddy/docdeck/internal/convert"
	"github.com/pdiddy/docdeck/internal/logging"
	"github.com/pdiddy/docdeck/pkg/types"
)

func installLogger(t *testing.T) {
	t.Helper()
	prev := slog.Default()
	logging.Setup("error", "text", io.Discard)
	t.Cleanup(func() { slog.SetDefault(prev) })
}

// fakePicture decodes to a tiny image unless it carries no data.
type fakePicture struct{ empty bool }

func (f fakePicture) Decode() (image.Image, error) {
	if f.empty {
		return nil, errors.New("no image data")
	}
	return image.NewGray(image.Rect(0, 0, 3, 2)), nil
}

// fakeDoc is a canned conversion result.
type fakeDoc struct {
	markdown string
	pages    int
	pictures []convert.Picture
}

func (d fakeDoc) Markdown() (string, error)   { return d.markdown, nil }
func (d fakeDoc) PageCount() int              { return d.pages }
func (d fakeDoc) Pictures() []convert.Picture { return d.pictures }

// scriptedConverter looks up behaviour by base file name. Warnings are
// emitted through the converter namespace logger with the job context.
type scriptedConverter struct {
	docs     map[string]fakeDoc
	warnings map[string][]string
	errs     map[string]error
	panics   map[string]bool
	delay    time.Duration

	active  atomic.Int32
	maxSeen atomic.Int32
}

func (c *scriptedConverter) Convert(ctx context.Context, path string) (convert.Document, error) {
	n := c.active.Add(1)
	defer c.active.Add(-1)
	for {
		seen := c.maxSeen.Load()
		if n <= seen || c.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	if c.delay > 0 {
		time.Sleep(c.delay)
	}

	name := filepath.Base(path)
	log := logging.Named("convert.fake")
	for _, w := range c.warnings[name] {
		log.WarnContext(ctx, w)
	}
	if c.panics[name] {
		panic("corrupt xref table")
	}
	if err := c.errs[name]; err != nil {
		return nil, err
	}
	return c.docs[name], nil
}

func touch(t *testing.T, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("x"), size), 0o644))
	return path
}

func TestImageName(t *testing.T) {
	assert.Equal(t, "report_img_000.png", ImageName("report", 0))
	assert.Equal(t, "My Doc_img_012.png", ImageName("My Doc", 12))
	assert.Equal(t, "a_img_1234.png", ImageName("a", 1234))
}

func TestExtractImages_SkipsUndecodable(t *testing.T) {
	installLogger(t)
	dir := filepath.Join(t.TempDir(), "images")
	doc := fakeDoc{pictures: []convert.Picture{fakePicture{}, fakePicture{empty: true}, fakePicture{}, nil}}

	n, err := ExtractImages(context.Background(), doc, "manual", dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"manual_img_000.png", "manual_img_002.png"}, names)
}

func TestExtractImages_Overwrites(t *testing.T) {
	installLogger(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a_img_000.png"), []byte("stale"), 0o644))

	n, err := ExtractImages(context.Background(), fakeDoc{pictures: []convert.Picture{fakePicture{}}}, "a", dir)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	data, err := os.ReadFile(filepath.Join(dir, "a_img_000.png"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
}

func TestExtractImages_DirectoryError(t *testing.T) {
	installLogger(t)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	n, err := ExtractImages(context.Background(), fakeDoc{pictures: []convert.Picture{fakePicture{}}}, "a", filepath.Join(blocker, "images"))
	require.Error(t, err)
	assert.Zero(t, n)
	assert.True(t, types.IsKind(err, types.KindImageWrite))
}

func TestScan(t *testing.T) {
	installLogger(t)
	dir := t.TempDir()
	for _, name := range []string{"b.PDF", "a.docx", "notes.txt", "sheet.xlsx", "deck.pptx", "readme.md", "image.png"} {
		touch(t, dir, name, 1)
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.pdf"), 0o755))

	paths, err := Scan(context.Background(), dir)
	require.NoError(t, err)

	var names []string
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	assert.Equal(t, []string{"a.docx", "b.PDF", "deck.pptx", "notes.txt", "sheet.xlsx"}, names)
}

func TestScan_MissingDir(t *testing.T) {
	installLogger(t)
	_, err := Scan(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindInputNotFound))
}

func TestPool_MixedBatch(t *testing.T) {
	installLogger(t)
	in := t.TempDir()
	imagesDir := filepath.Join(t.TempDir(), "images")

	paths := []string{
		touch(t, in, "doc1.txt", 10),
		touch(t, in, "doc2.pdf", 3*1024*1024),
		touch(t, in, "doc3.docx", 10),
	}
	conv := &scriptedConverter{
		docs: map[string]fakeDoc{
			"doc1.txt": {markdown: "plain"},
			"doc2.pdf": {markdown: "# Doc 2", pages: 4, pictures: []convert.Picture{fakePicture{}}},
		},
		warnings: map[string][]string{"doc2.pdf": {"page 2 has no text", "font missing"}},
		errs:     map[string]error{"doc3.docx": errors.New("not a zip file")},
	}

	log := audit.New()
	var progress bytes.Buffer
	pool := &Pool{Converter: conv, Audit: log, ImagesDir: imagesDir, Concurrency: 2, Log: &progress}

	successes, failed := pool.Run(context.Background(), paths)

	require.Len(t, successes, 2)
	assert.Equal(t, []string{"doc3.docx"}, failed)

	byName := map[string]types.Result{}
	for _, r := range successes {
		byName[r.SourceFile] = r
	}
	assert.Empty(t, byName["doc1.txt"].Warnings)
	assert.Equal(t, "Doc1", byName["doc1.txt"].Title)

	doc2 := byName["doc2.pdf"]
	assert.Equal(t, []string{
		"[WARN] convert.fake: page 2 has no text",
		"[WARN] convert.fake: font missing",
	}, doc2.Warnings)
	assert.Equal(t, 4, doc2.PageCount)
	assert.Equal(t, 1, doc2.ImagesExtracted)
	assert.FileExists(t, filepath.Join(imagesDir, "doc2_img_000.png"))

	assert.Equal(t, types.AuditSummary{
		TotalDocuments:       3,
		Successful:           1,
		Partial:              1,
		Failed:               1,
		TotalImagesExtracted: 1,
		TotalWarnings:        2,
	}, log.Summary())

	for _, e := range log.Entries() {
		switch e.SourceFile {
		case "doc2.pdf":
			assert.Equal(t, types.StatusPartial, e.Status)
			assert.Equal(t, 3.0, e.FileSizeMB)
		case "doc3.docx":
			assert.Equal(t, types.StatusFailed, e.Status)
			require.NotNil(t, e.Error)
			assert.Contains(t, *e.Error, "not a zip file")
			assert.Zero(t, e.PageCount)
			assert.Zero(t, e.ImagesExtracted)
		}
	}

	out := progress.String()
	assert.Contains(t, out, "converted: doc1.txt")
	assert.Contains(t, out, "partial:   doc2.pdf")
	assert.Contains(t, out, "failed:    doc3.docx")
}

func TestPool_PanicIsAFailure(t *testing.T) {
	installLogger(t)
	in := t.TempDir()
	paths := []string{touch(t, in, "bad.pdf", 1), touch(t, in, "good.txt", 1)}
	conv := &scriptedConverter{
		docs:     map[string]fakeDoc{"good.txt": {markdown: "ok"}},
		warnings: map[string][]string{"bad.pdf": {"reading xref"}},
		panics:   map[string]bool{"bad.pdf": true},
	}
	log := audit.New()

	successes, failed := (&Pool{Converter: conv, Audit: log}).Run(context.Background(), paths)

	require.Len(t, successes, 1)
	assert.Equal(t, "good.txt", successes[0].SourceFile)
	assert.Equal(t, []string{"bad.pdf"}, failed)

	for _, e := range log.Entries() {
		if e.SourceFile == "bad.pdf" {
			require.NotNil(t, e.Error)
			assert.Contains(t, *e.Error, "corrupt xref table")
			assert.Equal(t, []string{"[WARN] convert.fake: reading xref"}, e.Warnings)
		}
	}
}

func TestPool_NoImagesDirSkipsExtraction(t *testing.T) {
	installLogger(t)
	in := t.TempDir()
	conv := &scriptedConverter{docs: map[string]fakeDoc{
		"a.pdf": {markdown: "a", pictures: []convert.Picture{fakePicture{}, fakePicture{}}},
	}}

	successes, _ := (&Pool{Converter: conv, Audit: audit.New()}).Run(context.Background(), []string{touch(t, in, "a.pdf", 1)})
	require.Len(t, successes, 1)
	assert.Zero(t, successes[0].ImagesExtracted)
}

func TestPool_PartitionAndBound(t *testing.T) {
	installLogger(t)
	in := t.TempDir()

	conv := &scriptedConverter{
		docs:     map[string]fakeDoc{},
		warnings: map[string][]string{},
		errs:     map[string]error{},
		delay:    2 * time.Millisecond,
	}
	var paths []string
	for i := range 40 {
		name := fmt.Sprintf("doc%02d.txt", i)
		paths = append(paths, touch(t, in, name, 1))
		switch i % 3 {
		case 0:
			conv.errs[name] = errors.New("unreadable")
		case 1:
			conv.warnings[name] = []string{fmt.Sprintf("warning for %s", name)}
			conv.docs[name] = fakeDoc{markdown: name}
		default:
			conv.docs[name] = fakeDoc{markdown: name}
		}
	}

	log := audit.New()
	successes, failed := (&Pool{Converter: conv, Audit: log, Concurrency: 3}).Run(context.Background(), paths)

	assert.Equal(t, len(paths), len(successes)+len(failed))
	assert.Len(t, log.Entries(), len(paths))
	assert.LessOrEqual(t, conv.maxSeen.Load(), int32(3))

	var seen []string
	for _, r := range successes {
		seen = append(seen, r.SourceFile)
		// Each job sees only its own warnings.
		for _, w := range r.Warnings {
			assert.True(t, strings.HasSuffix(w, r.SourceFile), "warning %q leaked into %s", w, r.SourceFile)
		}
	}
	seen = append(seen, failed...)
	sort.Strings(seen)
	var want []string
	for _, p := range paths {
		want = append(want, filepath.Base(p))
	}
	assert.Equal(t, want, seen)
}

func TestPool_ProgressWriterIsSerialized(t *testing.T) {
	installLogger(t)
	in := t.TempDir()
	conv := &scriptedConverter{docs: map[string]fakeDoc{}}
	var paths []string
	for i := range 20 {
		name := fmt.Sprintf("f%02d.txt", i)
		conv.docs[name] = fakeDoc{markdown: "x"}
		paths = append(paths, touch(t, in, name, 1))
	}

	w := &countingWriter{}
	(&Pool{Converter: conv, Concurrency: 4, Log: w}).Run(context.Background(), paths)
	assert.Equal(t, 20, w.lines())
}

type countingWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

func (c *countingWriter) lines() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.Count(c.buf.String(), "\n")
}

// writeDocxWithCorruptMedia writes a .docx whose first media part fails its
// CRC check and whose second media part is a valid PNG.
func writeDocxWithCorruptMedia(t *testing.T, path string) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>Site rules</w:t></w:r></w:p></w:body></w:document>`))
	require.NoError(t, err)

	corrupt := []byte("\x89PNG not really")
	w, err = zw.CreateRaw(&zip.FileHeader{
		Name:               "word/media/image1.png",
		Method:             zip.Store,
		CRC32:              crc32.ChecksumIEEE(corrupt) + 1,
		CompressedSize64:   uint64(len(corrupt)),
		UncompressedSize64: uint64(len(corrupt)),
	})
	require.NoError(t, err)
	_, err = w.Write(corrupt)
	require.NoError(t, err)

	var pngBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, image.NewGray(image.Rect(0, 0, 2, 2))))
	w, err = zw.Create("word/media/image2.png")
	require.NoError(t, err)
	_, err = w.Write(pngBuf.Bytes())
	require.NoError(t, err)

	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestPool_UnreadableMediaKeepsDocumentSuccessful(t *testing.T) {
	tests := []struct {
		name       string
		withImages bool
		wantImages int
	}{
		{"images disabled", false, 0},
		{"images enabled", true, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			installLogger(t)
			in := t.TempDir()
			path := filepath.Join(in, "doc.docx")
			writeDocxWithCorruptMedia(t, path)

			pool := &Pool{Converter: convert.NewNative(), Audit: audit.New()}
			imagesDir := filepath.Join(t.TempDir(), "images")
			if tt.withImages {
				pool.ImagesDir = imagesDir
			}

			results, failed := pool.Run(context.Background(), []string{path})
			require.Empty(t, failed)
			require.Len(t, results, 1)
			assert.Empty(t, results[0].Warnings)
			assert.Equal(t, tt.wantImages, results[0].ImagesExtracted)

			entries := pool.Audit.Entries()
			require.Len(t, entries, 1)
			assert.Equal(t, types.StatusSuccess, entries[0].Status)

			if tt.withImages {
				assert.FileExists(t, filepath.Join(imagesDir, "doc_img_001.png"))
				assert.NoFileExists(t, filepath.Join(imagesDir, "doc_img_000.png"))
			}
		})
	}
}

func TestPool_FailureMessageUsesBaseName(t *testing.T) {
	installLogger(t)
	in := t.TempDir()
	path := filepath.Join(in, "gone.txt")

	pool := &Pool{Converter: convert.NewNative(), Audit: audit.New()}
	results, failed := pool.Run(context.Background(), []string{path})
	assert.Empty(t, results)
	assert.Equal(t, []string{"gone.txt"}, failed)

	entries := pool.Audit.Entries()
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].Error)
	assert.Contains(t, *entries[0].Error, "gone.txt")
	assert.NotContains(t, *entries[0].Error, in)
}

func TestFailureMessage(t *testing.T) {
	job := types.Job{Path: "/data/in/report.pdf"}
	err := fmt.Errorf("open /data/in/report.pdf: permission denied")
	assert.Equal(t, "open report.pdf: permission denied", failureMessage(job, err))
	assert.Equal(t, "boom", failureMessage(types.Job{Path: "report.pdf"}, errors.New("boom")))
}
