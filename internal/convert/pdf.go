// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/pdiddy/docdeck/internal/logging"
	"github.com/pdiddy/docdeck/pkg/types"
)

// PDFConverter extracts text page by page with ledongthuc/pdf and uses
// pdfcpu for the page count and embedded images.
type PDFConverter struct{}

// Convert implements Converter.
func (PDFConverter) Convert(ctx context.Context, path string) (Document, error) {
	log := logging.Named("convert.pdf")
	name := fileName(path)

	pages, err := pdfPageTexts(path)
	if err != nil {
		return nil, types.NewError(types.KindConversion, "reading PDF "+name, err)
	}

	var empty []int
	for i, text := range pages {
		if strings.TrimSpace(text) == "" {
			empty = append(empty, i+1)
		}
	}
	if len(empty) > 0 {
		log.WarnContext(ctx, fmt.Sprintf("%s: no extractable text on page(s) %s", name, joinInts(empty)))
	}

	count, err := api.PageCountFile(path)
	if err != nil {
		log.DebugContext(ctx, "pdfcpu page count failed, using text reader count", "file", name, "error", err)
		count = len(pages)
	}

	return &pdfDocument{
		document: document{markdown: PageMarkdown(pages), pages: count},
		path:     path,
	}, nil
}

// pdfDocument reads its embedded images only when they are asked for.
type pdfDocument struct {
	document
	path string
}

// Pictures implements Document. A failure to enumerate the images yields
// a single picture reporting it; an image that cannot be read fails only
// its own decode.
func (d *pdfDocument) Pictures() (pics []Picture) {
	defer func() {
		if p := recover(); p != nil {
			pics = append(pics, unreadablePicture("embedded images", fmt.Errorf("malformed PDF: %v", p)))
		}
	}()
	pics, err := pdfPictures(d.path)
	if err != nil {
		return append(pics, unreadablePicture("embedded images", err))
	}
	return pics
}

// PageMarkdown joins page texts, introducing each page with a
// "<!-- page N -->" marker.
func PageMarkdown(pages []string) string {
	var b strings.Builder
	for i, text := range pages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "<!-- page %d -->\n\n", i+1)
		b.WriteString(strings.TrimSpace(text))
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	return b.String()
}

func pdfPageTexts(path string) (texts []string, err error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// The text reader panics on some malformed content streams.
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("malformed PDF: %v", p)
		}
	}()

	n := r.NumPage()
	texts = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			texts = append(texts, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			texts = append(texts, "")
			continue
		}
		texts = append(texts, text)
	}
	return texts, nil
}

func pdfPictures(path string) ([]Picture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	perPage, err := api.ExtractImagesRaw(f, nil, conf)
	if err != nil {
		return nil, err
	}

	var pics []Picture
	for _, images := range perPage {
		objNrs := make([]int, 0, len(images))
		for nr := range images {
			objNrs = append(objNrs, nr)
		}
		sort.Ints(objNrs)
		for _, nr := range objNrs {
			img := images[nr]
			picName := fmt.Sprintf("page %d object %d (%s)", img.PageNr, nr, img.FileType)
			data, err := io.ReadAll(img)
			if err != nil {
				pics = append(pics, unreadablePicture(picName, err))
				continue
			}
			pics = append(pics, EncodedPicture{Name: picName, Data: data})
		}
	}
	return pics, nil
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ", ")
}
