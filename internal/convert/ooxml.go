// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/docdeck/internal/logging"
	"github.com/pdiddy/docdeck/pkg/types"
)

// maxPartSize bounds how much of a single zip entry is read.
const maxPartSize = 256 << 20

// OOXMLConverter reads Word (.docx) and PowerPoint (.pptx) packages. It
// walks the XML text runs only: paragraphs, heading styles, list markers,
// tables and slide titles. Layout and formatting are discarded.
type OOXMLConverter struct{}

// Convert implements Converter.
func (OOXMLConverter) Convert(ctx context.Context, path string) (Document, error) {
	name := fileName(path)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewError(types.KindConversion, "reading "+name, err)
	}
	// The archive stays in memory so media parts can be read after Convert
	// returns, when the image extractor decodes them.
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, types.NewError(types.KindConversion, "opening "+name, err)
	}

	pkg := ooxmlPackage{files: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		pkg.files[f.Name] = f
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".docx":
		return pkg.docx(ctx, name)
	case ".pptx":
		return pkg.pptx(ctx, name)
	default:
		return nil, types.NewError(types.KindConversion, "converting "+name,
			fmt.Errorf("not an Office Open XML extension: %s", filepath.Ext(path)))
	}
}

type ooxmlPackage struct {
	files map[string]*zip.File
}

func (p ooxmlPackage) read(name string) ([]byte, error) {
	f, ok := p.files[name]
	if !ok {
		return nil, fmt.Errorf("missing part %s", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening part %s: %w", name, err)
	}
	defer rc.Close()
	return io.ReadAll(io.LimitReader(rc, maxPartSize))
}

// media returns the pictures stored under prefix, ordered by part name.
// Parts are read when a picture is decoded.
func (p ooxmlPackage) media(prefix string) []Picture {
	var names []string
	for name := range p.files {
		if strings.HasPrefix(name, prefix) && !strings.HasSuffix(name, "/") {
			names = append(names, name)
		}
	}
	sortNatural(names)

	pics := make([]Picture, 0, len(names))
	for _, name := range names {
		pics = append(pics, EncodedPicture{
			Name: name,
			Load: func() ([]byte, error) { return p.read(name) },
		})
	}
	return pics
}

func (p ooxmlPackage) docx(ctx context.Context, name string) (Document, error) {
	log := logging.Named("convert.docx")

	body, err := p.read("word/document.xml")
	if err != nil {
		return nil, types.NewError(types.KindConversion, "reading "+name, err)
	}
	md, err := docxMarkdown(body)
	if err != nil {
		return nil, types.NewError(types.KindConversion, "parsing "+name, err)
	}
	if strings.TrimSpace(md) == "" {
		log.WarnContext(ctx, fmt.Sprintf("%s: document contains no text", name))
	}

	pages := 0
	if app, err := p.read("docProps/app.xml"); err == nil {
		var props struct {
			Pages int `xml:"Pages"`
		}
		if xml.Unmarshal(app, &props) == nil {
			pages = props.Pages
		}
	}

	return NewDocument(md, pages, p.media("word/media/")), nil
}

var slidePart = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

func (p ooxmlPackage) pptx(ctx context.Context, name string) (Document, error) {
	log := logging.Named("convert.pptx")

	type slideRef struct {
		n    int
		part string
	}
	var slides []slideRef
	for part := range p.files {
		if m := slidePart.FindStringSubmatch(part); m != nil {
			n, _ := strconv.Atoi(m[1])
			slides = append(slides, slideRef{n: n, part: part})
		}
	}
	if len(slides) == 0 {
		return nil, types.NewError(types.KindConversion, "reading "+name, errors.New("presentation has no slides"))
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].n < slides[j].n })

	var b strings.Builder
	for i, s := range slides {
		data, err := p.read(s.part)
		if err != nil {
			log.WarnContext(ctx, fmt.Sprintf("%s: slide %d skipped: %v", name, i+1, err))
			continue
		}
		title, body, err := slideText(data)
		if err != nil {
			log.WarnContext(ctx, fmt.Sprintf("%s: slide %d skipped: %v", name, i+1, err))
			continue
		}
		if title == "" && len(body) == 0 {
			log.WarnContext(ctx, fmt.Sprintf("%s: slide %d has no text", name, i+1))
		}

		if b.Len() > 0 {
			b.WriteString("\n")
		}
		if title != "" {
			fmt.Fprintf(&b, "## Slide %d: %s\n\n", i+1, title)
		} else {
			fmt.Fprintf(&b, "## Slide %d\n\n", i+1)
		}
		for _, line := range body {
			fmt.Fprintf(&b, "- %s\n", line)
		}
	}

	return NewDocument(b.String(), len(slides), p.media("ppt/media/")), nil
}

// docxMarkdown renders the body of word/document.xml.
func docxMarkdown(data []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var (
		out      strings.Builder
		para     strings.Builder
		style    string
		listItem bool
		inRun    bool
		inText   bool

		tableDepth int
		row        []string
		rows       [][]string
		cell       []string
	)

	emit := func(block string) {
		if out.Len() > 0 {
			out.WriteString("\n")
		}
		out.WriteString(block)
		out.WriteString("\n")
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				para.Reset()
				style, listItem = "", false
			case "pStyle":
				style = attr(t, "val")
			case "numPr":
				listItem = true
			case "r":
				inRun = true
			case "t":
				inText = true
			case "tab":
				if inRun {
					para.WriteString("\t")
				}
			case "br", "cr":
				if inRun {
					para.WriteString("\n")
				}
			case "tbl":
				tableDepth++
				if tableDepth == 1 {
					rows = nil
				}
			case "tr":
				row = nil
			case "tc":
				cell = nil
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "r":
				inRun = false
			case "t":
				inText = false
			case "p":
				text := strings.TrimSpace(para.String())
				if text == "" {
					continue
				}
				if tableDepth > 0 {
					cell = append(cell, text)
					continue
				}
				emit(paragraphMarkdown(text, style, listItem))
			case "tc":
				row = append(row, strings.Join(cell, " "))
			case "tr":
				if tableDepth == 1 {
					rows = append(rows, row)
				}
			case "tbl":
				tableDepth--
				if tableDepth == 0 && len(rows) > 0 {
					emit(strings.TrimRight(MarkdownTable(rows), "\n"))
				}
			}
		}
	}
	return out.String(), nil
}

func paragraphMarkdown(text, style string, listItem bool) string {
	if level := headingLevel(style); level > 0 {
		return strings.Repeat("#", level) + " " + strings.ReplaceAll(text, "\n", " ")
	}
	if listItem {
		return "- " + text
	}
	return text
}

// headingLevel maps Word style ids such as "Heading2" or "Title" to a
// Markdown heading level, or 0 for body styles.
func headingLevel(style string) int {
	s := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	switch {
	case s == "title":
		return 1
	case s == "subtitle":
		return 2
	case strings.HasPrefix(s, "heading"):
		n, err := strconv.Atoi(strings.TrimPrefix(s, "heading"))
		if err != nil || n < 1 {
			return 0
		}
		return min(n, 6)
	}
	return 0
}

// slideText returns the title placeholder text and the remaining paragraphs
// of one slide part.
func slideText(data []byte) (string, []string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var (
		title   []string
		body    []string
		para    strings.Builder
		inText  bool
		isTitle bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "sp":
				isTitle = false
			case "ph":
				typ := attr(t, "type")
				isTitle = typ == "title" || typ == "ctrTitle"
			case "p":
				para.Reset()
			case "t":
				inText = true
			case "br":
				para.WriteString(" ")
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				text := strings.Join(strings.Fields(para.String()), " ")
				if text == "" {
					continue
				}
				if isTitle {
					title = append(title, text)
				} else {
					body = append(body, text)
				}
			case "sp":
				isTitle = false
			}
		}
	}
	return strings.Join(title, " "), body, nil
}

func attr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

var digits = regexp.MustCompile(`\d+`)

// sortNatural orders names so "image2.png" precedes "image10.png".
func sortNatural(names []string) {
	key := func(s string) string {
		return digits.ReplaceAllStringFunc(s, func(d string) string {
			if len(d) >= 12 {
				return d
			}
			return strings.Repeat("0", 12-len(d)) + d
		})
	}
	sort.Slice(names, func(i, j int) bool { return key(names[i]) < key(names[j]) })
}
