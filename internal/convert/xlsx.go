// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/pdiddy/docdeck/internal/logging"
	"github.com/pdiddy/docdeck/pkg/types"
)

// XLSXConverter renders every worksheet as a Markdown table. Each sheet
// counts as one page.
type XLSXConverter struct{}

// Convert implements Converter.
func (XLSXConverter) Convert(ctx context.Context, path string) (Document, error) {
	log := logging.Named("convert.xlsx")
	name := fileName(path)

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, types.NewError(types.KindConversion, "opening "+name, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	var (
		b    strings.Builder
		pics []Picture
	)
	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			log.WarnContext(ctx, fmt.Sprintf("%s: sheet %q unreadable: %v", name, sheet, err))
			continue
		}
		rows = trimEmptyRows(rows)

		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "## %s\n\n", sheet)
		if len(rows) == 0 {
			b.WriteString("_Empty sheet._\n")
		} else {
			b.WriteString(MarkdownTable(rows))
		}

		pics = append(pics, sheetPictures(f, sheet)...)
	}

	if len(sheets) == 0 {
		log.WarnContext(ctx, fmt.Sprintf("%s: workbook has no sheets", name))
	}
	return NewDocument(b.String(), len(sheets), pics), nil
}

// sheetPictures copies the pictures anchored on sheet out of the workbook.
// Pictures that cannot be read are kept as placeholders that fail to
// decode, so the image extractor reports and skips them.
func sheetPictures(f *excelize.File, sheet string) []Picture {
	cells, err := f.GetPictureCells(sheet)
	if err != nil {
		return []Picture{unreadablePicture("pictures on sheet "+sheet, err)}
	}
	var pics []Picture
	for _, cell := range cells {
		found, err := f.GetPictures(sheet, cell)
		if err != nil {
			pics = append(pics, unreadablePicture(sheet+"!"+cell, err))
			continue
		}
		for i, p := range found {
			pics = append(pics, EncodedPicture{
				Name: fmt.Sprintf("%s!%s#%d%s", sheet, cell, i+1, p.Extension),
				Data: p.File,
			})
		}
	}
	return pics
}

// MarkdownTable renders rows as a pipe table with the first row as header.
// Short rows are padded and pipes inside cells are escaped.
func MarkdownTable(rows [][]string) string {
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	if width == 0 {
		return ""
	}

	var b strings.Builder
	writeRow := func(r []string) {
		b.WriteString("|")
		for i := range width {
			cell := ""
			if i < len(r) {
				cell = escapeCell(r[i])
			}
			b.WriteString(" " + cell + " |")
		}
		b.WriteString("\n")
	}

	writeRow(rows[0])
	b.WriteString("|" + strings.Repeat(" --- |", width) + "\n")
	for _, r := range rows[1:] {
		writeRow(r)
	}
	return b.String()
}

func escapeCell(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\r\n", "<br>")
	return strings.ReplaceAll(s, "\n", "<br>")
}

func trimEmptyRows(rows [][]string) [][]string {
	end := len(rows)
	for end > 0 && isBlankRow(rows[end-1]) {
		end--
	}
	return rows[:end]
}

func isBlankRow(r []string) bool {
	for _, c := range r {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
