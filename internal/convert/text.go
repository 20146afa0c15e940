// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/docdeck/internal/logging"
	"github.com/pdiddy/docdeck/pkg/types"
)

// TextConverter passes plain text through as Markdown. Invalid UTF-8 is
// replaced and reported.
type TextConverter struct{}

// Convert implements Converter.
func (TextConverter) Convert(ctx context.Context, path string) (Document, error) {
	log := logging.Named("convert.text")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewError(types.KindConversion, "reading "+fileName(path), err)
	}

	body := string(data)
	if !utf8.Valid(data) {
		log.WarnContext(ctx, fmt.Sprintf("%s: invalid UTF-8 sequences replaced", fileName(path)))
		body = strings.ToValidUTF8(body, "\uFFFD")
	}
	body = strings.TrimPrefix(body, "\ufeff")
	body = strings.ReplaceAll(body, "\r\n", "\n")

	if strings.TrimSpace(body) == "" {
		log.WarnContext(ctx, fmt.Sprintf("%s: file contains no text", fileName(path)))
	}
	return NewDocument(body, 0, nil), nil
}
