// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/docdeck/internal/logging"
	"github.com/pdiddy/docdeck/pkg/types"
)

// SupportedExtensions lists the source formats picked up by Scan.
var SupportedExtensions = []string{".pdf", ".docx", ".pptx", ".xlsx", ".txt"}

// Scan lists the supported documents directly inside dir, sorted by path.
// Subdirectories are not descended into. Files with other extensions are
// logged and skipped. A missing dir yields an input_not_found error.
func Scan(ctx context.Context, dir string) ([]string, error) {
	log := logging.Named("extract.scan")

	info, err := os.Stat(dir)
	if err != nil {
		return nil, types.NewError(types.KindInputNotFound, "scanning "+dir, err)
	}
	if !info.IsDir() {
		return nil, types.NewError(types.KindInputNotFound, "scanning "+dir, os.ErrNotExist)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, types.NewError(types.KindInputNotFound, "reading "+dir, err)
	}

	supported := make(map[string]bool, len(SupportedExtensions))
	for _, ext := range SupportedExtensions {
		supported[ext] = true
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !supported[ext] {
			log.WarnContext(ctx, "skipping unsupported file", "file", e.Name())
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)

	log.InfoContext(ctx, "scan complete", "dir", dir, "documents", len(paths))
	return paths, nil
}
