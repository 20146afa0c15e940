// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/pdiddy/docdeck/internal/convert"
	"github.com/pdiddy/docdeck/internal/logging"
	"github.com/pdiddy/docdeck/pkg/types"
)

// ImageName returns the file name of the index-th picture of a document,
// e.g. "report_img_007.png". Indexes count from 0 and follow the picture
// list, so a skipped picture leaves a gap.
func ImageName(stem string, index int) string {
	return fmt.Sprintf("%s_img_%03d.png", stem, index)
}

// ExtractImages writes every decodable picture of doc into dir as PNG and
// returns how many were written. Undecodable pictures and failed writes
// are logged and skipped; only failing to create dir is an error.
func ExtractImages(ctx context.Context, doc convert.Document, stem, dir string) (int, error) {
	log := logging.Named("extract.images")

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, types.NewError(types.KindImageWrite, "creating images directory", err)
	}

	written := 0
	for i, pic := range doc.Pictures() {
		if pic == nil {
			log.WarnContext(ctx, "picture has no data, skipped", "document", stem, "index", i)
			continue
		}
		img, err := pic.Decode()
		if err != nil || img == nil {
			log.WarnContext(ctx, "picture not decodable, skipped", "document", stem, "index", i, "error", err)
			continue
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			log.WarnContext(ctx, "encoding picture failed", "document", stem, "index", i,
				"error", types.NewError(types.KindImageWrite, "encoding PNG", err))
			continue
		}
		path := filepath.Join(dir, ImageName(stem, i))
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			log.WarnContext(ctx, "writing picture failed", "path", path,
				"error", types.NewError(types.KindImageWrite, "writing "+path, err))
			continue
		}
		written++
	}
	return written, nil
}
