// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"
)

// Export writes every chunk as a YAML list, in index order.
func (s *Store) Export(ctx context.Context, w io.Writer) error {
	chunks, err := s.query(ctx,
		`SELECT id, source_doc_name, content FROM chunks ORDER BY id`)
	if err != nil {
		return fmt.Errorf("querying for export: %w", err)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(chunks); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return enc.Close()
}
