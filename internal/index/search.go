// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/pdiddy/docdeck/pkg/types"
)

// DefaultK is the number of chunks returned when k is not positive.
const DefaultK = 5

// Search returns up to k chunks relevant to query, best match first. Terms
// are OR-ed so a chunk matching any of them qualifies. When nothing
// matches, or the query has no usable terms, the first k chunks of the
// context are returned so callers always get some grounding text.
func (s *Store) Search(ctx context.Context, query string, k int) ([]types.Chunk, error) {
	if k <= 0 {
		k = DefaultK
	}

	if match := MatchExpr(query); match != "" {
		got, err := s.query(ctx,
			`SELECT c.id, c.source_doc_name, c.content
			FROM chunks_fts
			JOIN chunks c ON c.id = chunks_fts.rowid
			WHERE chunks_fts MATCH ?
			ORDER BY chunks_fts.rank
			LIMIT ?`, match, k)
		if err != nil {
			return nil, err
		}
		if len(got) > 0 {
			return got, nil
		}
	}

	return s.query(ctx,
		`SELECT id, source_doc_name, content FROM chunks ORDER BY id LIMIT ?`, k)
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]types.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}
	defer rows.Close()

	var out []types.Chunk
	for rows.Next() {
		var c types.Chunk
		if err := rows.Scan(&c.ID, &c.SourceDocName, &c.Content); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// MatchExpr turns free text into an FTS5 expression: each word becomes a
// quoted term and the terms are joined with OR. Words shorter than two
// characters are dropped, as are duplicates.
func MatchExpr(query string) string {
	words := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	seen := make(map[string]bool, len(words))
	terms := make([]string, 0, len(words))
	for _, w := range words {
		if len([]rune(w)) < 2 || seen[w] {
			continue
		}
		seen[w] = true
		terms = append(terms, `"`+w+`"`)
	}
	return strings.Join(terms, " OR ")
}
