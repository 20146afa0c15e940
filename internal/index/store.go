// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package index chunks the aggregated context file and serves full-text
// retrieval over the chunks from a SQLite FTS5 table.
package index

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/docdeck/internal/logging"
	"github.com/pdiddy/docdeck/pkg/types"
)

// Store manages the context index database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the index database at path and ensures the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS chunks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source_doc_name TEXT NOT NULL,
			content TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source_doc_name)`,
		`CREATE TABLE IF NOT EXISTS build_status (
			context_path TEXT PRIMARY KEY,
			mod_time TEXT
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='chunks_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}
	if ftsExists > 0 {
		return nil
	}

	ftsStatements := []string{
		`CREATE VIRTUAL TABLE chunks_fts USING fts5(content, content=chunks, content_rowid=id)`,
		`CREATE TRIGGER chunks_ai AFTER INSERT ON chunks BEGIN
			INSERT INTO chunks_fts(rowid, content) VALUES (new.id, new.content);
		END`,
		`CREATE TRIGGER chunks_ad AFTER DELETE ON chunks BEGIN
			INSERT INTO chunks_fts(chunks_fts, rowid, content) VALUES('delete', old.id, old.content);
		END`,
		`CREATE TRIGGER chunks_au AFTER UPDATE ON chunks BEGIN
			INSERT INTO chunks_fts(chunks_fts, rowid, content) VALUES('delete', old.id, old.content);
			INSERT INTO chunks_fts(rowid, content) VALUES (new.id, new.content);
		END`,
	}
	for _, stmt := range ftsStatements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("creating FTS infrastructure: %w", err)
		}
	}
	return nil
}

// BuildSummary reports the outcome of a Build call.
type BuildSummary struct {
	Chunks  int
	Sources int
	Skipped bool
}

// Build indexes the context file at contextPath. When the file's
// modification time matches the last build, the existing chunks are kept
// and the summary reports Skipped. Otherwise all chunks are replaced in a
// single transaction.
func (s *Store) Build(ctx context.Context, contextPath string, chunkSize, overlap int) (BuildSummary, error) {
	log := logging.Named("index")

	info, err := os.Stat(contextPath)
	if err != nil {
		return BuildSummary{}, types.NewError(types.KindInputNotFound, "context file "+contextPath, err)
	}
	key, err := filepath.Abs(contextPath)
	if err != nil {
		key = contextPath
	}
	modTime := info.ModTime().UTC().Format(time.RFC3339Nano)

	var stored string
	err = s.db.QueryRowContext(ctx,
		`SELECT mod_time FROM build_status WHERE context_path = ?`, key,
	).Scan(&stored)
	if err == nil && stored == modTime {
		n, err := s.Count(ctx)
		if err != nil {
			return BuildSummary{}, err
		}
		log.InfoContext(ctx, "index up to date", "context", contextPath, "chunks", n)
		return BuildSummary{Chunks: n, Skipped: true}, nil
	}

	data, err := os.ReadFile(contextPath)
	if err != nil {
		return BuildSummary{}, fmt.Errorf("reading %s: %w", contextPath, err)
	}

	chunks := NewSplitter(chunkSize, overlap).Split(string(data))
	tags := TagSources(chunks)

	if err := s.replace(ctx, key, modTime, chunks, tags); err != nil {
		return BuildSummary{}, err
	}

	sources := make(map[string]bool)
	for _, t := range tags {
		sources[t] = true
	}
	log.InfoContext(ctx, "index built", "context", contextPath, "chunks", len(chunks), "sources", len(sources))
	return BuildSummary{Chunks: len(chunks), Sources: len(sources)}, nil
}

func (s *Store) replace(ctx context.Context, key, modTime string, chunks, tags []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return fmt.Errorf("deleting old chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (source_doc_name, content) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, c := range chunks {
		if _, err := stmt.ExecContext(ctx, tags[i], c); err != nil {
			return fmt.Errorf("inserting chunk %d: %w", i, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM build_status`); err != nil {
		return fmt.Errorf("clearing build status: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO build_status (context_path, mod_time) VALUES (?, ?)`,
		key, modTime,
	)
	if err != nil {
		return fmt.Errorf("updating build status: %w", err)
	}

	return tx.Commit()
}

// Count returns the number of indexed chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}
