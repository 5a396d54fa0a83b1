package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// SQLiteBM25Index scores documents with SQLite FTS5. Content is stored
// pre-tokenized so FTS5 sees the same terms as the other backends; rowid is
// corpus position + 1.
type SQLiteBM25Index struct {
	mu     sync.RWMutex
	db     *sql.DB
	count  int
	closed bool
}

// NewSQLiteBM25Index opens an FTS5 index at path, or in memory when path is empty.
func NewSQLiteBM25Index(path string) (*SQLiteBM25Index, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
		}
		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: an in-memory database lives and dies with it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	schema := `
	CREATE VIRTUAL TABLE IF NOT EXISTS fts_chunks USING fts5(
		content,
		tokenize='unicode61 remove_diacritics 0'
	);`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteBM25Index{db: db}, nil
}

// Build replaces all rows with docs.
func (s *SQLiteBM25Index) Build(ctx context.Context, docs [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("index is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM fts_chunks`); err != nil {
		return fmt.Errorf("failed to clear index: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO fts_chunks(rowid, content) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, tokens := range docs {
		if _, err := stmt.ExecContext(ctx, i+1, strings.Join(tokens, " ")); err != nil {
			return fmt.Errorf("failed to index document %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit index: %w", err)
	}
	s.count = len(docs)
	return nil
}

// ScoreAll runs an OR query over the tokens. FTS5 bm25() is negative with
// lower meaning better, so scores are negated.
func (s *SQLiteBM25Index) ScoreAll(ctx context.Context, query []string) ([]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("index is closed")
	}

	scores := make([]float64, s.count)
	match := ftsMatchExpr(query)
	if match == "" || s.count == 0 {
		return scores, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT rowid, bm25(fts_chunks) FROM fts_chunks WHERE fts_chunks MATCH ?`, match)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rowid int
		var score float64
		if err := rows.Scan(&rowid, &score); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		if rowid >= 1 && rowid <= s.count {
			scores[rowid-1] = -score
		}
	}
	return scores, rows.Err()
}

// ftsMatchExpr quotes each distinct token as an FTS5 string and joins them with OR.
func ftsMatchExpr(tokens []string) string {
	seen := make(map[string]struct{}, len(tokens))
	parts := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		parts = append(parts, `"`+strings.ReplaceAll(t, `"`, `""`)+`"`)
	}
	return strings.Join(parts, " OR ")
}

// Len returns the number of indexed documents.
func (s *SQLiteBM25Index) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Close closes the database.
func (s *SQLiteBM25Index) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

var _ SparseIndex = (*SQLiteBM25Index)(nil)
