package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// EmbeddingCache persists embedding vectors in SQLite keyed by model and
// content hash. It only ever short-circuits embedding calls; losing it
// costs a re-embed.
type EmbeddingCache struct {
	mu sync.Mutex
	db *sql.DB
}

// OpenEmbeddingCache opens or creates the cache database at path.
func OpenEmbeddingCache(path string) (*EmbeddingCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedding cache: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	schema := `
	CREATE TABLE IF NOT EXISTS embeddings (
		model TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		dims INTEGER NOT NULL,
		vector BLOB NOT NULL,
		PRIMARY KEY (model, content_hash)
	);`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize embedding cache: %w", err)
	}
	return &EmbeddingCache{db: db}, nil
}

// ContentHash returns the cache key of a text.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Get returns cached vectors for the given hashes. Missing hashes are absent
// from the result.
func (c *EmbeddingCache) Get(ctx context.Context, model string, hashes []string) (map[string][]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string][]float32, len(hashes))
	const chunk = 500
	for start := 0; start < len(hashes); start += chunk {
		end := min(start+chunk, len(hashes))
		batch := hashes[start:end]

		args := make([]any, 0, len(batch)+1)
		args = append(args, model)
		for _, h := range batch {
			args = append(args, h)
		}
		q := fmt.Sprintf(`SELECT content_hash, dims, vector FROM embeddings WHERE model = ? AND content_hash IN (%s)`,
			strings.TrimSuffix(strings.Repeat("?,", len(batch)), ","))

		rows, err := c.db.QueryContext(ctx, q, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to query embedding cache: %w", err)
		}
		for rows.Next() {
			var hash string
			var dims int
			var blob []byte
			if err := rows.Scan(&hash, &dims, &blob); err != nil {
				_ = rows.Close()
				return nil, fmt.Errorf("failed to scan cached embedding: %w", err)
			}
			if v, ok := decodeVector(blob, dims); ok {
				out[hash] = v
			}
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return nil, err
		}
		_ = rows.Close()
	}
	return out, nil
}

// Put upserts vectors keyed by content hash.
func (c *EmbeddingCache) Put(ctx context.Context, model string, vectors map[string][]float32) error {
	if len(vectors) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO embeddings (model, content_hash, dims, vector) VALUES (?, ?, ?, ?)
		ON CONFLICT(model, content_hash) DO UPDATE SET dims = excluded.dims, vector = excluded.vector`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for hash, v := range vectors {
		if _, err := stmt.ExecContext(ctx, model, hash, len(v), encodeVector(v)); err != nil {
			return fmt.Errorf("failed to store embedding: %w", err)
		}
	}
	return tx.Commit()
}

// Count returns the number of cached vectors for model.
func (c *EmbeddingCache) Count(ctx context.Context, model string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embeddings WHERE model = ?`, model).Scan(&n)
	return n, err
}

// Close closes the database.
func (c *EmbeddingCache) Close() error {
	return c.db.Close()
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(blob []byte, dims int) ([]float32, bool) {
	if len(blob) != 4*dims {
		return nil, false
	}
	v := make([]float32, dims)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[4*i:]))
	}
	return v, true
}
