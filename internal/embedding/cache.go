package embedding

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/zeebo/blake3"
	_ "modernc.org/sqlite"
)

// CachedEmbedder wraps another Embedder with a content-hash cache in SQLite.
// Identical text under the same model and dimension is embedded once.
type CachedEmbedder struct {
	inner Embedder
	model string
	db    *sql.DB
}

// NewCachedEmbedder opens (or creates) the cache database at dbPath.
func NewCachedEmbedder(inner Embedder, model, dbPath string) (*CachedEmbedder, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)")
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	_, err = db.Exec(`
	CREATE TABLE IF NOT EXISTS embed_cache (
		hash       TEXT PRIMARY KEY,
		model      TEXT NOT NULL,
		dims       INTEGER NOT NULL,
		vec        BLOB NOT NULL,
		created_at TEXT NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}
	return &CachedEmbedder{inner: inner, model: model, db: db}, nil
}

// ContentHash returns the cache key for text under model at dims. A dims of 0
// means the provider's native size.
func ContentHash(model string, dims int, text string) string {
	sum := blake3.Sum256([]byte(model + "\x00" + strconv.Itoa(dims) + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	hash := ContentHash(c.model, c.inner.Dims(), text)

	var blob []byte
	err := c.db.QueryRowContext(ctx, `SELECT vec FROM embed_cache WHERE hash = ?`, hash).Scan(&blob)
	switch {
	case err == nil:
		if v := BytesToFloat32(blob); len(v) > 0 {
			return v, nil
		}
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("cache lookup: %w", err)
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	// A failed cache write only costs a future re-embed.
	c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO embed_cache (hash, model, dims, vec, created_at) VALUES (?, ?, ?, ?, ?)`,
		hash, c.model, len(vec), Float32ToBytes(vec), time.Now().UTC().Format(time.RFC3339))

	return vec, nil
}

func (c *CachedEmbedder) Dims() int { return c.inner.Dims() }

// Len returns the number of cached vectors.
func (c *CachedEmbedder) Len(ctx context.Context) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embed_cache`).Scan(&n)
	return n, err
}

// Close closes the cache database.
func (c *CachedEmbedder) Close() error {
	return c.db.Close()
}
