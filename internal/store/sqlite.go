package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/rcliao/emergent-mind/internal/embedding"
	"github.com/rcliao/emergent-mind/internal/model"
)

// vectorIndex persists one embedding per ordinal position.
type vectorIndex struct {
	db *sql.DB
}

func openIndex(path string) (*vectorIndex, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=synchronous(full)")
	if err != nil {
		return nil, fmt.Errorf("%w: open index: %v", model.ErrStorage, err)
	}

	idx := &vectorIndex{db: db}
	if err := idx.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrate index: %v", model.ErrStorage, err)
	}
	return idx, nil
}

func (x *vectorIndex) migrate() error {
	_, err := x.db.Exec(`
	CREATE TABLE IF NOT EXISTS vectors (
		ordinal INTEGER PRIMARY KEY,
		dims    INTEGER NOT NULL,
		vec     BLOB NOT NULL
	)`)
	return err
}

// load returns vectors in ordinal order, stopping at the first gap.
func (x *vectorIndex) load(ctx context.Context) ([]embedding.Vector, error) {
	rows, err := x.db.QueryContext(ctx, `SELECT ordinal, dims, vec FROM vectors ORDER BY ordinal`)
	if err != nil {
		return nil, fmt.Errorf("%w: read index: %v", model.ErrStorage, err)
	}
	defer rows.Close()

	var vecs []embedding.Vector
	for rows.Next() {
		var ordinal, dims int
		var blob []byte
		if err := rows.Scan(&ordinal, &dims, &blob); err != nil {
			return nil, fmt.Errorf("%w: scan index: %v", model.ErrStorage, err)
		}
		if ordinal != len(vecs) {
			break
		}
		v := embedding.BytesToFloat32(blob)
		if len(v) != dims {
			return nil, fmt.Errorf("%w: index row %d is malformed", model.ErrStorage, ordinal)
		}
		vecs = append(vecs, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read index: %v", model.ErrStorage, err)
	}
	return vecs, nil
}

func (x *vectorIndex) insert(ctx context.Context, ordinal int, v embedding.Vector) error {
	_, err := x.db.ExecContext(ctx,
		`INSERT INTO vectors (ordinal, dims, vec) VALUES (?, ?, ?)`,
		ordinal, len(v), embedding.Float32ToBytes(v))
	if err != nil {
		return fmt.Errorf("%w: insert vector: %v", model.ErrStorage, err)
	}
	return nil
}

// truncate deletes every row at or beyond ordinal n.
func (x *vectorIndex) truncate(ctx context.Context, n int) error {
	if _, err := x.db.ExecContext(ctx, `DELETE FROM vectors WHERE ordinal >= ?`, n); err != nil {
		return fmt.Errorf("%w: truncate index: %v", model.ErrStorage, err)
	}
	return nil
}

func (x *vectorIndex) close() error {
	return x.db.Close()
}
