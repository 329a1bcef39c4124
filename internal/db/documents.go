package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/minimalcad/mcad/internal/document"
	"github.com/minimalcad/mcad/internal/shape"
)

// Documents persists working shape documents, one row per key. It
// satisfies document.Persistence.
type Documents struct {
	db  *sql.DB
	key string
}

// NewDocuments returns the document row for key.
func NewDocuments(db *sql.DB, key string) *Documents {
	return &Documents{db: db, key: key}
}

// Key returns the document key.
func (d *Documents) Key() string {
	return d.key
}

// Read returns the stored document and its revision. A key that was never
// written reads as an empty document at revision 0.
func (d *Documents) Read(ctx context.Context) ([]shape.Shape, int64, error) {
	var (
		data string
		rev  int64
	)
	err := d.db.QueryRowContext(ctx, `SELECT shapes_json, revision FROM documents WHERE key = ?`, d.key).Scan(&data, &rev)
	if err == sql.ErrNoRows {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read document %q: %w", d.key, err)
	}

	var shapes []shape.Shape
	if err := json.Unmarshal([]byte(data), &shapes); err != nil {
		return nil, 0, fmt.Errorf("decode document %q: %w", d.key, err)
	}
	return shapes, rev, nil
}

// Write replaces the stored document when its revision is still base and
// returns the new revision. Otherwise it fails with document.ErrStale and
// leaves the row alone.
func (d *Documents) Write(ctx context.Context, shapes []shape.Shape, base int64) (int64, error) {
	if shapes == nil {
		shapes = []shape.Shape{}
	}
	data, err := json.Marshal(shapes)
	if err != nil {
		return 0, fmt.Errorf("encode document %q: %w", d.key, err)
	}

	// The WHERE on the upsert makes the revision check and the write one
	// statement, so two processes cannot both pass the check.
	query := `
		INSERT INTO documents (key, shapes_json, shape_count, updated_at, revision)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			shapes_json = excluded.shapes_json,
			shape_count = excluded.shape_count,
			updated_at = excluded.updated_at,
			revision = excluded.revision
		WHERE documents.revision = ?
	`
	next := base + 1
	res, err := d.db.ExecContext(ctx, query, d.key, string(data), len(shapes), time.Now().Unix(), next, base)
	if err != nil {
		return 0, fmt.Errorf("write document %q: %w", d.key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("write document %q: %w", d.key, err)
	}
	if n == 0 {
		return 0, document.ErrStale
	}
	return next, nil
}
