package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/minimalcad/mcad/internal/errors"
	"github.com/minimalcad/mcad/internal/project"
	"github.com/minimalcad/mcad/internal/shape"
)

// ProjectFilter selects projects for ListProjects.
type ProjectFilter struct {
	// Owner restricts results to one owner's projects, public or private.
	// Nil lists public projects of every owner.
	Owner *string

	Limit  int
	Offset int
}

// SaveProject inserts or overwrites a project and its shapes in one
// transaction. CreatedAt is kept on overwrite; UpdatedAt and ShapeCount are
// set on p.
func SaveProject(ctx context.Context, db *sql.DB, p *project.Project) error {
	now := time.Now().Unix()
	if p.CreatedAt == 0 {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	p.ShapeCount = len(p.Shapes)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO projects (
			id, name_raw, name_norm, description, owner, access_key,
			shape_count, created_at, updated_at, deleted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
		ON CONFLICT(id) DO UPDATE SET
			name_raw = excluded.name_raw,
			name_norm = excluded.name_norm,
			description = excluded.description,
			owner = excluded.owner,
			access_key = excluded.access_key,
			shape_count = excluded.shape_count,
			updated_at = excluded.updated_at
	`
	_, err = tx.ExecContext(ctx, query,
		p.ID, p.NameRaw, p.NameNorm, toNullString(p.Description), toNullString(p.Owner), toNullString(p.AccessKey),
		p.ShapeCount, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM project_shapes WHERE project_id = ?`, p.ID); err != nil {
		return errors.NewInternal(err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO project_shapes (project_id, ordinal, shape_id, shape_type, shape_json)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer stmt.Close()

	for i, s := range p.Shapes {
		data, err := json.Marshal(s)
		if err != nil {
			return errors.NewInternal(err)
		}
		if _, err := stmt.ExecContext(ctx, p.ID, i, s.ID, string(s.Kind), string(data)); err != nil {
			return errors.NewInternal(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetProject retrieves an active project. Shapes are loaded when withShapes
// is true.
func GetProject(ctx context.Context, db *sql.DB, id string, withShapes bool) (*project.Project, error) {
	query := `
		SELECT id, name_raw, name_norm, description, owner, access_key,
			shape_count, created_at, updated_at, deleted_at
		FROM projects
		WHERE id = ? AND deleted_at IS NULL
	`
	p, err := scanProject(db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	if withShapes {
		p.Shapes, err = projectShapes(ctx, db, id)
		if err != nil {
			return nil, err
		}
	}
	return p, nil
}

func projectShapes(ctx context.Context, db *sql.DB, id string) ([]shape.Shape, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT shape_json FROM project_shapes
		WHERE project_id = ?
		ORDER BY ordinal
	`, id)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	shapes := []shape.Shape{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, errors.NewInternal(err)
		}
		var s shape.Shape
		if err := json.Unmarshal([]byte(data), &s); err != nil {
			return nil, errors.NewInternal(fmt.Errorf("decode shape of project %s: %w", id, err))
		}
		shapes = append(shapes, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return shapes, nil
}

// ListProjects returns project summaries, most recently updated first, and
// the total number matching the filter.
func ListProjects(ctx context.Context, db *sql.DB, f ProjectFilter) ([]project.Summary, int, error) {
	where := "deleted_at IS NULL"
	var args []any
	if f.Owner != nil {
		where += " AND owner = ?"
		args = append(args, *f.Owner)
	} else {
		where += " AND access_key IS NULL"
	}

	var total int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM projects WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = -1
	}
	query := `
		SELECT id, name_raw, name_norm, description, owner, access_key,
			shape_count, created_at, updated_at, deleted_at
		FROM projects
		WHERE ` + where + `
		ORDER BY updated_at DESC, id DESC
		LIMIT ? OFFSET ?
	`
	rows, err := db.QueryContext(ctx, query, append(args, limit, f.Offset)...)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	summaries := []project.Summary{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		summaries = append(summaries, p.ToSummary())
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	return summaries, total, nil
}

// SoftDeleteProject marks a project as deleted by setting deleted_at.
func SoftDeleteProject(ctx context.Context, db *sql.DB, id string) error {
	result, err := db.ExecContext(ctx, `
		UPDATE projects
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`, time.Now().Unix(), id)
	if err != nil {
		return errors.NewInternal(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanProject scans a single row into a Project.
func scanProject(row scanner) (*project.Project, error) {
	var (
		p           project.Project
		description sql.NullString
		owner       sql.NullString
		accessKey   sql.NullString
		deletedAt   sql.NullInt64
	)

	err := row.Scan(
		&p.ID, &p.NameRaw, &p.NameNorm, &description, &owner, &accessKey,
		&p.ShapeCount, &p.CreatedAt, &p.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Description = description.String
	p.Owner = owner.String
	p.AccessKey = accessKey.String
	if deletedAt.Valid {
		p.DeletedAt = &deletedAt.Int64
	}
	return &p, nil
}

// toNullString stores empty strings as NULL.
func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
