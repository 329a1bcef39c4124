package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/minimalcad/mcad/internal/config"
	"github.com/minimalcad/mcad/internal/db"
	"github.com/minimalcad/mcad/internal/document"
	"github.com/minimalcad/mcad/internal/errors"
	"github.com/minimalcad/mcad/internal/project"
	"github.com/minimalcad/mcad/internal/shape"
)

// SaveProjectInput contains parameters for the SaveProject operation.
type SaveProjectInput struct {
	ID          string // optional; overwrites an existing project
	Name        string // required
	Description string
	Private     bool
	AccessKey   string // required to overwrite a private project
}

// SaveProjectOutput contains the result of the SaveProject operation.
// AccessKey is only returned for private projects.
type SaveProjectOutput struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Public     bool   `json:"public"`
	AccessKey  string `json:"access_key,omitempty"`
	ShapeCount int    `json:"shape_count"`
	UpdatedAt  int64  `json:"updated_at"`
}

// SaveProject stores the working document as a project. Saved shapes have
// ghosts removed and selection cleared. A private project keeps its access
// key across overwrites; a new one gets a fresh key.
func SaveProject(ctx context.Context, database *sql.DB, store *document.Store, cfg *config.Config, input SaveProjectInput) (*SaveProjectOutput, error) {
	name := strings.TrimSpace(input.Name)
	if err := project.Lint(name, input.Description); err != nil {
		return nil, err
	}

	p := &project.Project{
		ID:          strings.TrimSpace(input.ID),
		NameRaw:     name,
		NameNorm:    project.Normalize(name),
		Description: input.Description,
		Shapes:      DocumentSnapshot(store),
	}
	if cfg != nil {
		p.Owner = cfg.Owner
	}

	if p.ID != "" {
		existing, err := db.GetProject(ctx, database, p.ID, false)
		if err != nil {
			return nil, persistenceError(ctx, "load project", err)
		}
		if err := existing.Authorize(input.AccessKey); err != nil {
			return nil, err
		}
		p.CreatedAt = existing.CreatedAt
		if input.Private {
			p.AccessKey = existing.AccessKey
		}
	} else {
		id, err := shape.NewID()
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		p.ID = id
	}

	if input.Private && p.AccessKey == "" {
		p.AccessKey = uuid.NewString()
	}

	if err := db.SaveProject(ctx, database, p); err != nil {
		return nil, persistenceError(ctx, "save project", err)
	}

	return &SaveProjectOutput{
		ID:         p.ID,
		Name:       p.NameRaw,
		Public:     p.IsPublic(),
		AccessKey:  p.AccessKey,
		ShapeCount: p.ShapeCount,
		UpdatedAt:  p.UpdatedAt,
	}, nil
}

// LoadProjectInput contains parameters for the LoadProject operation.
type LoadProjectInput struct {
	ID        string // required
	AccessKey string // required for private projects
}

// LoadProjectOutput contains the result of the LoadProject operation.
type LoadProjectOutput struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ShapeCount int    `json:"shape_count"`
}

// LoadProject replaces the working document with a saved project's shapes.
// On any failure the working document is unchanged.
func LoadProject(ctx context.Context, database *sql.DB, store *document.Store, input LoadProjectInput) (*LoadProjectOutput, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}

	p, err := db.GetProject(ctx, database, id, true)
	if err != nil {
		return nil, persistenceError(ctx, "load project", err)
	}
	if err := p.Authorize(input.AccessKey); err != nil {
		return nil, err
	}

	if err := store.Replace(ctx, p.Shapes); err != nil {
		return nil, err
	}

	return &LoadProjectOutput{
		ID:         p.ID,
		Name:       p.NameRaw,
		ShapeCount: len(store.Canonical()),
	}, nil
}

// ListProjectsInput contains parameters for the ListProjects operation.
type ListProjectsInput struct {
	Mine   bool // list the configured owner's projects instead of public ones
	Limit  int  // default: 20, max: 100
	Offset int
}

// ListProjectsOutput contains the result of the ListProjects operation.
type ListProjectsOutput struct {
	Items      []project.Summary `json:"items"`
	Pagination Pagination        `json:"pagination"`
	Sort       string            `json:"sort"`
}

// ListProjects returns public projects, or the configured owner's projects
// when Mine is set.
func ListProjects(ctx context.Context, database *sql.DB, cfg *config.Config, input ListProjectsInput) (*ListProjectsOutput, error) {
	limit := clampLimit(input.Limit)
	offset := max(input.Offset, 0)

	filter := db.ProjectFilter{Limit: limit, Offset: offset}
	if input.Mine {
		if cfg == nil || cfg.Owner == "" {
			return nil, errors.NewInvalidRequest("owner is not configured")
		}
		owner := cfg.Owner
		filter.Owner = &owner
	}

	summaries, total, err := db.ListProjects(ctx, database, filter)
	if err != nil {
		return nil, persistenceError(ctx, "list projects", err)
	}

	return &ListProjectsOutput{
		Items: summaries,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(summaries) < total,
			Total:   total,
		},
		Sort: "updated_at_desc",
	}, nil
}

// DeleteProjectInput contains parameters for the DeleteProject operation.
type DeleteProjectInput struct {
	ID        string
	AccessKey string
	Confirm   bool
}

// DeleteProjectOutput contains the result of the DeleteProject operation.
type DeleteProjectOutput struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

// DeleteProject soft-deletes a saved project. It requires confirmation and,
// for private projects, the access key.
func DeleteProject(ctx context.Context, database *sql.DB, input DeleteProjectInput) (*DeleteProjectOutput, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}
	if !input.Confirm {
		return nil, errors.NewConfirmationRequired("delete project", id)
	}

	p, err := db.GetProject(ctx, database, id, false)
	if err != nil {
		return nil, persistenceError(ctx, "load project", err)
	}
	if err := p.Authorize(input.AccessKey); err != nil {
		return nil, err
	}
	if err := db.SoftDeleteProject(ctx, database, id); err != nil {
		return nil, persistenceError(ctx, "delete project", err)
	}

	return &DeleteProjectOutput{Deleted: true, ID: id}, nil
}

// persistenceError passes NotFound and cancellation through and reports
// everything else as a persistence failure.
func persistenceError(ctx context.Context, op string, err error) error {
	if errors.Is(err, errors.ErrNotFound) {
		return err
	}
	if ctx.Err() != nil {
		return errors.NewCancelled(op)
	}
	return errors.NewPersistenceFailed(op, err)
}
