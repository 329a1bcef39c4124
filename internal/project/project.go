// Package project defines saved projects: named, optionally private
// snapshots of a shape document.
package project

import (
	"crypto/subtle"

	"github.com/minimalcad/mcad/internal/errors"
	"github.com/minimalcad/mcad/internal/shape"
)

// Project is a named, saved copy of a shape document.
type Project struct {
	// ID is a ULID that uniquely identifies this project
	ID string

	// NameRaw is the name as provided by the user
	NameRaw string

	// NameNorm is the normalized name (lowercased, trimmed, collapsed spaces)
	NameNorm string

	// Description is optional markdown shown on the project page
	Description string

	// Owner identifies who saved the project
	Owner string

	// AccessKey protects a private project. Empty means public.
	AccessKey string

	// Shapes is the saved document. Populated only when loading.
	Shapes []shape.Shape

	// ShapeCount is the number of saved shapes
	ShapeCount int

	// CreatedAt is the Unix timestamp when the project was first saved
	CreatedAt int64

	// UpdatedAt is the Unix timestamp of the last save
	UpdatedAt int64

	// DeletedAt is the Unix timestamp for soft delete (nullable)
	DeletedAt *int64
}

// IsPublic reports whether the project can be opened without a key.
func (p *Project) IsPublic() bool {
	return p.AccessKey == ""
}

// Authorize checks key against a private project's access key.
func (p *Project) Authorize(key string) error {
	if p.IsPublic() {
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(p.AccessKey), []byte(key)) != 1 {
		return errors.NewAccessDenied(p.ID)
	}
	return nil
}
