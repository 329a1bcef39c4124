package project

// Summary is a project's metadata without its shapes or access key.
// Used by list operations and the web index.
type Summary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	NameNorm    string `json:"name_norm"`
	Description string `json:"description,omitempty"`
	Owner       string `json:"owner,omitempty"`
	Public      bool   `json:"public"`
	ShapeCount  int    `json:"shape_count"`
	CreatedAt   int64  `json:"created_at"`
	UpdatedAt   int64  `json:"updated_at"`
	DeletedAt   *int64 `json:"deleted_at,omitempty"`
}

// ToSummary converts a Project to a Summary.
func (p *Project) ToSummary() Summary {
	return Summary{
		ID:          p.ID,
		Name:        p.NameRaw,
		NameNorm:    p.NameNorm,
		Description: p.Description,
		Owner:       p.Owner,
		Public:      p.IsPublic(),
		ShapeCount:  p.ShapeCount,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		DeletedAt:   p.DeletedAt,
	}
}
