package ops

import (
	"github.com/minimalcad/mcad/internal/document"
	"github.com/minimalcad/mcad/internal/errors"
	"github.com/minimalcad/mcad/internal/session"
	"github.com/minimalcad/mcad/internal/shape"
)

// ListShapesInput contains parameters for the ListShapes operation.
type ListShapesInput struct {
	IncludeGhosts bool
}

// ListShapesOutput contains the result of the ListShapes operation.
type ListShapesOutput struct {
	Items   []shape.Shape `json:"items"`
	Count   int           `json:"count"`
	Editing string        `json:"editing,omitempty"` // ID of the shape being edited
}

// ListShapes returns the working document in order.
func ListShapes(store *document.Store, input ListShapesInput) *ListShapesOutput {
	var items []shape.Shape
	if input.IncludeGhosts {
		items = store.List()
	} else {
		items = store.Canonical()
	}

	out := &ListShapesOutput{
		Items: items,
		Count: len(items),
	}
	if cur, ok := session.New(store).Current(); ok {
		out.Editing = cur.ID
	}
	return out
}

// GetShape returns the canonical shape with id.
func GetShape(store *document.Store, id string) (*shape.Shape, error) {
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}
	s, ok := store.Get(id)
	if !ok {
		return nil, errors.NewNotFound(id)
	}
	return &s, nil
}
