package document

import (
	"fmt"

	"github.com/minimalcad/mcad/internal/errors"
	"github.com/minimalcad/mcad/internal/shape"
)

// Tx is a working copy of the document handed to Store.Apply. Reads return
// deep copies; writes take effect only if Apply persists them.
type Tx struct {
	shapes []shape.Shape
	dirty  bool
}

func (tx *Tx) indexOf(id string, ghost bool) int {
	for i := range tx.shapes {
		if tx.shapes[i].ID == id && tx.shapes[i].Ghost == ghost {
			return i
		}
	}
	return -1
}

// List returns every shape, ghosts included.
func (tx *Tx) List() []shape.Shape {
	return shape.CloneAll(tx.shapes)
}

// Canonical returns the non-ghost shapes.
func (tx *Tx) Canonical() []shape.Shape {
	out := make([]shape.Shape, 0, len(tx.shapes))
	for _, s := range tx.shapes {
		if !s.Ghost {
			out = append(out, s.Clone())
		}
	}
	return out
}

// Get returns the non-ghost shape with id.
func (tx *Tx) Get(id string) (shape.Shape, bool) {
	if i := tx.indexOf(id, false); i >= 0 {
		return tx.shapes[i].Clone(), true
	}
	return shape.Shape{}, false
}

// GhostOf returns the ghost paired with id.
func (tx *Tx) GhostOf(id string) (shape.Shape, bool) {
	if i := tx.indexOf(id, true); i >= 0 {
		return tx.shapes[i].Clone(), true
	}
	return shape.Shape{}, false
}

// FindSelected returns the first selected non-ghost shape.
func (tx *Tx) FindSelected() (shape.Shape, bool) {
	for _, s := range tx.shapes {
		if s.Selected && !s.Ghost {
			return s.Clone(), true
		}
	}
	return shape.Shape{}, false
}

// Upsert validates sh and stores it over the non-ghost with the same ID, or
// appends it. A selected shape takes the selection from all others.
func (tx *Tx) Upsert(sh shape.Shape) error {
	if sh.Ghost {
		return errors.NewInvalidRequest("ghost shapes are managed by the edit session")
	}
	if err := sh.Validate(); err != nil {
		return err
	}
	sh = sh.Clone()
	sh.Normalize()

	if sh.Selected {
		tx.deselectAll()
	}
	if i := tx.indexOf(sh.ID, false); i >= 0 {
		tx.shapes[i] = sh
	} else {
		tx.shapes = append(tx.shapes, sh)
	}
	tx.dirty = true
	return nil
}

// Select marks id as the only selected shape.
func (tx *Tx) Select(id string) error {
	i := tx.indexOf(id, false)
	if i < 0 {
		return errors.NewNotFound(id)
	}
	for j := range tx.shapes {
		want := j == i
		if tx.shapes[j].Selected != want {
			tx.shapes[j].Selected = want
			tx.dirty = true
		}
	}
	return nil
}

// CreateGhost appends a frozen, unselected copy of the non-ghost id and
// reports whether it did.
func (tx *Tx) CreateGhost(id string) bool {
	if tx.indexOf(id, true) >= 0 {
		return false
	}
	i := tx.indexOf(id, false)
	if i < 0 {
		return false
	}
	g := tx.shapes[i].Clone()
	g.Ghost = true
	g.Selected = false
	tx.shapes = append(tx.shapes, g)
	tx.dirty = true
	return true
}

// DiscardGhosts removes every ghost.
func (tx *Tx) DiscardGhosts() {
	kept := tx.shapes[:0]
	for _, s := range tx.shapes {
		if s.Ghost {
			tx.dirty = true
			continue
		}
		kept = append(kept, s)
	}
	tx.shapes = kept
}

// DiscardGhost removes the ghost paired with id, if any.
func (tx *Tx) DiscardGhost(id string) {
	if i := tx.indexOf(id, true); i >= 0 {
		tx.shapes = append(tx.shapes[:i], tx.shapes[i+1:]...)
		tx.dirty = true
	}
}

// DeselectAll clears selection on every shape.
func (tx *Tx) DeselectAll() {
	tx.deselectAll()
}

func (tx *Tx) deselectAll() {
	for i := range tx.shapes {
		if tx.shapes[i].Selected {
			tx.shapes[i].Selected = false
			tx.dirty = true
		}
	}
}

// Delete removes the non-ghost shape with id and reports whether it existed.
// Ghosts of id are left in place.
func (tx *Tx) Delete(id string) bool {
	i := tx.indexOf(id, false)
	if i < 0 {
		return false
	}
	tx.shapes = append(tx.shapes[:i], tx.shapes[i+1:]...)
	tx.dirty = true
	return true
}

// Replace swaps in shapes as the whole document. Every shape is validated
// first; ghosts are dropped and selection cleared. IDs must be unique.
func (tx *Tx) Replace(shapes []shape.Shape) error {
	out := make([]shape.Shape, 0, len(shapes))
	seen := make(map[string]bool, len(shapes))
	for i, s := range shapes {
		if s.Ghost {
			continue
		}
		if err := s.Validate(); err != nil {
			return err
		}
		if seen[s.ID] {
			return errors.NewMalformedInput(fmt.Sprintf("shape %d: duplicate id %q", i, s.ID))
		}
		seen[s.ID] = true

		s = s.Clone()
		s.Selected = false
		s.Normalize()
		out = append(out, s)
	}
	tx.shapes = out
	tx.dirty = true
	return nil
}
