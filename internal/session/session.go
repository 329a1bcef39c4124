// Package session implements the edit-session protocol over a document
// store. While a shape is being edited its ghost is the frozen pre-edit
// snapshot and the canonical record carries the live preview. Commit keeps
// the canonical record; discard restores it from the ghost.
package session

import (
	"context"

	"github.com/minimalcad/mcad/internal/document"
	"github.com/minimalcad/mcad/internal/errors"
	"github.com/minimalcad/mcad/internal/shape"
)

// State is the session state.
type State string

const (
	Idle    State = "idle"
	Editing State = "editing"
)

// Result reports the outcome of a session operation.
type Result struct {
	State   State        `json:"state"`
	Shape   *shape.Shape `json:"shape,omitempty"`
	Changed bool         `json:"changed"`
}

// Manager drives edit sessions. Its state lives entirely in the store, so a
// manager built over a store that is mid-edit resumes that session.
type Manager struct {
	store *document.Store
}

// New returns a manager over store.
func New(store *document.Store) *Manager {
	return &Manager{store: store}
}

// Store returns the underlying document store.
func (m *Manager) Store() *document.Store {
	return m.store
}

// Current returns the shape being edited, if any.
func (m *Manager) Current() (shape.Shape, bool) {
	sel, ok := m.store.FindSelected()
	if !ok {
		return shape.Shape{}, false
	}
	if _, ok := m.store.GhostOf(sel.ID); !ok {
		return shape.Shape{}, false
	}
	return sel, true
}

// State reports Idle or Editing.
func (m *Manager) State() State {
	if _, ok := m.Current(); ok {
		return Editing
	}
	return Idle
}

func editing(tx *document.Tx) (shape.Shape, bool) {
	sel, ok := tx.FindSelected()
	if !ok {
		return shape.Shape{}, false
	}
	if _, ok := tx.GhostOf(sel.ID); !ok {
		return shape.Shape{}, false
	}
	return sel, true
}

// discard restores the edited shape from its ghost, drops all ghosts and
// clears selection.
func discard(tx *document.Tx) error {
	if cur, ok := editing(tx); ok {
		g, _ := tx.GhostOf(cur.ID)
		g.Ghost = false
		g.Selected = false
		if err := tx.Upsert(g); err != nil {
			return err
		}
	}
	tx.DiscardGhosts()
	tx.DeselectAll()
	return nil
}

// Begin starts editing id. Any other active session is discarded first in
// the same write. Beginning the shape already being edited changes nothing.
func (m *Manager) Begin(ctx context.Context, id string) (*Result, error) {
	res := &Result{}
	err := m.store.Apply(ctx, func(tx *document.Tx) error {
		*res = Result{State: Editing}
		if cur, ok := editing(tx); ok && cur.ID == id {
			res.Shape = &cur
			return nil
		}
		if _, ok := tx.Get(id); !ok {
			return errors.NewNotFound(id)
		}
		if err := discard(tx); err != nil {
			return err
		}
		if err := tx.Select(id); err != nil {
			return err
		}
		tx.CreateGhost(id)
		s, _ := tx.Get(id)
		res.Shape = &s
		res.Changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Preview writes f onto the edited shape's canonical record. Without an
// active session it does nothing.
func (m *Manager) Preview(ctx context.Context, f Fields) (*Result, error) {
	res := &Result{}
	err := m.store.Apply(ctx, func(tx *document.Tx) error {
		*res = Result{State: Idle}
		cur, ok := editing(tx)
		if !ok {
			return nil
		}
		next := f.Derive(cur)
		next.Selected = true
		if err := tx.Upsert(next); err != nil {
			return err
		}
		updated, _ := tx.Get(cur.ID)
		res.State = Editing
		res.Shape = &updated
		res.Changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Commit stores f as the edited shape's final value, drops all ghosts and
// clears selection in one write. Without an active session it does nothing.
func (m *Manager) Commit(ctx context.Context, f Fields) (*Result, error) {
	res := &Result{}
	err := m.store.Apply(ctx, func(tx *document.Tx) error {
		*res = Result{State: Idle}
		cur, ok := editing(tx)
		if !ok {
			return nil
		}
		next := f.Derive(cur)
		next.Selected = false
		if err := tx.Upsert(next); err != nil {
			return err
		}
		tx.DiscardGhosts()
		tx.DeselectAll()
		final, _ := tx.Get(cur.ID)
		res.Shape = &final
		res.Changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Discard ends the session and restores the edited shape to its pre-edit
// value. It is always safe to call.
func (m *Manager) Discard(ctx context.Context) (*Result, error) {
	res := &Result{}
	err := m.store.Apply(ctx, func(tx *document.Tx) error {
		*res = Result{State: Idle}
		cur, ok := editing(tx)
		if err := discard(tx); err != nil {
			return err
		}
		if ok {
			restored, _ := tx.Get(cur.ID)
			res.Shape = &restored
			res.Changed = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Delete removes id and its ghost in one write. confirmed must be true.
// Deleting the shape being edited ends its session.
func (m *Manager) Delete(ctx context.Context, id string, confirmed bool) (*Result, error) {
	if !confirmed {
		return nil, errors.NewConfirmationRequired("delete", id)
	}
	res := &Result{}
	err := m.store.Apply(ctx, func(tx *document.Tx) error {
		*res = Result{State: Idle}
		if !tx.Delete(id) {
			return errors.NewNotFound(id)
		}
		tx.DiscardGhost(id)
		if _, ok := editing(tx); ok {
			res.State = Editing
		}
		res.Changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Create appends a new shape of kind with drawing defaults and begins
// editing it. Any active session is discarded first.
func (m *Manager) Create(ctx context.Context, kind shape.Kind) (*Result, error) {
	s, err := shape.New(kind)
	if err != nil {
		return nil, err
	}
	res := &Result{}
	err = m.store.Apply(ctx, func(tx *document.Tx) error {
		*res = Result{State: Editing, Changed: true}
		if err := discard(tx); err != nil {
			return err
		}
		if err := tx.Upsert(s); err != nil {
			return err
		}
		tx.CreateGhost(s.ID)
		created, _ := tx.Get(s.ID)
		res.Shape = &created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
