// Package document owns the working shape document: an ordered list of
// shapes plus transient ghost copies, written through to persistence on
// every mutation.
package document

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/minimalcad/mcad/internal/errors"
	"github.com/minimalcad/mcad/internal/shape"
)

// ErrStale is returned by Persistence.Write when the stored document is no
// longer at the revision the caller read.
var ErrStale = stderrors.New("document changed since it was read")

// maxApplyAttempts bounds how often Apply re-reads and re-runs its function
// after losing a write race.
const maxApplyAttempts = 5

// Persistence stores the whole document for one editing context. Every
// successful write bumps a revision so that writers sharing one document
// never overwrite each other's changes unseen.
type Persistence interface {
	// Read returns the document and its revision; 0 means never written.
	Read(ctx context.Context) ([]shape.Shape, int64, error)
	// Write stores shapes if the document is still at revision base and
	// returns the new revision, or fails with ErrStale.
	Write(ctx context.Context, shapes []shape.Shape, base int64) (int64, error)
}

// Store is the single owner of shape state. Callers receive deep copies and
// mutate only through Store methods or Apply.
type Store struct {
	mu      sync.RWMutex
	shapes  []shape.Shape
	rev     int64
	persist Persistence
}

// New returns an empty store over p. Anything p already holds is picked up
// on the first write, when the revision check fails and Apply reloads.
func New(p Persistence) *Store {
	return &Store{persist: p}
}

// Open returns a store loaded from p.
func Open(ctx context.Context, p Persistence) (*Store, error) {
	s := New(p)
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Refresh reloads the document from persistence, picking up writes made
// through other stores.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reload(ctx)
}

func (s *Store) reload(ctx context.Context) error {
	shapes, rev, err := s.persist.Read(ctx)
	if err != nil {
		return errors.NewPersistenceFailed("load document", err)
	}
	for i := range shapes {
		shapes[i].Normalize()
	}
	s.shapes, s.rev = shapes, rev
	return nil
}

// Apply runs fn against a working copy of the document. If fn succeeds and
// changed anything, the copy is persisted with a single write and then
// becomes the document. On any error the document is unchanged.
//
// When another store wrote first, the document is reloaded and fn runs
// again on the fresh copy, so fn must not depend on state from an earlier
// run.
func (s *Store) Apply(ctx context.Context, fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 1; ; attempt++ {
		tx := &Tx{shapes: shape.CloneAll(s.shapes)}
		if err := fn(tx); err != nil {
			return err
		}
		if !tx.dirty {
			return nil
		}

		select {
		case <-ctx.Done():
			return errors.NewCancelled("save document")
		default:
		}

		rev, err := s.persist.Write(ctx, shape.CloneAll(tx.shapes), s.rev)
		if err == nil {
			s.shapes, s.rev = tx.shapes, rev
			return nil
		}
		if !stderrors.Is(err, ErrStale) || attempt == maxApplyAttempts {
			return errors.NewPersistenceFailed("save document", err)
		}
		if err := s.reload(ctx); err != nil {
			return err
		}
	}
}

// List returns every shape, ghosts included, in insertion order.
func (s *Store) List() []shape.Shape {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return shape.CloneAll(s.shapes)
}

// Canonical returns the non-ghost shapes in insertion order.
func (s *Store) Canonical() []shape.Shape {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&Tx{shapes: s.shapes}).Canonical()
}

// Get returns the non-ghost shape with id.
func (s *Store) Get(id string) (shape.Shape, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&Tx{shapes: s.shapes}).Get(id)
}

// GhostOf returns the ghost paired with id.
func (s *Store) GhostOf(id string) (shape.Shape, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&Tx{shapes: s.shapes}).GhostOf(id)
}

// FindSelected returns the first selected non-ghost shape.
func (s *Store) FindSelected() (shape.Shape, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&Tx{shapes: s.shapes}).FindSelected()
}

// Upsert replaces the non-ghost shape with the same ID or appends it.
func (s *Store) Upsert(ctx context.Context, sh shape.Shape) error {
	return s.Apply(ctx, func(tx *Tx) error { return tx.Upsert(sh) })
}

// Select marks id as the only selected shape.
func (s *Store) Select(ctx context.Context, id string) error {
	return s.Apply(ctx, func(tx *Tx) error { return tx.Select(id) })
}

// CreateGhost appends a frozen copy of id. It is a no-op when a ghost
// already exists or id is unknown.
func (s *Store) CreateGhost(ctx context.Context, id string) error {
	return s.Apply(ctx, func(tx *Tx) error {
		tx.CreateGhost(id)
		return nil
	})
}

// DiscardGhosts removes every ghost.
func (s *Store) DiscardGhosts(ctx context.Context) error {
	return s.Apply(ctx, func(tx *Tx) error {
		tx.DiscardGhosts()
		return nil
	})
}

// DeselectAll clears selection on every shape.
func (s *Store) DeselectAll(ctx context.Context) error {
	return s.Apply(ctx, func(tx *Tx) error {
		tx.DeselectAll()
		return nil
	})
}

// Delete removes the non-ghost shape with id along with any ghost paired
// with it, so no ghost is left without its original.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.Apply(ctx, func(tx *Tx) error {
		if !tx.Delete(id) {
			return errors.NewNotFound(id)
		}
		tx.DiscardGhost(id)
		return nil
	})
}

// Replace swaps in a whole new document.
func (s *Store) Replace(ctx context.Context, shapes []shape.Shape) error {
	return s.Apply(ctx, func(tx *Tx) error { return tx.Replace(shapes) })
}
