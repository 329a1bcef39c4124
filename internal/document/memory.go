package document

import (
	"context"
	"sync"

	"github.com/minimalcad/mcad/internal/shape"
)

// Memory is an in-process Persistence for tests and throwaway sessions.
type Memory struct {
	mu     sync.Mutex
	shapes []shape.Shape
	rev    int64
	writes int
}

// NewMemory returns a Memory seeded with shapes. A non-empty seed counts as
// one revision.
func NewMemory(shapes ...shape.Shape) *Memory {
	m := &Memory{shapes: shape.CloneAll(shapes)}
	if len(shapes) > 0 {
		m.rev = 1
	}
	return m
}

// Read returns a copy of the stored document and its revision.
func (m *Memory) Read(ctx context.Context) ([]shape.Shape, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return shape.CloneAll(m.shapes), m.rev, nil
}

// Write replaces the stored document if it is still at base.
func (m *Memory) Write(ctx context.Context, shapes []shape.Shape, base int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if base != m.rev {
		return 0, ErrStale
	}
	m.shapes = shape.CloneAll(shapes)
	m.rev++
	m.writes++
	return m.rev, nil
}

// Writes reports how many writes have succeeded.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
