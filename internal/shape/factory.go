package shape

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewID generates a new ULID identifier for a shape or project.
func NewID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// New creates a shape of the given kind with the drawing defaults
// (a 1×1 plate, a radius-1 disc, or a right-triangle outline), selected.
func New(kind Kind) (Shape, error) {
	id, err := NewID()
	if err != nil {
		return Shape{}, err
	}

	s := Shape{ID: id, Kind: kind, Selected: true}
	switch kind {
	case KindBox:
		s.Name = "New Rectangle"
		s.Box = &Box{Length: 1, Width: 1, Height: 0}
	case KindCylinder:
		s.Name = "New Circle"
		s.Cylinder = &Cylinder{Radius: 1, Height: 0, CurveSegments: DefaultCurveSegments}
	case KindFreeform:
		s.Name = "New Freeform"
		s.Freeform = &Freeform{
			Commands:      []Command{MoveTo(0, 0), LineTo(1, 0), LineTo(1, 1)},
			ExtrudeHeight: 2,
		}
	default:
		return Shape{}, s.Validate()
	}
	return s, nil
}

// NewRectangle returns a selected 1×1 flat plate.
func NewRectangle() (Shape, error) { return New(KindBox) }

// NewCircle returns a selected radius-1 disc with the default tessellation.
func NewCircle() (Shape, error) { return New(KindCylinder) }

// NewFreeform returns a selected triangular outline extruded by 2.
func NewFreeform() (Shape, error) { return New(KindFreeform) }
