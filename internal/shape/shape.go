package shape

import (
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// Kind discriminates the Shape union. The values are the record "type"
// strings used by saved documents.
type Kind string

const (
	KindBox      Kind = "Square"
	KindCylinder Kind = "Circle"
	KindFreeform Kind = "Freeform"
)

// Cylinder tessellation limits. A segment count outside (MinCurveSegments, MaxCurveSegments]
// is clamped to MaxCurveSegments.
const (
	MinCurveSegments     = 2
	MaxCurveSegments     = 10000
	DefaultCurveSegments = 100
)

// Supported reports whether the engine can build geometry for k.
func (k Kind) Supported() bool {
	switch k {
	case KindBox, KindCylinder, KindFreeform:
		return true
	}
	return false
}

// ParseKind maps user-facing names ("box", "rectangle", "cylinder", "circle",
// "freeform") and record type strings to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "box", "rectangle", "rect", "square":
		return KindBox, true
	case "cylinder", "circle":
		return KindCylinder, true
	case "freeform", "outline":
		return KindFreeform, true
	}
	return "", false
}

// Shape is one parametric solid in a document. Exactly one of Box, Cylinder
// and Freeform is set, matching Kind. Shapes of an unsupported kind carry
// only the common fields.
type Shape struct {
	// ID is stable and unique among the non-ghost shapes of a document.
	// A ghost shares the ID of the shape it snapshots.
	ID string

	// Name is the display label.
	Name string

	Kind Kind

	// Position is the world-space translation in centimeters.
	Position mgl64.Vec3

	// Rotation holds degrees about local X, Y and Z, applied in that order.
	Rotation mgl64.Vec3

	// Selected marks the shape being edited. Ghosts are never selected.
	Selected bool

	// Ghost marks a transient preview snapshot.
	Ghost bool

	Box      *Box
	Cylinder *Cylinder
	Freeform *Freeform
}

// Box is an axis-aligned rectangular prism. Height may be 0 for a flat plate.
type Box struct {
	Length float64
	Width  float64
	Height float64
}

// Cylinder is a circular prism tessellated into CurveSegments sides.
type Cylinder struct {
	Radius        float64
	Height        float64
	CurveSegments int
}

// Segments returns the tessellation count after clamping.
func (c Cylinder) Segments() int {
	return ClampSegments(c.CurveSegments)
}

// ClampSegments applies the (2, 10000] rule: anything outside is clamped to 10000.
func ClampSegments(n int) int {
	if n > MinCurveSegments && n <= MaxCurveSegments {
		return n
	}
	return MaxCurveSegments
}

// Freeform is an outline built from drawing commands, extruded along local Z.
type Freeform struct {
	Commands      []Command
	ExtrudeHeight float64
}

// Op is a drawing command verb.
type Op string

const (
	OpMoveTo           Op = "moveTo"
	OpLineTo           Op = "lineTo"
	OpQuadraticCurveTo Op = "quadraticCurveTo"
)

// Command is one outline step. For OpQuadraticCurveTo, (CpX, CpY) is the
// on-curve midpoint handle, not the Bézier control point. New starts a
// disjoint sub-path at this step.
type Command struct {
	Op  Op      `json:"type"`
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	CpX float64 `json:"cpX,omitempty"`
	CpY float64 `json:"cpY,omitempty"`
	New bool    `json:"new"`
}

// MoveTo returns a moveTo command.
func MoveTo(x, y float64) Command {
	return Command{Op: OpMoveTo, X: x, Y: y}
}

// LineTo returns a lineTo command.
func LineTo(x, y float64) Command {
	return Command{Op: OpLineTo, X: x, Y: y}
}

// QuadTo returns a quadraticCurveTo command whose curve passes through the
// midpoint handle (cpX, cpY) and ends at (x, y).
func QuadTo(cpX, cpY, x, y float64) Command {
	return Command{Op: OpQuadraticCurveTo, CpX: cpX, CpY: cpY, X: x, Y: y}
}

// Clone returns a deep copy of s.
func (s Shape) Clone() Shape {
	c := s
	if s.Box != nil {
		b := *s.Box
		c.Box = &b
	}
	if s.Cylinder != nil {
		cy := *s.Cylinder
		c.Cylinder = &cy
	}
	if s.Freeform != nil {
		f := *s.Freeform
		if s.Freeform.Commands != nil {
			f.Commands = append([]Command(nil), s.Freeform.Commands...)
		}
		c.Freeform = &f
	}
	return c
}

// Normalize clamps the cylinder tessellation count in place.
func (s *Shape) Normalize() {
	if s.Cylinder != nil {
		s.Cylinder.CurveSegments = s.Cylinder.Segments()
	}
}

// CloneAll deep-copies a slice of shapes.
func CloneAll(shapes []Shape) []Shape {
	if shapes == nil {
		return nil
	}
	out := make([]Shape, len(shapes))
	for i, s := range shapes {
		out[i] = s.Clone()
	}
	return out
}
