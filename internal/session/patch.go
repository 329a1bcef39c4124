package session

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/minimalcad/mcad/internal/shape"
)

// Patch is a partial set of form values. Nil fields keep the value they
// overlay.
type Patch struct {
	Name          *string          `json:"name,omitempty"`
	Length        *float64         `json:"length,omitempty"`
	Width         *float64         `json:"width,omitempty"`
	Height        *float64         `json:"height,omitempty"`
	Radius        *float64         `json:"radius,omitempty"`
	CurveSegments *int             `json:"curve_segments,omitempty"`
	Position      *mgl64.Vec3      `json:"position,omitempty"`
	Rotation      *mgl64.Vec3      `json:"rotation,omitempty"`
	Commands      *[]shape.Command `json:"commands,omitempty"`
}

// Over returns f with the set fields of p applied.
func (p Patch) Over(f Fields) Fields {
	if p.Name != nil {
		f.Name = *p.Name
	}
	if p.Length != nil {
		f.Length = *p.Length
	}
	if p.Width != nil {
		f.Width = *p.Width
	}
	if p.Height != nil {
		f.Height = *p.Height
	}
	if p.Radius != nil {
		f.Radius = *p.Radius
	}
	if p.CurveSegments != nil {
		f.CurveSegments = *p.CurveSegments
	}
	if p.Position != nil {
		f.Position = *p.Position
	}
	if p.Rotation != nil {
		f.Rotation = *p.Rotation
	}
	if p.Commands != nil {
		f.Commands = append([]shape.Command(nil), (*p.Commands)...)
	}
	return f
}

// Empty reports whether p sets nothing.
func (p Patch) Empty() bool {
	return p == Patch{}
}

// Fields returns the current form values of the edited shape overlaid with
// p. ok is false when no session is active.
func (m *Manager) Fields(p Patch) (f Fields, ok bool) {
	cur, ok := m.Current()
	if !ok {
		return Fields{}, false
	}
	return p.Over(FieldsFromShape(cur)), true
}
