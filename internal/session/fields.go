package session

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/minimalcad/mcad/internal/shape"
)

// Fields is the full set of editor form values. Only the fields that apply
// to the edited shape's kind are read: Length/Width/Height for boxes,
// Radius/Height/CurveSegments for cylinders and Commands/Height for
// freeform outlines, where Height is the extrusion.
type Fields struct {
	Name          string          `json:"name"`
	Length        float64         `json:"length"`
	Width         float64         `json:"width"`
	Height        float64         `json:"height"`
	Radius        float64         `json:"radius"`
	CurveSegments int             `json:"curve_segments"`
	Position      mgl64.Vec3      `json:"position"`
	Rotation      mgl64.Vec3      `json:"rotation"`
	Commands      []shape.Command `json:"commands,omitempty"`
}

// FieldsFromShape returns the form values that describe s.
func FieldsFromShape(s shape.Shape) Fields {
	f := Fields{
		Name:     s.Name,
		Position: s.Position,
		Rotation: s.Rotation,
	}
	switch s.Kind {
	case shape.KindBox:
		if s.Box != nil {
			f.Length, f.Width, f.Height = s.Box.Length, s.Box.Width, s.Box.Height
		}
	case shape.KindCylinder:
		if s.Cylinder != nil {
			f.Radius, f.Height, f.CurveSegments = s.Cylinder.Radius, s.Cylinder.Height, s.Cylinder.CurveSegments
		}
	case shape.KindFreeform:
		if s.Freeform != nil {
			f.Commands = append([]shape.Command(nil), s.Freeform.Commands...)
			f.Height = s.Freeform.ExtrudeHeight
		}
	}
	return f
}

// Derive rebuilds the full descriptor for s from f. Identity, kind and
// flags come from s; everything else comes from f.
func (f Fields) Derive(s shape.Shape) shape.Shape {
	out := shape.Shape{
		ID:       s.ID,
		Name:     f.Name,
		Kind:     s.Kind,
		Position: f.Position,
		Rotation: f.Rotation,
		Selected: s.Selected,
		Ghost:    s.Ghost,
	}
	switch s.Kind {
	case shape.KindBox:
		out.Box = &shape.Box{Length: f.Length, Width: f.Width, Height: f.Height}
	case shape.KindCylinder:
		out.Cylinder = &shape.Cylinder{Radius: f.Radius, Height: f.Height, CurveSegments: f.CurveSegments}
	case shape.KindFreeform:
		out.Freeform = &shape.Freeform{
			Commands:      append([]shape.Command(nil), f.Commands...),
			ExtrudeHeight: f.Height,
		}
	}
	return out
}
