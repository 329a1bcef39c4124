package shape

import (
	"encoding/json"

	"github.com/go-gl/mathgl/mgl64"
)

// Record is the flat JSON form of a Shape, compatible with saved
// model-data.json documents. For Freeform shapes H is the extrusion height.
type Record struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Type          string     `json:"type"`
	L             *float64   `json:"l,omitempty"`
	W             *float64   `json:"w,omitempty"`
	H             float64    `json:"h"`
	R             *float64   `json:"r,omitempty"`
	CurveSegments *int       `json:"curveSegments,omitempty"`
	Commands      []Command  `json:"commands,omitempty"`
	Position      mgl64.Vec3 `json:"position"`
	Rotation      mgl64.Vec3 `json:"rotation"`
	Selected      bool       `json:"selected"`
	Ghost         bool       `json:"ghost"`
}

// ToRecord converts a Shape to its flat record.
func (s Shape) ToRecord() Record {
	r := Record{
		ID:       s.ID,
		Name:     s.Name,
		Type:     string(s.Kind),
		Position: s.Position,
		Rotation: s.Rotation,
		Selected: s.Selected,
		Ghost:    s.Ghost,
	}

	switch s.Kind {
	case KindBox:
		if s.Box != nil {
			l, w := s.Box.Length, s.Box.Width
			r.L, r.W = &l, &w
			r.H = s.Box.Height
		}
	case KindCylinder:
		if s.Cylinder != nil {
			radius, segments := s.Cylinder.Radius, s.Cylinder.CurveSegments
			r.R, r.CurveSegments = &radius, &segments
			r.H = s.Cylinder.Height
		}
	case KindFreeform:
		if s.Freeform != nil {
			r.Commands = append([]Command(nil), s.Freeform.Commands...)
			if r.Commands == nil {
				r.Commands = []Command{}
			}
			r.H = s.Freeform.ExtrudeHeight
		}
	}

	return r
}

// ToShape converts a record back into a Shape. Unknown types keep their
// type string as Kind and carry no variant.
func (r Record) ToShape() Shape {
	s := Shape{
		ID:       r.ID,
		Name:     r.Name,
		Kind:     Kind(r.Type),
		Position: r.Position,
		Rotation: r.Rotation,
		Selected: r.Selected,
		Ghost:    r.Ghost,
	}

	switch s.Kind {
	case KindBox:
		s.Box = &Box{Length: deref(r.L), Width: deref(r.W), Height: r.H}
	case KindCylinder:
		segments := DefaultCurveSegments
		if r.CurveSegments != nil {
			segments = *r.CurveSegments
		}
		s.Cylinder = &Cylinder{Radius: deref(r.R), Height: r.H, CurveSegments: segments}
	case KindFreeform:
		s.Freeform = &Freeform{
			Commands:      append([]Command(nil), r.Commands...),
			ExtrudeHeight: r.H,
		}
	}

	return s
}

// MarshalJSON encodes the shape as a flat record.
func (s Shape) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.ToRecord())
}

// UnmarshalJSON decodes a flat record.
func (s *Shape) UnmarshalJSON(data []byte) error {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	*s = r.ToShape()
	return nil
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
