package shape

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/minimalcad/mcad/internal/errors"
)

// Validate checks a shape for structural problems. Unsupported kinds yield
// an UNSUPPORTED_SHAPE error; everything else yields MALFORMED_INPUT.
func (s Shape) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return errors.NewMalformedInput("shape id is required")
	}
	if !s.Kind.Supported() {
		return errors.NewUnsupportedShape(string(s.Kind))
	}
	if !finiteVec(s.Position) {
		return malformed(s, "position must be finite")
	}
	if !finiteVec(s.Rotation) {
		return malformed(s, "rotation must be finite")
	}

	switch s.Kind {
	case KindBox:
		if s.Box == nil {
			return malformed(s, "box dimensions are missing")
		}
		if err := nonNegative(s, "length", s.Box.Length); err != nil {
			return err
		}
		if err := nonNegative(s, "width", s.Box.Width); err != nil {
			return err
		}
		return nonNegative(s, "height", s.Box.Height)

	case KindCylinder:
		if s.Cylinder == nil {
			return malformed(s, "cylinder dimensions are missing")
		}
		if err := nonNegative(s, "radius", s.Cylinder.Radius); err != nil {
			return err
		}
		return nonNegative(s, "height", s.Cylinder.Height)

	case KindFreeform:
		if s.Freeform == nil {
			return malformed(s, "freeform outline is missing")
		}
		if err := nonNegative(s, "extrude height", s.Freeform.ExtrudeHeight); err != nil {
			return err
		}
		for i, cmd := range s.Freeform.Commands {
			switch cmd.Op {
			case OpMoveTo, OpLineTo:
			case OpQuadraticCurveTo:
				if !finite(cmd.CpX) || !finite(cmd.CpY) {
					return malformed(s, fmt.Sprintf("command %d: control point must be finite", i))
				}
			default:
				return malformed(s, fmt.Sprintf("command %d: unknown type %q", i, cmd.Op))
			}
			if !finite(cmd.X) || !finite(cmd.Y) {
				return malformed(s, fmt.Sprintf("command %d: point must be finite", i))
			}
		}
	}

	return nil
}

func nonNegative(s Shape, field string, v float64) error {
	if !finite(v) || v < 0 {
		return malformed(s, fmt.Sprintf("%s must be a non-negative number", field))
	}
	return nil
}

func malformed(s Shape, msg string) error {
	return errors.NewMalformedInput(fmt.Sprintf("shape %q: %s", s.ID, msg))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finiteVec(v mgl64.Vec3) bool {
	return finite(v[0]) && finite(v[1]) && finite(v[2])
}
