// Package solid builds renderer-independent prism geometry for shapes.
package solid

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/minimalcad/mcad/internal/outline"
	"github.com/minimalcad/mcad/internal/shape"
)

// Options controls tessellation of curved outlines.
type Options struct {
	CurveSamples int
}

// Solid is a closed polyhedron in local coordinates. Each face lists vertex
// indices counter-clockwise when seen from outside.
type Solid struct {
	Vertices []mgl64.Vec3
	Faces    [][]int

	// Transform maps local coordinates to document space.
	Transform mgl64.Mat4
}

// cylinderBaseline turns a +Y cylinder upright so its axis matches a box's
// height axis.
var cylinderBaseline = mgl64.HomogRotate3DX(math.Pi / 2)

// centered returns the placement of a primitive authored around its volume
// centre: rotation pivots on that centre and an unrotated shape rests its
// base on position.z.
func centered(s shape.Shape, h float64) mgl64.Mat4 {
	return Placement(s.Position.Add(mgl64.Vec3{0, 0, h / 2}), s.Rotation)
}

// Build constructs the solid for s. Unsupported kinds return an
// UNSUPPORTED_SHAPE error and invalid shapes MALFORMED_INPUT.
func Build(s shape.Shape, opts Options) (*Solid, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	sol := &Solid{}

	switch s.Kind {
	case shape.KindBox:
		l, w, h := s.Box.Length/2, s.Box.Width/2, s.Box.Height/2
		sol.addPrism([]mgl64.Vec2{{-l, -w}, {l, -w}, {l, w}, {-l, w}}, -h, h)
		sol.Transform = centered(s, s.Box.Height)

	case shape.KindCylinder:
		n := s.Cylinder.Segments()
		base := make([]mgl64.Vec2, n)
		for i := range base {
			theta := 2 * math.Pi * float64(i) / float64(n)
			base[i] = mgl64.Vec2{s.Cylinder.Radius * math.Cos(theta), s.Cylinder.Radius * math.Sin(theta)}
		}
		h := s.Cylinder.Height / 2
		sol.addPrism(base, -h, h)
		// Re-express along +Y; the baseline rotation stands it back up.
		toY := cylinderBaseline.Inv()
		for i, v := range sol.Vertices {
			sol.Vertices[i] = mgl64.TransformCoordinate(v, toY)
		}
		sol.Transform = centered(s, s.Cylinder.Height).Mul4(cylinderBaseline)

	case shape.KindFreeform:
		sol.Transform = Placement(s.Position, s.Rotation)
		loops, err := outline.Build(s.Freeform.Commands, outline.Options{CurveSamples: opts.CurveSamples})
		if err != nil {
			return nil, err
		}
		for _, l := range loops {
			pts := outline.CounterClockwise(l)
			if len(pts) < 3 || math.Abs(outline.SignedArea(pts)) < outline.Epsilon {
				continue
			}
			sol.addPrism(pts, 0, s.Freeform.ExtrudeHeight)
		}
	}

	return sol, nil
}

// addPrism sweeps a counter-clockwise base polygon from z0 up to z1.
func (s *Solid) addPrism(base []mgl64.Vec2, z0, z1 float64) {
	n := len(base)
	off := len(s.Vertices)

	for _, p := range base {
		s.Vertices = append(s.Vertices, mgl64.Vec3{p[0], p[1], z0})
	}
	for _, p := range base {
		s.Vertices = append(s.Vertices, mgl64.Vec3{p[0], p[1], z1})
	}

	bottom := make([]int, n)
	top := make([]int, n)
	for i := 0; i < n; i++ {
		bottom[i] = off + n - 1 - i
		top[i] = off + n + i
	}
	s.Faces = append(s.Faces, bottom, top)

	for i := 0; i < n; i++ {
		j := (i + 1) % n
		s.Faces = append(s.Faces, []int{off + i, off + j, off + n + j, off + n + i})
	}
}

// Placement returns T(position)·Rx·Ry·Rz with rotation given in degrees.
func Placement(position, rotation mgl64.Vec3) mgl64.Mat4 {
	return mgl64.Translate3D(position[0], position[1], position[2]).
		Mul4(mgl64.HomogRotate3DX(mgl64.DegToRad(rotation[0]))).
		Mul4(mgl64.HomogRotate3DY(mgl64.DegToRad(rotation[1]))).
		Mul4(mgl64.HomogRotate3DZ(mgl64.DegToRad(rotation[2])))
}

// World returns the vertices mapped by m·Transform.
func (s *Solid) World(m mgl64.Mat4) []mgl64.Vec3 {
	full := m.Mul4(s.Transform)
	out := make([]mgl64.Vec3, len(s.Vertices))
	for i, v := range s.Vertices {
		out[i] = mgl64.TransformCoordinate(v, full)
	}
	return out
}
