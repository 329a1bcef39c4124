// Package outline turns freeform drawing commands into closed planar loops.
package outline

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/minimalcad/mcad/internal/errors"
	"github.com/minimalcad/mcad/internal/shape"
)

// DefaultCurveSamples is the number of segments a quadratic step is
// flattened into when Options.CurveSamples is unset.
const DefaultCurveSamples = 24

// Epsilon is the distance below which two outline points are the same point.
const Epsilon = 1e-9

// Options controls curve flattening.
type Options struct {
	CurveSamples int
}

func (o Options) samples() int {
	if o.CurveSamples <= 0 {
		return DefaultCurveSamples
	}
	return o.CurveSamples
}

// Loop is one closed sub-path. The last point always equals the first.
type Loop []mgl64.Vec2

// Build interprets commands into closed loops, one per sub-path.
//
// A moveTo step, or any step flagged New, opens a sub-path at its endpoint.
// A drawing step issued before any opener starts a sub-path at the origin,
// the way a canvas path does. Each loop is closed by repeating its first
// point when the last point differs.
func Build(commands []shape.Command, opts Options) ([]Loop, error) {
	n := opts.samples()

	var (
		loops   []Loop
		current Loop
	)
	flush := func() {
		if len(current) == 0 {
			return
		}
		loops = append(loops, closeLoop(current))
		current = nil
	}

	for i, cmd := range commands {
		p := mgl64.Vec2{cmd.X, cmd.Y}

		if cmd.Op == shape.OpMoveTo || cmd.New {
			switch cmd.Op {
			case shape.OpMoveTo, shape.OpLineTo, shape.OpQuadraticCurveTo:
			default:
				return nil, errors.NewMalformedInput(fmt.Sprintf("command %d: unknown type %q", i, cmd.Op))
			}
			flush()
			current = Loop{p}
			continue
		}

		if len(current) == 0 {
			current = Loop{{0, 0}}
		}
		p0 := current[len(current)-1]

		switch cmd.Op {
		case shape.OpLineTo:
			current = append(current, p)
		case shape.OpQuadraticCurveTo:
			c := ControlPoint(p0, mgl64.Vec2{cmd.CpX, cmd.CpY}, p)
			for s := 1; s <= n; s++ {
				t := float64(s) / float64(n)
				current = append(current, mgl64.QuadraticBezierCurve2D(t, p0, c, p))
			}
			// Land exactly on the endpoint.
			current[len(current)-1] = p
		default:
			return nil, errors.NewMalformedInput(fmt.Sprintf("command %d: unknown type %q", i, cmd.Op))
		}
	}
	flush()

	return loops, nil
}

// ControlPoint converts a stored midpoint handle p1 into the quadratic
// Bézier control point for a curve from p0 to p2: C = 2·p1 − ½·(p0 + p2).
func ControlPoint(p0, p1, p2 mgl64.Vec2) mgl64.Vec2 {
	return p1.Mul(2).Sub(p0.Add(p2).Mul(0.5))
}

// Midpoint is the inverse of ControlPoint: the on-curve point at t = ½.
func Midpoint(p0, c, p2 mgl64.Vec2) mgl64.Vec2 {
	return mgl64.QuadraticBezierCurve2D(0.5, p0, c, p2)
}

func closeLoop(l Loop) Loop {
	if len(l) > 0 && !l[len(l)-1].ApproxEqualThreshold(l[0], Epsilon) {
		l = append(l, l[0])
	}
	return l
}

// SignedArea returns the shoelace area of a polygon, closed or not.
// Positive means counter-clockwise.
func SignedArea(pts []mgl64.Vec2) float64 {
	var sum float64
	for i := range pts {
		a, b := pts[i], pts[(i+1)%len(pts)]
		sum += a[0]*b[1] - b[0]*a[1]
	}
	return sum / 2
}

// Dedup returns the distinct vertices of a closed loop: consecutive
// duplicates and the closing repeat are removed.
func Dedup(l Loop) []mgl64.Vec2 {
	out := make([]mgl64.Vec2, 0, len(l))
	for _, p := range l {
		if len(out) > 0 && out[len(out)-1].ApproxEqualThreshold(p, Epsilon) {
			continue
		}
		out = append(out, p)
	}
	for len(out) > 1 && out[len(out)-1].ApproxEqualThreshold(out[0], Epsilon) {
		out = out[:len(out)-1]
	}
	return out
}

// CounterClockwise returns the distinct vertices of l wound counter-clockwise.
func CounterClockwise(l Loop) []mgl64.Vec2 {
	pts := Dedup(l)
	if SignedArea(pts) < 0 {
		for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
			pts[i], pts[j] = pts[j], pts[i]
		}
	}
	return pts
}
