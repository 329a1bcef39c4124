package outline

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/require"

	"github.com/minimalcad/mcad/internal/errors"
	"github.com/minimalcad/mcad/internal/shape"
)

func TestControlPoint_WorkedExample(t *testing.T) {
	c := ControlPoint(mgl64.Vec2{0, 0}, mgl64.Vec2{0.5, 1}, mgl64.Vec2{1, 0})
	require.InDelta(t, 0.5, c[0], 1e-12)
	require.InDelta(t, 2.0, c[1], 1e-12)
}

func TestControlPoint_CurvePassesThroughHandle(t *testing.T) {
	p0, p1, p2 := mgl64.Vec2{-2, 1}, mgl64.Vec2{0.3, 4}, mgl64.Vec2{3, -1}
	mid := Midpoint(p0, ControlPoint(p0, p1, p2), p2)
	require.True(t, mid.ApproxEqualThreshold(p1, 1e-12), "midpoint %v, want %v", mid, p1)
}

func TestBuild_Closure(t *testing.T) {
	tests := []struct {
		name     string
		commands []shape.Command
		loops    int
	}{
		{
			name:     "open triangle",
			commands: []shape.Command{shape.MoveTo(0, 0), shape.LineTo(1, 0), shape.LineTo(1, 1)},
			loops:    1,
		},
		{
			name: "already closed",
			commands: []shape.Command{
				shape.MoveTo(0, 0), shape.LineTo(1, 0), shape.LineTo(1, 1), shape.LineTo(0, 0),
			},
			loops: 1,
		},
		{
			name: "ends on a curve",
			commands: []shape.Command{
				shape.MoveTo(0, 0), shape.LineTo(2, 0), shape.QuadTo(1, 1, 0, 1),
			},
			loops: 1,
		},
		{
			name: "two sub-paths",
			commands: []shape.Command{
				shape.MoveTo(0, 0), shape.LineTo(1, 0), shape.LineTo(1, 1),
				shape.MoveTo(5, 5), shape.LineTo(6, 5), shape.LineTo(6, 6),
			},
			loops: 2,
		},
		{
			name: "new flag opens a sub-path",
			commands: []shape.Command{
				shape.MoveTo(0, 0), shape.LineTo(1, 0), shape.LineTo(1, 1),
				{Op: shape.OpLineTo, X: 5, Y: 5, New: true}, shape.LineTo(6, 5), shape.LineTo(6, 6),
			},
			loops: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loops, err := Build(tt.commands, Options{})
			require.NoError(t, err)
			require.Len(t, loops, tt.loops)
			for _, l := range loops {
				require.Equal(t, l[0], l[len(l)-1])
			}
		})
	}
}

func TestBuild_ClosedInputNotDoubled(t *testing.T) {
	loops, err := Build([]shape.Command{
		shape.MoveTo(0, 0), shape.LineTo(1, 0), shape.LineTo(1, 1), shape.LineTo(0, 0),
	}, Options{})
	require.NoError(t, err)
	require.Len(t, loops[0], 4)
}

func TestBuild_StepBeforeOpenerStartsAtOrigin(t *testing.T) {
	loops, err := Build([]shape.Command{shape.LineTo(1, 0), shape.LineTo(1, 1)}, Options{})
	require.NoError(t, err)
	require.Len(t, loops, 1)
	require.Equal(t, Loop{{0, 0}, {1, 0}, {1, 1}, {0, 0}}, loops[0])
}

func TestBuild_CurveSampling(t *testing.T) {
	loops, err := Build([]shape.Command{
		shape.MoveTo(0, 0), shape.QuadTo(0.5, 1, 1, 0),
	}, Options{CurveSamples: 8})
	require.NoError(t, err)
	require.Len(t, loops, 1)

	// origin + 8 samples + closing point
	l := loops[0]
	require.Len(t, l, 10)
	require.Equal(t, mgl64.Vec2{1, 0}, l[8])

	// the midpoint sample lands on the handle
	require.InDelta(t, 0.5, l[4][0], 1e-12)
	require.InDelta(t, 1.0, l[4][1], 1e-12)
}

func TestBuild_UnknownCommand(t *testing.T) {
	_, err := Build([]shape.Command{shape.MoveTo(0, 0), {Op: "arcTo", X: 1}}, Options{})
	require.Error(t, err)
	require.True(t, errors.Is(err, errors.ErrMalformedInput))
}

func TestBuild_Empty(t *testing.T) {
	loops, err := Build(nil, Options{})
	require.NoError(t, err)
	require.Empty(t, loops)
}

func TestSignedAreaAndOrientation(t *testing.T) {
	cw := Loop{{0, 0}, {0, 1}, {1, 1}, {1, 0}, {0, 0}}
	require.InDelta(t, -1.0, SignedArea(cw), 1e-12)

	pts := CounterClockwise(cw)
	require.Len(t, pts, 4)
	require.InDelta(t, 1.0, SignedArea(pts), 1e-12)
}

func TestDedup(t *testing.T) {
	l := Loop{{0, 0}, {1, 0}, {1, 0}, {1, 1}, {0, 0}}
	require.Equal(t, []mgl64.Vec2{{0, 0}, {1, 0}, {1, 1}}, Dedup(l))
	require.False(t, math.IsNaN(SignedArea(Dedup(Loop{}))))
}
