package stl

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/require"

	"github.com/minimalcad/mcad/internal/shape"
)

func unitBox() shape.Shape {
	return shape.Shape{ID: "b", Kind: shape.KindBox, Box: &shape.Box{Length: 1, Width: 1, Height: 1}}
}

func TestExport_Empty(t *testing.T) {
	out, err := Export(nil, Options{})
	require.NoError(t, err)
	require.Equal(t, "solid exported_model\nendsolid exported_model\n", out)

	out, err = Export([]shape.Shape{}, Options{Name: "part"})
	require.NoError(t, err)
	require.Equal(t, "solid part\nendsolid part\n", out)
}

func TestMesh_UnitBoxNormalsAxisAligned(t *testing.T) {
	tris, err := Mesh(unitBox(), Options{})
	require.NoError(t, err)
	require.Len(t, tris, 12)

	for _, tri := range tris {
		nonZero := 0
		for k := 0; k < 3; k++ {
			c := tri.Normal[k]
			switch {
			case math.Abs(c) < 1e-12:
			case math.Abs(math.Abs(c)-1) < 1e-12:
				nonZero++
			default:
				t.Fatalf("normal %v is not axis aligned", tri.Normal)
			}
		}
		require.Equal(t, 1, nonZero, "normal %v", tri.Normal)
	}
}

func TestMesh_UnitConversion(t *testing.T) {
	tris, err := Mesh(unitBox(), Options{})
	require.NoError(t, err)

	lo, hi := Bounds(tris)
	span := hi.Sub(lo)
	for k := 0; k < 3; k++ {
		require.InDelta(t, 10.0, span[k], 1e-9)
	}
	require.InDelta(t, 0.0, lo[2], 1e-9)
}

func TestMesh_NormalsFaceAwayFromCentroid(t *testing.T) {
	shapes := []shape.Shape{
		unitBox(),
		{ID: "c", Kind: shape.KindCylinder, Cylinder: &shape.Cylinder{Radius: 1, Height: 1, CurveSegments: 12}},
		{ID: "f", Kind: shape.KindFreeform, Freeform: &shape.Freeform{
			ExtrudeHeight: 1,
			// L-shaped, concave
			Commands: []shape.Command{
				shape.MoveTo(0, 0), shape.LineTo(2, 0), shape.LineTo(2, 1),
				shape.LineTo(1, 1), shape.LineTo(1, 2), shape.LineTo(0, 2),
			},
		}},
	}

	for _, s := range shapes {
		tris, err := Mesh(s, Options{})
		require.NoError(t, err)
		require.NotEmpty(t, tris)

		// Signed volume is positive for a closed, outward-wound mesh.
		var vol float64
		for _, tri := range tris {
			vol += tri.V[0].Dot(tri.V[1].Cross(tri.V[2])) / 6
		}
		require.Greater(t, vol, 0.0, "shape %s", s.ID)
	}
}

func TestMesh_ConcaveCapArea(t *testing.T) {
	s := shape.Shape{ID: "f", Kind: shape.KindFreeform, Freeform: &shape.Freeform{
		ExtrudeHeight: 1,
		Commands: []shape.Command{
			shape.MoveTo(0, 0), shape.LineTo(2, 0), shape.LineTo(2, 1),
			shape.LineTo(1, 1), shape.LineTo(1, 2), shape.LineTo(0, 2),
		},
	}}
	tris, err := Mesh(s, Options{})
	require.NoError(t, err)

	var top float64
	for _, tri := range tris {
		if tri.Normal.ApproxEqualThreshold(mgl64.Vec3{0, 0, 1}, 1e-9) {
			top += tri.V[1].Sub(tri.V[0]).Cross(tri.V[2].Sub(tri.V[0])).Len() / 2
		}
	}
	// 3 cm² in mm²
	require.InDelta(t, 300.0, top, 1e-6)
}

func TestMesh_FlatPlateDropsDegenerateSides(t *testing.T) {
	s := shape.Shape{ID: "p", Kind: shape.KindBox, Box: &shape.Box{Length: 1, Width: 1}}
	tris, err := Mesh(s, Options{})
	require.NoError(t, err)
	require.Len(t, tris, 4)
}

func TestWrite_SkipsGhostsAndUnsupported(t *testing.T) {
	ghost := unitBox()
	ghost.Ghost = true

	var buf bytes.Buffer
	stats, err := Write(&buf, []shape.Shape{
		unitBox(),
		ghost,
		{ID: "x", Kind: "Line"},
	}, Options{})
	require.NoError(t, err)
	require.Equal(t, Stats{Shapes: 1, Skipped: 1, Facets: 12}, stats)

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "solid exported_model\n"))
	require.True(t, strings.HasSuffix(out, "endsolid exported_model\n"))
	require.Equal(t, 12, strings.Count(out, "facet normal"))
	require.Equal(t, 12, strings.Count(out, "endfacet"))
	require.Equal(t, 36, strings.Count(out, "vertex "))
}

func TestWrite_FacetFormat(t *testing.T) {
	out, err := Export([]shape.Shape{unitBox()}, Options{})
	require.NoError(t, err)
	lines := strings.Split(out, "\n")
	require.Equal(t, "solid exported_model", lines[0])
	require.True(t, strings.HasPrefix(lines[1], "  facet normal "))
	require.Equal(t, "    outer loop", lines[2])
	require.True(t, strings.HasPrefix(lines[3], "      vertex "))
	require.Equal(t, "    endloop", lines[6])
	require.Equal(t, "  endfacet", lines[7])

	for _, f := range strings.Fields(strings.TrimPrefix(lines[3], "      vertex ")) {
		dot := strings.IndexByte(f, '.')
		require.Equal(t, 6, len(f)-dot-1, "value %q", f)
	}
	require.NotContains(t, out, "-0.000000")
}

func TestFormat(t *testing.T) {
	require.Equal(t, "0.000000", format(math.Copysign(0, -1)))
	require.Equal(t, "0.000000", format(-1e-9))
	require.Equal(t, "-5.000000", format(-5))
	require.Equal(t, "12.345679", format(12.3456789))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWrite_PropagatesWriterError(t *testing.T) {
	_, err := Write(failingWriter{}, []shape.Shape{unitBox()}, Options{})
	require.Error(t, err)
}
