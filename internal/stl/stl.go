// Package stl serializes shape documents as ASCII STL meshes.
package stl

import (
	"bufio"
	"bytes"
	"io"
	"math"
	"strconv"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/minimalcad/mcad/internal/errors"
	"github.com/minimalcad/mcad/internal/shape"
	"github.com/minimalcad/mcad/internal/solid"
)

// UnitScale converts document centimeters to STL millimeters.
const UnitScale = 10

// DefaultName is the solid name used when Options.Name is empty.
const DefaultName = "exported_model"

// Options controls export.
type Options struct {
	Name         string
	CurveSamples int
}

// Stats summarizes one export.
type Stats struct {
	Shapes  int `json:"shapes"`
	Skipped int `json:"skipped"`
	Facets  int `json:"facets"`
}

// Mesh builds the millimeter-space triangles for one shape.
func Mesh(s shape.Shape, opts Options) ([]Triangle, error) {
	sol, err := solid.Build(s, solid.Options{CurveSamples: opts.CurveSamples})
	if err != nil {
		return nil, err
	}
	return Triangulate(sol, mgl64.Scale3D(UnitScale, UnitScale, UnitScale)), nil
}

// Write streams the STL for shapes to w. Ghosts and shapes that cannot be
// built are skipped; an empty document yields a header and footer only.
func Write(w io.Writer, shapes []shape.Shape, opts Options) (Stats, error) {
	name := opts.Name
	if name == "" {
		name = DefaultName
	}

	var stats Stats
	bw := bufio.NewWriter(w)
	bw.WriteString("solid " + name + "\n")

	for _, s := range shapes {
		if s.Ghost {
			continue
		}
		tris, err := Mesh(s, opts)
		if err != nil {
			if errors.Is(err, errors.ErrUnsupportedShape) || errors.Is(err, errors.ErrMalformedInput) {
				stats.Skipped++
				continue
			}
			return stats, err
		}
		stats.Shapes++
		for _, t := range tris {
			writeFacet(bw, t)
			stats.Facets++
		}
	}

	bw.WriteString("endsolid " + name + "\n")
	return stats, bw.Flush()
}

// Export returns the STL text for shapes. It fails only when a shape
// fails to mesh for a reason other than being unsupported or malformed.
func Export(shapes []shape.Shape, opts Options) (string, error) {
	var buf bytes.Buffer
	if _, err := Write(&buf, shapes, opts); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func writeFacet(w *bufio.Writer, t Triangle) {
	w.WriteString("  facet normal ")
	writeVec(w, t.Normal)
	w.WriteString("    outer loop\n")
	for _, v := range t.V {
		w.WriteString("      vertex ")
		writeVec(w, v)
	}
	w.WriteString("    endloop\n")
	w.WriteString("  endfacet\n")
}

func writeVec(w *bufio.Writer, v mgl64.Vec3) {
	w.WriteString(format(v[0]))
	w.WriteByte(' ')
	w.WriteString(format(v[1]))
	w.WriteByte(' ')
	w.WriteString(format(v[2]))
	w.WriteByte('\n')
}

// format prints six decimals without a negative zero.
func format(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "0.000000"
	}
	s := strconv.FormatFloat(f, 'f', 6, 64)
	if s == "-0.000000" {
		return "0.000000"
	}
	return s
}
