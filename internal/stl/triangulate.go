package stl

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/minimalcad/mcad/internal/solid"
)

// degenerate is the squared cross-product length below which a triangle
// has no usable area.
const degenerate = 1e-18

// Triangle is one output facet. V is wound counter-clockwise about Normal.
type Triangle struct {
	Normal mgl64.Vec3
	V      [3]mgl64.Vec3
}

// Triangulate maps every face of sol through m·Transform and splits it into
// triangles. Zero-area faces and triangles are dropped.
func Triangulate(sol *solid.Solid, m mgl64.Mat4) []Triangle {
	world := sol.World(m)

	var out []Triangle
	for _, face := range sol.Faces {
		pts := make([]mgl64.Vec3, len(face))
		for i, idx := range face {
			pts[i] = world[idx]
		}
		for _, tri := range earClip(pts) {
			a, b, c := pts[tri[0]], pts[tri[1]], pts[tri[2]]
			n := b.Sub(a).Cross(c.Sub(a))
			if n.Dot(n) < degenerate {
				continue
			}
			out = append(out, Triangle{Normal: n.Normalize(), V: [3]mgl64.Vec3{a, b, c}})
		}
	}
	return out
}

// newell returns the unnormalized polygon normal.
func newell(pts []mgl64.Vec3) mgl64.Vec3 {
	var n mgl64.Vec3
	for i := range pts {
		a, b := pts[i], pts[(i+1)%len(pts)]
		n[0] += (a[1] - b[1]) * (a[2] + b[2])
		n[1] += (a[2] - b[2]) * (a[0] + b[0])
		n[2] += (a[0] - b[0]) * (a[1] + b[1])
	}
	return n
}

// earClip triangulates a planar polygon, returning index triples in the
// polygon's own winding.
func earClip(pts []mgl64.Vec3) [][3]int {
	if len(pts) < 3 {
		return nil
	}
	if len(pts) == 3 {
		return [][3]int{{0, 1, 2}}
	}

	n := newell(pts)
	if n.Dot(n) < degenerate {
		return nil
	}

	// Project onto the plane most facing the normal, mirrored when needed so
	// the polygon reads counter-clockwise.
	k := 0
	for i := 1; i < 3; i++ {
		if math.Abs(n[i]) > math.Abs(n[k]) {
			k = i
		}
	}
	u, v := (k+1)%3, (k+2)%3
	flip := 1.0
	if n[k] < 0 {
		flip = -1
	}
	p2 := make([]mgl64.Vec2, len(pts))
	for i, p := range pts {
		p2[i] = mgl64.Vec2{p[u], flip * p[v]}
	}

	if convex(p2) {
		tris := make([][3]int, 0, len(pts)-2)
		for i := 1; i+1 < len(pts); i++ {
			tris = append(tris, [3]int{0, i, i + 1})
		}
		return tris
	}

	idx := make([]int, len(pts))
	for i := range idx {
		idx[i] = i
	}

	var tris [][3]int
	for len(idx) > 3 {
		found := false
		for i := range idx {
			prev, cur, next := idx[(i+len(idx)-1)%len(idx)], idx[i], idx[(i+1)%len(idx)]
			if cross2(p2[prev], p2[cur], p2[next]) <= 0 {
				continue
			}
			if anyInside(p2, idx, prev, cur, next) {
				continue
			}
			tris = append(tris, [3]int{prev, cur, next})
			idx = append(idx[:i], idx[i+1:]...)
			found = true
			break
		}
		if !found {
			// Self-intersecting or collinear remainder: fan what is left.
			for i := 1; i+1 < len(idx); i++ {
				tris = append(tris, [3]int{idx[0], idx[i], idx[i+1]})
			}
			return tris
		}
	}
	return append(tris, [3]int{idx[0], idx[1], idx[2]})
}

func cross2(a, b, c mgl64.Vec2) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func convex(p []mgl64.Vec2) bool {
	for i := range p {
		if cross2(p[i], p[(i+1)%len(p)], p[(i+2)%len(p)]) < 0 {
			return false
		}
	}
	return true
}

func anyInside(p []mgl64.Vec2, idx []int, a, b, c int) bool {
	for _, j := range idx {
		if j == a || j == b || j == c {
			continue
		}
		if cross2(p[a], p[b], p[j]) >= 0 && cross2(p[b], p[c], p[j]) >= 0 && cross2(p[c], p[a], p[j]) >= 0 {
			return true
		}
	}
	return false
}

// Bounds returns the axis-aligned extent of tris. Both vectors are zero
// when tris is empty.
func Bounds(tris []Triangle) (lo, hi mgl64.Vec3) {
	if len(tris) == 0 {
		return lo, hi
	}
	lo, hi = tris[0].V[0], tris[0].V[0]
	for _, t := range tris {
		for _, p := range t.V {
			for k := 0; k < 3; k++ {
				lo[k] = math.Min(lo[k], p[k])
				hi[k] = math.Max(hi[k], p[k])
			}
		}
	}
	return lo, hi
}
