package spatialmath

import (
	"github.com/golang/geo/r3"
)

// minTriangleArea is the area below which a triangle has no usable normal.
const minTriangleArea = 1e-15

// Triangle is a single face of a mesh.
type Triangle struct {
	p0 r3.Vector
	p1 r3.Vector
	p2 r3.Vector

	normal r3.Vector
	area   float64
}

// NewTriangle returns the triangle with corners p0, p1 and p2. The normal follows the
// right hand rule over the corner order and is zero for a degenerate triangle.
func NewTriangle(p0, p1, p2 r3.Vector) *Triangle {
	cross := p1.Sub(p0).Cross(p2.Sub(p0))
	t := &Triangle{p0: p0, p1: p1, p2: p2, area: cross.Norm() / 2}
	if t.area >= minTriangleArea {
		t.normal = cross.Normalize()
	}
	return t
}

// Points returns the three corners in order.
func (t *Triangle) Points() []r3.Vector {
	return []r3.Vector{t.p0, t.p1, t.p2}
}

// Normal returns the unit face normal, or the zero vector when the triangle is degenerate.
func (t *Triangle) Normal() r3.Vector {
	return t.normal
}

// Area returns the surface area.
func (t *Triangle) Area() float64 {
	return t.area
}

// PointAt maps r1 and r2, each in [0, 1], onto the triangle as p0 + r1·(p1-p0) + r2·(p2-p0).
// Pairs outside the triangle (r1+r2 > 1) are folded back in, so uniform r1 and r2 give
// points uniformly distributed over the surface.
func (t *Triangle) PointAt(r1, r2 float64) r3.Vector {
	if r1+r2 > 1 {
		r1, r2 = 1-r1, 1-r2
	}
	return t.p0.Add(t.p1.Sub(t.p0).Mul(r1)).Add(t.p2.Sub(t.p0).Mul(r2))
}
