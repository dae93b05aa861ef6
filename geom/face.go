package geom

import (
	"fmt"
	"math"
)

// Face is a planar convex polygon. It has no volume, so it never contains a
// cell, and it intersects every cell it touches, boundary included.
type Face struct {
	vertices []Vec3
	normal   Vec3
	bounds   Box
}

// NewFace builds a face from at least three coplanar vertices.
func NewFace(vertices ...Vec3) (*Face, error) {
	if len(vertices) < 3 {
		return nil, fmt.Errorf("%w: face needs at least 3 vertices, got %d", ErrInvalidSolid, len(vertices))
	}
	idx := make([]int, len(vertices))
	for i := range idx {
		idx[i] = i
	}
	n := newellNormal(vertices, idx)
	if n.Length() < Epsilon {
		return nil, fmt.Errorf("%w: face is degenerate", ErrInvalidSolid)
	}
	return &Face{
		vertices: append([]Vec3(nil), vertices...),
		normal:   n.Scale(1 / n.Length()),
		bounds:   BoundsOf(vertices...),
	}, nil
}

// Bounds implements Solid.
func (f *Face) Bounds() Box { return f.bounds }

// Contains implements Solid.
func (f *Face) Contains(Box) bool { return false }

// Intersects implements Solid.
func (f *Face) Intersects(cell Box) bool {
	if !f.bounds.Touches(cell) {
		return false
	}
	for i := 1; i+1 < len(f.vertices); i++ {
		if triangleTouchesBox(f.vertices[0], f.vertices[i], f.vertices[i+1], cell) {
			return true
		}
	}
	return false
}

func triangleTouchesBox(a, b, c Vec3, cell Box) bool {
	tri := []Vec3{a, b, c}
	n := b.Sub(a).Cross(c.Sub(a))
	edges := [3]Vec3{b.Sub(a), c.Sub(b), a.Sub(c)}

	axes := make([]Vec3, 0, 13)
	axes = append(axes, boxAxes[:]...)
	axes = append(axes, n)
	for _, e := range edges {
		for _, ba := range boxAxes {
			axes = append(axes, ba.Cross(e))
		}
	}
	return !satSeparated(tri, cell, axes, true)
}

// Segment is a line segment between two points.
type Segment struct {
	A Vec3
	B Vec3
}

// Bounds implements Solid.
func (s Segment) Bounds() Box { return NewBox(s.A, s.B) }

// Contains implements Solid.
func (s Segment) Contains(Box) bool { return false }

// Intersects implements Solid using a closed slab test.
func (s Segment) Intersects(cell Box) bool {
	d := s.B.Sub(s.A)
	tMin, tMax := 0.0, 1.0
	for axis := range 3 {
		o := s.A.Axis(axis)
		dir := d.Axis(axis)
		lo, hi := cell.Min.Axis(axis), cell.Max.Axis(axis)
		if math.Abs(dir) < Epsilon {
			if o < lo-Epsilon || o > hi+Epsilon {
				return false
			}
			continue
		}
		t1 := (lo - o) / dir
		t2 := (hi - o) / dir
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin = math.Max(tMin, t1)
		tMax = math.Min(tMax, t2)
		if tMin > tMax+Epsilon {
			return false
		}
	}
	return true
}
