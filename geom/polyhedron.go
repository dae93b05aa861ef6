package geom

import (
	"fmt"
	"math"
)

type plane struct {
	normal Vec3
	offset float64
}

// distance returns the signed distance of p to the plane, positive outside.
func (pl plane) distance(p Vec3) float64 {
	return pl.normal.Dot(p) - pl.offset
}

// ConvexPolyhedron is a closed convex solid described by its vertices and
// faces. Faces are lists of vertex indices; winding does not matter since the
// outward direction is derived from the centroid.
type ConvexPolyhedron struct {
	vertices []Vec3
	planes   []plane
	axes     []Vec3
	bounds   Box
}

// NewConvexPolyhedron builds a polyhedron from vertices and faces.
func NewConvexPolyhedron(vertices []Vec3, faces [][]int) (*ConvexPolyhedron, error) {
	if len(vertices) < 4 {
		return nil, fmt.Errorf("%w: polyhedron needs at least 4 vertices, got %d", ErrInvalidSolid, len(vertices))
	}
	if len(faces) < 4 {
		return nil, fmt.Errorf("%w: polyhedron needs at least 4 faces, got %d", ErrInvalidSolid, len(faces))
	}

	var centroid Vec3
	for _, v := range vertices {
		centroid = centroid.Add(v)
	}
	centroid = centroid.Scale(1 / float64(len(vertices)))

	p := &ConvexPolyhedron{
		vertices: append([]Vec3(nil), vertices...),
		bounds:   BoundsOf(vertices...),
	}

	type edgeKey struct{ a, b int }
	seen := make(map[edgeKey]struct{})
	var edges []Vec3

	for fi, face := range faces {
		if len(face) < 3 {
			return nil, fmt.Errorf("%w: face %d has %d vertices", ErrInvalidSolid, fi, len(face))
		}
		for _, idx := range face {
			if idx < 0 || idx >= len(vertices) {
				return nil, fmt.Errorf("%w: face %d references vertex %d", ErrInvalidSolid, fi, idx)
			}
		}

		n := newellNormal(vertices, face)
		length := n.Length()
		if length < Epsilon {
			return nil, fmt.Errorf("%w: face %d is degenerate", ErrInvalidSolid, fi)
		}
		n = n.Scale(1 / length)
		origin := vertices[face[0]]
		if centroid.Sub(origin).Dot(n) > 0 {
			n = n.Scale(-1)
		}
		p.planes = append(p.planes, plane{normal: n, offset: n.Dot(origin)})

		for i := range face {
			a, b := face[i], face[(i+1)%len(face)]
			if a > b {
				a, b = b, a
			}
			if _, ok := seen[edgeKey{a, b}]; ok {
				continue
			}
			seen[edgeKey{a, b}] = struct{}{}
			edges = append(edges, vertices[b].Sub(vertices[a]))
		}
	}

	for _, pl := range p.planes {
		p.axes = append(p.axes, pl.normal)
	}
	for _, e := range edges {
		for _, a := range boxAxes {
			p.axes = append(p.axes, a.Cross(e))
		}
	}
	return p, nil
}

// NewCuboid returns the polyhedron occupying box b.
func NewCuboid(b Box) *ConvexPolyhedron {
	c := b.Corners()
	faces := [][]int{
		{0, 2, 6, 4}, // -x
		{1, 3, 7, 5}, // +x
		{0, 1, 5, 4}, // -y
		{2, 3, 7, 6}, // +y
		{0, 1, 3, 2}, // -z
		{4, 5, 7, 6}, // +z
	}
	p, err := NewConvexPolyhedron(c[:], faces)
	if err != nil {
		panic(err)
	}
	return p
}

func newellNormal(vertices []Vec3, face []int) Vec3 {
	var n Vec3
	for i := range face {
		a := vertices[face[i]]
		b := vertices[face[(i+1)%len(face)]]
		n.X += (a.Y - b.Y) * (a.Z + b.Z)
		n.Y += (a.Z - b.Z) * (a.X + b.X)
		n.Z += (a.X - b.X) * (a.Y + b.Y)
	}
	return n
}

// Bounds implements Solid.
func (p *ConvexPolyhedron) Bounds() Box { return p.bounds }

// Intersects implements Solid. Cells that only touch the surface do not
// intersect.
func (p *ConvexPolyhedron) Intersects(cell Box) bool {
	if !p.bounds.Overlaps(cell) {
		return false
	}
	return !satSeparated(p.vertices, cell, p.axes, false)
}

// Contains implements Solid.
func (p *ConvexPolyhedron) Contains(cell Box) bool {
	if !p.bounds.ContainsBox(cell) {
		return false
	}
	corners := cell.Corners()
	for _, pl := range p.planes {
		tol := Epsilon * (1 + math.Abs(pl.offset))
		for _, c := range corners {
			if pl.distance(c) > tol {
				return false
			}
		}
	}
	return true
}
