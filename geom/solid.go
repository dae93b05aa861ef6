package geom

import "errors"

// ErrInvalidSolid is returned when a solid cannot be constructed from its input.
var ErrInvalidSolid = errors.New("invalid solid")

// Solid is the geometry consumed by the spatial index.
//
// Implementations decide their own tie-break for cells that only share a
// boundary with the solid; the index consumes the answers as given.
type Solid interface {
	// Bounds returns the axis-aligned bounding box.
	Bounds() Box

	// Intersects reports whether the solid and the cell volume share space.
	Intersects(cell Box) bool

	// Contains reports whether the cell volume lies entirely inside the solid.
	Contains(cell Box) bool
}

var (
	_ Solid = Box{}
	_ Solid = (*ConvexPolyhedron)(nil)
	_ Solid = (*Face)(nil)
	_ Solid = Segment{}
)

// separated reports whether two intervals are disjoint. When closed is set,
// intervals that only touch are not separated.
func separated(aMin, aMax, bMin, bMax float64, closed bool) bool {
	if closed {
		return aMax < bMin-Epsilon || bMax < aMin-Epsilon
	}
	return aMax <= bMin+Epsilon || bMax <= aMin+Epsilon
}

// projectPoints returns the interval of points projected onto axis.
func projectPoints(points []Vec3, axis Vec3) (float64, float64) {
	lo := points[0].Dot(axis)
	hi := lo
	for _, p := range points[1:] {
		d := p.Dot(axis)
		if d < lo {
			lo = d
		}
		if d > hi {
			hi = d
		}
	}
	return lo, hi
}

var boxAxes = [3]Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

// satSeparated runs the separating axis test for a convex point set against
// a box over the supplied axes.
func satSeparated(points []Vec3, cell Box, axes []Vec3, closed bool) bool {
	for _, axis := range axes {
		l := axis.Length()
		if l < Epsilon {
			continue
		}
		axis = axis.Scale(1 / l)
		pMin, pMax := projectPoints(points, axis)
		cMin, cMax := cell.project(axis)
		if separated(pMin, pMax, cMin, cMax, closed) {
			return true
		}
	}
	return false
}
