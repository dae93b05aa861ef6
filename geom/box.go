package geom

import "math"

// Box is an axis-aligned box given by its minimum and maximum corners.
//
// A Box is also a Solid: a volumetric box intersects another box only when
// their interiors overlap, while a flat box (zero extent along an axis) uses
// closed intervals so that it still registers in the cells it lies on.
type Box struct {
	Min Vec3
	Max Vec3
}

// NewBox returns the box spanned by two arbitrary corners.
func NewBox(a, b Vec3) Box {
	return Box{Min: a.Min(b), Max: a.Max(b)}
}

// BoundsOf returns the bounding box of the given points.
func BoundsOf(points ...Vec3) Box {
	if len(points) == 0 {
		return Box{}
	}
	b := Box{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		b.Min = b.Min.Min(p)
		b.Max = b.Max.Max(p)
	}
	return b
}

// Size returns the extent along each axis.
func (b Box) Size() Vec3 { return b.Max.Sub(b.Min) }

// Center returns the center point.
func (b Box) Center() Vec3 { return b.Min.Add(b.Max).Scale(0.5) }

// HalfExtents returns half the extent along each axis.
func (b Box) HalfExtents() Vec3 { return b.Size().Scale(0.5) }

// Volume returns the box volume.
func (b Box) Volume() float64 {
	s := b.Size()
	return s.X * s.Y * s.Z
}

// IsDegenerate reports whether the box has zero extent along any axis.
func (b Box) IsDegenerate() bool {
	s := b.Size()
	return s.X <= 0 || s.Y <= 0 || s.Z <= 0
}

// Corners returns the eight corners, indexed like octants (x | y<<1 | z<<2).
func (b Box) Corners() [8]Vec3 {
	var c [8]Vec3
	for i := range 8 {
		p := b.Min
		if i&1 != 0 {
			p.X = b.Max.X
		}
		if i&2 != 0 {
			p.Y = b.Max.Y
		}
		if i&4 != 0 {
			p.Z = b.Max.Z
		}
		c[i] = p
	}
	return c
}

// Union returns the smallest box enclosing both boxes.
func (b Box) Union(o Box) Box {
	return Box{Min: b.Min.Min(o.Min), Max: b.Max.Max(o.Max)}
}

// ContainsPoint reports whether p lies inside or on the box, within the
// relative tolerance of le.
func (b Box) ContainsPoint(p Vec3) bool {
	return le(b.Min.X, p.X) && le(p.X, b.Max.X) &&
		le(b.Min.Y, p.Y) && le(p.Y, b.Max.Y) &&
		le(b.Min.Z, p.Z) && le(p.Z, b.Max.Z)
}

// ContainsBox reports whether o lies inside or on b.
func (b Box) ContainsBox(o Box) bool {
	return b.ContainsPoint(o.Min) && b.ContainsPoint(o.Max)
}

// Touches reports whether the closed boxes share at least one point.
func (b Box) Touches(o Box) bool {
	return le(b.Min.X, o.Max.X) && le(o.Min.X, b.Max.X) &&
		le(b.Min.Y, o.Max.Y) && le(o.Min.Y, b.Max.Y) &&
		le(b.Min.Z, o.Max.Z) && le(o.Min.Z, b.Max.Z)
}

// Overlaps reports whether the box interiors overlap by more than the
// tolerance of le.
func (b Box) Overlaps(o Box) bool {
	return !le(o.Max.X, b.Min.X) && !le(b.Max.X, o.Min.X) &&
		!le(o.Max.Y, b.Min.Y) && !le(b.Max.Y, o.Min.Y) &&
		!le(o.Max.Z, b.Min.Z) && !le(b.Max.Z, o.Min.Z)
}

// le reports a <= b, treating values within Epsilon relative to their
// magnitude as equal. Cell boxes are derived from the world box by
// arithmetic, so their faces are only accurate to a few ulps.
func le(a, b float64) bool {
	return a <= b+Epsilon*(1+math.Max(math.Abs(a), math.Abs(b)))
}

// Bounds implements Solid.
func (b Box) Bounds() Box { return b }

// Intersects implements Solid.
func (b Box) Intersects(cell Box) bool {
	if b.IsDegenerate() {
		return b.Touches(cell)
	}
	return b.Overlaps(cell)
}

// Contains implements Solid. It reports whether cell lies entirely inside b.
func (b Box) Contains(cell Box) bool {
	return b.ContainsBox(cell)
}

// project returns the interval of the box projected onto axis.
func (b Box) project(axis Vec3) (float64, float64) {
	c := b.Center().Dot(axis)
	r := b.HalfExtents().Dot(axis.Abs())
	return c - r, c + r
}
