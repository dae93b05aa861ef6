package cell

import "fmt"

// Bounds is the integer extent of a cell in the subdivision grid. Max is
// exclusive: a cell at level l has Max[i]-Min[i] == GridSize>>l.
type Bounds struct {
	Min [3]uint32
	Max [3]uint32
}

// Side returns the edge length in grid steps.
func (b Bounds) Side() uint32 {
	return b.Max[0] - b.Min[0]
}

// ContainsPoint reports whether the grid point lies in the half-open bounds.
func (b Bounds) ContainsPoint(x, y, z uint32) bool {
	return x >= b.Min[0] && x < b.Max[0] &&
		y >= b.Min[1] && y < b.Max[1] &&
		z >= b.Min[2] && z < b.Max[2]
}

// ContainsBounds reports whether o lies inside b.
func (b Bounds) ContainsBounds(o Bounds) bool {
	for i := range 3 {
		if o.Min[i] < b.Min[i] || o.Max[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// Intersects reports whether the half-open bounds overlap.
func (b Bounds) Intersects(o Bounds) bool {
	for i := range 3 {
		if b.Min[i] >= o.Max[i] || o.Min[i] >= b.Max[i] {
			return false
		}
	}
	return true
}

// String renders the bounds as "(xmin,ymin,zmin)-(xmax,ymax,zmax)".
func (b Bounds) String() string {
	return fmt.Sprintf("(%d,%d,%d)-(%d,%d,%d)", b.Min[0], b.Min[1], b.Min[2], b.Max[0], b.Max[1], b.Max[2])
}

// SideAt returns the edge length in grid steps of a cell at the given level.
func SideAt(level int) uint32 {
	return uint32(GridSize >> level)
}

// GridBounds returns the integer grid extent covered by a.
func (a Address) GridBounds() Bounds {
	var b Bounds
	l := a.Level()
	for i := 1; i <= l; i++ {
		d := a.Digit(i)
		side := SideAt(i)
		if d&1 != 0 {
			b.Min[0] += side
		}
		if d&2 != 0 {
			b.Min[1] += side
		}
		if d&4 != 0 {
			b.Min[2] += side
		}
	}
	side := SideAt(l)
	for i := range 3 {
		b.Max[i] = b.Min[i] + side
	}
	return b
}

// FromGrid returns the address at the given level of the cell holding the
// grid point (x, y, z). Coordinates must be below GridSize.
func FromGrid(x, y, z uint32, level int) (Address, error) {
	if level < 0 || level > MaxLevel {
		return 0, fmt.Errorf("%w: level %d", ErrMaxLevel, level)
	}
	if x >= GridSize || y >= GridSize || z >= GridSize {
		return 0, fmt.Errorf("%w: grid point (%d,%d,%d) outside grid", ErrInvalidAddress, x, y, z)
	}
	a := Root
	for i := 1; i <= level; i++ {
		bit := uint(MaxLevel - i)
		k := (x>>bit)&1 | ((y>>bit)&1)<<1 | ((z>>bit)&1)<<2
		a = a.Child(int(k))
	}
	return a, nil
}
