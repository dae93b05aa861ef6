package cell

import (
	"fmt"
	"math"

	"github.com/hupe1980/octogo/geom"
)

// Space maps a fixed world box onto the subdivision grid. Each axis is scaled
// independently, so cells are boxes proportional to the world box.
type Space struct {
	world geom.Box
	scale geom.Vec3 // grid steps per world unit
}

// NewSpace returns a space over the given world box.
func NewSpace(world geom.Box) (*Space, error) {
	if world.IsDegenerate() {
		return nil, fmt.Errorf("cell: world box %v has no volume", world)
	}
	size := world.Size()
	return &Space{
		world: world,
		scale: geom.V(GridSize/size.X, GridSize/size.Y, GridSize/size.Z),
	}, nil
}

// World returns the world box.
func (s *Space) World() geom.Box {
	return s.world
}

// CellBox returns the world-space box of a cell.
func (s *Space) CellBox(a Address) geom.Box {
	b := a.GridBounds()
	return geom.Box{
		Min: s.toWorld(b.Min),
		Max: s.toWorld(b.Max),
	}
}

func (s *Space) toWorld(g [3]uint32) geom.Vec3 {
	return geom.V(
		s.world.Min.X+float64(g[0])/s.scale.X,
		s.world.Min.Y+float64(g[1])/s.scale.Y,
		s.world.Min.Z+float64(g[2])/s.scale.Z,
	)
}

// toGrid converts a world point into clamped continuous grid coordinates.
func (s *Space) toGrid(p geom.Vec3) [3]float64 {
	g := [3]float64{
		(p.X - s.world.Min.X) * s.scale.X,
		(p.Y - s.world.Min.Y) * s.scale.Y,
		(p.Z - s.world.Min.Z) * s.scale.Z,
	}
	for i := range g {
		if r := math.Round(g[i]); math.Abs(g[i]-r) <= gridSnap {
			g[i] = r
		}
		g[i] = math.Min(math.Max(g[i], 0), GridSize)
	}
	return g
}

// gridSnap is the distance in grid units below which a coordinate is
// rounded onto the grid line. It absorbs the rounding of world coordinates
// that were themselves computed from cell boxes.
const gridSnap = 1e-6

func gridIndex(v float64) uint32 {
	i := uint32(math.Floor(v))
	if i >= GridSize {
		i = GridSize - 1
	}
	return i
}

// CellAtDepth returns the cell at the given depth holding world point p.
// Points outside the world are clamped onto its boundary; depth is clamped to
// [0, MaxLevel].
func (s *Space) CellAtDepth(p geom.Vec3, depth int) Address {
	depth = clampDepth(depth)
	g := s.toGrid(p)
	a, _ := FromGrid(gridIndex(g[0]), gridIndex(g[1]), gridIndex(g[2]), depth)
	return a
}

// SmallestContaining returns the deepest cell, not deeper than maxDepth,
// whose closed extent contains the whole box b.
func (s *Space) SmallestContaining(b geom.Box, maxDepth int) Address {
	maxDepth = clampDepth(maxDepth)
	lo := s.toGrid(b.Min)
	hi := s.toGrid(b.Max)

	a := Root
	for level := 1; level <= maxDepth; level++ {
		side := float64(SideAt(level))
		last := float64(uint32(1)<<uint(level)) - 1
		var k int
		for axis := range 3 {
			idx := math.Min(math.Floor(lo[axis]/side), last)
			if hi[axis] > (idx+1)*side {
				return a
			}
			if int(idx)&1 != 0 {
				k |= 1 << axis
			}
		}
		a = a.Child(k)
	}
	return a
}

func clampDepth(depth int) int {
	if depth < 0 {
		return 0
	}
	if depth > MaxLevel {
		return MaxLevel
	}
	return depth
}
