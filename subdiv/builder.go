// Package subdiv computes the octree cells a solid occupies.
//
// A build starts at the smallest cell containing the solid's bounding box and
// descends by octant. Each candidate cell first goes through a cheap
// bounding-box rejection and then through the solid's own predicates:
//
//   - contained in the solid: emitted as an enclosed leaf, no further descent
//   - not intersecting: pruned
//   - partially covered: descended, or emitted as a boundary leaf at MaxDepth
//
// The result is a Tree whose leaves are flattened by CollectCellIDs.
package subdiv

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/octogo/cell"
	"github.com/hupe1980/octogo/geom"
)

// Builder subdivides solids inside a fixed space down to a maximum depth.
// A Builder holds no per-build state and is safe for concurrent use.
type Builder struct {
	space    *cell.Space
	maxDepth int
}

// NewBuilder returns a builder. maxDepth is clamped to [0, cell.MaxLevel].
func NewBuilder(space *cell.Space, maxDepth int) *Builder {
	if maxDepth < 0 {
		maxDepth = 0
	}
	if maxDepth > cell.MaxLevel {
		maxDepth = cell.MaxLevel
	}
	return &Builder{space: space, maxDepth: maxDepth}
}

// MaxDepth returns the configured maximum depth.
func (b *Builder) MaxDepth() int {
	return b.maxDepth
}

// Space returns the space cells are computed in.
func (b *Builder) Space() *cell.Space {
	return b.space
}

// Build computes the occupancy tree of a solid.
func (b *Builder) Build(solid geom.Solid) *Tree {
	bounds := solid.Bounds()
	root := b.space.SmallestContaining(bounds, b.maxDepth)

	t := &Tree{Root: &Node{Address: root}}
	b.subdivide(t.Root, solid, bounds)

	if !t.Root.hasLeaves() {
		// Degenerate or fully pruned: keep the containing cell as an approximation.
		t.Root.Kind = Boundary
		t.Root.Children = nil
	}
	return t
}

func (b *Builder) subdivide(n *Node, solid geom.Solid, bounds geom.Box) {
	box := b.space.CellBox(n.Address)

	if !box.Touches(bounds) {
		n.Kind = Empty
		return
	}
	if solid.Contains(box) {
		n.Kind = Enclosed
		return
	}
	if !solid.Intersects(box) {
		n.Kind = Empty
		return
	}
	if n.Address.Level() >= b.maxDepth {
		n.Kind = Boundary
		return
	}

	n.Kind = Branch
	for k := range 8 {
		child := &Node{Address: n.Address.Child(k)}
		b.subdivide(child, solid, bounds)
		if child.Kind == Empty {
			continue
		}
		n.Children = append(n.Children, child)
	}
	if len(n.Children) == 0 {
		// Intersecting by the solid's predicate but every octant was pruned
		// (boundary tie-break); keep this cell as the boundary approximation.
		n.Kind = Boundary
	}
}

// BuildAll builds trees for many solids concurrently. limit bounds the number
// of concurrent builds; limit <= 0 means no bound. The result is index-aligned
// with solids.
func (b *Builder) BuildAll(ctx context.Context, solids []geom.Solid, limit int) ([]*Tree, error) {
	for i, s := range solids {
		if s == nil {
			return nil, fmt.Errorf("subdiv: solid %d is nil", i)
		}
	}

	trees := make([]*Tree, len(solids))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, s := range solids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			trees[i] = b.Build(s)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return trees, nil
}
