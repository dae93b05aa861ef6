// Package octree maintains the persistent cell index of one building model
// and a transient overlay for relating ad-hoc solids to it.
//
// The persistent index is a tree of cells kept in a sharded cell store. Leaf
// cells hold the surrogates of the elements that occupy them; node cells have
// been split into their eight children. Inserting into a cell that does not
// exist yet splits its nearest existing ancestor down to the target depth,
// pushing the ancestor's elements into the new children so no data is lost.
//
// The overlay never mutates the persistent index. An overlay insertion looks
// the cell up in the persistent index and records the element against
// whatever granularity was actually persisted: the cell itself, its leaf
// ancestors, or its leaf descendants.
package octree

import (
	"errors"
	"iter"
	"log/slog"
	"slices"

	"github.com/hupe1980/octogo/cell"
	"github.com/hupe1980/octogo/geom"
	"github.com/hupe1980/octogo/ident"
	"github.com/hupe1980/octogo/internal/cellstore"
	"github.com/hupe1980/octogo/internal/intern"
	"github.com/hupe1980/octogo/subdiv"
)

// ErrNilSolid is returned when a nil solid is inserted or queried.
var ErrNilSolid = errors.New("octree: nil solid")

// Index is the cell index of one model.
//
// Insertions into disjoint subtrees may run concurrently. Insertions that
// split the same subtree must be serialized by the caller. The overlay is
// meant for one query at a time.
type Index struct {
	builder  *subdiv.Builder
	store    *cellstore.Store
	interner *intern.Table
	overlay  *overlay
	opts     options
}

// New returns an empty index over space. maxDepth is clamped to
// [0, cell.MaxLevel].
func New(space *cell.Space, maxDepth int, optFns ...Option) *Index {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Index{
		builder:  subdiv.NewBuilder(space, maxDepth),
		store:    cellstore.New(opts.shardBytes),
		interner: intern.New(),
		overlay:  newOverlay(),
		opts:     opts,
	}
}

// Space returns the world space of the index.
func (x *Index) Space() *cell.Space { return x.builder.Space() }

// MaxDepth returns the maximum cell depth.
func (x *Index) MaxDepth() int { return x.builder.MaxDepth() }

// Builder returns the subdivision builder used for insertions.
func (x *Index) Builder() *subdiv.Builder { return x.builder }

// Intern returns the surrogate of id, assigning one if needed.
func (x *Index) Intern(id ident.ID) uint32 { return x.interner.Intern(id) }

// Resolve returns the identity behind a surrogate.
func (x *Index) Resolve(s uint32) (ident.ID, bool) { return x.interner.Resolve(s) }

// ComputeAndInsert subdivides solid and inserts id into every resulting cell,
// either persistently or into the overlay. Overlay insertions flag boundary
// cells as border cells. It returns the number of cells the solid occupies.
func (x *Index) ComputeAndInsert(id ident.ID, solid geom.Solid, intoOverlay bool) (int, error) {
	if solid == nil {
		return 0, ErrNilSolid
	}
	return x.InsertTree(id, x.builder.Build(solid), intoOverlay), nil
}

// InsertTree inserts id into every leaf of a prebuilt tree. It lets callers
// run the subdivision elsewhere, e.g. concurrently with subdiv.Builder.BuildAll.
func (x *Index) InsertTree(id ident.ID, tree *subdiv.Tree, intoOverlay bool) int {
	s := x.interner.Intern(id)
	ids, enclosed := tree.CollectCellIDs()
	for i, a := range ids {
		if intoOverlay {
			x.InsertOverlay(s, a, !enclosed[i], false)
		} else {
			x.Insert(s, a)
		}
	}
	return len(ids)
}

// Insert adds surrogate s to the persistent cell at addr, creating the cell
// if needed. Addresses deeper than MaxDepth are clamped to their ancestor at
// MaxDepth. Inserting into a node cell inserts into all of its children.
func (x *Index) Insert(s uint32, addr cell.Address) {
	addr = addr.Canonical()
	if addr.Level() > x.MaxDepth() {
		addr = addr.AncestorAt(x.MaxDepth())
	}

	idx, rec := x.ensureCellExists(addr)
	if rec.IsNode() {
		for _, c := range addr.Children() {
			x.Insert(s, c)
		}
		return
	}
	x.store.Replace(addr, addLeaf(rec, s), idx)
}

func addLeaf(rec cellstore.Record, s uint32) cellstore.Record {
	rec.Elements.Add(s)
	return rec
}

// ensureCellExists returns the owning shard and record of addr, splitting
// ancestors until the cell exists.
func (x *Index) ensureCellExists(addr cell.Address) (int, cellstore.Record) {
	if idx, rec, ok := x.store.TryGet(addr); ok {
		return idx, rec
	}
	if addr.IsRoot() {
		// Only reachable after the root was removed from outside Reset.
		panic("octree: root cell missing from store")
	}

	parent := addr.Parent()
	pidx, prec := x.ensureCellExists(parent)
	x.split(parent, pidx, prec)

	idx, rec, ok := x.store.TryGet(addr)
	if !ok {
		panic("octree: split did not create " + addr.String())
	}
	return idx, rec
}

// split creates the eight children of addr. Children of a leaf inherit its
// elements and the leaf becomes an empty node. Children of a node start empty.
func (x *Index) split(addr cell.Address, idx int, rec cellstore.Record) {
	if rec.IsLeaf() {
		for _, c := range addr.Children() {
			x.store.AddOrUpdate(c, cellstore.Record{Kind: cellstore.Leaf, Elements: rec.Elements})
		}
		x.store.Replace(addr, cellstore.NewNode(), idx)
		x.opts.logger.Debug("split leaf",
			slog.String("cell", addr.String()),
			slog.Int("elements", rec.Len()),
		)
		return
	}
	for _, c := range addr.Children() {
		x.store.AddOrUpdate(c, cellstore.NewLeaf())
	}
}

// Restore inserts one persisted (cell, identity) row.
func (x *Index) Restore(addr cell.Address, id ident.ID) {
	x.Insert(x.interner.Intern(id), addr)
}

// Row is one persisted association between a leaf cell and an element.
type Row struct {
	Address  cell.Address
	Identity ident.ID
}

// Rows yields every (leaf cell, identity) pair of the persistent index in
// address order. Empty leaves yield nothing.
func (x *Index) Rows() iter.Seq[Row] {
	return func(yield func(Row) bool) {
		type leaf struct {
			addr cell.Address
			elts []uint32
		}
		var leaves []leaf
		for a, r := range x.store.Range() {
			if r.IsLeaf() && r.Len() > 0 {
				leaves = append(leaves, leaf{addr: a, elts: r.Elements.ToArray()})
			}
		}
		slices.SortFunc(leaves, func(a, b leaf) int {
			switch {
			case a.addr < b.addr:
				return -1
			case a.addr > b.addr:
				return 1
			}
			return 0
		})

		for _, l := range leaves {
			for _, s := range l.elts {
				if !yield(Row{Address: l.addr, Identity: x.interner.MustResolve(s)}) {
					return
				}
			}
		}
	}
}

// Reset drops all persistent cells, the overlay and the interning table.
func (x *Index) Reset() {
	x.store.Reset()
	x.interner = intern.New()
	x.overlay.reset()
}

// Stats summarizes an index.
type Stats struct {
	Cells        int
	Leaves       int
	Nodes        int
	Shards       int
	Elements     int
	OverlayCells int
}

// Stats returns the current statistics.
func (x *Index) Stats() Stats {
	st := Stats{
		Shards:       x.store.NumShards(),
		Elements:     x.interner.Len(),
		OverlayCells: x.overlay.len(),
	}
	for _, r := range x.store.Range() {
		st.Cells++
		if r.IsNode() {
			st.Nodes++
		} else {
			st.Leaves++
		}
	}
	return st
}

// CheckStore verifies the store's shard invariant.
func (x *Index) CheckStore() error {
	return x.store.Check()
}
