package octree

import (
	"slices"

	"github.com/hupe1980/octogo/cell"
	"github.com/hupe1980/octogo/geom"
	"github.com/hupe1980/octogo/ident"
	"github.com/hupe1980/octogo/internal/cellstore"
)

// Match classifies how a cell relates to the persistent index.
type Match uint8

const (
	// NotFound means neither the cell nor any ancestor leaf or descendant
	// leaf is stored.
	NotFound Match = iota
	// Exact means the cell itself is stored.
	Exact
	// Ancestor means a strict ancestor of the cell is a stored leaf.
	Ancestor
	// Descendant means stored leaves exist below the cell.
	Descendant
)

func (m Match) String() string {
	switch m {
	case NotFound:
		return "not-found"
	case Exact:
		return "exact"
	case Ancestor:
		return "ancestor"
	case Descendant:
		return "descendant"
	default:
		return "unknown"
	}
}

// FindNode returns a copy of the persistent record at addr.
func (x *Index) FindNode(addr cell.Address) (cellstore.Record, bool) {
	_, rec, ok := x.store.TryGet(addr.Canonical())
	return rec, ok
}

// FindAncestors returns the stored leaf cells strictly above addr, nearest
// first.
func (x *Index) FindAncestors(addr cell.Address) []cell.Address {
	var out []cell.Address
	for _, a := range addr.Canonical().Ancestors() {
		if _, rec, ok := x.store.TryGet(a); ok && rec.IsLeaf() {
			out = append(out, a)
		}
	}
	return out
}

// FindAncestor returns the nearest stored leaf strictly above addr.
func (x *Index) FindAncestor(addr cell.Address) (cell.Address, bool) {
	for _, a := range addr.Canonical().Ancestors() {
		if _, rec, ok := x.store.TryGet(a); ok && rec.IsLeaf() {
			return a, true
		}
	}
	return cell.Root, false
}

// FindDescendantLeaves walks the stored cells below addr depth-first and
// returns every leaf found, not descending past MaxDepth. The boolean is true
// only if at least one leaf was collected.
func (x *Index) FindDescendantLeaves(addr cell.Address) ([]cell.Address, bool) {
	var out []cell.Address
	x.collectDescendantLeaves(addr.Canonical(), &out)
	return out, len(out) > 0
}

func (x *Index) collectDescendantLeaves(addr cell.Address, out *[]cell.Address) {
	if addr.Level() >= x.MaxDepth() || addr.Level() >= cell.MaxLevel {
		return
	}
	for _, c := range addr.Children() {
		_, rec, ok := x.store.TryGet(c)
		if !ok {
			continue
		}
		if rec.IsLeaf() {
			*out = append(*out, c)
			continue
		}
		x.collectDescendantLeaves(c, out)
	}
}

// Lookup classifies addr against the persistent index.
func (x *Index) Lookup(addr cell.Address) Match {
	addr = addr.Canonical()
	if x.store.Contains(addr) {
		return Exact
	}
	if _, ok := x.FindAncestor(addr); ok {
		return Ancestor
	}
	if _, ok := x.FindDescendantLeaves(addr); ok {
		return Descendant
	}
	return NotFound
}

// Elements returns the identities recorded at the persistent cell addr, in
// surrogate order.
func (x *Index) Elements(addr cell.Address) []ident.ID {
	rec, ok := x.FindNode(addr)
	if !ok {
		return nil
	}
	out := make([]ident.ID, 0, rec.Len())
	it := rec.Elements.Iterator()
	for it.HasNext() {
		out = append(out, x.interner.MustResolve(it.Next()))
	}
	return out
}

// Query returns the identities of persisted elements whose cells coincide
// with, contain, or lie inside the cells of solid. The result is sorted and
// neither the persistent index nor the index's overlay is modified.
func (x *Index) Query(solid geom.Solid) ([]ident.ID, error) {
	if solid == nil {
		return nil, ErrNilSolid
	}

	ids, _ := x.builder.Build(solid).CollectCellIDs()
	ov := newOverlay()
	for _, a := range ids {
		x.insertOverlay(ov, querySurrogate, a, false, false)
	}

	var hits []cell.Address
	for a, e := range ov.cells {
		if e.kind != OverlayNewLeaf {
			hits = append(hits, a.Canonical())
		}
	}

	seen := make(map[uint32]struct{})
	var out []ident.ID
	for _, a := range hits {
		rec, ok := x.FindNode(a)
		if !ok {
			continue
		}
		it := rec.Elements.Iterator()
		for it.HasNext() {
			s := it.Next()
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, x.interner.MustResolve(s))
		}
	}
	slices.SortFunc(out, ident.ID.Compare)
	return out, nil
}

// querySurrogate marks cells of a throwaway query overlay; it is never
// resolved.
const querySurrogate = ^uint32(0)
