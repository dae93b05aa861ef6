package octree

import (
	"slices"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/octogo/cell"
	"github.com/hupe1980/octogo/ident"
)

// Outcome reports which branch an overlay insertion took.
type Outcome uint8

const (
	// OutcomeExactNode means the cell is a persisted node; the insertion was
	// repeated for its eight children.
	OutcomeExactNode Outcome = iota + 1
	// OutcomeExactLeaf means the cell is a persisted leaf and was recorded as is.
	OutcomeExactLeaf
	// OutcomeAncestor means the element was recorded against persisted leaf
	// ancestors of the cell.
	OutcomeAncestor
	// OutcomeDescendant means the element was recorded against persisted leaf
	// descendants of the cell.
	OutcomeDescendant
	// OutcomeNewLeaf means nothing related was persisted and the cell was
	// recorded as a new leaf.
	OutcomeNewLeaf
)

func (o Outcome) String() string {
	switch o {
	case OutcomeExactNode:
		return "exact-node"
	case OutcomeExactLeaf:
		return "exact-leaf"
	case OutcomeAncestor:
		return "ancestor"
	case OutcomeDescendant:
		return "descendant"
	case OutcomeNewLeaf:
		return "new-leaf"
	default:
		return "unknown"
	}
}

// OverlayKind is the flavor of an overlay cell.
type OverlayKind uint8

const (
	// OverlayLeaf is a persisted leaf matched exactly.
	OverlayLeaf OverlayKind = iota + 1
	// OverlayLeafWithAncestor is a persisted leaf above the inserted cell.
	OverlayLeafWithAncestor
	// OverlayLeafWithDescendant is a persisted leaf below the inserted cell.
	OverlayLeafWithDescendant
	// OverlayNewLeaf is a cell that has no persisted counterpart.
	OverlayNewLeaf
)

func (k OverlayKind) String() string {
	switch k {
	case OverlayLeaf:
		return "leaf"
	case OverlayLeafWithAncestor:
		return "leaf-with-ancestor"
	case OverlayLeafWithDescendant:
		return "leaf-with-descendant"
	case OverlayNewLeaf:
		return "new-leaf"
	default:
		return "unknown"
	}
}

// OverlayEntry is one (element, cell) pair of the overlay.
type OverlayEntry struct {
	Identity ident.ID
	Address  cell.Address // canonical
	Bounds   cell.Bounds
	Depth    int
	Kind     OverlayKind
	Border   bool
}

type overlayCell struct {
	kind     OverlayKind
	elements *roaring.Bitmap
}

// overlay is keyed by address including the border flag, so the border and
// plain variants of a cell are distinct entries.
type overlay struct {
	mu    sync.Mutex
	cells map[cell.Address]*overlayCell
}

func newOverlay() *overlay {
	return &overlay{cells: make(map[cell.Address]*overlayCell)}
}

func (o *overlay) record(addr cell.Address, kind OverlayKind, s uint32) {
	o.mu.Lock()
	defer o.mu.Unlock()

	c, ok := o.cells[addr]
	if !ok {
		c = &overlayCell{kind: kind, elements: roaring.New()}
		o.cells[addr] = c
	}
	c.elements.Add(s)
}

func (o *overlay) len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.cells)
}

func (o *overlay) reset() {
	o.mu.Lock()
	o.cells = make(map[cell.Address]*overlayCell)
	o.mu.Unlock()
}

// InsertOverlay relates surrogate s at addr to the persistent index and
// records the result in the overlay:
//
//   - persisted node: repeated for all eight children, depth-only
//   - persisted leaf: recorded at addr
//   - persisted leaf ancestors: recorded at each of them, unless depthOnly
//   - persisted leaf descendants: recorded at each of them
//   - otherwise: recorded at addr as a new leaf
//
// border marks the recorded cells as border cells. The persistent index is
// never modified.
func (x *Index) InsertOverlay(s uint32, addr cell.Address, border, depthOnly bool) Outcome {
	return x.insertOverlay(x.overlay, s, addr, border, depthOnly)
}

func (x *Index) insertOverlay(ov *overlay, s uint32, addr cell.Address, border, depthOnly bool) Outcome {
	key := addr.Canonical()
	if key.Level() > x.MaxDepth() {
		key = key.AncestorAt(x.MaxDepth())
	}
	flag := func(a cell.Address) cell.Address {
		if border {
			return a.Border()
		}
		return a
	}

	if rec, ok := x.FindNode(key); ok {
		if rec.IsNode() && key.Level() < cell.MaxLevel {
			for _, c := range key.Children() {
				x.insertOverlay(ov, s, c, border, true)
			}
			return OutcomeExactNode
		}
		ov.record(flag(key), OverlayLeaf, s)
		return OutcomeExactLeaf
	}

	if !depthOnly {
		if ancestors := x.FindAncestors(key); len(ancestors) > 0 {
			for _, a := range ancestors {
				ov.record(flag(a), OverlayLeafWithAncestor, s)
			}
			if x.opts.preserveOriginal {
				ov.record(flag(key), OverlayNewLeaf, s)
			}
			return OutcomeAncestor
		}
	}

	if key.Level() < x.MaxDepth() {
		if leaves, ok := x.FindDescendantLeaves(key); ok {
			for _, a := range leaves {
				ov.record(flag(a), OverlayLeafWithDescendant, s)
			}
			return OutcomeDescendant
		}
	}

	ov.record(flag(key), OverlayNewLeaf, s)
	return OutcomeNewLeaf
}

// CollectOverlayEntries returns every (element, cell) pair of the overlay,
// ordered by address and then identity.
func (x *Index) CollectOverlayEntries() []OverlayEntry {
	ov := x.overlay
	ov.mu.Lock()
	defer ov.mu.Unlock()

	var out []OverlayEntry
	for a, c := range ov.cells {
		canon := a.Canonical()
		it := c.elements.Iterator()
		for it.HasNext() {
			id, ok := x.interner.Resolve(it.Next())
			if !ok {
				continue
			}
			out = append(out, OverlayEntry{
				Identity: id,
				Address:  canon,
				Bounds:   canon.GridBounds(),
				Depth:    canon.Level(),
				Kind:     c.kind,
				Border:   a.IsBorder(),
			})
		}
	}

	slices.SortFunc(out, func(a, b OverlayEntry) int {
		switch {
		case a.Address < b.Address:
			return -1
		case a.Address > b.Address:
			return 1
		case a.Border != b.Border:
			if a.Border {
				return 1
			}
			return -1
		}
		return a.Identity.Compare(b.Identity)
	})
	return out
}

// ResetOverlay drops all overlay entries.
func (x *Index) ResetOverlay() {
	x.overlay.reset()
}
