package octree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/octogo/cell"
	"github.com/hupe1980/octogo/geom"
	"github.com/hupe1980/octogo/ident"
	"github.com/hupe1980/octogo/internal/cellstore"
)

func TestInsertOverlay_AncestorRecordedAgainstPersistedLeaf(t *testing.T) {
	x := newTestIndex(t, 8)
	a := cell.MustNew(5, 2, 6)
	require.Equal(t, 3, a.Level())
	x.Insert(x.Intern(ident.FromUint64(1)), a)

	b := a.Child(4)
	q := ident.FromUint64(2)
	out := x.InsertOverlay(x.Intern(q), b, false, false)
	assert.Equal(t, OutcomeAncestor, out)

	entries := x.CollectOverlayEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, a, entries[0].Address)
	assert.Equal(t, q, entries[0].Identity)
	assert.Equal(t, OverlayLeafWithAncestor, entries[0].Kind)
	assert.Equal(t, 3, entries[0].Depth)
	assert.Equal(t, a.GridBounds(), entries[0].Bounds)
	assert.False(t, entries[0].Border)

	// The persistent index is unchanged.
	assert.Equal(t, Ancestor, x.Lookup(b))
	assert.Equal(t, []ident.ID{ident.FromUint64(1)}, x.Elements(a))
}

func TestInsertOverlay_PreserveOriginalCell(t *testing.T) {
	x := newTestIndex(t, 8, WithPreserveOriginalCell(true))
	a := cell.MustNew(5, 2, 6)
	x.Insert(x.Intern(ident.FromUint64(1)), a)

	b := a.Child(4)
	assert.Equal(t, OutcomeAncestor, x.InsertOverlay(x.Intern(ident.FromUint64(2)), b, false, false))

	entries := x.CollectOverlayEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, a, entries[0].Address)
	assert.Equal(t, b, entries[1].Address)
	assert.Equal(t, OverlayNewLeaf, entries[1].Kind)
}

func TestInsertOverlay_ExactAndNode(t *testing.T) {
	x := newTestIndex(t, 8)
	a := cell.MustNew(1, 1)
	x.Insert(x.Intern(ident.FromUint64(1)), a)
	s := x.Intern(ident.FromUint64(2))

	assert.Equal(t, OutcomeExactLeaf, x.InsertOverlay(s, a, true, false))
	assert.Equal(t, OutcomeExactNode, x.InsertOverlay(s, cell.MustNew(1), false, false))

	entries := x.CollectOverlayEntries()
	// Eight children of (1) plus the border variant of a.
	require.Len(t, entries, 9)

	var border int
	for _, e := range entries {
		assert.Equal(t, OverlayLeaf, e.Kind)
		assert.Equal(t, 2, e.Depth)
		if e.Border {
			border++
			assert.Equal(t, a, e.Address)
		}
	}
	assert.Equal(t, 1, border)

	x.ResetOverlay()
	assert.Empty(t, x.CollectOverlayEntries())
}

func TestInsertOverlay_DescendantAndNewLeaf(t *testing.T) {
	x := newTestIndex(t, 8)
	s := x.Intern(ident.FromUint64(3))

	assert.Equal(t, OutcomeNewLeaf, x.InsertOverlay(s, cell.MustNew(2, 2), false, false))

	// Leaves stored below an unstored cell, as left by a partial load.
	deep := []cell.Address{cell.MustNew(4, 0, 1), cell.MustNew(4, 0, 6)}
	for _, d := range deep {
		x.store.AddOrUpdate(d, cellstore.NewLeaf(s))
	}
	x.store.Replace(cell.MustNew(4), cellstore.NewNode(), -1)

	assert.Equal(t, OutcomeDescendant, x.InsertOverlay(s, cell.MustNew(4, 0).Border(), false, false))

	entries := x.CollectOverlayEntries()
	require.Len(t, entries, 3)
	assert.Equal(t, cell.MustNew(2, 2), entries[0].Address)
	assert.Equal(t, OverlayNewLeaf, entries[0].Kind)
	for i, d := range deep {
		assert.Equal(t, d, entries[i+1].Address)
		assert.Equal(t, OverlayLeafWithDescendant, entries[i+1].Kind)
	}
}

func TestInsertOverlay_DepthOnlySkipsAncestors(t *testing.T) {
	x := newTestIndex(t, 8)
	a := cell.MustNew(3, 3)
	x.Insert(x.Intern(ident.FromUint64(1)), a)

	out := x.InsertOverlay(x.Intern(ident.FromUint64(2)), a.Child(1), false, true)
	assert.Equal(t, OutcomeNewLeaf, out)
}

func TestComputeAndInsert_OverlayFlagsBoundaryCells(t *testing.T) {
	x := newTestIndex(t, 4)
	id := ident.FromUint64(77)

	n, err := x.ComputeAndInsert(id, geom.Segment{A: geom.V(1, 1, 1), B: geom.V(7, 1, 1)}, true)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	entries := x.CollectOverlayEntries()
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.True(t, e.Border)
		assert.Equal(t, OverlayNewLeaf, e.Kind)
		assert.Equal(t, id, e.Identity)
	}

	// Nothing was persisted.
	assert.Empty(t, x.Elements(cell.MustNew(0, 0, 0, 0)))
	assert.Equal(t, 1, x.Stats().Cells)
}

func TestOutcomeAndMatchStrings(t *testing.T) {
	assert.Equal(t, "ancestor", OutcomeAncestor.String())
	assert.Equal(t, "new-leaf", OutcomeNewLeaf.String())
	assert.Equal(t, "leaf-with-descendant", OverlayLeafWithDescendant.String())
	assert.Equal(t, "descendant", Descendant.String())
	assert.Equal(t, "unknown", Outcome(0).String())
}
