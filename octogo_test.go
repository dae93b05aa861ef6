package octogo

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/octogo/blobstore"
	"github.com/hupe1980/octogo/cell"
	"github.com/hupe1980/octogo/geom"
	"github.com/hupe1980/octogo/ident"
	"github.com/hupe1980/octogo/octree"
	"github.com/hupe1980/octogo/snapshot"
)

func testSpace(t *testing.T) *cell.Space {
	t.Helper()
	space, err := cell.NewSpace(geom.NewBox(geom.V(0, 0, 0), geom.V(64, 64, 64)))
	require.NoError(t, err)
	return space
}

func openTestDB(t *testing.T, opts ...Option) *DB {
	t.Helper()
	db, err := Open(testSpace(t), append([]Option{WithMaxDepth(4)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func cellItem(db *DB, id uint64, a cell.Address) Item {
	return Item{Identity: ident.FromUint64(id), Solid: geom.NewCuboid(db.Space().CellBox(a))}
}

func TestBuild_SingleEnclosedCell(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	target := cell.MustNew(1, 3)

	res, err := db.Build(ctx, "m", []Item{cellItem(db, 7, target)})
	require.NoError(t, err)
	assert.Equal(t, BuildResult{Elements: 1, Cells: 1}, res)

	m, err := db.Model(ctx, "m")
	require.NoError(t, err)
	assert.Equal(t, []ident.ID{ident.FromUint64(7)}, m.Elements(target))
	assert.Equal(t, octree.Exact, m.Lookup(target))
	assert.Equal(t, octree.Ancestor, m.Lookup(target.Child(0)))
}

func TestBuild_ManyItemsInParallel(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t, WithBuildWorkers(3))

	var items []Item
	for i := range 8 {
		for j := range 8 {
			items = append(items, cellItem(db, uint64(i*8+j+1), cell.MustNew(uint8(i), uint8(j))))
		}
	}
	res, err := db.Build(ctx, "m", items)
	require.NoError(t, err)
	assert.Equal(t, 64, res.Cells)

	m, err := db.Model(ctx, "m")
	require.NoError(t, err)
	assert.Equal(t, 64, m.Stats().Elements)
	for _, it := range items[:5] {
		got, err := db.Query(ctx, "m", it.Solid)
		require.NoError(t, err)
		assert.Equal(t, []ident.ID{it.Identity}, got)
	}
}

func TestSaveAndRehydrate(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	metrics := &BasicMetricsCollector{}

	db := openTestDB(t, WithBlobStore(store), WithCompression(snapshot.CompressionLZ4))
	items := []Item{
		cellItem(db, 1, cell.MustNew(0)),
		cellItem(db, 2, cell.MustNew(7, 7)),
		{Identity: ident.FromUint64(3), Solid: geom.Segment{A: geom.V(1, 1, 1), B: geom.V(7, 1, 1)}},
	}
	_, err := db.Build(ctx, "tower", items)
	require.NoError(t, err)

	v, err := db.Save(ctx, "tower")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v)

	m, err := db.Model(ctx, "tower")
	require.NoError(t, err)
	want := slices.Collect(m.Rows())

	reopened := openTestDB(t, WithBlobStore(store), WithMetricsCollector(metrics))
	m2, err := reopened.Model(ctx, "tower")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), m2.Version())
	assert.ElementsMatch(t, want, slices.Collect(m2.Rows()))

	got, err := reopened.Query(ctx, "tower", items[1].Solid)
	require.NoError(t, err)
	assert.Equal(t, []ident.ID{ident.FromUint64(2)}, got)

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.LoadCount)
	assert.Equal(t, int64(len(want)), stats.LoadRows)
	assert.Equal(t, int64(1), stats.QueryCount)

	skipped := openTestDB(t, WithBlobStore(store), WithSkipLoad(true))
	m3, err := skipped.Model(ctx, "tower")
	require.NoError(t, err)
	assert.Empty(t, slices.Collect(m3.Rows()))
	v, err = skipped.Save(ctx, "tower")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), v)
}

func TestLoadFailureIsRetried(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	require.NoError(t, store.Put(ctx, "models/m/CURRENT", []byte(snapshot.FileName(1))))
	require.NoError(t, store.Put(ctx, "models/m/"+snapshot.FileName(1), []byte("not a snapshot")))

	db := openTestDB(t, WithBlobStore(store))
	_, err := db.Model(ctx, "m")
	var lerr *ErrLoad
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, "m", lerr.Model)
	assert.ErrorIs(t, err, snapshot.ErrCorrupt)

	require.NoError(t, store.Delete(ctx, "models/m/CURRENT"))
	m, err := db.Model(ctx, "m")
	require.NoError(t, err)
	assert.Equal(t, 1, m.Stats().Cells)
}

func TestRelate(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	stored := cell.MustNew(2, 5)
	_, err := db.Build(ctx, "m", []Item{cellItem(db, 1, stored)})
	require.NoError(t, err)

	probe := cellItem(db, 9, stored.Child(3))
	entries, err := db.Relate(ctx, "m", []Item{probe})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, stored, entries[0].Address)
	assert.Equal(t, probe.Identity, entries[0].Identity)
	assert.Equal(t, octree.OverlayLeafWithAncestor, entries[0].Kind)
	assert.False(t, entries[0].Border)

	m, err := db.Model(ctx, "m")
	require.NoError(t, err)
	assert.Zero(t, m.Stats().OverlayCells)
	assert.Equal(t, []ident.ID{ident.FromUint64(1)}, m.Elements(stored))
}

func TestDropAndModels(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t, WithBlobStore(blobstore.NewMemoryStore()))

	require.ErrorIs(t, db.Drop(ctx, "ghost"), ErrNotFound)

	for _, id := range []string{"b", "a"} {
		_, err := db.Build(ctx, id, []Item{cellItem(db, 1, cell.MustNew(1))})
		require.NoError(t, err)
	}
	_, err := db.Save(ctx, "a")
	require.NoError(t, err)

	models, err := db.Models(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, models)

	require.NoError(t, db.Drop(ctx, "a"))
	require.NoError(t, db.Drop(ctx, "b"))
	models, err = db.Models(ctx)
	require.NoError(t, err)
	assert.Empty(t, models)
}

func TestErrors(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	_, err := db.Build(ctx, "m", []Item{{Identity: ident.FromUint64(1)}})
	require.ErrorIs(t, err, ErrNilSolid)

	_, err = db.Query(ctx, "m", nil)
	require.ErrorIs(t, err, ErrNilSolid)

	_, err = db.Model(ctx, "a/b")
	require.ErrorIs(t, err, ErrInvalidModel)

	_, err = db.Save(ctx, "m")
	require.ErrorIs(t, err, ErrNoRepository)

	_, err = Open(nil)
	require.Error(t, err)

	require.NoError(t, db.Close())
	_, err = db.Model(ctx, "m")
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, db.Drop(ctx, "m"), ErrClosed)
	require.ErrorIs(t, db.Close(), ErrClosed)
}

func TestParseIdentity(t *testing.T) {
	id, err := ParseIdentity("1")
	require.NoError(t, err)
	assert.Equal(t, ident.FromUint64(1), id)

	_, err = ParseIdentity("not valid!")
	var ie *ErrInvalidIdentity
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "not valid!", ie.Value)
	assert.True(t, errors.Is(err, ident.ErrInvalidFormat))
}

func TestTranslateError(t *testing.T) {
	assert.NoError(t, translateError(nil))
	assert.ErrorIs(t, translateError(blobstore.ErrNotFound), ErrNotFound)
	assert.ErrorIs(t, translateError(octree.ErrNilSolid), ErrNilSolid)
	assert.ErrorIs(t, translateError(snapshot.ErrInvalidModel), ErrInvalidModel)

	var ie *ErrInvalidIdentity
	assert.ErrorAs(t, translateError(ident.ErrInvalidFormat), &ie)

	other := errors.New("boom")
	assert.Equal(t, other, translateError(other))
}
