package octogo

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/octogo/cell"
	"github.com/hupe1980/octogo/geom"
	"github.com/hupe1980/octogo/ident"
	"github.com/hupe1980/octogo/octree"
	"github.com/hupe1980/octogo/snapshot"
	"github.com/hupe1980/octogo/subdiv"
)

// Item is one building element to index.
type Item struct {
	Identity ident.ID
	Solid    geom.Solid
}

// BuildResult summarizes a Build call.
type BuildResult struct {
	Elements int
	Cells    int
}

// DB holds the cell indexes of many models over one world space.
//
// All methods are safe for concurrent use. Builds into the same model are
// serialized; queries run concurrently with each other.
type DB struct {
	space *cell.Space
	opts  options

	mu     sync.Mutex
	models map[string]*Model
	closed bool
}

// Open returns a DB over space.
func Open(space *cell.Space, optFns ...Option) (*DB, error) {
	if space == nil {
		return nil, errors.New("octogo: nil space")
	}
	return &DB{
		space:  space,
		opts:   applyOptions(optFns),
		models: make(map[string]*Model),
	}, nil
}

// Space returns the world space.
func (db *DB) Space() *cell.Space { return db.space }

// Model is the index of one building model.
type Model struct {
	id string

	mu      sync.RWMutex
	index   *octree.Index
	version uint64
	loaded  bool
}

// ID returns the model id.
func (m *Model) ID() string { return m.id }

// Version returns the snapshot version the model was last loaded from or
// saved as, 0 if none.
func (m *Model) Version() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version
}

// Stats returns the statistics of the model's index.
func (m *Model) Stats() octree.Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.index.Stats()
}

// Elements returns the identities recorded at a persistent cell.
func (m *Model) Elements(addr cell.Address) []ident.ID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.index.Elements(addr)
}

// Lookup classifies addr against the model's index.
func (m *Model) Lookup(addr cell.Address) octree.Match {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.index.Lookup(addr)
}

// Rows yields the persisted (cell, identity) rows of the model. The model is
// read-locked until iteration ends.
func (m *Model) Rows() iter.Seq[octree.Row] {
	return func(yield func(octree.Row) bool) {
		m.mu.RLock()
		defer m.mu.RUnlock()
		for r := range m.index.Rows() {
			if !yield(r) {
				return
			}
		}
	}
}

func (db *DB) newModel(id string) *Model {
	return &Model{
		id: id,
		index: octree.New(db.space, db.opts.maxDepth,
			octree.WithShardBytes(db.opts.shardBytes),
			octree.WithPreserveOriginalCell(db.opts.preserveOriginal),
			octree.WithLogger(db.opts.logger.WithModel(id).Logger),
		),
	}
}

// Model returns the model with id, creating it on first use. A new model is
// rehydrated from the repository unless WithSkipLoad is set.
func (db *DB) Model(ctx context.Context, id string) (*Model, error) {
	if err := snapshot.ValidateModel(id); err != nil {
		return nil, translateError(err)
	}

	db.mu.Lock()
	if db.closed {
		db.mu.Unlock()
		return nil, ErrClosed
	}
	m, ok := db.models[id]
	if !ok {
		m = db.newModel(id)
		db.models[id] = m
	}
	db.mu.Unlock()

	if err := db.load(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (db *DB) load(ctx context.Context, m *Model) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	repo := db.opts.repository
	if m.loaded {
		return nil
	}
	if repo == nil || db.opts.skipLoad {
		m.loaded = true
		return nil
	}

	start := time.Now()
	version, err := repo.Current(ctx, m.id)
	if err != nil {
		return db.loadFailed(ctx, m, 0, start, err)
	}

	var rows int
	for row, err := range repo.LoadAllCellRecords(ctx, m.id) {
		if err != nil {
			return db.loadFailed(ctx, m, rows, start, err)
		}
		m.index.Restore(row.Address, row.Identity)
		rows++
	}

	m.version = version
	m.loaded = true
	db.opts.logger.LogLoad(ctx, m.id, rows, time.Since(start), nil)
	db.opts.metricsCollector.RecordLoad(rows, time.Since(start), nil)
	return nil
}

// loadFailed leaves the model empty and unloaded so the next call retries.
func (db *DB) loadFailed(ctx context.Context, m *Model, rows int, start time.Time, err error) error {
	m.index.Reset()
	lerr := &ErrLoad{Model: m.id, Rows: rows, cause: err}
	db.opts.logger.LogLoad(ctx, m.id, rows, time.Since(start), lerr)
	db.opts.metricsCollector.RecordLoad(rows, time.Since(start), lerr)
	return lerr
}

func validateItems(items []Item) error {
	for i, it := range items {
		if it.Solid == nil {
			return fmt.Errorf("%w: item %d (%s)", ErrNilSolid, i, it.Identity)
		}
	}
	return nil
}

// subdivide builds the trees of items concurrently, bounded by the resource
// controller.
func (db *DB) subdivide(ctx context.Context, b *subdiv.Builder, items []Item) ([]*subdiv.Tree, error) {
	rc := db.opts.controller
	trees := make([]*subdiv.Tree, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rc.MaxBuildWorkers())
	for i := range items {
		g.Go(func() error {
			if err := rc.AcquireBuild(gctx); err != nil {
				return err
			}
			defer rc.ReleaseBuild()
			trees[i] = b.Build(items[i].Solid)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return trees, nil
}

// Build subdivides the solids of items in parallel and inserts them into the
// persistent index of the model.
func (db *DB) Build(ctx context.Context, id string, items []Item) (BuildResult, error) {
	start := time.Now()
	res, err := db.build(ctx, id, items)
	err = translateError(err)
	db.opts.logger.LogBuild(ctx, id, res.Elements, res.Cells, time.Since(start), err)
	db.opts.metricsCollector.RecordBuild(res.Elements, res.Cells, time.Since(start), err)
	return res, err
}

func (db *DB) build(ctx context.Context, id string, items []Item) (BuildResult, error) {
	m, err := db.Model(ctx, id)
	if err != nil {
		return BuildResult{}, err
	}
	if err := validateItems(items); err != nil {
		return BuildResult{}, err
	}
	trees, err := db.subdivide(ctx, m.index.Builder(), items)
	if err != nil {
		return BuildResult{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	res := BuildResult{Elements: len(items)}
	for i, t := range trees {
		res.Cells += m.index.InsertTree(items[i].Identity, t, false)
	}
	return res, nil
}

// Relate places items in the model's overlay and returns how they relate to
// the persisted cells. The overlay is cleared afterwards; the persistent index
// is not modified.
func (db *DB) Relate(ctx context.Context, id string, items []Item) ([]octree.OverlayEntry, error) {
	m, err := db.Model(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validateItems(items); err != nil {
		return nil, err
	}
	trees, err := db.subdivide(ctx, m.index.Builder(), items)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.index.ResetOverlay()
	defer m.index.ResetOverlay()
	for i, t := range trees {
		m.index.InsertTree(items[i].Identity, t, true)
	}
	return m.index.CollectOverlayEntries(), nil
}

// Query returns the sorted identities of persisted elements whose cells
// coincide with, contain or lie inside the cells of solid.
func (db *DB) Query(ctx context.Context, id string, solid geom.Solid) ([]ident.ID, error) {
	start := time.Now()
	out, err := db.query(ctx, id, solid)
	err = translateError(err)
	db.opts.logger.LogQuery(ctx, id, len(out), err)
	db.opts.metricsCollector.RecordQuery(len(out), time.Since(start), err)
	return out, err
}

func (db *DB) query(ctx context.Context, id string, solid geom.Solid) ([]ident.ID, error) {
	m, err := db.Model(ctx, id)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.index.Query(solid)
}

// Save writes the model as a new snapshot version and returns it.
func (db *DB) Save(ctx context.Context, id string) (uint64, error) {
	start := time.Now()
	var rows int
	v, err := db.save(ctx, id, &rows)
	err = translateError(err)
	db.opts.logger.LogSave(ctx, id, v, rows, err)
	db.opts.metricsCollector.RecordSave(rows, time.Since(start), err)
	return v, err
}

func (db *DB) save(ctx context.Context, id string, rows *int) (uint64, error) {
	repo := db.opts.repository
	if repo == nil {
		return 0, ErrNoRepository
	}
	m, err := db.Model(ctx, id)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	v, err := repo.Save(ctx, id, func(yield func(snapshot.Row) bool) {
		for r := range m.index.Rows() {
			*rows++
			if !yield(snapshot.Row(r)) {
				return
			}
		}
	})
	if err != nil {
		return 0, err
	}
	m.version = v
	return v, nil
}

// Drop forgets the model and deletes its snapshots. It returns ErrNotFound
// if the model is neither loaded nor persisted.
func (db *DB) Drop(ctx context.Context, id string) error {
	if err := snapshot.ValidateModel(id); err != nil {
		return translateError(err)
	}

	db.mu.Lock()
	if db.closed {
		db.mu.Unlock()
		return ErrClosed
	}
	_, loaded := db.models[id]
	delete(db.models, id)
	db.mu.Unlock()

	repo := db.opts.repository
	if repo == nil {
		if !loaded {
			return fmt.Errorf("%w: model %s", ErrNotFound, id)
		}
		return nil
	}

	v, err := repo.Current(ctx, id)
	if err != nil {
		return translateError(err)
	}
	if !loaded && v == 0 {
		return fmt.Errorf("%w: model %s", ErrNotFound, id)
	}
	return translateError(repo.Drop(ctx, id))
}

// Models returns the sorted ids of all loaded and persisted models.
func (db *DB) Models(ctx context.Context) ([]string, error) {
	db.mu.Lock()
	if db.closed {
		db.mu.Unlock()
		return nil, ErrClosed
	}
	ids := make([]string, 0, len(db.models))
	for id := range db.models {
		ids = append(ids, id)
	}
	db.mu.Unlock()

	if repo := db.opts.repository; repo != nil {
		persisted, err := repo.Models(ctx)
		if err != nil {
			return nil, translateError(err)
		}
		ids = append(ids, persisted...)
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

// Close releases all models. Further calls return ErrClosed.
func (db *DB) Close() error {
	if db == nil {
		return nil
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrClosed
	}
	db.closed = true
	db.models = nil
	return nil
}
