package snapshot

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/hupe1980/octogo/blobstore"
	"github.com/hupe1980/octogo/internal/resource"
)

const (
	modelsDir   = "models"
	currentName = "CURRENT"
	filePrefix  = "cells-"
	fileSuffix  = ".oct"

	// DefaultRetain is the number of snapshot versions kept per model.
	DefaultRetain = 2

	ctxCheckRows = 1024
)

// ErrInvalidModel is returned for model ids that cannot be used as a path
// segment.
var ErrInvalidModel = errors.New("snapshot: invalid model id")

// ValidateModel checks that id is usable as a model id.
func ValidateModel(id string) error {
	if id == "" || id == "." || id == ".." || len(id) > 255 {
		return fmt.Errorf("%w: %q", ErrInvalidModel, id)
	}
	for _, r := range id {
		if r == '/' || r == '\\' || r < 0x20 || r == 0x7f {
			return fmt.Errorf("%w: %q", ErrInvalidModel, id)
		}
	}
	return nil
}

func modelPath(id string, elem ...string) string {
	return path.Join(append([]string{modelsDir, id}, elem...)...)
}

// FileName returns the blob name of snapshot version v inside a model
// directory.
func FileName(v uint64) string {
	return filePrefix + strconv.FormatUint(v, 10) + fileSuffix
}

func parseFileName(name string) (uint64, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return 0, false
	}
	v, err := strconv.ParseUint(strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix), 10, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return v, true
}

// Repository stores versioned snapshots of many models in one blob store.
type Repository struct {
	store       blobstore.BlobStore
	rc          *resource.Controller
	compression Compression
	blockRows   int
	retain      int
}

// RepositoryOption configures a Repository.
type RepositoryOption func(*Repository)

// WithCompression sets the codec for new snapshots. Default: ZSTD.
func WithCompression(c Compression) RepositoryOption {
	return func(r *Repository) {
		if c.valid() {
			r.compression = c
		}
	}
}

// WithBlockRows sets the number of rows per block.
func WithBlockRows(n int) RepositoryOption {
	return func(r *Repository) {
		if n > 0 {
			r.blockRows = n
		}
	}
}

// WithController routes IO and block buffers through rc.
func WithController(rc *resource.Controller) RepositoryOption {
	return func(r *Repository) {
		r.rc = rc
	}
}

// WithRetain sets how many versions Save keeps per model.
func WithRetain(n int) RepositoryOption {
	return func(r *Repository) {
		if n > 0 {
			r.retain = n
		}
	}
}

// NewRepository returns a repository on store.
func NewRepository(store blobstore.BlobStore, optFns ...RepositoryOption) *Repository {
	r := &Repository{
		store:       store,
		compression: CompressionZSTD,
		blockRows:   DefaultBlockRows,
		retain:      DefaultRetain,
	}
	for _, fn := range optFns {
		fn(r)
	}
	return r
}

// Store returns the underlying blob store.
func (r *Repository) Store() blobstore.BlobStore { return r.store }

// Current returns the committed version of model, 0 if it was never saved.
func (r *Repository) Current(ctx context.Context, model string) (uint64, error) {
	if err := ValidateModel(model); err != nil {
		return 0, err
	}
	data, err := blobstore.ReadAll(ctx, r.store, modelPath(model, currentName))
	if err != nil {
		if blobstore.IsNotFound(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("snapshot: read pointer of %s: %w", model, err)
	}
	v, ok := parseFileName(strings.TrimSpace(string(data)))
	if !ok {
		return 0, fmt.Errorf("%w: pointer of %s names %q", ErrCorrupt, model, data)
	}
	return v, nil
}

// versions returns the snapshot versions present for model, ascending.
func (r *Repository) versions(ctx context.Context, model string) ([]uint64, error) {
	names, err := r.store.List(ctx, modelPath(model)+"/")
	if err != nil {
		return nil, fmt.Errorf("snapshot: list %s: %w", model, err)
	}
	var out []uint64
	for _, name := range names {
		if v, ok := parseFileName(path.Base(name)); ok {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// Save writes rows as the next version of model and commits it. It returns
// the new version.
func (r *Repository) Save(ctx context.Context, model string, rows iter.Seq[Row]) (uint64, error) {
	current, err := r.Current(ctx, model)
	if err != nil {
		return 0, err
	}
	existing, err := r.versions(ctx, model)
	if err != nil {
		return 0, err
	}
	next := current + 1
	if n := len(existing); n > 0 && existing[n-1] >= next {
		next = existing[n-1] + 1
	}

	name := modelPath(model, FileName(next))
	if err := r.write(ctx, name, rows); err != nil {
		_ = r.store.Delete(ctx, name)
		return 0, err
	}
	if err := r.store.Put(ctx, modelPath(model, currentName), []byte(FileName(next))); err != nil {
		_ = r.store.Delete(ctx, name)
		return 0, fmt.Errorf("snapshot: commit %s: %w", model, err)
	}

	r.prune(ctx, model, append(existing, next))
	return next, nil
}

func (r *Repository) write(ctx context.Context, name string, rows iter.Seq[Row]) error {
	wb, err := r.store.Create(ctx, name)
	if err != nil {
		return fmt.Errorf("snapshot: create %s: %w", name, err)
	}

	sw, err := NewWriter(resource.NewRateLimitedWriter(ctx, wb, r.rc), WriterOptions{
		Compression: r.compression,
		BlockRows:   r.blockRows,
		Controller:  r.rc,
	})
	if err != nil {
		_ = wb.Close()
		return err
	}

	var n int
	for row := range rows {
		if n%ctxCheckRows == 0 {
			if err := ctx.Err(); err != nil {
				_ = sw.Close()
				_ = wb.Close()
				return err
			}
		}
		n++
		if err := sw.Write(row); err != nil {
			_ = sw.Close()
			_ = wb.Close()
			return err
		}
	}

	if err := sw.Close(); err != nil {
		_ = wb.Close()
		return fmt.Errorf("snapshot: write %s: %w", name, err)
	}
	if err := wb.Sync(); err != nil {
		_ = wb.Close()
		return fmt.Errorf("snapshot: sync %s: %w", name, err)
	}
	if err := wb.Close(); err != nil {
		return fmt.Errorf("snapshot: close %s: %w", name, err)
	}
	return nil
}

// prune deletes all but the newest retain versions. Failures are ignored;
// stale files are retried on the next save.
func (r *Repository) prune(ctx context.Context, model string, versions []uint64) {
	if len(versions) <= r.retain {
		return
	}
	for _, v := range versions[:len(versions)-r.retain] {
		_ = r.store.Delete(ctx, modelPath(model, FileName(v)))
	}
}

// LoadAllCellRecords streams the rows of the committed snapshot of model. A
// model that was never saved yields nothing.
func (r *Repository) LoadAllCellRecords(ctx context.Context, model string) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		v, err := r.Current(ctx, model)
		if err != nil {
			yield(Row{}, err)
			return
		}
		if v == 0 {
			return
		}

		name := modelPath(model, FileName(v))
		b, err := r.store.Open(ctx, name)
		if err != nil {
			yield(Row{}, fmt.Errorf("snapshot: open %s: %w", name, err))
			return
		}
		defer func() { _ = b.Close() }()

		rc, err := b.ReadRange(ctx, 0, b.Size())
		if err != nil {
			yield(Row{}, fmt.Errorf("snapshot: read %s: %w", name, err))
			return
		}
		defer func() { _ = rc.Close() }()

		sr, err := NewReader(resource.NewRateLimitedReader(ctx, rc, r.rc), r.rc)
		if err != nil {
			yield(Row{}, fmt.Errorf("snapshot: %s: %w", name, err))
			return
		}

		var n int
		for row, err := range sr.All() {
			if err == nil && n%ctxCheckRows == 0 {
				err = ctx.Err()
			}
			n++
			if err != nil {
				yield(Row{}, err)
				return
			}
			if !yield(row, nil) {
				return
			}
		}
	}
}

// Models returns the ids of all models with at least one snapshot file.
func (r *Repository) Models(ctx context.Context) ([]string, error) {
	names, err := r.store.List(ctx, modelsDir+"/")
	if err != nil {
		return nil, fmt.Errorf("snapshot: list models: %w", err)
	}
	seen := make(map[string]struct{})
	var out []string
	for _, name := range names {
		dir, file := path.Split(name)
		if _, ok := parseFileName(file); !ok {
			continue
		}
		id := path.Base(dir)
		if path.Dir(path.Clean(dir)) != modelsDir {
			continue
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Drop removes the pointer and every snapshot of model.
func (r *Repository) Drop(ctx context.Context, model string) error {
	if err := ValidateModel(model); err != nil {
		return err
	}
	if err := r.store.Delete(ctx, modelPath(model, currentName)); err != nil {
		return fmt.Errorf("snapshot: drop %s: %w", model, err)
	}
	versions, err := r.versions(ctx, model)
	if err != nil {
		return err
	}
	for _, v := range versions {
		if err := r.store.Delete(ctx, modelPath(model, FileName(v))); err != nil {
			return fmt.Errorf("snapshot: drop %s: %w", model, err)
		}
	}
	return nil
}
