package s3

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/octogo/blobstore"
)

func newTestCommitStore() *DDBCommitStore {
	return NewDDBCommitStore(NewStore(new(mockS3Client), "bucket", "octogo"), newMemDDB(), "commits", "s3://bucket/octogo")
}

func TestDDBCommitStore_Pointer(t *testing.T) {
	ctx := context.Background()
	s := newTestCommitStore()

	_, err := s.Open(ctx, "models/a/CURRENT")
	require.ErrorIs(t, err, blobstore.ErrNotFound)

	require.NoError(t, s.Put(ctx, "models/a/CURRENT", []byte("cells-1.oct")))
	require.NoError(t, s.Put(ctx, "models/a/CURRENT", []byte("cells-2.oct")))
	require.NoError(t, s.Put(ctx, "models/b/CURRENT", []byte("cells-9.oct")))

	got, err := blobstore.ReadAll(ctx, s, "models/a/CURRENT")
	require.NoError(t, err)
	assert.Equal(t, "cells-2.oct", string(got))

	v, err := s.Version(ctx, "models/a/CURRENT")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), v)

	require.NoError(t, s.Delete(ctx, "models/a/CURRENT"))
	_, err = s.Open(ctx, "models/a/CURRENT")
	require.ErrorIs(t, err, blobstore.ErrNotFound)

	got, err = blobstore.ReadAll(ctx, s, "models/b/CURRENT")
	require.NoError(t, err)
	assert.Equal(t, "cells-9.oct", string(got))

	_, err = s.Create(ctx, "models/b/CURRENT")
	assert.Error(t, err)
}

func TestDDBCommitStore_ConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	s := newTestCommitStore()

	var (
		wg        sync.WaitGroup
		ok, clash atomic.Int64
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Put(ctx, "models/a/CURRENT", []byte("x"))
			switch {
			case err == nil:
				ok.Add(1)
			case assert.ErrorIs(t, err, ErrConcurrentModification):
				clash.Add(1)
			}
		}()
	}
	wg.Wait()

	v, err := s.Version(ctx, "models/a/CURRENT")
	require.NoError(t, err)
	assert.Equal(t, uint64(ok.Load()), v)
	assert.Equal(t, int64(16), ok.Load()+clash.Load())
}
