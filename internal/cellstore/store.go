package cellstore

import (
	"errors"
	"fmt"
	"iter"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/octogo/cell"
)

// DefaultShardBytes is the estimated size at which a new shard is started.
const DefaultShardBytes int64 = 32 << 20

// ErrDuplicateAddress is reported by Check when an address lives in more
// than one shard.
var ErrDuplicateAddress = errors.New("cellstore: address present in multiple shards")

type shard struct {
	mu    sync.RWMutex
	cells map[cell.Address]Record
	bytes atomic.Int64
}

func newShard() *shard {
	return &shard{cells: make(map[cell.Address]Record)}
}

func (s *shard) get(addr cell.Address) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.cells[addr]
	if !ok {
		return Record{}, false
	}
	return r.Clone(), true
}

func (s *shard) has(addr cell.Address) bool {
	s.mu.RLock()
	_, ok := s.cells[addr]
	s.mu.RUnlock()
	return ok
}

// union merges rec into an existing entry. It returns false if addr is absent.
func (s *shard) union(addr cell.Address, rec Record) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.cells[addr]
	if !ok {
		return false
	}
	before := estimate(cur)
	if rec.Elements != nil {
		cur.Elements.Or(rec.Elements)
	}
	s.bytes.Add(estimate(cur) - before)
	return true
}

func (s *shard) put(addr cell.Address, rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec = rec.Clone()
	if cur, ok := s.cells[addr]; ok {
		s.bytes.Add(-estimate(cur))
	}
	s.cells[addr] = rec
	s.bytes.Add(estimate(rec))
}

// Store is a sharded map from cell address to record.
type Store struct {
	mu        sync.RWMutex // guards the shard list, not the shards
	shards    []*shard
	threshold int64
}

// New returns a store holding only the root node. threshold <= 0 selects
// DefaultShardBytes.
func New(threshold int64) *Store {
	if threshold <= 0 {
		threshold = DefaultShardBytes
	}
	s := &Store{threshold: threshold}
	s.Reset()
	return s
}

// Threshold returns the shard size threshold in estimated bytes.
func (s *Store) Threshold() int64 {
	return s.threshold
}

// Reset drops all shards and starts over with one shard holding the root node.
func (s *Store) Reset() {
	sh := newShard()
	sh.put(cell.Root, NewNode())

	s.mu.Lock()
	s.shards = []*shard{sh}
	s.mu.Unlock()
}

func (s *Store) snapshot() []*shard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shards
}

// TryGet returns the index of the shard owning addr and a copy of its record.
func (s *Store) TryGet(addr cell.Address) (int, Record, bool) {
	for i, sh := range s.snapshot() {
		if r, ok := sh.get(addr); ok {
			return i, r, true
		}
	}
	return -1, Record{}, false
}

// Contains reports whether addr is stored.
func (s *Store) Contains(addr cell.Address) bool {
	for _, sh := range s.snapshot() {
		if sh.has(addr) {
			return true
		}
	}
	return false
}

// AddOrUpdate merges rec into the record at addr, or stores it as a new
// record. Merging unions the element sets and keeps the stored kind, so
// repeating an insertion is a no-op. It returns the index of the owning shard.
func (s *Store) AddOrUpdate(addr cell.Address, rec Record) int {
	shards := s.snapshot()
	for i, sh := range shards {
		if sh.union(addr, rec) {
			return i
		}
	}
	if rec.Kind == 0 {
		rec.Kind = Leaf
	}
	return s.insert(addr, rec, len(shards))
}

// insert places a new record into the newest shard, appending a shard first
// when the newest one is over the threshold. scanned is the length of the
// shard list the caller searched without finding addr. New addresses only
// ever land in the newest shard, so a concurrent insert of addr can only be
// in shards scanned-1 and later; those are merged into instead.
func (s *Store) insert(addr cell.Address, rec Record, scanned int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := max(scanned-1, 0); i < len(s.shards); i++ {
		if s.shards[i].union(addr, rec) {
			return i
		}
	}

	last := len(s.shards) - 1
	newest := s.shards[last]
	if newest.bytes.Load() >= s.threshold {
		newest = newShard()
		s.shards = append(s.shards, newest)
		last++
	}
	newest.put(addr, rec)
	return last
}

// Replace overwrites the record at addr. shardIndex is the owning shard as
// returned by TryGet, or -1 to locate it. An absent address is inserted.
// Passing a shard that does not own addr panics.
func (s *Store) Replace(addr cell.Address, rec Record, shardIndex int) {
	if rec.Kind == 0 {
		panic(fmt.Sprintf("cellstore: replace %v with a record of no kind", addr))
	}

	shards := s.snapshot()
	if shardIndex < 0 {
		for i, sh := range shards {
			if sh.has(addr) {
				shardIndex = i
				break
			}
		}
		if shardIndex < 0 {
			s.insert(addr, rec, len(shards))
			return
		}
	}
	if shardIndex >= len(shards) || !shards[shardIndex].has(addr) {
		panic(fmt.Sprintf("cellstore: %v is not owned by shard %d", addr, shardIndex))
	}
	shards[shardIndex].put(addr, rec)
}

// Len returns the number of stored cells.
func (s *Store) Len() int {
	n := 0
	for _, sh := range s.snapshot() {
		sh.mu.RLock()
		n += len(sh.cells)
		sh.mu.RUnlock()
	}
	return n
}

// NumShards returns the number of shards.
func (s *Store) NumShards() int {
	return len(s.snapshot())
}

// Range yields a copy of every record, shard by shard. Records inserted while
// ranging may or may not be seen.
func (s *Store) Range() iter.Seq2[cell.Address, Record] {
	return func(yield func(cell.Address, Record) bool) {
		for _, sh := range s.snapshot() {
			sh.mu.RLock()
			addrs := make([]cell.Address, 0, len(sh.cells))
			recs := make([]Record, 0, len(sh.cells))
			for a, r := range sh.cells {
				addrs = append(addrs, a)
				recs = append(recs, r.Clone())
			}
			sh.mu.RUnlock()

			for i := range addrs {
				if !yield(addrs[i], recs[i]) {
					return
				}
			}
		}
	}
}

// ShardStat describes one shard.
type ShardStat struct {
	Entries        int
	EstimatedBytes int64
}

// ShardStats returns per-shard statistics, oldest first.
func (s *Store) ShardStats() []ShardStat {
	shards := s.snapshot()
	out := make([]ShardStat, len(shards))
	for i, sh := range shards {
		sh.mu.RLock()
		out[i] = ShardStat{Entries: len(sh.cells), EstimatedBytes: sh.bytes.Load()}
		sh.mu.RUnlock()
	}
	return out
}

// Check verifies that no address lives in two shards.
func (s *Store) Check() error {
	owner := make(map[cell.Address]int)
	for i, sh := range s.snapshot() {
		sh.mu.RLock()
		for a := range sh.cells {
			if j, dup := owner[a]; dup {
				sh.mu.RUnlock()
				return fmt.Errorf("%w: %v in shards %d and %d", ErrDuplicateAddress, a, j, i)
			}
			owner[a] = i
		}
		sh.mu.RUnlock()
	}
	return nil
}
