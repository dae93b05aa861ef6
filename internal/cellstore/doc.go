// Package cellstore holds the cells of one octree model.
//
// Records live in an ordered list of shards. Each shard is a map guarded by
// its own RWMutex with an estimated byte size; once the newest shard's
// estimate crosses the threshold, the next new address goes into a freshly
// appended shard. Lookups scan shards oldest-first.
//
// Each shard is safe for concurrent use on its own. Operations that touch
// several shards are not atomic as a whole: a concurrent reader may briefly
// miss a record that is being inserted, but never observes a torn record.
package cellstore
