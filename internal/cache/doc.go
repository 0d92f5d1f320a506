// Package cache provides LRU caching for cold data blocks read back from a
// cold store.
//
// # Block Cache (RAM)
//
// The ShardedLRUBlockCache stores recently read value and row group blocks.
// It uses 64-way sharding for high concurrency.
//
// Key features:
//   - Fast shard selection via maphash over the cold store key
//   - Per-shard mutex for minimal contention
//   - Admission draws from the resource controller's cache budget
//
// # Disk Cache (L2)
//
// For remote cold stores, DiskBlockCache provides a persistent L2 cache:
//   - Async writes to avoid blocking the read-back path
//   - LRU eviction with configurable size limits
//   - Rebuilds index from disk on startup
package cache
