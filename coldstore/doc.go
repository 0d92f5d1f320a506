// Package coldstore provides the persistent tier that evicted values are
// flushed to and read back from.
//
// Store is the interface for writing and reading cold objects. Implementations
// must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - MemoryStore: in-memory, for tests and volatile deployments
//   - LocalStore: local filesystem with atomic temp+rename writes
//   - s3.Store: Amazon S3 with managed parallel uploads
//   - minio.Store: MinIO and other S3-compatible object stores
//
// # Decorators
//
//   - CompressingStore: transparent zstd or lz4 compression per object
//   - CachingStore: read-through block cache in front of remote backends
//
// Decorators compose; a typical remote setup is
// CachingStore(CompressingStore(s3.Store)).
package coldstore
