// Package storage implements the persistent, append-only storage layer for
// a single vector collection.
//
// A collection is a directory holding five files: a small textual metadata
// record (collection.meta), three append-only column segments (embeddings,
// ids, metadata), and a write-ahead log (wal.log) that carries at most one
// pending append.
//
// Durability protocol per append:
//
//	WAL write + fsync  →  segment writes, each + fsync  →  count increment  →  WAL truncate (best effort)
//
// The WAL is fsynced before any segment is touched, so a crash at any point
// leaves a state the recovery path in Open can reconcile: a pending record
// is replayed into the segments exactly once, then the WAL is cleared.
// Recovery is idempotent; a failed WAL truncate is harmless.
//
// The model is single-writer: one Store instance per collection directory,
// no internal locking. Concurrent Iterate calls are safe while no append is
// in flight; iterating during an append is unsupported.
package storage
