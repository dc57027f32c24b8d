package storage

import "sync/atomic"

// Stats is a point-in-time snapshot of the storage counters of one open
// handle. Cheap to collect; all counters are monotonic for the lifetime of
// the handle.
type Stats struct {
	Appends      uint64 // successful appends
	Replays      uint64 // WAL records replayed during recovery
	Fsyncs       uint64 // fsync calls issued
	WALTruncates uint64 // successful WAL truncations
	BytesWritten uint64 // payload bytes written to WAL and segments
}

type counters struct {
	appends      atomic.Uint64
	replays      atomic.Uint64
	fsyncs       atomic.Uint64
	walTruncates atomic.Uint64
	bytesWritten atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Appends:      c.appends.Load(),
		Replays:      c.replays.Load(),
		Fsyncs:       c.fsyncs.Load(),
		WALTruncates: c.walTruncates.Load(),
		BytesWritten: c.bytesWritten.Load(),
	}
}
