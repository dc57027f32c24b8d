package storage

import (
	"errors"
	"fmt"
)

// recoverWAL reconciles the segment files with the write-ahead log. Called
// by Open before the handle is returned; also establishes the authoritative
// item count, since collection.meta is only rewritten on clean close and
// may lag the fsynced segments after a crash.
//
// The contract: a fully written pending record is applied to the segments
// exactly once, no matter how many times recovery runs. A torn record
// belongs to an append that was never acknowledged and is discarded.
func (s *Store) recoverWAL() error {
	data, err := s.wal.contents()
	if err != nil {
		return err
	}

	st, err := inspectSegments(s.fsys, s.paths, s.meta.Dim)
	if err != nil {
		return err
	}

	if len(data) == 0 {
		// Nothing in flight: the segments must agree among themselves.
		if !st.consistent() {
			return fmt.Errorf("%w: segment record counts disagree (ids=%d embeddings=%d metadata=%d) and WAL is empty",
				ErrCorrupted, st.idRecords, st.embRecords, st.metaRecords())
		}
		if st.idRecords < s.meta.Count {
			return fmt.Errorf("%w: segments hold %d records, metadata claims %d",
				ErrCorrupted, st.idRecords, s.meta.Count)
		}
		s.meta.Count = st.idRecords
		return nil
	}

	item, derr := decodeWALRecord(data)
	if derr != nil {
		if !errors.Is(derr, errTornWALRecord) {
			return derr
		}
		// The crash hit mid-WAL-write: the segments were never touched
		// by this append. Cut back any older inconsistency and clear
		// the log.
		base := st.base()
		if !st.consistent() {
			if err := truncateSegments(s.fsys, s.paths, s.meta.Dim, st, base); err != nil {
				return err
			}
		}
		s.truncateWALBestEffort()
		s.meta.Count = base
		s.logger.Warn("discarded torn WAL record",
			"collection", s.paths.Name,
			"count", base,
		)
		return nil
	}

	if item.Vector.Dim != s.meta.Dim {
		return fmt.Errorf("%w: WAL record dimension %d does not match collection dimension %d",
			ErrCorrupted, item.Vector.Dim, s.meta.Dim)
	}

	if st.consistent() {
		applied, err := tailMatches(s.fsys, s.paths, s.meta.Dim, st, item)
		if err != nil {
			return err
		}
		if applied {
			// Crash (or truncate failure) after the segment writes
			// completed: nothing to replay.
			s.truncateWALBestEffort()
			s.meta.Count = st.idRecords
			s.logger.Info("WAL record already applied, cleared log",
				"collection", s.paths.Name,
				"id", item.ID,
				"count", s.meta.Count,
			)
			return nil
		}
	}

	// Replay: cut every segment back to the common full-record prefix,
	// then apply the pending record once.
	base := st.base()
	if err := truncateSegments(s.fsys, s.paths, s.meta.Dim, st, base); err != nil {
		return err
	}
	if err := s.segs.append(item, &s.c); err != nil {
		return err
	}
	s.truncateWALBestEffort()
	s.c.replays.Add(1)
	s.meta.Count = base + 1

	s.logger.Info("replayed pending WAL record",
		"collection", s.paths.Name,
		"id", item.ID,
		"count", s.meta.Count,
	)

	return nil
}

// truncateWALBestEffort clears the WAL if it can. Failure is non-fatal: the
// pending record is either torn or already applied, so a later recovery run
// reaches the same conclusion and tries again.
func (s *Store) truncateWALBestEffort() {
	if err := s.wal.truncate(); err != nil {
		s.walDirty = true
		s.logger.Warn("WAL truncate failed during recovery",
			"collection", s.paths.Name,
			"error", err,
		)
		return
	}
	s.c.walTruncates.Add(1)
}
