package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned for bad names, dimensions, metrics,
	// ids, or nil visitors.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound is returned when the collection directory or its
	// metadata file does not exist.
	ErrNotFound = errors.New("collection not found")

	// ErrAlreadyExists is returned when creating over an existing
	// collection, or when a path exists but is not a directory.
	ErrAlreadyExists = errors.New("already exists")

	// ErrCorrupted is returned when on-disk state fails to parse or
	// fails validation and cannot be repaired from the WAL.
	ErrCorrupted = errors.New("data corrupted")

	// ErrIO wraps any OS-level read, write, sync, or open failure.
	ErrIO = errors.New("i/o failure")

	// ErrClosed is returned by operations on a closed Store.
	ErrClosed = errors.New("storage is closed")
)

// ErrDimensionMismatch indicates an append whose vector dimension differs
// from the collection's dimension.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}
