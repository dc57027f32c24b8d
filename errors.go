package vdb

import (
	"errors"
	"fmt"

	"github.com/hupe1980/vdb/storage"
)

var (
	// ErrInvalidArgument is returned for bad names, dimensions, metrics,
	// ids, or nil visitors.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound is returned when the requested collection does not exist.
	ErrNotFound = errors.New("collection not found")

	// ErrAlreadyExists is returned when creating a collection that is
	// already present.
	ErrAlreadyExists = errors.New("collection already exists")

	// ErrCorrupted is returned when on-disk state cannot be parsed or
	// repaired from the WAL.
	ErrCorrupted = errors.New("collection corrupted")

	// ErrClosed is returned by operations on a closed collection.
	ErrClosed = errors.New("collection is closed")

	// ErrIO wraps OS-level read, write, sync, or open failures.
	ErrIO = errors.New("i/o failure")
)

// ErrDimensionMismatch indicates a vector whose dimension differs from the
// collection's dimension.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var dm *storage.ErrDimensionMismatch
	if errors.As(err, &dm) {
		return &ErrDimensionMismatch{Expected: dm.Expected, Actual: dm.Actual, cause: err}
	}

	switch {
	case errors.Is(err, storage.ErrInvalidArgument):
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, storage.ErrAlreadyExists):
		return fmt.Errorf("%w: %w", ErrAlreadyExists, err)
	case errors.Is(err, storage.ErrCorrupted):
		return fmt.Errorf("%w: %w", ErrCorrupted, err)
	case errors.Is(err, storage.ErrClosed):
		return fmt.Errorf("%w: %w", ErrClosed, err)
	case errors.Is(err, storage.ErrIO):
		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	return err
}
