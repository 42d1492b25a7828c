package store

import (
	"errors"
	"fmt"
)

var (
	// ErrWrite marks persistence failures. Data stored before the failed
	// write is left untouched.
	ErrWrite = errors.New("could not save")
	// ErrCorrupt marks a blob that cannot be decoded into bills.
	ErrCorrupt = errors.New("corrupt ledger data")
	// ErrIDSpace is returned when the id generator keeps colliding.
	ErrIDSpace = errors.New("could not allocate a unique id")
	// ErrCorruptSpace is returned when every preserved-blob slot is taken.
	ErrCorruptSpace = errors.New("too many preserved corrupt blobs, reset required")
)

// WriteError wraps a backend failure during a mutation.
type WriteError struct {
	Op  string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrWrite) true for every WriteError.
func (e *WriteError) Is(target error) bool {
	return target == ErrWrite
}
