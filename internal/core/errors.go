package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrImportInProgress matches the error returned when another run holds
	// the lock of the same kind.
	ErrImportInProgress = errors.New("import already in progress")

	// ErrRunNotFound is returned for unknown or evicted asynchronous runs.
	ErrRunNotFound = errors.New("import run not found")

	// ErrUnknownKind and ErrUnknownMode reject names outside the catalog.
	ErrUnknownKind = errors.New("unknown kind")
	ErrUnknownMode = errors.New("unknown import mode")
)

// SchemaError reports required fields that no header of the file resolves
// to. It aborts the import before any row is processed.
type SchemaError struct {
	Kind    Kind
	Missing []string
}

func (e *SchemaError) Error() string {
	return "Missing required fields: " + strings.Join(e.Missing, ", ")
}

// PersistenceError is a failed store call during commit. Batch is 1-based;
// batch 0 is the replace-mode wipe.
type PersistenceError struct {
	Batch int
	Err   error
}

func (e *PersistenceError) Error() string {
	if e.Batch == 0 {
		return fmt.Sprintf("Failed to clear existing data: %v", e.Err)
	}
	return fmt.Sprintf("Batch %d failed: %v", e.Batch, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// KindLockedError is returned by a Locker when the kind is already locked.
type KindLockedError struct {
	Kind Kind
}

func (e *KindLockedError) Error() string {
	return fmt.Sprintf("another import for %s is already running", e.Kind)
}

// Is lets errors.Is(err, ErrImportInProgress) match.
func (e *KindLockedError) Is(target error) bool {
	return target == ErrImportInProgress
}
