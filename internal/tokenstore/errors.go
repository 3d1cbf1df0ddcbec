package tokenstore

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates no record has been persisted for the slot.
var ErrNotFound = errors.New("no token record for slot")

// CorruptError indicates a persisted artifact exists but could not be read
// back: unparseable wrapper, failed integrity check, or wrong envelope key.
// Callers treat the slot as not authenticated; the artifact is left in
// place for inspection.
type CorruptError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *CorruptError) Error() string {
	return fmt.Sprintf("token record at %s is unreadable: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *CorruptError) Unwrap() error {
	return e.Err
}
