package storage

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by store lookups when the row does not exist.
var ErrNotFound = errors.New("row not found")

// StoreError wraps any store-level or network-level failure with the
// operation name and the target row/document. Adapters never retry
// internally; retry policy belongs to the caller.
type StoreError struct {
	Op     string
	Target string
	Err    error
}

func (e *StoreError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s %q: %v", e.Op, e.Target, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func NewStoreError(op, target string, err error) *StoreError {
	return &StoreError{Op: op, Target: target, Err: err}
}
