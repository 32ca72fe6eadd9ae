package ledger

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced record (car, category, frozen
// entry) does not exist in the store.
var ErrNotFound = errors.New("ledger: record not found")

// StoreError wraps any backend I/O failure (auth, network, rate limit) so
// callers can distinguish store trouble from domain errors. Multi-row
// operations are not atomic: a StoreError between the appends of a transfer
// leaves the ledger half-applied, with no automatic compensation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("ledger store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError wraps err with the failing operation name.
func NewStoreError(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}

// IsStoreError reports whether err is (or wraps) a backend I/O failure.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
