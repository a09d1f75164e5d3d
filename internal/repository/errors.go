package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrStoreUnavailable indicates the backing store could not be reached
	// or timed out. Callers must interpret this explicitly and never treat
	// it as "not found".
	ErrStoreUnavailable = errors.New("repository: store unavailable")
)
