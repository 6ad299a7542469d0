package domain

import "errors"

var (
	// ErrNotFound means no row matched, or a referenced entity could not be resolved.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a uniqueness constraint rejected the write.
	ErrConflict = errors.New("conflict")
	// ErrInvalidInput means required fields were missing or referenced ids did not resolve.
	ErrInvalidInput = errors.New("invalid input")
	// ErrStorage hides driver failures from callers. Details are logged by the store.
	ErrStorage = errors.New("storage failure")
)
