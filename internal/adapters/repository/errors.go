package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidLimit        = errors.New("invalid scoreboard limit")
	ErrAlreadyExists       = errors.New("already exists")
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	ErrUnsupportedDriver   = errors.New("unsupported database driver")
	ErrClosed              = errors.New("store is closed")
)
