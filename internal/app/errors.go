package service

import (
	"errors"

	"github.com/okian/forfeit/internal/adapters/repository"
	"github.com/okian/forfeit/internal/domain/challenge"
	"github.com/okian/forfeit/internal/domain/penalty"
)

// Sentinel kinds for service errors. Several alias lower-layer sentinels so
// callers can match on this package alone.
var (
	ErrMissingSubmission    = penalty.ErrMissingSubmission
	ErrInvalidChallenge     = challenge.ErrInvalidChallenge
	ErrConcurrencyConflict  = repository.ErrConcurrencyConflict
	ErrInvalidLimit         = repository.ErrInvalidLimit
	ErrAccountNotRanked     = repository.ErrNotFound
	ErrChallengeNotFound    = errors.New("challenge not found")
	ErrUnknownChallengeType = errors.New("unknown challenge type")
	ErrAccountRequired      = errors.New("account id is required")
	ErrNotStarted           = errors.New("service not started")
	ErrStoreUnavailable     = errors.New("store unavailable")
)
