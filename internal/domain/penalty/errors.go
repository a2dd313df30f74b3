package penalty

import "errors"

// Sentinel kinds for assessment errors.
var (
	ErrMissingSubmission = errors.New("missing submission text")
	ErrNoChallenge       = errors.New("attempt has no challenge")
)
