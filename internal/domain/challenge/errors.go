package challenge

import "errors"

// ErrInvalidChallenge marks a configuration rejected at authoring time.
var ErrInvalidChallenge = errors.New("invalid challenge")
