package registry

import "errors"

// Sentinel kinds for registry errors.
var (
	ErrUnknownType   = errors.New("unknown challenge type")
	ErrDuplicateType = errors.New("challenge type registered twice")
)
