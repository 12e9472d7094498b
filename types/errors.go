package types

import "errors"

var (
	// ErrDuplicateSubs is returned when a subscriber label is already taken
	ErrDuplicateSubs = errors.New("duplicate subscriber")
	// ErrUnknownRun is returned when a run id is not in the store
	ErrUnknownRun = errors.New("unknown run")
)
