package stream

import "errors"

// Input validation errors. They are detected when an operator is added and
// returned by the terminal call before anything is fetched.
var (
	// ErrUnknownAttribute is returned for an attribute the record type does
	// not expose.
	ErrUnknownAttribute = errors.New("unknown attribute")

	// ErrInvalidInstant is returned for a time bound that cannot be parsed.
	ErrInvalidInstant = errors.New("invalid instant")

	// ErrInvalidArgument is returned for a negative count.
	ErrInvalidArgument = errors.New("invalid argument")
)
