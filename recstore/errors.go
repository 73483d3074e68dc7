package recstore

import "errors"

var (
	// ErrInvalidFormat is returned when a key=value item has no '='
	ErrInvalidFormat = errors.New("invalid format")
	// ErrUnknownField is returned for a key that is not part of the schema
	ErrUnknownField = errors.New("unknown field")
	// ErrInvalidValue is returned for a value that can't be stored on a line
	ErrInvalidValue = errors.New("invalid value")
	// ErrMalformedRecord is returned when a stored line can't be decoded
	ErrMalformedRecord = errors.New("malformed record")
	// ErrIO wraps failures of the underlying filesystem operations
	ErrIO = errors.New("i/o failure")
)
