package reconcile

import "errors"

var (
	// ErrConfiguration is returned when a required setting is missing or out of range.
	ErrConfiguration = errors.New("invalid sync configuration")
	// ErrInvalidArgument is returned when a caller passes unusable input.
	ErrInvalidArgument = errors.New("invalid argument")
)
