package ldif

import "errors"

var (
	// ErrLineTooLong is returned when a physical line exceeds Options.MaxLineBytes.
	ErrLineTooLong = errors.New("ldif: line too long")

	// ErrEmptyAttribute is returned when an operation needs an attribute name and got none.
	ErrEmptyAttribute = errors.New("ldif: attribute name is empty")
)
