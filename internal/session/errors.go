package session

import "errors"

// Validation errors returned by preference setters. The session is left
// unchanged whenever one of these is returned.
var (
	ErrInvalidTemperature = errors.New("temperature must be between 0.0 and 2.0")
	ErrInvalidMaxTokens   = errors.New("max tokens must be between 100 and 4000")
	ErrUnknownBackend     = errors.New("unknown backend")
	ErrUnknownModel       = errors.New("unknown model")
)
