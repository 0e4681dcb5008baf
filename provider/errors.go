package provider

import (
	"errors"
	"fmt"
)

// Installation failure taxonomy. All of these reject the archive before any
// persistent state changes.
var (
	ErrInvalidArchive  = errors.New("invalid source archive")
	ErrMissingMetadata = errors.New("source metadata file missing")
	ErrMissingMapping  = errors.New("platform mapping file missing or malformed")
)

// ValidationError reports a descriptor field that failed backend-specific validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("source metadata validation failed: %s: %s", e.Field, e.Reason)
}
