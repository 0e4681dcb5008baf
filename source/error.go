package source

import "fmt"

// Error wraps any backend-level failure with the identity of the misbehaving
// source, so one failing source never aborts a fan-out across the others.
type Error struct {
	SourceID string
	Op       string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("source %s: %s: %v", e.SourceID, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WrapErr attaches source identity to an error, passing nil through.
func WrapErr(sourceID, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{SourceID: sourceID, Op: op, Err: err}
}
