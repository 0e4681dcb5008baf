package aggregate

import (
	"errors"
	"fmt"
)

// Precondition errors a search surfaces instead of silently returning nothing.
var (
	ErrNoSourcesInstalled        = errors.New("no sources are installed")
	ErrNoSourcesEnabled          = errors.New("no sources are enabled")
	ErrNoMatchingSelectedSources = errors.New("none of the selected sources is enabled")
)

// SourceFetchError reports one source's failure during a fan-out. It is
// logged and counted, never fatal to the aggregate.
type SourceFetchError struct {
	SourceID string
	Err      error
}

func (e *SourceFetchError) Error() string {
	return fmt.Sprintf("source %s failed: %v", e.SourceID, e.Err)
}

func (e *SourceFetchError) Unwrap() error {
	return e.Err
}

// wrapUnknown normalizes unexpected failures into a single recognizable kind
// while preserving the underlying message.
func wrapUnknown(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("unexpected aggregation failure: %w", err)
}
