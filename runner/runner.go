// Package runner defines the boundary to the platform job scheduler executing
// download and extraction work, plus an in-process implementation for hosts
// without one.
//
// The core never assumes a run id survives a process restart: liveness is
// always re-derived through tag queries.
package runner

import "context"

// State is the lifecycle state of one submitted unit of work.
type State string

const (
	StateEnqueued  State = "enqueued"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
	StateBlocked   State = "blocked"
)

// Terminal reports whether no further updates follow this state.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateCancelled:
		return true
	}
	return false
}

// Policy controls what happens when work with an already-known id is submitted.
type Policy string

const (
	// PolicyKeepExisting ignores the new submission and returns the run id of
	// the work already in flight.
	PolicyKeepExisting Policy = "keep_existing"

	// PolicyReplace cancels the existing work and runs the new submission.
	PolicyReplace Policy = "replace"
)

// Update is one progress or terminal report from a running unit of work.
type Update struct {
	State    State
	Progress map[string]any
	Output   map[string]any
	Err      error
}

// Report lets a unit of work publish intermediate progress.
type Report func(progress map[string]any)

// Work is one submittable unit. Run executes on the runner's workers; a
// cancelled run sees its context done.
type Work struct {
	// ID is the caller-chosen uniqueness key, distinct from the run id the
	// runner assigns.
	ID     string
	Tags   []string
	Policy Policy
	Run    func(ctx context.Context, report Report) (map[string]any, error)
}

// Info describes one known run for tag queries.
type Info struct {
	RunID  string
	WorkID string
	Tags   []string
	State  State

	// Progress is the most recent progress report, nil before the first.
	Progress map[string]any
}

// Runner is the scheduler contract the orchestrator submits to and queries.
type Runner interface {
	// Submit enqueues work and returns its run id, honoring the work's
	// uniqueness policy.
	Submit(work Work) (string, error)

	// Observe streams state updates for a run until a terminal state, then
	// closes. The terminal update is always delivered: observing a run that
	// already finished yields its terminal update before the close, so a
	// subscriber attaching after Submit returns never misses the outcome.
	// Observing an unknown run yields a closed channel.
	Observe(runID string) <-chan Update

	// Cancel requests cancellation of a run. Unknown ids are ignored.
	Cancel(runID string)

	// CancelAll cancels every non-terminal run.
	CancelAll()

	// ByTag returns every known run carrying the tag.
	ByTag(tag string) []Info
}
