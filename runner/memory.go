package runner

import (
	"context"
	"sync"

	"github.com/romsan-app/romsan/log"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Memory is an in-process Runner backed by one goroutine per unit of work.
// It keeps terminal runs queryable by tag for the process lifetime, which is
// exactly the durability the boundary promises: none.
type Memory struct {
	mu   sync.Mutex
	runs map[string]*memoryRun // keyed by run id
}

// NewMemory constructs an empty in-process runner.
func NewMemory() *Memory {
	return &Memory{runs: make(map[string]*memoryRun)}
}

type memoryRun struct {
	id     string
	workID string
	tags   []string

	cancel context.CancelFunc

	mu        sync.Mutex
	state     State
	progress  map[string]any
	final     *Update
	observers []chan Update
}

func (r *memoryRun) snapshot() Info {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Info{RunID: r.id, WorkID: r.workID, Tags: r.tags, State: r.state, Progress: r.progress}
}

// publish fans an update out to observers; terminal updates close the streams.
// Progress reports may be dropped for slow observers, terminal updates never
// are: the outcome must reach every subscriber exactly once.
func (r *memoryRun) publish(update Update) {
	r.mu.Lock()
	r.state = update.State
	if update.Progress != nil {
		r.progress = update.Progress
	}
	observers := r.observers
	if update.State.Terminal() {
		r.final = &update
		r.observers = nil
	}
	r.mu.Unlock()

	for _, observer := range observers {
		if !update.State.Terminal() {
			select {
			case observer <- update:
			default:
				// A stalled observer must not block the worker.
			}
			continue
		}

		// Make room by discarding queued non-terminal updates if needed. The
		// worker is the only sender, so the buffer cannot refill underneath.
		for delivered := false; !delivered; {
			select {
			case observer <- update:
				delivered = true
			default:
				select {
				case <-observer:
				default:
				}
			}
		}
		close(observer)
	}
}

// Submit enqueues the work. With PolicyKeepExisting, a live run with the same
// work id wins and its run id is returned instead.
func (m *Memory) Submit(work Work) (string, error) {
	m.mu.Lock()

	if work.Policy == "" {
		work.Policy = PolicyKeepExisting
	}

	for _, run := range m.runs {
		if run.workID != work.ID || run.snapshotStateLocked().Terminal() {
			continue
		}
		switch work.Policy {
		case PolicyKeepExisting:
			m.mu.Unlock()
			log.Debugf("runner: keeping existing run %s for work %s", run.id, work.ID)
			return run.id, nil
		case PolicyReplace:
			run.cancel()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	run := &memoryRun{
		id:     uuid.NewString(),
		workID: work.ID,
		tags:   work.Tags,
		cancel: cancel,
		state:  StateEnqueued,
	}
	m.runs[run.id] = run
	m.mu.Unlock()

	go m.execute(ctx, run, work)

	return run.id, nil
}

func (r *memoryRun) snapshotStateLocked() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (m *Memory) execute(ctx context.Context, run *memoryRun, work Work) {
	run.publish(Update{State: StateRunning})

	report := func(progress map[string]any) {
		if ctx.Err() != nil {
			return
		}
		run.publish(Update{State: StateRunning, Progress: progress})
	}

	output, err := work.Run(ctx, report)

	switch {
	case ctx.Err() != nil:
		run.publish(Update{State: StateCancelled})
	case err != nil:
		run.publish(Update{State: StateFailed, Err: err})
	default:
		run.publish(Update{State: StateSucceeded, Output: output})
	}
}

// Observe returns a stream of updates for the run, closed after the terminal
// state. A run that already finished replays its terminal update before the
// close; only unknown runs yield a bare closed channel.
func (m *Memory) Observe(runID string) <-chan Update {
	ch := make(chan Update, 16)

	m.mu.Lock()
	run, ok := m.runs[runID]
	m.mu.Unlock()

	if !ok {
		close(ch)
		return ch
	}

	run.mu.Lock()
	if run.state.Terminal() {
		final := run.final
		run.mu.Unlock()
		if final != nil {
			ch <- *final
		}
		close(ch)
		return ch
	}
	run.observers = append(run.observers, ch)
	run.mu.Unlock()

	return ch
}

// Cancel requests cancellation of one run.
func (m *Memory) Cancel(runID string) {
	m.mu.Lock()
	run, ok := m.runs[runID]
	m.mu.Unlock()

	if ok {
		run.cancel()
	}
}

// CancelAll cancels every non-terminal run.
func (m *Memory) CancelAll() {
	m.mu.Lock()
	runs := lo.Values(m.runs)
	m.mu.Unlock()

	for _, run := range runs {
		if !run.snapshotStateLocked().Terminal() {
			run.cancel()
		}
	}
}

// ByTag returns every known run carrying the tag.
func (m *Memory) ByTag(tag string) []Info {
	m.mu.Lock()
	runs := lo.Values(m.runs)
	m.mu.Unlock()

	var infos []Info
	for _, run := range runs {
		if lo.Contains(run.tags, tag) {
			infos = append(infos, run.snapshot())
		}
	}
	return infos
}
