// Package download orchestrates download and extraction work: it checks
// storage preconditions, submits uniquely-tagged units of work to the task
// runner, and correlates terminal callbacks with the status ledger.
package download

import (
	"sync"

	"github.com/romsan-app/romsan/key"
	"github.com/romsan-app/romsan/runner"
	"github.com/romsan-app/romsan/util"
	"github.com/romsan-app/romsan/where"
	"github.com/spf13/viper"
)

// Tag prefixes let later lookups filter runs by job id, slug, URL or archive
// path interchangeably.
const (
	tagJobPrefix     = "job:"
	tagSlugPrefix    = "slug:"
	tagURLPrefix     = "url:"
	tagArchivePrefix = "archive:"
)

func tagJob(id string) string      { return tagJobPrefix + id }
func tagSlug(slug string) string   { return tagSlugPrefix + slug }
func tagURL(url string) string     { return tagURLPrefix + url }
func tagArchive(path string) string { return tagArchivePrefix + path }

// Orchestrator drives the download and extraction state machines on top of a
// task runner. It owns the single-writer discipline for ledger files and the
// per-slug serialization of download starts.
type Orchestrator struct {
	runner   runner.Runner
	storage  Storage
	resolver Resolver

	mu      sync.Mutex
	perSlug map[string]*sync.Mutex
}

// Option customizes an Orchestrator at construction time.
type Option func(*Orchestrator)

// WithStorage replaces the default writability/free-space probe.
func WithStorage(storage Storage) Option {
	return func(o *Orchestrator) { o.storage = storage }
}

// WithResolver installs the interactive page resolver used for protected links.
func WithResolver(resolver Resolver) Option {
	return func(o *Orchestrator) { o.resolver = resolver }
}

// NewOrchestrator constructs an orchestrator submitting to the given runner.
func NewOrchestrator(r runner.Runner, options ...Option) *Orchestrator {
	o := &Orchestrator{
		runner:  r,
		storage: probeStorage{},
		perSlug: make(map[string]*sync.Mutex),
	}
	for _, option := range options {
		option(o)
	}
	return o
}

// slugLock returns the mutex serializing download starts for one slug.
// Concurrent starts for two links of the same title are intentionally
// serialized rather than left undefined.
func (o *Orchestrator) slugLock(slug string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()

	m, ok := o.perSlug[slug]
	if !ok {
		m = &sync.Mutex{}
		o.perSlug[slug] = m
	}
	return m
}

// checkPreconditions verifies the directory is writable and the volume clears
// the free-space floor. A failure here means no job and no ledger state.
func (o *Orchestrator) checkPreconditions(dir string) error {
	if err := o.storage.Writable(dir); err != nil {
		return &StoragePermissionError{Dir: dir, Err: err}
	}

	free, err := o.storage.FreeBytes(dir)
	if err != nil {
		return &StoragePermissionError{Dir: dir, Err: err}
	}

	if required := requiredFreeBytes(); free < required {
		return &InsufficientStorageError{Dir: dir, FreeBytes: free, RequiredBytes: required}
	}

	return nil
}

// downloadDir resolves the effective download target directory.
func downloadDir() string {
	if configured := viper.GetString(key.DownloadPath); configured != "" {
		return configured
	}
	return where.Downloads()
}

// targetFilename builds the sanitized on-disk file name for a link, recovering
// an extension from the URL when the declared name lacks one.
func targetFilename(name, title, rawURL string) string {
	if name == "" {
		name = title
	}

	ext := util.RecoverExtension(name, rawURL)
	stem := util.FileStem(name)

	return util.SanitizeFilename(stem + ext)
}

// Observe streams state updates for a submitted job until its terminal state.
func (o *Orchestrator) Observe(jobHandle string) <-chan runner.Update {
	return o.runner.Observe(jobHandle)
}

// Cancel requests cancellation of one job. The ledger is never rolled back: a
// cancelled download simply wrote no completion line.
func (o *Orchestrator) Cancel(jobHandle string) {
	o.runner.Cancel(jobHandle)
}

// CancelAll cancels every job known to the runner.
func (o *Orchestrator) CancelAll() {
	o.runner.CancelAll()
}
