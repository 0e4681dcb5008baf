package provider

import (
	"fmt"
	"path/filepath"

	"github.com/romsan-app/romsan/constant"
	"github.com/romsan-app/romsan/filesystem"
	"github.com/romsan-app/romsan/log"
	"github.com/romsan-app/romsan/source"
	"github.com/romsan-app/romsan/version"
	"github.com/romsan-app/romsan/where"
	"github.com/metafates/gache"
	"github.com/samber/lo"
	"golang.org/x/exp/slices"
)

// installedState is one entry of the persisted source configuration ledger.
type installedState struct {
	Descriptor *source.SourceDescriptor `json:"descriptor"`
	Enabled    bool                     `json:"enabled"`
}

// cacher provides the disk-backed registry of installed sources. Every mutation
// is flushed immediately; there is no write-behind.
var cacher = gache.New[map[string]*installedState](
	&gache.Options{
		Path:       where.Registry(),
		FileSystem: &filesystem.GacheFs{},
	},
)

func readStates() (map[string]*installedState, error) {
	cached, _, err := cacher.Get()
	if err != nil {
		return nil, err
	}
	if cached == nil {
		return make(map[string]*installedState), nil
	}
	return cached, nil
}

func writeStates(states map[string]*installedState) error {
	return cacher.Set(states)
}

// ListInstalled returns descriptors for every installed source, sorted by id.
//
// Recovery policy: an install directory with a parseable metadata file but no
// ledger entry (a crash between directory write and config write) is surfaced
// as installed and enabled by default, and the ledger entry is re-created.
func ListInstalled() ([]*source.SourceDescriptor, error) {
	states, err := readStates()
	if err != nil {
		return nil, err
	}

	recovered := recoverUntracked(states)
	if recovered {
		if err := writeStates(states); err != nil {
			log.Warnf("failed to persist recovered source entries: %v", err)
		}
	}

	descriptors := make([]*source.SourceDescriptor, 0, len(states))
	for id, state := range states {
		desc := state.Descriptor
		desc.InstallPath = filepath.Join(where.Sources(), id)
		desc.Enabled = state.Enabled
		descriptors = append(descriptors, desc)
	}

	slices.SortFunc(descriptors, func(a, b *source.SourceDescriptor) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})

	return descriptors, nil
}

// ListEnabled returns descriptors for installed sources that are enabled.
func ListEnabled() ([]*source.SourceDescriptor, error) {
	installed, err := ListInstalled()
	if err != nil {
		return nil, err
	}

	return lo.Filter(installed, func(d *source.SourceDescriptor, _ int) bool {
		return d.Enabled
	}), nil
}

// GetDescriptor returns the descriptor for an installed source id, nil when absent.
func GetDescriptor(id string) (*source.SourceDescriptor, error) {
	installed, err := ListInstalled()
	if err != nil {
		return nil, err
	}

	for _, desc := range installed {
		if desc.ID == id {
			return desc, nil
		}
	}
	return nil, nil
}

// SetEnabled flips the enabled flag of an installed source and flushes immediately.
func SetEnabled(id string, enabled bool) error {
	states, err := readStates()
	if err != nil {
		return err
	}

	state, ok := states[id]
	if !ok {
		return fmt.Errorf("source %q is not installed", id)
	}

	state.Enabled = enabled
	return writeStates(states)
}

// Uninstall removes the install directory and the ledger entry for a source.
// Idempotent: returns false when there was nothing to remove.
func Uninstall(id string) (bool, error) {
	states, err := readStates()
	if err != nil {
		return false, err
	}

	removed := false

	dir := filepath.Join(where.Sources(), id)
	if exists, _ := filesystem.API().DirExists(dir); exists {
		if err := filesystem.API().RemoveAll(dir); err != nil {
			return false, fmt.Errorf("remove source directory: %w", err)
		}
		removed = true
	}

	if _, ok := states[id]; ok {
		delete(states, id)
		if err := writeStates(states); err != nil {
			return removed, err
		}
		removed = true
	}

	return removed, nil
}

// CanUpdate reports whether candidate is a strictly newer version of an
// installed source. A not-installed id can never be updated, only installed.
func CanUpdate(candidate *source.SourceDescriptor) bool {
	current, err := GetDescriptor(candidate.ID)
	if err != nil || current == nil {
		return false
	}
	return version.IsNewer(candidate.Version, current.Version)
}

// recoverUntracked scans the sources directory for installs missing from the
// ledger and registers them enabled-by-default. Reports whether states changed.
func recoverUntracked(states map[string]*installedState) bool {
	entries, err := filesystem.API().ReadDir(where.Sources())
	if err != nil {
		return false
	}

	changed := false
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, tracked := states[entry.Name()]; tracked {
			continue
		}

		dir := filepath.Join(where.Sources(), entry.Name())
		raw, err := filesystem.API().ReadFile(filepath.Join(dir, constant.MetadataFile))
		if err != nil {
			continue
		}

		desc, err := ParseDescriptor(raw)
		if err != nil || desc.ID != entry.Name() {
			log.Warnf("ignoring untracked source directory %q: no valid metadata", entry.Name())
			continue
		}

		log.Warnf("recovered untracked source install %q; enabling by default", desc.ID)
		states[desc.ID] = &installedState{Descriptor: desc, Enabled: true}
		changed = true
	}

	return changed
}
