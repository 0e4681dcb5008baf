package download

import (
	"math"
	"path/filepath"

	"github.com/romsan-app/romsan/filesystem"
	"github.com/romsan-app/romsan/key"
	"github.com/romsan-app/romsan/util"
	"github.com/spf13/viper"
)

// Storage is the capability check consulted before any download or extraction
// job is submitted. Hosts with real volume introspection plug their own
// implementation in through WithStorage.
type Storage interface {
	// Writable returns a non-nil error when the directory cannot be created
	// or written to.
	Writable(dir string) error

	// FreeBytes reports the free space of the volume holding dir.
	FreeBytes(dir string) (uint64, error)
}

// minFreeSpaceFloorMiB is the hard lower bound of the free-space precondition,
// applied even when the configured threshold is smaller.
const minFreeSpaceFloorMiB = 50

func requiredFreeBytes() uint64 {
	configured := viper.GetInt64(key.DownloadMinFreeSpaceMiB)
	return uint64(util.Max(configured, minFreeSpaceFloorMiB)) << 20
}

// probeStorage is the default Storage. Writability is verified with a real
// probe file; free space is reported as unbounded since the virtualized
// filesystem has no volume statistics.
type probeStorage struct{}

func (probeStorage) Writable(dir string) error {
	fs := filesystem.API()
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return err
	}

	probe := filepath.Join(dir, ".romsan-probe")
	if err := fs.WriteFile(probe, []byte{}, 0644); err != nil {
		return err
	}
	return fs.Remove(probe)
}

func (probeStorage) FreeBytes(string) (uint64, error) {
	return math.MaxUint64, nil
}
