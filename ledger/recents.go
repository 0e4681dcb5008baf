package ledger

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/romsan-app/romsan/filesystem"
	"github.com/romsan-app/romsan/where"
	"golang.org/x/exp/slices"
)

// maxRecents bounds the recently-opened list.
const maxRecents = 50

// Recent is one entry of the recently-opened list: a slug and the moment it
// was last opened, stored as `<slug>\t<timestampMillis>` lines.
type Recent struct {
	Slug       string
	OpenedAtMs int64
}

func recentsPath() string {
	return filepath.Join(where.Statuses(), recentsFile)
}

// Recents returns the recently-opened entries, most recent first.
func Recents() []Recent {
	raw, err := filesystem.API().ReadFile(recentsPath())
	if err != nil {
		return nil
	}

	var recents []Recent
	for _, line := range strings.Split(string(raw), "\n") {
		slug, stamp, found := strings.Cut(strings.TrimRight(line, "\r"), separator)
		if slug == "" {
			continue
		}

		recent := Recent{Slug: slug}
		if found {
			if ms, err := strconv.ParseInt(stamp, 10, 64); err == nil {
				recent.OpenedAtMs = ms
			}
		}
		recents = append(recents, recent)
	}

	// Stable keeps file order (newest first) for entries sharing a timestamp.
	slices.SortStableFunc(recents, func(a, b Recent) int {
		switch {
		case a.OpenedAtMs > b.OpenedAtMs:
			return -1
		case a.OpenedAtMs < b.OpenedAtMs:
			return 1
		}
		return 0
	})

	return recents
}

// TouchRecent records that a slug was just opened, moving it to the front and
// trimming the list to its bound.
func TouchRecent(slug string) error {
	recents := Recents()

	filtered := make([]Recent, 0, len(recents)+1)
	filtered = append(filtered, Recent{Slug: slug, OpenedAtMs: time.Now().UnixMilli()})
	for _, recent := range recents {
		if recent.Slug != slug {
			filtered = append(filtered, recent)
		}
	}

	if len(filtered) > maxRecents {
		filtered = filtered[:maxRecents]
	}

	var b strings.Builder
	for _, recent := range filtered {
		fmt.Fprintf(&b, "%s%s%d\n", recent.Slug, separator, recent.OpenedAtMs)
	}

	return filesystem.API().WriteFile(recentsPath(), []byte(b.String()), 0644)
}
