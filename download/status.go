package download

import (
	"path/filepath"
	"strings"

	"github.com/romsan-app/romsan/ledger"
	"github.com/romsan-app/romsan/runner"
	"github.com/romsan-app/romsan/source"
	"github.com/samber/lo"
)

// DownloadStatus is the download half of a link's state machine.
type DownloadStatus string

const (
	DownloadIdle       DownloadStatus = "idle"
	DownloadWaiting    DownloadStatus = "waiting"
	DownloadPending    DownloadStatus = "pending"
	DownloadInProgress DownloadStatus = "in_progress"
	DownloadCompleted  DownloadStatus = "completed"
)

// ExtractionStatus is the extraction half, reachable only once the download
// completed.
type ExtractionStatus string

const (
	ExtractionIdle       ExtractionStatus = "idle"
	ExtractionInProgress ExtractionStatus = "in_progress"
	ExtractionCompleted  ExtractionStatus = "completed"
	ExtractionFailed     ExtractionStatus = "failed"
)

// downloadStatusOf maps a live run onto the download state machine. A running
// job still sitting out a source-declared delay reads as waiting, taken from
// its last progress report. Terminal failure and cancellation both read as
// idle: retry is a fresh start.
func downloadStatusOf(info runner.Info) DownloadStatus {
	switch info.State {
	case runner.StateEnqueued, runner.StateBlocked:
		return DownloadPending
	case runner.StateRunning:
		if phase, _ := info.Progress["phase"].(string); phase == "waiting" {
			return DownloadWaiting
		}
		return DownloadInProgress
	case runner.StateSucceeded:
		return DownloadCompleted
	}
	return DownloadIdle
}

// liveRun returns the first non-terminal run carrying the tag.
func (o *Orchestrator) liveRun(tag string) (runner.Info, bool) {
	return lo.Find(o.runner.ByTag(tag), func(info runner.Info) bool {
		return !info.State.Terminal()
	})
}

// CheckLinkStatus resolves the current (download, extraction) state of one
// link: live download job by URL tag first, then the ledger under the
// sanitized name or any file discovered by URL, then live extraction job by
// archive-path tag, then the recorded extraction outcome.
func (o *Orchestrator) CheckLinkStatus(title string, link *source.DownloadLink) (DownloadStatus, ExtractionStatus) {
	if link == nil || link.URL == "" {
		return DownloadIdle, ExtractionIdle
	}

	if info, ok := o.liveRun(tagURL(link.URL)); ok {
		return downloadStatusOf(info), ExtractionIdle
	}

	targetFile := targetFilename(link.Name, title, link.URL)
	status := ledger.QueryStatus(targetFile, link.URL)
	if !status.Downloaded {
		// The completion line may sit under a different name when the final
		// resolved URL was recorded.
		if found, ok := ledger.FindFileByURL(link.URL); ok {
			targetFile = found
			status = ledger.QueryStatus(targetFile, link.URL)
		}
	}

	if !status.Downloaded {
		return DownloadIdle, ExtractionIdle
	}

	archivePath := filepath.Join(downloadDir(), targetFile)
	if _, ok := o.liveRun(tagArchive(archivePath)); ok {
		return DownloadCompleted, ExtractionInProgress
	}

	switch {
	case status.ExtractionPath != "":
		return DownloadCompleted, ExtractionCompleted
	case status.ExtractionError != "":
		return DownloadCompleted, ExtractionFailed
	}

	return DownloadCompleted, ExtractionIdle
}

// CheckRomStatus resolves a title-level status. Any live job tagged with the
// slug short-circuits; otherwise links are evaluated in order and the first
// non-idle one wins. This is a deliberate single-active-download
// approximation, not an all-links aggregate.
func (o *Orchestrator) CheckRomStatus(slug, title string, links []*source.DownloadLink) (DownloadStatus, ExtractionStatus) {
	if slug != "" {
		if info, ok := o.liveRun(tagSlug(slug)); ok {
			if strings.HasPrefix(info.WorkID, "extract:") {
				return DownloadCompleted, ExtractionInProgress
			}
			return downloadStatusOf(info), ExtractionIdle
		}
	}

	for _, link := range links {
		download, extraction := o.CheckLinkStatus(title, link)
		if download != DownloadIdle || extraction != ExtractionIdle {
			return download, extraction
		}
	}

	return DownloadIdle, ExtractionIdle
}
