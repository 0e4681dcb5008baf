package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/romsan-app/romsan/constant"
	"github.com/romsan-app/romsan/filesystem"
	"github.com/romsan-app/romsan/ledger"
	"github.com/romsan-app/romsan/log"
	"github.com/romsan-app/romsan/network"
	"github.com/romsan-app/romsan/runner"
	"github.com/romsan-app/romsan/source"
	"github.com/romsan-app/romsan/util"
)

// Request describes one download start.
type Request struct {
	Slug  string
	Title string
	Link  *source.DownloadLink

	// TargetPathOverride replaces the default download directory and file name.
	TargetPathOverride string

	// ResolvedURL and CookieHeader carry the outcome of an already-performed
	// page resolution. When absent and the link needs one, the orchestrator's
	// resolver is consulted inside the job.
	ResolvedURL  string
	CookieHeader string
}

// StartDownload checks storage preconditions, then submits one download job
// tagged by job id, slug and URL. Starts for the same slug are serialized; a
// second start for the same URL joins the existing job instead of duplicating
// it. The ledger completion line is written only when the job succeeds.
func (o *Orchestrator) StartDownload(ctx context.Context, req Request) (string, error) {
	if req.Link == nil || req.Link.URL == "" {
		return "", fmt.Errorf("download request carries no link URL")
	}

	lock := o.slugLock(req.Slug)
	lock.Lock()
	defer lock.Unlock()

	dir := downloadDir()
	filename := targetFilename(req.Link.Name, req.Title, req.Link.URL)
	if req.TargetPathOverride != "" {
		dir = filepath.Dir(req.TargetPathOverride)
		filename = filepath.Base(req.TargetPathOverride)
	}

	if err := o.checkPreconditions(dir); err != nil {
		return "", err
	}

	destPath := filepath.Join(dir, filename)

	if err := ledger.RecordDownloadStarted(filename, req.Slug); err != nil {
		log.Warnf("failed to record download start for %s: %v", filename, err)
	}

	workID := "download:" + req.Link.URL
	runID, err := o.runner.Submit(runner.Work{
		ID:     workID,
		Tags:   []string{tagJob(workID), tagSlug(req.Slug), tagURL(req.Link.URL)},
		Policy: runner.PolicyKeepExisting,
		Run:    o.downloadWork(req, destPath),
	})
	if err != nil {
		return "", err
	}

	go o.recordOnCompletion(runID, workID, filename, req.Slug, req.Link.URL)

	return runID, nil
}

// downloadWork builds the unit of work performing the transfer: optional wait,
// optional page resolution, then a streamed HTTP GET into the target file.
func (o *Orchestrator) downloadWork(req Request, destPath string) func(context.Context, runner.Report) (map[string]any, error) {
	link := req.Link

	return func(ctx context.Context, report runner.Report) (map[string]any, error) {
		finalURL := req.ResolvedURL
		cookie := req.CookieHeader

		if finalURL == "" && link.DelaySeconds > 0 {
			if err := waitOut(ctx, link.DelaySeconds, report); err != nil {
				return nil, err
			}
		}

		if finalURL == "" && link.NeedsResolver {
			if o.resolver == nil {
				return nil, fmt.Errorf("link %s requires page resolution but no resolver is installed", link.URL)
			}

			resolved, err := o.resolver.Resolve(ctx, link.URL, link.DelaySeconds)
			if err != nil {
				return nil, fmt.Errorf("resolving %s: %w", link.URL, err)
			}
			finalURL = resolved.FinalURL
			cookie = resolved.CookieHeader
		}

		if finalURL == "" {
			finalURL = link.URL
		}

		if err := fetchToFile(ctx, finalURL, cookie, destPath, report); err != nil {
			return nil, err
		}

		return map[string]any{"path": destPath, "final_url": finalURL}, nil
	}
}

// waitOut sleeps through a source-declared delay, reporting the remaining
// seconds so observers can surface a waiting phase.
func waitOut(ctx context.Context, seconds int, report runner.Report) error {
	for remaining := seconds; remaining > 0; remaining-- {
		report(map[string]any{"phase": "waiting", "remaining_seconds": remaining})

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return nil
}

func fetchToFile(ctx context.Context, rawURL, cookie, destPath string, report runner.Report) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	request.Header.Set("User-Agent", constant.UserAgent)
	if cookie != "" {
		request.Header.Set("Cookie", cookie)
	}

	response, err := network.Client.Do(request)
	if err != nil {
		return err
	}
	defer util.Ignore(response.Body.Close)

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading %s: status %s", rawURL, response.Status)
	}

	file, err := filesystem.API().Create(destPath)
	if err != nil {
		return err
	}
	defer util.Ignore(file.Close)

	report(map[string]any{"phase": "downloading", "bytes": int64(0), "total": response.ContentLength})

	counter := &progressWriter{total: response.ContentLength, report: report}
	if _, err := io.Copy(io.MultiWriter(file, counter), response.Body); err != nil {
		util.Ignore(func() error { return filesystem.API().Remove(destPath) })
		return err
	}

	return nil
}

// progressWriter reports transferred byte counts at a bounded rate.
type progressWriter struct {
	total    int64
	written  int64
	lastSent int64
	report   runner.Report
}

// reportEveryBytes throttles progress updates.
const reportEveryBytes = 256 << 10

func (w *progressWriter) Write(p []byte) (int, error) {
	w.written += int64(len(p))
	if w.written-w.lastSent >= reportEveryBytes {
		w.lastSent = w.written
		w.report(map[string]any{"phase": "downloading", "bytes": w.written, "total": w.total})
	}
	return len(p), nil
}

// recordOnCompletion is the single ledger writer for a download job: only a
// terminal succeeded update produces a completion line. Failures and
// cancellations leave the ledger untouched.
//
// Observe replays the terminal update for runs that finished before the
// subscription attached. Should a runner close the stream without one anyway,
// the outcome is re-derived through the tag query so a fast download can never
// complete unrecorded.
func (o *Orchestrator) recordOnCompletion(runID, workID, targetFile, slug, nominalURL string) {
	sawTerminal := false

	for update := range o.runner.Observe(runID) {
		if update.State.Terminal() {
			sawTerminal = true
		}
		if update.State != runner.StateSucceeded {
			continue
		}

		finalURL, _ := update.Output["final_url"].(string)
		o.writeCompletion(targetFile, slug, finalURL, nominalURL)
	}

	if sawTerminal {
		return
	}

	for _, info := range o.runner.ByTag(tagJob(workID)) {
		if info.RunID == runID && info.State == runner.StateSucceeded {
			o.writeCompletion(targetFile, slug, nominalURL, nominalURL)
		}
	}
}

func (o *Orchestrator) writeCompletion(targetFile, slug, finalURL, nominalURL string) {
	if err := ledger.RecordDownloadCompleted(targetFile, slug, finalURL, nominalURL); err != nil {
		log.Errorf("failed to record completed download %s: %v", targetFile, err)
	}
}
