package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/romsan-app/romsan/filesystem"
	"github.com/romsan-app/romsan/ledger"
	"github.com/romsan-app/romsan/log"
	"github.com/romsan-app/romsan/runner"
	"github.com/romsan-app/romsan/util"
	"github.com/mholt/archives"
)

// ExtractionRequest describes one extraction start.
type ExtractionRequest struct {
	// ArchivePath is the absolute path of the downloaded file.
	ArchivePath string

	// DestDir receives the extracted contents; when empty a directory named
	// after the title under the download directory is used.
	DestDir string

	Title string
	Slug  string

	// URL keys the ledger outcome line. When empty, the first URL recorded for
	// the archive's ledger file is used.
	URL string
}

// StartExtraction checks storage preconditions and submits one extraction job
// with the archive path embedded in its tags. Non-archive files are copied to
// the destination rather than rejected. The outcome, success or failure, is
// recorded in the ledger.
func (o *Orchestrator) StartExtraction(ctx context.Context, req ExtractionRequest) (string, error) {
	if req.ArchivePath == "" {
		return "", fmt.Errorf("extraction request carries no archive path")
	}

	destDir := req.DestDir
	if destDir == "" {
		destDir = filepath.Join(downloadDir(), util.SanitizeFilename(req.Title))
	}

	if err := o.checkPreconditions(destDir); err != nil {
		return "", err
	}

	tags := []string{tagArchive(req.ArchivePath)}
	if req.Slug != "" {
		tags = append(tags, tagSlug(req.Slug))
	}

	workID := "extract:" + req.ArchivePath
	tags = append(tags, tagJob(workID))

	runID, err := o.runner.Submit(runner.Work{
		ID:     workID,
		Tags:   tags,
		Policy: runner.PolicyKeepExisting,
		Run: func(ctx context.Context, report runner.Report) (map[string]any, error) {
			if err := extractOrCopy(ctx, req.ArchivePath, destDir, report); err != nil {
				return nil, err
			}
			return map[string]any{"path": destDir}, nil
		},
	})
	if err != nil {
		return "", err
	}

	go o.recordExtractionOutcome(runID, workID, req, destDir)

	return runID, nil
}

// extractOrCopy unpacks a recognized archive into destDir; a file no known
// format matches is copied there instead.
func extractOrCopy(ctx context.Context, archivePath, destDir string, report runner.Report) error {
	fs := filesystem.API()

	f, err := fs.Open(archivePath)
	if err != nil {
		return err
	}
	defer util.Ignore(f.Close)

	format, stream, err := archives.Identify(ctx, filepath.Base(archivePath), f)
	if errors.Is(err, archives.NoMatch) {
		return copyFile(archivePath, filepath.Join(destDir, filepath.Base(archivePath)))
	}
	if err != nil {
		return err
	}

	extractor, ok := format.(archives.Extractor)
	if !ok {
		return copyFile(archivePath, filepath.Join(destDir, filepath.Base(archivePath)))
	}

	cleanDest := filepath.Clean(destDir)
	if err := fs.MkdirAll(cleanDest, os.ModePerm); err != nil {
		return err
	}

	extracted := 0
	return extractor.Extract(ctx, stream, func(ctx context.Context, info archives.FileInfo) error {
		target := filepath.Join(cleanDest, filepath.FromSlash(info.NameInArchive))
		if !strings.HasPrefix(target, cleanDest+string(os.PathSeparator)) && target != cleanDest {
			return fmt.Errorf("archive entry %q escapes the destination directory", info.NameInArchive)
		}

		if info.IsDir() {
			return fs.MkdirAll(target, os.ModePerm)
		}

		if err := fs.MkdirAll(filepath.Dir(target), os.ModePerm); err != nil {
			return err
		}

		in, err := info.Open()
		if err != nil {
			return err
		}
		defer util.Ignore(in.Close)

		out, err := fs.Create(target)
		if err != nil {
			return err
		}
		defer util.Ignore(out.Close)

		if _, err := io.Copy(out, in); err != nil {
			return err
		}

		extracted++
		report(map[string]any{"phase": "extracting", "files": extracted})
		return nil
	})
}

func copyFile(from, to string) error {
	fs := filesystem.API()

	if err := fs.MkdirAll(filepath.Dir(to), os.ModePerm); err != nil {
		return err
	}

	in, err := fs.Open(from)
	if err != nil {
		return err
	}
	defer util.Ignore(in.Close)

	out, err := fs.Create(to)
	if err != nil {
		return err
	}
	defer util.Ignore(out.Close)

	_, err = io.Copy(out, in)
	return err
}

// recordExtractionOutcome writes the terminal extraction result to the ledger.
// Cancellation records nothing: the next status read falls back to the plain
// downloaded state. Like the download writer, it tolerates runners that close
// the stream without replaying the terminal update by falling back to the tag
// query.
func (o *Orchestrator) recordExtractionOutcome(runID, workID string, req ExtractionRequest, destDir string) {
	targetFile := filepath.Base(req.ArchivePath)

	url := req.URL
	if url == "" {
		if urls := ledger.URLs(targetFile); len(urls) > 0 {
			url = urls[0]
		}
	}
	if url == "" {
		log.Warnf("no ledger URL known for %s, extraction outcome will not be recorded", targetFile)
		return
	}

	record := func(update runner.Update) {
		var err error

		switch update.State {
		case runner.StateSucceeded:
			err = ledger.RecordExtractionResult(targetFile, url, destDir, nil)
		case runner.StateFailed:
			failure := update.Err
			if failure == nil {
				failure = fmt.Errorf("extraction failed")
			}
			err = ledger.RecordExtractionResult(targetFile, url, "", failure)
		default:
			return
		}

		if err != nil {
			log.Errorf("failed to record extraction outcome for %s: %v", targetFile, err)
		}
	}

	sawTerminal := false
	for update := range o.runner.Observe(runID) {
		if update.State.Terminal() {
			sawTerminal = true
		}
		record(update)
	}

	if sawTerminal {
		return
	}

	for _, info := range o.runner.ByTag(tagJob(workID)) {
		if info.RunID == runID && info.State.Terminal() {
			record(runner.Update{State: info.State})
		}
	}
}
