package ledger

import (
	"path/filepath"
	"strings"

	"github.com/romsan-app/romsan/filesystem"
	"github.com/romsan-app/romsan/log"
	"github.com/romsan-app/romsan/where"
)

const fileSuffix = ".status"

// Reserved file names sharing the directory and line convention but excluded
// from generic ledger scans.
const (
	favoritesFile = "favorites" + fileSuffix
	recentsFile   = "recents" + fileSuffix
)

func reserved(name string) bool {
	return name == favoritesFile || name == recentsFile
}

func pathFor(targetFile string) string {
	return filepath.Join(where.Statuses(), targetFile+fileSuffix)
}

func readDocument(targetFile string) document {
	raw, err := filesystem.API().ReadFile(pathFor(targetFile))
	if err != nil {
		return document{}
	}
	return parseDocument(string(raw))
}

func writeDocument(targetFile string, doc document) error {
	return filesystem.API().WriteFile(pathFor(targetFile), []byte(doc.render()), 0644)
}

// Status is the answer to a ledger query for one (file, url) pair.
type Status struct {
	Downloaded      bool
	ExtractionPath  string
	ExtractionError string
}

// RecordDownloadStarted creates the ledger file with its slug header when a
// download for a title begins. No URL line is written: a download that never
// completes must leave no completion record behind.
func RecordDownloadStarted(targetFile, slug string) error {
	doc := readDocument(targetFile)
	if doc.Slug == slug || slug == "" {
		if len(doc.Entries) > 0 || doc.Slug != "" {
			return nil
		}
	}
	if doc.Slug == "" {
		doc.Slug = slug
	}
	return writeDocument(targetFile, doc)
}

// RecordDownloadCompleted appends a URL line for a finished download. When the
// resolved final URL differs from the link's nominal URL, pass both: the
// original is recorded as an alias line so later lookups by either succeed.
func RecordDownloadCompleted(targetFile, slug string, urls ...string) error {
	doc := readDocument(targetFile)
	if doc.Slug == "" {
		doc.Slug = slug
	}

	for _, url := range urls {
		if url == "" || doc.find(url) >= 0 {
			continue
		}
		doc.Entries = append(doc.Entries, Entry{URL: url})
	}

	return writeDocument(targetFile, doc)
}

// RecordExtractionResult sets or replaces the extraction suffix of the URL's
// line. A missing line is created, so an extraction observed after a ledger
// clear still leaves a consistent record.
func RecordExtractionResult(targetFile, url, extractionPath string, extractionErr error) error {
	doc := readDocument(targetFile)

	entry := Entry{URL: url, ExtractionPath: extractionPath}
	if extractionErr != nil {
		entry.ExtractionPath = ""
		entry.ExtractionError = sanitizeMessage(extractionErr.Error())
	}

	if i := doc.find(url); i >= 0 {
		doc.Entries[i] = entry
	} else {
		doc.Entries = append(doc.Entries, entry)
	}

	return writeDocument(targetFile, doc)
}

// QueryStatus reads the recorded outcome for a (file, url) pair. With an empty
// url the first line bearing a valid extraction path is consulted, falling
// back to the first line; this keeps single-line-per-file ledgers from older
// versions readable.
func QueryStatus(targetFile, url string) Status {
	doc := readDocument(targetFile)
	if len(doc.Entries) == 0 {
		return Status{}
	}

	var entry Entry
	switch {
	case url != "":
		i := doc.find(url)
		if i < 0 {
			return Status{}
		}
		entry = doc.Entries[i]
	default:
		entry = doc.Entries[0]
		for _, candidate := range doc.Entries {
			if candidate.Extracted() {
				entry = candidate
				break
			}
		}
	}

	return Status{
		Downloaded:      true,
		ExtractionPath:  entry.ExtractionPath,
		ExtractionError: entry.ExtractionError,
	}
}

// URLs returns the recorded download URLs of a ledger file in line order.
func URLs(targetFile string) []string {
	doc := readDocument(targetFile)
	urls := make([]string, 0, len(doc.Entries))
	for _, entry := range doc.Entries {
		urls = append(urls, entry.URL)
	}
	return urls
}

// Slug returns the slug header of a ledger file, empty when absent.
func Slug(targetFile string) string {
	return readDocument(targetFile).Slug
}

// FindFileByURL scans all ledger files for a line bearing the URL and returns
// the target file name it belongs to. Used when the nominal link URL differs
// from the final resolved URL recorded at completion.
func FindFileByURL(url string) (string, bool) {
	entries, err := filesystem.API().ReadDir(where.Statuses())
	if err != nil {
		return "", false
	}

	for _, info := range entries {
		name := info.Name()
		if info.IsDir() || reserved(name) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}

		target := strings.TrimSuffix(name, fileSuffix)
		doc := readDocument(target)
		if doc.find(url) >= 0 {
			return target, true
		}
	}

	return "", false
}

// Clear removes the ledger file for one target, idempotently.
func Clear(targetFile string) error {
	fs := filesystem.API()
	path := pathFor(targetFile)
	if exists, _ := fs.Exists(path); !exists {
		return nil
	}
	return fs.Remove(path)
}

// ClearAll removes every ledger file, leaving the reserved favorites and
// recents stores untouched.
func ClearAll() error {
	fs := filesystem.API()
	entries, err := fs.ReadDir(where.Statuses())
	if err != nil {
		return err
	}

	for _, info := range entries {
		name := info.Name()
		if info.IsDir() || reserved(name) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		if err := fs.Remove(filepath.Join(where.Statuses(), name)); err != nil {
			log.Warnf("failed to clear ledger file %s: %v", name, err)
		}
	}

	return nil
}

// sanitizeMessage keeps recorded error messages single-line so they cannot
// corrupt the line protocol.
func sanitizeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\n", " ")
	return strings.ReplaceAll(msg, separator, " ")
}
