// Package ledger implements the durable on-disk record of download and
// extraction outcomes: one human-readable ".status" file per downloaded file,
// one line per source URL.
//
// Line grammar:
//
//	SLUG:<slug>            optional header, first line only
//	<url>                  downloaded, not yet extracted
//	<url>\t<path>          downloaded and extracted to path
//	<url>\tERROR:<message> downloaded, extraction failed
//
// The URL is the stable identity of a line; line order carries no meaning.
package ledger

import (
	"fmt"
	"strings"
)

const (
	slugPrefix  = "SLUG:"
	errorPrefix = "ERROR:"
	separator   = "\t"
)

// Entry is the typed form of one URL line.
type Entry struct {
	URL             string
	ExtractionPath  string
	ExtractionError string
}

// Extracted reports whether the entry records a successful extraction.
func (e Entry) Extracted() bool {
	return e.ExtractionPath != ""
}

// Line serializes the entry back into its on-disk form.
func (e Entry) Line() string {
	switch {
	case e.ExtractionError != "":
		return e.URL + separator + errorPrefix + e.ExtractionError
	case e.ExtractionPath != "":
		return e.URL + separator + e.ExtractionPath
	default:
		return e.URL
	}
}

// ParseLine decodes one URL line. Malformed lines yield ok=false and are
// skipped by readers, never treated as fatal.
func ParseLine(line string) (Entry, bool) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" || strings.HasPrefix(line, slugPrefix) {
		return Entry{}, false
	}

	url, suffix, found := strings.Cut(line, separator)
	if url == "" {
		return Entry{}, false
	}

	entry := Entry{URL: url}
	if !found || suffix == "" {
		return entry, true
	}

	if msg, isErr := strings.CutPrefix(suffix, errorPrefix); isErr {
		entry.ExtractionError = msg
	} else {
		entry.ExtractionPath = suffix
	}

	return entry, true
}

// SlugLine formats the optional header line.
func SlugLine(slug string) string {
	return slugPrefix + slug
}

// ParseSlugLine decodes the header line, ok=false when the line is not a header.
func ParseSlugLine(line string) (string, bool) {
	line = strings.TrimRight(line, "\r\n")
	return strings.CutPrefix(line, slugPrefix)
}

// document is the parsed form of one ledger file.
type document struct {
	Slug    string
	Entries []Entry
}

func parseDocument(raw string) document {
	var doc document

	for i, line := range strings.Split(raw, "\n") {
		if i == 0 {
			if slug, ok := ParseSlugLine(line); ok {
				doc.Slug = slug
				continue
			}
		}
		if entry, ok := ParseLine(line); ok {
			doc.Entries = append(doc.Entries, entry)
		}
	}

	return doc
}

func (d document) render() string {
	var b strings.Builder
	if d.Slug != "" {
		fmt.Fprintln(&b, SlugLine(d.Slug))
	}
	for _, entry := range d.Entries {
		fmt.Fprintln(&b, entry.Line())
	}
	return b.String()
}

// find returns the index of the entry bearing the URL, -1 when absent.
func (d document) find(url string) int {
	for i, entry := range d.Entries {
		if entry.URL == url {
			return i
		}
	}
	return -1
}
