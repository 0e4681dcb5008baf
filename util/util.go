// Package util provides a collection of domain-agnostic utility functions and cross-platform helpers.
package util

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/exp/constraints"
)

// MaxFilenameLength caps sanitized file names to stay well below common filesystem limits.
const MaxFilenameLength = 120

// SanitizeFilename normalizes a string into a safe, cross-platform filesystem-compliant filename.
func SanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)

	// Replace invalid characters with underscore
	invalid := regexp.MustCompile(`[\\/<>:;"'|?!*{}#%&^+,~\s]`)
	stem = invalid.ReplaceAllString(stem, "_")
	ext = invalid.ReplaceAllString(ext, "")

	// Collapse multiple underscores
	collapse := regexp.MustCompile(`__+`)
	stem = collapse.ReplaceAllString(stem, "_")

	// Trim leading/trailing separators
	trim := regexp.MustCompile(`^[_\-.]+|[_\-.]+$`)
	stem = trim.ReplaceAllString(stem, "")

	if len(stem) > MaxFilenameLength {
		stem = stem[:MaxFilenameLength]
	}

	if ext != "" && ext != "." {
		return stem + ext
	}
	return stem
}

// RecoverExtension returns the file extension for a declared name, falling back to the
// path component of the originating URL when the name itself carries none.
func RecoverExtension(name, rawURL string) string {
	if ext := filepath.Ext(name); ext != "" {
		return ext
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return path.Ext(u.Path)
}

// Quantify returns a pluralized string representation of a count and its associated labels.
func Quantify(count int, singular, plural string) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, singular)
	}
	return fmt.Sprintf("%d %s", count, plural)
}

// Capitalize transforms the first rune of a string to its uppercase equivalent.
func Capitalize(s string) string {
	if len(s) == 0 {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// FileStem extracts the base filename from a path, excluding all file extensions.
func FileStem(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// Ignore executes a function and explicitly discards its error return value.
func Ignore(f func() error) {
	_ = f()
}

// Max returns the maximum value among arguments.
func Max[T constraints.Ordered](items ...T) (max T) {
	if len(items) == 0 {
		return
	}
	max = items[0]
	for _, item := range items[1:] {
		if item > max {
			max = item
		}
	}
	return
}
