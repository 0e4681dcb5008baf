// Package source defines the domain models and interfaces for ROM discovery and retrieval.
package source

import (
	"encoding/json"

	"github.com/romsan-app/romsan/util"
)

// Rom represents a canonical downloadable entry, either as reported by a single
// backend or as the merge of all per-source hits sharing a slug.
type Rom struct {
	Slug     string   `json:"slug"`
	Title    string   `json:"title"`
	Platform Platform `json:"platform"`

	// CoverURL is the primary box-art image, empty when the source supplies none.
	CoverURL string `json:"cover_url"`

	// CoverURLs is ordered: box image first if present, else placeholder images,
	// then screenshots.
	CoverURLs []string `json:"cover_urls"`

	Regions []Region        `json:"regions"`
	Links   []*DownloadLink `json:"links,omitempty"`

	// SourceID identifies the contributing record chosen as the base of a merge.
	SourceID string `json:"source_id"`

	// IsFavorite is derived from the favorites store at read time, never persisted
	// with the entry.
	IsFavorite bool `json:"-"`
}

// HasBoxImage reports whether the entry carries real box art rather than placeholders.
func (r *Rom) HasBoxImage() bool {
	return r.CoverURL != ""
}

// Dirname returns a filesystem-safe directory name for the entry.
func (r *Rom) Dirname() string {
	return util.SanitizeFilename(r.Title)
}

// WithoutLinks returns a copy of the entry with its download links stripped.
// This is the only projection ever persisted to the snapshot cache.
func (r *Rom) WithoutLinks() *Rom {
	clone := *r
	clone.Links = nil
	return &clone
}

func (r *Rom) String() string {
	return r.Title
}

// MarshalBytes returns the JSON representation of the entry.
func (r *Rom) MarshalBytes() []byte {
	b, _ := json.Marshal(r)
	return b
}

// DownloadLink is one downloadable asset URL exposed by an entry.
type DownloadLink struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Size string `json:"size"`
	Host string `json:"host"`

	// NeedsResolver marks links behind an anti-bot interstitial that must be
	// resolved through the interactive page resolver before downloading.
	NeedsResolver bool `json:"needs_resolver"`

	// DelaySeconds is a source-declared mandatory wait before the real download
	// URL is resolvable.
	DelaySeconds int `json:"delay_seconds"`
}

// Region is a release region attached to an entry.
type Region struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Platform describes the platform an entry belongs to, as reported by a source
// and possibly enriched with canonical catalog data.
type Platform struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	Manufacturer string `json:"manufacturer"`
	ImagePath    string `json:"image_path"`
	Description  string `json:"description"`

	// SourceID is set while the platform still carries a source-specific code.
	SourceID string `json:"source_id,omitempty"`
}
