package api

import (
	"github.com/romsan-app/romsan/source"
	"github.com/romsan-app/romsan/util"
	"github.com/samber/lo"
)

// romFromObject maps one decoded JSON object onto a canonical entry using the
// configured field translation. Objects missing slug or title are dropped.
func (s *apiSource) romFromObject(object map[string]any) *source.Rom {
	f := s.cfg.Fields

	slug := str(object, f.Slug)
	title := str(object, f.Title)
	if slug == "" || title == "" {
		return nil
	}

	rom := &source.Rom{
		Slug:     slug,
		Title:    title,
		CoverURL: str(object, f.Cover),
		SourceID: s.ID(),
	}

	rom.CoverURLs = strList(object, f.Covers)
	if rom.CoverURL != "" && !lo.Contains(rom.CoverURLs, rom.CoverURL) {
		rom.CoverURLs = append([]string{rom.CoverURL}, rom.CoverURLs...)
	}

	// The code doubles as the display name until catalog enrichment
	// replaces it.
	if code := str(object, f.PlatformCode); code != "" {
		rom.Platform = source.Platform{Code: code, Name: util.Capitalize(code), SourceID: s.ID()}
	}

	for _, item := range objList(object, f.Regions) {
		if code := str(item, "code"); code != "" {
			rom.Regions = append(rom.Regions, source.Region{Code: code, Name: str(item, "name")})
		}
	}

	for _, item := range objList(object, f.Links) {
		link := &source.DownloadLink{
			Name:          str(item, "name"),
			URL:           str(item, "url"),
			Size:          str(item, "size"),
			Host:          str(item, "host"),
			NeedsResolver: boolean(item, "needs_resolver"),
			DelaySeconds:  integer(item, "delay"),
		}
		if link.URL != "" {
			rom.Links = append(rom.Links, link)
		}
	}

	return rom
}

// JSON object accessors tolerant of missing or mistyped fields.

func str(object map[string]any, key string) string {
	if v, ok := object[key].(string); ok {
		return v
	}
	return ""
}

func boolean(object map[string]any, key string) bool {
	if v, ok := object[key].(bool); ok {
		return v
	}
	return false
}

func integer(object map[string]any, key string) int {
	if v, ok := object[key].(float64); ok {
		return int(v)
	}
	return 0
}

func strList(object map[string]any, key string) []string {
	raw, ok := object[key].([]any)
	if !ok {
		return nil
	}

	var list []string
	for _, item := range raw {
		if s, ok := item.(string); ok {
			list = append(list, s)
		}
	}
	return list
}

func objList(object map[string]any, key string) []map[string]any {
	raw, ok := object[key].([]any)
	if !ok {
		return nil
	}

	var list []map[string]any
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			list = append(list, m)
		}
	}
	return list
}
