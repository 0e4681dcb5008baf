package aggregate

import (
	"github.com/romsan-app/romsan/source"
	"github.com/samber/lo"
)

// hit couples one raw per-source result with the descriptor of the source that
// produced it, so the merge can reach that source's placeholder images.
type hit struct {
	rom  *source.Rom
	desc *source.SourceDescriptor
}

// mergeGroup collapses all hits sharing a slug into one canonical entry. The
// first hit is the base record; links are unioned by URL, regions by code.
//
// Cover handling: only sources supplying real box art contribute cover URLs.
// When no member of the group has one, the cover list is rebuilt purely from
// each contributor's placeholder images; when at least one does, missing
// placeholders are still appended as a fallback for image-load failures.
func mergeGroup(hits []hit) *source.Rom {
	if len(hits) == 0 {
		return nil
	}

	merged := *hits[0].rom

	merged.Links = nil
	seenLinks := make(map[string]struct{})
	for _, h := range hits {
		for _, link := range h.rom.Links {
			if _, ok := seenLinks[link.URL]; ok {
				continue
			}
			seenLinks[link.URL] = struct{}{}
			merged.Links = append(merged.Links, link)
		}
	}

	merged.Regions = nil
	seenRegions := make(map[string]struct{})
	for _, h := range hits {
		for _, region := range h.rom.Regions {
			code := normalizeRegionCode(region.Code)
			if _, ok := seenRegions[code]; ok {
				continue
			}
			seenRegions[code] = struct{}{}
			merged.Regions = append(merged.Regions, region)
		}
	}

	merged.CoverURL = ""
	merged.CoverURLs = nil
	for _, h := range hits {
		if !h.rom.HasBoxImage() {
			continue
		}
		if merged.CoverURL == "" {
			merged.CoverURL = h.rom.CoverURL
		}
		for _, cover := range h.rom.CoverURLs {
			if !lo.Contains(merged.CoverURLs, cover) {
				merged.CoverURLs = append(merged.CoverURLs, cover)
			}
		}
	}

	for _, h := range hits {
		if h.desc == nil {
			continue
		}
		for _, placeholder := range h.desc.PlaceholderImages {
			resolved := h.desc.ResolvePlaceholder(placeholder)
			if !lo.Contains(merged.CoverURLs, resolved) {
				merged.CoverURLs = append(merged.CoverURLs, resolved)
			}
		}
	}

	return &merged
}

// groupBySlug partitions hits by slug preserving first-seen order.
func groupBySlug(hits []hit) [][]hit {
	var order []string
	grouped := make(map[string][]hit)

	for _, h := range hits {
		if _, ok := grouped[h.rom.Slug]; !ok {
			order = append(order, h.rom.Slug)
		}
		grouped[h.rom.Slug] = append(grouped[h.rom.Slug], h)
	}

	return lo.Map(order, func(slug string, _ int) []hit {
		return grouped[slug]
	})
}
