// Package aggregate merges search results from all enabled sources into
// canonical entries: one record per slug with unioned links, regions and
// covers, canonical platform naming and defensive region filtering.
package aggregate

import (
	"context"
	"sort"
	"strings"

	"github.com/romsan-app/romsan/internal/cache"
	"github.com/romsan-app/romsan/key"
	"github.com/romsan-app/romsan/ledger"
	"github.com/romsan-app/romsan/log"
	"github.com/romsan-app/romsan/platform"
	"github.com/romsan-app/romsan/provider"
	"github.com/romsan-app/romsan/query"
	"github.com/romsan-app/romsan/source"
	"github.com/romsan-app/romsan/util"
	"github.com/samber/lo"
	"github.com/samber/lo/parallel"
	"github.com/samber/mo"
	"github.com/spf13/viper"
)

// snapshotScope namespaces the per-slug link-free snapshot cache entries.
const snapshotScope = "rom-snapshot"

// Engine is the aggregation engine. Provider listing is injectable so tests
// can run against fabricated sources.
type Engine struct {
	catalog *platform.Catalog
	caches  *Caches

	enabled   func() ([]*provider.Provider, error)
	installed func() ([]*source.SourceDescriptor, error)
}

// EngineOption customizes an Engine at construction time.
type EngineOption func(*Engine)

// WithProviders replaces the registry-backed provider listing.
func WithProviders(enabled func() ([]*provider.Provider, error), installed func() ([]*source.SourceDescriptor, error)) EngineOption {
	return func(e *Engine) {
		e.enabled = enabled
		e.installed = installed
	}
}

// NewEngine constructs an engine resolving platforms through the given catalog.
func NewEngine(catalog *platform.Catalog, options ...EngineOption) *Engine {
	e := &Engine{
		catalog:   catalog,
		caches:    NewCaches(),
		enabled:   provider.Enabled,
		installed: provider.ListInstalled,
	}
	for _, option := range options {
		option(e)
	}
	return e
}

// Caches exposes the engine's memoization set, mainly for explicit clearing.
func (e *Engine) Caches() *Caches {
	return e.caches
}

// selectProviders applies the enabled-source precondition and the optional
// source-id filter. An empty intersection is an error, never a silent no-op.
func (e *Engine) selectProviders(sourceIDs []string) ([]*provider.Provider, error) {
	enabled, err := e.enabled()
	if err != nil {
		return nil, wrapUnknown(err)
	}

	if len(enabled) == 0 {
		installed, err := e.installed()
		if err != nil {
			return nil, wrapUnknown(err)
		}
		if len(installed) == 0 {
			return nil, ErrNoSourcesInstalled
		}
		return nil, ErrNoSourcesEnabled
	}

	if len(sourceIDs) == 0 {
		return enabled, nil
	}

	selected := lo.Filter(enabled, func(p *provider.Provider, _ int) bool {
		return lo.Contains(sourceIDs, p.Descriptor.ID)
	})
	if len(selected) == 0 {
		return nil, ErrNoMatchingSelectedSources
	}

	return selected, nil
}

// Search fans the query out to every selected source in parallel and merges
// the hits into canonical entries sorted by title. A region filter that yields
// nothing on page 1 triggers a bounded scan of subsequent pages.
func (e *Engine) Search(ctx context.Context, filters source.Filters, page source.Page) ([]*source.Rom, error) {
	providers, err := e.selectProviders(filters.SourceIDs)
	if err != nil {
		return nil, err
	}

	if page.Size <= 0 {
		page.Size = viper.GetInt(key.SearchPageSize)
	}
	if page.Number <= 0 {
		page.Number = 1
	}

	roms := e.searchPage(ctx, providers, filters, page)

	if len(roms) == 0 && len(filters.Regions) > 0 && page.Number == 1 {
		maxPages := viper.GetInt(key.SearchFallbackMaxPages)
		for number := 2; number <= maxPages; number++ {
			roms = e.searchPage(ctx, providers, filters, source.Page{Size: page.Size, Number: number})
			if len(roms) > 0 {
				break
			}
		}
	}

	roms = filterByRegions(roms, filters.Regions)

	sort.SliceStable(roms, func(i, j int) bool {
		return strings.ToLower(roms[i].Title) < strings.ToLower(roms[j].Title)
	})

	log.Debugf("search yielded %s across %s",
		util.Quantify(len(roms), "entry", "entries"),
		util.Quantify(len(providers), "source", "sources"))

	if filters.Query != "" && len(roms) > 0 {
		// Feed the suggestion history so the next partial input can complete
		// to a query known to produce results.
		if err := query.Remember(filters.Query, 1); err != nil {
			log.Warnf("failed to remember query %q: %v", filters.Query, err)
		}
	}

	return roms, nil
}

// searchPage runs one fan-out + merge round for a single page.
func (e *Engine) searchPage(ctx context.Context, providers []*provider.Provider, filters source.Filters, page source.Page) []*source.Rom {
	hits := lo.Flatten(parallel.Map(providers, func(p *provider.Provider, _ int) []hit {
		s, err := p.CreateSource()
		if err != nil {
			log.Warnf("skipping source: %v", &SourceFetchError{SourceID: p.Descriptor.ID, Err: err})
			return nil
		}

		roms, err := s.Search(ctx, filters, page)
		if err != nil {
			log.Warnf("search contribution dropped: %v", &SourceFetchError{SourceID: p.Descriptor.ID, Err: err})
			return nil
		}

		return lo.Map(roms, func(rom *source.Rom, _ int) hit {
			return hit{rom: rom, desc: p.Descriptor}
		})
	}))

	return e.mergeHits(hits)
}

// mergeHits groups raw hits by slug, merges each group and applies canonical
// platform enrichment to the merged record.
func (e *Engine) mergeHits(hits []hit) []*source.Rom {
	return lo.FilterMap(groupBySlug(hits), func(group []hit, _ int) (*source.Rom, bool) {
		merged := mergeGroup(group)
		if merged == nil {
			return nil, false
		}

		base := group[0].desc
		if base != nil {
			merged.Platform = e.catalog.Enrich(merged.Platform, base.ID, base.InstallPath)
		}

		merged.IsFavorite = ledger.IsFavorite(merged.Slug)
		return merged, true
	})
}

// GetRomBySlug resolves one canonical entry. The link-free disk snapshot is
// consulted first; cached links are never trusted, so a link request always
// re-fetches them fresh from every enabled source.
func (e *Engine) GetRomBySlug(ctx context.Context, slug string, includeLinks bool) (mo.Option[*source.Rom], error) {
	providers, err := e.selectProviders(nil)
	if err != nil {
		return mo.None[*source.Rom](), err
	}

	snapKey := cache.GenerateKey(slug, snapshotScope)

	var snapshot source.Rom
	if cache.Read(snapKey, &snapshot) {
		snapshot.IsFavorite = ledger.IsFavorite(slug)
		if !includeLinks {
			return mo.Some(&snapshot), nil
		}

		snapshot.Links = e.fetchLinks(ctx, providers, slug)
		return mo.Some(&snapshot), nil
	}

	hits := e.fetchRom(ctx, providers, slug)
	if len(hits) == 0 {
		return mo.None[*source.Rom](), nil
	}

	merged := e.mergeHits(hits)
	rom := merged[0]

	if err := cache.Write(snapKey, rom.WithoutLinks()); err != nil {
		log.Warnf("failed to persist snapshot for %s: %v", slug, err)
	}

	if !includeLinks {
		rom = rom.WithoutLinks()
		rom.IsFavorite = ledger.IsFavorite(slug)
	}

	return mo.Some(rom), nil
}

// fetchRom fans GetRom out to every provider, links included so a later merge
// has the full union to work with.
func (e *Engine) fetchRom(ctx context.Context, providers []*provider.Provider, slug string) []hit {
	return lo.Flatten(parallel.Map(providers, func(p *provider.Provider, _ int) []hit {
		s, err := p.CreateSource()
		if err != nil {
			log.Warnf("skipping source: %v", &SourceFetchError{SourceID: p.Descriptor.ID, Err: err})
			return nil
		}

		found, err := s.GetRom(ctx, slug, true)
		if err != nil {
			log.Warnf("entry contribution dropped: %v", &SourceFetchError{SourceID: p.Descriptor.ID, Err: err})
			return nil
		}

		rom, ok := found.Get()
		if !ok {
			return nil
		}
		return []hit{{rom: rom, desc: p.Descriptor}}
	}))
}

// fetchLinks collects fresh download links for a slug across providers,
// deduped by URL.
func (e *Engine) fetchLinks(ctx context.Context, providers []*provider.Provider, slug string) []*source.DownloadLink {
	var links []*source.DownloadLink
	seen := make(map[string]struct{})

	for _, h := range e.fetchRom(ctx, providers, slug) {
		for _, link := range h.rom.Links {
			if _, ok := seen[link.URL]; ok {
				continue
			}
			seen[link.URL] = struct{}{}
			links = append(links, link)
		}
	}

	return links
}
