package aggregate

import (
	"context"
	"sort"
	"strings"

	"github.com/romsan-app/romsan/log"
	"github.com/romsan-app/romsan/platform"
	"github.com/romsan-app/romsan/provider"
	"github.com/romsan-app/romsan/source"
	"github.com/samber/lo"
	"github.com/samber/lo/parallel"
)

// Platforms returns the union of canonical platforms across all enabled
// sources, keyed by mother code and presented with canonical catalog data.
// The union is memoized until the engine's caches are cleared.
func (e *Engine) Platforms(ctx context.Context) ([]source.Platform, error) {
	e.caches.mu.Lock()
	if e.caches.platforms != nil {
		platforms := e.caches.platforms
		e.caches.mu.Unlock()
		return platforms, nil
	}
	e.caches.mu.Unlock()

	providers, err := e.selectProviders(nil)
	if err != nil {
		return nil, err
	}

	mothers := make(map[string]struct{})
	for _, p := range providers {
		mapping, err := platform.LoadMapping(p.Descriptor.InstallPath)
		if err != nil {
			log.Warnf("platform contribution dropped: %v", &SourceFetchError{SourceID: p.Descriptor.ID, Err: err})
			continue
		}
		for mother := range mapping {
			mothers[strings.ToLower(mother)] = struct{}{}
		}
	}

	canonical, err := e.catalog.LoadCanonicalMetadata()
	if err != nil {
		log.Warnf("canonical platform metadata unavailable: %v", err)
		canonical = nil
	}

	platforms := lo.Map(lo.Keys(mothers), func(mother string, _ int) source.Platform {
		p := source.Platform{Code: mother, Name: mother}
		if info, ok := canonical[mother]; ok {
			p.Name = info.DisplayName
			p.Manufacturer = info.Manufacturer
			p.ImagePath = info.ImagePath
			p.Description = info.Description
		}
		return p
	})

	sort.Slice(platforms, func(i, j int) bool {
		return strings.ToLower(platforms[i].Name) < strings.ToLower(platforms[j].Name)
	})

	e.caches.mu.Lock()
	e.caches.platforms = platforms
	e.caches.mu.Unlock()

	return platforms, nil
}

// Regions returns the union of release regions across all enabled sources,
// keyed by normalized region code. Memoized until the caches are cleared.
func (e *Engine) Regions(ctx context.Context) (map[string]string, error) {
	e.caches.mu.Lock()
	if e.caches.regions != nil {
		regions := e.caches.regions
		e.caches.mu.Unlock()
		return regions, nil
	}
	e.caches.mu.Unlock()

	providers, err := e.selectProviders(nil)
	if err != nil {
		return nil, err
	}

	contributions := parallel.Map(providers, func(p *provider.Provider, _ int) map[string]string {
		s, err := p.CreateSource()
		if err != nil {
			log.Warnf("skipping source: %v", &SourceFetchError{SourceID: p.Descriptor.ID, Err: err})
			return nil
		}

		regions, err := s.Regions(ctx)
		if err != nil {
			log.Warnf("region contribution dropped: %v", &SourceFetchError{SourceID: p.Descriptor.ID, Err: err})
			return nil
		}
		return regions
	})

	union := make(map[string]string)
	for _, contribution := range contributions {
		for code, name := range contribution {
			normalized := normalizeRegionCode(code)
			if _, ok := union[normalized]; !ok {
				union[normalized] = name
			}
		}
	}

	e.caches.mu.Lock()
	e.caches.regions = union
	e.caches.mu.Unlock()

	return union, nil
}
