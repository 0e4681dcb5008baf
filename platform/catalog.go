package platform

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/romsan-app/romsan/filesystem"
	"github.com/romsan-app/romsan/log"
	"github.com/romsan-app/romsan/source"
	"github.com/romsan-app/romsan/where"
)

// CanonicalInfo is the catalog's description of one mother platform.
type CanonicalInfo struct {
	DisplayName  string `json:"display_name"`
	Manufacturer string `json:"manufacturer"`
	ImagePath    string `json:"image_path"`
	Description  string `json:"description"`
}

// Catalog resolves platform codes against per-source mapping tables and the
// shared canonical catalog file. Loaded tables are memoized until Clear.
type Catalog struct {
	mu        sync.Mutex
	mappings  map[string]Mapping // keyed by source id
	canonical map[string]CanonicalInfo
}

// NewCatalog constructs an empty catalog; tables load lazily on first use.
func NewCatalog() *Catalog {
	return &Catalog{mappings: make(map[string]Mapping)}
}

// ResolveCanonical translates a source-specific platform code into its mother
// code using the mapping table installed with that source.
func (c *Catalog) ResolveCanonical(sourceCode, sourceID string, installPath string) (string, bool) {
	mapping, err := c.mappingFor(sourceID, installPath)
	if err != nil {
		log.Warnf("platform mapping unavailable for source %s: %v", sourceID, err)
		return "", false
	}
	return mapping.Resolve(sourceCode)
}

// LoadCanonicalMetadata reads the shared catalog file, memoized until Clear.
func (c *Catalog) LoadCanonicalMetadata() (map[string]CanonicalInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.canonical != nil {
		return c.canonical, nil
	}

	raw, err := filesystem.API().ReadFile(where.Catalog())
	if err != nil {
		return nil, fmt.Errorf("read platform catalog: %w", err)
	}

	var canonical map[string]CanonicalInfo
	if err := json.Unmarshal(raw, &canonical); err != nil {
		return nil, fmt.Errorf("malformed platform catalog: %w", err)
	}

	c.canonical = canonical
	return canonical, nil
}

// Enrich replaces the source-reported platform presentation with canonical
// catalog data whenever the mother code resolves. When no canonical entry
// exists the original values are kept and a data quality warning is logged.
func (c *Catalog) Enrich(p source.Platform, sourceID, installPath string) source.Platform {
	mother, ok := c.ResolveCanonical(p.Code, sourceID, installPath)
	if !ok {
		log.Warnf("no canonical platform for code %q reported by source %s", p.Code, sourceID)
		return p
	}

	p.Code = mother
	p.SourceID = ""

	canonical, err := c.LoadCanonicalMetadata()
	if err != nil {
		log.Warnf("canonical platform metadata unavailable: %v", err)
		return p
	}

	info, ok := canonical[mother]
	if !ok {
		log.Warnf("platform %q resolved but missing from the canonical catalog", mother)
		return p
	}

	p.Name = info.DisplayName
	p.Manufacturer = info.Manufacturer
	p.ImagePath = info.ImagePath
	p.Description = info.Description
	return p
}

// Clear drops all memoized tables; the next lookup reloads from disk.
func (c *Catalog) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mappings = make(map[string]Mapping)
	c.canonical = nil
}

func (c *Catalog) mappingFor(sourceID, installPath string) (Mapping, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if mapping, ok := c.mappings[sourceID]; ok {
		return mapping, nil
	}

	mapping, err := LoadMapping(installPath)
	if err != nil {
		return nil, err
	}

	c.mappings[sourceID] = mapping
	return mapping, nil
}
