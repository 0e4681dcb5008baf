// Package platform resolves source-specific platform codes to their canonical
// "mother" identity and enriches platform records from a shared catalog file.
//
// Sources disagree on platform naming; canonicalization is what lets the merge
// engine recognize the same platform coming from two different sources.
package platform

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/romsan-app/romsan/constant"
	"github.com/romsan-app/romsan/filesystem"
	"github.com/romsan-app/romsan/log"
	"github.com/samber/lo"
	"golang.org/x/exp/slices"
)

// Mapping holds one source's platform translation table: canonical mother code
// to the ordered list of codes the source uses for it.
type Mapping map[string][]string

// mappingFile mirrors the required on-disk shape of mapping.json.
type mappingFile struct {
	Mapping map[string]json.RawMessage `json:"mapping"`
}

// LoadMapping reads and validates the platform-mapping file inside a source's
// install directory. Values may be a single code string or a list of codes.
func LoadMapping(installPath string) (Mapping, error) {
	raw, err := filesystem.API().ReadFile(filepath.Join(installPath, constant.MappingFile))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", constant.MappingFile, err)
	}

	return ParseMapping(raw)
}

// ParseMapping validates the mapping document shape. A missing or non-object
// "mapping" key is a hard failure.
func ParseMapping(raw []byte) (Mapping, error) {
	var file mappingFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("malformed mapping file: %w", err)
	}

	if file.Mapping == nil {
		return nil, fmt.Errorf("mapping file has no \"mapping\" object")
	}

	mapping := make(Mapping, len(file.Mapping))
	for mother, value := range file.Mapping {
		var single string
		if err := json.Unmarshal(value, &single); err == nil {
			mapping[mother] = []string{single}
			continue
		}

		var many []string
		if err := json.Unmarshal(value, &many); err == nil {
			mapping[mother] = many
			continue
		}

		return nil, fmt.Errorf("mapping entry %q: expected string or string list", mother)
	}

	return mapping, nil
}

// Resolve performs the reverse lookup from a source-specific code to the mother
// code, case-insensitively. Mother codes are visited in sorted order so the
// lookup is deterministic; a second candidate is a data quality issue in the
// source's mapping and is logged, never fatal.
func (m Mapping) Resolve(sourceCode string) (string, bool) {
	var (
		found  string
		hasHit bool
	)

	mothers := lo.Keys(m)
	slices.Sort(mothers)

	for _, mother := range mothers {
		for _, code := range m[mother] {
			if !strings.EqualFold(code, sourceCode) {
				continue
			}
			if hasHit {
				log.Warnf("platform code %q maps to both %q and %q; keeping first", sourceCode, found, mother)
				continue
			}
			found = mother
			hasHit = true
		}
	}

	return found, hasHit
}
