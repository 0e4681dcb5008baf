package aggregate

import (
	"strings"

	"github.com/romsan-app/romsan/source"
	"github.com/samber/lo"
)

// regionAliases maps common spelled-out region names onto their short codes so
// a source reporting "Europe" still matches an "EU" filter.
var regionAliases = map[string]string{
	"europe":        "eu",
	"european":      "eu",
	"united states": "us",
	"usa":           "us",
	"america":       "us",
	"japan":         "jp",
	"japanese":      "jp",
	"worldwide":     "ww",
	"world":         "ww",
}

func normalizeRegionCode(code string) string {
	lower := strings.ToLower(strings.TrimSpace(code))
	if alias, ok := regionAliases[lower]; ok {
		return alias
	}
	return lower
}

// matchesRegions reports whether the entry carries at least one of the wanted
// regions. Sources are expected to have filtered already; this defensive pass
// does not trust them to have done so correctly.
func matchesRegions(rom *source.Rom, wanted []string) bool {
	if len(wanted) == 0 {
		return true
	}

	wantedCodes := lo.Map(wanted, func(code string, _ int) string {
		return normalizeRegionCode(code)
	})

	for _, region := range rom.Regions {
		code := normalizeRegionCode(region.Code)
		name := normalizeRegionCode(region.Name)
		if lo.Contains(wantedCodes, code) || lo.Contains(wantedCodes, name) {
			return true
		}
	}

	return false
}

// filterByRegions applies the defensive region filter to a merged result list.
func filterByRegions(roms []*source.Rom, wanted []string) []*source.Rom {
	if len(wanted) == 0 {
		return roms
	}
	return lo.Filter(roms, func(rom *source.Rom, _ int) bool {
		return matchesRegions(rom, wanted)
	})
}
