// Package version provides comparison primitives for the dotted-integer version strings carried by source plugins.
package version

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/romsan-app/romsan/util"
)

// Compare performs a component-wise integer comparison between two dotted version strings.
// Missing components are treated as zero, so "1.2" and "1.2.0" compare equal.
// Returns 1 if a > b, -1 if a < b, and 0 if equal.
func Compare(a, b string) (int, error) {
	av, err := parse(a)
	if err != nil {
		return 0, err
	}

	bv, err := parse(b)
	if err != nil {
		return 0, err
	}

	for i := 0; i < util.Max(len(av), len(bv)); i++ {
		ac, bc := component(av, i), component(bv, i)

		if ac > bc {
			return 1, nil
		}

		if ac < bc {
			return -1, nil
		}
	}

	return 0, nil
}

// IsNewer reports whether version a is strictly newer than version b.
// Ties and unparseable versions are not newer.
func IsNewer(a, b string) bool {
	cmp, err := Compare(a, b)
	if err != nil {
		return false
	}
	return cmp > 0
}

func parse(s string) ([]int, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	if s == "" {
		return nil, fmt.Errorf("empty version string")
	}

	parts := strings.Split(s, ".")
	components := make([]int, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("version component %q: %w", part, err)
		}
		components[i] = n
	}

	return components, nil
}

func component(v []int, i int) int {
	if i < len(v) {
		return v[i]
	}
	return 0
}
