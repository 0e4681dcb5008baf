package ledger

import (
	"path/filepath"
	"strings"

	"github.com/romsan-app/romsan/filesystem"
	"github.com/romsan-app/romsan/where"
	"github.com/samber/lo"
)

// Favorites are stored in a reserved file of the statuses directory, one slug
// per line, following the same line-oriented convention as the ledger.

func favoritesPath() string {
	return filepath.Join(where.Statuses(), favoritesFile)
}

// Favorites returns all favorited slugs in file order.
func Favorites() []string {
	raw, err := filesystem.API().ReadFile(favoritesPath())
	if err != nil {
		return nil
	}

	return lo.Filter(strings.Split(string(raw), "\n"), func(line string, _ int) bool {
		return strings.TrimSpace(line) != ""
	})
}

// IsFavorite reports whether a slug is favorited.
func IsFavorite(slug string) bool {
	return lo.Contains(Favorites(), slug)
}

// AddFavorite marks a slug as favorite, idempotently.
func AddFavorite(slug string) error {
	slugs := Favorites()
	if lo.Contains(slugs, slug) {
		return nil
	}
	slugs = append(slugs, slug)
	return writeFavorites(slugs)
}

// RemoveFavorite unmarks a slug, idempotently.
func RemoveFavorite(slug string) error {
	slugs := Favorites()
	filtered := lo.Filter(slugs, func(s string, _ int) bool { return s != slug })
	if len(filtered) == len(slugs) {
		return nil
	}
	return writeFavorites(filtered)
}

func writeFavorites(slugs []string) error {
	content := strings.Join(slugs, "\n")
	if content != "" {
		content += "\n"
	}
	return filesystem.API().WriteFile(favoritesPath(), []byte(content), 0644)
}
