// Package where implements a cross-platform resolver for application-specific filesystem paths.
package where

import (
	"os"
	"path/filepath"

	"github.com/romsan-app/romsan/constant"
	"github.com/romsan-app/romsan/filesystem"
	"github.com/samber/lo"
)

// EnvConfigPath is the environment variable identifier used to override the default configuration directory.
const EnvConfigPath = "ROMSAN_CONFIG_PATH"

// ensureDir guarantees the existence of a directory at the specified path, creating it if necessary.
func ensureDir(path string) string {
	lo.Must0(filesystem.API().MkdirAll(path, os.ModePerm))
	return path
}

// Config resolves the absolute path to the primary application configuration directory.
// Direct override: The path resolution can be explicitly specified via the ROMSAN_CONFIG_PATH environment variable.
func Config() string {
	if custom, ok := os.LookupEnv(EnvConfigPath); ok {
		return ensureDir(custom)
	}

	base := lo.Must(os.UserConfigDir())
	return ensureDir(filepath.Join(base, constant.Romsan))
}

// Cache resolves the absolute path to the application's persistent cache directory.
func Cache() string {
	base, err := os.UserCacheDir()
	if err != nil {
		// Fallback: Revert to a localized cache directory if the system-provided path is inaccessible.
		base = filepath.Join(".", "cache")
	}
	return ensureDir(filepath.Join(base, constant.Romsan))
}

// Logs resolves the absolute path to the directory used for application diagnostic and audit logs.
func Logs() string {
	return ensureDir(filepath.Join(Config(), "logs"))
}

// Sources resolves the absolute path to the directory holding installed source plugins,
// one subdirectory per source id.
func Sources() string {
	return ensureDir(filepath.Join(Config(), "sources"))
}

// Statuses resolves the absolute path to the directory holding the per-file download
// and extraction status ledgers.
func Statuses() string {
	return ensureDir(filepath.Join(Config(), "statuses"))
}

// Registry resolves the absolute path to the installed-source configuration ledger.
func Registry() string {
	return filepath.Join(Config(), "sources.json")
}

// Catalog resolves the absolute path to the shared canonical platform catalog file.
func Catalog() string {
	return filepath.Join(Config(), "platforms.json")
}

// Downloads resolves the default download target directory.
func Downloads() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return ensureDir(filepath.Join(home, "Downloads", constant.Romsan))
}

// Queries resolves the absolute path to the localized search query suggestion registry.
func Queries() string {
	return filepath.Join(Cache(), "queries.json")
}

// Temp resolves a unique, volatile filesystem path for transient application artifacts.
func Temp() string {
	return ensureDir(filepath.Join(os.TempDir(), constant.Romsan))
}
