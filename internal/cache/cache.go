// Package cache provides localized filesystem-based caching for transient catalog metadata and provider results.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"path/filepath"
	"strings"
	"time"

	"github.com/romsan-app/romsan/filesystem"
	"github.com/romsan-app/romsan/key"
	"github.com/romsan-app/romsan/where"
	"github.com/spf13/viper"
)

const defaultTTL = 7 * 24 * time.Hour

func ttl() time.Duration {
	if hours := viper.GetInt(key.CacheTTLHours); hours > 0 {
		return time.Duration(hours) * time.Hour
	}
	return defaultTTL
}

func getDir() string {
	return where.Cache()
}

// GenerateKey generates a deterministic SHA-256 hash from a value and scope pair for use as a cache identifier.
func GenerateKey(value, scope string) string {
	sanitized := strings.ToLower(strings.ReplaceAll(value, " ", "")) + scope
	hash := sha256.Sum256([]byte(sanitized))
	return hex.EncodeToString(hash[:])
}

// Read attempts to retrieve and deserialize a cached object if it exists and has not exceeded its TTL.
func Read(cacheKey string, target interface{}) bool {
	fs := filesystem.API()
	path := filepath.Join(getDir(), cacheKey)

	info, err := fs.Stat(path)
	if err != nil || time.Since(info.ModTime()) > ttl() {
		return false
	}

	f, err := fs.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	// Decode directly into the target interface.
	decoder := json.NewDecoder(f)
	if err := decoder.Decode(target); err != nil {
		return false
	}
	return true
}

// Write persists a serializable object to the cache using an atomic file swap to ensure data integrity.
func Write(cacheKey string, data interface{}) error {
	fs := filesystem.API()
	path := filepath.Join(getDir(), cacheKey)
	tmpPath := path + ".tmp"

	f, err := fs.Create(tmpPath)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(f)
	if err := encoder.Encode(data); err != nil {
		f.Close()
		return err
	}
	f.Close()

	return fs.Rename(tmpPath, path)
}

// Delete removes a single cache entry, ignoring missing files.
func Delete(cacheKey string) {
	_ = filesystem.API().Remove(filepath.Join(getDir(), cacheKey))
}

// CollectGarbage initializes an asynchronous background task to prune expired cache entries from the filesystem.
func CollectGarbage() {
	go func() {
		fs := filesystem.API()
		dir := getDir()
		entries, err := fs.ReadDir(dir)
		if err != nil {
			return
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if time.Since(entry.ModTime()) > ttl() {
				_ = fs.Remove(filepath.Join(dir, entry.Name()))
			}
		}
	}()
}
