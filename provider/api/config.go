// Package api implements the declarative-API source backend: HTTP calls are
// composed from a backend-config file shipped inside the source archive
// instead of being scripted.
package api

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/romsan-app/romsan/constant"
	"github.com/romsan-app/romsan/filesystem"
)

// endpoint describes how one operation maps onto the remote API.
type endpoint struct {
	Path string `json:"path"`

	// Params names the query parameters the remote API expects for each
	// filter dimension. An empty name means the dimension is not supported
	// and is silently omitted.
	Params struct {
		Query     string `json:"query"`
		Platforms string `json:"platforms"`
		Regions   string `json:"regions"`
		Page      string `json:"page"`
		Size      string `json:"size"`
	} `json:"params"`

	// ListField selects the JSON field holding the result array; empty means
	// the response body itself is the array.
	ListField string `json:"list_field"`

	// LinksParam, when set on the rom endpoint, is sent as "true" to request
	// download links with the entry.
	LinksParam string `json:"links_param"`
}

// fieldMap translates remote JSON field names to the canonical entry fields.
// Zero values fall back to the canonical names themselves.
type fieldMap struct {
	Slug         string `json:"slug"`
	Title        string `json:"title"`
	Cover        string `json:"cover"`
	Covers       string `json:"covers"`
	PlatformCode string `json:"platform_code"`
	Regions      string `json:"regions"`
	Links        string `json:"links"`
}

func (f *fieldMap) defaults() {
	fallback := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fallback(&f.Slug, "slug")
	fallback(&f.Title, "title")
	fallback(&f.Cover, "cover")
	fallback(&f.Covers, "covers")
	fallback(&f.PlatformCode, "platform")
	fallback(&f.Regions, "regions")
	fallback(&f.Links, "links")
}

// apiConfig is the parsed backend-config file of a declarative-API source.
type apiConfig struct {
	// TLSFingerprint routes calls through the browser-fingerprint TLS client,
	// needed for catalogs behind anti-bot services.
	TLSFingerprint bool `json:"tls_fingerprint"`

	Search  endpoint `json:"search"`
	Rom     endpoint `json:"rom"`
	Regions endpoint `json:"regions"`

	Fields fieldMap `json:"fields"`
}

// loadConfig reads and validates the api.json file of an installed source.
func loadConfig(installPath string) (*apiConfig, error) {
	raw, err := filesystem.API().ReadFile(filepath.Join(installPath, constant.APIConfigFile))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", constant.APIConfigFile, err)
	}

	var cfg apiConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("malformed %s: %w", constant.APIConfigFile, err)
	}

	if cfg.Search.Path == "" || cfg.Rom.Path == "" {
		return nil, fmt.Errorf("%s must declare search and rom endpoints", constant.APIConfigFile)
	}

	cfg.Fields.defaults()
	return &cfg, nil
}
