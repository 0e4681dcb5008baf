package provider

import (
	"encoding/json"
	"net/url"
	"path/filepath"

	"github.com/romsan-app/romsan/filesystem"
	"github.com/romsan-app/romsan/source"
)

// ParseDescriptor decodes a source metadata document without validating it.
func ParseDescriptor(raw []byte) (*source.SourceDescriptor, error) {
	var desc source.SourceDescriptor
	if err := json.Unmarshal(raw, &desc); err != nil {
		return nil, err
	}
	return &desc, nil
}

// validateDescriptor enforces the required fields common to all backends plus
// the backend-specific ones. installPath is where the archive contents live at
// validation time; for script backends the declared script must exist there.
func validateDescriptor(desc *source.SourceDescriptor, installPath string) error {
	if desc.ID == "" {
		return &ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if desc.Name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if desc.Version == "" {
		return &ValidationError{Field: "version", Reason: "must not be empty"}
	}
	if !desc.Kind.Valid() {
		return &ValidationError{Field: "kind", Reason: "must be one of api, module, script"}
	}

	switch desc.Kind {
	case source.BackendAPI:
		u, err := url.Parse(desc.BaseURL)
		if err != nil || !u.IsAbs() || u.Host == "" {
			return &ValidationError{Field: "base_url", Reason: "must be a well-formed absolute URL"}
		}
	case source.BackendModule:
		if desc.EntryPoint == "" {
			return &ValidationError{Field: "entry_point", Reason: "must not be empty"}
		}
	case source.BackendScript:
		if desc.ScriptPath == "" {
			return &ValidationError{Field: "script", Reason: "must not be empty"}
		}
		exists, err := filesystem.API().Exists(filepath.Join(installPath, desc.ScriptPath))
		if err != nil || !exists {
			return &ValidationError{Field: "script", Reason: "declared script not found in archive"}
		}
	}

	return nil
}
