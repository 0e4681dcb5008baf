package source

import (
	"fmt"
	"path/filepath"
	"strings"
)

// BackendKind tags the execution backend a source descriptor declares.
type BackendKind string

const (
	// BackendAPI composes HTTP calls from a declarative backend-config file.
	BackendAPI BackendKind = "api"

	// BackendModule invokes a registered in-process native module.
	BackendModule BackendKind = "module"

	// BackendScript executes a Lua script shipped with the source.
	BackendScript BackendKind = "script"
)

// Valid reports whether the kind is one of the three supported backends.
func (k BackendKind) Valid() bool {
	switch k {
	case BackendAPI, BackendModule, BackendScript:
		return true
	}
	return false
}

// SourceDescriptor is the parsed, validated metadata of an installed source plugin.
type SourceDescriptor struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Version     string      `json:"version"`
	Description string      `json:"description,omitempty"`
	Author      string      `json:"author,omitempty"`
	Kind        BackendKind `json:"kind"`

	// Backend-specific fields; exactly one of these is meaningful per kind.
	BaseURL    string `json:"base_url,omitempty"`
	EntryPoint string `json:"entry_point,omitempty"`
	ScriptPath string `json:"script,omitempty"`

	// PlaceholderImages are source-declared fallback cover images, either absolute
	// URLs or paths relative to the install directory.
	PlaceholderImages []string `json:"placeholders,omitempty"`

	Dependencies []string `json:"dependencies,omitempty"`

	// InstallPath is the source's install directory; assigned at install time,
	// not read from the metadata file.
	InstallPath string `json:"-"`

	// Enabled is registry state, not metadata.
	Enabled bool `json:"-"`
}

func (d *SourceDescriptor) String() string {
	return fmt.Sprintf("%s %s", d.Name, d.Version)
}

// ResolvePlaceholder turns a declared placeholder image into a usable reference:
// absolute URLs pass through, relative paths resolve inside the install directory.
func (d *SourceDescriptor) ResolvePlaceholder(placeholder string) string {
	if strings.Contains(placeholder, "://") || filepath.IsAbs(placeholder) {
		return placeholder
	}
	return filepath.Join(d.InstallPath, placeholder)
}
