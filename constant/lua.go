// Package constant defines immutable application-level identifiers and configuration defaults.
package constant

// Global function names a Lua source script must define to be loadable.
const (
	SearchRomsFn = "SearchRoms"
	GetRomFn     = "GetRom"
	RegionsFn    = "Regions"
)

// Well-known file names inside a source install directory.
const (
	MetadataFile  = "source.json"
	MappingFile   = "mapping.json"
	APIConfigFile = "api.json"
)
