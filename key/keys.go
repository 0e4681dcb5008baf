// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// Provider Source Identifiers - these keys manage the registration and selection of source plugins.
const (
	DefaultSources = "sources.default"
)

// Search Interaction - these keys define the discovery parameters for cross-source search.
const (
	SearchPageSize             = "search.page_size"
	SearchFallbackMaxPages     = "search.fallback_max_pages"
	SearchShowQuerySuggestions = "search.show_query_suggestions"
)

// Download Handling - these keys configure the download target and its preconditions.
const (
	DownloadPath            = "download.path"
	DownloadMinFreeSpaceMiB = "download.min_free_space_mib"
)

// Cache Behavior - these keys govern the disk-backed metadata cache.
const (
	CacheTTLHours = "cache.ttl_hours"
)

// Logging Infrastructure - these keys manage the application's internal diagnostics and auditing system.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)
