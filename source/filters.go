package source

// Filters narrows a catalog search. Empty slices mean "no restriction".
type Filters struct {
	Query     string   `json:"query"`
	Platforms []string `json:"platforms"`
	Regions   []string `json:"regions"`
	SourceIDs []string `json:"source_ids"`
}

// Page selects one window of a paginated search.
type Page struct {
	Size   int `json:"size"`
	Number int `json:"number"`
}
