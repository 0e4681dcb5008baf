// Package source defines the domain models and interfaces for ROM discovery and retrieval.
package source

import (
	"context"

	"github.com/samber/mo"
)

// Source is the uniform execution contract every installed backend is invoked through,
// regardless of whether it is a declarative API description, a native module, or a script.
type Source interface {
	// ID returns the unique identifier of the source.
	ID() string

	// Name returns the human-readable display name of the source.
	Name() string

	// Search executes a catalog query against the backend and returns matching entries.
	Search(ctx context.Context, filters Filters, page Page) ([]*Rom, error)

	// GetRom retrieves a single entry by its canonical slug.
	// Download links are only fetched when includeLinks is set, since they may
	// expire or require session state.
	GetRom(ctx context.Context, slug string, includeLinks bool) (mo.Option[*Rom], error)

	// Regions returns the region codes the backend knows about, keyed by code.
	Regions(ctx context.Context) (map[string]string, error)
}
