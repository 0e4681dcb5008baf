package download

import "context"

// Resolved is the outcome of the interactive page-resolution step for links
// guarded by an anti-bot interstitial.
type Resolved struct {
	// FinalURL is the direct download URL extracted from the page.
	FinalURL string

	// CookieHeader carries the session cookies the final URL must be fetched
	// with, already rendered as a Cookie header value.
	CookieHeader string
}

// Resolver is the boundary to the host's interactive page resolver. It is
// consulted only for links flagged NeedsResolver that arrive without a
// pre-resolved URL.
type Resolver interface {
	Resolve(ctx context.Context, rawURL string, delaySeconds int) (Resolved, error)
}
