package driven

import (
	"context"
	"time"
)

// FetchRequest carries everything a fetcher needs for one run.
type FetchRequest struct {
	// Args are the fetcher-specific arguments (e.g. org/repo for GitHub,
	// name for npm), as persisted on the pointer's queryArgs.
	Args map[string]string

	// Now is the wall-clock upper bound of the fetch window. Injected so
	// a fetch started at time T is deterministic given the same pointer.
	Now time.Time

	// Autocrawl marks the advanced pointer for unattended crawling.
	Autocrawl bool
}

// Arg returns a named argument, or domain.ErrInvalidInput-worthy emptiness.
func (r FetchRequest) Arg(name string) string {
	return r.Args[name]
}

// FetchResult is the structured outcome of one fetcher run.
type FetchResult struct {
	// Cached means the source was already up to date and nothing was
	// fetched.
	Cached bool

	// Count is the number of events ingested when Cached is false.
	Count int
}

// Fetcher retrieves new provider data for one pointer, persists the mapped
// events and the advanced pointer through the stores, and reports what it
// did. On error the pointer must stay put.
type Fetcher func(ctx context.Context, req FetchRequest) (FetchResult, error)
