package driving

import "context"

// FetchOutcome is what a single named fetch reports back to its caller.
type FetchOutcome struct {
	// Cached means the source was already up to date.
	Cached bool

	// Count is the number of events ingested when Cached is false.
	Count int
}

// FetchInvoker runs one registry command on demand, e.g. from a CLI
// subcommand. Args carry the fetcher-specific arguments; autocrawl marks
// the advanced pointer for unattended crawling.
type FetchInvoker interface {
	Invoke(ctx context.Context, command string, args map[string]string, autocrawl bool) (FetchOutcome, error)
}
