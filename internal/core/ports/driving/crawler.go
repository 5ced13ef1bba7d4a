package driving

import (
	"context"

	"github.com/ossignal/ossignal/internal/core/domain"
)

// Outcome is the terminal state of one pointer's crawl.
type Outcome string

const (
	// OutcomeSuccess means new events were fetched and the pointer
	// advanced.
	OutcomeSuccess Outcome = "success"

	// OutcomeCached means the source was already up to date.
	OutcomeCached Outcome = "cached"

	// OutcomeSkipped means no fetcher matched the pointer's command.
	OutcomeSkipped Outcome = "skipped"

	// OutcomeFailed means the fetch errored; the pointer did not advance.
	OutcomeFailed Outcome = "failed"
)

// Summary is the per-pointer record a crawl run produces. The batch itself
// always completes; callers inspect summaries to decide on alerting.
type Summary struct {
	// RunID identifies the crawl run this summary belongs to.
	RunID string

	// Command is the registry command that was (or would have been)
	// invoked.
	Command string

	// Args are the arguments the command was invoked with.
	Args map[string]string

	// Outcome is the terminal state.
	Outcome Outcome

	// Count is the number of events ingested on success.
	Count int

	// Detail carries the error message on failure, or context for a
	// skip.
	Detail string
}

// Crawler drives unattended crawling: it iterates all autocrawl pointers,
// dispatches each to its fetcher, and aggregates per-pointer outcomes
// without letting one failure abort the batch.
type Crawler interface {
	// Run crawls every autocrawl pointer once and returns one summary
	// per pointer. The returned error covers only the listing of
	// pointers; individual fetch failures are reported in summaries.
	Run(ctx context.Context) ([]Summary, error)
}

// CatalogManager registers new artifacts for tracking: it upserts the
// organisation, discovers its artifacts at the provider, and seeds event
// source pointers for each discovered artifact.
type CatalogManager interface {
	// TrackGitHubOrg upserts the organisation, upserts an artifact per
	// repository the provider reports, and seeds pointers for every
	// GitHub repo event type. Returns the artifacts newly added by this
	// call.
	TrackGitHubOrg(ctx context.Context, displayName, login string) ([]domain.Artifact, error)
}
