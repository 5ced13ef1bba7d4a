package github

import (
	"context"
	"fmt"
	"time"

	"github.com/ossignal/ossignal/internal/core/domain"
	"github.com/ossignal/ossignal/internal/core/ports/driven"
	"github.com/ossignal/ossignal/internal/logger"
	"github.com/ossignal/ossignal/internal/metrics"
)

// Registry commands. Stable: they are persisted on pointers for
// re-invocation, so renaming one orphans every pointer that carries it.
const (
	CommandIssueFiled  = "githubIssueFiled"
	CommandIssueClosed = "githubIssueClosed"
	CommandPRCreated   = "githubPRCreated"
	CommandPRMerged    = "githubPRMerged"
)

// Fetchers bundles the GitHub event fetchers with their collaborators.
type Fetchers struct {
	client   *Client
	catalog  driven.CatalogStore
	pointers driven.PointerStore
}

// NewFetchers creates the GitHub fetcher set.
func NewFetchers(client *Client, catalog driven.CatalogStore, pointers driven.PointerStore) *Fetchers {
	return &Fetchers{
		client:   client,
		catalog:  catalog,
		pointers: pointers,
	}
}

// Client returns the underlying GitHub client.
func (f *Fetchers) Client() *Client {
	return f.client
}

// IssueFiled ingests issues created inside the pointer's window.
func (f *Fetchers) IssueFiled(ctx context.Context, req driven.FetchRequest) (driven.FetchResult, error) {
	return f.fetch(ctx, req, domain.EventIssueFiled, CommandIssueFiled, IssuesFiledSearch, pickCreatedAt)
}

// IssueClosed ingests issues closed inside the pointer's window.
func (f *Fetchers) IssueClosed(ctx context.Context, req driven.FetchRequest) (driven.FetchResult, error) {
	return f.fetch(ctx, req, domain.EventIssueClosed, CommandIssueClosed, IssuesClosedSearch, pickClosedAt)
}

// PRCreated ingests pull requests opened inside the pointer's window.
func (f *Fetchers) PRCreated(ctx context.Context, req driven.FetchRequest) (driven.FetchResult, error) {
	return f.fetch(ctx, req, domain.EventPRCreated, CommandPRCreated, PRsCreatedSearch, pickCreatedAt)
}

// PRMerged ingests pull requests merged inside the pointer's window.
func (f *Fetchers) PRMerged(ctx context.Context, req driven.FetchRequest) (driven.FetchResult, error) {
	return f.fetch(ctx, req, domain.EventPRMerged, CommandPRMerged, PRsMergedSearch, pickMergedAt)
}

// searchBuilder renders the query for one repo and fetch window.
type searchBuilder func(nameWithOwner string, from, to time.Time) string

// timePicker selects the event timestamp from a search item. ok=false
// marks the record unusable; the caller skips it.
type timePicker func(Item) (t time.Time, ok bool)

func pickCreatedAt(item Item) (time.Time, bool) { return parsePicked(item.CreatedAt) }
func pickClosedAt(item Item) (time.Time, bool)  { return parsePicked(item.ClosedAt) }
func pickMergedAt(item Item) (time.Time, bool)  { return parsePicked(item.MergedAt) }

func parsePicked(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := ParseTime(s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// fetch is the shared window-walk: resolve artifact and pointer, search
// the closed-open window [lastFetch, now), map records to events, and
// commit events plus the advanced pointer atomically.
func (f *Fetchers) fetch(
	ctx context.Context,
	req driven.FetchRequest,
	eventType domain.EventType,
	command string,
	search searchBuilder,
	pick timePicker,
) (driven.FetchResult, error) {
	org := req.Arg("org")
	if org == "" {
		return driven.FetchResult{}, ErrMissingOrg
	}
	repo := req.Arg("repo")
	if repo == "" {
		return driven.FetchResult{}, ErrMissingRepo
	}
	nameWithOwner := org + "/" + repo

	artifact, err := f.catalog.GetArtifact(ctx, domain.NamespaceGitHub, domain.ArtifactGitRepository, nameWithOwner)
	if err != nil {
		return driven.FetchResult{}, fmt.Errorf("artifact %s: %w", nameWithOwner, err)
	}

	pointer, err := f.pointers.GetPointer(ctx, artifact.ID, eventType)
	if err != nil {
		return driven.FetchResult{}, fmt.Errorf("pointer %s/%s: %w", nameWithOwner, eventType, err)
	}

	tp, err := domain.DecodeTimePointer(pointer.Payload)
	if err != nil {
		return driven.FetchResult{}, fmt.Errorf("pointer %s/%s: %w", nameWithOwner, eventType, err)
	}

	from := tp.LastFetch
	to := req.Now.UTC().Truncate(time.Second)
	if !to.After(from) {
		// An up-to-date pointer still latches a requested autocrawl flag.
		if req.Autocrawl && !pointer.Autocrawl {
			err := f.pointers.AdvancePointer(ctx, driven.PointerAdvance{
				ArtifactID:      artifact.ID,
				EventType:       eventType,
				PreviousPayload: pointer.Payload,
				NewPayload:      pointer.Payload,
				QueryCommand:    command,
				QueryArgs:       map[string]string{"org": org, "repo": repo},
				Autocrawl:       true,
			})
			if err != nil {
				return driven.FetchResult{}, fmt.Errorf("advance pointer %s/%s: %w", nameWithOwner, eventType, err)
			}
		}
		return driven.FetchResult{Cached: true}, nil
	}

	logger.Info("GitHub %s: fetching %s window %s..%s", eventType, nameWithOwner, FormatTime(from), FormatTime(to))

	items, err := f.client.Search(ctx, search(nameWithOwner, from, to))
	if err != nil {
		metrics.FetchErrors.WithLabelValues(string(domain.NamespaceGitHub)).Inc()
		return driven.FetchResult{}, fmt.Errorf("search %s: %w", nameWithOwner, err)
	}

	events := make([]domain.Event, 0, len(items))
	for _, item := range items {
		t, ok := pick(item)
		if !ok {
			logger.Warn("Skipping %s record with unusable timestamp: %s", eventType, item.URL)
			continue
		}
		events = append(events, domain.Event{
			ArtifactID: artifact.ID,
			Type:       eventType,
			Time:       t,
			Amount:     0,
			Details: domain.MustMarshalPayload(domain.IssueDetails{
				URL:   item.URL,
				Login: item.Author.Login,
				Title: item.Title,
			}),
			Contributor: item.Author.Login,
		})
	}

	advance := driven.PointerAdvance{
		ArtifactID:      artifact.ID,
		EventType:       eventType,
		PreviousPayload: pointer.Payload,
		NewPayload:      domain.MustMarshalPayload(domain.TimePointer{LastFetch: to}),
		Events:          events,
		QueryCommand:    command,
		QueryArgs:       map[string]string{"org": org, "repo": repo},
		Autocrawl:       req.Autocrawl,
	}
	if err := f.pointers.AdvancePointer(ctx, advance); err != nil {
		metrics.FetchErrors.WithLabelValues(string(domain.NamespaceGitHub)).Inc()
		return driven.FetchResult{}, fmt.Errorf("advance pointer %s/%s: %w", nameWithOwner, eventType, err)
	}

	metrics.EventsIngested.WithLabelValues(string(eventType)).Add(float64(len(events)))
	return driven.FetchResult{Count: len(events)}, nil
}
