package npm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ossignal/ossignal/internal/core/domain"
	"github.com/ossignal/ossignal/internal/core/ports/driven"
	"github.com/ossignal/ossignal/internal/logger"
	"github.com/ossignal/ossignal/internal/metrics"
)

// CommandDownloads is the registry command persisted on downloads pointers.
const CommandDownloads = "npmDownloads"

// defaultStartDate predates the npm registry's first release (2010-01-12),
// so a fresh pointer backfills the package's entire history.
const defaultStartDate = "2010-01-01"

// PackageURL is the human-readable page for a package.
func PackageURL(name string) string {
	return "https://www.npmjs.com/package/" + name
}

// Fetcher ingests daily download counts for npm packages.
type Fetcher struct {
	client   *Client
	catalog  driven.CatalogStore
	pointers driven.PointerStore
}

// NewFetcher creates the npm downloads fetcher.
func NewFetcher(client *Client, catalog driven.CatalogStore, pointers driven.PointerStore) *Fetcher {
	return &Fetcher{
		client:   client,
		catalog:  catalog,
		pointers: pointers,
	}
}

// Downloads ingests the daily download counts published since the pointer's
// last ingested day. The package and its owning organisation are upserted
// on every run, so the first invocation for a package needs no prior
// catalog entry.
func (f *Fetcher) Downloads(ctx context.Context, req driven.FetchRequest) (driven.FetchResult, error) {
	name := req.Arg("name")
	if name == "" {
		return driven.FetchResult{}, ErrMissingName
	}
	logger.Info("npm downloads: fetching for %s", name)

	artifact, err := f.ensureArtifact(ctx, name)
	if err != nil {
		return driven.FetchResult{}, err
	}

	pointer, err := f.pointers.EnsurePointer(ctx, domain.EventSourcePointer{
		ArtifactID:   artifact.ID,
		EventType:    domain.EventDownloads,
		Payload:      domain.MustMarshalPayload(domain.DatePointer{}),
		QueryCommand: CommandDownloads,
		QueryArgs:    map[string]string{"name": name},
	})
	if err != nil {
		return driven.FetchResult{}, fmt.Errorf("pointer %s: %w", name, err)
	}

	dp, err := domain.DecodeDatePointer(pointer.Payload)
	if err != nil {
		return driven.FetchResult{}, fmt.Errorf("pointer %s: %w", name, err)
	}
	firstRun := dp.LastDate == ""
	base := dp.LastDate
	if firstRun {
		base = defaultStartDate
	}
	lastDate, err := ParseDay(base)
	if err != nil {
		return driven.FetchResult{}, fmt.Errorf("pointer %s: %w", name, domain.ErrInvalidPointer)
	}

	// Resume the day after the pointer; stop at yesterday because the
	// current day's counts are still accumulating.
	start := lastDate.AddDate(0, 0, 1)
	end := req.Now.UTC().Truncate(24 * time.Hour).AddDate(0, 0, -1)
	if end.Before(start) {
		// An up-to-date pointer still latches a requested autocrawl flag.
		if req.Autocrawl && !pointer.Autocrawl {
			err := f.pointers.AdvancePointer(ctx, driven.PointerAdvance{
				ArtifactID:      artifact.ID,
				EventType:       domain.EventDownloads,
				PreviousPayload: pointer.Payload,
				NewPayload:      pointer.Payload,
				QueryCommand:    CommandDownloads,
				QueryArgs:       map[string]string{"name": name},
				Autocrawl:       true,
			})
			if err != nil {
				return driven.FetchResult{}, fmt.Errorf("advance pointer %s: %w", name, err)
			}
		}
		return driven.FetchResult{Cached: true}, nil
	}

	downloads, err := f.client.DailyDownloads(ctx, name, start, end)
	if err != nil {
		metrics.FetchErrors.WithLabelValues(string(domain.NamespaceNPMRegistry)).Inc()
		return driven.FetchResult{}, err
	}

	if HasDuplicates(downloads) {
		return driven.FetchResult{}, fmt.Errorf("downloads %s: duplicate days in result: %w", name, domain.ErrMalformedData)
	}
	// A first backfill tolerates gaps in ancient history as long as the
	// newest day arrived; an incremental run must cover every day.
	missingFrom := start
	if firstRun {
		missingFrom = end
	}
	missing, err := MissingDays(downloads, missingFrom, end)
	if err != nil {
		return driven.FetchResult{}, err
	}
	if len(missing) > 0 {
		return driven.FetchResult{}, fmt.Errorf("downloads %s: missing days in result: %s: %w",
			name, strings.Join(formatDays(missing), ", "), domain.ErrMalformedData)
	}

	events := make([]domain.Event, 0, len(downloads))
	for _, d := range downloads {
		day, err := ParseDay(d.Day)
		if err != nil {
			logger.Warn("Skipping downloads record with unusable day %q", d.Day)
			continue
		}
		events = append(events, domain.Event{
			ArtifactID: artifact.ID,
			Type:       domain.EventDownloads,
			Time:       day,
			Amount:     d.Downloads,
		})
	}

	advance := driven.PointerAdvance{
		ArtifactID:      artifact.ID,
		EventType:       domain.EventDownloads,
		PreviousPayload: pointer.Payload,
		NewPayload:      domain.MustMarshalPayload(domain.DatePointer{LastDate: FormatDay(end)}),
		Events:          events,
		QueryCommand:    CommandDownloads,
		QueryArgs:       map[string]string{"name": name},
		Autocrawl:       req.Autocrawl,
	}
	if err := f.pointers.AdvancePointer(ctx, advance); err != nil {
		metrics.FetchErrors.WithLabelValues(string(domain.NamespaceNPMRegistry)).Inc()
		return driven.FetchResult{}, fmt.Errorf("advance pointer %s: %w", name, err)
	}

	metrics.EventsIngested.WithLabelValues(string(domain.EventDownloads)).Add(float64(len(events)))
	return driven.FetchResult{Count: len(events)}, nil
}

// ensureArtifact upserts the package artifact, linking it to the GitHub
// organisation named in its manifest when one can be determined.
func (f *Fetcher) ensureArtifact(ctx context.Context, name string) (*domain.Artifact, error) {
	manifest, err := f.client.Latest(ctx, name)
	if err != nil {
		metrics.FetchErrors.WithLabelValues(string(domain.NamespaceNPMRegistry)).Inc()
		return nil, err
	}
	logger.Info("Repository URL: %s", manifest.Repository.URL)

	var orgID int64
	if githubOrg := manifest.GitHubOrg(); githubOrg == "" {
		logger.Warn("Unable to find the GitHub organization for %s", name)
	} else {
		logger.Info("GitHub organization for %s: %s", name, githubOrg)
		org, err := f.catalog.UpsertOrganization(ctx, domain.Organization{
			Name:      githubOrg,
			Namespace: domain.NamespaceGitHub,
			Login:     githubOrg,
		})
		if err != nil {
			return nil, fmt.Errorf("upsert organization %s: %w", githubOrg, err)
		}
		orgID = org.ID
	}

	artifact, err := f.catalog.UpsertArtifact(ctx, domain.Artifact{
		OrganizationID: orgID,
		Namespace:      domain.NamespaceNPMRegistry,
		Type:           domain.ArtifactNPMPackage,
		Name:           name,
		URL:            PackageURL(name),
	})
	if err != nil {
		return nil, fmt.Errorf("upsert artifact %s: %w", name, err)
	}
	return artifact, nil
}

// MissingDays returns the days in [start, end], both inclusive, that have
// no entry in downloads. Membership is checked against a set, keeping the
// scan linear in the window size.
func MissingDays(downloads []DayDownloads, start, end time.Time) ([]time.Time, error) {
	if start.After(end) {
		return nil, fmt.Errorf("start %s is after end %s: %w",
			FormatDay(start), FormatDay(end), domain.ErrInvalidInput)
	}

	have := make(map[string]struct{}, len(downloads))
	for _, d := range downloads {
		have[d.Day] = struct{}{}
	}

	var missing []time.Time
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if _, ok := have[FormatDay(day)]; !ok {
			missing = append(missing, day)
		}
	}
	return missing, nil
}

// HasDuplicates reports whether any day appears more than once.
func HasDuplicates(downloads []DayDownloads) bool {
	seen := make(map[string]struct{}, len(downloads))
	for _, d := range downloads {
		if _, ok := seen[d.Day]; ok {
			return true
		}
		seen[d.Day] = struct{}{}
	}
	return false
}

func formatDays(days []time.Time) []string {
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = FormatDay(d)
	}
	return out
}
