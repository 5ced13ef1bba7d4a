package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/ossignal/ossignal/internal/core/domain"
	"github.com/ossignal/ossignal/internal/core/ports/driven"
	"github.com/ossignal/ossignal/internal/core/ports/driving"
	"github.com/ossignal/ossignal/internal/logger"
	"github.com/ossignal/ossignal/internal/providers/github"
)

// Ensure CatalogManager implements the interface.
var _ driving.CatalogManager = (*CatalogManager)(nil)

// CatalogManager registers organisations and their artifacts for tracking.
type CatalogManager struct {
	gh       *github.Client
	catalog  driven.CatalogStore
	pointers driven.PointerStore
}

// NewCatalogManager creates a catalog manager.
func NewCatalogManager(gh *github.Client, catalog driven.CatalogStore, pointers driven.PointerStore) *CatalogManager {
	return &CatalogManager{
		gh:       gh,
		catalog:  catalog,
		pointers: pointers,
	}
}

// TrackGitHubOrg upserts the organisation, upserts one artifact per
// repository the provider reports, and seeds an event source pointer for
// every GitHub repo event type of every repository. Pointers are seeded at
// the repository's creation time, so the first crawl backfills the full
// history. The whole flow is idempotent: re-running it for an org only
// adds what is missing.
func (m *CatalogManager) TrackGitHubOrg(ctx context.Context, displayName, login string) ([]domain.Artifact, error) {
	if login == "" {
		return nil, fmt.Errorf("github org login required: %w", domain.ErrInvalidInput)
	}
	if displayName == "" {
		displayName = login
	}

	repos, err := m.gh.OrgRepos(ctx, login)
	if err != nil {
		if github.IsNotFound(err) {
			return nil, fmt.Errorf("github org %s: %w", login, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("listing repos for %s: %w", login, err)
	}
	logger.Info("GitHub org %s: %d repositories", login, len(repos))

	org, err := m.catalog.UpsertOrganization(ctx, domain.Organization{
		Name:      displayName,
		Namespace: domain.NamespaceGitHub,
		Login:     login,
	})
	if err != nil {
		return nil, fmt.Errorf("upserting organization %s: %w", login, err)
	}

	existing, err := m.catalog.ListArtifacts(ctx, domain.ArtifactFilter{
		OrganizationID: org.ID,
		Namespace:      domain.NamespaceGitHub,
		Type:           domain.ArtifactGitRepository,
	})
	if err != nil {
		return nil, fmt.Errorf("listing artifacts for %s: %w", login, err)
	}
	known := make(map[string]struct{}, len(existing))
	for _, artifact := range existing {
		known[artifact.URL] = struct{}{}
	}

	var added []domain.Artifact
	for _, repo := range repos {
		artifact, err := m.catalog.UpsertArtifact(ctx, domain.Artifact{
			OrganizationID: org.ID,
			Namespace:      domain.NamespaceGitHub,
			Type:           domain.ArtifactGitRepository,
			Name:           repo.NameWithOwner,
			URL:            repo.URL,
		})
		if err != nil {
			return nil, fmt.Errorf("upserting artifact %s: %w", repo.NameWithOwner, err)
		}
		if _, seen := known[artifact.URL]; !seen {
			added = append(added, *artifact)
		}

		if err := m.seedRepoPointers(ctx, artifact); err != nil {
			return nil, err
		}
	}

	logger.Info("GitHub org %s: %d new repositories", login, len(added))
	return added, nil
}

// seedRepoPointers ensures a pointer per GitHub repo event type, seeded at
// the repository's creation time.
func (m *CatalogManager) seedRepoPointers(ctx context.Context, artifact *domain.Artifact) error {
	owner, name, err := splitNameWithOwner(artifact.Name)
	if err != nil {
		return err
	}

	createdAt, err := m.gh.RepositoryCreatedAt(ctx, owner, name)
	if err != nil {
		return fmt.Errorf("repository created-at %s: %w", artifact.Name, err)
	}

	seed := domain.MustMarshalPayload(domain.TimePointer{LastFetch: createdAt})
	for _, eventType := range domain.GitHubRepoEventTypes() {
		entry, err := m.registryCommand(eventType)
		if err != nil {
			return err
		}
		_, err = m.pointers.EnsurePointer(ctx, domain.EventSourcePointer{
			ArtifactID:   artifact.ID,
			EventType:    eventType,
			Payload:      seed,
			Autocrawl:    true,
			QueryCommand: entry,
			QueryArgs:    map[string]string{"org": owner, "repo": name},
		})
		if err != nil {
			return fmt.Errorf("seeding pointer %s/%s: %w", artifact.Name, eventType, err)
		}
	}
	return nil
}

// registryCommand maps a repo event type to the command that advances it.
func (m *CatalogManager) registryCommand(eventType domain.EventType) (string, error) {
	switch eventType {
	case domain.EventIssueFiled:
		return github.CommandIssueFiled, nil
	case domain.EventIssueClosed:
		return github.CommandIssueClosed, nil
	case domain.EventPRCreated:
		return github.CommandPRCreated, nil
	case domain.EventPRMerged:
		return github.CommandPRMerged, nil
	default:
		return "", fmt.Errorf("event type %s: %w", eventType, domain.ErrNoFetcher)
	}
}

// splitNameWithOwner splits "owner/name" into its parts.
func splitNameWithOwner(nameWithOwner string) (owner, name string, err error) {
	parts := strings.SplitN(nameWithOwner, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("repository name %q is not owner/name: %w", nameWithOwner, domain.ErrInvalidInput)
	}
	return parts[0], parts[1], nil
}
