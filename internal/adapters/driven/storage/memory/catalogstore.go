// Package memory provides in-memory implementations of the driven store
// ports, used by tests and as lightweight fakes.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ossignal/ossignal/internal/core/domain"
	"github.com/ossignal/ossignal/internal/core/ports/driven"
)

// Ensure CatalogStore implements the interface.
var _ driven.CatalogStore = (*CatalogStore)(nil)

// CatalogStore is an in-memory implementation of driven.CatalogStore.
type CatalogStore struct {
	mu        sync.RWMutex
	orgs      map[string]domain.Organization
	artifacts map[string]domain.Artifact
	nextID    int64
}

// NewCatalogStore creates a new in-memory catalog store.
func NewCatalogStore() *CatalogStore {
	return &CatalogStore{
		orgs:      make(map[string]domain.Organization),
		artifacts: make(map[string]domain.Artifact),
	}
}

func orgKey(namespace domain.Namespace, login string) string {
	return fmt.Sprintf("%s|%s", namespace, login)
}

func artifactKey(namespace domain.Namespace, typ domain.ArtifactType, name string) string {
	return fmt.Sprintf("%s|%s|%s", namespace, typ, name)
}

// UpsertOrganization creates-or-returns an organisation keyed by
// (namespace, login).
func (s *CatalogStore) UpsertOrganization(_ context.Context, org domain.Organization) (*domain.Organization, error) {
	if org.Login == "" || org.Namespace == "" {
		return nil, fmt.Errorf("organization needs namespace and login: %w", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := orgKey(org.Namespace, org.Login)
	if existing, ok := s.orgs[key]; ok {
		return &existing, nil
	}

	s.nextID++
	org.ID = s.nextID
	if org.Name == "" {
		org.Name = org.Login
	}
	if org.CreatedAt.IsZero() {
		org.CreatedAt = time.Now().UTC()
	}
	s.orgs[key] = org
	return &org, nil
}

// UpsertArtifact creates-or-returns an artifact keyed by
// (namespace, type, name).
func (s *CatalogStore) UpsertArtifact(_ context.Context, artifact domain.Artifact) (*domain.Artifact, error) {
	if artifact.Namespace == "" || artifact.Type == "" || artifact.Name == "" {
		return nil, fmt.Errorf("artifact needs namespace, type and name: %w", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := artifactKey(artifact.Namespace, artifact.Type, artifact.Name)
	if existing, ok := s.artifacts[key]; ok {
		return &existing, nil
	}

	s.nextID++
	artifact.ID = s.nextID
	if artifact.CreatedAt.IsZero() {
		artifact.CreatedAt = time.Now().UTC()
	}
	s.artifacts[key] = artifact
	return &artifact, nil
}

// GetOrganization retrieves an organisation by natural key.
func (s *CatalogStore) GetOrganization(_ context.Context, namespace domain.Namespace, login string) (*domain.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	org, ok := s.orgs[orgKey(namespace, login)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &org, nil
}

// GetArtifact retrieves an artifact by natural key.
func (s *CatalogStore) GetArtifact(_ context.Context, namespace domain.Namespace, typ domain.ArtifactType, name string) (*domain.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	artifact, ok := s.artifacts[artifactKey(namespace, typ, name)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &artifact, nil
}

// ListArtifacts returns artifacts matching the filter, ordered by ID.
func (s *CatalogStore) ListArtifacts(_ context.Context, filter domain.ArtifactFilter) ([]domain.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var artifacts []domain.Artifact
	for _, artifact := range s.artifacts {
		if filter.Matches(&artifact) {
			artifacts = append(artifacts, artifact)
		}
	}
	sort.Slice(artifacts, func(i, j int) bool { return artifacts[i].ID < artifacts[j].ID })
	return artifacts, nil
}
