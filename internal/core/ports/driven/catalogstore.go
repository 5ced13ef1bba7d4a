package driven

import (
	"context"

	"github.com/ossignal/ossignal/internal/core/domain"
)

// CatalogStore persists organisations and artifacts.
//
// Both upserts are idempotent on the natural key: calling twice with the
// same key returns the existing row unmodified, never a duplicate and never
// an overwrite of previously set fields.
type CatalogStore interface {
	// UpsertOrganization creates-or-returns an organisation keyed by
	// (namespace, login).
	UpsertOrganization(ctx context.Context, org domain.Organization) (*domain.Organization, error)

	// UpsertArtifact creates-or-returns an artifact keyed by
	// (namespace, type, name). OrganizationID is only written on create.
	UpsertArtifact(ctx context.Context, artifact domain.Artifact) (*domain.Artifact, error)

	// GetOrganization retrieves an organisation by natural key.
	// Returns domain.ErrNotFound if absent.
	GetOrganization(ctx context.Context, namespace domain.Namespace, login string) (*domain.Organization, error)

	// GetArtifact retrieves an artifact by natural key.
	// Returns domain.ErrNotFound if absent.
	GetArtifact(ctx context.Context, namespace domain.Namespace, typ domain.ArtifactType, name string) (*domain.Artifact, error)

	// ListArtifacts returns artifacts matching the filter, for diffing
	// against a freshly fetched provider list by URL or name.
	ListArtifacts(ctx context.Context, filter domain.ArtifactFilter) ([]domain.Artifact, error)
}
