package domain

import "time"

// Namespace identifies the provider a tracked artifact lives in.
type Namespace string

const (
	// NamespaceGitHub is the GitHub provider namespace.
	NamespaceGitHub Namespace = "GITHUB"

	// NamespaceNPMRegistry is the public npm registry namespace.
	NamespaceNPMRegistry Namespace = "NPM_REGISTRY"
)

// ArtifactType classifies a tracked artifact.
type ArtifactType string

const (
	// ArtifactGitRepository is a git repository (e.g. a GitHub repo).
	ArtifactGitRepository ArtifactType = "GIT_REPOSITORY"

	// ArtifactNPMPackage is a package published to the npm registry.
	ArtifactNPMPackage ArtifactType = "NPM_PACKAGE"
)

// Organization is a logical owner of artifacts within a provider namespace,
// e.g. a GitHub organisation. Organisations are created on first artifact
// discovery and never deleted.
type Organization struct {
	// ID is the store-assigned identifier.
	ID int64

	// Name is the human-readable display name.
	Name string

	// Namespace is the provider namespace the organisation belongs to.
	Namespace Namespace

	// Login is the organisation's external name in the provider namespace
	// (e.g. the GitHub org login). (Namespace, Login) is the natural key.
	Login string

	// CreatedAt is when the organisation was first recorded.
	CreatedAt time.Time
}

// Artifact is a trackable unit of external activity: a repository, a
// package. Identity is the (Namespace, Type, Name) triple and is immutable
// once created.
type Artifact struct {
	// ID is the store-assigned identifier.
	ID int64

	// OrganizationID references the owning Organization, if known.
	// Zero means no organisation has been associated.
	OrganizationID int64

	// Namespace is the provider namespace.
	Namespace Namespace

	// Type classifies the artifact.
	Type ArtifactType

	// Name is the artifact's name within the namespace
	// (e.g. "acme/widgets" for a repo, "left-pad" for a package).
	Name string

	// URL is the canonical human-readable URL.
	URL string

	// CreatedAt is when the artifact was first recorded locally.
	CreatedAt time.Time
}

// ArtifactFilter narrows ListArtifacts results. Zero-valued fields match
// everything.
type ArtifactFilter struct {
	OrganizationID int64
	Namespace      Namespace
	Type           ArtifactType
}

// Matches reports whether the artifact satisfies every set filter field.
func (f ArtifactFilter) Matches(a *Artifact) bool {
	if f.OrganizationID != 0 && a.OrganizationID != f.OrganizationID {
		return false
	}
	if f.Namespace != "" && a.Namespace != f.Namespace {
		return false
	}
	if f.Type != "" && a.Type != f.Type {
		return false
	}
	return true
}
