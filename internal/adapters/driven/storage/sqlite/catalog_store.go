package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ossignal/ossignal/internal/core/domain"
	"github.com/ossignal/ossignal/internal/core/ports/driven"
)

// catalogStore implements driven.CatalogStore.
type catalogStore struct {
	store *Store
}

var _ driven.CatalogStore = (*catalogStore)(nil)

// UpsertOrganization creates-or-returns an organisation keyed by
// (namespace, login). An existing row wins over the incoming values.
func (s *catalogStore) UpsertOrganization(ctx context.Context, org domain.Organization) (*domain.Organization, error) {
	if org.Login == "" || org.Namespace == "" {
		return nil, fmt.Errorf("organization needs namespace and login: %w", domain.ErrInvalidInput)
	}
	if org.Name == "" {
		org.Name = org.Login
	}
	if org.CreatedAt.IsZero() {
		org.CreatedAt = time.Now().UTC()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO organizations (name, namespace, login, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(namespace, login) DO NOTHING
	`, org.Name, string(org.Namespace), org.Login, formatTime(org.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("upserting organization: %w", err)
	}

	return s.GetOrganization(ctx, org.Namespace, org.Login)
}

// UpsertArtifact creates-or-returns an artifact keyed by
// (namespace, type, name). OrganizationID is only written on create.
func (s *catalogStore) UpsertArtifact(ctx context.Context, artifact domain.Artifact) (*domain.Artifact, error) {
	if artifact.Namespace == "" || artifact.Type == "" || artifact.Name == "" {
		return nil, fmt.Errorf("artifact needs namespace, type and name: %w", domain.ErrInvalidInput)
	}
	if artifact.CreatedAt.IsZero() {
		artifact.CreatedAt = time.Now().UTC()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO artifacts (organization_id, namespace, type, name, url, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(namespace, type, name) DO NOTHING
	`, nullInt64(artifact.OrganizationID), string(artifact.Namespace), string(artifact.Type),
		artifact.Name, artifact.URL, formatTime(artifact.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("upserting artifact: %w", err)
	}

	return s.GetArtifact(ctx, artifact.Namespace, artifact.Type, artifact.Name)
}

// GetOrganization retrieves an organisation by natural key.
func (s *catalogStore) GetOrganization(ctx context.Context, namespace domain.Namespace, login string) (*domain.Organization, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, name, namespace, login, created_at
		FROM organizations WHERE namespace = ? AND login = ?
	`, string(namespace), login)

	var org domain.Organization
	var createdAt string
	if err := row.Scan(&org.ID, &org.Name, &org.Namespace, &org.Login, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning organization: %w", err)
	}
	org.CreatedAt = parseTime(createdAt)

	return &org, nil
}

// GetArtifact retrieves an artifact by natural key.
func (s *catalogStore) GetArtifact(ctx context.Context, namespace domain.Namespace, typ domain.ArtifactType, name string) (*domain.Artifact, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, organization_id, namespace, type, name, url, created_at
		FROM artifacts WHERE namespace = ? AND type = ? AND name = ?
	`, string(namespace), string(typ), name)

	artifact, err := scanArtifact(row.Scan)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning artifact: %w", err)
	}
	return artifact, nil
}

// ListArtifacts returns artifacts matching the filter.
func (s *catalogStore) ListArtifacts(ctx context.Context, filter domain.ArtifactFilter) ([]domain.Artifact, error) {
	query := `
		SELECT id, organization_id, namespace, type, name, url, created_at
		FROM artifacts`
	var conds []string
	var args []any
	if filter.OrganizationID != 0 {
		conds = append(conds, "organization_id = ?")
		args = append(args, filter.OrganizationID)
	}
	if filter.Namespace != "" {
		conds = append(conds, "namespace = ?")
		args = append(args, string(filter.Namespace))
	}
	if filter.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, string(filter.Type))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id"

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []domain.Artifact //nolint:prealloc // size unknown from query
	for rows.Next() {
		artifact, err := scanArtifact(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning artifact: %w", err)
		}
		artifacts = append(artifacts, *artifact)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating artifacts: %w", err)
	}

	return artifacts, nil
}

// scanArtifact scans one artifact row via the given Scan function.
func scanArtifact(scan func(...any) error) (*domain.Artifact, error) {
	var artifact domain.Artifact
	var orgID sql.NullInt64
	var createdAt string
	if err := scan(&artifact.ID, &orgID, &artifact.Namespace, &artifact.Type,
		&artifact.Name, &artifact.URL, &createdAt); err != nil {
		return nil, err
	}
	artifact.OrganizationID = orgID.Int64
	artifact.CreatedAt = parseTime(createdAt)
	return &artifact, nil
}

// nullInt64 returns nil for zero, otherwise the value.
func nullInt64(v int64) interface{} {
	if v == 0 {
		return nil
	}
	return v
}
