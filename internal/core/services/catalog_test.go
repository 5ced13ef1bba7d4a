package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ossignal/ossignal/internal/adapters/driven/storage/memory"
	"github.com/ossignal/ossignal/internal/core/domain"
	"github.com/ossignal/ossignal/internal/providers/github"
)

// orgServer serves the minimal GitHub surface TrackGitHubOrg touches: the
// GraphQL repository listing and the REST repository metadata lookup.
func orgServer(t *testing.T, repos []string, createdAt string) *github.Client {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/repos/") {
			fmt.Fprintf(w, `{"created_at":%q}`, createdAt)
			return
		}

		nodes := make([]map[string]any, 0, len(repos))
		for _, repo := range repos {
			nodes = append(nodes, map[string]any{
				"name":          repo[strings.IndexByte(repo, '/')+1:],
				"nameWithOwner": repo,
				"url":           "https://github.com/" + repo,
			})
		}
		body, err := json.Marshal(map[string]any{
			"data": map[string]any{
				"rateLimit": map[string]any{
					"limit": 5000, "cost": 1, "remaining": 4999,
					"resetAt": "2024-03-08T01:00:00Z",
				},
				"organization": map[string]any{
					"repositories": map[string]any{
						"pageInfo": map[string]any{"hasNextPage": false, "endCursor": ""},
						"nodes":    nodes,
					},
				},
			},
		})
		require.NoError(t, err)
		w.Write(body) //nolint:errcheck
	}))
	t.Cleanup(server.Close)

	return github.NewClientWithHTTPClient(server.Client(), server.URL)
}

func TestTrackGitHubOrg_SeedsArtifactsAndPointers(t *testing.T) {
	client := orgServer(t, []string{"acme/widgets", "acme/gadgets"}, "2020-05-01T08:30:00Z")
	catalog := memory.NewCatalogStore()
	pointers := memory.NewPointerStore()
	manager := NewCatalogManager(client, catalog, pointers)
	ctx := context.Background()

	added, err := manager.TrackGitHubOrg(ctx, "Acme Corp", "acme")
	require.NoError(t, err)
	require.Len(t, added, 2)

	artifact, err := catalog.GetArtifact(ctx, domain.NamespaceGitHub, domain.ArtifactGitRepository, "acme/widgets")
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/acme/widgets", artifact.URL)

	// One pointer per repo event type, seeded at repo creation.
	for _, eventType := range domain.GitHubRepoEventTypes() {
		pointer, err := pointers.GetPointer(ctx, artifact.ID, eventType)
		require.NoError(t, err)
		assert.True(t, pointer.Autocrawl)
		assert.Equal(t, map[string]string{"org": "acme", "repo": "widgets"}, pointer.QueryArgs)

		bookmark, err := domain.DecodeTimePointer(pointer.Payload)
		require.NoError(t, err)
		assert.Equal(t, "2020-05-01T08:30:00Z", github.FormatTime(bookmark.LastFetch))
	}

	all, err := pointers.ListAutocrawl(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2*len(domain.GitHubRepoEventTypes()))
}

func TestTrackGitHubOrg_Idempotent(t *testing.T) {
	client := orgServer(t, []string{"acme/widgets"}, "2020-05-01T08:30:00Z")
	catalog := memory.NewCatalogStore()
	pointers := memory.NewPointerStore()
	manager := NewCatalogManager(client, catalog, pointers)
	ctx := context.Background()

	added, err := manager.TrackGitHubOrg(ctx, "Acme Corp", "acme")
	require.NoError(t, err)
	require.Len(t, added, 1)

	// Second run discovers nothing new and disturbs nothing.
	added, err = manager.TrackGitHubOrg(ctx, "Acme Corp", "acme")
	require.NoError(t, err)
	assert.Empty(t, added)

	all, err := pointers.ListAutocrawl(ctx)
	require.NoError(t, err)
	assert.Len(t, all, len(domain.GitHubRepoEventTypes()))
}

func TestTrackGitHubOrg_RequiresLogin(t *testing.T) {
	manager := NewCatalogManager(nil, memory.NewCatalogStore(), memory.NewPointerStore())

	_, err := manager.TrackGitHubOrg(context.Background(), "Acme Corp", "")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestTrackGitHubOrg_UnknownOrg(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"organization":null}}`)
	}))
	t.Cleanup(server.Close)
	client := github.NewClientWithHTTPClient(server.Client(), server.URL)

	manager := NewCatalogManager(client, memory.NewCatalogStore(), memory.NewPointerStore())

	_, err := manager.TrackGitHubOrg(context.Background(), "Nobody", "no-such-org")
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), "no-such-org")
}

func TestTrackGitHubOrg_ProviderFailureLeavesStoresUntouched(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"bad credentials"}`, http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)
	client := github.NewClientWithHTTPClient(server.Client(), server.URL)

	catalog := memory.NewCatalogStore()
	pointers := memory.NewPointerStore()
	manager := NewCatalogManager(client, catalog, pointers)
	ctx := context.Background()

	_, err := manager.TrackGitHubOrg(ctx, "Acme Corp", "acme")
	require.Error(t, err)

	_, err = catalog.GetOrganization(ctx, domain.NamespaceGitHub, "acme")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSplitNameWithOwner(t *testing.T) {
	owner, name, err := splitNameWithOwner("acme/widgets")
	require.NoError(t, err)
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "widgets", name)

	_, _, err = splitNameWithOwner("widgets")
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, _, err = splitNameWithOwner("/widgets")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}
