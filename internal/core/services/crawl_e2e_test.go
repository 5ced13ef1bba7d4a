package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ossignal/ossignal/internal/adapters/driven/storage/sqlite"
	"github.com/ossignal/ossignal/internal/core/domain"
	"github.com/ossignal/ossignal/internal/core/ports/driving"
	"github.com/ossignal/ossignal/internal/providers/github"
)

// TestCrawl_EndToEnd runs an unattended crawl against the real sqlite
// store and a mocked GitHub API: a seeded issue pointer is fetched, the
// events land in the store, the pointer advances to the run's window end,
// and an immediate re-run is a cache hit.
func TestCrawl_EndToEnd(t *testing.T) {
	var queries []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if q, ok := req.Variables["searchString"].(string); ok {
			queries = append(queries, q)
		}

		body, err := json.Marshal(map[string]any{
			"data": map[string]any{
				"rateLimit": map[string]any{
					"limit": 5000, "cost": 1, "remaining": 4999,
					"resetAt": time.Now().UTC().Add(time.Hour).Format(time.RFC3339),
				},
				"search": map[string]any{
					"pageInfo": map[string]any{"hasNextPage": false, "endCursor": ""},
					"nodes": []map[string]any{
						{
							"createdAt": "2024-01-02T09:00:00Z",
							"author":    map[string]any{"login": "alice"},
							"title":     "widgets are broken",
							"url":       "https://github.com/acme/widgets/issues/1",
							"state":     "OPEN",
						},
						{
							"createdAt": "2024-01-03T14:30:00Z",
							"author":    map[string]any{"login": "bob"},
							"title":     "more widgets please",
							"url":       "https://github.com/acme/widgets/issues/2",
							"state":     "OPEN",
						},
					},
				},
			},
		})
		require.NoError(t, err)
		w.Write(body) //nolint:errcheck
	}))
	t.Cleanup(server.Close)

	store, err := sqlite.NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() }) //nolint:errcheck

	ctx := context.Background()
	catalog := store.CatalogStore()
	pointers := store.PointerStore()

	org, err := catalog.UpsertOrganization(ctx, domain.Organization{
		Name: "Acme Corp", Namespace: domain.NamespaceGitHub, Login: "acme",
	})
	require.NoError(t, err)

	artifact, err := catalog.UpsertArtifact(ctx, domain.Artifact{
		OrganizationID: org.ID,
		Namespace:      domain.NamespaceGitHub,
		Type:           domain.ArtifactGitRepository,
		Name:           "acme/widgets",
		URL:            "https://github.com/acme/widgets",
	})
	require.NoError(t, err)

	_, err = pointers.EnsurePointer(ctx, domain.EventSourcePointer{
		ArtifactID: artifact.ID,
		EventType:  domain.EventIssueFiled,
		Payload: domain.MustMarshalPayload(domain.TimePointer{
			LastFetch: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		}),
		Autocrawl:    true,
		QueryCommand: github.CommandIssueFiled,
		QueryArgs:    map[string]string{"org": "acme", "repo": "widgets"},
	})
	require.NoError(t, err)

	client := github.NewClientWithHTTPClient(server.Client(), server.URL)
	fetchers := github.NewFetchers(client, catalog, pointers)

	registry, err := NewFetcherRegistry(RegistryEntry{
		Command:      github.CommandIssueFiled,
		Namespace:    domain.NamespaceGitHub,
		ArtifactType: domain.ArtifactGitRepository,
		EventType:    domain.EventIssueFiled,
		Fetch:        fetchers.IssueFiled,
	})
	require.NoError(t, err)

	crawler := NewCrawler(registry, pointers, 0)
	now := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	crawler.now = func() time.Time { return now }

	summaries, err := crawler.Run(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, driving.OutcomeSuccess, summaries[0].Outcome)
	assert.Equal(t, 2, summaries[0].Count)

	// The searched window runs from the bookmark to just before now,
	// inclusive at both ends.
	require.Len(t, queries, 1)
	assert.True(t, strings.Contains(queries[0], "repo:acme/widgets"), queries[0])
	assert.True(t, strings.Contains(queries[0], "2024-01-01T00:00:00Z..2024-01-09T23:59:59Z"), queries[0])

	events, err := store.EventStore().ListEvents(ctx, artifact.ID, domain.EventIssueFiled)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "alice", events[0].Contributor)
	assert.Equal(t, "bob", events[1].Contributor)
	assert.True(t, events[0].Time.Before(events[1].Time))

	// Pointer advanced to the run's window end, not the last event time.
	pointer, err := pointers.GetPointer(ctx, artifact.ID, domain.EventIssueFiled)
	require.NoError(t, err)
	bookmark, err := domain.DecodeTimePointer(pointer.Payload)
	require.NoError(t, err)
	assert.True(t, bookmark.LastFetch.Equal(now))
	assert.Equal(t, github.CommandIssueFiled, pointer.QueryCommand)
	assert.True(t, pointer.Autocrawl)

	// Re-running at the same instant has nothing to fetch.
	summaries, err = crawler.Run(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, driving.OutcomeCached, summaries[0].Outcome)
	require.Len(t, queries, 1)

	count, err := store.EventStore().CountEvents(ctx, artifact.ID, domain.EventIssueFiled)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}
