package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ossignal/ossignal/internal/core/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClientWithHTTPClient(server.Client(), server.URL)
}

func TestSearchFollowsCursors(t *testing.T) {
	var cursors []any
	page := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req graphqlRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		cursors = append(cursors, req.Variables["cursor"])

		page++
		switch page {
		case 1:
			w.Write(searchResponse(t, []map[string]any{
				issueNode("2024-03-02T10:00:00Z", "", "alice", "one", "https://example.test/1"),
			}, true, "c1", 4999))
		case 2:
			w.Write(searchResponse(t, []map[string]any{
				issueNode("2024-03-03T10:00:00Z", "", "bob", "two", "https://example.test/2"),
			}, true, "c2", 4998))
		default:
			w.Write(searchResponse(t, []map[string]any{
				issueNode("2024-03-04T10:00:00Z", "", "carol", "three", "https://example.test/3"),
			}, false, "", 4997))
		}
	})

	items, err := client.Search(context.Background(), "repo:acme/widgets is:issue")
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "alice", items[0].Author.Login)
	assert.Equal(t, "carol", items[2].Author.Login)

	require.Len(t, cursors, 3)
	assert.Nil(t, cursors[0])
	assert.Equal(t, "c1", cursors[1])
	assert.Equal(t, "c2", cursors[2])
}

func TestSearchSkipsUnparseableNodes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// A node of the wrong JSON shape must not sink the page.
		w.Write([]byte(`{"data":{"rateLimit":{"limit":5000,"cost":1,"remaining":4999,"resetAt":"2024-03-08T01:00:00Z"},"search":{"pageInfo":{"hasNextPage":false,"endCursor":""},"nodes":[42,{"createdAt":"2024-03-02T10:00:00Z","author":{"login":"alice"},"title":"ok","url":"https://example.test/1","state":"OPEN"}]}}}`))
	})

	items, err := client.Search(context.Background(), "repo:acme/widgets is:issue")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "alice", items[0].Author.Login)
}

func TestQueryGraphQLErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":null,"errors":[{"message":"Field 'nope' doesn't exist"}]}`))
	})

	_, err := client.Search(context.Background(), "repo:acme/widgets is:issue")
	require.Error(t, err)
	var gqlErr *GraphQLError
	require.ErrorAs(t, err, &gqlErr)
	assert.Contains(t, gqlErr.Messages[0], "doesn't exist")
}

func TestQueryRateLimitedGraphQLError(t *testing.T) {
	reset := time.Date(2024, 3, 8, 1, 0, 0, 0, time.UTC)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Reset", fmt.Sprint(reset.Unix()))
		w.Write([]byte(`{"data":null,"errors":[{"type":"RATE_LIMITED","message":"API rate limit exceeded"}]}`))
	})

	_, err := client.Search(context.Background(), "repo:acme/widgets is:issue")
	var rlErr *RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.Equal(t, reset, rlErr.ResetAt)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestQueryHTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad credentials", http.StatusUnauthorized)
	})

	_, err := client.Search(context.Background(), "repo:acme/widgets is:issue")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.True(t, IsUnauthorized(err))
}

func TestRepositoryCreatedAtCaches(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/repos/acme/widgets", r.URL.Path)
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":1,"name":"widgets","created_at":"2020-06-15T08:00:00Z"}`))
	})

	want := time.Date(2020, 6, 15, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		got, err := client.RepositoryCreatedAt(context.Background(), "acme", "widgets")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, 1, calls, "creation time is immutable and must be cached")
}

func TestValidateCredentials(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/user", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"login":"octocat"}`))
	})
	require.NoError(t, client.ValidateCredentials(context.Background()))
}

func TestValidateCredentialsUnauthorized(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Bad credentials"}`))
	})

	err := client.ValidateCredentials(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
}

func TestFormatTimeTruncatesToSecond(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	in := time.Date(2024, 3, 8, 14, 30, 45, 999_000_000, loc)
	assert.Equal(t, "2024-03-08T12:30:45Z", FormatTime(in))
}
