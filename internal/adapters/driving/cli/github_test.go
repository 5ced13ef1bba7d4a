package cli

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ossignal/ossignal/internal/core/ports/driving"
	"github.com/ossignal/ossignal/internal/providers/github"
)

func TestGitHubCmd_Subcommands(t *testing.T) {
	names := make([]string, 0)
	for _, sub := range githubCmd.Commands() {
		names = append(names, sub.Use)
	}
	assert.ElementsMatch(t, []string{"issue-filed", "issue-closed", "pr-created", "pr-merged"}, names)
}

func TestGitHubCmd_RequiresOrgAndRepo(t *testing.T) {
	_, _, _, _, cleanup := setupTestServices()
	defer cleanup()

	_, err := executeCommand("github", "issue-filed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestGitHubCmd_IssueFiled(t *testing.T) {
	_, _, mf, _, cleanup := setupTestServices()
	defer cleanup()
	mf.outcome = driving.FetchOutcome{Count: 5}

	out, err := executeCommand("github", "issue-filed", "--org", "acme", "--repo", "widgets")
	require.NoError(t, err)
	assert.Equal(t, github.CommandIssueFiled, mf.gotCommand)
	assert.Equal(t, map[string]string{"org": "acme", "repo": "widgets"}, mf.gotArgs)
	assert.False(t, mf.gotAutocrawl)
	assert.Contains(t, out, "Ingested 5 events for acme/widgets.")
}

func TestGitHubCmd_PRMergedWithAutocrawl(t *testing.T) {
	_, _, mf, _, cleanup := setupTestServices()
	defer cleanup()

	_, err := executeCommand("github", "pr-merged", "--org", "acme", "--repo", "widgets", "--autocrawl")
	require.NoError(t, err)
	assert.Equal(t, github.CommandPRMerged, mf.gotCommand)
	assert.True(t, mf.gotAutocrawl)
}

func TestGitHubCmd_Cached(t *testing.T) {
	_, _, mf, _, cleanup := setupTestServices()
	defer cleanup()
	mf.outcome = driving.FetchOutcome{Cached: true}

	out, err := executeCommand("github", "issue-closed", "--org", "acme", "--repo", "widgets")
	require.NoError(t, err)
	assert.Equal(t, github.CommandIssueClosed, mf.gotCommand)
	assert.Contains(t, out, "already up to date")
}

func TestGitHubCmd_RateLimited(t *testing.T) {
	_, _, mf, _, cleanup := setupTestServices()
	defer cleanup()
	mf.err = &github.RateLimitError{ResetAt: time.Date(2024, 3, 8, 1, 0, 0, 0, time.UTC)}

	_, err := executeCommand("github", "issue-filed", "--org", "acme", "--repo", "widgets")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit exhausted")
	assert.Contains(t, err.Error(), "2024-03-08T01:00:00Z")
}

func TestGitHubCmd_FetchError(t *testing.T) {
	_, _, mf, _, cleanup := setupTestServices()
	defer cleanup()
	mf.err = errors.New("bad credentials")

	_, err := executeCommand("github", "pr-created", "--org", "acme", "--repo", "widgets")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad credentials")
}
