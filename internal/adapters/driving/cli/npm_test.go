package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ossignal/ossignal/internal/core/ports/driving"
	"github.com/ossignal/ossignal/internal/providers/npm"
)

func TestNPMDownloadsCmd_Use(t *testing.T) {
	assert.Equal(t, "downloads", npmDownloadsCmd.Use)
}

func TestNPMDownloadsCmd_RequiresName(t *testing.T) {
	_, _, _, _, cleanup := setupTestServices()
	defer cleanup()

	_, err := executeCommand("npm", "downloads")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestNPMDownloadsCmd_Fetches(t *testing.T) {
	_, _, mf, _, cleanup := setupTestServices()
	defer cleanup()
	mf.outcome = driving.FetchOutcome{Count: 30}

	out, err := executeCommand("npm", "downloads", "--name", "left-pad", "--autocrawl")
	require.NoError(t, err)
	assert.Equal(t, npm.CommandDownloads, mf.gotCommand)
	assert.Equal(t, map[string]string{"name": "left-pad"}, mf.gotArgs)
	assert.True(t, mf.gotAutocrawl)
	assert.Contains(t, out, "Ingested 30 download days for left-pad.")
}

func TestNPMDownloadsCmd_Cached(t *testing.T) {
	_, _, mf, _, cleanup := setupTestServices()
	defer cleanup()
	mf.outcome = driving.FetchOutcome{Cached: true}

	out, err := executeCommand("npm", "downloads", "--name", "left-pad")
	require.NoError(t, err)
	assert.Contains(t, out, "already up to date")
}
