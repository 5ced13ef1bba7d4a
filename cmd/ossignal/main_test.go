package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ossignal/ossignal/internal/adapters/driven/storage/memory"
	"github.com/ossignal/ossignal/internal/core/domain"
)

func TestTokenProviderEnvironmentWins(t *testing.T) {
	config := memory.NewConfigStore()
	require.NoError(t, config.Set("github.token", "from-config"))

	t.Setenv("GITHUB_TOKEN", "")
	token, err := tokenProvider(config).GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "from-config", token)

	t.Setenv("GITHUB_TOKEN", "from-env")
	token, err = tokenProvider(config).GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "from-env", token)
}

func TestTokenProviderUnconfigured(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	token, err := tokenProvider(memory.NewConfigStore()).GetToken(context.Background())
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestSchedulerConfigIntervalOverride(t *testing.T) {
	config := memory.NewConfigStore()

	cfg := schedulerConfig(config)
	assert.Equal(t, time.Hour, cfg.TaskConfigs[domain.TaskIDAutocrawl].Interval)

	require.NoError(t, config.Set("scheduler.interval_minutes", 30))
	cfg = schedulerConfig(config)
	assert.Equal(t, 30*time.Minute, cfg.TaskConfigs[domain.TaskIDAutocrawl].Interval)

	// Zero and negative overrides are ignored.
	require.NoError(t, config.Set("scheduler.interval_minutes", 0))
	cfg = schedulerConfig(config)
	assert.Equal(t, time.Hour, cfg.TaskConfigs[domain.TaskIDAutocrawl].Interval)
}
