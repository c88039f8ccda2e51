package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadConfig_Defaults(t *testing.T) {
	t.Setenv("PERSPECTIVE_API_KEY", "k")

	cfg, err := readConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.listenAddr)
	assert.Equal(t, 1100*time.Millisecond, cfg.analyzer.TickRate)
	assert.Equal(t, 128, cfg.analyzer.MaximumQueueSize)
	assert.False(t, cfg.analyzer.WorkConserving)
	assert.Equal(t, 10, cfg.rateBurst)
	assert.Empty(t, cfg.statsRedisAddr)
}

func TestReadConfig_FromEnv(t *testing.T) {
	t.Setenv("PERSPECTIVE_API_KEY", "k")
	t.Setenv("PERSPECTIVE_ENDPOINT", "http://localhost:9090/v1alpha1/comments:analyze")
	t.Setenv("MAX_QUEUE_SIZE", "4")
	t.Setenv("TICK_RATE", "2s")
	t.Setenv("WORK_CONSERVING", "true")
	t.Setenv("RATE_RPS", "0.5")
	t.Setenv("STATS_REDIS_ADDR", " localhost:6379 ")

	cfg, err := readConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9090/v1alpha1/comments:analyze", cfg.analyzer.Endpoint)
	assert.Equal(t, 4, cfg.analyzer.MaximumQueueSize)
	assert.Equal(t, 2*time.Second, cfg.analyzer.TickRate)
	assert.True(t, cfg.analyzer.WorkConserving)
	assert.Equal(t, 1, cfg.rateBurst, "fractional RPS without RATE_BURST defaults burst to 1")
	assert.Equal(t, "localhost:6379", cfg.statsRedisAddr)
}

func TestReadConfig_ReportsEveryProblem(t *testing.T) {
	t.Setenv("PERSPECTIVE_API_KEY", "")
	t.Setenv("TICK_RATE", "500ms")
	t.Setenv("RATE_BURST", "0")

	_, err := readConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key is required")
	assert.Contains(t, err.Error(), "tick rate cannot be less than 1000 ms")
	assert.Contains(t, err.Error(), "RATE_BURST must be > 0")
}
