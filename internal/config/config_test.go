package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/reconcile_test")
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, 20, cfg.Matching.TopK)
	assert.Equal(t, 7, cfg.Matching.DateWindowDays)
	assert.Equal(t, 50, cfg.Matching.CandidateLimit)
	assert.Equal(t, 0.95, cfg.Matching.AutoThreshold)
	assert.Equal(t, 0.75, cfg.Matching.HighThreshold)
	assert.Equal(t, 0.40, cfg.Matching.SuggestThreshold)
	assert.Equal(t, 30*24*time.Hour, cfg.Matching.SuggestionTTL)

	total := cfg.Matching.WeightEmbedding + cfg.Matching.WeightAmount +
		cfg.Matching.WeightCurrency + cfg.Matching.WeightDate + cfg.Matching.WeightName
	assert.InDelta(t, 1.0, total, 1e-9)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/reconcile_test")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("MATCH_TOP_K", "5")
	t.Setenv("MATCH_AUTO_THRESHOLD", "0.99")
	t.Setenv("MATCH_ANN_TIMEOUT", "250ms")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Matching.TopK)
	assert.Equal(t, 0.99, cfg.Matching.AutoThreshold)
	assert.Equal(t, 250*time.Millisecond, cfg.Matching.ANNTimeout)
}

func TestLoadRejectsInvalidInt(t *testing.T) {
	t.Setenv("MATCH_TOP_K", "lots")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	t.Setenv("MATCH_ANN_TIMEOUT", "soonish")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MATCH_ANN_TIMEOUT")
}

func TestValidateRequiredVars(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "JWT_SECRET")
}
