package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no config.yaml in sight

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 95, cfg.PriceAPI.DailyQuota)
	assert.Equal(t, 5, cfg.Lookup.WaveSize)
	assert.Equal(t, 24, cfg.Lookup.CacheTTLHours)
	assert.Equal(t, "vivino.com", cfg.Lookup.CommunityDomain)
	assert.Equal(t, 60, cfg.Session.TTLMinutes)
	assert.NotEmpty(t, cfg.Anthropic.SearchModel)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("WINEVALUE_LOOKUP_WAVE_SIZE", "3")
	t.Setenv("WINEVALUE_ANTHROPIC_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Lookup.WaveSize)
	assert.Equal(t, "test-key", cfg.Anthropic.Key)
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, cfg.Validate())

	cfg.Anthropic.Key = "sk-test"
	assert.NoError(t, cfg.Validate())
}
