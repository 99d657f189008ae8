package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultCacheCapacity, cfg.Cache.Capacity)
	assert.Equal(t, DefaultCacheTTL, cfg.Cache.TTL)
	assert.Equal(t, DefaultPageSize, cfg.Query.PageSize)
	assert.Equal(t, "code", cfg.Query.SnippetMode)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadPartialFileFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
cache:
  capacity: 50
query:
  snippet_mode: text
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Cache.Capacity)
	assert.Equal(t, "text", cfg.Query.SnippetMode)
	// Untouched fields keep their defaults
	assert.Equal(t, DefaultCacheTTL, cfg.Cache.TTL)
	assert.Equal(t, DefaultSLALatencyMs, cfg.Perf.SLALatencyMs)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ASTQUERY_CACHE_CAPACITY", "7")
	t.Setenv("ASTQUERY_CACHE_TTL", "90s")
	t.Setenv("ASTQUERY_LOG_LEVEL", "DEBUG")
	t.Setenv("ASTQUERY_INDEX_PATH", "/tmp/custom.db")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Cache.Capacity)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/tmp/custom.db", cfg.IndexPath)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative capacity", func(c *Config) { c.Cache.Capacity = -1 }},
		{"zero ttl", func(c *Config) { c.Cache.TTL = -time.Second }},
		{"fuzzy threshold above one", func(c *Config) { c.Query.FuzzyThreshold = 1.5 }},
		{"unknown snippet mode", func(c *Config) { c.Query.SnippetMode = "html" }},
		{"hit ratio above one", func(c *Config) { c.Perf.HitRatioFloor = 2 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Cache.Capacity = 42
	cfg.IndexPath = "/data/index.db"
	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 42, loaded.Cache.Capacity)
	assert.Equal(t, "/data/index.db", loaded.IndexPath)
}
