package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: write a config file into a temp dir
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigFile_NoFile(t *testing.T) {
	cfg, err := LoadConfigFile(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Nil(t, cfg, "Should return nil when config file doesn't exist")
}

func TestLoadConfigFile_ValidConfig(t *testing.T) {
	path := writeConfig(t, `storage:
  sources:
    dsn: "/path/to/sources.db"
  news:
    dsn: "/path/to/news.db"
recipes:
  dir: "/srv/recipes"
fetch:
  mode: rss
  recipes: ["builtin:a", "builtin:b"]
`)

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "/path/to/sources.db", cfg.Storage.Sources.DSN)
	assert.Equal(t, "/path/to/news.db", cfg.Storage.News.DSN)
	assert.Equal(t, "/srv/recipes", cfg.Recipes.Dir)
	assert.Equal(t, "rss", cfg.Fetch.Mode)
	assert.Equal(t, []string{"builtin:a", "builtin:b"}, cfg.Fetch.Recipes)
}

func TestLoadConfigFile_InvalidYAML(t *testing.T) {
	path := writeConfig(t, `storage:
  sources:
    - this is invalid yaml because sources should be an object not a list
`)

	cfg, err := LoadConfigFile(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

// TestLoad_Precedence verifies env beats file beats defaults
func TestLoad_Precedence(t *testing.T) {
	path := writeConfig(t, `storage:
  sources:
    dsn: "/file/sources.db"
  news:
    dsn: "/file/news.db"
fetch:
  interval: 2d
  timeout: 10s
  max_articles: 5
`)
	t.Setenv(EnvSourcesDSN, "/env/sources.db")
	t.Setenv(EnvNewsDSN, "")
	t.Setenv(EnvRecipesDir, "")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/env/sources.db", cfg.SourcesDSN)
	assert.Equal(t, "/file/news.db", cfg.NewsDSN)
	assert.Equal(t, Defaults().RecipesDir, cfg.RecipesDir)
	assert.Equal(t, "builtin", cfg.RecipesPrefix)
	assert.Equal(t, 48*time.Hour, cfg.FetchInterval)
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 5, cfg.MaxArticles)
}

// TestLoad_Defaults verifies a missing file yields defaults
func TestLoad_Defaults(t *testing.T) {
	t.Setenv(EnvSourcesDSN, "")
	t.Setenv(EnvNewsDSN, "")
	t.Setenv(EnvRecipesDir, "")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
	assert.Equal(t, "sources.db", filepath.Base(cfg.SourcesDSN))
}

// TestLoad_BadDuration verifies invalid durations are reported
func TestLoad_BadDuration(t *testing.T) {
	path := writeConfig(t, "fetch:\n  interval: soon\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch.interval")
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"90m", 90 * time.Minute},
		{"1d", 24 * time.Hour},
		{"2w", 14 * 24 * time.Hour},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"x", "d", "3xd", "+2w", "-1d", "1.5d"} {
		_, err := ParseDuration(bad)
		assert.Error(t, err, bad)
	}
}
