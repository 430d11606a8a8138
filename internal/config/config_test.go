package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/racewatch/racewatch/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "data/crawl_targets.json", cfg.Data.TargetsPath)
	assert.Equal(t, "data/staging", cfg.Data.StagingDir)
	assert.Equal(t, 30, cfg.HTTP.TimeoutSeconds)
	assert.Equal(t, "dryrun", cfg.Extractor.Provider)
	assert.Equal(t, string(config.DuplicateComplete), cfg.Crawler.DuplicatePolicy)
	assert.True(t, cfg.Logging.Development)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
data:
  targets_path: /tmp/targets.json
  master_path: /tmp/results.csv
http:
  timeout_seconds: 5
crawler:
  duplicate_policy: defer
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/targets.json", cfg.Data.TargetsPath)
	assert.Equal(t, "/tmp/results.csv", cfg.Data.MasterPath)
	assert.Equal(t, 5, cfg.HTTP.TimeoutSeconds)
	assert.Equal(t, "defer", cfg.Crawler.DuplicatePolicy)
	// Defaults survive partial files.
	assert.Equal(t, "data/staging", cfg.Data.StagingDir)
}

func TestValidate(t *testing.T) {
	base := func() config.Config {
		cfg, err := config.Load("")
		require.NoError(t, err)
		return cfg
	}

	t.Run("ZeroTimeout", func(t *testing.T) {
		cfg := base()
		cfg.HTTP.TimeoutSeconds = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("GeminiRequiresKey", func(t *testing.T) {
		cfg := base()
		cfg.Extractor.Provider = "gemini"
		cfg.Extractor.APIKey = ""
		assert.Error(t, cfg.Validate())

		cfg.Extractor.APIKey = "secret"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("UnknownProvider", func(t *testing.T) {
		cfg := base()
		cfg.Extractor.Provider = "oracle"
		assert.Error(t, cfg.Validate())
	})

	t.Run("UnknownDuplicatePolicy", func(t *testing.T) {
		cfg := base()
		cfg.Crawler.DuplicatePolicy = "maybe"
		assert.Error(t, cfg.Validate())
	})
}
