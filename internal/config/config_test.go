package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
	assert.Equal(t, int64(8000), cfg.Anthropic.MaxTokens)
	assert.Equal(t, 50, cfg.Anthropic.RequestsPerMinute)
	assert.Equal(t, 3, cfg.Anthropic.RetryAttempts)
	assert.Equal(t, 20, cfg.Extract.BatchSize)
	assert.Equal(t, 20, cfg.Extract.MinMessageLength)
	assert.Equal(t, 500, cfg.Extract.RateLimitDelayMS)
	assert.Equal(t, 3, cfg.Extract.FailureDelayMultiplier)
	assert.Equal(t, "./data/outputs", cfg.Paths.OutputDir)
	assert.Equal(t, "./data/landmarks.json", cfg.Paths.LandmarksFile)
	assert.Equal(t, "mazunte", cfg.Finalize.CityID)
	assert.Equal(t, "Mazunte", cfg.Finalize.LocalityName)
	assert.InDelta(t, 15.6685, cfg.Geo.DefaultLat, 1e-9)
	assert.InDelta(t, -96.5542, cfg.Geo.DefaultLng, 1e-9)
	assert.Equal(t, []float64{-97.5, 15.0, -95.5, 16.5}, cfg.Geo.BBox)
	assert.True(t, cfg.SQL.OnConflictDoNothing)
	assert.Equal(t, "./data/runs.db", cfg.Store.SQLitePath)
	assert.Empty(t, cfg.Anthropic.Key)
	assert.Empty(t, cfg.Finalize.ProfileID)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
  format: console
extract:
  batch_size: 10
paths:
  messages_file: ./messages.json
finalize:
  profile_id: profile-1
sql:
  on_conflict_do_nothing: false
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 10, cfg.Extract.BatchSize)
	assert.Equal(t, "./messages.json", cfg.Paths.MessagesFile)
	assert.Equal(t, "profile-1", cfg.Finalize.ProfileID)
	assert.False(t, cfg.SQL.OnConflictDoNothing)
	// Defaults still apply for unset values
	assert.Equal(t, 20, cfg.Extract.MinMessageLength)
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log:\n  level: debug\n"), 0o644))

	t.Setenv("INGEST_LOG_LEVEL", "warn")
	t.Setenv("INGEST_ANTHROPIC_KEY", "sk-ant-test")
	t.Setenv("INGEST_FINALIZE_PROFILE_ID", "profile-env")
	t.Setenv("INGEST_DATABASE_URL", "postgres://localhost/community")
	t.Setenv("INGEST_EXTRACT_BATCH_SIZE", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "sk-ant-test", cfg.Anthropic.Key)
	assert.Equal(t, "profile-env", cfg.Finalize.ProfileID)
	assert.Equal(t, "postgres://localhost/community", cfg.Database.URL)
	assert.Equal(t, 5, cfg.Extract.BatchSize)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	assert.NoError(t, err)
	zap.ReplaceGlobals(zap.NewNop())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	assert.NoError(t, err)
	zap.ReplaceGlobals(zap.NewNop())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}

func validDefaults(t *testing.T) *Config {
	t.Helper()
	chdirTemp(t)
	cfg, err := Load()
	require.NoError(t, err)
	return cfg
}

func TestValidateExtract(t *testing.T) {
	cfg := validDefaults(t)

	err := cfg.Validate(StageExtract)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")
	assert.Contains(t, err.Error(), "paths.messages_file is required")

	cfg.Anthropic.Key = "sk-ant-key"
	cfg.Paths.MessagesFile = "messages.json"
	assert.NoError(t, cfg.Validate(StageExtract))
}

func TestValidateProcess(t *testing.T) {
	cfg := validDefaults(t)
	cfg.Paths.MessagesFile = "messages.json"

	err := cfg.Validate(StageProcess)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "finalize.profile_id is required")
	assert.NotContains(t, err.Error(), "anthropic.key")

	cfg.Finalize.ProfileID = "profile-1"
	assert.NoError(t, cfg.Validate(StageProcess))
}

func TestValidateAll_ReportsEverything(t *testing.T) {
	cfg := validDefaults(t)
	cfg.Extract.BatchSize = 0
	cfg.Geo.BBox = []float64{1, 2}

	err := cfg.Validate(StageAll)
	require.Error(t, err)
	for _, want := range []string{
		"anthropic.key is required",
		"paths.messages_file is required",
		"finalize.profile_id is required",
		"extract.batch_size must be at least 1",
		"geo.bbox must have 4 values, got 2",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidateLoadAndRuns(t *testing.T) {
	cfg := validDefaults(t)

	err := cfg.Validate(StageLoad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.url is required")

	cfg.Database.URL = "postgres://localhost/community"
	assert.NoError(t, cfg.Validate(StageLoad))
	assert.NoError(t, cfg.Validate(StageRuns))
	assert.NoError(t, cfg.Validate(StageGenerate))
}

func TestValidateUnknownStage(t *testing.T) {
	cfg := validDefaults(t)
	err := cfg.Validate("bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown stage")
}
