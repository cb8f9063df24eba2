package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets the WAVE_* variables a developer machine might carry
// so every test starts from struct defaults. t.Setenv registers the
// restore before the unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, ok := strings.Cut(kv, "=")
		if ok && strings.HasPrefix(key, envPrefix+"_") {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 14, cfg.Pipeline.WindowDays)
	assert.Equal(t, 4, cfg.Pipeline.Concurrency)
	assert.Equal(t, "data/input", cfg.Pipeline.InputDir)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, int64(300), int64(cfg.Identity.Ranges.Wave2.Lo))
	assert.Equal(t, int64(1200), int64(cfg.Identity.Ranges.Wave4.Hi))
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("WAVE_PIPELINE_WINDOW_DAYS", "7")
	t.Setenv("WAVE_LOGGING_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Pipeline.WindowDays)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFileOverridesEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("WAVE_PIPELINE_WINDOW_DAYS", "7")

	path := filepath.Join(t.TempDir(), "wavecli.yml")
	require.NoError(t, os.WriteFile(path, []byte("pipeline:\n  window_days: 21\n"), 0o644))
	t.Setenv("WAVE_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 21, cfg.Pipeline.WindowDays)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Run("bad log level", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("WAVE_LOGGING_LEVEL", "loud")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validate config")
	})

	t.Run("zero window", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("WAVE_PIPELINE_WINDOW_DAYS", "0")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("overlapping id ranges", func(t *testing.T) {
		clearEnv(t)
		path := filepath.Join(t.TempDir(), "wavecli.yml")
		yml := `identity:
  ranges:
    wave2: {lo: 300, hi: 700}
    wave3: {lo: 600, hi: 900}
    wave4: {lo: 900, hi: 1200}
`
		require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
		t.Setenv("WAVE_CONFIG_FILE", path)

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "overlap")
	})
}
