package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func validConfig() Config {
	return Config{
		Logging:   LoggingConfig{Level: "info", Format: "json"},
		Content:   ContentConfig{Dir: "content", Debounce: 250 * time.Millisecond},
		Scripting: ScriptingConfig{InstructionLimit: 1000},
	}
}

func TestValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "content", cfg.Content.Dir)
	assert.False(t, cfg.Content.Watch)
	assert.Equal(t, 250*time.Millisecond, cfg.Content.Debounce)
	assert.Equal(t, 100_000, cfg.Scripting.InstructionLimit)
	assert.Equal(t, int64(0), cfg.Sampler.Seed)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
logging:
  level: debug
  format: json
content:
  dir: /srv/loot
  watch: true
  debounce: 1s
scripting:
  instruction_limit: 5000
sampler:
  seed: 42
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/srv/loot", cfg.Content.Dir)
	assert.True(t, cfg.Content.Watch)
	assert.Equal(t, time.Second, cfg.Content.Debounce)
	assert.Equal(t, 5000, cfg.Scripting.InstructionLimit)
	assert.Equal(t, int64(42), cfg.Sampler.Seed)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("LOOT_CONTENT_DIR", "/from/env")
	t.Setenv("LOOT_SAMPLER_SEED", "7")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.Content.Dir)
	assert.Equal(t, int64(7), cfg.Sampler.Seed)
}

func TestLoadInvalidPath(t *testing.T) {
	_, err := Load("/nonexistent/path.yaml")
	assert.Error(t, err)
}

func TestValidateLoggingLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		cfg := validConfig()
		cfg.Logging.Level = level
		assert.NoError(t, cfg.Validate(), "level %q should be valid", level)
	}
	cfg := validConfig()
	cfg.Logging.Level = "trace"
	assert.Error(t, cfg.Validate())
}

func TestValidateLoggingFormat(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Format = "xml"
	assert.Error(t, cfg.Validate())
}

func TestValidateContent(t *testing.T) {
	cfg := validConfig()
	cfg.Content.Dir = ""
	assert.ErrorContains(t, cfg.Validate(), "content.dir")

	cfg = validConfig()
	cfg.Content.Debounce = -time.Second
	assert.ErrorContains(t, cfg.Validate(), "content.debounce")

	cfg = validConfig()
	cfg.Content.Watch = true
	cfg.Content.Debounce = 0
	assert.ErrorContains(t, cfg.Validate(), "content.watch")
}

func TestValidate_ReportsEveryViolation(t *testing.T) {
	cfg := Config{}
	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"logging.level", "content.dir", "scripting.instruction_limit"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestPropertyInstructionLimit(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		limit := rapid.IntRange(-1000, 1_000_000).Draw(t, "limit")
		cfg := validConfig()
		cfg.Scripting.InstructionLimit = limit
		err := cfg.Validate()
		if limit >= 1 && err != nil {
			t.Fatalf("valid limit %d rejected: %v", limit, err)
		}
		if limit < 1 && err == nil {
			t.Fatalf("invalid limit %d accepted", limit)
		}
	})
}
