package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GEMINI_API_KEY", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.LLMProvider)
	assert.Equal(t, "gemini-2.5-flash", cfg.GeminiModel)
	assert.Equal(t, 90*time.Second, cfg.GenerationTimeout)
	assert.Equal(t, 2, cfg.GenerationRetries)
	assert.Equal(t, StoreSQLite, cfg.StoreBackend)
	assert.Equal(t, filepath.Join(".transit-ace", "transit-ace.db"), cfg.StorePath())
	assert.False(t, cfg.GenerationEnabled())
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("GENERATION_TIMEOUT", "5s")
	t.Setenv("STORE_BACKEND", "yaml")
	t.Setenv("DATA_DIR", "/tmp/ace")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.GenerationEnabled())
	assert.Equal(t, 5*time.Second, cfg.Engine().Timeout)
	assert.Equal(t, "openai", cfg.Engine().Provider)
	assert.Equal(t, filepath.Join("/tmp/ace", "saves"), cfg.StorePath())
}

func TestLoadConfigRejectsUnknownValues(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORE_BACKEND", "postgres")
	_, err := LoadConfig()
	assert.ErrorContains(t, err, "STORE_BACKEND")

	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("LLM_PROVIDER", "ollama")
	_, err = LoadConfig()
	assert.ErrorContains(t, err, "LLM_PROVIDER")
}
