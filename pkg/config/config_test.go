package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 16777216, cfg.Server.BodyLimit)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "http://localhost:11434", cfg.LLM.BaseURL)
	assert.Equal(t, "llama3.2", cfg.LLM.Model)
	assert.Equal(t, 2, cfg.LLM.MaxAttempts)
	assert.Equal(t, 10000, cfg.LLM.MaxDocumentChars)
	assert.Equal(t, 1, cfg.Review.Concurrency)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadEnvOverrides(t *testing.T) {
	viper.Reset()
	t.Setenv("SOC_REVIEW_SERVER_PORT", "9191")
	t.Setenv("SOC_REVIEW_LLM_PROVIDER", "openai")
	t.Setenv("SOC_REVIEW_REVIEW_CONCURRENCY", "4")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 4, cfg.Review.Concurrency)
}

func TestLoadOllamaEnvAliases(t *testing.T) {
	viper.Reset()
	t.Setenv("OLLAMA_API_URL", "http://10.0.0.5:11434")
	t.Setenv("OLLAMA_MODEL", "mistral")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://10.0.0.5:11434", cfg.LLM.BaseURL)
	assert.Equal(t, "mistral", cfg.LLM.Model)
}

func TestLoadPrefixedEnvBeatsAlias(t *testing.T) {
	viper.Reset()
	t.Setenv("SOC_REVIEW_LLM_MODEL", "llama3.2:70b")
	t.Setenv("OLLAMA_MODEL", "mistral")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "llama3.2:70b", cfg.LLM.Model)
}
