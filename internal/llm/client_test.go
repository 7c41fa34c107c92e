package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSelectsProvider(t *testing.T) {
	cases := []struct {
		provider string
		wantName string
	}{
		{"", "ollama"},
		{"ollama", "ollama"},
		{"Ollama", "ollama"},
		{"openai", "openai"},
		{"OpenAI", "openai"},
	}

	for _, tc := range cases {
		t.Run("provider "+tc.provider, func(t *testing.T) {
			gen, err := New(Options{Provider: tc.provider, Model: "m"})
			require.NoError(t, err)
			assert.Equal(t, tc.wantName, gen.Name())
			assert.Equal(t, "m", gen.Model())
		})
	}
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	_, err := New(Options{Provider: "bedrock", Model: "m"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bedrock")
}
