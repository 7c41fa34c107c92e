package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaGenerateSendsNativeRequest(t *testing.T) {
	var captured generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/generate", r.URL.Path)

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &captured))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"response": `{"satisfied": true}`})
	}))
	defer server.Close()

	client := NewOllamaClient(server.URL, "llama3.2", 0.1)
	got, err := client.Generate(context.Background(), "is the rule satisfied?")
	require.NoError(t, err)

	assert.Equal(t, `{"satisfied": true}`, got)
	assert.Equal(t, "llama3.2", captured.Model)
	assert.Equal(t, "is the rule satisfied?", captured.Prompt)
	assert.False(t, captured.Stream)
}

func TestOllamaGenerateModelNotPulled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{"error": `model "llama3.2" not found, try pulling it first`})
	}))
	defer server.Close()

	client := NewOllamaClient(server.URL, "llama3.2", 0.1)
	_, err := client.Generate(context.Background(), "prompt")

	assert.ErrorIs(t, err, ErrBackendError)
	assert.Contains(t, err.Error(), "not found")
}

func TestOllamaGenerateConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewOllamaClient(server.URL, "llama3.2", 0.1)
	_, err := client.Generate(context.Background(), "prompt")

	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestOllamaGenerateTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(map[string]any{"response": "too late"})
	}))
	defer server.Close()

	client := NewOllamaClient(server.URL, "llama3.2", 0.1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Generate(ctx, "prompt")
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestOllamaGenerateEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"response": "   "})
	}))
	defer server.Close()

	client := NewOllamaClient(server.URL, "llama3.2", 0.1)
	_, err := client.Generate(context.Background(), "prompt")

	assert.ErrorIs(t, err, ErrBackendError)
}

func TestOllamaGenerateGarbageBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html>not json</html>")
	}))
	defer server.Close()

	client := NewOllamaClient(server.URL, "llama3.2", 0.1)
	_, err := client.Generate(context.Background(), "prompt")

	assert.ErrorIs(t, err, ErrBackendError)
}

func TestOllamaReachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"models": []any{}})
	}))
	defer server.Close()

	client := NewOllamaClient(server.URL, "llama3.2", 0.1)
	assert.True(t, client.Reachable(context.Background()))

	server.Close()
	assert.False(t, client.Reachable(context.Background()))
}

func TestNormalizeBaseURL(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty defaults", "", DefaultBaseURL},
		{"plain host", "http://localhost:11434", "http://localhost:11434"},
		{"trailing slash", "http://localhost:11434/", "http://localhost:11434"},
		{"full generate path", "http://localhost:11434/api/generate", "http://localhost:11434"},
		{"api suffix", "http://localhost:11434/api", "http://localhost:11434"},
		{"v1 suffix", "http://localhost:11434/v1", "http://localhost:11434"},
		{"surrounding space", "  http://10.0.0.5:11434/  ", "http://10.0.0.5:11434"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, normalizeBaseURL(tc.in))
		})
	}
}
