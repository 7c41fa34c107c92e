package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultBaseURL = "http://localhost:11434"

// OllamaClient talks to Ollama's native generate API.
type OllamaClient struct {
	baseURL     string
	model       string
	temperature float32
	httpClient  *http.Client
}

// NewOllamaClient builds a client for the given base URL, normalizing the
// forms users commonly paste (trailing slash, full generate path).
// Per-request deadlines come from the caller's context.
func NewOllamaClient(baseURL, model string, temperature float32) *OllamaClient {
	return &OllamaClient{
		baseURL:     normalizeBaseURL(baseURL),
		model:       model,
		temperature: temperature,
		httpClient:  &http.Client{},
	}
}

func normalizeBaseURL(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return DefaultBaseURL
	}
	u := strings.TrimRight(strings.TrimSpace(raw), "/")
	u = strings.TrimSuffix(u, "/api/generate")
	u = strings.TrimSuffix(u, "/api")
	u = strings.TrimSuffix(u, "/v1")
	return u
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		Options: map[string]any{
			"temperature": c.temperature,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %v", ErrBackendUnavailable, err)
	}

	var out generateResponse
	if err := json.Unmarshal(data, &out); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("%w: status %d", ErrBackendError, resp.StatusCode)
		}
		return "", fmt.Errorf("%w: decoding response: %v", ErrBackendError, err)
	}

	if resp.StatusCode != http.StatusOK || out.Error != "" {
		msg := out.Error
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return "", fmt.Errorf("%w: %s", ErrBackendError, msg)
	}

	if strings.TrimSpace(out.Response) == "" {
		return "", fmt.Errorf("%w: empty response from model", ErrBackendError)
	}

	return out.Response, nil
}

// Reachable probes the tags endpoint, which answers quickly whether or not
// any model is loaded.
func (c *OllamaClient) Reachable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

func (c *OllamaClient) Model() string { return c.model }

func (c *OllamaClient) Name() string { return "ollama" }
