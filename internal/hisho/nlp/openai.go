package nlp

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

const (
	defaultOpenAIBase  = "https://api.openai.com/v1"
	defaultOpenAIModel = "gpt-4o-mini"
	defaultTimeout     = 30 * time.Second

	// maxReplyTokens bounds the reply. Tags are short and narration is
	// asked to be brief.
	maxReplyTokens = 512
)

// OpenAIConfig configures the OpenAI-compatible model.
type OpenAIConfig struct {
	// APIKey is the bearer token.
	APIKey string

	// BaseURL overrides the endpoint, for local or self-hosted servers that
	// speak the chat completions API. Defaults to https://api.openai.com/v1.
	BaseURL string

	// Model defaults to gpt-4o-mini.
	Model string

	// Timeout is the HTTP request timeout. Defaults to 30 s.
	Timeout time.Duration
}

type openAIModel struct {
	cfg    OpenAIConfig
	client *http.Client
}

// NewOpenAI returns a Model backed by an OpenAI-compatible chat completions
// endpoint. It is safe for concurrent use.
func NewOpenAI(cfg OpenAIConfig) Model {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenAIBase
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = defaultOpenAIModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &openAIModel{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

func (m *openAIModel) Name() string { return "openai:" + m.cfg.Model }

// --- minimal chat completions wire types ---

type oaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaiRequest struct {
	Model       string       `json:"model"`
	Messages    []oaiMessage `json:"messages"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
	Temperature float64      `json:"temperature"`
}

type oaiResponse struct {
	Choices []struct {
		Message oaiMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete sends prompt as a single user message.
func (m *openAIModel) Complete(ctx context.Context, prompt string) (string, error) {
	data, err := json.Marshal(oaiRequest{
		Model:       m.cfg.Model,
		Messages:    []oaiMessage{{Role: "user", Content: prompt}},
		MaxTokens:   maxReplyTokens,
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("nlp: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.BaseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("nlp: create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if m.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.cfg.APIKey)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("nlp: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("nlp: upstream: %w", ErrRateLimited)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("nlp: read response body: %w", err)
	}

	var out oaiResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("nlp: decode API response (HTTP %d): %w", resp.StatusCode, err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("nlp: API error (%s): %s", out.Error.Type, out.Error.Message)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("nlp: unexpected HTTP %d", resp.StatusCode)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", ErrEmptyReply
	}
	return out.Choices[0].Message.Content, nil
}
