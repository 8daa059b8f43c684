package nlp

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiConfig configures the Gemini model.
type GeminiConfig struct {
	APIKey string
	// Model defaults to gemini-2.0-flash.
	Model string
}

type geminiModel struct {
	client *genai.Client
	model  string
}

// NewGemini returns a Model backed by the Gemini API.
func NewGemini(ctx context.Context, cfg GeminiConfig) (Model, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("nlp: gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("nlp: create gemini client: %w", err)
	}
	return &geminiModel{client: client, model: cfg.Model}, nil
}

func (m *geminiModel) Name() string { return "gemini:" + m.model }

func (m *geminiModel) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := m.client.Models.GenerateContent(ctx, m.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.2),
		MaxOutputTokens: maxReplyTokens,
	})
	if err != nil {
		return "", fmt.Errorf("nlp: gemini generate: %w", err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}
