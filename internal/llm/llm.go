package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/TobiSchelling/plexrec/internal/config"
)

// ErrStatus is returned when the completion API answers with a non-2xx status.
var ErrStatus = errors.New("completion API request failed")

// Message is a role-tagged chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider is the interface for chat-completion providers.
type Provider interface {
	Generate(ctx context.Context, messages []Message) (string, error)
	IsConfigured() bool
}

// OpenAIProvider talks to an OpenAI-compatible chat completions endpoint.
type OpenAIProvider struct {
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int
	Temperature float64
	client      *http.Client
}

// NewOpenAIProvider creates a provider from the completion config.
func NewOpenAIProvider(cfg config.Completion) *OpenAIProvider {
	return &OpenAIProvider{
		Model:       cfg.Model,
		APIKey:      cfg.APIKey,
		BaseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		client:      &http.Client{Timeout: 120 * time.Second},
	}
}

// IsConfigured checks if the API key is set.
func (o *OpenAIProvider) IsConfigured() bool {
	return o.APIKey != ""
}

// Generate sends the messages and returns the first choice's content.
func (o *OpenAIProvider) Generate(ctx context.Context, messages []Message) (string, error) {
	if o.APIKey == "" {
		return "", fmt.Errorf("%w: API key not configured", config.ErrMissingCredentials)
	}

	body := map[string]any{
		"model":       o.Model,
		"messages":    messages,
		"max_tokens":  o.MaxTokens,
		"temperature": o.Temperature,
		"n":           1,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.APIKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w with status %d: %s", ErrStatus, resp.StatusCode, string(respBody))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in completion response")
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

// SystemPrompt returns the system message for a media kind label such as "movie".
func SystemPrompt(kindLabel string) Message {
	return Message{Role: "system", Content: fmt.Sprintf("You are a recommendation system for %ss.", kindLabel)}
}

// UserPrompt wraps prompt text as a user message.
func UserPrompt(prompt string) Message {
	return Message{Role: "user", Content: prompt}
}
