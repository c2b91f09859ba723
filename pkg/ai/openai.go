package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultOpenAIModel backs dispatched chat turns.
	DefaultOpenAIModel = "gpt-3.5-turbo"
	// SystemPreamble seeds every provider conversation.
	SystemPreamble = "You are a helpful assistant."

	defaultOpenAIBaseURL = "https://api.openai.com/v1"
)

// OpenAIClient calls the OpenAI chat completions API. Per-user keys from
// settings take precedence over the configured default key.
type OpenAIClient struct {
	baseURL    string
	defaultKey string
	model      string
	httpClient *http.Client
}

// NewOpenAIClient builds a chat-completions client. baseURL may be empty for
// the public API; defaultKey may be empty when every caller supplies a key.
func NewOpenAIClient(baseURL, defaultKey, model string) *OpenAIClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIClient{
		baseURL:    baseURL,
		defaultKey: strings.TrimSpace(defaultKey),
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// Complete sends one system+user exchange and returns the assistant reply.
// An empty apiKey falls back to the client's default key.
func (c *OpenAIClient) Complete(ctx context.Context, apiKey, systemPrompt, userPrompt string) (string, error) {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		key = c.defaultKey
	}
	if key == "" {
		return "", fmt.Errorf("openai api key required")
	}

	messages := make([]oaiMessage, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, oaiMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, oaiMessage{Role: "user", Content: userPrompt})

	body, err := json.Marshal(oaiChatRequest{Model: c.model, Messages: messages})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp oaiErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error.Message != "" {
			return "", fmt.Errorf("openai api error: %s", errResp.Error.Message)
		}
		return "", fmt.Errorf("openai api error: %s", resp.Status)
	}

	var chatResp oaiChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("openai decode: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("empty response from openai api")
	}
	text := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("empty response from openai api")
	}
	return text, nil
}

type oaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaiChatRequest struct {
	Model    string       `json:"model"`
	Messages []oaiMessage `json:"messages"`
}

type oaiChatResponse struct {
	Choices []struct {
		Message oaiMessage `json:"message"`
	} `json:"choices"`
}

type oaiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
