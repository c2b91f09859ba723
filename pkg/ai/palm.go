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
	// DefaultPalmModel handles Bard-branded chat turns.
	DefaultPalmModel = "models/chat-bison-001"

	defaultPalmBaseURL = "https://generativelanguage.googleapis.com/v1beta2"
)

// PalmClient calls the Generative Language generateMessage API.
type PalmClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewPalmClient builds a generateMessage client. baseURL may be empty for the
// public API.
func NewPalmClient(baseURL, apiKey, model string) *PalmClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultPalmBaseURL
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultPalmModel
	}
	return &PalmClient{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(apiKey),
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// GenerateMessage sends one message with optional conversation context and
// returns the first candidate reply.
func (c *PalmClient) GenerateMessage(ctx context.Context, contextText, message string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("palm api key required")
	}

	reqBody := palmRequest{}
	reqBody.Prompt.Context = contextText
	reqBody.Prompt.Messages = []palmMessage{{Content: message}}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/%s:generateMessage?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("palm request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp palmErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error.Message != "" {
			return "", fmt.Errorf("palm api error: %s", errResp.Error.Message)
		}
		return "", fmt.Errorf("palm api error: %s", resp.Status)
	}

	var genResp palmResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("palm decode: %w", err)
	}
	if len(genResp.Candidates) == 0 {
		return "", fmt.Errorf("empty response from palm api")
	}
	text := strings.TrimSpace(genResp.Candidates[0].Content)
	if text == "" {
		return "", fmt.Errorf("empty response from palm api")
	}
	return text, nil
}

type palmMessage struct {
	Content string `json:"content"`
}

type palmRequest struct {
	Prompt struct {
		Context  string        `json:"context,omitempty"`
		Messages []palmMessage `json:"messages"`
	} `json:"prompt"`
}

type palmResponse struct {
	Candidates []palmMessage `json:"candidates"`
}

type palmErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
