package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HTTPConfig configures the OpenAI-compatible chat transport
type HTTPConfig struct {
	Endpoint     string
	Model        string
	APIKey       string
	SystemPrompt string
}

// HTTPTransport renders the prompt itself and posts it to a chat
// completions endpoint
type HTTPTransport struct {
	cfg        HTTPConfig
	httpClient *http.Client
}

// NewHTTPTransport creates an HTTP transport. Deadlines come from the
// request context.
func NewHTTPTransport(cfg HTTPConfig, httpClient *http.Client) *HTTPTransport {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &HTTPTransport{cfg: cfg, httpClient: httpClient}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Call posts the prompt and returns the first choice's content
func (t *HTTPTransport) Call(ctx context.Context, req Request) (string, error) {
	if t.cfg.Endpoint == "" || t.cfg.Model == "" {
		return "", newError(ErrUpstream, fmt.Errorf("http generator misconfigured"))
	}

	messages := make([]chatMessage, 0, 2)
	if prompt := strings.TrimSpace(t.cfg.SystemPrompt); prompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: prompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: BuildPrompt(req)})

	body, err := json.Marshal(chatRequest{Model: t.cfg.Model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if t.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+t.cfg.APIKey)
	}

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return "", classify(ctx, ErrUpstream, fmt.Errorf("failed to send request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", newError(ErrUpstream, fmt.Errorf("upstream error %s: %s", resp.Status, strings.TrimSpace(string(payload))))
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return "", classify(ctx, ErrMalformed, fmt.Errorf("failed to decode chat response: %w", err))
	}
	if len(chat.Choices) == 0 {
		return "", newError(ErrMalformed, fmt.Errorf("chat response has no choices"))
	}
	return chat.Choices[0].Message.Content, nil
}
