// Package llm talks to the review backend: an OpenAI-compatible
// chat-completions endpoint that returns review feedback as JSON embedded in
// the chat envelope. The invoker folds every failure mode into a tagged
// result, so callers never see a raw transport error.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sevigo/review-relay/internal/config"
)

//go:generate mockgen -destination=../../mocks/mock_llm_client.go -package=mocks . Client

// Client is the transport-level contract for the review backend. The returned
// error covers transport failures only (no response at all); HTTP error
// statuses come back as a ChatResult for the caller to classify.
type Client interface {
	ChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResult, error)
}

// ChatMessage is one turn in the conversation sent to the backend.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat asks the backend to constrain its output shape.
type ResponseFormat struct {
	Type string `json:"type"`
}

// ChatRequest is the OpenAI-compatible completion request body.
type ChatRequest struct {
	Model          string          `json:"model"`
	Messages       []ChatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// ChatResult is the raw outcome of one backend call, before classification.
type ChatResult struct {
	StatusCode int
	Body       []byte
}

type httpChatClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient builds the HTTP client for the configured review backend.
func NewClient(cfg config.ReviewConfig) Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &httpChatClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *httpChatClient) ChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &ChatResult{StatusCode: resp.StatusCode, Body: respBody}, nil
}
